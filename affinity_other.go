//go:build !linux

package disruptor

// setAffinity is a no-op where sched_setaffinity(2) is unavailable.
func setAffinity(int) error {
	return nil
}
