package disruptor

import (
	"math"
	"runtime"
	"time"

	"github.com/valyala/fastrand"
)

const (
	goschedEvery = 64 // reduce runtime.Gosched() frequency in hot loops

	minSleep = time.Microsecond

	// producers waiting on a full ring spin this long before sleeping
	producerSpinBudget = 1 << 12
	producerMaxSleep   = 100 * time.Microsecond

	// consumers waiting on an unpublished multi-producer claim
	gapSpinBudget = 1 << 10
	gapMaxSleep   = 50 * time.Microsecond
)

// backoff paces a busy loop: it spins, yielding every yieldEvery iterations,
// and once spinBudget iterations have passed (if maxSleep is set) it sleeps
// for an exponentially growing, jittered interval capped at maxSleep.
type backoff struct {
	yieldEvery uint32
	spinBudget uint32
	maxSleep   time.Duration

	spins uint32
	sleep time.Duration
}

func producerBackoff() backoff {
	return backoff{
		yieldEvery: goschedEvery,
		spinBudget: producerSpinBudget,
		maxSleep:   producerMaxSleep,
	}
}

func gapBackoff() backoff {
	return backoff{
		yieldEvery: goschedEvery,
		spinBudget: gapSpinBudget,
		maxSleep:   gapMaxSleep,
	}
}

func (b *backoff) wait() {
	if b.spins < math.MaxUint32 {
		b.spins++
	}
	if b.maxSleep > 0 && b.spins > b.spinBudget {
		if b.sleep == 0 {
			b.sleep = minSleep
		} else if b.sleep < b.maxSleep {
			b.sleep = min(b.sleep*2, b.maxSleep)
		}
		time.Sleep(jitter(b.sleep))
		return
	}
	if b.yieldEvery > 0 && b.spins%b.yieldEvery == 0 {
		runtime.Gosched()
	}
}

func (b *backoff) reset() {
	b.spins = 0
	b.sleep = 0
}

// jitter returns a duration in [d/2, d), so that many sleepers do not wake in
// lockstep.
func jitter(d time.Duration) time.Duration {
	half := d / 2
	if half <= 0 {
		return d
	}
	if half > math.MaxUint32 {
		half = math.MaxUint32
	}
	return half + time.Duration(fastrand.Uint32n(uint32(half)))
}
