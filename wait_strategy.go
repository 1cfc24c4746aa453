package disruptor

import (
	"sync"
	"sync/atomic"
)

// Alerter reports whether a wait should be abandoned.
type Alerter interface {
	// CheckAlert returns ErrAlerted once the waiter has been asked to stop.
	CheckAlert() error
}

// WaitStrategy governs how an EventProcessor waits for a sequence to become
// available, and how waiters are woken.
type WaitStrategy interface {
	// WaitFor returns once min(cursor, dependent) >= sequence, yielding that
	// minimum, which may exceed sequence. It returns the alerter's error if
	// the wait is abandoned. Implementations check the alerter on every
	// iteration of their wait loop.
	WaitFor(sequence int64, cursor *Sequence, dependent SequenceReader, alerter Alerter) (int64, error)

	// SignalAllWhenBlocking wakes every parked waiter. It is called after
	// each publish, after each processed batch, and when a barrier is
	// alerted.
	SignalAllWhenBlocking()
}

func availableSequence(cursor *Sequence, dependent SequenceReader) int64 {
	return min(cursor.Get(), dependent.Get())
}

// BlockingWaitStrategy parks waiters on a condition variable. It trades
// latency for idle CPU, and is the better choice when there are more
// goroutines than cores.
type BlockingWaitStrategy struct {
	mu           sync.Mutex
	cond         *sync.Cond
	signalNeeded atomic.Bool
}

var _ WaitStrategy = (*BlockingWaitStrategy)(nil)

func NewBlockingWaitStrategy() *BlockingWaitStrategy {
	w := &BlockingWaitStrategy{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *BlockingWaitStrategy) WaitFor(sequence int64, cursor *Sequence, dependent SequenceReader, alerter Alerter) (int64, error) {
	if available := availableSequence(cursor, dependent); available >= sequence {
		return available, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		// must be set before the re-check, so a signaller that misses the
		// flag is guaranteed to have published before we look
		w.signalNeeded.Store(true)

		available := availableSequence(cursor, dependent)
		if available >= sequence {
			return available, nil
		}
		if err := alerter.CheckAlert(); err != nil {
			return available, err
		}
		w.cond.Wait()
	}
}

func (w *BlockingWaitStrategy) SignalAllWhenBlocking() {
	if w.signalNeeded.Swap(false) {
		w.mu.Lock()
		w.cond.Broadcast()
		w.mu.Unlock()
	}
}
