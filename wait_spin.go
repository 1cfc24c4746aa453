package disruptor

import "time"

// SpinLoopWaitStrategy busy-polls the dependent sequences. It gives the lowest
// latency, at the cost of keeping a core busy for every waiting processor.
//
// By default it yields the processor every 64 iterations and never sleeps;
// see WithYieldEvery and WithSleepBackoff.
type SpinLoopWaitStrategy struct {
	yieldEvery uint32
	spinBudget uint32
	maxSleep   time.Duration
}

var _ WaitStrategy = (*SpinLoopWaitStrategy)(nil)

// SpinLoopOption configures a SpinLoopWaitStrategy.
type SpinLoopOption func(s *SpinLoopWaitStrategy)

// WithYieldEvery calls runtime.Gosched every n unsuccessful polls. Zero
// disables yielding.
func WithYieldEvery(n uint32) SpinLoopOption {
	return func(s *SpinLoopWaitStrategy) {
		s.yieldEvery = n
	}
}

// WithSleepBackoff makes the strategy sleep after spins unsuccessful polls,
// doubling the (jittered) sleep on every further miss up to maxSleep.
func WithSleepBackoff(spins uint32, maxSleep time.Duration) SpinLoopOption {
	return func(s *SpinLoopWaitStrategy) {
		s.spinBudget = spins
		s.maxSleep = maxSleep
	}
}

func NewSpinLoopWaitStrategy(options ...SpinLoopOption) *SpinLoopWaitStrategy {
	s := &SpinLoopWaitStrategy{yieldEvery: goschedEvery}
	for _, o := range options {
		o(s)
	}
	return s
}

func (s *SpinLoopWaitStrategy) WaitFor(sequence int64, cursor *Sequence, dependent SequenceReader, alerter Alerter) (int64, error) {
	b := backoff{
		yieldEvery: s.yieldEvery,
		spinBudget: s.spinBudget,
		maxSleep:   s.maxSleep,
	}
	for {
		available := availableSequence(cursor, dependent)
		if available >= sequence {
			return available, nil
		}
		if err := alerter.CheckAlert(); err != nil {
			return available, err
		}
		b.wait()
	}
}

// SignalAllWhenBlocking is a no-op, spinning waiters need no wake-up.
func (*SpinLoopWaitStrategy) SignalAllWhenBlocking() {}
