package disruptor

import "sync/atomic"

// SequenceBarrier is handed to an EventProcessor to discover the highest
// sequence it may safely read, given the producer cursor and the sequences of
// any stages it depends on.
//
// It also carries the cooperative cancellation flag: once alerted, WaitFor
// returns ErrAlerted until ClearAlert is called.
type SequenceBarrier struct {
	sequencer    Sequencer
	waitStrategy WaitStrategy
	cursor       *Sequence
	dependent    SequenceReader
	hasDeps      bool
	alerted      atomic.Bool
}

var _ Alerter = (*SequenceBarrier)(nil)

func newSequenceBarrier(sequencer Sequencer, waitStrategy WaitStrategy, cursor *Sequence, dependencies []*Sequence) *SequenceBarrier {
	b := &SequenceBarrier{
		sequencer:    sequencer,
		waitStrategy: waitStrategy,
		cursor:       cursor,
		dependent:    cursor,
	}
	if len(dependencies) > 0 {
		b.dependent = sequenceGroup(append([]*Sequence(nil), dependencies...))
		b.hasDeps = true
	}
	return b
}

// WaitFor blocks until sequence is available, returning the highest available
// sequence, which may be greater than sequence.
func (b *SequenceBarrier) WaitFor(sequence int64) (int64, error) {
	var gap backoff
	for {
		if err := b.CheckAlert(); err != nil {
			return InitialSequenceValue, err
		}

		available, err := b.waitStrategy.WaitFor(sequence, b.cursor, b.dependent, b)
		if err != nil {
			return available, err
		}
		if available < sequence {
			return available, nil
		}
		if b.hasDeps {
			// upstream stages only ever process published sequences
			return available, nil
		}

		if highest := b.sequencer.HighestPublishedSequence(sequence, available); highest >= sequence {
			return highest, nil
		}

		// claimed but not yet published by another producer: the wait
		// strategy cannot park on this, so back off to sleeping
		if gap.maxSleep == 0 {
			gap = gapBackoff()
		}
		gap.wait()
	}
}

// Cursor returns the sequence this barrier currently reads as available,
// ignoring publication gaps.
func (b *SequenceBarrier) Cursor() int64 {
	return b.dependent.Get()
}

// Alert interrupts any current and future WaitFor calls.
func (b *SequenceBarrier) Alert() {
	b.alerted.Store(true)
	b.waitStrategy.SignalAllWhenBlocking()
}

func (b *SequenceBarrier) IsAlerted() bool {
	return b.alerted.Load()
}

func (b *SequenceBarrier) ClearAlert() {
	b.alerted.Store(false)
}

// CheckAlert returns ErrAlerted if the barrier has been alerted.
func (b *SequenceBarrier) CheckAlert() error {
	if b.alerted.Load() {
		return ErrAlerted
	}
	return nil
}
