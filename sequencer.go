package disruptor

import (
	"sync"
	"sync/atomic"
)

// Sequencer owns the publish cursor of a ring, arbitrates claims on its slots
// and tracks the gating sequences of downstream consumers.
//
// A claim is only granted while cursor - min(gating sequences) < BufferSize,
// so the producer can never overwrite a slot the slowest consumer has not
// processed.
type Sequencer interface {
	BufferSize() int64

	// Cursor returns the highest claimed sequence. For a single producer this
	// is also the highest published sequence; for multiple producers use
	// HighestPublishedSequence.
	Cursor() int64

	// Next claims the next sequence, waiting while the ring is full.
	Next() int64
	// NextN claims the next n sequences, returning the highest one.
	// n must be in [1, BufferSize].
	NextN(n int64) int64
	// TryNext claims the next sequence, or fails with ErrInsufficientCapacity.
	TryNext() (int64, error)
	TryNextN(n int64) (int64, error)

	// Publish makes a claimed sequence visible to consumers.
	Publish(sequence int64)
	// PublishRange publishes every sequence in [lo, hi].
	PublishRange(lo, hi int64)

	IsAvailable(sequence int64) bool
	// HighestPublishedSequence returns the highest sequence in
	// [lowerBound, availableSequence] up to which every sequence is
	// published, or lowerBound-1 if lowerBound itself is not.
	HighestPublishedSequence(lowerBound, availableSequence int64) int64

	// AddGatingSequences registers downstream consumers. Each sequence is
	// moved to the current cursor before it starts gating.
	AddGatingSequences(sequences ...*Sequence)
	RemoveGatingSequence(sequence *Sequence) bool
	// MinimumSequence returns the minimum of the cursor and every gating
	// sequence.
	MinimumSequence() int64
	RemainingCapacity() int64

	// NewBarrier returns a barrier over the cursor, or over dependencies when
	// any are given.
	NewBarrier(dependencies ...*Sequence) *SequenceBarrier

	Stats() SequencerStats
}

func checkBufferSize(bufferSize int64) {
	if bufferSize <= 0 || (bufferSize&(bufferSize-1)) != 0 {
		panic("disruptor: capacity must be power of 2 and > 0")
	}
}

func (s *sequencerBase) checkClaim(n int64) {
	if n < 1 || n > s.bufferSize {
		panic("disruptor: n must be > 0 and <= buffer size")
	}
}

// sequencerBase holds the state shared by both sequencer variants.
type sequencerBase struct {
	bufferSize   int64
	waitStrategy WaitStrategy
	cursor       *Sequence

	gatingMu sync.Mutex
	gating   atomic.Pointer[[]*Sequence] // copy-on-write
	stats    sequencerCounters
}

func newSequencerBase(bufferSize int64, waitStrategy WaitStrategy) sequencerBase {
	checkBufferSize(bufferSize)
	if waitStrategy == nil {
		waitStrategy = NewBlockingWaitStrategy()
	}
	return sequencerBase{
		bufferSize:   bufferSize,
		waitStrategy: waitStrategy,
		cursor:       NewSequence(),
	}
}

func (s *sequencerBase) BufferSize() int64 {
	return s.bufferSize
}

func (s *sequencerBase) Cursor() int64 {
	return s.cursor.Get()
}

func (s *sequencerBase) gatingSequences() []*Sequence {
	if p := s.gating.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *sequencerBase) AddGatingSequences(sequences ...*Sequence) {
	s.gatingMu.Lock()
	defer s.gatingMu.Unlock()
	old := s.gatingSequences()
	updated := make([]*Sequence, len(old), len(old)+len(sequences))
	copy(updated, old)
	cursor := s.cursor.Get()
	for _, seq := range sequences {
		seq.Set(cursor)
		updated = append(updated, seq)
	}
	s.gating.Store(&updated)
}

func (s *sequencerBase) RemoveGatingSequence(sequence *Sequence) bool {
	s.gatingMu.Lock()
	defer s.gatingMu.Unlock()
	old := s.gatingSequences()
	updated := make([]*Sequence, 0, len(old))
	for _, seq := range old {
		if seq != sequence {
			updated = append(updated, seq)
		}
	}
	if len(updated) == len(old) {
		return false
	}
	s.gating.Store(&updated)
	return true
}

func (s *sequencerBase) MinimumSequence() int64 {
	return minimumSequence(s.gatingSequences(), s.cursor.Get())
}

// RemainingCapacity is approximate when read concurrently with claims.
func (s *sequencerBase) RemainingCapacity() int64 {
	produced := s.cursor.Get()
	consumed := minimumSequence(s.gatingSequences(), produced)
	return s.bufferSize - (produced - consumed)
}

func (s *sequencerBase) Stats() SequencerStats {
	return s.stats.snapshot()
}
