package disruptor

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// SingleProducerSequencer is a Sequencer for exactly one publishing goroutine.
//
// Claims are tracked in plain fields owned by that goroutine; the only
// cross-goroutine write is the release store of the cursor in Publish.
type SingleProducerSequencer struct {
	sequencerBase
	_           cpu.CacheLinePad
	nextValue   int64 // last claimed sequence, producer-owned
	cachedValue int64 // last observed minimum gating sequence, producer-owned
	_           cpu.CacheLinePad
}

var _ Sequencer = (*SingleProducerSequencer)(nil)

// NewSingleProducerSequencer creates a sequencer for a ring of bufferSize
// slots. bufferSize must be a power of two (1<<k). A nil waitStrategy
// defaults to a BlockingWaitStrategy.
func NewSingleProducerSequencer(bufferSize int64, waitStrategy WaitStrategy) *SingleProducerSequencer {
	return &SingleProducerSequencer{
		sequencerBase: newSequencerBase(bufferSize, waitStrategy),
		nextValue:     InitialSequenceValue,
		cachedValue:   InitialSequenceValue,
	}
}

func (s *SingleProducerSequencer) Next() int64 {
	return s.NextN(1)
}

// NextN must only be called from the producer goroutine.
func (s *SingleProducerSequencer) NextN(n int64) int64 {
	s.checkClaim(n)

	nextValue := s.nextValue
	next := nextValue + n
	wrapPoint := next - s.bufferSize
	cached := s.cachedValue

	if wrapPoint > cached || cached > nextValue {
		minSeq := minimumSequence(s.gatingSequences(), nextValue)
		if wrapPoint > minSeq {
			// ring is full: the slowest consumer has not released the slot
			atomic.AddUint64(&s.stats.capacityWaits, 1)
			b := producerBackoff()
			for wrapPoint > minSeq {
				b.wait()
				minSeq = minimumSequence(s.gatingSequences(), nextValue)
			}
		}
		s.cachedValue = minSeq
	}

	s.nextValue = next
	atomic.AddUint64(&s.stats.claims, 1)
	return next
}

func (s *SingleProducerSequencer) TryNext() (int64, error) {
	return s.TryNextN(1)
}

// TryNextN must only be called from the producer goroutine.
func (s *SingleProducerSequencer) TryNextN(n int64) (int64, error) {
	s.checkClaim(n)
	if !s.hasAvailableCapacity(n) {
		atomic.AddUint64(&s.stats.capacityWaits, 1)
		return InitialSequenceValue, ErrInsufficientCapacity
	}
	s.nextValue += n
	atomic.AddUint64(&s.stats.claims, 1)
	return s.nextValue, nil
}

func (s *SingleProducerSequencer) hasAvailableCapacity(required int64) bool {
	nextValue := s.nextValue
	wrapPoint := nextValue + required - s.bufferSize
	cached := s.cachedValue

	if wrapPoint > cached || cached > nextValue {
		minSeq := minimumSequence(s.gatingSequences(), nextValue)
		s.cachedValue = minSeq
		if wrapPoint > minSeq {
			return false
		}
	}
	return true
}

func (s *SingleProducerSequencer) Publish(sequence int64) {
	s.cursor.Set(sequence)
	atomic.AddUint64(&s.stats.published, 1)
	s.waitStrategy.SignalAllWhenBlocking()
}

func (s *SingleProducerSequencer) PublishRange(lo, hi int64) {
	s.cursor.Set(hi)
	atomic.AddUint64(&s.stats.published, uint64(hi-lo+1))
	s.waitStrategy.SignalAllWhenBlocking()
}

func (s *SingleProducerSequencer) IsAvailable(sequence int64) bool {
	current := s.cursor.Get()
	return sequence <= current && sequence > current-s.bufferSize
}

// HighestPublishedSequence returns availableSequence: a single producer
// publishes in order, so the cursor is always contiguous.
func (s *SingleProducerSequencer) HighestPublishedSequence(_, availableSequence int64) int64 {
	return availableSequence
}

func (s *SingleProducerSequencer) NewBarrier(dependencies ...*Sequence) *SequenceBarrier {
	return newSequenceBarrier(s, s.waitStrategy, s.cursor, dependencies)
}
