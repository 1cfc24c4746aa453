package disruptor

import (
	"runtime"
	"sync/atomic"
)

// MultiProducerSequencer is a Sequencer that any number of goroutines may
// claim from and publish to concurrently.
//
// Claims advance the cursor with a compare-and-set loop, re-checking the
// gating sequences on every attempt. Because claims may be published out of
// order, Publish records each sequence in a per-slot availability array, and
// consumers find the contiguous published prefix with
// HighestPublishedSequence.
type MultiProducerSequencer struct {
	sequencerBase
	gatingCache *Sequence
	mask        int64
	// available[i] holds the sequence most recently published into slot i
	available []atomic.Int64
}

var _ Sequencer = (*MultiProducerSequencer)(nil)

// NewMultiProducerSequencer creates a sequencer for a ring of bufferSize
// slots. bufferSize must be a power of two (1<<k). A nil waitStrategy
// defaults to a BlockingWaitStrategy.
func NewMultiProducerSequencer(bufferSize int64, waitStrategy WaitStrategy) *MultiProducerSequencer {
	s := &MultiProducerSequencer{
		sequencerBase: newSequencerBase(bufferSize, waitStrategy),
		gatingCache:   NewSequence(),
		mask:          bufferSize - 1,
		available:     make([]atomic.Int64, bufferSize),
	}
	for i := range s.available {
		// nothing published in any slot yet
		s.available[i].Store(InitialSequenceValue)
	}
	return s
}

func (s *MultiProducerSequencer) Next() int64 {
	return s.NextN(1)
}

// NextN is safe to call concurrently from many producer goroutines.
func (s *MultiProducerSequencer) NextN(n int64) int64 {
	s.checkClaim(n)

	var (
		spins  uint32
		waited bool
		b      = producerBackoff()
	)
	for {
		current := s.cursor.Get()
		next := current + n
		wrapPoint := next - s.bufferSize
		cachedGating := s.gatingCache.Get()

		if wrapPoint > cachedGating || cachedGating > current {
			gating := minimumSequence(s.gatingSequences(), current)
			if wrapPoint > gating {
				// ring is full, wait for the slowest consumer
				if !waited {
					waited = true
					atomic.AddUint64(&s.stats.capacityWaits, 1)
				}
				b.wait()
				continue
			}
			s.gatingCache.Set(gating)
		} else if s.cursor.CompareAndSet(current, next) {
			// we won the range (current, next]
			atomic.AddUint64(&s.stats.claims, 1)
			return next
		} else {
			// contention, retry
			atomic.AddUint64(&s.stats.claimRetries, 1)
			spins++
			if spins%goschedEvery == 0 {
				runtime.Gosched()
			}
		}
	}
}

func (s *MultiProducerSequencer) TryNext() (int64, error) {
	return s.TryNextN(1)
}

func (s *MultiProducerSequencer) TryNextN(n int64) (int64, error) {
	s.checkClaim(n)

	var spins uint32
	for {
		current := s.cursor.Get()
		next := current + n
		if !s.hasAvailableCapacity(n, current) {
			atomic.AddUint64(&s.stats.capacityWaits, 1)
			return InitialSequenceValue, ErrInsufficientCapacity
		}
		if s.cursor.CompareAndSet(current, next) {
			atomic.AddUint64(&s.stats.claims, 1)
			return next, nil
		}
		atomic.AddUint64(&s.stats.claimRetries, 1)
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

func (s *MultiProducerSequencer) hasAvailableCapacity(required, cursorValue int64) bool {
	wrapPoint := cursorValue + required - s.bufferSize
	cachedGating := s.gatingCache.Get()

	if wrapPoint > cachedGating || cachedGating > cursorValue {
		minSeq := minimumSequence(s.gatingSequences(), cursorValue)
		s.gatingCache.Set(minSeq)
		if wrapPoint > minSeq {
			return false
		}
	}
	return true
}

// Publish marks sequence available. The slot must have been fully written
// before the call.
func (s *MultiProducerSequencer) Publish(sequence int64) {
	s.available[sequence&s.mask].Store(sequence)
	atomic.AddUint64(&s.stats.published, 1)
	s.waitStrategy.SignalAllWhenBlocking()
}

func (s *MultiProducerSequencer) PublishRange(lo, hi int64) {
	for seq := lo; seq <= hi; seq++ {
		s.available[seq&s.mask].Store(seq)
	}
	atomic.AddUint64(&s.stats.published, uint64(hi-lo+1))
	s.waitStrategy.SignalAllWhenBlocking()
}

func (s *MultiProducerSequencer) IsAvailable(sequence int64) bool {
	return s.available[sequence&s.mask].Load() == sequence
}

// HighestPublishedSequence scans the availability array from lowerBound. It is
// O(1) amortised when producers complete roughly in claim order.
func (s *MultiProducerSequencer) HighestPublishedSequence(lowerBound, availableSequence int64) int64 {
	for seq := lowerBound; seq <= availableSequence; seq++ {
		if !s.IsAvailable(seq) {
			return seq - 1
		}
	}
	return availableSequence
}

func (s *MultiProducerSequencer) NewBarrier(dependencies ...*Sequence) *SequenceBarrier {
	return newSequenceBarrier(s, s.waitStrategy, s.cursor, dependencies)
}
