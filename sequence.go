package disruptor

import (
	"strconv"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// InitialSequenceValue is the value of a Sequence before anything has been
// published or processed.
const InitialSequenceValue int64 = -1

// Sequence is a monotonically increasing counter, padded so that it never
// shares a cache line with another Sequence.
//
// Set is a release store and Get an acquire load: everything written to a
// slot before its sequence is Set is visible to a reader that has observed
// that value via Get.
type Sequence struct {
	_     cpu.CacheLinePad
	value atomic.Int64
	_     cpu.CacheLinePad
}

// NewSequence returns a Sequence holding InitialSequenceValue.
func NewSequence() *Sequence {
	return NewSequenceAt(InitialSequenceValue)
}

// NewSequenceAt returns a Sequence holding v.
func NewSequenceAt(v int64) *Sequence {
	s := &Sequence{}
	s.value.Store(v)
	return s
}

func (s *Sequence) Get() int64 {
	return s.value.Load()
}

func (s *Sequence) Set(v int64) {
	s.value.Store(v)
}

// CompareAndSet sets the sequence to next if it currently holds expected.
func (s *Sequence) CompareAndSet(expected, next int64) bool {
	return s.value.CompareAndSwap(expected, next)
}

func (s *Sequence) IncrementAndGet() int64 {
	return s.value.Add(1)
}

func (s *Sequence) AddAndGet(delta int64) int64 {
	return s.value.Add(delta)
}

func (s *Sequence) String() string {
	return strconv.FormatInt(s.Get(), 10)
}

// SequenceReader is anything that can report a sequence value, e.g. a single
// Sequence or the minimum over a group of them.
type SequenceReader interface {
	Get() int64
}

// sequenceGroup reads as the minimum of its members.
// INVARIANT: a sequenceGroup is never empty.
type sequenceGroup []*Sequence

func (g sequenceGroup) Get() int64 {
	minimum := g[0].Get()
	for i := 1; i < len(g); i++ {
		seq := g[i].Get()
		// branch-free min
		diff := minimum - seq
		mask := diff >> 63
		minimum = seq + (diff & mask)
	}
	return minimum
}

// minimumSequence returns the smallest of fallback and every value in
// sequences.
func minimumSequence(sequences []*Sequence, fallback int64) int64 {
	minimum := fallback
	for _, s := range sequences {
		if v := s.Get(); v < minimum {
			minimum = v
		}
	}
	return minimum
}
