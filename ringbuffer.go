package disruptor

import "golang.org/x/sys/cpu"

// RingBuffer is the fixed-capacity slot storage shared by a Producer and every
// EventProcessor reading from it.
//
// It performs no synchronisation of its own. A slot may only be written by
// the goroutine holding its claimed-but-unpublished sequence, and only read
// after that sequence has been observed through a SequenceBarrier.
type RingBuffer[T any] struct {
	_        cpu.CacheLinePad
	mask     int64
	capacity int64
	slots    []T
	_        cpu.CacheLinePad
}

// NewRingBuffer allocates capacity zero-valued slots.
// Capacity must be a power of two (1<<k).
func NewRingBuffer[T any](capacity int64) *RingBuffer[T] {
	if capacity <= 0 || (capacity&(capacity-1)) != 0 {
		panic("disruptor: capacity must be power of 2 and > 0")
	}
	return &RingBuffer[T]{
		mask:     capacity - 1,
		capacity: capacity,
		slots:    make([]T, capacity),
	}
}

// BufferSize returns the fixed ring capacity.
func (r *RingBuffer[T]) BufferSize() int64 {
	return r.capacity
}

// Get returns the slot for sequence. The same pointer is returned for every
// sequence congruent modulo the capacity.
func (r *RingBuffer[T]) Get(sequence int64) *T {
	return &r.slots[sequence&r.mask]
}
