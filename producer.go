package disruptor

import (
	"context"
	"fmt"
)

// Producer is the write side of a ring: it claims a sequence, writes the slot
// and publishes it.
//
// With a SingleProducerSequencer it must only be used from one goroutine at a
// time; with a MultiProducerSequencer it may be used from any number.
type Producer[T any] struct {
	ring      *RingBuffer[T]
	sequencer Sequencer
}

func NewProducer[T any](ring *RingBuffer[T], sequencer Sequencer) *Producer[T] {
	if ring.BufferSize() != sequencer.BufferSize() {
		panic("disruptor: ring and sequencer sizes differ")
	}
	return &Producer[T]{ring: ring, sequencer: sequencer}
}

func (p *Producer[T]) RingBuffer() *RingBuffer[T] {
	return p.ring
}

func (p *Producer[T]) Sequencer() Sequencer {
	return p.sequencer
}

// Publish copies v into the next slot, waiting while the ring is full, and
// returns its sequence.
func (p *Producer[T]) Publish(v T) int64 {
	seq := p.sequencer.Next()
	*p.ring.Get(seq) = v
	p.sequencer.Publish(seq)
	return seq
}

// PublishWith lets fn fill the next slot in place, avoiding a copy. fn must
// not retain the slot pointer.
func (p *Producer[T]) PublishWith(fn func(slot *T, sequence int64)) int64 {
	seq := p.sequencer.Next()
	fn(p.ring.Get(seq), seq)
	p.sequencer.Publish(seq)
	return seq
}

// PublishBatch publishes values with one claim per ring-sized chunk, and
// returns the sequence of the last value, or InitialSequenceValue if values
// is empty.
func (p *Producer[T]) PublishBatch(values ...T) int64 {
	last := InitialSequenceValue
	size := p.ring.BufferSize()
	for len(values) > 0 {
		n := min(int64(len(values)), size)
		hi := p.sequencer.NextN(n)
		lo := hi - n + 1
		for i := int64(0); i < n; i++ {
			*p.ring.Get(lo + i) = values[i]
		}
		p.sequencer.PublishRange(lo, hi)
		values = values[n:]
		last = hi
	}
	return last
}

// TryPublish is Publish without waiting: it fails with
// ErrInsufficientCapacity if the ring is full.
func (p *Producer[T]) TryPublish(v T) (int64, error) {
	seq, err := p.sequencer.TryNext()
	if err != nil {
		return InitialSequenceValue, err
	}
	*p.ring.Get(seq) = v
	p.sequencer.Publish(seq)
	return seq, nil
}

// PublishContext is Publish that gives up once ctx is done, returning an
// error matching both ErrTimeout and ctx.Err().
func (p *Producer[T]) PublishContext(ctx context.Context, v T) (int64, error) {
	b := producerBackoff()
	for {
		seq, err := p.TryPublish(v)
		if err == nil {
			return seq, nil
		}
		select {
		case <-ctx.Done():
			return InitialSequenceValue, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		default:
		}
		b.wait()
	}
}
