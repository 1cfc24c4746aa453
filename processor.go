package disruptor

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// EventHandler is supplied by the application and called for every event a
// stage processes, in sequence order. endOfBatch is true for the last
// sequence available when the batch was fetched.
type EventHandler[T any] interface {
	OnEvent(event *T, sequence int64, endOfBatch bool) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc[T any] func(event *T, sequence int64, endOfBatch bool) error

func (f EventHandlerFunc[T]) OnEvent(event *T, sequence int64, endOfBatch bool) error {
	return f(event, sequence, endOfBatch)
}

// LifecycleAware handlers are notified on the processor's goroutine before
// the first event and after the last.
type LifecycleAware interface {
	OnStart()
	OnShutdown()
}

// EventProcessor is a consumer run-loop owned by an Executor.
type EventProcessor interface {
	// Run processes events until halted. It returns ErrAlreadyRunning if
	// called while running, and the ErrorHandler's error if that halted it.
	Run() error
	// Halt asks Run to return once its current batch is complete.
	Halt()
	IsRunning() bool
	// Sequence is the processed-up-to marker, gating upstream producers and
	// any dependent stage.
	Sequence() *Sequence
}

const (
	processorIdle int32 = iota
	processorRunning
	processorHalted
)

// BatchEventProcessor pulls batches of available sequences from its barrier
// and advances its Sequence once per batch.
type BatchEventProcessor[T any] struct {
	name         string
	ring         *RingBuffer[T]
	barrier      *SequenceBarrier
	handler      EventHandler[T]
	errorHandler ErrorHandler
	sequence     *Sequence
	running      atomic.Int32
}

var _ EventProcessor = (*BatchEventProcessor[struct{}])(nil)

// NewBatchEventProcessor creates a processor reading ring through barrier.
// A nil errorHandler defaults to a LoggingErrorHandler writing to stderr.
func NewBatchEventProcessor[T any](name string, ring *RingBuffer[T], barrier *SequenceBarrier, handler EventHandler[T], errorHandler ErrorHandler) *BatchEventProcessor[T] {
	if errorHandler == nil {
		errorHandler = NewLoggingErrorHandler(nil)
	}
	return &BatchEventProcessor[T]{
		name:         name,
		ring:         ring,
		barrier:      barrier,
		handler:      handler,
		errorHandler: errorHandler,
		sequence:     NewSequence(),
	}
}

func (p *BatchEventProcessor[T]) Name() string {
	return p.name
}

func (p *BatchEventProcessor[T]) Sequence() *Sequence {
	return p.sequence
}

func (p *BatchEventProcessor[T]) IsRunning() bool {
	return p.running.Load() == processorRunning
}

func (p *BatchEventProcessor[T]) Halt() {
	p.running.Store(processorHalted)
	p.barrier.Alert()
}

func (p *BatchEventProcessor[T]) Run() error {
	if !p.running.CompareAndSwap(processorIdle, processorRunning) {
		if p.running.Load() == processorRunning {
			return ErrAlreadyRunning
		}
		// halted before it started
		p.running.Store(processorIdle)
		return nil
	}
	defer p.running.Store(processorIdle)

	p.barrier.ClearAlert()
	// a Halt between the state change and ClearAlert must not be lost
	if p.running.Load() != processorRunning {
		return nil
	}

	if l, ok := p.handler.(LifecycleAware); ok {
		l.OnStart()
		defer l.OnShutdown()
	}

	return p.processEvents()
}

func (p *BatchEventProcessor[T]) processEvents() error {
	next := p.sequence.Get() + 1
	for {
		available, err := p.barrier.WaitFor(next)
		if err != nil {
			if !errors.Is(err, ErrAlerted) {
				return fmt.Errorf("disruptor: %s: wait for %d: %w", p.name, next, err)
			}
			if p.running.Load() != processorRunning {
				return nil
			}
			// alerted without a halt
			p.barrier.ClearAlert()
			continue
		}
		if available < next {
			continue
		}

		for ; next <= available; next++ {
			if err := p.handler.OnEvent(p.ring.Get(next), next, next == available); err != nil {
				if err := p.errorHandler.HandleEventError(p.name, next, err); err != nil {
					p.advance(next - 1)
					return err
				}
			}
		}
		p.advance(available)
	}
}

// advance publishes progress once per batch and wakes anything blocked on it.
func (p *BatchEventProcessor[T]) advance(sequence int64) {
	p.sequence.Set(sequence)
	p.barrier.waitStrategy.SignalAllWhenBlocking()
}
