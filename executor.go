package disruptor

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	executorIdle int32 = iota
	executorStarted
)

// Executor owns the processors of a pipeline and runs each of them on its own
// goroutine (by default locked to its own OS thread).
type Executor struct {
	sequencer  Sequencer
	processors []EventProcessor
	logger     *Logger
	kind       ExecutorKind
	cpus       []int

	state atomic.Int32
	done  chan struct{}
	err   error // written before done is closed
}

// NewExecutor creates an Executor for processors, all reading from rings
// published through sequencer. The WithLogger, WithExecutorKind and
// WithCPUAffinity options apply.
func NewExecutor(sequencer Sequencer, processors []EventProcessor, options ...Option) *Executor {
	return newExecutor(sequencer, processors, resolveConfig(options))
}

func newExecutor(sequencer Sequencer, processors []EventProcessor, c config) *Executor {
	return &Executor{
		sequencer:  sequencer,
		processors: append([]EventProcessor(nil), processors...),
		logger:     c.logger,
		kind:       c.kind,
		cpus:       c.cpus,
		done:       make(chan struct{}),
	}
}

func (e *Executor) Processors() []EventProcessor {
	return append([]EventProcessor(nil), e.processors...)
}

// Start launches every processor. An Executor can only be started once.
func (e *Executor) Start() error {
	if !e.state.CompareAndSwap(executorIdle, executorStarted) {
		return ErrAlreadyRunning
	}

	var g errgroup.Group
	for i, p := range e.processors {
		g.Go(func() error {
			return e.run(i, p)
		})
	}
	go func() {
		e.err = g.Wait()
		close(e.done)
	}()

	e.logger.Info().
		Int("processors", len(e.processors)).
		Stringer("kind", e.kind).
		Log("executor started")
	return nil
}

func (e *Executor) run(i int, p EventProcessor) error {
	name := processorName(i, p)
	if e.kind == ThreadPerProcessor {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if len(e.cpus) > 0 {
			cpu := e.cpus[i%len(e.cpus)]
			if err := setAffinity(cpu); err != nil {
				e.logger.Warning().
					Err(err).
					Str("processor", name).
					Int("cpu", cpu).
					Log("failed to pin processor thread")
			}
		}
	}

	e.logger.Debug().Str("processor", name).Log("processor started")
	err := p.Run()
	if err != nil {
		e.logger.Err().
			Err(err).
			Str("processor", name).
			Int64("sequence", p.Sequence().Get()).
			Log("processor stopped with error")
		return err
	}
	e.logger.Debug().
		Str("processor", name).
		Int64("sequence", p.Sequence().Get()).
		Log("processor stopped")
	return nil
}

// Halt stops every processor once its current batch is done, without
// draining, waits for them to exit, and returns the first processor error.
func (e *Executor) Halt() error {
	if e.state.Load() != executorStarted {
		return ErrNotStarted
	}
	for _, p := range e.processors {
		p.Halt()
	}
	<-e.done
	e.logger.Info().Log("executor halted")
	return e.err
}

// Shutdown waits until every processor has consumed everything claimed from
// the sequencer, then halts. Producers must have stopped publishing. If ctx
// is done first the processors keep running and an error matching both
// ErrTimeout and ctx.Err() is returned.
func (e *Executor) Shutdown(ctx context.Context) error {
	if e.state.Load() != executorStarted {
		return ErrNotStarted
	}
	b := backoff{
		yieldEvery: goschedEvery,
		spinBudget: 1 << 10,
		maxSleep:   time.Millisecond,
	}
	for !e.drained() {
		select {
		case <-ctx.Done():
			e.logger.Warning().
				Int64("cursor", e.sequencer.Cursor()).
				Log("executor shutdown timed out before draining")
			return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		case <-e.done:
			// every processor already exited
			return e.err
		default:
		}
		b.wait()
	}
	return e.Halt()
}

func (e *Executor) drained() bool {
	cursor := e.sequencer.Cursor()
	for _, p := range e.processors {
		if p.Sequence().Get() < cursor {
			return false
		}
	}
	return true
}

// Wait blocks until every processor has exited, returning the first
// processor error.
func (e *Executor) Wait() error {
	if e.state.Load() != executorStarted {
		return ErrNotStarted
	}
	<-e.done
	return e.err
}

func processorName(i int, p EventProcessor) string {
	if n, ok := p.(interface{ Name() string }); ok && n.Name() != "" {
		return n.Name()
	}
	return "processor-" + strconv.Itoa(i)
}
