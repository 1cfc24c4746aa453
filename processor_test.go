package disruptor

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processorFixture[T any] struct {
	ring      *RingBuffer[T]
	sequencer *SingleProducerSequencer
	producer  *Producer[T]
	processor *BatchEventProcessor[T]
}

func newProcessorFixture[T any](capacity int64, handler EventHandler[T], errorHandler ErrorHandler) *processorFixture[T] {
	ring := NewRingBuffer[T](capacity)
	s := NewSingleProducerSequencer(capacity, NewSpinLoopWaitStrategy())
	p := NewBatchEventProcessor("test", ring, s.NewBarrier(), handler, errorHandler)
	s.AddGatingSequences(p.Sequence())
	return &processorFixture[T]{
		ring:      ring,
		sequencer: s,
		producer:  NewProducer(ring, s),
		processor: p,
	}
}

// run starts the processor and returns a channel receiving Run's result.
func (f *processorFixture[T]) run(t *testing.T) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		done <- f.processor.Run()
	}()
	t.Cleanup(func() {
		f.processor.Halt()
		select {
		case <-exited:
		case <-time.After(5 * time.Second):
		}
	})
	return done
}

func haltAndWait(t *testing.T, p EventProcessor, done <-chan error) error {
	t.Helper()
	p.Halt()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("processor did not halt")
		return nil
	}
}

func TestProcessorDeliversBatchInOrder(t *testing.T) {
	var rec recorder[int]
	f := newProcessorFixture[int](8, &rec, nil)

	f.producer.Publish(10)
	f.producer.Publish(20)
	f.producer.Publish(30)

	done := f.run(t)
	waitForSequence(t, f.processor.Sequence(), 2)
	require.NoError(t, haltAndWait(t, f.processor, done))

	assert.Equal(t, []recorded[int]{
		{10, 0, false},
		{20, 1, false},
		{30, 2, true},
	}, rec.snapshot())
	assert.Equal(t, int64(2), f.processor.Sequence().Get())
}

func TestProcessorKeepsUpWithProducer(t *testing.T) {
	const N = 10_000
	var rec recorder[int]
	f := newProcessorFixture[int](64, &rec, nil)
	done := f.run(t)

	for i := range N {
		f.producer.Publish(i)
	}
	waitForSequence(t, f.processor.Sequence(), N-1)
	require.NoError(t, haltAndWait(t, f.processor, done))

	events := rec.snapshot()
	require.Len(t, events, N)
	for i, e := range events {
		require.Equal(t, i, e.value)
		require.Equal(t, int64(i), e.sequence)
	}
	// the last event handed over is always the end of a batch
	assert.True(t, events[N-1].endOfBatch)
}

func TestProcessorErrorContinues(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")
	var seen []int64
	handler := EventHandlerFunc[int](func(_ *int, sequence int64, _ bool) error {
		seen = append(seen, sequence)
		if sequence == 1 {
			return boom
		}
		return nil
	})
	f := newProcessorFixture[int](8, handler, NewLoggingErrorHandler(NewLogger(&buf, logiface.LevelDebug)))

	f.producer.PublishBatch(1, 2, 3)
	done := f.run(t)
	waitForSequence(t, f.processor.Sequence(), 2)
	require.NoError(t, haltAndWait(t, f.processor, done))

	assert.Equal(t, []int64{0, 1, 2}, seen)
	assert.Contains(t, buf.String(), "event handler failed, skipping event")
	assert.Contains(t, buf.String(), `"sequence":"1"`)
	assert.Contains(t, buf.String(), `"processor":"test"`)
	assert.Contains(t, buf.String(), "boom")
}

func TestProcessorErrorHalts(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	handler := EventHandlerFunc[int](func(_ *int, sequence int64, _ bool) error {
		calls.Add(1)
		if sequence == 1 {
			return boom
		}
		return nil
	})
	f := newProcessorFixture[int](8, handler, NewHaltingErrorHandler(nil))

	f.producer.PublishBatch(1, 2, 3)
	done := f.run(t)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrHalted), "got %v", err)
		assert.True(t, errors.Is(err, boom), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("processor did not halt on error")
	}

	assert.Equal(t, int32(2), calls.Load())
	// only the event before the failure counts as processed
	assert.Equal(t, int64(0), f.processor.Sequence().Get())
	assert.False(t, f.processor.IsRunning())
}

func TestProcessorCustomErrorHandler(t *testing.T) {
	type failure struct {
		processor string
		sequence  int64
	}
	var failures []failure
	errorHandler := ErrorHandlerFunc(func(processor string, sequence int64, err error) error {
		failures = append(failures, failure{processor, sequence})
		return nil
	})
	handler := EventHandlerFunc[int](func(v *int, _ int64, _ bool) error {
		if *v < 0 {
			return errors.New("negative")
		}
		return nil
	})
	f := newProcessorFixture[int](8, handler, errorHandler)

	f.producer.PublishBatch(1, -1, 2, -2)
	done := f.run(t)
	waitForSequence(t, f.processor.Sequence(), 3)
	require.NoError(t, haltAndWait(t, f.processor, done))

	assert.Equal(t, []failure{{"test", 1}, {"test", 3}}, failures)
}

type lifecycleHandler struct {
	recorder[int]
	started, stopped atomic.Int32
}

func (h *lifecycleHandler) OnStart()    { h.started.Add(1) }
func (h *lifecycleHandler) OnShutdown() { h.stopped.Add(1) }

func TestProcessorLifecycle(t *testing.T) {
	var h lifecycleHandler
	f := newProcessorFixture[int](8, &h, nil)

	done := f.run(t)
	require.Eventually(t, func() bool { return h.started.Load() == 1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, int32(0), h.stopped.Load())

	f.producer.Publish(7)
	waitForSequence(t, f.processor.Sequence(), 0)
	require.NoError(t, haltAndWait(t, f.processor, done))

	assert.Equal(t, int32(1), h.started.Load())
	assert.Equal(t, int32(1), h.stopped.Load())
	assert.Equal(t, 1, h.len())
}

func TestProcessorRunTwice(t *testing.T) {
	var rec recorder[int]
	f := newProcessorFixture[int](8, &rec, nil)

	done := f.run(t)
	require.Eventually(t, f.processor.IsRunning, 5*time.Second, time.Millisecond)
	assert.ErrorIs(t, f.processor.Run(), ErrAlreadyRunning)
	require.NoError(t, haltAndWait(t, f.processor, done))
	assert.False(t, f.processor.IsRunning())
}

func TestProcessorHaltBeforeRun(t *testing.T) {
	var rec recorder[int]
	f := newProcessorFixture[int](8, &rec, nil)

	f.processor.Halt()
	require.NoError(t, f.processor.Run())
	assert.False(t, f.processor.IsRunning())

	// the processor can still be started afterwards
	f.producer.Publish(1)
	done := f.run(t)
	waitForSequence(t, f.processor.Sequence(), 0)
	require.NoError(t, haltAndWait(t, f.processor, done))
	assert.Equal(t, 1, rec.len())
}

// An alert that is not a halt must not stop the processor.
func TestProcessorSurvivesSpuriousAlert(t *testing.T) {
	var rec recorder[int]
	f := newProcessorFixture[int](8, &rec, nil)

	done := f.run(t)
	require.Eventually(t, f.processor.IsRunning, 5*time.Second, time.Millisecond)
	f.processor.barrier.Alert()

	f.producer.Publish(42)
	waitForSequence(t, f.processor.Sequence(), 0)
	assert.True(t, f.processor.IsRunning())
	require.NoError(t, haltAndWait(t, f.processor, done))
	assert.Equal(t, 42, rec.snapshot()[0].value)
}

func TestProcessorGatesProducer(t *testing.T) {
	release := make(chan struct{})
	handler := EventHandlerFunc[int](func(_ *int, sequence int64, _ bool) error {
		if sequence == 0 {
			<-release
		}
		return nil
	})
	f := newProcessorFixture[int](4, handler, nil)
	done := f.run(t)

	f.producer.PublishBatch(0, 1, 2, 3)
	_, err := f.producer.TryPublish(4)
	assert.ErrorIs(t, err, ErrInsufficientCapacity)

	close(release)
	waitForSequence(t, f.processor.Sequence(), 3)
	seq, err := f.producer.TryPublish(4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), seq)

	waitForSequence(t, f.processor.Sequence(), 4)
	require.NoError(t, haltAndWait(t, f.processor, done))
}
