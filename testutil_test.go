package disruptor

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorded[T any] struct {
	value      T
	sequence   int64
	endOfBatch bool
}

// recorder is an EventHandler remembering everything it was handed.
type recorder[T any] struct {
	mu     sync.Mutex
	events []recorded[T]
}

func (r *recorder[T]) OnEvent(event *T, sequence int64, endOfBatch bool) error {
	r.mu.Lock()
	r.events = append(r.events, recorded[T]{*event, sequence, endOfBatch})
	r.mu.Unlock()
	return nil
}

func (r *recorder[T]) snapshot() []recorded[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded[T](nil), r.events...)
}

func (r *recorder[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// neverAlerted never abandons a wait.
type neverAlerted struct{}

func (neverAlerted) CheckAlert() error { return nil }

func waitForSequence(t testing.TB, s *Sequence, want int64) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Get() >= want }, 10*time.Second, time.Millisecond,
		"sequence stuck at %d, want %d", s.Get(), want)
}

func startExecutor(t testing.TB, e *Executor) {
	t.Helper()
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Halt() })
}

// syncBuffer is a bytes.Buffer safe for loggers on many goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
