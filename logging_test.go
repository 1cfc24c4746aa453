package disruptor

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, logiface.LevelInformational)

	logger.Info().Str("stage", "journal").Log("hello")
	logger.Debug().Log("filtered")

	out := buf.String()
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"stage":"journal"`)
	assert.NotContains(t, out, "filtered")
}

// captureDefaultOutput redirects the default error log for the test.
func captureDefaultOutput(t *testing.T) *syncBuffer {
	t.Helper()
	var buf syncBuffer
	old := defaultOutput
	defaultOutput = &buf
	t.Cleanup(func() { defaultOutput = old })
	return &buf
}

func TestNilLoggerDiscards(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Err().Err(errors.New("boom")).Log("dropped")
	})
}

func TestErrorHandlersDefaultToStderr(t *testing.T) {
	buf := captureDefaultOutput(t)

	require.NoError(t, NewLoggingErrorHandler(nil).HandleEventError("journal", 1, errors.New("disk full")))
	assert.Error(t, NewHaltingErrorHandler(nil).HandleEventError("matcher", 2, errors.New("bad event")))

	out := buf.String()
	assert.Contains(t, out, `"err":"disk full"`)
	assert.Contains(t, out, `"err":"bad event"`)
	assert.Contains(t, out, `"processor":"matcher"`)
}

func TestLoggingErrorHandlerRateLimited(t *testing.T) {
	var buf bytes.Buffer
	h := NewLoggingErrorHandler(NewLogger(&buf, logiface.LevelDebug))

	for i := range 50 {
		require.NoError(t, h.HandleEventError("journal", int64(i), errors.New("disk full")))
	}
	// another processor has its own budget
	require.NoError(t, h.HandleEventError("replicate", 0, errors.New("timeout")))

	out := buf.String()
	journal := strings.Count(out, `"processor":"journal"`)
	assert.Positive(t, journal)
	assert.LessOrEqual(t, journal, errorLogRates[time.Second])
	assert.Equal(t, 1, strings.Count(out, `"processor":"replicate"`))
	assert.Contains(t, out, `"err":"disk full"`)
}

func TestHaltingErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewHaltingErrorHandler(NewLogger(&buf, logiface.LevelDebug))
	cause := errors.New("bad event")

	err := h.HandleEventError("matcher", 7, cause)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHalted)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "disruptor: halted: matcher at sequence 7: bad event", err.Error())
	assert.Contains(t, buf.String(), "event handler failed, halting processor")
}
