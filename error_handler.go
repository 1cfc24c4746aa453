package disruptor

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
)

// ErrorHandler decides what happens when an EventHandler fails.
type ErrorHandler interface {
	// HandleEventError is called with the failing processor's name, the
	// sequence of the event and the handler's error. Returning nil counts the
	// event as processed and carries on; returning an error halts the
	// processor, which then reports that error from Run.
	HandleEventError(processor string, sequence int64, err error) error
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(processor string, sequence int64, err error) error

func (f ErrorHandlerFunc) HandleEventError(processor string, sequence int64, err error) error {
	return f(processor, sequence, err)
}

// default rate for handler error logs, per processor
var errorLogRates = map[time.Duration]int{
	time.Second: 10,
	time.Minute: 100,
}

// LoggingErrorHandler logs handler errors and continues. This is the default.
// Logs are rate limited per processor, so a handler failing on every event
// cannot flood the output.
type LoggingErrorHandler struct {
	logger  *Logger
	limiter *catrate.Limiter
}

var _ ErrorHandler = (*LoggingErrorHandler)(nil)

// NewLoggingErrorHandler logs to logger, or to stderr if logger is nil.
func NewLoggingErrorHandler(logger *Logger) *LoggingErrorHandler {
	if logger == nil {
		logger = defaultLogger()
	}
	return &LoggingErrorHandler{
		logger:  logger,
		limiter: catrate.NewLimiter(errorLogRates),
	}
}

func (h *LoggingErrorHandler) HandleEventError(processor string, sequence int64, err error) error {
	if _, ok := h.limiter.Allow(processor); ok {
		h.logger.Err().
			Err(err).
			Str("processor", processor).
			Int64("sequence", sequence).
			Log("event handler failed, skipping event")
	}
	return nil
}

// HaltingErrorHandler halts the processor on the first handler error.
type HaltingErrorHandler struct {
	logger *Logger
}

var _ ErrorHandler = (*HaltingErrorHandler)(nil)

// NewHaltingErrorHandler logs to logger, or to stderr if logger is nil.
func NewHaltingErrorHandler(logger *Logger) *HaltingErrorHandler {
	if logger == nil {
		logger = defaultLogger()
	}
	return &HaltingErrorHandler{logger: logger}
}

func (h *HaltingErrorHandler) HandleEventError(processor string, sequence int64, err error) error {
	h.logger.Err().
		Err(err).
		Str("processor", processor).
		Int64("sequence", sequence).
		Log("event handler failed, halting processor")
	return fmt.Errorf("%w: %s at sequence %d: %w", ErrHalted, processor, sequence, err)
}
