package disruptor

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger accepted throughout this package. Calling a
// nil *Logger is valid and discards everything, but constructors given a nil
// *Logger log errors to stderr instead.
type Logger = logiface.Logger[logiface.Event]

// defaultOutput receives error logs when no logger is configured.
var defaultOutput io.Writer = os.Stderr

// defaultLogger writes errors and above to defaultOutput as JSON.
func defaultLogger() *Logger {
	return NewLogger(defaultOutput, logiface.LevelError)
}

// NewLogger returns a JSON logger writing to w, enabled at level and above.
func NewLogger(w io.Writer, level logiface.Level) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}
