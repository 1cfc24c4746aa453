package disruptor

// ExecutorKind selects how an Executor runs its processors.
type ExecutorKind int

const (
	// ThreadPerProcessor runs each processor on its own goroutine, locked to
	// its own OS thread for the processor's lifetime.
	ThreadPerProcessor ExecutorKind = iota
	// GoroutinePerProcessor leaves scheduling to the Go runtime.
	GoroutinePerProcessor
)

func (k ExecutorKind) String() string {
	switch k {
	case ThreadPerProcessor:
		return "thread-per-processor"
	case GoroutinePerProcessor:
		return "goroutine-per-processor"
	default:
		return "unknown"
	}
}

type config struct {
	logger       *Logger
	errorHandler ErrorHandler
	kind         ExecutorKind
	cpus         []int
}

// Option configures Build and NewExecutor.
type Option func(c *config)

func resolveConfig(options []Option) config {
	var c config
	for _, o := range options {
		o(&c)
	}
	if c.logger == nil {
		c.logger = defaultLogger()
	}
	return c
}

// WithLogger sets the logger for lifecycle events and handler errors. The
// default logs errors to stderr.
func WithLogger(logger *Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithErrorHandler sets the ErrorHandler given to every processor created by
// Build. The default is a LoggingErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) {
		c.errorHandler = h
	}
}

// WithExecutorKind selects the Executor's threading model. The default is
// ThreadPerProcessor.
func WithExecutorKind(kind ExecutorKind) Option {
	return func(c *config) {
		c.kind = kind
	}
}

// WithCPUAffinity pins processor i to cpus[i%len(cpus)]. It only applies to
// ThreadPerProcessor, and only on linux; elsewhere it is ignored.
func WithCPUAffinity(cpus ...int) Option {
	return func(c *config) {
		c.cpus = append([]int(nil), cpus...)
	}
}
