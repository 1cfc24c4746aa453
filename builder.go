package disruptor

import "strconv"

// The builder is staged: each phase returns a different type, so the ring,
// wait strategy and sequencer can only be chosen once and in that order.
// Stage wiring and Build are checked at run time and panic on misuse, as
// these are configuration bugs.

// New begins a pipeline over a ring of capacity slots. Capacity must be a
// power of two (1<<k).
func New[T any](capacity int64) *DataStage[T] {
	return &DataStage[T]{ring: NewRingBuffer[T](capacity)}
}

// DataStage holds the slot storage, awaiting a wait strategy.
type DataStage[T any] struct {
	ring *RingBuffer[T]
}

func (s *DataStage[T]) WithWaitStrategy(waitStrategy WaitStrategy) *WaitStage[T] {
	if waitStrategy == nil {
		panic("disruptor: nil wait strategy")
	}
	return &WaitStage[T]{ring: s.ring, waitStrategy: waitStrategy}
}

func (s *DataStage[T]) WithBlockingWait() *WaitStage[T] {
	return s.WithWaitStrategy(NewBlockingWaitStrategy())
}

func (s *DataStage[T]) WithSpinLoopWait(options ...SpinLoopOption) *WaitStage[T] {
	return s.WithWaitStrategy(NewSpinLoopWaitStrategy(options...))
}

// WaitStage awaits the choice of sequencer.
type WaitStage[T any] struct {
	ring         *RingBuffer[T]
	waitStrategy WaitStrategy
}

// WithSingleProducer selects a sequencer for one publishing goroutine.
func (s *WaitStage[T]) WithSingleProducer() *SequencerStage[T] {
	return &SequencerStage[T]{
		ring:      s.ring,
		sequencer: NewSingleProducerSequencer(s.ring.BufferSize(), s.waitStrategy),
	}
}

// WithMultiProducer selects a sequencer for concurrent publishers.
func (s *WaitStage[T]) WithMultiProducer() *SequencerStage[T] {
	return &SequencerStage[T]{
		ring:      s.ring,
		sequencer: NewMultiProducerSequencer(s.ring.BufferSize(), s.waitStrategy),
	}
}

// ProcessorFactory creates a custom EventProcessor reading ring through
// barrier.
type ProcessorFactory[T any] func(ring *RingBuffer[T], barrier *SequenceBarrier) EventProcessor

// SequencerStage collects the consumer stages of a pipeline.
type SequencerStage[T any] struct {
	ring       *RingBuffer[T]
	sequencer  Sequencer
	processors []EventProcessor
	batch      []*BatchEventProcessor[T]
	built      bool
}

// HandleEventsWith adds one processor per handler, each gated only on the
// producer. They run in parallel and each sees every event.
func (s *SequencerStage[T]) HandleEventsWith(handlers ...EventHandler[T]) *HandlerGroup[T] {
	return s.createHandlers(nil, handlers)
}

// HandleEventsWithProcessors adds custom processors gated only on the
// producer.
func (s *SequencerStage[T]) HandleEventsWithProcessors(factories ...ProcessorFactory[T]) *HandlerGroup[T] {
	return s.createProcessors(nil, factories)
}

// After returns a group whose Then stages depend on every given group.
func (s *SequencerStage[T]) After(groups ...*HandlerGroup[T]) *HandlerGroup[T] {
	g := &HandlerGroup[T]{stage: s}
	return g.And(groups...)
}

// Build registers every stage's sequence as a gating sequence on the
// sequencer, so the producer is throttled by the slowest stage, and returns
// the Executor and the Producer. It panics if called twice.
func (s *SequencerStage[T]) Build(options ...Option) (*Executor, *Producer[T]) {
	s.checkNotBuilt()
	s.built = true

	c := resolveConfig(options)
	if c.errorHandler == nil {
		c.errorHandler = NewLoggingErrorHandler(c.logger)
	}
	for _, p := range s.batch {
		p.errorHandler = c.errorHandler
	}

	gating := make([]*Sequence, 0, len(s.processors))
	for _, p := range s.processors {
		gating = append(gating, p.Sequence())
	}
	s.sequencer.AddGatingSequences(gating...)

	return newExecutor(s.sequencer, s.processors, c), NewProducer(s.ring, s.sequencer)
}

func (s *SequencerStage[T]) checkNotBuilt() {
	if s.built {
		panic("disruptor: pipeline already built")
	}
}

func (s *SequencerStage[T]) createHandlers(dependencies []*Sequence, handlers []EventHandler[T]) *HandlerGroup[T] {
	s.checkNotBuilt()
	if len(handlers) == 0 {
		panic("disruptor: no event handlers")
	}
	g := &HandlerGroup[T]{stage: s}
	for _, h := range handlers {
		barrier := s.sequencer.NewBarrier(dependencies...)
		p := NewBatchEventProcessor(s.nextName(h), s.ring, barrier, h, nil)
		s.processors = append(s.processors, p)
		s.batch = append(s.batch, p)
		g.sequences = append(g.sequences, p.Sequence())
	}
	return g
}

func (s *SequencerStage[T]) createProcessors(dependencies []*Sequence, factories []ProcessorFactory[T]) *HandlerGroup[T] {
	s.checkNotBuilt()
	if len(factories) == 0 {
		panic("disruptor: no processor factories")
	}
	g := &HandlerGroup[T]{stage: s}
	for _, f := range factories {
		p := f(s.ring, s.sequencer.NewBarrier(dependencies...))
		s.processors = append(s.processors, p)
		g.sequences = append(g.sequences, p.Sequence())
	}
	return g
}

func (s *SequencerStage[T]) nextName(h EventHandler[T]) string {
	if n, ok := h.(interface{ Name() string }); ok && n.Name() != "" {
		return n.Name()
	}
	return "processor-" + strconv.Itoa(len(s.processors))
}

// HandlerGroup is a set of stages that later stages can depend on.
type HandlerGroup[T any] struct {
	stage     *SequencerStage[T]
	sequences []*Sequence
}

// Then adds one processor per handler, each gated on every processor in g.
func (g *HandlerGroup[T]) Then(handlers ...EventHandler[T]) *HandlerGroup[T] {
	return g.stage.createHandlers(g.sequences, handlers)
}

// ThenProcessors adds custom processors gated on every processor in g.
func (g *HandlerGroup[T]) ThenProcessors(factories ...ProcessorFactory[T]) *HandlerGroup[T] {
	return g.stage.createProcessors(g.sequences, factories)
}

// And returns a group containing the processors of g and of others, e.g. to
// join the branches of a diamond.
func (g *HandlerGroup[T]) And(others ...*HandlerGroup[T]) *HandlerGroup[T] {
	merged := &HandlerGroup[T]{
		stage:     g.stage,
		sequences: append([]*Sequence(nil), g.sequences...),
	}
	for _, o := range others {
		if o.stage != g.stage {
			panic("disruptor: handler groups belong to different pipelines")
		}
		merged.sequences = append(merged.sequences, o.sequences...)
	}
	return merged
}

// Sequences returns the processed-up-to sequences of the group's processors.
func (g *HandlerGroup[T]) Sequences() []*Sequence {
	return append([]*Sequence(nil), g.sequences...)
}

// Build builds the whole pipeline g belongs to, see SequencerStage.Build.
func (g *HandlerGroup[T]) Build(options ...Option) (*Executor, *Producer[T]) {
	return g.stage.Build(options...)
}
