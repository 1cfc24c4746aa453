// Package disruptor implements a bounded, pre-allocated ring buffer for
// passing events between goroutines, in the style of the LMAX Disruptor.
//
// A producer claims a sequence from a Sequencer, writes the slot at
// sequence&(capacity-1) and publishes it. Each consumer stage runs a
// BatchEventProcessor which discovers newly published sequences through a
// SequenceBarrier, hands them to an EventHandler in order, and advances its
// own Sequence. Those sequences gate the producer, so the ring never
// overwrites a slot that the slowest stage has not consumed.
//
// Every stage observes every published event exactly once, in sequence order.
// Stages may depend on other stages, forming a pipeline or a diamond.
//
// The usual entry point is the staged builder:
//
//	exec, producer := disruptor.New[Order](1024).
//		WithBlockingWait().
//		WithSingleProducer().
//		HandleEventsWith(journal, replicate).
//		Then(matcher).
//		Build()
//
//	if err := exec.Start(); err != nil {
//		panic(err)
//	}
//	producer.Publish(Order{ID: 1})
//	_ = exec.Shutdown(ctx)
package disruptor
