package disruptor

import "fmt"

var (
	// ErrAlerted is returned by a SequenceBarrier (and the wait strategies it
	// delegates to) once the barrier has been alerted.
	ErrAlerted = fmt.Errorf("disruptor: barrier alerted")

	// ErrInsufficientCapacity is returned by non-blocking claims when the ring
	// is full relative to the slowest gating sequence.
	ErrInsufficientCapacity = fmt.Errorf("disruptor: insufficient capacity")

	ErrTimeout        = fmt.Errorf("disruptor: timeout")
	ErrAlreadyRunning = fmt.Errorf("disruptor: already running")
	ErrNotStarted     = fmt.Errorf("disruptor: executor not started")
	ErrHalted         = fmt.Errorf("disruptor: halted")
)
