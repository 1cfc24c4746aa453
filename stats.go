package disruptor

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// SequencerStats is a snapshot of a Sequencer's counters.
type SequencerStats struct {
	// Claims counts successful Next/NextN/TryNext/TryNextN calls.
	Claims uint64
	// ClaimRetries counts lost compare-and-set races (multi-producer only).
	ClaimRetries uint64
	// CapacityWaits counts claims that found the ring full, whether they then
	// waited (Next) or failed (TryNext).
	CapacityWaits uint64
	// Published counts published sequences.
	Published uint64
}

// sequencerCounters sits on its own cache lines, apart from the cursor and
// gating fields that every claim reads.
type sequencerCounters struct {
	_             cpu.CacheLinePad
	claims        uint64
	claimRetries  uint64
	capacityWaits uint64
	published     uint64
	_             cpu.CacheLinePad
}

func (c *sequencerCounters) snapshot() SequencerStats {
	return SequencerStats{
		Claims:        atomic.LoadUint64(&c.claims),
		ClaimRetries:  atomic.LoadUint64(&c.claimRetries),
		CapacityWaits: atomic.LoadUint64(&c.capacityWaits),
		Published:     atomic.LoadUint64(&c.published),
	}
}
