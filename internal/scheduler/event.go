package scheduler

import "time"

// VTime is the simulator's virtual clock: time elapsed since the start of
// the simulation, as a time.Duration (one unit is one nanosecond). Using a plain duration (rather than wall-clock
// time.Time) keeps the whole run reproducible and lets it execute far
// faster than real time.
type VTime = time.Duration

// resumeSignal is delivered to a Process when the scheduler wakes it,
// whether the wait ran to completion or was cut short by Interrupt.
type resumeSignal struct {
	// interrupted is true when the suspension was cut short by Interrupt
	// rather than completing naturally.
	interrupted bool

	// elapsed is the virtual time actually spent suspended. Equal to the
	// requested duration unless interrupted is true.
	elapsed VTime
}

// event is a single entry in the scheduler's priority queue: "resume this
// process at this virtual time". Same-instant events are served in the
// order they were submitted (insertion order via seq), per the scheduler's
// ordering rule.
type event struct {
	at     VTime
	seq    uint64
	proc   *Process
	signal resumeSignal

	// cancelled marks an event as stale without needing heap surgery.
	// Interrupt and resource release both use this for lazy deletion:
	// the original timeout event is marked cancelled and a fresh one is
	// pushed with the interrupt/grant signal.
	cancelled bool
}

// eventHeap is a container/heap.Interface ordered by (at, seq).
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*event)) //nolint:forcetypeassert // container/heap contract
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
