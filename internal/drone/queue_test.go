package drone_test

import (
	"errors"
	"testing"

	"github.com/dantte-lp/dronesim/internal/drone"
)

func TestQueueBoundedFIFO(t *testing.T) {
	t.Parallel()

	q := drone.NewQueue(2)

	if err := q.Push(&drone.Packet{ID: 1}); err != nil {
		t.Fatalf("push 1: %v", err)
	}
	if err := q.Push(&drone.Packet{ID: 2}); err != nil {
		t.Fatalf("push 2: %v", err)
	}
	if err := q.Push(&drone.Packet{ID: 3}); !errors.Is(err, drone.ErrQueueFull) {
		t.Fatalf("push 3: got %v, want ErrQueueFull", err)
	}

	if got := q.Pop(); got == nil || got.ID != 1 {
		t.Fatalf("pop = %v, want id 1", got)
	}
	if got := q.Pop(); got == nil || got.ID != 2 {
		t.Fatalf("pop = %v, want id 2", got)
	}
	if got := q.Pop(); got != nil {
		t.Fatalf("pop on empty queue = %v, want nil", got)
	}
}

func TestWaitingListSweepExpiresPastDeadline(t *testing.T) {
	t.Parallel()

	w := drone.NewWaitingList()
	w.Add(&drone.Packet{ID: 1, CreatedAt: 0}, 100)
	w.Add(&drone.Packet{ID: 2, CreatedAt: 0}, 200)

	live, expired := w.Sweep(150)
	if len(live) != 1 || live[0].ID != 2 {
		t.Fatalf("live = %v, want [id 2]", live)
	}
	if len(expired) != 1 || expired[0].ID != 1 {
		t.Fatalf("expired = %v, want [id 1]", expired)
	}
	if w.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", w.Len())
	}

	// A second sweep at the same time is idempotent: nothing new expires.
	live2, expired2 := w.Sweep(150)
	if len(live2) != 1 || len(expired2) != 0 {
		t.Fatalf("second sweep live=%v expired=%v, want live len 1, expired len 0", live2, expired2)
	}
}

func TestIDAllocatorMonotonic(t *testing.T) {
	t.Parallel()

	a := drone.NewIDAllocator()
	first := a.Allocate()
	second := a.Allocate()
	if second <= first {
		t.Fatalf("ids not strictly increasing: %d, %d", first, second)
	}
}
