package scheduler_test

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dantte-lp/dronesim/internal/scheduler"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestOrderingFIFOOnTies verifies that events scheduled at the same
// virtual time run in submission order (spec.md section 4.1 ordering rule).
func TestOrderingFIFOOnTies(t *testing.T) {
	t.Parallel()

	sch := scheduler.New(nil)
	var order []int

	for i := range 5 {
		i := i
		sch.Spawn("p", func(p *scheduler.Process) {
			p.Timeout(10 * time.Millisecond)
			order = append(order, i)
		})
	}

	sch.Run(time.Second)

	want := []int{0, 1, 2, 3, 4}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i, v := range want {
		if order[i] != v {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

// TestZeroLengthTimeout verifies a 0-delay timeout executes in the same
// instant, after currently runnable processes yield (spec.md section 4.1).
func TestZeroLengthTimeout(t *testing.T) {
	t.Parallel()

	sch := scheduler.New(nil)
	var ranAt time.Duration = -1

	sch.Spawn("p", func(p *scheduler.Process) {
		sig := p.Timeout(0)
		if sig.Interrupted {
			t.Error("zero timeout should not be interrupted")
		}
		ranAt = sch.Now()
	})

	sch.Run(time.Second)

	if ranAt != 0 {
		t.Fatalf("zero-length timeout resumed at %v, want 0", ranAt)
	}
}

// TestInterruptDuringBackoff verifies interrupting a process mid-timeout
// delivers Interrupted=true with the elapsed virtual time, matching the
// MAC backoff-freeze contract (spec.md section 4.3 step 5).
func TestInterruptDuringBackoff(t *testing.T) {
	t.Parallel()

	sch := scheduler.New(nil)
	var gotSignal scheduler.Signal
	done := make(chan struct{})

	target := sch.Spawn("victim", func(p *scheduler.Process) {
		gotSignal = p.Timeout(100 * time.Millisecond)
		close(done)
	})

	sch.Spawn("interrupter", func(p *scheduler.Process) {
		p.Timeout(30 * time.Millisecond)
		sch.Interrupt(target)
	})

	sch.Run(time.Second)

	if !gotSignal.Interrupted {
		t.Fatal("expected victim process to be interrupted")
	}
	if gotSignal.Elapsed != 30*time.Millisecond {
		t.Fatalf("elapsed = %v, want 30ms", gotSignal.Elapsed)
	}
	select {
	case <-done:
	default:
		t.Fatal("victim process never completed")
	}
}

// TestInterruptOnCompletedProcessIsNoOp verifies spec.md section 4.1:
// "Interrupts on a completed process are a no-op."
func TestInterruptOnCompletedProcessIsNoOp(t *testing.T) {
	t.Parallel()

	sch := scheduler.New(nil)
	p := sch.Spawn("quick", func(p *scheduler.Process) {
		p.Timeout(time.Millisecond)
	})
	sch.Run(time.Second)

	// Should not panic or deadlock.
	sch.Interrupt(p)
}

// TestResourceExclusiveFIFO verifies the scoped-resource primitive grants
// access to exactly one holder at a time, in FIFO arrival order.
func TestResourceExclusiveFIFO(t *testing.T) {
	t.Parallel()

	sch := scheduler.New(nil)
	res := scheduler.NewResource(sch)
	var order []int

	for i := range 3 {
		i := i
		sch.Spawn("holder", func(p *scheduler.Process) {
			release := p.Request(res)
			order = append(order, i)
			p.Timeout(10 * time.Millisecond)
			release()
		})
	}

	sch.Run(time.Second)

	if len(order) != 3 {
		t.Fatalf("got %v, want 3 entries", order)
	}
	for i, v := range order {
		if i != v {
			t.Fatalf("order = %v, want FIFO 0,1,2", order)
		}
	}
}

// TestOneShotWakesAllWaiters verifies Fire resumes every waiter registered
// before it fired, and is idempotent.
func TestOneShotWakesAllWaiters(t *testing.T) {
	t.Parallel()

	sch := scheduler.New(nil)
	evt := scheduler.NewOneShot(sch)
	woke := 0

	for range 3 {
		sch.Spawn("waiter", func(p *scheduler.Process) {
			evt.Wait(p)
			woke++
		})
	}

	sch.Spawn("firer", func(p *scheduler.Process) {
		p.Timeout(5 * time.Millisecond)
		evt.Fire()
		evt.Fire() // idempotent
	})

	sch.Run(time.Second)

	if woke != 3 {
		t.Fatalf("woke = %d, want 3", woke)
	}
}
