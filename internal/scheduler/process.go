package scheduler

import "fmt"

// Signal is returned from every suspending call. Interrupted is true when
// the wait was cut short by Interrupt rather than completing naturally;
// Elapsed is how much virtual time actually passed while suspended.
type Signal struct {
	Interrupted bool
	Elapsed     VTime
}

// Func is the body of a scheduled process. It runs on its own goroutine
// but the Scheduler guarantees only one Func is ever running at a time
// across the whole simulation.
type Func func(p *Process)

// Process is a resumable computation driven by the Scheduler. All
// suspending methods (Timeout, Request) must be called from the
// goroutine running this process's Func.
type Process struct {
	id   uint64
	name string
	sch  *Scheduler

	resumeCh chan resumeSignal
	doneCh   chan yield

	// pending is the in-flight timeout event for this process, if any.
	// Interrupt cancels it and replaces it with an immediate wake.
	pending *event

	// finished is true once the process's Func has returned. Interrupting
	// a finished process is a no-op (spec.md section 4.1).
	finished bool
}

// ID returns the process's scheduler-assigned identifier.
func (p *Process) ID() uint64 { return p.id }

// Scheduler returns the Scheduler driving this process, for callers that
// need to Spawn sibling processes or read Now() without threading the
// Scheduler through separately.
func (p *Process) Scheduler() *Scheduler { return p.sch }

// String implements fmt.Stringer for logging.
func (p *Process) String() string {
	return fmt.Sprintf("process(%d:%s)", p.id, p.name)
}

// yield describes what a process wants the scheduler to do next.
type yield struct {
	kind yieldKind
	dur  VTime
	res  *Resource
	done bool
}

type yieldKind uint8

const (
	yieldTimeout yieldKind = iota
	yieldRequest
	yieldWait
	yieldExit
)

// Timeout suspends the calling process until now+d. Returns a Signal
// reporting whether the wait was cut short by Interrupt.
//
// A zero-length timeout is legal: it suspends only long enough for the
// scheduler to run any other processes already queued at the current
// instant, then resumes in the same virtual instant (spec.md section 4.1).
func (p *Process) Timeout(d VTime) Signal {
	p.doneCh <- yield{kind: yieldTimeout, dur: d}
	sig := <-p.resumeCh
	return Signal{Interrupted: sig.interrupted, Elapsed: sig.elapsed}
}

// Request acquires the given resource exclusively, suspending if it is
// currently held by another process. The returned release func MUST be
// called exactly once, on every exit path (including after an interrupt
// elsewhere in the owning process), to guarantee the resource is freed.
func (p *Process) Request(r *Resource) (release func()) {
	if r.tryAcquire(p) {
		return func() { r.release(p) }
	}
	p.doneCh <- yield{kind: yieldRequest, res: r}
	<-p.resumeCh // granted; no interruption path for resource waits
	return func() { r.release(p) }
}
