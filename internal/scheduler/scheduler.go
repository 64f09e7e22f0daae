package scheduler

import (
	"container/heap"
	"log/slog"
)

// Scheduler is the single-threaded cooperative virtual-time engine. It
// drives every Process on one logical timeline: only one Process body
// ever executes at a time, and the Scheduler never advances "now" past a
// Process's last completed yield point.
type Scheduler struct {
	now   VTime
	heap  eventHeap
	seq   uint64
	procs map[uint64]*Process
	logger *slog.Logger

	// runnable counts processes that have been started but not yet
	// finished. Run does not consult it.
	runnable int
}

// New creates an empty Scheduler. logger may be nil, in which case a
// discard logger is used.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		procs:  make(map[uint64]*Process),
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// Now returns the scheduler's current virtual time.
func (s *Scheduler) Now() VTime { return s.now }

// Spawn starts a new process running fn at the current virtual time. The
// process's goroutine starts immediately but does not execute past its
// first suspension point until the Scheduler's run loop resumes it.
func (s *Scheduler) Spawn(name string, fn Func) *Process {
	s.seq++
	p := &Process{
		id:       s.seq,
		name:     name,
		sch:      s,
		resumeCh: make(chan resumeSignal),
		doneCh:   make(chan yield, 1),
	}
	s.procs[p.id] = p
	s.runnable++

	go func() {
		fn(p)
		p.doneCh <- yield{kind: yieldExit, done: true}
	}()

	// Drive the process to its first suspension point synchronously so
	// that by the time Spawn returns, any timeout/request it issued is
	// already reflected in the heap (matches the teacher's pattern of
	// fully wiring a session before handing control back to the caller).
	s.drive(p)

	return p
}

// Run executes events in (time, submission) order until the event queue is
// empty or the next event lies after until; events past until stay queued.
func (s *Scheduler) Run(until VTime) {
	for s.heap.Len() > 0 {
		next := s.heap[0]
		if next.at > until {
			return
		}

		heap.Pop(&s.heap)
		if next.cancelled {
			continue
		}

		s.now = next.at
		next.proc.pending = nil
		next.proc.resumeCh <- next.signal
		s.drive(next.proc)
	}
}

// drive reads the next yield from proc (which must currently be running
// or have just been resumed) and schedules whatever it requested.
func (s *Scheduler) drive(proc *Process) {
	y := <-proc.doneCh

	switch y.kind {
	case yieldTimeout:
		s.scheduleResume(proc, y.dur, resumeSignal{elapsed: y.dur})
	case yieldRequest:
		y.res.enqueue(proc)
	case yieldWait:
		// The OneShot/Resource already recorded proc as a waiter before
		// yielding; nothing further to schedule until Fire/release.
	case yieldExit:
		proc.finished = true
		s.runnable--
		delete(s.procs, proc.id)
	}
}

// scheduleResume pushes a resume event for proc at now+delay.
func (s *Scheduler) scheduleResume(proc *Process, delay VTime, sig resumeSignal) *event {
	s.seq++
	e := &event{at: s.now + delay, seq: s.seq, proc: proc, signal: sig}
	proc.pending = e
	heap.Push(&s.heap, e)
	return e
}

// Interrupt delivers an interrupt to p. If p is not currently suspended on
// a Timeout (e.g. it already finished, or it is waiting on a Resource),
// this is a no-op, matching spec.md section 4.1: "Interrupts on a
// completed process are a no-op."
func (s *Scheduler) Interrupt(p *Process) {
	if p.finished || p.pending == nil {
		return
	}

	pending := p.pending
	elapsed := s.now - (pending.at - pending.signal.elapsed)
	pending.cancelled = true
	p.pending = nil

	s.scheduleResume(p, 0, resumeSignal{interrupted: true, elapsed: elapsed})
}
