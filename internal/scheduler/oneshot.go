package scheduler

// OneShot is a single-fire event: processes may Wait on it any number of
// times before it fires; Fire wakes every current waiter at the current
// virtual instant and leaves the OneShot fired for good, so later Waits
// return immediately (the caller creates a fresh OneShot per round rather
// than reusing a fired one, matching the teacher's per-round notifyCh
// allocation).
type OneShot struct {
	sch     *Scheduler
	waiters []*Process
	fired   bool
}

// NewOneShot creates a one-shot event bound to sch.
func NewOneShot(sch *Scheduler) *OneShot {
	return &OneShot{sch: sch}
}

// Wait suspends the calling process until Fire is called. Waiting on an
// already-fired OneShot returns immediately with Signal{}.
func (o *OneShot) Wait(p *Process) Signal {
	if o.fired {
		return Signal{}
	}
	o.waiters = append(o.waiters, p)
	p.doneCh <- yield{kind: yieldWait}
	<-p.resumeCh
	return Signal{}
}

// Fire wakes every current waiter via a zero-delay resume event and marks
// the OneShot as fired.
func (o *OneShot) Fire() {
	if o.fired {
		return
	}
	o.fired = true
	for _, w := range o.waiters {
		o.sch.scheduleResume(w, 0, resumeSignal{})
	}
	o.waiters = nil
}
