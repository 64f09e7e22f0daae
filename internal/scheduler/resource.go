package scheduler

// Resource models an exclusively-held, scoped resource -- the generalized
// form of spec.md's channel_states[i]: "this drone is on air". At most one
// process holds it at any instant; Request blocks (FIFO) until it is free.
type Resource struct {
	sch    *Scheduler
	holder *Process
	waitq  []*Process
}

// NewResource creates an unheld exclusive resource bound to sch, used so
// that granting a queued waiter can be scheduled as a normal virtual-time
// event rather than resumed inline from within Release's caller.
func NewResource(sch *Scheduler) *Resource {
	return &Resource{sch: sch}
}

// tryAcquire grants the resource immediately if free. Returns false if it
// must queue (the caller then yields via Process.Request).
func (r *Resource) tryAcquire(p *Process) bool {
	if r.holder != nil {
		return false
	}
	r.holder = p
	return true
}

// enqueue adds a waiting process to the FIFO queue. Called by the
// scheduler's drive loop when Request yields.
func (r *Resource) enqueue(p *Process) {
	r.waitq = append(r.waitq, p)
}

// release frees the resource. If other processes are waiting, the
// longest-waiting one is granted ownership via a zero-delay resume event,
// preserving the single-active-process invariant (the newly granted
// process does not run until the scheduler's main loop reaches it).
func (r *Resource) release(p *Process) {
	if r.holder != p {
		return
	}
	r.holder = nil

	if len(r.waitq) == 0 {
		return
	}
	next := r.waitq[0]
	r.waitq = r.waitq[1:]
	r.holder = next
	r.sch.scheduleResume(next, 0, resumeSignal{})
}

// Held reports whether the resource is currently held by any process.
func (r *Resource) Held() bool { return r.holder != nil }
