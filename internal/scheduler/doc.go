// Package scheduler implements a single-threaded cooperative discrete-event
// engine over a virtual clock (spec section "Event Scheduler").
//
// The unit of scheduling is a Process: a resumable computation that
// suspends only at explicit yield points (Timeout, Wait, Request). Between
// yield points a process runs atomically with respect to every other
// process, even though each process body executes on its own goroutine --
// the Scheduler never resumes more than one process at a time, and always
// waits for that process to reach its next suspension point before
// advancing. Determinism for a given seed follows from this single
// active-process invariant plus FIFO ordering of same-instant events.
package scheduler
