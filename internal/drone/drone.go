package drone

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/dantte-lp/dronesim/internal/scheduler"
)

// ID identifies a drone within a simulation run.
type ID int

// Position is a point in the 3-D simulation volume.
type Position struct {
	X, Y, Z float64
}

// Distance returns the Euclidean distance between p and q.
func (p Position) Distance(q Position) float64 {
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Velocity is a 3-D velocity vector in the same units as Position per
// simulated second.
type Velocity struct {
	X, Y, Z float64
}

// ProcKey identifies a cancellable MAC operation for the process-tracking
// maps described in spec section 5 ("wait_ack"+drone_id+"_"+packet_id and
// similarly for mac_send). Using a comparable struct instead of a string
// key avoids the allocation/formatting cost of building the key on every
// lookup, while preserving the same semantics.
type ProcKey struct {
	Op       string
	DroneID  ID
	PacketID uint64
}

// ProcessTracker maintains the two parallel maps spec section 5 requires:
// process_dict (the live process for a key) and process_finish (whether it
// has completed, normally or via interrupt). Both maps are accessed only
// from process bodies running under the single-threaded scheduler, so no
// locking is needed between yield points.
type ProcessTracker struct {
	procs    map[ProcKey]*scheduler.Process
	finished map[ProcKey]bool
}

// NewProcessTracker creates an empty tracker.
func NewProcessTracker() *ProcessTracker {
	return &ProcessTracker{
		procs:    make(map[ProcKey]*scheduler.Process),
		finished: make(map[ProcKey]bool),
	}
}

// Start registers p as the in-flight process for key, marking it unfinished.
func (t *ProcessTracker) Start(key ProcKey, p *scheduler.Process) {
	t.procs[key] = p
	t.finished[key] = false
}

// Finish marks key's process as complete. After Finish, IsFinished reports
// true for this key until a new process Start()s under it, which is what a
// caller checks to honor spec section 5's invariant: "a process is
// interrupted only if process_finish[key] == 0 and the process has not
// already completed."
func (t *ProcessTracker) Finish(key ProcKey) {
	t.finished[key] = true
}

// IsFinished reports whether key's process has completed.
func (t *ProcessTracker) IsFinished(key ProcKey) bool {
	return t.finished[key]
}

// Process returns the tracked process for key, if any is registered.
func (t *ProcessTracker) Process(key ProcKey) (*scheduler.Process, bool) {
	p, ok := t.procs[key]
	return p, ok
}

// Drone is the per-node state shared by mobility, MAC, and routing: position
// and motion, residual energy, the transmit queue and waiting list, and the
// bookkeeping that lets other layers reach this node's installed modules by
// id rather than by direct pointer (spec section 9: resolve drone/module
// cycles through a registry keyed by id).
type Drone struct {
	ID ID

	Pos Position
	Vel Velocity

	// Direction (azimuth) and Pitch (elevation) are the two Gauss-Markov
	// scalars driving Vel; their Mean counterparts are the attractor values
	// boundary rebounds reflect (spec section 4.4).
	Direction, DirectionMean float64
	Pitch, PitchMean         float64
	Speed, SpeedMean         float64

	// EnergyJ is residual energy; it only ever decreases (spec section 4.4).
	EnergyJ float64

	// asleep is read from outside the owning process (metrics, scheduler
	// diagnostics) so it is atomic even though the simulator core itself is
	// single-threaded, matching the teacher's convention for fields read
	// across goroutine boundaries without a defined happens-before edge.
	asleep atomic.Bool

	TxQueue     *Queue
	WaitingList *WaitingList
	Procs       *ProcessTracker
}

// NewDrone creates a drone at pos with a bounded transmit queue of the given
// capacity.
func NewDrone(id ID, pos Position, maxQueue int) *Drone {
	return &Drone{
		ID:          id,
		Pos:         pos,
		TxQueue:     NewQueue(maxQueue),
		WaitingList: NewWaitingList(),
		Procs:       NewProcessTracker(),
	}
}

// Asleep reports whether the drone is currently sleeping (not transmitting
// or receiving).
func (d *Drone) Asleep() bool { return d.asleep.Load() }

// SetAsleep sets the sleep flag.
func (d *Drone) SetAsleep(v bool) { d.asleep.Store(v) }

// String implements fmt.Stringer for logging.
func (d *Drone) String() string {
	return fmt.Sprintf("drone(%d)", d.ID)
}
