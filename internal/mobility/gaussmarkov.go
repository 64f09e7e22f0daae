// Package mobility implements the 3-D Gauss-Markov mobility model (spec
// section 4.4): two independent periodic ticks per drone, one updating
// direction/pitch/speed via the Gauss-Markov recurrence, the other
// integrating position and draining residual energy.
//
// Grounded on the teacher's periodic-timer session loops (internal/bfd
// session.go's TX/RX ticker goroutines) adapted to scheduler.Process
// timeouts instead of time.Ticker, since mobility runs on virtual time.
package mobility

import (
	"math"
	"math/rand/v2"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/scheduler"
)

// Bounds is the simulation volume, with a buffer inside which a boundary
// rebound is triggered (spec section 4.4).
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
	Buffer     float64
}

// Config holds the Gauss-Markov parameters for one drone.
type Config struct {
	Alpha            float64
	PositionInterval scheduler.VTime
	DirectionInterval scheduler.VTime
	Bounds           Bounds

	// PowerConsumption maps a drone's current speed to its instantaneous
	// power draw; energy decreases by Δt*PowerConsumption(speed) on every
	// position tick (spec section 4.4). Left as a field rather than a
	// fixed formula because the exact function is an open question in the
	// original model (spec section 9, open question (a)).
	PowerConsumption func(speed float64) float64
}

// Model drives one drone's position/velocity over virtual time.
type Model struct {
	cfg Config
	d   *drone.Drone
}

// New creates a mobility model bound to d.
func New(d *drone.Drone, cfg Config) *Model {
	if cfg.PowerConsumption == nil {
		cfg.PowerConsumption = func(speed float64) float64 { return speed }
	}
	return &Model{cfg: cfg, d: d}
}

// Run starts the position and direction tick processes. Returns
// immediately; the ticks continue until the simulation ends.
func (m *Model) Run(sch *scheduler.Scheduler) {
	sch.Spawn("mobility-direction", func(p *scheduler.Process) { m.directionLoop(p) })
	sch.Spawn("mobility-position", func(p *scheduler.Process) { m.positionLoop(p) })
}

// directionLoop applies the Gauss-Markov recurrence from spec section 4.4
// every DirectionInterval.
func (m *Model) directionLoop(p *scheduler.Process) {
	for {
		p.Timeout(m.cfg.DirectionInterval)
		m.updateDirection()
	}
}

func (m *Model) updateDirection() {
	a := m.cfg.Alpha
	mem := math.Sqrt(1 - a*a)

	d := m.d
	d.Speed = a*d.Speed + (1-a)*d.SpeedMean + mem*rand.NormFloat64()
	d.Direction = a*d.Direction + (1-a)*d.DirectionMean + mem*rand.NormFloat64()
	d.Pitch = a*d.Pitch + (1-a)*d.PitchMean + mem*rand.NormFloat64()

	d.Vel = drone.Velocity{
		X: d.Speed * math.Cos(d.Direction) * math.Cos(d.Pitch),
		Y: d.Speed * math.Sin(d.Direction) * math.Cos(d.Pitch),
		Z: d.Speed * math.Sin(d.Pitch),
	}
}

// positionLoop integrates position and drains energy every
// PositionInterval, applying boundary rebounds (spec section 4.4).
func (m *Model) positionLoop(p *scheduler.Process) {
	for {
		p.Timeout(m.cfg.PositionInterval)
		m.updatePosition()
	}
}

func (m *Model) updatePosition() {
	d := m.d
	dt := float64(m.cfg.PositionInterval) / float64(scheduler.VTime(1e9)) // seconds, VTime in nanoseconds

	d.Pos.X += d.Vel.X * dt
	d.Pos.Y += d.Vel.Y * dt
	d.Pos.Z += d.Vel.Z * dt

	b := m.cfg.Bounds
	m.rebound(&d.Pos.X, &d.Vel.X, b.MinX, b.MaxX, b.Buffer, &d.DirectionMean, reboundX)
	m.rebound(&d.Pos.Y, &d.Vel.Y, b.MinY, b.MaxY, b.Buffer, &d.DirectionMean, reboundY)
	m.rebound(&d.Pos.Z, &d.Vel.Z, b.MinZ, b.MaxZ, b.Buffer, &d.PitchMean, reboundZ)

	speed := math.Sqrt(d.Vel.X*d.Vel.X + d.Vel.Y*d.Vel.Y + d.Vel.Z*d.Vel.Z)
	d.EnergyJ -= dt * m.cfg.PowerConsumption(speed)
}

type reboundAxis int

const (
	reboundX reboundAxis = iota
	reboundY
	reboundZ
)

// rebound clamps pos into [min+buf, max-buf], flipping vel's sign and
// reflecting the relevant mean angle when a boundary is breached (spec
// section 4.4: "θ̄ ← π−θ̄ for x; θ̄ ← −θ̄ for y; φ̄ ← −φ̄ for z").
func (m *Model) rebound(pos, vel *float64, min, max, buf float64, mean *float64, axis reboundAxis) {
	lo, hi := min+buf, max-buf

	switch {
	case *pos < lo:
		*pos = lo
		*vel = -*vel
	case *pos > hi:
		*pos = hi
		*vel = -*vel
	default:
		return
	}

	switch axis {
	case reboundX:
		*mean = math.Pi - *mean
	case reboundY:
		*mean = -*mean
	case reboundZ:
		*mean = -*mean
	}
}
