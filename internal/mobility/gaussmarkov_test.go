package mobility_test

import (
	"testing"
	"time"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/mobility"
	"github.com/dantte-lp/dronesim/internal/scheduler"
)

// TestPositionStaysWithinBuffer drives a drone heading straight out of
// bounds through several position ticks and asserts it never crosses the
// buffered boundary, per spec section 4.4's rebound rule.
func TestPositionStaysWithinBuffer(t *testing.T) {
	t.Parallel()

	d := drone.NewDrone(0, drone.Position{X: 95}, 8)
	d.Vel = drone.Velocity{X: 1000}
	d.Speed = 1000
	d.SpeedMean = 1000

	bounds := mobility.Bounds{MinX: 0, MaxX: 100, MinY: 0, MaxY: 100, MinZ: 0, MaxZ: 100, Buffer: 5}
	m := mobility.New(d, mobility.Config{
		Alpha:             0.85,
		Bounds:            bounds,
		PositionInterval:  time.Millisecond,
		DirectionInterval: time.Second, // keep direction frozen for this check
	})

	sch := scheduler.New(nil)
	m.Run(sch)
	sch.Run(50 * time.Millisecond)

	if d.Pos.X < bounds.MinX+bounds.Buffer || d.Pos.X > bounds.MaxX-bounds.Buffer {
		t.Fatalf("Pos.X = %v, want within [%v, %v]", d.Pos.X, bounds.MinX+bounds.Buffer, bounds.MaxX-bounds.Buffer)
	}
}

func TestNewDefaultsPowerConsumption(t *testing.T) {
	t.Parallel()

	d := drone.NewDrone(0, drone.Position{}, 8)
	m := mobility.New(d, mobility.Config{Alpha: 0.85})
	if m == nil {
		t.Fatal("New returned nil")
	}
}
