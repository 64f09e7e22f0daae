package simnet_test

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/scheduler"
	"github.com/dantte-lp/dronesim/internal/simnet"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newLinear3(sensingRange, commRange float64) (*scheduler.Scheduler, *drone.Registry, *simnet.Channel) {
	sch := scheduler.New(nil)
	reg := drone.NewRegistry()
	reg.Register(drone.NewDrone(0, drone.Position{X: 0}, 8))
	reg.Register(drone.NewDrone(1, drone.Position{X: 50}, 8))
	reg.Register(drone.NewDrone(2, drone.Position{X: 100}, 8))
	ch := simnet.New(sch, reg, simnet.Config{SensingRange: sensingRange, MaxCommRange: commRange})
	return sch, reg, ch
}

// TestHiddenTerminalCollision is scenario 2 from spec.md section 8: A and C
// out of sensing range of each other, both transmit to B at once, collide.
func TestHiddenTerminalCollision(t *testing.T) {
	t.Parallel()

	sch, _, ch := newLinear3(60, 1000)

	var deliveredToB int
	sch.Spawn("recvB", func(p *scheduler.Process) {
		for range 2 {
			select {
			case <-ch.Inbox(1):
				deliveredToB++
			default:
				p.Timeout(time.Microsecond)
			}
		}
	})

	ch.Unicast(0, 1, &drone.Packet{ID: 1}, 0, 10*time.Microsecond)
	ch.Unicast(2, 1, &drone.Packet{ID: 2}, 0, 10*time.Microsecond)

	sch.Run(time.Millisecond)

	if ch.Collisions() < 1 {
		t.Fatalf("Collisions() = %d, want >= 1", ch.Collisions())
	}
}

// TestChannelBusyWithinSensingRange verifies check_channel_availability
// (spec section 4.2): a transmitting neighbor within sensing range makes
// the channel appear busy to a candidate sender.
func TestChannelBusyWithinSensingRange(t *testing.T) {
	t.Parallel()

	sch, _, ch := newLinear3(60, 1000)
	res := ch.Occupy(0)

	holding := make(chan struct{})
	sch.Spawn("holder", func(p *scheduler.Process) {
		release := p.Request(res)
		close(holding)
		p.Timeout(time.Millisecond)
		release()
	})

	<-holding
	if !ch.ChannelBusy(1) {
		t.Fatal("ChannelBusy(1) = false, want true (drone 0 within sensing range is transmitting)")
	}
	if ch.ChannelBusy(2) {
		t.Fatal("ChannelBusy(2) = true, want false (drone 2 is out of sensing range of drone 0)")
	}

	sch.Run(time.Second)
}

// TestNonOverlappingUnicastsDoNotCollide verifies that sequential (not
// concurrent) unicasts to the same receiver never increment Collisions.
func TestNonOverlappingUnicastsDoNotCollide(t *testing.T) {
	t.Parallel()

	sch, _, ch := newLinear3(60, 1000)

	ch.Unicast(0, 1, &drone.Packet{ID: 1}, 0, 10*time.Microsecond)
	ch.Unicast(0, 1, &drone.Packet{ID: 2}, 10*time.Microsecond, 20*time.Microsecond)

	sch.Run(time.Millisecond)

	if ch.Collisions() != 0 {
		t.Fatalf("Collisions() = %d, want 0", ch.Collisions())
	}
}
