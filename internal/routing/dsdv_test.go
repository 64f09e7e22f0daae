package routing_test

import (
	"testing"
	"time"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/routing"
	"github.com/dantte-lp/dronesim/internal/scheduler"
	"github.com/dantte-lp/dronesim/internal/simnet"
)

type nullMetrics struct {
	drops int
}

func (m *nullMetrics) RecordDelivery(routing.Delivered) {}
func (m *nullMetrics) RecordDrop()                       { m.drops++ }

// TestDSDVPrefersGreaterSequenceThenFewerHops verifies spec.md section 3:
// "remote entries' sequence numbers never decrease unless replaced by a
// strictly greater one", and on equal sequence numbers prefer fewer hops.
func TestDSDVPrefersGreaterSequenceThenFewerHops(t *testing.T) {
	t.Parallel()

	sch := scheduler.New(nil)
	reg := drone.NewRegistry()
	self := drone.NewDrone(0, drone.Position{}, 8)
	reg.Register(self)
	ch := simnet.New(sch, reg, simnet.Config{SensingRange: 100, MaxCommRange: 100})

	d := routing.NewDSDV(sch, self, reg, ch, &nullMetrics{}, drone.NewIDAllocator(), time.Second, 64, time.Second, 0)

	d.PacketReception(&drone.Packet{
		Kind:  drone.KindHello,
		Hello: &drone.HelloPayload{DSDV: map[int]drone.DSDVEntry{5: {Seq: 4, HopCount: 3}}},
	}, 1)

	pkt := &drone.Packet{Dest: 5}
	if ok := d.NextHopSelection(pkt); !ok || pkt.NextHop != 1 {
		t.Fatalf("NextHopSelection = (%d, %v), want (1, true)", pkt.NextHop, ok)
	}

	// A lower sequence number from a different neighbor must not replace
	// the installed route.
	d.PacketReception(&drone.Packet{
		Kind:  drone.KindHello,
		Hello: &drone.HelloPayload{DSDV: map[int]drone.DSDVEntry{5: {Seq: 2, HopCount: 1}}},
	}, 2)

	pkt2 := &drone.Packet{Dest: 5}
	if ok := d.NextHopSelection(pkt2); !ok || pkt2.NextHop != 1 {
		t.Fatalf("route regressed to lower sequence: NextHop=%d, want 1", pkt2.NextHop)
	}

	// An equal sequence number with fewer hops wins.
	d.PacketReception(&drone.Packet{
		Kind:  drone.KindHello,
		Hello: &drone.HelloPayload{DSDV: map[int]drone.DSDVEntry{5: {Seq: 4, HopCount: 1}}},
	}, 3)

	pkt3 := &drone.Packet{Dest: 5}
	if ok := d.NextHopSelection(pkt3); !ok || pkt3.NextHop != 3 {
		t.Fatalf("equal-sequence fewer-hop tie-break failed: NextHop=%d, want 3", pkt3.NextHop)
	}
}

// TestGreedyReportsNoRouteInVoidArea is spec.md section 8 scenario 3: no
// neighbor closer to the destination than self means void area / no route.
func TestGreedyReportsNoRouteInVoidArea(t *testing.T) {
	t.Parallel()

	sch := scheduler.New(nil)
	reg := drone.NewRegistry()
	self := drone.NewDrone(0, drone.Position{X: 0}, 8)
	other := drone.NewDrone(1, drone.Position{X: -10}, 8) // farther from dest than self
	reg.Register(self)
	reg.Register(other)
	dest := drone.NewDrone(2, drone.Position{X: 100}, 8)
	reg.Register(dest)
	ch := simnet.New(sch, reg, simnet.Config{SensingRange: 1000, MaxCommRange: 1000})

	g := routing.NewGreedy(sch, self, reg, ch, &nullMetrics{}, drone.NewIDAllocator(), time.Second, 64, time.Second, 0)
	g.PacketReception(&drone.Packet{
		Kind:      drone.KindHello,
		SenderPos: [3]float64{-10, 0, 0},
		Hello:     &drone.HelloPayload{Greedy: true},
	}, 1)

	pkt := &drone.Packet{Dest: 2}
	if ok := g.NextHopSelection(pkt); ok {
		t.Fatalf("NextHopSelection() = true, want false (void area)")
	}
}
