package mac_test

import (
	"testing"
	"time"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/mac"
	"github.com/dantte-lp/dronesim/internal/scheduler"
	"github.com/dantte-lp/dronesim/internal/simnet"
)

// fakeRouter is the minimal Router a two-node ping needs: it always
// believes the peer given at construction is the next hop, and on
// reception it unicasts an ACK for any unicast data packet addressed here.
type fakeRouter struct {
	sch     *scheduler.Scheduler
	self    drone.ID
	peer    drone.ID
	ch      *simnet.Channel
	ackLen  int
	sifs    scheduler.VTime
	delivered []*drone.Packet
}

func (r *fakeRouter) NextHopSelection(pkt *drone.Packet) bool {
	pkt.NextHop = int(r.peer)
	return true
}

func (r *fakeRouter) PacketReception(pkt *drone.Packet, src drone.ID) {
	if pkt.Kind != drone.KindData {
		return
	}
	r.delivered = append(r.delivered, pkt)

	ack := &drone.Packet{
		ID:         pkt.ID + 1_000_000,
		Kind:       drone.KindAck,
		AckOf:      pkt.ID,
		LengthBits: r.ackLen,
		Mode:       drone.ModeUnicast,
		NextHop:    int(src),
	}
	r.sch.Spawn("test-ack", func(p *scheduler.Process) {
		p.Timeout(r.sifs)
		start := p.Scheduler().Now()
		r.ch.Unicast(r.self, src, ack, start, start+r.sifs)
	})
}

// TestTwoNodePingDelivers is spec.md section 8 scenario 1: two static
// drones exchange one unicast data packet and an ACK.
func TestTwoNodePingDelivers(t *testing.T) {
	t.Parallel()

	sch := scheduler.New(nil)
	reg := drone.NewRegistry()

	dA := drone.NewDrone(0, drone.Position{X: 0}, 8)
	dB := drone.NewDrone(1, drone.Position{X: 50}, 8)
	reg.Register(dA)
	reg.Register(dB)

	ch := simnet.New(sch, reg, simnet.Config{SensingRange: 1000, MaxCommRange: 1000})

	cfg := mac.Config{
		BitRate:                  1, // 1 bit per VTime unit => length-in-bits == airtime
		SlotDuration:              20 * time.Microsecond,
		DIFS:                      50 * time.Microsecond,
		SIFS:                      10 * time.Microsecond,
		AckTimeout:                time.Millisecond,
		AckPacketLengthBits:       112,
		CWMin:                     15,
		MaxRetransmissionAttempt:  5,
	}

	routerA := &fakeRouter{sch: sch, self: 0, peer: 1, ch: ch, ackLen: cfg.AckPacketLengthBits, sifs: cfg.SIFS}
	routerB := &fakeRouter{sch: sch, self: 1, peer: 0, ch: ch, ackLen: cfg.AckPacketLengthBits, sifs: cfg.SIFS}

	macA := mac.New(sch, dA, reg, ch, routerA, cfg, nil)
	macB := mac.New(sch, dB, reg, ch, routerB, cfg, nil)
	macA.Run(sch)
	macB.Run(sch)

	pkt := &drone.Packet{ID: 1, Kind: drone.KindData, LengthBits: 8192, Mode: drone.ModeUnicast, NextHop: 1}
	if err := dA.TxQueue.Push(pkt); err != nil {
		t.Fatalf("push: %v", err)
	}

	sch.Run(10 * time.Millisecond)

	if len(routerB.delivered) != 1 {
		t.Fatalf("delivered to B = %d packets, want 1", len(routerB.delivered))
	}
	if routerB.delivered[0].ID != 1 {
		t.Fatalf("delivered packet id = %d, want 1", routerB.delivered[0].ID)
	}
	if dA.TxQueue.Len() != 0 {
		t.Fatalf("A's queue len = %d, want 0 (packet should be retired by ACK)", dA.TxQueue.Len())
	}
}
