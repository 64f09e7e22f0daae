package routing

import (
	"time"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/scheduler"
	"github.com/dantte-lp/dronesim/internal/simnet"
)

const (
	dsdvHelloInterval = 500 * time.Millisecond
	dsdvJitterLoMS     = 1
	dsdvJitterHiMS     = 2
)

// DSDV implements spec section 4.5.1: destination-sequenced distance
// vector with triggered updates on entry expiry.
type DSDV struct {
	base

	table         map[int]drone.DSDVEntry
	ownSeq        uint32
	entryLife     scheduler.VTime
	helloBits     int
	sweepInterval scheduler.VTime
}

// NewDSDV creates a DSDV router for self.
func NewDSDV(sch *scheduler.Scheduler, self *drone.Drone, reg *drone.Registry, ch *simnet.Channel, metrics Metrics, idAlloc *drone.IDAllocator, entryLifetime scheduler.VTime, helloBits int, waitDeadline, sweepInterval scheduler.VTime) *DSDV {
	return &DSDV{
		base:          newBase(sch, self, reg, ch, metrics, idAlloc, waitDeadline),
		table:         make(map[int]drone.DSDVEntry),
		entryLife:     entryLifetime,
		helloBits:     helloBits,
		sweepInterval: sweepInterval,
	}
}

// Run starts DSDV's periodic hello timer and its waiting-list sweep.
func (d *DSDV) Run(sch *scheduler.Scheduler) {
	sch.Spawn("dsdv-hello", func(p *scheduler.Process) {
		for {
			p.Timeout(dsdvHelloInterval + jitterMS(dsdvJitterLoMS, dsdvJitterHiMS))
			d.sendHello()
		}
	})
	d.RunWaitingListSweep(sch, d, d.sweepInterval)
}

func (d *DSDV) sendHello() {
	d.ownSeq += 2 // own sequence numbers are even, strictly increasing
	snapshot := make(map[int]drone.DSDVEntry, len(d.table)+1)
	for k, v := range d.table {
		snapshot[k] = v
	}
	snapshot[int(d.self.ID)] = drone.DSDVEntry{NextHop: int(d.self.ID), HopCount: 0, Seq: d.ownSeq, UpdatedAt: d.sch.Now()}

	pkt := &drone.Packet{
		ID:         d.idAlloc.Allocate(),
		Kind:       drone.KindHello,
		LengthBits: d.helloBits,
		CreatedAt:  d.sch.Now(),
		Mode:       drone.ModeBroadcast,
		SenderID:   int(d.self.ID),
		Hello:      &drone.HelloPayload{DSDV: snapshot},
	}
	if err := d.self.TxQueue.Push(pkt); d.metrics != nil && err != nil {
		d.metrics.RecordDrop()
	}
}

// NextHopSelection implements the Router contract.
func (d *DSDV) NextHopSelection(pkt *drone.Packet) bool {
	e, ok := d.table[pkt.Dest]
	if !ok {
		return false
	}
	pkt.NextHop = e.NextHop
	return true
}

// PacketReception dispatches a received frame: hellos update the table
// (triggering a purge-driven re-broadcast if needed); data packets are
// delivered or forwarded per the common contract.
func (d *DSDV) PacketReception(pkt *drone.Packet, src drone.ID) {
	switch pkt.Kind {
	case drone.KindHello:
		d.applyHello(pkt, src)
	case drone.KindData:
		if d.deliverIfSelf(pkt) {
			return
		}
		pkt.TTL++
		d.forward(d, pkt)
	}
}

// applyHello implements the DSDV update rule from spec section 4.5.1:
// prefer strictly greater sequence numbers, on ties prefer fewer hops.
func (d *DSDV) applyHello(pkt *drone.Packet, src drone.ID) {
	if pkt.Hello == nil {
		return
	}
	now := d.sch.Now()

	for dst, remote := range pkt.Hello.DSDV {
		if dst == int(d.self.ID) {
			continue
		}
		candidate := drone.DSDVEntry{
			NextHop:   int(src),
			HopCount:  remote.HopCount + 1,
			Seq:       remote.Seq,
			UpdatedAt: now,
		}

		current, exists := d.table[dst]
		if !exists || candidate.Seq > current.Seq ||
			(candidate.Seq == current.Seq && candidate.HopCount < current.HopCount) {
			d.table[dst] = candidate
		}
	}

	if d.purgeExpired(now) {
		d.sendHello()
	}
}

// purgeExpired removes entries whose lifetime has elapsed without a
// refresh, returning whether anything was removed (spec section 4.5.1:
// purge triggers an immediate broadcast with own sequence bumped by 2).
func (d *DSDV) purgeExpired(now scheduler.VTime) bool {
	removed := false
	for dst, e := range d.table {
		if now-e.UpdatedAt > d.entryLife {
			delete(d.table, dst)
			removed = true
		}
	}
	return removed
}
