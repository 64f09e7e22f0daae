// Package routing implements the pluggable next-hop/packet-reception
// layer (spec section 4.5): DSDV, Greedy geographic forwarding, OPAR, and
// PrudentCaster, all sharing the same Router contract consumed by mac.MAC.
//
// Grounded on internal/bfd/manager.go's session-table CRUD (map + RWMutex
// keyed by a comparable id, looked up by id rather than pointer) adapted
// to per-destination/per-neighbor routing-table rows.
package routing

import (
	"math/rand/v2"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/scheduler"
	"github.com/dantte-lp/dronesim/internal/simnet"
)

// Router is the contract spec section 4.5 names: next-hop selection plus
// inbound dispatch. It satisfies mac.Router.
type Router interface {
	NextHopSelection(pkt *drone.Packet) bool
	PacketReception(pkt *drone.Packet, src drone.ID)
}

// Delivered records one successfully-delivered data packet's accounting,
// per spec section 4.5's "on delivery" rule.
type Delivered struct {
	PacketID  uint64
	LatencyUS float64
	HopCount  int
	DataLen   int
}

// Metrics is the sink every router reports deliveries and drops to;
// internal/simmetrics.Collector implements it.
type Metrics interface {
	RecordDelivery(d Delivered)
	RecordDrop()
}

// DroneLogger writes one drone's per-packet delivery-latency records
// (spec section 6: "<packet_id> <latency_us>" lines under
// LOG_PATH/<drone_id>); internal/simmetrics.DroneLog implements it. Kept
// as a narrow interface here (rather than importing simmetrics directly)
// since simmetrics already imports routing for Delivered/Metrics.
type DroneLogger interface {
	Record(packetID uint64, latencyUS float64) error
}

// base holds the fields every router variant needs: its own drone, the
// registry to resolve neighbors by id, the channel (stored but not used
// by any variant: hellos and data leave through the drone's transmit
// queue and the MAC), the metrics sink, and the deadline new waiting-list
// entries get (spec section 4.6).
type base struct {
	self    *drone.Drone
	reg     *drone.Registry
	sch     *scheduler.Scheduler
	ch      *simnet.Channel
	metrics Metrics
	idAlloc *drone.IDAllocator

	waitDeadline scheduler.VTime

	arrived map[uint64]struct{} // datapacket_arrived set (spec section 4.5)
}

func newBase(sch *scheduler.Scheduler, self *drone.Drone, reg *drone.Registry, ch *simnet.Channel, metrics Metrics, idAlloc *drone.IDAllocator, waitDeadline scheduler.VTime) base {
	return base{
		self:         self,
		reg:          reg,
		sch:          sch,
		ch:           ch,
		metrics:      metrics,
		idAlloc:      idAlloc,
		waitDeadline: waitDeadline,
		arrived:      make(map[uint64]struct{}),
	}
}

// deliverIfSelf implements the common "on delivery" accounting rule from
// spec section 4.5. Returns true if pkt was addressed to this drone
// (whether or not it was a fresh delivery).
func (b *base) deliverIfSelf(pkt *drone.Packet) bool {
	if pkt.Dest != int(b.self.ID) {
		return false
	}
	if _, dup := b.arrived[pkt.ID]; dup {
		return true
	}
	b.arrived[pkt.ID] = struct{}{}

	latencyUS := float64(b.sch.Now()-pkt.CreatedAt) / 1e3 // VTime is in nanoseconds
	b.metrics.RecordDelivery(Delivered{
		PacketID:  pkt.ID,
		LatencyUS: latencyUS,
		HopCount:  pkt.TTL,
		DataLen:   len(pkt.Data),
	})
	return true
}

// forward implements spec section 4.5's non-destination reception rule: it
// recomputes self's own next hop (the previous hop's NextHop value is
// meaningless here) via self, enqueuing on success and, on failure, handing
// the packet to the waiting list instead of dropping it immediately (spec
// section 4.6). self must be the concrete router this base is embedded in.
func (b *base) forward(self Router, pkt *drone.Packet) {
	if !self.NextHopSelection(pkt) {
		b.self.WaitingList.Add(pkt, b.waitDeadline)
		return
	}
	if err := b.self.TxQueue.Push(pkt); err != nil {
		b.metrics.RecordDrop()
	}
}

// waitingListSweepInterval bounds how often RunWaitingListSweep re-attempts
// route resolution if the caller passes a non-positive interval.
const waitingListSweepInterval = scheduler.VTime(600_000_000) // 600ms, spec section 6 default

// RunWaitingListSweep starts the periodic waiting-list sweep spec section
// 4.6 names: every interval, it retries NextHopSelection for every
// still-live waiting packet (moving resolved ones to the transmit queue)
// and drops every packet whose deadline has passed.
func (b *base) RunWaitingListSweep(sch *scheduler.Scheduler, self Router, interval scheduler.VTime) {
	if interval <= 0 {
		interval = waitingListSweepInterval
	}
	sch.Spawn("waiting-list-sweep", func(p *scheduler.Process) {
		for {
			if sig := p.Timeout(interval); sig.Interrupted {
				return
			}
			live, expired := b.self.WaitingList.Sweep(p.Scheduler().Now())
			for range expired {
				b.metrics.RecordDrop()
			}
			for _, pkt := range live {
				if !self.NextHopSelection(pkt) {
					continue
				}
				b.self.WaitingList.Remove(pkt.ID)
				if err := b.self.TxQueue.Push(pkt); err != nil {
					b.metrics.RecordDrop()
				}
			}
		}
	})
}

// jitterMS draws a uniform jitter in [lo, hi] milliseconds, used by every
// hello family's periodic timer (spec sections 4.5.1-4.5.4).
func jitterMS(lo, hi int) scheduler.VTime {
	return scheduler.VTime(lo+rand.IntN(hi-lo+1)) * 1_000_000 //nolint:gosec // timer jitter only
}
