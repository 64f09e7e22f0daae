// Package simnet implements the shared wireless channel: per-receiver
// inboxes, sensing-range contention, and interference-aware delivery.
//
// Grounded on internal/netio's PacketConn/Listener layering (a receive
// path with a buffered per-target inbox) and internal/bfd.Manager's
// demultiplexing, generalized from "one UDP socket per session" to "one
// inbox per drone, shared by every other drone's sender".
package simnet

import (
	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/scheduler"
)

// Frame is a packet in flight on the channel, addressed to one receiver.
type Frame struct {
	Packet     *drone.Packet
	SenderID   drone.ID
	ReceiverID drone.ID
	// StartAt/EndAt bound the air-time interval during which this frame is
	// vulnerable to interference at the receiver.
	StartAt, EndAt scheduler.VTime

	collided bool
}

// inboxSize bounds each receiver's pending-frame buffer so a burst from
// many simultaneous senders cannot block the delivering process forever;
// sized generously since frames are drained promptly at channel-sense time.
const inboxSize = 64

// Channel is the shared medium. It tracks, per receiver, the inbox of
// delivered frames and the in-flight unicast transmissions used for
// interference detection, plus per-sender exclusive occupancy resources
// used to answer sensing-range queries.
type Channel struct {
	sch *scheduler.Scheduler
	reg *drone.Registry

	sensingRange   float64
	maxCommRange   float64

	inboxes map[drone.ID]chan Frame

	// occupied is keyed by sender id: present (and held) while that sender
	// is transmitting, generalizing spec section 3's channel_states.
	occupied map[drone.ID]*scheduler.Resource

	// inFlight tracks unicast frames currently on the air, to detect
	// interference: two overlapping unicasts to the same receiver collide.
	inFlight []*Frame

	collisions int
}

// Config bundles the channel parameters from spec section 6.
type Config struct {
	SensingRange float64
	MaxCommRange float64
}

// New creates a Channel over every drone currently in reg. Drones
// registered after New must be added explicitly via AddDrone.
func New(sch *scheduler.Scheduler, reg *drone.Registry, cfg Config) *Channel {
	c := &Channel{
		sch:          sch,
		reg:          reg,
		sensingRange: cfg.SensingRange,
		maxCommRange: cfg.MaxCommRange,
		inboxes:      make(map[drone.ID]chan Frame),
		occupied:     make(map[drone.ID]*scheduler.Resource),
	}
	for _, d := range reg.All() {
		c.AddDrone(d.ID)
	}
	return c
}

// AddDrone wires an inbox and occupancy resource for id.
func (c *Channel) AddDrone(id drone.ID) {
	c.inboxes[id] = make(chan Frame, inboxSize)
	c.occupied[id] = scheduler.NewResource(c.sch)
}

// Inbox returns the receive channel for id. Receivers read frames
// addressed to them from here.
func (c *Channel) Inbox(id drone.ID) <-chan Frame {
	return c.inboxes[id]
}

// Occupy returns the exclusive-occupancy resource for sender id; a
// transmitting drone must Request it (and release on every exit path) for
// the duration of its transmission, per spec section 3/5.
func (c *Channel) Occupy(id drone.ID) *scheduler.Resource {
	return c.occupied[id]
}

// ChannelBusy implements spec section 4.2's check_channel_availability:
// the channel is busy for a candidate sender S iff some other drone within
// SensingRange currently holds its occupancy resource.
func (c *Channel) ChannelBusy(sender drone.ID) bool {
	self, ok := c.reg.Get(sender)
	if !ok {
		return false
	}
	for id, res := range c.occupied {
		if id == sender || !res.Held() {
			continue
		}
		other, ok := c.reg.Get(id)
		if !ok {
			continue
		}
		if self.Pos.Distance(other.Pos) <= c.sensingRange {
			return true
		}
	}
	return false
}

// InRange reports whether two drones are within the maximum communication
// range (spec section 4.2: derived from an SNR threshold). Broadcast uses
// it to choose receivers.
func (c *Channel) InRange(a, b drone.ID) bool {
	da, ok := c.reg.Get(a)
	if !ok {
		return false
	}
	db, ok := c.reg.Get(b)
	if !ok {
		return false
	}
	return da.Pos.Distance(db.Pos) <= c.maxCommRange
}

// Unicast delivers pkt to receiver after the caller has already started
// the airtime window (StartAt..EndAt). It must be called before the MAC's
// airtime timeout advances the clock, so the receiver observes an
// in-flight frame during that interval (spec section 5 ordering rule).
// Overlapping unicasts to the same receiver during the same air-time
// window collide; both are lost and Collisions increments once per
// colliding pair.
func (c *Channel) Unicast(sender drone.ID, receiver drone.ID, pkt *drone.Packet, start, end scheduler.VTime) {
	f := &Frame{Packet: pkt, SenderID: sender, ReceiverID: receiver, StartAt: start, EndAt: end}

	for _, other := range c.inFlight {
		if other.ReceiverID == receiver && other.overlaps(f) {
			c.collisions++
			other.collided = true
			f.collided = true
		}
	}
	c.inFlight = append(c.inFlight, f)

	c.sch.Spawn("channel-deliver", func(p *scheduler.Process) {
		p.Timeout(end - c.sch.Now())
		c.finish(f)
		if f.collided {
			return
		}
		c.deliver(receiver, *f)
	})
}

// Broadcast delivers pkt to every drone within MaxCommRange of sender,
// except the sender itself. Broadcasts are not subject to the unicast
// collision model (no ACK window to protect), matching the teacher's
// treatment of hello-family traffic as best-effort.
func (c *Channel) Broadcast(sender drone.ID, pkt *drone.Packet, start, end scheduler.VTime) {
	for _, d := range c.reg.All() {
		if d.ID == sender || !c.InRange(sender, d.ID) {
			continue
		}
		id := d.ID
		c.sch.Spawn("channel-broadcast", func(p *scheduler.Process) {
			p.Timeout(end - c.sch.Now())
			c.deliver(id, Frame{Packet: pkt, SenderID: sender, StartAt: start, EndAt: end})
		})
	}
}

// Multicast delivers pkt to exactly the drones named in ids.
func (c *Channel) Multicast(sender drone.ID, ids []drone.ID, pkt *drone.Packet, start, end scheduler.VTime) {
	for _, id := range ids {
		if id == sender {
			continue
		}
		target := id
		c.sch.Spawn("channel-multicast", func(p *scheduler.Process) {
			p.Timeout(end - c.sch.Now())
			c.deliver(target, Frame{Packet: pkt, SenderID: sender, StartAt: start, EndAt: end})
		})
	}
}

// Collisions returns the cumulative collision counter.
func (c *Channel) Collisions() int { return c.collisions }

func (c *Channel) deliver(receiver drone.ID, f Frame) {
	ch, ok := c.inboxes[receiver]
	if !ok {
		return
	}
	select {
	case ch <- f:
	default:
		// Inbox saturated: treated like any other silent drop at the
		// receiver (spec section 4.6 queue-overflow rule generalizes here).
	}
}

func (c *Channel) finish(f *Frame) {
	for i, other := range c.inFlight {
		if other == f {
			c.inFlight = append(c.inFlight[:i], c.inFlight[i+1:]...)
			return
		}
	}
}

func (f *Frame) overlaps(g *Frame) bool {
	return f.StartAt < g.EndAt && g.StartAt < f.EndAt
}
