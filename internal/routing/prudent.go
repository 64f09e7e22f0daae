package routing

import (
	"math/rand/v2"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/scheduler"
	"github.com/dantte-lp/dronesim/internal/simnet"
)

// BroadcastPolicy selects how PrudentCaster decides whether to re-forward
// a received item (spec section 4.5.4 step 4).
type BroadcastPolicy uint8

const (
	// PolicyMLST suppresses re-broadcast at leaves of the per-origin MLST
	// (the authoritative, TDMA-aligned variant spec section 9 calls out as
	// superseding earlier forms).
	PolicyMLST BroadcastPolicy = iota
	// PolicyFlood re-broadcasts every item unconditionally.
	PolicyFlood
	// PolicyGossip re-broadcasts with probability 1/|siblings(src)|.
	PolicyGossip
)

type prudentItem struct {
	item drone.PrudentDroneItem
	seen bool
}

// PrudentCaster implements spec section 4.5.4: gossip broadcast with
// MLST-based suppression over a locally-built topology graph.
type PrudentCaster struct {
	base

	graph    *LocalGraph
	policy   BroadcastPolicy
	helloBits int
	dataBits  int

	// TDMA parameters (spec section 4.5.4): slot is this drone's index in
	// [0, n), slotDuration is the per-node slot width, n is the frame's
	// node count (frame length = slotDuration*n).
	slot         int
	slotDuration scheduler.VTime
	n            int

	seenItems map[prudentItemKey]bool
	pending   []drone.PrudentDroneItem

	log DroneLogger
}

type prudentItemKey struct {
	origin int
	itemID uint64
}

// NewPrudentCaster creates a PrudentCaster router for self at the given
// TDMA slot index. log receives one record per uniquely-received item
// (spec section 6's per-drone delivery log); it may be nil.
func NewPrudentCaster(sch *scheduler.Scheduler, self *drone.Drone, reg *drone.Registry, ch *simnet.Channel, metrics Metrics, idAlloc *drone.IDAllocator, staleWindow scheduler.VTime, slot, n int, slotDuration scheduler.VTime, helloBits, dataBits int, policy BroadcastPolicy, log DroneLogger) *PrudentCaster {
	return &PrudentCaster{
		base:         newBase(sch, self, reg, ch, metrics, idAlloc, 0),
		graph:        NewLocalGraph(staleWindow),
		policy:       policy,
		helloBits:    helloBits,
		dataBits:     dataBits,
		slot:         slot,
		slotDuration: slotDuration,
		n:            n,
		seenItems:    make(map[prudentItemKey]bool),
		log:          log,
	}
}

const prudentHelloInterval = 500 // per-round hello cadence, in slotDuration units

// Run starts the hello timer and the TDMA-aligned data-broadcast timer.
func (c *PrudentCaster) Run(sch *scheduler.Scheduler) {
	sch.Spawn("prudent-hello", func(p *scheduler.Process) {
		for {
			p.Timeout(prudentHelloInterval * c.slotDuration)
			c.sendHello()
		}
	})

	frame := c.slotDuration * scheduler.VTime(c.n)
	slotStart := c.slotDuration * scheduler.VTime(c.slot)
	sch.Spawn("prudent-data", func(p *scheduler.Process) {
		p.Timeout(slotStart)
		for {
			// Transmit within the first half of this node's own slot.
			offset := scheduler.VTime(rand.Int64N(int64(c.slotDuration / 2))) //nolint:gosec // TDMA jitter only
			p.Timeout(offset)
			c.transmitRound()
			p.Timeout(frame - offset)
		}
	})
}

func (c *PrudentCaster) sendHello() {
	neighbors := c.graph.Neighbors(int(c.self.ID))
	adj := make(map[int][]int, len(neighbors))
	for _, n := range neighbors {
		adj[n] = c.graph.Neighbors(n)
	}

	pkt := &drone.Packet{
		ID:         c.idAlloc.Allocate(),
		Kind:       drone.KindHello,
		LengthBits: c.helloBits,
		CreatedAt:  c.sch.Now(),
		Mode:       drone.ModeBroadcast,
		SenderID:   int(c.self.ID),
		Hello: &drone.HelloPayload{
			Prudent: &drone.PrudentHelloPayload{Neighbors: neighbors, NeighborAdj: adj},
		},
	}
	if err := c.self.TxQueue.Push(pkt); err != nil {
		c.metrics.RecordDrop()
	}
}

// transmitRound aggregates eligible pending items into one outgoing
// PrudentDataPacket (spec section 4.5.4).
func (c *PrudentCaster) transmitRound() {
	c.graph.Prune(c.sch.Now())

	var out []drone.PrudentDroneItem
	for _, it := range c.pending {
		if !c.shouldForward(it) {
			continue // suppressed: dropped, not retried in a later round
		}
		out = append(out, drone.PrudentDroneItem{
			OriginID:  it.OriginID,
			ItemID:    it.ItemID,
			Path:      append(append([]int(nil), it.Path...), int(c.self.ID)),
			Length:    it.Length,
			CreatedAt: it.CreatedAt,
		})
	}
	c.pending = nil

	if len(out) == 0 {
		return
	}
	pkt := &drone.Packet{
		ID:           c.idAlloc.Allocate(),
		Kind:         drone.KindPrudentData,
		LengthBits:   c.dataBits,
		CreatedAt:    c.sch.Now(),
		Mode:         drone.ModeBroadcast,
		SenderID:     int(c.self.ID),
		PrudentItems: out,
	}
	if err := c.self.TxQueue.Push(pkt); err != nil {
		c.metrics.RecordDrop()
	}
}

// shouldForward implements spec section 4.5.4 steps 3-4.
func (c *PrudentCaster) shouldForward(it drone.PrudentDroneItem) bool {
	switch c.policy {
	case PolicyFlood:
		return true
	case PolicyGossip:
		siblings := c.graph.Degree(lastHop(it))
		if siblings <= 0 {
			siblings = 1
		}
		return rand.Float64() < 1.0/float64(siblings) //nolint:gosec // gossip probability only
	default: // PolicyMLST
		tree := BuildMLST(c.graph, it.OriginID)
		extended := append(append([]int(nil), it.Path...), int(c.self.ID))
		return tree.PathExists(extended) && !tree.IsLeaf(int(c.self.ID))
	}
}

func lastHop(it drone.PrudentDroneItem) int {
	if len(it.Path) == 0 {
		return it.OriginID
	}
	return it.Path[len(it.Path)-1]
}

// NextHopSelection is a no-op for PrudentCaster: it only ever broadcasts,
// there is no unicast next hop to resolve.
func (c *PrudentCaster) NextHopSelection(*drone.Packet) bool { return false }

// PacketReception implements the Router contract: hellos refresh the
// local graph; PrudentData frames are unpacked item by item, with loop
// prevention and delivery accounting applied to each fresh item.
func (c *PrudentCaster) PacketReception(pkt *drone.Packet, src drone.ID) {
	switch pkt.Kind {
	case drone.KindHello:
		c.applyHello(pkt, src)
	case drone.KindPrudentData:
		c.applyData(pkt, src)
	}
}

func (c *PrudentCaster) applyHello(pkt *drone.Packet, src drone.ID) {
	if pkt.Hello == nil || pkt.Hello.Prudent == nil {
		return
	}
	now := c.sch.Now()
	ph := pkt.Hello.Prudent

	for _, n := range ph.Neighbors {
		c.graph.Touch(int(src), n, now)
	}
	for n, adj := range ph.NeighborAdj {
		for _, m := range adj {
			c.graph.Touch(n, m, now)
		}
	}
}

func (c *PrudentCaster) applyData(pkt *drone.Packet, src drone.ID) {
	for _, it := range pkt.PrudentItems {
		if lastHop(it) == int(c.self.ID) {
			continue // loop prevention: prev_drone == self
		}

		key := prudentItemKey{origin: it.OriginID, itemID: it.ItemID}
		fresh := !c.seenItems[key]
		if fresh {
			c.seenItems[key] = true

			// it.CreatedAt is the timestamp this item first entered
			// dissemination (stamped below, the first time any drone sees
			// it); pkt.CreatedAt is this hop's send time and is used only
			// as a fallback for an item with no stamp yet.
			createdAt := it.CreatedAt
			if createdAt == 0 {
				createdAt = pkt.CreatedAt
			}
			latencyUS := float64(c.sch.Now()-createdAt) / 1e3 // VTime is in nanoseconds

			c.metrics.RecordDelivery(Delivered{PacketID: it.ItemID, LatencyUS: latencyUS, HopCount: len(it.Path)})
			if c.log != nil {
				_ = c.log.Record(it.ItemID, latencyUS)
			}

			c.pending = append(c.pending, drone.PrudentDroneItem{
				OriginID:  it.OriginID,
				ItemID:    it.ItemID,
				Path:      append([]int(nil), it.Path...), // already ends at src
				Length:    it.Length,
				CreatedAt: createdAt,
			})
		}
	}
}
