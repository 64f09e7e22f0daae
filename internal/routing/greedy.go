package routing

import (
	"time"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/scheduler"
	"github.com/dantte-lp/dronesim/internal/simnet"
)

const (
	greedyHelloInterval = 500 * time.Millisecond
	greedyJitterLoMS     = 1
	greedyJitterHiMS     = 2
)

type greedyEntry struct {
	pos       drone.Position
	updatedAt scheduler.VTime
}

// Greedy implements spec section 4.5.2: next hop is the neighbor closest
// to the destination by Euclidean distance; if none is closer than self,
// the area is void and "no route" is reported.
type Greedy struct {
	base

	neighbors     map[int]greedyEntry
	entryLife     scheduler.VTime
	helloBits     int
	sweepInterval scheduler.VTime
}

// NewGreedy creates a Greedy router for self.
func NewGreedy(sch *scheduler.Scheduler, self *drone.Drone, reg *drone.Registry, ch *simnet.Channel, metrics Metrics, idAlloc *drone.IDAllocator, entryLifetime scheduler.VTime, helloBits int, waitDeadline, sweepInterval scheduler.VTime) *Greedy {
	return &Greedy{
		base:          newBase(sch, self, reg, ch, metrics, idAlloc, waitDeadline),
		neighbors:     make(map[int]greedyEntry),
		entryLife:     entryLifetime,
		helloBits:     helloBits,
		sweepInterval: sweepInterval,
	}
}

// Run starts the periodic position hello and the waiting-list sweep.
func (g *Greedy) Run(sch *scheduler.Scheduler) {
	sch.Spawn("greedy-hello", func(p *scheduler.Process) {
		for {
			p.Timeout(greedyHelloInterval + jitterMS(greedyJitterLoMS, greedyJitterHiMS))
			g.purgeExpired(g.sch.Now())
			g.sendHello()
		}
	})
	g.RunWaitingListSweep(sch, g, g.sweepInterval)
}

func (g *Greedy) sendHello() {
	pkt := &drone.Packet{
		ID:         g.idAlloc.Allocate(),
		Kind:       drone.KindHello,
		LengthBits: g.helloBits,
		CreatedAt:  g.sch.Now(),
		Mode:       drone.ModeBroadcast,
		SenderID:   int(g.self.ID),
		SenderPos:  [3]float64{g.self.Pos.X, g.self.Pos.Y, g.self.Pos.Z},
		Hello:      &drone.HelloPayload{Greedy: true},
	}
	if err := g.self.TxQueue.Push(pkt); err != nil {
		g.metrics.RecordDrop()
	}
}

func (g *Greedy) purgeExpired(now scheduler.VTime) {
	for id, e := range g.neighbors {
		if now-e.updatedAt > g.entryLife {
			delete(g.neighbors, id)
		}
	}
}

// NextHopSelection selects the neighbor minimizing distance to the
// destination, provided it is strictly closer than self.
func (g *Greedy) NextHopSelection(pkt *drone.Packet) bool {
	dest, ok := g.reg.Get(drone.ID(pkt.Dest))
	if !ok {
		return false
	}

	best := -1
	bestDist := g.self.Pos.Distance(dest.Pos)
	for id, e := range g.neighbors {
		dist := e.pos.Distance(dest.Pos)
		if dist < bestDist {
			bestDist = dist
			best = id
		}
	}
	if best == -1 {
		return false // void area: no neighbor is closer than self
	}
	pkt.NextHop = best
	return true
}

// PacketReception implements the Router contract.
func (g *Greedy) PacketReception(pkt *drone.Packet, src drone.ID) {
	switch pkt.Kind {
	case drone.KindHello:
		if pkt.Hello == nil || !pkt.Hello.Greedy {
			return
		}
		g.neighbors[int(src)] = greedyEntry{
			pos:       drone.Position{X: pkt.SenderPos[0], Y: pkt.SenderPos[1], Z: pkt.SenderPos[2]},
			updatedAt: g.sch.Now(),
		}
	case drone.KindData:
		if g.deliverIfSelf(pkt) {
			return
		}
		pkt.TTL++
		g.forward(g, pkt)
	}
}
