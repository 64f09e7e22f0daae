package routing

import (
	"math"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/scheduler"
	"github.com/dantte-lp/dronesim/internal/simnet"
)

// OPAR implements spec section 4.5.3: a predictive, load-aware path
// selection run once at the source, attaching the resolved path to the
// packet; relays simply pop their hop off it.
type OPAR struct {
	base

	maxCommRange  float64
	w1, w2        float64
	sweepInterval scheduler.VTime
}

// OPARWeights bundles the objective weights from spec section 4.5.3.
type OPARWeights struct {
	W1, W2 float64
}

// NewOPAR creates an OPAR router for self.
func NewOPAR(sch *scheduler.Scheduler, self *drone.Drone, reg *drone.Registry, ch *simnet.Channel, metrics Metrics, idAlloc *drone.IDAllocator, maxCommRange float64, weights OPARWeights, waitDeadline, sweepInterval scheduler.VTime) *OPAR {
	return &OPAR{
		base:          newBase(sch, self, reg, ch, metrics, idAlloc, waitDeadline),
		maxCommRange:  maxCommRange,
		w1:            weights.W1,
		w2:            weights.W2,
		sweepInterval: sweepInterval,
	}
}

// Run starts OPAR's waiting-list sweep; OPAR itself has no periodic hello,
// since paths are resolved on demand from the registry at origination.
func (o *OPAR) Run(sch *scheduler.Scheduler) {
	o.RunWaitingListSweep(sch, o, o.sweepInterval)
}

// NextHopSelection resolves a full path at the source (spec section
// 4.5.3) and pops the next hop for relays carrying an attached path.
func (o *OPAR) NextHopSelection(pkt *drone.Packet) bool {
	if len(pkt.Path) > 0 {
		next := pkt.Path[0]
		pkt.NextHop = next
		pkt.Path = pkt.Path[1:]
		return true
	}
	if pkt.SenderID != int(o.self.ID) {
		// Not the originating drone and no path was attached: cannot route.
		return false
	}

	path, ok := o.resolvePath(int(o.self.ID), pkt.Dest)
	if !ok || len(path) < 2 {
		return false
	}

	pkt.Path = append([]int(nil), path[1:]...)
	next := pkt.Path[0]
	pkt.NextHop = next
	pkt.Path = pkt.Path[1:]
	return true
}

// PacketReception implements the Router contract.
func (o *OPAR) PacketReception(pkt *drone.Packet, src drone.ID) {
	if pkt.Kind != drone.KindData {
		return
	}
	if o.deliverIfSelf(pkt) {
		return
	}
	pkt.TTL++
	o.forward(o, pkt)
}

type oparLink struct{ i, j int }

// resolvePath implements spec section 4.5.3's iterative refinement:
// Dijkstra over an in-range cost matrix, then repeatedly dropping the
// shortest-lifetime edges of the current best path and re-solving, keeping
// whichever candidate minimizes w1*cost + w2*max(1/Δt over its links).
func (o *OPAR) resolvePath(src, dst int) ([]int, bool) {
	drones := o.reg.All()
	ids := make([]int, 0, len(drones))
	for _, d := range drones {
		ids = append(ids, int(d.ID))
	}

	removed := make(map[oparLink]bool)

	bestPath, bestObj, ok := o.dijkstraAndScore(ids, src, dst, removed)
	if !ok {
		return nil, false
	}

	for {
		threshold := o.minLifetimeOnPath(bestPath)
		removedAny := false
		for i := range bestPath[:len(bestPath)-1] {
			a, b := bestPath[i], bestPath[i+1]
			if o.linkLifetime(a, b) <= threshold {
				removed[link(a, b)] = true
				removedAny = true
			}
		}
		if !removedAny {
			break
		}

		candidate, obj, ok := o.dijkstraAndScore(ids, src, dst, removed)
		if !ok || obj >= bestObj {
			break
		}
		bestPath, bestObj = candidate, obj
	}

	return bestPath, true
}

func link(a, b int) oparLink {
	if a > b {
		a, b = b, a
	}
	return oparLink{a, b}
}

func (o *OPAR) minLifetimeOnPath(path []int) scheduler.VTime {
	min := scheduler.VTime(math.MaxInt64)
	for i := range path[:len(path)-1] {
		lt := o.linkLifetime(path[i], path[i+1])
		if lt < min {
			min = lt
		}
	}
	return min
}

// dijkstraAndScore runs Dijkstra over the in-range graph minus removed
// links and scores the resulting path against the objective in spec
// section 4.5.3.
func (o *OPAR) dijkstraAndScore(ids []int, src, dst int, removed map[oparLink]bool) ([]int, float64, bool) {
	dist := make(map[int]float64, len(ids))
	prev := make(map[int]int, len(ids))
	visited := make(map[int]bool, len(ids))
	for _, id := range ids {
		dist[id] = math.Inf(1)
	}
	dist[src] = 0

	for range ids {
		u, uDist := -1, math.Inf(1)
		for _, id := range ids {
			if !visited[id] && dist[id] < uDist {
				u, uDist = id, dist[id]
			}
		}
		if u == -1 {
			break
		}
		visited[u] = true
		if u == dst {
			break
		}

		for _, v := range ids {
			if v == u || visited[v] || removed[link(u, v)] {
				continue
			}
			if !o.inRange(u, v) {
				continue
			}
			alt := dist[u] + 1 // cost[i,j] = 1 when in range
			if alt < dist[v] {
				dist[v] = alt
				prev[v] = u
			}
		}
	}

	if math.IsInf(dist[dst], 1) {
		return nil, 0, false
	}

	path := []int{dst}
	for cur := dst; cur != src; {
		p, ok := prev[cur]
		if !ok {
			return nil, 0, false
		}
		path = append([]int{p}, path...)
		cur = p
	}

	maxInvLifetime := 0.0
	for i := range path[:len(path)-1] {
		lt := o.linkLifetime(path[i], path[i+1])
		inv := 1.0
		if lt > 0 {
			inv = 1.0 / float64(lt)
		}
		if inv > maxInvLifetime {
			maxInvLifetime = inv
		}
	}

	obj := o.w1*dist[dst] + o.w2*maxInvLifetime
	return path, obj, true
}

func (o *OPAR) inRange(a, b int) bool {
	da, ok := o.reg.Get(drone.ID(a))
	if !ok {
		return false
	}
	db, ok := o.reg.Get(drone.ID(b))
	if !ok {
		return false
	}
	return da.Pos.Distance(db.Pos) <= o.maxCommRange
}

// linkLifetime predicts the time until drones a and b separate beyond
// MaxCommRange given their current positions and velocities, by solving
// |relPos + relVel*t| = R for the larger positive root (spec section
// 4.5.3). With no relative motion the result is effectivelyForever while
// in range and 0 otherwise; with no real root it is effectivelyForever;
// when the larger root is not positive (the pair has already separated
// beyond range) it is 0.
func (o *OPAR) linkLifetime(a, b int) scheduler.VTime {
	da, ok1 := o.reg.Get(drone.ID(a))
	db, ok2 := o.reg.Get(drone.ID(b))
	if !ok1 || !ok2 {
		return 0
	}

	rpx, rpy, rpz := da.Pos.X-db.Pos.X, da.Pos.Y-db.Pos.Y, da.Pos.Z-db.Pos.Z
	rvx, rvy, rvz := da.Vel.X-db.Vel.X, da.Vel.Y-db.Vel.Y, da.Vel.Z-db.Vel.Z

	aCoef := rvx*rvx + rvy*rvy + rvz*rvz
	bCoef := 2 * (rpx*rvx + rpy*rvy + rpz*rvz)
	cCoef := rpx*rpx+rpy*rpy+rpz*rpz - o.maxCommRange*o.maxCommRange

	const effectivelyForever = scheduler.VTime(math.MaxInt64 / 2)

	if aCoef == 0 {
		if cCoef <= 0 {
			return effectivelyForever // stationary relative position, already in range
		}
		return 0 // stationary and already out of range
	}

	disc := bCoef*bCoef - 4*aCoef*cCoef
	if disc < 0 {
		return effectivelyForever
	}

	sqrtDisc := math.Sqrt(disc)
	r1 := (-bCoef + sqrtDisc) / (2 * aCoef)
	r2 := (-bCoef - sqrtDisc) / (2 * aCoef)
	largest := math.Max(r1, r2)
	if largest <= 0 {
		return 0
	}
	return scheduler.VTime(largest)
}
