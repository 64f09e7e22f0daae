// Package drone holds the per-node data model: packets, the bounded
// transmit queue, the next-hop waiting list, and drone state shared across
// the MAC, mobility, and routing layers.
package drone

import "github.com/dantte-lp/dronesim/internal/scheduler"

// Kind identifies a Packet's variant.
type Kind uint8

const (
	// KindData carries an application payload toward a destination.
	KindData Kind = iota
	// KindAck acknowledges receipt of a unicast KindData frame.
	KindAck
	// KindHello carries routing-family-specific neighbor advertisement.
	KindHello
	// KindVf is a topology hello/ack used outside the hello families above.
	KindVf
	// KindPrudentDrone is a single nested item inside a PrudentDataPacket.
	KindPrudentDrone
	// KindPrudentData aggregates multiple PrudentDrone items from possibly
	// distinct origins into one outgoing broadcast frame.
	KindPrudentData
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindData:
		return "Data"
	case KindAck:
		return "Ack"
	case KindHello:
		return "Hello"
	case KindVf:
		return "Vf"
	case KindPrudentDrone:
		return "PrudentDrone"
	case KindPrudentData:
		return "PrudentData"
	default:
		return "Unknown"
	}
}

// Mode is the transmission mode of a Packet.
type Mode uint8

const (
	// ModeUnicast targets exactly one receiver (NextHop).
	ModeUnicast Mode = iota
	// ModeBroadcast targets every drone within range.
	ModeBroadcast
)

// HelloPayload is the per-routing-family content of a KindHello packet.
// Exactly one field is populated, selected by the owning router.
type HelloPayload struct {
	// DSDV carries a routing-table snapshot keyed by destination id.
	DSDV map[int]DSDVEntry
	// Greedy carries only the sender's position (set via Packet.SenderPos).
	Greedy bool
	// Prudent carries the sender's neighbor set and each neighbor's own
	// adjacency, i.e. the sender's 1-hop and 2-hop view of the local graph.
	Prudent *PrudentHelloPayload
}

// DSDVEntry is one row of a DSDV routing-table snapshot, as carried in a
// hello and as stored in the table itself.
type DSDVEntry struct {
	NextHop    int
	HopCount   int
	Seq        uint32
	UpdatedAt  scheduler.VTime
}

// PrudentHelloPayload advertises the sender's neighbor set plus, for each
// neighbor, that neighbor's own adjacency (the 2-hop view PrudentCaster's
// local-graph construction needs).
type PrudentHelloPayload struct {
	Neighbors     []int
	NeighborAdj   map[int][]int
}

// PrudentDroneItem is a single data item nested inside a PrudentDataPacket:
// the original payload plus the path it has travelled so far.
type PrudentDroneItem struct {
	OriginID  int
	ItemID    uint64
	Path      []int // [origin, ..., previous hop]
	Length    int   // bits, for airtime accounting of the aggregate frame
	CreatedAt scheduler.VTime // stamped on first local reception, carried unchanged thereafter
}

// Packet is a sum type over every frame exchanged on the channel. Common
// fields are always populated; Payload-family fields are populated only
// for the matching Kind.
type Packet struct {
	ID   uint64
	Kind Kind

	LengthBits int
	CreatedAt  scheduler.VTime
	TTL        int
	Mode       Mode
	NextHop    int
	Path       []int // optional precomputed path (OPAR); consumed hop by hop

	// SenderID/SenderPos/Dest are populated on the variants that need them.
	SenderID int
	SenderPos [3]float64
	Dest      int

	// RetransmitCount is the MAC's per-sender retransmission counter for
	// this packet, carried on the packet so a retry re-enqueue does not
	// lose the count.
	RetransmitCount int

	// FirstAttemptAt is set exactly once, on the first MAC transmission.
	// Retries must not overwrite it (spec section 4.3, 4.6 lifecycle rule).
	FirstAttemptAt scheduler.VTime
	firstAttemptSet bool

	// AckOf is the packet id being acknowledged, valid only for KindAck.
	AckOf uint64

	Hello *HelloPayload

	// PrudentItems is the payload of a KindPrudentData frame: the items
	// being forwarded in this round.
	PrudentItems []PrudentDroneItem

	// Data is the opaque application payload of a KindData packet.
	Data []byte
}

// MarkFirstAttempt records now as the first-attempt time, unless it has
// already been recorded (spec section 4.3: "recorded only on the first
// transmission of a packet").
func (p *Packet) MarkFirstAttempt(now scheduler.VTime) {
	if p.firstAttemptSet {
		return
	}
	p.FirstAttemptAt = now
	p.firstAttemptSet = true
}

// Clone returns a deep-enough copy for a receiver's own accounting: a
// receiving drone must not mutate the sender's TTL/path/retransmit state
// through a shared pointer (spec section 3: "copied at each hop").
func (p *Packet) Clone() *Packet {
	cp := *p
	if p.Path != nil {
		cp.Path = append([]int(nil), p.Path...)
	}
	if p.Data != nil {
		cp.Data = append([]byte(nil), p.Data...)
	}
	if p.Hello != nil {
		h := *p.Hello
		if p.Hello.DSDV != nil {
			h.DSDV = make(map[int]DSDVEntry, len(p.Hello.DSDV))
			for k, v := range p.Hello.DSDV {
				h.DSDV[k] = v
			}
		}
		if p.Hello.Prudent != nil {
			ph := *p.Hello.Prudent
			ph.Neighbors = append([]int(nil), p.Hello.Prudent.Neighbors...)
			if p.Hello.Prudent.NeighborAdj != nil {
				ph.NeighborAdj = make(map[int][]int, len(p.Hello.Prudent.NeighborAdj))
				for k, v := range p.Hello.Prudent.NeighborAdj {
					ph.NeighborAdj[k] = append([]int(nil), v...)
				}
			}
			h.Prudent = &ph
		}
		cp.Hello = &h
	}
	if p.PrudentItems != nil {
		cp.PrudentItems = append([]PrudentDroneItem(nil), p.PrudentItems...)
	}
	return &cp
}
