package drone

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dantte-lp/dronesim/internal/scheduler"
)

// Wire format, grounded on internal/bfd/packet.go's MarshalControlPacket/
// UnmarshalControlPacket pair: a fixed-width header holding the fields
// common to every Kind, followed by a length-prefixed variant section
// whose shape depends on Kind. Unlike BFD's packet this has no wire
// transport to interoperate with (the channel is in-process); it lets a
// packet's core fields round-trip to bytes, per spec section 3's
// wire-representation addition. Nothing in the simulator calls it, and the
// per-drone logs are plain text.
const (
	wireHeaderSize = 38 // ID(8) Kind(1) LengthBits(4) CreatedAt(8) TTL(4) Mode(1) NextHop(4) SenderID(4) Dest(4)
)

// ErrBufTooSmall is returned by Marshal when buf cannot hold the encoded
// packet.
var ErrBufTooSmall = errors.New("drone: buffer too small to marshal packet")

// ErrPacketTooShort is returned by Unmarshal when buf is shorter than the
// mandatory header.
var ErrPacketTooShort = errors.New("drone: packet too short to unmarshal")

// wireLen returns the total encoded size of p's header plus its Data
// payload (the only variant this codec carries across the wire; Hello and
// PrudentItems are in-process-only bookkeeping with no transport need).
func (p *Packet) wireLen() int {
	return wireHeaderSize + 4 + len(p.Data)
}

// Marshal encodes p into buf, returning the number of bytes written.
// Only the fields meaningful to a receiver across a real transport are
// carried: identity, sizing/timing, addressing, and the opaque data
// payload. Hello/PrudentItems/Path stay in-process state, exactly as the
// teacher's codec carries only RFC 5880's on-wire fields and leaves
// session-local bookkeeping (e.g. detection timers) off the wire.
func (p *Packet) Marshal(buf []byte) (int, error) {
	n := p.wireLen()
	if len(buf) < n {
		return 0, fmt.Errorf("marshal packet %d: need %d bytes, got %d: %w", p.ID, n, len(buf), ErrBufTooSmall)
	}

	binary.BigEndian.PutUint64(buf[0:8], p.ID)
	buf[8] = byte(p.Kind)
	binary.BigEndian.PutUint32(buf[9:13], uint32(p.LengthBits))
	binary.BigEndian.PutUint64(buf[13:21], uint64(p.CreatedAt))
	binary.BigEndian.PutUint32(buf[21:25], uint32(p.TTL))
	buf[25] = byte(p.Mode)
	binary.BigEndian.PutUint32(buf[26:30], uint32(p.NextHop))
	binary.BigEndian.PutUint32(buf[30:34], uint32(p.SenderID))
	binary.BigEndian.PutUint32(buf[34:38], uint32(p.Dest))

	binary.BigEndian.PutUint32(buf[38:42], uint32(len(p.Data)))
	copy(buf[42:n], p.Data)

	return n, nil
}

// Unmarshal decodes buf into p, overwriting every field Marshal encodes.
func (p *Packet) Unmarshal(buf []byte) error {
	if len(buf) < wireHeaderSize+4 {
		return fmt.Errorf("unmarshal packet: received %d bytes, minimum %d: %w", len(buf), wireHeaderSize+4, ErrPacketTooShort)
	}

	p.ID = binary.BigEndian.Uint64(buf[0:8])
	p.Kind = Kind(buf[8])
	p.LengthBits = int(binary.BigEndian.Uint32(buf[9:13]))
	p.CreatedAt = scheduler.VTime(binary.BigEndian.Uint64(buf[13:21]))
	p.TTL = int(binary.BigEndian.Uint32(buf[21:25]))
	p.Mode = Mode(buf[25])
	p.NextHop = int(int32(binary.BigEndian.Uint32(buf[26:30])))
	p.SenderID = int(int32(binary.BigEndian.Uint32(buf[30:34])))
	p.Dest = int(int32(binary.BigEndian.Uint32(buf[34:38])))

	dataLen := binary.BigEndian.Uint32(buf[38:42])
	end := wireHeaderSize + 4 + int(dataLen)
	if len(buf) < end {
		return fmt.Errorf("unmarshal packet %d: data section needs %d bytes, got %d: %w", p.ID, end, len(buf), ErrPacketTooShort)
	}
	p.Data = append([]byte(nil), buf[wireHeaderSize+4:end]...)

	return nil
}
