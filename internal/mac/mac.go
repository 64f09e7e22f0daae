// Package mac implements CSMA/CA without RTS/CTS (spec section 4.3),
// including its pure-ALOHA variant, as a per-drone sender/receiver pair of
// scheduler processes.
//
// Grounded on internal/bfd's session control loops (goroutine-per-session
// issuing Timeout/Request through the scheduler) and fsm.go's pattern of
// keeping protocol logic free of direct session-to-session pointers;
// here every cross-drone reference goes through drone.Registry.
package mac

import (
	"log/slog"
	"math/rand/v2"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/scheduler"
	"github.com/dantte-lp/dronesim/internal/simnet"
)

// Router is the contract MAC needs from the routing layer (spec section
// 4.5's common contract, restricted to what MAC itself drives).
type Router interface {
	// NextHopSelection fills pkt.NextHop in place. ok is false when no
	// route exists.
	NextHopSelection(pkt *drone.Packet) (ok bool)
	// PacketReception handles an inbound packet at L3, dispatching on its
	// variant (including generating and unicasting an ACK for unicast
	// data packets addressed to this drone).
	PacketReception(pkt *drone.Packet, src drone.ID)
}

// Config holds the external parameters from spec section 6 that shape the
// CSMA/CA state machine.
type Config struct {
	BitRate                 float64 // bits per VTime unit (one nanosecond)
	SlotDuration            scheduler.VTime
	DIFS                    scheduler.VTime
	SIFS                    scheduler.VTime
	AckTimeout              scheduler.VTime
	AckPacketLengthBits     int
	CWMin                   int
	MaxRetransmissionAttempt int

	// PureAloha selects the simplified variant of spec section 4.3's last
	// paragraph in place of the DIFS/backoff state machine.
	PureAloha bool
}

// MAC drives one drone's transmit attempts and inbound frame handling.
type MAC struct {
	cfg Config

	d       *drone.Drone
	reg     *drone.Registry
	ch      *simnet.Channel
	router  Router
	logger  *slog.Logger

	// waitAck maps a packet id currently awaiting an ACK to the OneShot
	// fired when that ACK arrives, implementing the cancellable
	// "wait_ack"+drone_id+"_"+packet_id operation from spec section 5.
	waitAck map[uint64]*scheduler.OneShot
}

// New creates a MAC instance for drone d.
func New(sch *scheduler.Scheduler, d *drone.Drone, reg *drone.Registry, ch *simnet.Channel, router Router, cfg Config, logger *slog.Logger) *MAC {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MAC{
		cfg:     cfg,
		d:       d,
		reg:     reg,
		ch:      ch,
		router:  router,
		logger:  logger.With(slog.Int("drone", int(d.ID))),
		waitAck: make(map[uint64]*scheduler.OneShot),
	}
}

// airtime returns the transmission duration of a packet of the given
// length in bits, per spec section 4.2 ("packet.length / bit_rate").
func (m *MAC) airtime(lengthBits int) scheduler.VTime {
	return scheduler.VTime(float64(lengthBits) / m.cfg.BitRate)
}

// Run starts the sender and receiver loops for this drone's MAC layer. It
// returns immediately; the loops run as scheduler processes for the rest
// of the simulation.
func (m *MAC) Run(sch *scheduler.Scheduler) {
	sch.Spawn("mac-send", func(p *scheduler.Process) { m.sendLoop(p) })
	sch.Spawn("mac-recv", func(p *scheduler.Process) { m.recvLoop(p) })
}

// sendLoop repeatedly drains the drone's transmit queue, sending each
// packet with the configured CSMA/CA (or pure-ALOHA) discipline.
func (m *MAC) sendLoop(p *scheduler.Process) {
	for {
		pkt := m.d.TxQueue.Peek()
		if pkt == nil {
			p.Timeout(m.cfg.SlotDuration)
			continue
		}

		key := drone.ProcKey{Op: "mac_send", DroneID: m.d.ID, PacketID: pkt.ID}
		m.d.Procs.Start(key, p)

		if m.cfg.PureAloha {
			m.sendAloha(p, pkt)
		} else {
			m.sendCSMA(p, pkt)
		}

		m.d.Procs.Finish(key)
	}
}

// sendCSMA implements spec section 4.3 steps 1-7.
func (m *MAC) sendCSMA(p *scheduler.Process, pkt *drone.Packet) {
	attempt := pkt.RetransmitCount + 1
	cw := (m.cfg.CWMin+1)<<(attempt-1) - 1
	backoff := scheduler.VTime(rand.IntN(max(cw, 1))) * m.cfg.SlotDuration //nolint:gosec // jitter, not security sensitive
	toWait := m.cfg.DIFS + backoff

	for {
		for m.ch.ChannelBusy(m.d.ID) {
			p.Timeout(m.cfg.SlotDuration)
		}

		listenerDone := make(chan struct{})
		m.attachBusyListener(p, listenerDone)

		sig := p.Timeout(toWait)
		close(listenerDone)

		if !sig.Interrupted {
			break
		}

		elapsed := sig.Elapsed
		if elapsed > m.cfg.DIFS {
			// Interrupted in the backoff segment: freeze the backoff at
			// its remaining value. An interrupt inside DIFS leaves it as is.
			backoff -= elapsed - m.cfg.DIFS
			if backoff < 0 {
				backoff = 0
			}
		}
		toWait = m.cfg.DIFS + backoff
	}

	pkt.MarkFirstAttempt(p.Scheduler().Now())

	release := p.Request(m.ch.Occupy(m.d.ID))

	switch pkt.Mode {
	case drone.ModeBroadcast:
		start := p.Scheduler().Now()
		end := start + m.airtime(pkt.LengthBits)
		m.ch.Broadcast(m.d.ID, pkt, start, end)
		p.Timeout(end - start)
		release()
		m.d.TxQueue.Remove(pkt.ID)
		return
	case drone.ModeUnicast:
		start := p.Scheduler().Now()
		end := start + m.airtime(pkt.LengthBits)
		m.ch.Unicast(m.d.ID, drone.ID(pkt.NextHop), pkt, start, end)
		p.Timeout(end - start)

		// Protect the ACK window: channel stays held for SIFS + ACK airtime,
		// then releases before the (separate, non-blocking) ACK wait so
		// ChannelBusy only reflects real airtime, not the whole ACK timeout.
		ackWindow := m.cfg.SIFS + m.airtime(m.cfg.AckPacketLengthBits)
		p.Timeout(ackWindow)
		release()
	}

	m.awaitAck(p, pkt)
}

// sendAloha implements spec section 4.3's pure-ALOHA variant.
func (m *MAC) sendAloha(p *scheduler.Process, pkt *drone.Packet) {
	pkt.MarkFirstAttempt(p.Scheduler().Now())

	release := p.Request(m.ch.Occupy(m.d.ID))
	start := p.Scheduler().Now()
	end := start + vanishingDelay
	if pkt.Mode == drone.ModeBroadcast {
		m.ch.Broadcast(m.d.ID, pkt, start, end)
		p.Timeout(vanishingDelay)
		release()
		m.d.TxQueue.Remove(pkt.ID)
		return
	}
	m.ch.Unicast(m.d.ID, drone.ID(pkt.NextHop), pkt, start, end)
	p.Timeout(vanishingDelay)
	release()

	m.awaitAck(p, pkt)
}

// vanishingDelay is the pure-ALOHA "essentially instant" transmit delay
// from spec section 4.3.
const vanishingDelay scheduler.VTime = 10 // 0.01 microsecond in VTime units of 1ns

// awaitAck starts the cancellable wait_ack operation for pkt and, on
// timeout, applies spec section 4.3 step 7's retry-or-drop rule.
func (m *MAC) awaitAck(p *scheduler.Process, pkt *drone.Packet) {
	key := drone.ProcKey{Op: "wait_ack", DroneID: m.d.ID, PacketID: pkt.ID}
	one := scheduler.NewOneShot(p.Scheduler())
	m.waitAck[pkt.ID] = one
	m.d.Procs.Start(key, p)

	ackTimeout := m.cfg.AckTimeout
	if m.cfg.PureAloha {
		r := rand.IntN(1 << (pkt.RetransmitCount + 1)) //nolint:gosec // jitter only
		ackTimeout = scheduler.VTime(r) * 500
	}

	fired := m.waitWithTimeout(p, one, ackTimeout)
	delete(m.waitAck, pkt.ID)
	m.d.Procs.Finish(key)

	if fired {
		m.d.TxQueue.Remove(pkt.ID)
		return
	}

	pkt.RetransmitCount++
	if pkt.RetransmitCount < m.cfg.MaxRetransmissionAttempt {
		// Hand back to routing for re-enqueue (spec section 4.3 step 7):
		// the route may have changed since the first attempt.
		m.router.NextHopSelection(pkt)
		return // packet stays at queue head; sendLoop retries it
	}

	// Dropped: record MAC delay and remove.
	m.logger.Debug("packet dropped after max retransmissions",
		slog.Uint64("packet_id", pkt.ID),
		slog.Duration("mac_delay", p.Scheduler().Now()-pkt.FirstAttemptAt))
	m.d.TxQueue.Remove(pkt.ID)
}

// waitWithTimeout races a OneShot (fired on ACK reception) against a plain
// timeout, returning true iff the OneShot won.
func (m *MAC) waitWithTimeout(p *scheduler.Process, one *scheduler.OneShot, timeout scheduler.VTime) bool {
	done := make(chan bool, 1)
	racer := p.Scheduler().Spawn("wait-ack-race", func(rp *scheduler.Process) {
		one.Wait(rp)
		select {
		case done <- true:
		default:
		}
	})
	p.Timeout(timeout)
	select {
	case <-done:
		return true
	default:
		p.Scheduler().Interrupt(racer)
		return false
	}
}

// attachBusyListener starts a process that interrupts p as soon as the
// channel becomes busy, implementing spec section 4.3 step 2's listener.
// It exits once listenerDone is closed.
func (m *MAC) attachBusyListener(p *scheduler.Process, listenerDone <-chan struct{}) *scheduler.Process {
	return p.Scheduler().Spawn("busy-listener", func(lp *scheduler.Process) {
		for {
			select {
			case <-listenerDone:
				return
			default:
			}
			if m.ch.ChannelBusy(m.d.ID) {
				p.Scheduler().Interrupt(p)
				return
			}
			lp.Timeout(m.cfg.SlotDuration)
		}
	})
}

// recvLoop dispatches every frame addressed to this drone: ACKs resolve a
// pending wait_ack; everything else goes to the router.
func (m *MAC) recvLoop(p *scheduler.Process) {
	inbox := m.ch.Inbox(m.d.ID)
	for {
		select {
		case f := <-inbox:
			m.handleFrame(f)
		default:
			p.Timeout(m.cfg.SlotDuration)
		}
	}
}

func (m *MAC) handleFrame(f simnet.Frame) {
	if f.Packet.Kind == drone.KindAck {
		if one, ok := m.waitAck[f.Packet.AckOf]; ok {
			one.Fire()
		}
		return
	}
	m.router.PacketReception(f.Packet.Clone(), f.SenderID)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
