// Package sim bootstraps and drives one complete simulation run: it wires
// the scheduler, channel, per-drone MAC/mobility/routing modules, and the
// metrics collector together per spec section 2's dataflow, then injects a
// simple CBR-style application traffic generator to exercise the stack
// end to end.
//
// Grounded on cmd/gobfd/main.go's run()-int bootstrap shape (build
// dependencies, wire metrics, run, report a single summary) adapted from
// a long-lived daemon to a single bounded simulation run.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dantte-lp/dronesim/internal/drone"
	"github.com/dantte-lp/dronesim/internal/mac"
	"github.com/dantte-lp/dronesim/internal/mobility"
	"github.com/dantte-lp/dronesim/internal/routing"
	"github.com/dantte-lp/dronesim/internal/scheduler"
	"github.com/dantte-lp/dronesim/internal/simconfig"
	"github.com/dantte-lp/dronesim/internal/simmetrics"
	"github.com/dantte-lp/dronesim/internal/simnet"
)

// Simulation holds every component wired up for one run.
type Simulation struct {
	cfg    *simconfig.Config
	logger *slog.Logger

	sch       *scheduler.Scheduler
	reg       *drone.Registry
	ch        *simnet.Channel
	idAlloc   *drone.IDAllocator
	collector *simmetrics.Collector

	macs      map[drone.ID]*mac.MAC
	routers   map[drone.ID]routing.Router
	droneLogs map[drone.ID]*simmetrics.DroneLog
}

// Bootstrap creates a Simulation with numDrones drones placed uniformly at
// random within cfg's map volume, each with its configured mobility,
// routing, and MAC modules installed (spec sections 3-4).
func Bootstrap(cfg *simconfig.Config, logger *slog.Logger, reg prometheus.Registerer) (*Simulation, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sch := scheduler.New(logger)
	droneReg := drone.NewRegistry()
	ch := simnet.New(sch, droneReg, simnet.Config{
		SensingRange: cfg.SensingRangeM,
		MaxCommRange: cfg.BroadcastRangeM,
	})

	s := &Simulation{
		cfg:       cfg,
		logger:    logger,
		sch:       sch,
		reg:       droneReg,
		ch:        ch,
		idAlloc:   drone.NewIDAllocator(),
		collector: simmetrics.NewCollector(reg),
		macs:      make(map[drone.ID]*mac.MAC),
		routers:   make(map[drone.ID]routing.Router),
		droneLogs: make(map[drone.ID]*simmetrics.DroneLog),
	}

	rngSrc := rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)>>32|1)
	rng := rand.New(rngSrc)

	for i := 0; i < cfg.NumberOfDrones; i++ {
		id := drone.ID(i)
		pos := drone.Position{
			X: rng.Float64() * cfg.MapLengthM,
			Y: rng.Float64() * cfg.MapWidthM,
			Z: rng.Float64() * cfg.MapHeightM,
		}
		d := drone.NewDrone(id, pos, cfg.MaxQueueSize)
		droneReg.Register(d)
		ch.AddDrone(id)

		if err := s.installDrone(d, cfg); err != nil {
			return nil, fmt.Errorf("install drone %d: %w", id, err)
		}
	}

	return s, nil
}

func (s *Simulation) installDrone(d *drone.Drone, cfg *simconfig.Config) error {
	log, err := simmetrics.NewDroneLog(cfg.LogPath, int(d.ID))
	if err != nil {
		return fmt.Errorf("create drone log: %w", err)
	}
	s.droneLogs[d.ID] = log

	router, err := newRouter(s.sch, d, s.reg, s.ch, s.collector, s.idAlloc, cfg, log)
	if err != nil {
		return err
	}
	s.routers[d.ID] = router

	m := mac.New(s.sch, d, s.reg, s.ch, router, mac.Config{
		BitRate:                  cfg.BitRate,
		SlotDuration:             cfg.SlotDuration,
		DIFS:                     cfg.DIFS,
		SIFS:                     cfg.SIFS,
		AckTimeout:               cfg.AckTimeout,
		AckPacketLengthBits:      cfg.AckPacketLengthBits,
		CWMin:                    cfg.CWMin,
		MaxRetransmissionAttempt: cfg.MaxRetransmissionAttempt,
		PureAloha:                cfg.PureAloha,
	}, s.logger.With(slog.Int("drone_id", int(d.ID))))
	s.macs[d.ID] = m

	if !cfg.StaticCase {
		mm := mobility.New(d, mobility.Config{
			Alpha:             cfg.GaussMarkovAlpha,
			PositionInterval:  cfg.PositionTickInterval,
			DirectionInterval: cfg.DirectionTickInterval,
			Bounds: mobility.Bounds{
				MinX: 0, MaxX: cfg.MapLengthM,
				MinY: 0, MaxY: cfg.MapWidthM,
				MinZ: 0, MaxZ: cfg.MapHeightM,
				Buffer: 5,
			},
		})
		mm.Run(s.sch)
	}

	return nil
}

func newRouter(
	sch *scheduler.Scheduler,
	d *drone.Drone,
	reg *drone.Registry,
	ch *simnet.Channel,
	metrics routing.Metrics,
	idAlloc *drone.IDAllocator,
	cfg *simconfig.Config,
	log *simmetrics.DroneLog,
) (routing.Router, error) {
	switch cfg.Routing {
	case simconfig.RoutingDSDV:
		r := routing.NewDSDV(sch, d, reg, ch, metrics, idAlloc, cfg.DSDVEntryLifetime, cfg.HelloPacketLengthBits,
			cfg.WaitingListDeadline, cfg.WaitingListSweepInterval)
		r.Run(sch)
		return r, nil
	case simconfig.RoutingGreedy:
		r := routing.NewGreedy(sch, d, reg, ch, metrics, idAlloc, cfg.GreedyEntryLifetime, cfg.HelloPacketLengthBits,
			cfg.WaitingListDeadline, cfg.WaitingListSweepInterval)
		r.Run(sch)
		return r, nil
	case simconfig.RoutingOPAR:
		r := routing.NewOPAR(sch, d, reg, ch, metrics, idAlloc, cfg.BroadcastRangeM, routing.OPARWeights{
			W1: cfg.OPARWeight1,
			W2: cfg.OPARWeight2,
		}, cfg.WaitingListDeadline, cfg.WaitingListSweepInterval)
		r.Run(sch)
		return r, nil
	case simconfig.RoutingPrudentCaster:
		n := cfg.NumberOfDrones
		r := routing.NewPrudentCaster(sch, d, reg, ch, metrics, idAlloc, cfg.PrudentStaleWindow,
			int(d.ID), n, cfg.BroadcastSlot, cfg.HelloPacketLengthBits, cfg.DataPacketLengthBits,
			broadcastPolicyFor(cfg.DataBroadcastType), log)
		r.Run(sch)
		return r, nil
	default:
		return nil, fmt.Errorf("routing %q: %w", cfg.Routing, simconfig.ErrInvalidRouting)
	}
}

func broadcastPolicyFor(t simconfig.DataBroadcastType) routing.BroadcastPolicy {
	switch t {
	case simconfig.BroadcastFlood:
		return routing.PolicyFlood
	case simconfig.BroadcastGossip:
		return routing.PolicyGossip
	default:
		return routing.PolicyMLST
	}
}

// Run starts every MAC send/receive loop, starts the application traffic
// generator, and drives the scheduler for cfg.SimTime of virtual time.
func (s *Simulation) Run() (simmetrics.Summary, error) {
	for _, m := range s.macs {
		m.Run(s.sch)
	}

	s.sch.Spawn("traffic-generator", s.trafficGenerator)

	s.sch.Run(s.cfg.SimTime)

	for i := 0; i < s.ch.Collisions(); i++ {
		s.collector.RecordCollision()
	}

	for _, log := range s.droneLogs {
		if err := log.Close(); err != nil {
			return simmetrics.Summary{}, fmt.Errorf("close drone log: %w", err)
		}
	}

	return s.collector.Summarize(), nil
}

// WriteResultFile writes the plain-text simulation_result.txt artifact
// spec section 6 names, under cfg.LogPath.
func (s *Simulation) WriteResultFile(path string) error {
	return s.collector.WriteResultFile(path)
}

// trafficGenerator is the application layer: every hello-scale interval it
// picks a random source/destination pair and hands one data packet to the
// source's MAC transmit queue, matching spec section 3's "packets are
// created by an application or a routing module" lifecycle origin.
func (s *Simulation) trafficGenerator(p *scheduler.Process) {
	sch := p.Scheduler()
	drones := s.reg.All()
	if len(drones) < 2 {
		return
	}

	rngSrc := rand.NewPCG(uint64(s.cfg.Seed)+1, uint64(s.cfg.Seed)>>32|3)
	rng := rand.New(rngSrc)

	interval := s.cfg.DirectionTickInterval
	if interval <= 0 {
		interval = s.cfg.SlotDuration
	}

	for {
		if sig := p.Timeout(interval); sig.Interrupted {
			return
		}

		src := drones[rng.IntN(len(drones))]
		dstIdx := rng.IntN(len(drones))
		if drones[dstIdx].ID == src.ID {
			continue
		}
		dst := drones[dstIdx]

		router, ok := s.routers[src.ID]
		if !ok {
			continue
		}

		pkt := &drone.Packet{
			ID:         s.idAlloc.Allocate(),
			Kind:       drone.KindData,
			LengthBits: s.cfg.DataPacketLengthBits,
			CreatedAt:  sch.Now(),
			TTL:        s.cfg.MaxHop,
			Mode:       drone.ModeUnicast,
			SenderID:   int(src.ID),
			Dest:       int(dst.ID),
			Data:       make([]byte, s.cfg.DataPacketLengthBits/8),
		}

		if !router.NextHopSelection(pkt) {
			s.collector.RecordDrop()
			continue
		}

		if err := src.TxQueue.Push(pkt); err != nil {
			s.collector.RecordDrop()
			continue
		}
		s.collector.RecordSent()
	}
}
