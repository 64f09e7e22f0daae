// Package simconfig loads the simulator's flat configuration surface
// (spec section 6) with koanf/v2: defaults, then an optional YAML file,
// then environment variable overrides, the same layering order the
// teacher's daemon configuration uses.
package simconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "DRONESIM_"

// DataBroadcastType selects PrudentCaster's forwarding policy (spec
// section 6: DATA_BROADCAST_TYPE).
type DataBroadcastType int

const (
	BroadcastFlood DataBroadcastType = iota
	BroadcastGossip
	BroadcastMLSTPrune
)

// RoutingProtocol selects which routing module every drone runs.
type RoutingProtocol string

const (
	RoutingDSDV          RoutingProtocol = "dsdv"
	RoutingGreedy        RoutingProtocol = "greedy"
	RoutingOPAR          RoutingProtocol = "opar"
	RoutingPrudentCaster RoutingProtocol = "prudent_caster"
)

// Config mirrors spec section 6's configuration surface.
type Config struct {
	NumberOfDrones int `koanf:"number_of_drones"`

	MapLengthM float64 `koanf:"map_length_m"`
	MapWidthM  float64 `koanf:"map_width_m"`
	MapHeightM float64 `koanf:"map_height_m"`

	SimTime time.Duration `koanf:"sim_time"`

	BitRate      float64       `koanf:"bit_rate"`
	SlotDuration time.Duration `koanf:"slot_duration"`
	DIFS         time.Duration `koanf:"difs_duration"`
	SIFS         time.Duration `koanf:"sifs_duration"`
	AckTimeout   time.Duration `koanf:"ack_timeout"`

	AckPacketLengthBits   int `koanf:"ack_packet_length"`
	HelloPacketLengthBits int `koanf:"hello_packet_length"`
	DataPacketLengthBits  int `koanf:"data_packet_length"`

	CWMin                    int `koanf:"cw_min"`
	MaxRetransmissionAttempt int `koanf:"max_retransmission_attempt"`
	MaxQueueSize             int `koanf:"max_queue_size"`
	MaxHop                   int `koanf:"max_hop"`

	SensingRangeM   float64 `koanf:"sensing_range_m"`
	BroadcastRangeM float64 `koanf:"broadcast_range_m"`

	BroadcastSlot     time.Duration     `koanf:"broadcast_slot"`
	DataBroadcastType DataBroadcastType `koanf:"data_broadcast_type"`
	StaticCase        bool              `koanf:"static_case"`

	Routing   RoutingProtocol `koanf:"routing"`
	PureAloha bool            `koanf:"pure_aloha"`

	GaussMarkovAlpha         float64       `koanf:"gauss_markov_alpha"`
	PositionTickInterval     time.Duration `koanf:"position_tick_interval"`
	DirectionTickInterval    time.Duration `koanf:"direction_tick_interval"`
	WaitingListSweepInterval time.Duration `koanf:"waiting_list_sweep_interval"`
	WaitingListDeadline      time.Duration `koanf:"waiting_list_deadline"`

	OPARWeight1 float64 `koanf:"opar_weight1"`
	OPARWeight2 float64 `koanf:"opar_weight2"`

	DSDVEntryLifetime   time.Duration `koanf:"dsdv_entry_lifetime"`
	GreedyEntryLifetime time.Duration `koanf:"greedy_entry_lifetime"`
	PrudentStaleWindow  time.Duration `koanf:"prudent_stale_window"`

	LogPath string `koanf:"log_path"`
	Seed    int64  `koanf:"seed"`
}

// DefaultConfig returns the simulator's baked-in defaults, matching the
// worked examples in spec section 8.
func DefaultConfig() *Config {
	return &Config{
		NumberOfDrones: 20,

		MapLengthM: 1000,
		MapWidthM:  1000,
		MapHeightM: 150,

		SimTime: 60 * time.Second,

		BitRate:      0.001, // bits per nanosecond VTime unit: 0.001 == 1 Mbps
		SlotDuration: 20 * time.Microsecond,
		DIFS:         50 * time.Microsecond,
		SIFS:         10 * time.Microsecond,
		AckTimeout:   1 * time.Millisecond,

		AckPacketLengthBits:   112,
		HelloPacketLengthBits: 512,
		DataPacketLengthBits:  8192,

		CWMin:                    15,
		MaxRetransmissionAttempt: 5,
		MaxQueueSize:             50,
		MaxHop:                   10,

		SensingRangeM:   300,
		BroadcastRangeM: 200,

		BroadcastSlot:     10 * time.Millisecond,
		DataBroadcastType: BroadcastMLSTPrune,
		StaticCase:        false,

		Routing: RoutingDSDV,

		GaussMarkovAlpha:         0.85,
		PositionTickInterval:     100 * time.Millisecond,
		DirectionTickInterval:    500 * time.Millisecond,
		WaitingListSweepInterval: 600 * time.Millisecond,
		WaitingListDeadline:      2 * time.Second,

		OPARWeight1: 1.0,
		OPARWeight2: 1.0,

		DSDVEntryLifetime:   2 * time.Second,
		GreedyEntryLifetime: 2 * time.Second,
		PrudentStaleWindow:  2 * time.Second,

		LogPath: "./sim-output",
		Seed:    1,
	}
}

// Load builds a Config from defaults, an optional YAML file at path (if
// path is non-empty), and DRONESIM_-prefixed environment variable
// overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func envKeyMapper(s string) string {
	// Keys are flat and keep their underscores (DRONESIM_SIM_TIME -> sim_time).
	return strings.ToLower(strings.TrimPrefix(s, envPrefix))
}

// loadDefaults sets the flat default map as koanf's base layer, the same
// pre-marshal-by-hand approach the daemon's own config loader uses.
func loadDefaults(k *koanf.Koanf, d *Config) error {
	defaultMap := map[string]any{
		"number_of_drones": d.NumberOfDrones,

		"map_length_m": d.MapLengthM,
		"map_width_m":  d.MapWidthM,
		"map_height_m": d.MapHeightM,

		"sim_time": d.SimTime.String(),

		"bit_rate":      d.BitRate,
		"slot_duration": d.SlotDuration.String(),
		"difs_duration": d.DIFS.String(),
		"sifs_duration": d.SIFS.String(),
		"ack_timeout":   d.AckTimeout.String(),

		"ack_packet_length":   d.AckPacketLengthBits,
		"hello_packet_length": d.HelloPacketLengthBits,
		"data_packet_length":  d.DataPacketLengthBits,

		"cw_min":                     d.CWMin,
		"max_retransmission_attempt": d.MaxRetransmissionAttempt,
		"max_queue_size":             d.MaxQueueSize,
		"max_hop":                    d.MaxHop,

		"sensing_range_m":   d.SensingRangeM,
		"broadcast_range_m": d.BroadcastRangeM,

		"broadcast_slot":      d.BroadcastSlot.String(),
		"data_broadcast_type": int(d.DataBroadcastType),
		"static_case":         d.StaticCase,

		"routing":    string(d.Routing),
		"pure_aloha": d.PureAloha,

		"gauss_markov_alpha":         d.GaussMarkovAlpha,
		"position_tick_interval":     d.PositionTickInterval.String(),
		"direction_tick_interval":    d.DirectionTickInterval.String(),
		"waiting_list_sweep_interval": d.WaitingListSweepInterval.String(),
		"waiting_list_deadline":       d.WaitingListDeadline.String(),

		"opar_weight1": d.OPARWeight1,
		"opar_weight2": d.OPARWeight2,

		"dsdv_entry_lifetime":   d.DSDVEntryLifetime.String(),
		"greedy_entry_lifetime": d.GreedyEntryLifetime.String(),
		"prudent_stale_window":  d.PrudentStaleWindow.String(),

		"log_path": d.LogPath,
		"seed":     d.Seed,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

// Validation errors (spec section 7, "Fatal": invalid config aborts the
// simulation with a diagnostic).
var (
	ErrInvalidDroneCount = errors.New("number_of_drones must be > 0")
	ErrInvalidSimTime    = errors.New("sim_time must be > 0")
	ErrInvalidBitRate    = errors.New("bit_rate must be > 0")
	ErrInvalidCWMin      = errors.New("cw_min must be > 0")
	ErrInvalidQueueSize  = errors.New("max_queue_size must be > 0")
	ErrInvalidMapDims    = errors.New("map_length_m/map_width_m/map_height_m must all be > 0")
	ErrInvalidRouting    = errors.New("routing must be one of dsdv, greedy, opar, prudent_caster")
)

// Validate checks cfg for the fatal misconfigurations spec section 7
// names: negative intervals and an empty/invalid node set.
func Validate(cfg *Config) error {
	if cfg.NumberOfDrones <= 0 {
		return ErrInvalidDroneCount
	}
	if cfg.SimTime <= 0 {
		return ErrInvalidSimTime
	}
	if cfg.BitRate <= 0 {
		return ErrInvalidBitRate
	}
	if cfg.CWMin <= 0 {
		return ErrInvalidCWMin
	}
	if cfg.MaxQueueSize <= 0 {
		return ErrInvalidQueueSize
	}
	if cfg.MapLengthM <= 0 || cfg.MapWidthM <= 0 || cfg.MapHeightM <= 0 {
		return ErrInvalidMapDims
	}
	for _, d := range []time.Duration{cfg.SlotDuration, cfg.DIFS, cfg.SIFS, cfg.AckTimeout,
		cfg.BroadcastSlot, cfg.PositionTickInterval, cfg.DirectionTickInterval,
		cfg.WaitingListSweepInterval, cfg.WaitingListDeadline, cfg.DSDVEntryLifetime,
		cfg.GreedyEntryLifetime, cfg.PrudentStaleWindow} {
		if d < 0 {
			return fmt.Errorf("configured interval %v must not be negative", d)
		}
	}
	switch cfg.Routing {
	case RoutingDSDV, RoutingGreedy, RoutingOPAR, RoutingPrudentCaster:
	default:
		return fmt.Errorf("routing %q: %w", cfg.Routing, ErrInvalidRouting)
	}
	return nil
}
