package simconfig_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dantte-lp/dronesim/internal/simconfig"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestDefaultConfigPassesValidation(t *testing.T) {
	t.Parallel()

	cfg := simconfig.DefaultConfig()
	if err := simconfig.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	t.Parallel()

	yamlContent := `
number_of_drones: 50
sim_time: "2m"
routing: "opar"
static_case: true
`
	path := writeTemp(t, yamlContent)

	cfg, err := simconfig.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.NumberOfDrones != 50 {
		t.Errorf("NumberOfDrones = %d, want 50", cfg.NumberOfDrones)
	}
	if cfg.SimTime != 2*time.Minute {
		t.Errorf("SimTime = %v, want 2m", cfg.SimTime)
	}
	if cfg.Routing != simconfig.RoutingOPAR {
		t.Errorf("Routing = %q, want %q", cfg.Routing, simconfig.RoutingOPAR)
	}
	if !cfg.StaticCase {
		t.Errorf("StaticCase = false, want true")
	}

	// Untouched fields should still carry their defaults.
	if cfg.MapLengthM != simconfig.DefaultConfig().MapLengthM {
		t.Errorf("MapLengthM = %v, want default %v", cfg.MapLengthM, simconfig.DefaultConfig().MapLengthM)
	}
	if cfg.CWMin != simconfig.DefaultConfig().CWMin {
		t.Errorf("CWMin = %v, want default %v", cfg.CWMin, simconfig.DefaultConfig().CWMin)
	}
}

func TestLoadWithoutPathUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := simconfig.Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.NumberOfDrones != simconfig.DefaultConfig().NumberOfDrones {
		t.Errorf("NumberOfDrones = %d, want default %d", cfg.NumberOfDrones, simconfig.DefaultConfig().NumberOfDrones)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DRONESIM_NUMBER_OF_DRONES", "7")

	cfg, err := simconfig.Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.NumberOfDrones != 7 {
		t.Errorf("NumberOfDrones = %d, want 7 (from env override)", cfg.NumberOfDrones)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*simconfig.Config)
		wantErr error
	}{
		{
			name:    "zero drone count",
			modify:  func(cfg *simconfig.Config) { cfg.NumberOfDrones = 0 },
			wantErr: simconfig.ErrInvalidDroneCount,
		},
		{
			name:    "negative sim time",
			modify:  func(cfg *simconfig.Config) { cfg.SimTime = -1 * time.Second },
			wantErr: simconfig.ErrInvalidSimTime,
		},
		{
			name:    "zero bit rate",
			modify:  func(cfg *simconfig.Config) { cfg.BitRate = 0 },
			wantErr: simconfig.ErrInvalidBitRate,
		},
		{
			name:    "zero cw min",
			modify:  func(cfg *simconfig.Config) { cfg.CWMin = 0 },
			wantErr: simconfig.ErrInvalidCWMin,
		},
		{
			name:    "zero queue size",
			modify:  func(cfg *simconfig.Config) { cfg.MaxQueueSize = 0 },
			wantErr: simconfig.ErrInvalidQueueSize,
		},
		{
			name:    "zero map height",
			modify:  func(cfg *simconfig.Config) { cfg.MapHeightM = 0 },
			wantErr: simconfig.ErrInvalidMapDims,
		},
		{
			name:    "unknown routing protocol",
			modify:  func(cfg *simconfig.Config) { cfg.Routing = "not-a-protocol" },
			wantErr: simconfig.ErrInvalidRouting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := simconfig.DefaultConfig()
			tt.modify(cfg)

			err := simconfig.Validate(cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want wrapping %v", err, tt.wantErr)
			}
		})
	}
}
