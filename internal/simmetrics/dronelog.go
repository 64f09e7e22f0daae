package simmetrics

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// DroneLog writes the per-drone newline-delimited "<packet_id>
// <latency_us>" records spec section 6 requires under LOG_PATH/<drone_id>,
// used by PrudentCaster to record each uniquely-received item's delivery
// latency.
type DroneLog struct {
	f *os.File
	w *bufio.Writer
}

// NewDroneLog creates (or truncates) logDir/<droneID> and returns a writer
// for it.
func NewDroneLog(logDir string, droneID int) (*DroneLog, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(logDir, fmt.Sprintf("%d", droneID))
	f, err := os.Create(path) //nolint:gosec // path is derived from operator-controlled config, not request input
	if err != nil {
		return nil, fmt.Errorf("create drone log %s: %w", path, err)
	}
	return &DroneLog{f: f, w: bufio.NewWriter(f)}, nil
}

// Record appends one "<packetID> <latencyUS>" line.
func (d *DroneLog) Record(packetID uint64, latencyUS float64) error {
	if _, err := fmt.Fprintf(d.w, "%d %.3f\n", packetID, latencyUS); err != nil {
		return fmt.Errorf("write drone log record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (d *DroneLog) Close() error {
	if err := d.w.Flush(); err != nil {
		return fmt.Errorf("flush drone log: %w", err)
	}
	if err := d.f.Close(); err != nil {
		return fmt.Errorf("close drone log: %w", err)
	}
	return nil
}
