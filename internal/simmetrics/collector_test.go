package simmetrics_test

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dantte-lp/dronesim/internal/routing"
	"github.com/dantte-lp/dronesim/internal/simmetrics"
)

func TestSummarizeComputesPDRAndMeans(t *testing.T) {
	t.Parallel()

	c := simmetrics.NewCollector(prometheus.NewRegistry())
	c.RecordSent()
	c.RecordSent()
	c.RecordDelivery(routing.Delivered{PacketID: 1, LatencyUS: 1000, HopCount: 2, DataLen: 1024})
	c.RecordDrop()

	s := c.Summarize()
	if s.Sent != 2 || s.Delivered != 1 || s.Dropped != 1 {
		t.Fatalf("counters = %+v, want Sent=2 Delivered=1 Dropped=1", s)
	}
	if s.PDRPercent != 50 {
		t.Fatalf("PDRPercent = %v, want 50", s.PDRPercent)
	}
	if s.MeanHopCount != 2 {
		t.Fatalf("MeanHopCount = %v, want 2", s.MeanHopCount)
	}
}

func TestWriteResultFile(t *testing.T) {
	t.Parallel()

	c := simmetrics.NewCollector(prometheus.NewRegistry())
	c.RecordSent()
	c.RecordDelivery(routing.Delivered{PacketID: 1, LatencyUS: 500})

	path := filepath.Join(t.TempDir(), "simulation_result.txt")
	if err := c.WriteResultFile(path); err != nil {
		t.Fatalf("WriteResultFile: %v", err)
	}
}

func TestDroneLogRecordsLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log, err := simmetrics.NewDroneLog(dir, 3)
	if err != nil {
		t.Fatalf("NewDroneLog: %v", err)
	}
	if err := log.Record(42, 123.456); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
