// Package simmetrics aggregates simulation-wide counters (PDR, latency,
// throughput, hop count, collisions) and exposes them both as Prometheus
// counters and a latency histogram for live observation and as the plain-text summary
// spec section 6 names as an output artifact.
//
// Grounded on internal/metrics/collector.go's NewCollector(reg) pattern:
// a struct of GaugeVec/CounterVec fields registered against a
// prometheus.Registerer, with typed Inc/Record methods instead of raw
// label lookups at call sites.
package simmetrics

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dantte-lp/dronesim/internal/routing"
)

const (
	namespace = "dronesim"
	subsystem = "run"
)

// Collector accumulates delivery/drop/collision counters for one
// simulation run and exposes them both to Prometheus and to a plain-text
// summary on demand.
type Collector struct {
	delivered *prometheus.CounterVec
	dropped   prometheus.Counter
	collided  prometheus.Counter
	latency   prometheus.Histogram

	sentCount      int
	deliveredCount int
	droppedCount   int
	collisionCount int

	latencySumUS   float64
	hopSum         int
	dataLenSum     int
}

// NewCollector creates a Collector with all run metrics registered against
// reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "delivered_total",
			Help:      "Total data packets delivered to their destination.",
		}, []string{"protocol"}),

		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dropped_total",
			Help:      "Total packets dropped (transmit queue overflow, no route at origination, or waiting-list deadline expiry).",
		}),

		collided: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "collisions_total",
			Help:      "Total unicast-frame interference collisions detected by the channel.",
		}),

		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "delivery_latency_microseconds",
			Help:      "End-to-end delivery latency of delivered data packets.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
		}),
	}

	reg.MustRegister(c.delivered, c.dropped, c.collided, c.latency)
	return c
}

// RecordDelivery implements routing.Metrics: it accounts one successful
// delivery's latency, hop count, and data length toward the run summary.
func (c *Collector) RecordDelivery(d routing.Delivered) {
	c.delivered.WithLabelValues("data").Inc()
	c.latency.Observe(d.LatencyUS)

	c.deliveredCount++
	c.latencySumUS += d.LatencyUS
	c.hopSum += d.HopCount
	c.dataLenSum += d.DataLen
}

// RecordDrop implements routing.Metrics.
func (c *Collector) RecordDrop() {
	c.dropped.Inc()
	c.droppedCount++
}

// RecordCollision increments the channel-interference counter.
func (c *Collector) RecordCollision() {
	c.collided.Inc()
	c.collisionCount++
}

// RecordSent marks one packet as having been handed to the MAC layer,
// for the PDR denominator.
func (c *Collector) RecordSent() {
	c.sentCount++
}

// Summary is the aggregate result of a completed run, matching spec
// section 6's simulation_result.txt fields.
type Summary struct {
	Sent             int
	Delivered        int
	Dropped          int
	Collisions       int
	PDRPercent       float64
	MeanDelayMS      float64
	MeanThroughputKbps float64
	MeanHopCount     float64
}

// Summarize computes the final Summary from accumulated counters.
func (c *Collector) Summarize() Summary {
	s := Summary{
		Sent:       c.sentCount,
		Delivered:  c.deliveredCount,
		Dropped:    c.droppedCount,
		Collisions: c.collisionCount,
	}
	if c.sentCount > 0 {
		s.PDRPercent = 100 * float64(c.deliveredCount) / float64(c.sentCount)
	}
	if c.deliveredCount > 0 {
		s.MeanDelayMS = c.latencySumUS / float64(c.deliveredCount) / 1000
		s.MeanHopCount = float64(c.hopSum) / float64(c.deliveredCount)

		meanLatencyUS := c.latencySumUS / float64(c.deliveredCount)
		meanDataLen := float64(c.dataLenSum) / float64(c.deliveredCount)
		if meanLatencyUS > 0 {
			s.MeanThroughputKbps = (meanDataLen / (meanLatencyUS / 1e6)) / 1000
		}
	}
	return s
}

// WriteResultFile writes the plain-text simulation_result.txt artifact
// spec section 6 describes.
func (c *Collector) WriteResultFile(path string) error {
	s := c.Summarize()
	body := fmt.Sprintf(
		"sent=%d\ndelivered=%d\ndropped=%d\ncollisions=%d\npdr_percent=%.2f\nmean_delay_ms=%.3f\nmean_throughput_kbps=%.3f\nmean_hop_count=%.2f\n",
		s.Sent, s.Delivered, s.Dropped, s.Collisions, s.PDRPercent, s.MeanDelayMS, s.MeanThroughputKbps, s.MeanHopCount,
	)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}
	return nil
}
