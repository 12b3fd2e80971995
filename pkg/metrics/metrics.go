// Package metrics records run metrics for metasnap with Prometheus.
//
// A metasnap run is a short-lived batch job, so nothing is scraped. The
// Collector keeps its own registry and, when asked, writes it in the text
// exposition format for the node_exporter textfile collector.
//
// # Basic Usage
//
//	collector := metrics.NewCollector()
//
//	timer := metrics.NewTimer()
//	doc, err := fetch(ctx)
//	collector.ObserveStage(metrics.StageFetch, timer.Stop(), err)
//
//	collector.RecordOutcome("succeeded")
//	_ = collector.WriteTextfile("/var/lib/node_exporter/metasnap.prom")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/metasnap/pkg/errors"
)

const namespace = "metasnap"

// Stage names used as label values
const (
	StageFetch   = "fetch"
	StageFlatten = "flatten"
	StageWrite   = "write"
	StagePublish = "publish"
)

// Collector holds the Prometheus collectors of one run
type Collector struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	runs          *prometheus.CounterVec
	rows          prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// NewCollector creates a Collector with a private registry
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each snapshot stage",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		stageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_errors_total",
				Help:      "Stage failures by stage and error type",
			},
			[]string{"stage", "type"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Snapshot runs by outcome",
			},
			[]string{"outcome"},
		),
		rows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_rows",
			Help:      "Rows in the last written snapshot",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
}

// Registry returns the registry backing the collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveStage records how long stage took and, when err is non-nil, counts
// the failure under the error's type.
func (c *Collector) ObserveStage(stage string, d time.Duration, err error) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		c.stageErrors.WithLabelValues(stage, string(errors.TypeOf(err))).Inc()
	}
}

// RecordOutcome counts a finished run
func (c *Collector) RecordOutcome(outcome string) {
	c.runs.WithLabelValues(outcome).Inc()
}

// SetRows records the size of the written snapshot
func (c *Collector) SetRows(n int) {
	c.rows.Set(float64(n))
}

// MarkSuccess stamps the time of a successful run
func (c *Collector) MarkSuccess(t time.Time) {
	c.lastSuccess.Set(float64(t.Unix()))
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The file is written to a temporary name and renamed into place.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrap(err, errors.ErrorTypeWrite, "failed to write metrics textfile").
			WithDetail("path", path)
	}
	return nil
}

// Timer measures elapsed time
type Timer struct {
	start time.Time
}

// NewTimer creates and starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation. It can be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
