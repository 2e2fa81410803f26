// Package metrics exposes prometheus collectors for workout store activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names used as the "op" label.
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpDeleteAll = "delete_all"
	OpRestore   = "restore"
)

// Collectors groups the store metrics. A nil *Collectors is valid and
// records nothing.
type Collectors struct {
	workouts     prometheus.Gauge
	operations   *prometheus.CounterVec
	snapshotSize prometheus.Gauge
	lastSnapshot prometheus.Gauge
	rejected     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		workouts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mapty",
			Subsystem: "store",
			Name:      "workouts",
			Help:      "Number of workouts currently held by the store.",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mapty",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store mutations by operation and result.",
		}, []string{"op", "result"}),
		snapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mapty",
			Subsystem: "snapshot",
			Name:      "bytes",
			Help:      "Size of the last snapshot written to storage.",
		}),
		lastSnapshot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mapty",
			Subsystem: "snapshot",
			Name:      "last_written_timestamp_seconds",
			Help:      "Unix timestamp of the most recent snapshot write.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mapty",
			Subsystem: "view",
			Name:      "validation_rejections_total",
			Help:      "Form submissions rejected by input validation.",
		}, []string{"reason"}),
	}
	reg.MustRegister(c.workouts, c.operations, c.snapshotSize, c.lastSnapshot, c.rejected)
	return c
}

// SetWorkouts records the current collection size.
func (c *Collectors) SetWorkouts(n int) {
	if c == nil {
		return
	}
	c.workouts.Set(float64(n))
}

// Operation counts a store mutation.
func (c *Collectors) Operation(op string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.operations.WithLabelValues(op, result).Inc()
}

// Snapshot records a snapshot write of size bytes at ts.
func (c *Collectors) Snapshot(size int, ts time.Time) {
	if c == nil {
		return
	}
	c.snapshotSize.Set(float64(size))
	c.lastSnapshot.Set(float64(ts.Unix()))
}

// Rejected counts a validation failure.
func (c *Collectors) Rejected(reason string) {
	if c == nil {
		return
	}
	c.rejected.WithLabelValues(reason).Inc()
}
