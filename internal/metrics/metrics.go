//-------------------------------------------------------------------------
//
// pgEdge Retail Prep
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package metrics records pipeline outcomes as Prometheus metrics and
// writes them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pgEdge/pgedge-retailprep/internal/cleaning"
)

const namespace = "retailprep"

// Recorder implements cleaning.Observer.
type Recorder struct {
	registry *prometheus.Registry

	stepRows    *prometheus.GaugeVec
	removed     *prometheus.CounterVec
	changed     *prometheus.CounterVec
	conflicts   *prometheus.GaugeVec
	resolved    *prometheus.CounterVec
	tableRows   *prometheus.GaugeVec
	lastSuccess prometheus.Gauge
}

var _ cleaning.Observer = (*Recorder)(nil)

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stepRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_rows",
			Help:      "Rows in the working table before and after each step.",
		}, []string{"step", "stage"}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_rows_removed_total",
			Help:      "Rows removed by each step.",
		}, []string{"step"}),
		changed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_rows_changed_total",
			Help:      "Rows modified or merged by each step.",
		}, []string{"step"}),
		conflicts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conflict_keys",
			Help:      "Keys found in conflict before resolution, and remaining after.",
		}, []string{"kind", "stage"}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflict_rows_changed_total",
			Help:      "Rows rewritten by conflict resolution.",
		}, []string{"kind"}),
		tableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      "Rows in each output table.",
		}, []string{"table"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
	r.registry.MustRegister(r.stepRows, r.removed, r.changed, r.conflicts,
		r.resolved, r.tableRows, r.lastSuccess)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStep records a step's row counts.
func (r *Recorder) ObserveStep(s cleaning.StepResult) {
	r.stepRows.WithLabelValues(s.Name, "before").Set(float64(s.Before))
	r.stepRows.WithLabelValues(s.Name, "after").Set(float64(s.After))
	r.removed.WithLabelValues(s.Name).Add(float64(s.Removed))
	r.changed.WithLabelValues(s.Name).Add(float64(s.Changed))
}

// ObserveConflict records a conflict resolution outcome.
func (r *Recorder) ObserveConflict(c cleaning.ConflictStat) {
	kind := string(c.Kind)
	r.conflicts.WithLabelValues(kind, "found").Set(float64(c.KeysInConflict))
	r.conflicts.WithLabelValues(kind, "remaining").Set(float64(c.Remaining))
	r.resolved.WithLabelValues(kind).Add(float64(c.RowsChanged))
}

// ObserveTable records the row count of an output table.
func (r *Recorder) ObserveTable(name string, rows int) {
	r.tableRows.WithLabelValues(name).Set(float64(rows))
}

// MarkSuccess records the completion time of a successful run.
func (r *Recorder) MarkSuccess(t time.Time) {
	r.lastSuccess.Set(float64(t.Unix()))
}

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
