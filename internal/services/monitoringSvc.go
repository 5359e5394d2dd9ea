package services

import (
	"time"

	"github.com/amine-amaach/uatypegen/internal/component"
	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// MonitoringSvc collects the metrics of one run and writes them for the
// node_exporter textfile collector. A nil *MonitoringSvc records nothing.
type MonitoringSvc struct {
	textfile string
	registry *prometheus.Registry

	stageSeconds *prometheus.GaugeVec
	nodes        *prometheus.GaugeVec
	files        prometheus.Gauge
	failures     *prometheus.CounterVec
	lastSuccess  prometheus.Gauge
}

// NewMonitoringSvc returns nil when metrics are disabled.
func NewMonitoringSvc(cfg component.Metrics) *MonitoringSvc {
	if !cfg.Enabled || cfg.Textfile == "" {
		return nil
	}
	m := &MonitoringSvc{
		textfile: cfg.Textfile,
		registry: prometheus.NewRegistry(),
		stageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "uatypegen",
			Name:      "stage_duration_seconds",
			Help:      "Duration of the last run per stage.",
		}, []string{"stage"}),
		nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "uatypegen",
			Name:      "nodes",
			Help:      "Type nodes loaded by the last run per node class.",
		}, []string{"node_class"}),
		files: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uatypegen",
			Name:      "files",
			Help:      "Files rendered by the last run.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uatypegen",
			Name:      "failures_total",
			Help:      "Failed runs per error kind.",
		}, []string{"kind"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uatypegen",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
	m.registry.MustRegister(
		m.stageSeconds,
		m.nodes,
		m.files,
		m.failures,
		m.lastSuccess,
		collectors.NewGoCollector(),
	)
	return m
}

// Stage records the time spent in stage since start.
func (m *MonitoringSvc) Stage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageSeconds.WithLabelValues(stage).Set(time.Since(start).Seconds())
}

func (m *MonitoringSvc) Nodes(set *model.NodeSet) {
	if m == nil {
		return
	}
	counts := make(map[string]int)
	for _, n := range set.Nodes {
		counts[model.ClassName(n.NodeClass)]++
	}
	for class, c := range counts {
		m.nodes.WithLabelValues(class).Set(float64(c))
	}
}

func (m *MonitoringSvc) Files(n int) {
	if m == nil {
		return
	}
	m.files.Set(float64(n))
}

func (m *MonitoringSvc) Fail(err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(ErrorKind(err)).Inc()
}

func (m *MonitoringSvc) Succeed() {
	if m == nil {
		return
	}
	m.lastSuccess.SetToCurrentTime()
}

// Flush writes the registry to the textfile.
func (m *MonitoringSvc) Flush() error {
	if m == nil {
		return nil
	}
	return errors.Wrap(prometheus.WriteToTextfile(m.textfile, m.registry), "writing metrics textfile")
}

// ErrorKind names the domain error behind err, or "other".
func ErrorKind(err error) string {
	var (
		malformed *model.MalformedNodesetError
		duplicate *model.DuplicateNodeIDError
		cycle     *model.CycleDetectedError
		conflict  *model.OverrideTypeConflictError
		emit      *model.UnemittableNodeError
	)
	switch {
	case errors.As(err, &malformed):
		return "malformed_nodeset"
	case errors.As(err, &duplicate):
		return "duplicate_node_id"
	case errors.As(err, &cycle):
		return "cycle_detected"
	case errors.As(err, &conflict):
		return "override_type_conflict"
	case errors.As(err, &emit):
		return "unemittable_node"
	}
	return "other"
}
