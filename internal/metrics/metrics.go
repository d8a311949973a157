// Package metrics exports run statistics in the Prometheus text format,
// for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Snapshot is the outcome of one run.
type Snapshot struct {
	Mode               string
	OracleCalls        int
	Predicates         int
	PredicatesFiltered int
	Elapsed            time.Duration
	Complete           bool
}

// Recorder accumulates snapshots. Counters add up across runs, gauges
// hold the latest run.
type Recorder struct {
	registry *prometheus.Registry

	oracleCalls        *prometheus.CounterVec
	predicates         *prometheus.GaugeVec
	predicatesFiltered *prometheus.GaugeVec
	runSeconds         *prometheus.GaugeVec
	complete           *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := []string{"mode"}
	return &Recorder{
		registry: reg,
		oracleCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bowtie_oracle_calls_total",
			Help: "Validity oracle invocations.",
		}, labels),
		predicates: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bowtie_predicates",
			Help: "Candidate predicates before filtering.",
		}, labels),
		predicatesFiltered: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bowtie_predicates_filtered",
			Help: "Candidate predicates left after filtering.",
		}, labels),
		runSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bowtie_run_seconds",
			Help: "Wall time of the last run.",
		}, labels),
		complete: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bowtie_answer_complete",
			Help: "1 when the last answer was fully resolved, 0 when it was patched.",
		}, labels),
	}
}

// Observe records s.
func (r *Recorder) Observe(s Snapshot) {
	r.oracleCalls.WithLabelValues(s.Mode).Add(float64(s.OracleCalls))
	r.predicates.WithLabelValues(s.Mode).Set(float64(s.Predicates))
	r.predicatesFiltered.WithLabelValues(s.Mode).Set(float64(s.PredicatesFiltered))
	r.runSeconds.WithLabelValues(s.Mode).Set(s.Elapsed.Seconds())
	var c float64
	if s.Complete {
		c = 1
	}
	r.complete.WithLabelValues(s.Mode).Set(c)
}

// WriteTextfile atomically replaces path with the current values.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
