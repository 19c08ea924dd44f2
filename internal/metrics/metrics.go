// Package metrics registers the ingestion core's Prometheus instruments,
// mirroring internal/interfaces/http/metrics.go's MetricsRegistry shape.
// Exposition (the /metrics HTTP handler) is out of scope per spec.md §1;
// this package only builds and registers the instruments so the pipeline can
// record against them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every counter/histogram the ingestion pipeline records.
type Registry struct {
	FilesClassified   *prometheus.CounterVec
	ParseOutcomes     *prometheus.CounterVec
	RecordsExtracted  prometheus.Counter
	ReconciliationVerdicts *prometheus.CounterVec
	CrossVerdicts     *prometheus.CounterVec
	StreaksEscalated  prometheus.Counter
	StageDuration     *prometheus.HistogramVec
}

// NewRegistry builds a Registry and registers all instruments against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		FilesClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sgmfm_files_classified_total",
			Help: "Files classified by report shape.",
		}, []string{"shape"}),
		ParseOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sgmfm_parse_outcomes_total",
			Help: "Parser outcomes by shape and status.",
		}, []string{"shape", "status"}),
		RecordsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sgmfm_records_extracted_total",
			Help: "Typed records produced by all parsers.",
		}),
		ReconciliationVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sgmfm_reconciliation_verdicts_total",
			Help: "Reconciliation verdicts by outcome.",
		}, []string{"verdict"}),
		CrossVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sgmfm_cross_verdicts_total",
			Help: "Cross-validation verdicts by classification.",
		}, []string{"classification"}),
		StreaksEscalated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sgmfm_streaks_escalated_total",
			Help: "Inconsistency streaks that crossed the escalation threshold.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sgmfm_stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
	}
	reg.MustRegister(
		m.FilesClassified, m.ParseOutcomes, m.RecordsExtracted,
		m.ReconciliationVerdicts, m.CrossVerdicts, m.StreaksEscalated, m.StageDuration,
	)
	return m
}
