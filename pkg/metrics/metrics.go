package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	catalogBulk = "catalog_bulk"

	importRowsTotal     = "import_rows_total"
	jobTransitionsTotal = "job_transitions_total"
	exportRecordsTotal  = "export_records_total"
	jobDurationSeconds  = "job_duration_seconds"

	entityTypeLabel = "entity_type"
	outcomeLabel    = "outcome"
	kindLabel       = "kind"
	statusLabel     = "status"

	ImportKind = "import"
	ExportKind = "export"
)

var importRowsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: catalogBulk,
		Name:      importRowsTotal,
		Help:      "number of imported rows partitioned by entity type and outcome",
	},
	[]string{entityTypeLabel, outcomeLabel},
)

var jobTransitionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: catalogBulk,
		Name:      jobTransitionsTotal,
		Help:      "number of job status transitions partitioned by job kind and target status",
	},
	[]string{kindLabel, statusLabel},
)

var exportRecordsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: catalogBulk,
		Name:      exportRecordsTotal,
		Help:      "number of exported records partitioned by entity type",
	},
	[]string{entityTypeLabel},
)

var jobDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: catalogBulk,
		Name:      jobDurationSeconds,
		Help:      "wall time of finished jobs",
		Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
	},
	[]string{kindLabel, entityTypeLabel},
)

func IncreaseImportRows(entityType, outcome string, n int) {
	if n == 0 {
		return
	}
	importRowsTotalMetric.With(prometheus.Labels{entityTypeLabel: entityType, outcomeLabel: outcome}).Add(float64(n))
}

func IncreaseJobTransition(kind, status string) {
	jobTransitionsTotalMetric.With(prometheus.Labels{kindLabel: kind, statusLabel: status}).Inc()
}

func IncreaseExportRecords(entityType string, n int) {
	exportRecordsTotalMetric.With(prometheus.Labels{entityTypeLabel: entityType}).Add(float64(n))
}

func ObserveJobDuration(kind, entityType string, seconds float64) {
	jobDurationMetric.With(prometheus.Labels{kindLabel: kind, entityTypeLabel: entityType}).Observe(seconds)
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(importRowsTotalMetric)
	prometheus.MustRegister(jobTransitionsTotalMetric)
	prometheus.MustRegister(exportRecordsTotalMetric)
	prometheus.MustRegister(jobDurationMetric)
}
