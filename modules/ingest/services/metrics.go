package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/ingesterr"
	"github.com/iota-uz/export-ingest/pkg/metrics"
)

var (
	ingestFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "export_ingest",
		Subsystem: "scan",
		Name:      "files_total",
		Help:      "Export files processed, by route and outcome.",
	}, []string{"route", "result"})

	ingestRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "export_ingest",
		Subsystem: "reconcile",
		Name:      "records_total",
		Help:      "Records sent to the store, by table and outcome.",
	}, []string{"table", "result"})

	ingestFailedBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "export_ingest",
		Subsystem: "reconcile",
		Name:      "failed_batches_total",
		Help:      "Write batches rejected by the store, by table.",
	}, []string{"table"})

	ingestIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "export_ingest",
		Subsystem: "normalize",
		Name:      "issues_total",
		Help:      "Non-fatal issues raised while loading and normalizing, by kind.",
	}, []string{"kind"})

	ingestDateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "export_ingest",
		Subsystem: "dates",
		Name:      "ambiguous_total",
		Help:      "Ambiguous slash dates seen by the resolver, by chosen interpretation.",
	}, []string{"chosen"})
)

func recordFile(route string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ingestFiles.WithLabelValues(route, result).Inc()
}

func recordRecords(table, result string, n int) {
	if n <= 0 {
		return
	}
	ingestRecords.WithLabelValues(table, result).Add(float64(n))
}

func recordFailedBatch(table string) {
	ingestFailedBatches.WithLabelValues(table).Inc()
}

func recordIssues(counts map[ingesterr.Kind]int) {
	for kind, n := range counts {
		ingestIssues.WithLabelValues(string(kind)).Add(float64(n))
	}
}

func recordIssue(kind ingesterr.Kind) {
	if kind == "" {
		kind = "other"
	}
	ingestIssues.WithLabelValues(string(kind)).Inc()
}

func recordDateDecision(chosen string) {
	ingestDateDecisions.WithLabelValues(chosen).Inc()
}

// WriteMetrics dumps the default registry to path. An empty path is a no-op.
func WriteMetrics(path string) error {
	return metrics.WriteTextfile(path, prometheus.DefaultGatherer)
}
