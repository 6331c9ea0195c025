package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// JobCounter reports how many jobs of each kind sit in each status.
type JobCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type jobStatusCollector struct {
	imports JobCounter
	exports JobCounter
	jobs    *prometheus.Desc
}

// NewJobStatusCollector exposes a gauge of persisted jobs per kind and status.
// Values are read from the store on every scrape.
func NewJobStatusCollector(imports, exports JobCounter) prometheus.Collector {
	return &jobStatusCollector{
		imports: imports,
		exports: exports,
		jobs: prometheus.NewDesc(
			fmt.Sprintf("%s_jobs", catalogBulk),
			"Number of persisted jobs partitioned by kind and status.",
			[]string{kindLabel, statusLabel},
			prometheus.Labels{},
		),
	}
}

func (c *jobStatusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.jobs
}

func (c *jobStatusCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for kind, counter := range map[string]JobCounter{ImportKind: c.imports, ExportKind: c.exports} {
		counts, err := counter.CountByStatus(ctx)
		if err != nil {
			zap.S().Named("job_collector").Errorf("failed to count %s jobs: %s", kind, err)
			continue
		}
		for status, total := range counts {
			ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.GaugeValue, float64(total), kind, status)
		}
	}
}
