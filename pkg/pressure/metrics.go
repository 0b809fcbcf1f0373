package pressure

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms of a conversion batch.
type Metrics struct {
	FilesConverted prometheus.Counter
	FilesFailed    *prometheus.CounterVec // labels: reason
	Samples        prometheus.Counter
	Duration       prometheus.Histogram
}

// NewMetrics creates the conversion metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesConverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trollnc",
			Name:      "files_converted_total",
			Help:      "Total input files converted successfully.",
		}),
		FilesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trollnc",
			Name:      "files_failed_total",
			Help:      "Total input files that failed, by reason.",
		}, []string{"reason"}),
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trollnc",
			Name:      "samples_converted_total",
			Help:      "Total samples written.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trollnc",
			Name:      "conversion_duration_seconds",
			Help:      "Duration of a single file conversion.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
	reg.MustRegister(m.FilesConverted, m.FilesFailed, m.Samples, m.Duration)
	return m
}
