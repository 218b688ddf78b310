package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"reserveguard/internal/analysis"
	"reserveguard/internal/errors"
)

// Metrics holds the counters of one process on its own registry
type Metrics struct {
	registry *prometheus.Registry

	FunctionsAnalyzed prometheus.Counter
	InvalidFunctions  prometheus.Counter
	TransferSites     prometheus.Counter
	Findings          *prometheus.CounterVec
	SkippedSites      *prometheus.CounterVec
	ScanDuration      prometheus.Histogram
	LastScan          prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FunctionsAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Name: "reserveguard_functions_analyzed_total",
			Help: "Total number of functions submitted for analysis.",
		}),
		InvalidFunctions: factory.NewCounter(prometheus.CounterOpts{
			Name: "reserveguard_invalid_functions_total",
			Help: "Total number of functions rejected as malformed input.",
		}),
		TransferSites: factory.NewCounter(prometheus.CounterOpts{
			Name: "reserveguard_transfer_sites_total",
			Help: "Total number of transfer sites located.",
		}),
		Findings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reserveguard_findings_total",
			Help: "Total number of findings by classification and severity.",
		}, []string{"classification", "severity"}),
		SkippedSites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reserveguard_skipped_sites_total",
			Help: "Total number of transfer sites skipped, by reason.",
		}, []string{"reason"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reserveguard_scan_seconds",
			Help:    "Time spent analyzing one scan.",
			Buckets: prometheus.DefBuckets,
		}),
		LastScan: factory.NewGauge(prometheus.GaugeOpts{
			Name: "reserveguard_last_scan_timestamp_seconds",
			Help: "Unix time of the last completed scan.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records the totals of an analysis result
func (m *Metrics) ObserveRun(res *analysis.Result, elapsed time.Duration) {
	m.FunctionsAnalyzed.Add(float64(res.Functions))
	m.InvalidFunctions.Add(float64(len(res.Errors)))
	m.TransferSites.Add(float64(res.Sites))
	for _, f := range res.Findings.Findings() {
		m.Findings.WithLabelValues(string(f.Classification), string(f.Severity)).Inc()
	}
	for reason, n := range res.Skipped {
		m.SkippedSites.WithLabelValues(reason).Add(float64(n))
	}
	m.ScanDuration.Observe(elapsed.Seconds())
	m.LastScan.SetToCurrentTime()
}

// WriteTextfile writes the registry in the node-exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("[%s] failed to write metrics: %w", errors.ErrorStorage, err)
	}
	return nil
}
