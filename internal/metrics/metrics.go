package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Alias1177/InsiderScan/internal/detector"
	"github.com/Alias1177/InsiderScan/models"
)

// Registry holds the scanner's Prometheus metrics
type Registry struct {
	registry *prometheus.Registry

	CycleDuration    prometheus.Histogram
	Cycles           *prometheus.CounterVec
	SymbolsProcessed prometheus.Counter
	SymbolsSkipped   *prometheus.CounterVec
	Records          *prometheus.CounterVec
	FactorScores     *prometheus.HistogramVec
	TotalScores      prometheus.Histogram
	LastCycleTime    prometheus.Gauge
}

// NewRegistry creates and registers all metrics
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "insiderscan_cycle_duration_seconds",
				Help:    "Duration of detection cycles in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),

		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insiderscan_cycles_total",
				Help: "Detection cycles by outcome",
			},
			[]string{"status"},
		),

		SymbolsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "insiderscan_symbols_processed_total",
				Help: "Symbols that produced an anomaly record",
			},
		),

		SymbolsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insiderscan_symbols_skipped_total",
				Help: "Symbols skipped by reason",
			},
			[]string{"reason"},
		),

		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insiderscan_records_total",
				Help: "Anomaly records by conviction and volume tier",
			},
			[]string{"conviction", "volume_tier"},
		),

		FactorScores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insiderscan_factor_score",
				Help:    "Distribution of factor sub-scores",
				Buckets: []float64{0, 0.25, 0.5, 0.75, 1, 1.5, 2, 2.5, 3},
			},
			[]string{"factor"},
		),

		TotalScores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "insiderscan_total_score",
				Help:    "Distribution of composite scores",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			},
		),

		LastCycleTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "insiderscan_last_cycle_timestamp_seconds",
				Help: "As-of time of the last completed cycle",
			},
		),
	}

	r.registry.MustRegister(
		r.CycleDuration,
		r.Cycles,
		r.SymbolsProcessed,
		r.SymbolsSkipped,
		r.Records,
		r.FactorScores,
		r.TotalScores,
		r.LastCycleTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// RecordScored implements detector.Recorder
func (r *Registry) RecordScored(rec models.AnomalyRecord) {
	r.Records.WithLabelValues(string(rec.Conviction), string(rec.VolumeTier)).Inc()
	r.TotalScores.Observe(rec.TotalScore)
	for _, f := range rec.Factors.Ordered() {
		r.FactorScores.WithLabelValues(f.Name).Observe(f.Value)
	}
}

// CycleCompleted implements detector.Recorder
func (r *Registry) CycleCompleted(s detector.CycleSummary) {
	status := "success"
	switch {
	case s.Failed:
		status = "failed"
	case s.Warnings > 0:
		status = "partial"
	}
	r.Cycles.WithLabelValues(status).Inc()
	r.CycleDuration.Observe(s.Duration.Seconds())
	r.SymbolsProcessed.Add(float64(s.Processed))
	for reason, n := range s.SkipReasons {
		r.SymbolsSkipped.WithLabelValues(string(reason)).Add(float64(n))
	}
	if !s.Failed {
		r.LastCycleTime.Set(float64(s.AsOf.Unix()))
	}
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
