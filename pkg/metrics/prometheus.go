package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"StockPulse/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	scansTotal  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	confidence  *prometheus.GaugeVec
	scanState   *prometheus.GaugeVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		scansTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_scans_total",
				Help: "Total number of scans by outcome",
			},
			[]string{"symbol", "outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		confidence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockpulse_signal_confidence",
				Help: "Confidence of the last recorded signal per symbol",
			},
			[]string{"symbol"},
		),
		scanState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockpulse_scan_state",
				Help: "Current scan state per symbol (1 = active state)",
			},
			[]string{"symbol", "state"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockpulse_last_price",
				Help: "Last live quote price per symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordScan records a finished scan and its outcome.
func (r *Recorder) RecordScan(symbol, outcome string) {
	r.scansTotal.WithLabelValues(symbol, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordConfidence records the confidence of the latest signal for a symbol.
func (r *Recorder) RecordConfidence(symbol string, confidence float64) {
	r.confidence.WithLabelValues(symbol).Set(confidence)
}

// RecordScanState flips the per-symbol state gauge to the given state.
func (r *Recorder) RecordScanState(symbol string, state models.ScanState) {
	for _, s := range []models.ScanState{
		models.ScanIdle, models.ScanFetching, models.ScanScoring,
		models.ScanRecorded, models.ScanErrored,
	} {
		v := 0.0
		if s == state {
			v = 1
		}
		r.scanState.WithLabelValues(symbol, string(s)).Set(v)
	}
}

// RecordLastPrice records the last live price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
