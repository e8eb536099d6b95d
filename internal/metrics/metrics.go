package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of one estimate request
const (
	OutcomeOK             = "ok"
	OutcomeInvalidInput   = "invalid_input"
	OutcomeResourceError  = "resource_error"
	OutcomeSchemaMismatch = "schema_mismatch"
	OutcomeError          = "error"
)

// Metrics holds the prometheus collectors of the estimator
type Metrics struct {
	estimates      *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	lastPrediction prometheus.Gauge
	referenceRows  prometheus.Gauge
}

// New registers the collectors with the default registerer
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with a custom registerer
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "house_price_estimates_total",
			Help: "Estimate requests by encoding mode and outcome",
		}, []string{"mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "house_price_estimate_duration_seconds",
			Help:    "Time to validate, encode and predict one estimate",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"mode"}),
		lastPrediction: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "house_price_last_prediction_dollars",
			Help: "Most recent predicted sale price",
		}),
		referenceRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "house_price_reference_rows",
			Help: "Rows in the reference dataset read by the last refit",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(m.estimates, m.duration, m.lastPrediction, m.referenceRows)
	}
	return m
}

// ObserveEstimate records one finished request
func (m *Metrics) ObserveEstimate(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.estimates.WithLabelValues(mode, outcome).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// SetPrediction records the latest predicted price
func (m *Metrics) SetPrediction(price float64) {
	if m == nil {
		return
	}
	m.lastPrediction.Set(price)
}

// SetReferenceRows records the size of the reference dataset
func (m *Metrics) SetReferenceRows(n int) {
	if m == nil {
		return
	}
	m.referenceRows.Set(float64(n))
}
