package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Generation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// Metrics records validation and generation activity.
type Metrics struct {
	validations *prometheus.CounterVec
	generations *prometheus.CounterVec
	duration    prometheus.Histogram
	files       prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ussdflow_validations_total",
				Help: "Total number of flow validations by result",
			},
			[]string{"result"},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ussdflow_generations_total",
				Help: "Total number of code generations by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ussdflow_generation_duration_seconds",
			Help:    "Duration of code generations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		files: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ussdflow_generated_files",
			Help:    "Number of files per generated program",
			Buckets: prometheus.LinearBuckets(5, 5, 6),
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.validations, m.generations, m.duration, m.files} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// ObserveValidation counts one validation.
func (m *Metrics) ObserveValidation(valid bool) {
	if m == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.validations.WithLabelValues(result).Inc()
}

// ObserveGeneration counts one generation. Duration and file count are
// recorded for successful runs only.
func (m *Metrics) ObserveGeneration(outcome string, took time.Duration, files int) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.duration.Observe(took.Seconds())
		m.files.Observe(float64(files))
	}
}
