package mappings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments step runs. Labels: step (step name), kind (class,
// method, field).
type Metrics struct {
	stepDuration *prometheus.HistogramVec
	stepErrors   *prometheus.CounterVec
	proposed     *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	applied      *prometheus.CounterVec
	unmatched    *prometheus.CounterVec
	misses       *prometheus.CounterVec
	remaining    *prometheus.GaugeVec
	rounds       prometheus.Counter
}

// NewMetrics registers the matcher metrics with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gluematch",
			Subsystem: "step",
			Name:      "duration_seconds",
			Help:      "Time spent running one matching step",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"step"}),
		stepErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gluematch",
			Subsystem: "step",
			Name:      "errors_total",
			Help:      "Matching steps aborted by an error",
		}, []string{"step"}),
		proposed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gluematch",
			Subsystem: "match",
			Name:      "proposed_total",
			Help:      "Match proposals collected before sanitizing",
		}, []string{"step", "kind"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gluematch",
			Subsystem: "match",
			Name:      "dropped_total",
			Help:      "Conflicting proposals removed by sanitizing",
		}, []string{"step", "kind"}),
		applied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gluematch",
			Subsystem: "match",
			Name:      "applied_total",
			Help:      "Matches applied to the graph",
		}, []string{"step", "kind"}),
		unmatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gluematch",
			Subsystem: "match",
			Name:      "retracted_total",
			Help:      "Matches retracted by repair steps",
		}, []string{"step", "kind"}),
		misses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gluematch",
			Subsystem: "match",
			Name:      "misses_total",
			Help:      "Candidates for which no partner was found",
		}, []string{"step"}),
		remaining: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gluematch",
			Name:      "unmatched",
			Help:      "Unmatched obfuscated symbols on side A",
		}, []string{"kind"}),
		rounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gluematch",
			Name:      "fixpoint_rounds_total",
			Help:      "Usage-match rounds run while waiting for a stable state",
		}),
	}
}

func (m *Metrics) observeRemaining(classes, methods, fields int) {
	m.remaining.WithLabelValues("class").Set(float64(classes))
	m.remaining.WithLabelValues("method").Set(float64(methods))
	m.remaining.WithLabelValues("field").Set(float64(fields))
}
