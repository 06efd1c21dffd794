package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// Recorder exposes the Prometheus collectors used by adapters and dispatch.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	modelCalls   *prometheus.CounterVec
	modelLatency *prometheus.HistogramVec
	flows        *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "digestbot",
			Name:      "model_calls_total",
			Help:      "Model invocations by provider, kind and outcome.",
		}, []string{"provider", "kind", "outcome"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "digestbot",
			Name:      "model_call_duration_seconds",
			Help:      "Model invocation latency.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"provider", "kind"}),
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "digestbot",
			Name:      "flows_total",
			Help:      "Dispatched flows by source, flow and outcome.",
		}, []string{"source", "flow", "outcome"}),
	}
	reg.MustRegister(r.modelCalls, r.modelLatency, r.flows)
	return r
}

// ObserveModelCall records a single model round trip.
func (r *Recorder) ObserveModelCall(provider, kind string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	r.modelCalls.WithLabelValues(provider, kind, outcome).Inc()
	r.modelLatency.WithLabelValues(provider, kind).Observe(elapsed.Seconds())
}

// ObserveFlow records the outcome of one dispatched flow.
func (r *Recorder) ObserveFlow(source, flow, outcome string) {
	if r == nil {
		return
	}
	r.flows.WithLabelValues(source, flow, outcome).Inc()
}
