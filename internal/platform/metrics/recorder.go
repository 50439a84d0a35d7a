package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so several instances can coexist in tests.
// All methods are safe on a nil receiver.
type Recorder struct {
	registry           *prometheus.Registry
	eventsTotal        *prometheus.CounterVec
	completionsTotal   *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	tokensTotal        *prometheus.CounterVec
	circuitState       *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		eventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_events_total",
				Help: "Inbound chat events by conversation stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		completionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_completion_requests_total",
				Help: "Completion requests by model and status",
			},
			[]string{"model", "status", "failure_kind"},
		),
		completionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutor_completion_duration_seconds",
				Help:    "Duration of completion round trips in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_completion_tokens_total",
				Help: "Tokens reported by the completion service",
			},
			[]string{"model", "type"},
		),
		circuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tutor_circuit_open",
				Help: "1 while the dependency circuit breaker rejects calls",
			},
			[]string{"dependency"},
		),
	}
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ObserveEvent(stage, outcome string) {
	if r == nil {
		return
	}
	r.eventsTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveCompletion records one completion round trip. An empty failureKind
// marks a success.
func (r *Recorder) ObserveCompletion(model, failureKind string, promptTokens, completionTokens int64, duration time.Duration) {
	if r == nil {
		return
	}

	status := "success"
	if failureKind != "" {
		status = "error"
	}
	r.completionsTotal.WithLabelValues(model, status, failureKind).Inc()
	r.completionDuration.WithLabelValues(model).Observe(duration.Seconds())

	if failureKind == "" {
		r.tokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
		r.tokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// ObserveRejection counts a completion refused before any request was sent,
// so it has no duration sample.
func (r *Recorder) ObserveRejection(model, failureKind string) {
	if r == nil {
		return
	}
	r.completionsTotal.WithLabelValues(model, "rejected", failureKind).Inc()
}

func (r *Recorder) SetCircuitOpen(dependency string, open bool) {
	if r == nil {
		return
	}
	value := 0.0
	if open {
		value = 1
	}
	r.circuitState.WithLabelValues(dependency).Set(value)
}
