// Package metrics exposes Prometheus metrics for the siting search lifecycle.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SearchCollector bundles the search metrics and satisfies the controller's
// Observer interface.
type SearchCollector struct {
	gatherer prometheus.Gatherer

	Submitted prometheus.Counter
	Outcomes  *prometheus.CounterVec
	Durations *prometheus.HistogramVec
	Stale     prometheus.Counter
}

// NewSearchCollector registers the search metrics against reg, defaulting to
// the global registry when nil.
func NewSearchCollector(reg prometheus.Registerer) (*SearchCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	submitted, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "siting_searches_submitted_total",
		Help: "Searches that passed validation and were sent to the recommendation service.",
	}))
	if err != nil {
		return nil, err
	}

	outcomes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siting_search_outcomes_total",
		Help: "Applied search resolutions, labeled by outcome (ok, network, service, malformed).",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "siting_search_duration_seconds",
		Help:    "Time from submit to resolution of a search.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	stale, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "siting_stale_responses_total",
		Help: "Responses discarded because a newer search had been submitted.",
	}))
	if err != nil {
		return nil, err
	}

	return &SearchCollector{
		gatherer:  gatherer,
		Submitted: submitted,
		Outcomes:  outcomes,
		Durations: durations,
		Stale:     stale,
	}, nil
}

// SearchSubmitted records a search sent to the service.
func (c *SearchCollector) SearchSubmitted(tag uint64) {
	if c == nil {
		return
	}
	c.Submitted.Inc()
}

// SearchResolved records an applied resolution and its latency.
func (c *SearchCollector) SearchResolved(tag uint64, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Outcomes.WithLabelValues(outcome).Inc()
	c.Durations.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// SearchDiscarded records a stale response.
func (c *SearchCollector) SearchDiscarded(tag uint64) {
	if c == nil {
		return
	}
	c.Stale.Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SearchCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// register adds collector to reg, reusing an identical collector that is
// already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		var zero T
		return zero, err
	}
	return collector, nil
}
