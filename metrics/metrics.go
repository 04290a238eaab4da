package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private
// registry. All record methods are nil-safe so callers can run without
// instrumentation wired.
type Metrics struct {
	registry *prometheus.Registry

	decisionsTotal   *prometheus.CounterVec
	phaseTransitions *prometheus.CounterVec
	matchesTotal     *prometheus.CounterVec
	selectorPicks    *prometheus.CounterVec

	activeSessions prometheus.Gauge

	sessionDuration prometheus.Histogram
	stepLatency     *prometheus.HistogramVec
}

func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opponent_decisions_total",
				Help: "Brain decisions taken, by archetype and FSM state",
			},
			[]string{"archetype", "state"},
		),
		phaseTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opponent_phase_transitions_total",
				Help: "Adaptation phase transitions, by archetype and destination phase",
			},
			[]string{"archetype", "phase"},
		),
		matchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opponent_matches_total",
				Help: "Finished matches, by archetype and winner",
			},
			[]string{"archetype", "winner"},
		),
		selectorPicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opponent_selector_picks_total",
				Help: "Archetype selections, by archetype and detected player style",
			},
			[]string{"archetype", "style"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opponent_active_sessions",
				Help: "Fight sessions currently registered",
			},
		),
		sessionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "opponent_session_duration_seconds",
				Help:    "Simulated fight duration at finalize",
				Buckets: []float64{5, 10, 20, 30, 45, 60, 90, 120, 180, 300},
			},
		),
		stepLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opponent_step_latency_seconds",
				Help:    "Wall time spent per brain step, by transport",
				Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
			},
			[]string{"transport"},
		),
	}

	collectors := []prometheus.Collector{
		m.decisionsTotal,
		m.phaseTransitions,
		m.matchesTotal,
		m.selectorPicks,
		m.activeSessions,
		m.sessionDuration,
		m.stepLatency,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (m *Metrics) RecordDecision(archetype, state string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(archetype, state).Inc()
}

func (m *Metrics) RecordPhaseTransition(archetype, phase string) {
	if m == nil {
		return
	}
	m.phaseTransitions.WithLabelValues(archetype, phase).Inc()
}

func (m *Metrics) RecordMatch(archetype, winner string) {
	if m == nil {
		return
	}
	m.matchesTotal.WithLabelValues(archetype, winner).Inc()
}

func (m *Metrics) RecordSelectorPick(archetype, style string) {
	if m == nil {
		return
	}
	m.selectorPicks.WithLabelValues(archetype, style).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) ObserveSessionDuration(seconds float64) {
	if m == nil {
		return
	}
	m.sessionDuration.Observe(seconds)
}

func (m *Metrics) ObserveStepLatency(transport string, seconds float64) {
	if m == nil {
		return
	}
	m.stepLatency.WithLabelValues(transport).Observe(seconds)
}
