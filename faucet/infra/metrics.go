package infra

import (
	"context"
	"errors"

	"faucet-gateway/faucet/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exporta o caminho de grant para o Prometheus. Implementa domain.StatsStore,
// então entra no mesmo fan-out que Redis e memória.
type Metrics struct {
	outcomes *prometheus.CounterVec
	sequence *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "faucet",
			Name:      "grant_outcomes_total",
			Help:      "number of grant attempts by outcome (granted, rate_limited, failed, resync)",
		}, []string{"network", "outcome"}),
		sequence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "faucet",
			Name:      "last_sequence",
			Help:      "last sequence number used or resynced to, per network",
		}, []string{"network"}),
	}
	if reg == nil {
		return m, nil
	}
	if err := errors.Join(
		reg.Register(m.outcomes),
		reg.Register(m.sequence),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) Record(_ context.Context, ev domain.StatsEvent) error {
	if m == nil || ev.Outcome == "" {
		return nil
	}
	m.outcomes.WithLabelValues(ev.Network, string(ev.Outcome)).Inc()
	if ev.Outcome == domain.OutcomeGranted || ev.Outcome == domain.OutcomeResync {
		m.sequence.WithLabelValues(ev.Network).Set(float64(ev.Sequence))
	}
	return nil
}
