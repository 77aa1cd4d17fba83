package infra

import (
	"context"
	"testing"

	"faucet-gateway/faucet/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsOutcomesAndSequence(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Record(ctx, domain.StatsEvent{Network: "testnet", Outcome: domain.OutcomeGranted, Sequence: 4}))
	require.NoError(t, m.Record(ctx, domain.StatsEvent{Network: "testnet", Outcome: domain.OutcomeResync, Sequence: 9}))
	require.NoError(t, m.Record(ctx, domain.StatsEvent{Network: "testnet", Outcome: domain.OutcomeRateLimited}))

	require.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("testnet", "granted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("testnet", "resync")))
	require.Equal(t, 9.0, testutil.ToFloat64(m.sequence.WithLabelValues("testnet")))
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	require.Error(t, err)
}
