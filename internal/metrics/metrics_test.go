package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorePool/internal/model"
)

const pool = "0x00000000000000000000000000000000000000AA"

func TestMetricsCountEventsAndFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	ctx := context.Background()
	m.Emit(ctx, model.PoolEvent{Pool: pool, EventName: model.EventSwap})
	m.Emit(ctx, model.PoolEvent{Pool: pool, EventName: model.EventSwap})
	m.Emit(ctx, model.PoolEvent{Pool: pool, EventName: model.EventLiquidityAdded})
	m.ObserveFailure(model.OpSwapExactIn, "output_below_minimum")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.events.WithLabelValues(pool, model.EventSwap)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.events.WithLabelValues(pool, model.EventLiquidityAdded)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues(model.OpSwapExactIn, "output_below_minimum")))

	_, err = New(reg)
	assert.Error(t, err, "registering twice")
}

func TestMetricsSnapshotGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveSnapshot(model.PoolSnapshot{
		Address:     pool,
		ReserveA:    "1100",
		ReserveB:    "3640",
		TotalShares: "2000",
		FeesA:       "1",
		FeesB:       "",
	})

	assert.Equal(t, float64(1100), testutil.ToFloat64(m.reserves.WithLabelValues(pool, "a")))
	assert.Equal(t, float64(3640), testutil.ToFloat64(m.reserves.WithLabelValues(pool, "b")))
	assert.Equal(t, float64(2000), testutil.ToFloat64(m.totalShares.WithLabelValues(pool)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.fees.WithLabelValues(pool, "b")))

	path := filepath.Join(t.TempDir(), "amm.prom")
	require.NoError(t, WriteTextfile(path, reg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "amm_pool_total_shares"))
}
