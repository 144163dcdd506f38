package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorePool/internal/chain"
	"anchorePool/internal/model"
)

var (
	pool   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	assetA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	assetB = common.HexToAddress("0x000000000000000000000000000000000000000b")
)

func ledgerOf(balances map[common.Address]uint64) BalanceFunc {
	return func(_ context.Context, token, owner common.Address) (*uint256.Int, error) {
		if owner != pool {
			return new(uint256.Int), nil
		}
		return uint256.NewInt(balances[token]), nil
	}
}

func snapshot() model.PoolSnapshot {
	return model.PoolSnapshot{
		Address:  pool.Hex(),
		AssetA:   assetA.Hex(),
		AssetB:   assetB.Hex(),
		ReserveA: "1100",
		ReserveB: "3640",
		Seq:      2,
	}
}

func TestReconcileInSync(t *testing.T) {
	r := New(ledgerOf(map[common.Address]uint64{assetA: 1100, assetB: 3640}), chain.RetryPolicy{}, nil)

	report, err := r.Run(context.Background(), snapshot())
	require.NoError(t, err)
	assert.True(t, report.InSync())
	assert.Equal(t, uint64(2), report.Seq)
	require.Len(t, report.Drifts, 2)
	assert.Equal(t, "0", report.Drifts[0].Delta)
}

func TestReconcileReportsDrift(t *testing.T) {
	r := New(ledgerOf(map[common.Address]uint64{assetA: 1600, assetB: 3000}), chain.RetryPolicy{}, nil)

	report, err := r.Run(context.Background(), snapshot())
	require.NoError(t, err)
	assert.False(t, report.InSync())

	assert.Equal(t, Drift{
		Side: "a", Asset: assetA.Hex(), Cached: "1100", Ledger: "1600", Delta: "500", Surplus: true,
	}, report.Drifts[0])
	assert.Equal(t, Drift{
		Side: "b", Asset: assetB.Hex(), Cached: "3640", Ledger: "3000", Delta: "-640",
	}, report.Drifts[1])
}

func TestReconcileRetriesReads(t *testing.T) {
	calls := 0
	flaky := func(ctx context.Context, token, owner common.Address) (*uint256.Int, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("timeout")
		}
		return ledgerOf(map[common.Address]uint64{assetA: 1100, assetB: 3640})(ctx, token, owner)
	}
	r := New(flaky, chain.RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}, nil)

	report, err := r.Run(context.Background(), snapshot())
	require.NoError(t, err)
	assert.True(t, report.InSync())
	assert.Equal(t, 3, calls)
}

func TestReconcileRejectsBadSnapshot(t *testing.T) {
	r := New(ledgerOf(nil), chain.RetryPolicy{}, nil)

	bad := snapshot()
	bad.ReserveA = "not-a-number"
	_, err := r.Run(context.Background(), bad)
	assert.Error(t, err)

	bad = snapshot()
	bad.Address = "pool"
	_, err = r.Run(context.Background(), bad)
	assert.Error(t, err)

	down := errors.New("down")
	r = New(func(context.Context, common.Address, common.Address) (*uint256.Int, error) {
		return nil, down
	}, chain.RetryPolicy{}, nil)
	_, err = r.Run(context.Background(), snapshot())
	require.ErrorIs(t, err, down)
}

func TestReconcileReportsDeltaInUnits(t *testing.T) {
	calls := 0
	decimals := func(_ context.Context, token common.Address) (uint8, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("timeout")
		}
		if token == assetA {
			return 2, nil
		}
		return 3, nil
	}
	r := New(ledgerOf(map[common.Address]uint64{assetA: 1600, assetB: 3000}), chain.RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond}, nil).
		WithDecimals(decimals)

	report, err := r.Run(context.Background(), snapshot())
	require.NoError(t, err)
	assert.Equal(t, "5", report.Drifts[0].DeltaUnits)
	assert.Equal(t, "-0.64", report.Drifts[1].DeltaUnits)
}

func TestReconcileFailsWithoutDecimals(t *testing.T) {
	decimals := func(context.Context, common.Address) (uint8, error) {
		return 0, errors.New("not a token")
	}
	r := New(ledgerOf(map[common.Address]uint64{assetA: 1100, assetB: 3640}), chain.RetryPolicy{}, nil).WithDecimals(decimals)

	_, err := r.Run(context.Background(), snapshot())
	assert.ErrorContains(t, err, "decimals of")
}
