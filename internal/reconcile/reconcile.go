package reconcile

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"anchorePool/internal/chain"
	"anchorePool/internal/model"
)

// BalanceFunc reads owner's balance of token from the asset ledger.
type BalanceFunc func(ctx context.Context, token, owner common.Address) (*uint256.Int, error)

// DecimalsFunc reads the display decimals of token.
type DecimalsFunc func(ctx context.Context, token common.Address) (uint8, error)

// Drift compares one cached reserve with the ledger balance behind it.
// DeltaUnits is Delta in whole tokens and is only set when decimals are known.
type Drift struct {
	Side       string `json:"side"`
	Asset      string `json:"asset"`
	Cached     string `json:"cached"`
	Ledger     string `json:"ledger"`
	Delta      string `json:"delta"`
	DeltaUnits string `json:"delta_units,omitempty"`
	InSync     bool   `json:"in_sync"`
	Surplus    bool   `json:"surplus"`
}

// Report is the outcome of reconciling one pool snapshot.
type Report struct {
	Pool   string  `json:"pool"`
	Seq    uint64  `json:"seq"`
	Drifts []Drift `json:"drifts"`
}

// InSync reports whether every cached reserve matches its ledger.
func (r Report) InSync() bool {
	for _, d := range r.Drifts {
		if !d.InSync {
			return false
		}
	}
	return true
}

// Reconciler checks stored pool reserves against ledger balances. A positive
// delta means the ledger holds more than the pool recorded, typically a
// donation the next operation will absorb; a negative delta means funds left
// the pool without a resync.
type Reconciler struct {
	balanceOf BalanceFunc
	decimals  DecimalsFunc
	retry     chain.RetryPolicy
	logger    *zap.Logger
}

func New(balanceOf BalanceFunc, retry chain.RetryPolicy, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{balanceOf: balanceOf, retry: retry, logger: logger}
}

// WithDecimals makes the report carry deltas in token units.
func (r *Reconciler) WithDecimals(decimals DecimalsFunc) *Reconciler {
	r.decimals = decimals
	return r
}

func (r *Reconciler) Run(ctx context.Context, snapshot model.PoolSnapshot) (Report, error) {
	if r.balanceOf == nil {
		return Report{}, fmt.Errorf("balance reader is nil")
	}
	if !common.IsHexAddress(snapshot.Address) {
		return Report{}, fmt.Errorf("invalid pool address %q", snapshot.Address)
	}
	pool := common.HexToAddress(snapshot.Address)

	report := Report{Pool: pool.Hex(), Seq: snapshot.Seq}
	sides := []struct {
		name    string
		asset   string
		reserve string
	}{
		{name: "a", asset: snapshot.AssetA, reserve: snapshot.ReserveA},
		{name: "b", asset: snapshot.AssetB, reserve: snapshot.ReserveB},
	}
	for _, side := range sides {
		drift, err := r.compare(ctx, pool, side.name, side.asset, side.reserve)
		if err != nil {
			return Report{}, err
		}
		report.Drifts = append(report.Drifts, drift)
	}
	return report, nil
}

func (r *Reconciler) compare(ctx context.Context, pool common.Address, side, asset, reserve string) (Drift, error) {
	if !common.IsHexAddress(asset) {
		return Drift{}, fmt.Errorf("invalid asset %s address %q", side, asset)
	}
	token := common.HexToAddress(asset)

	cached, err := uint256.FromDecimal(reserve)
	if err != nil {
		return Drift{}, fmt.Errorf("parse reserve %s: %w", side, err)
	}

	var balance *uint256.Int
	err = r.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		balance, err = r.balanceOf(ctx, token, pool)
		return err
	}, func(attempt int, err error) {
		r.logger.Warn("balance read failed", zap.String("asset", token.Hex()), zap.Int("attempt", attempt), zap.Error(err))
	})
	if err != nil {
		return Drift{}, fmt.Errorf("balance of %s: %w", token.Hex(), err)
	}

	delta := decimal.NewFromBigInt(balance.ToBig(), 0).Sub(decimal.NewFromBigInt(cached.ToBig(), 0))
	drift := Drift{
		Side:    side,
		Asset:   token.Hex(),
		Cached:  cached.Dec(),
		Ledger:  balance.Dec(),
		Delta:   delta.String(),
		InSync:  delta.IsZero(),
		Surplus: delta.IsPositive(),
	}
	if r.decimals != nil {
		var decimals uint8
		err := r.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			decimals, err = r.decimals(ctx, token)
			return err
		}, func(attempt int, err error) {
			r.logger.Warn("decimals read failed", zap.String("asset", token.Hex()), zap.Int("attempt", attempt), zap.Error(err))
		})
		if err != nil {
			return Drift{}, fmt.Errorf("decimals of %s: %w", token.Hex(), err)
		}
		drift.DeltaUnits = delta.Shift(-int32(decimals)).String()
	}
	if !drift.InSync {
		r.logger.Info("reserve drift",
			zap.String("side", side),
			zap.String("asset", drift.Asset),
			zap.String("cached", drift.Cached),
			zap.String("ledger", drift.Ledger),
			zap.String("delta", drift.Delta),
		)
	}
	return drift, nil
}
