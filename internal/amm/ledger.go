package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"anchorePool/internal/model"
)

// Ledger is the balance book of one pooled asset.
//
// The pool calls a Ledger while holding its write lock. An implementation that
// calls back into the pool must pass along the context it received; mutating
// pool calls made with that context fail with ErrReentrantCall. Read-only pool
// queries must not be called from inside a Ledger method.
type Ledger interface {
	// TransferFrom moves amount from owner to recipient on behalf of spender,
	// consuming spender's allowance.
	TransferFrom(ctx context.Context, spender, owner, recipient common.Address, amount *uint256.Int) error
	// Transfer moves amount from sender's own balance to recipient.
	Transfer(ctx context.Context, sender, recipient common.Address, amount *uint256.Int) error
	BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error)
}

// EventSink receives records emitted by a pool after each successful operation.
type EventSink interface {
	Emit(ctx context.Context, event model.PoolEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event model.PoolEvent)

func (f EventSinkFunc) Emit(ctx context.Context, event model.PoolEvent) {
	f(ctx, event)
}

// MultiSink fans events out to every sink in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, event model.PoolEvent) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}
