package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"anchorePool/internal/model"
)

// AddLiquidity pulls amountA and amountB from provider and mints shares to it.
//
// The first deposit into an empty pool mints isqrt(amountA*amountB) shares
// whatever the ratio, so that depositor sets the initial price. Later deposits
// are credited for the smaller of the two ratios against the pre-deposit
// reserves; any excess of the other asset stays in the pool.
func (p *Pool) AddLiquidity(ctx context.Context, provider common.Address, amountA, amountB *uint256.Int) (*uint256.Int, error) {
	if isZero(amountA) || isZero(amountB) {
		return nil, ErrZeroAmount
	}

	ctx, err := p.enter(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureSynced(ctx); err != nil {
		return nil, err
	}

	shares, err := SharesToMint(amountA, amountB, &p.reserves[sideA], &p.reserves[sideB], &p.totalShares)
	if err != nil {
		return nil, err
	}
	if shares.IsZero() {
		return nil, ErrInsufficientLiquidityMinted
	}

	total, overflow := new(uint256.Int).AddOverflow(&p.totalShares, shares)
	if overflow {
		return nil, ErrOverflow
	}
	reserveA, overflow := new(uint256.Int).AddOverflow(&p.reserves[sideA], amountA)
	if overflow {
		return nil, ErrOverflow
	}
	reserveB, overflow := new(uint256.Int).AddOverflow(&p.reserves[sideB], amountB)
	if overflow {
		return nil, ErrOverflow
	}

	cp := p.checkpoint(provider)
	p.totalShares = *total
	p.reserves[sideA] = *reserveA
	p.reserves[sideB] = *reserveB
	p.credit(provider, shares)

	if err := p.pull(ctx, sideA, provider, amountA); err != nil {
		p.restore(cp)
		return nil, err
	}
	if err := p.pull(ctx, sideB, provider, amountB); err != nil {
		err = multierr.Append(err, p.refund(ctx, sideA, provider, amountA))
		p.restore(cp)
		return nil, err
	}

	p.settle(ctx, model.OpAddLiquidity)

	p.logger.Debug("liquidity added",
		zap.String("provider", provider.Hex()),
		zap.String("amount_a", amountA.Dec()),
		zap.String("amount_b", amountB.Dec()),
		zap.String("shares", shares.Dec()),
	)
	p.emit(ctx, model.EventLiquidityAdded, model.LiquidityAddedEvent{
		Provider: provider.Hex(),
		AmountA:  amountA.Dec(),
		AmountB:  amountB.Dec(),
		Shares:   shares.Dec(),
	})

	return shares, nil
}

// RemoveLiquidity burns shares held by provider and pays out its proportional
// claim on both reserves, rounded down.
//
// If the B payout fails after A was paid and A cannot be taken back, the
// burn is kept and the amounts actually paid are returned with the error.
func (p *Pool) RemoveLiquidity(ctx context.Context, provider common.Address, shares *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if isZero(shares) {
		return nil, nil, ErrZeroLiquidity
	}

	ctx, err := p.enter(ctx)
	if err != nil {
		return nil, nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureSynced(ctx); err != nil {
		return nil, nil, err
	}

	balance := p.shares[provider]
	if balance.Lt(shares) {
		return nil, nil, ErrInsufficientShareBalance
	}

	amountA, err := ShareValue(shares, &p.reserves[sideA], &p.totalShares)
	if err != nil {
		return nil, nil, err
	}
	amountB, err := ShareValue(shares, &p.reserves[sideB], &p.totalShares)
	if err != nil {
		return nil, nil, err
	}

	// Burn before paying out.
	cp := p.checkpoint(provider)
	p.debit(provider, shares)
	p.totalShares.Sub(&p.totalShares, shares)
	p.reserves[sideA].Sub(&p.reserves[sideA], amountA)
	p.reserves[sideB].Sub(&p.reserves[sideB], amountB)

	if err := p.push(ctx, sideA, provider, amountA); err != nil {
		p.restore(cp)
		return nil, nil, err
	}
	if err := p.push(ctx, sideB, provider, amountB); err != nil {
		if reclaimErr := p.reclaim(ctx, sideA, provider, amountA); reclaimErr != nil {
			// The A payout stays with the provider, so the burn stands and
			// the unpaid B side remains in the reserves.
			p.settle(ctx, model.OpRemoveLiquidity)
			p.emit(ctx, model.EventLiquidityRemoved, model.LiquidityRemovedEvent{
				Provider: provider.Hex(),
				AmountA:  amountA.Dec(),
				AmountB:  "0",
				Shares:   shares.Dec(),
			})
			return amountA, new(uint256.Int), multierr.Append(err, reclaimErr)
		}
		p.restore(cp)
		return nil, nil, err
	}

	p.settle(ctx, model.OpRemoveLiquidity)

	p.logger.Debug("liquidity removed",
		zap.String("provider", provider.Hex()),
		zap.String("amount_a", amountA.Dec()),
		zap.String("amount_b", amountB.Dec()),
		zap.String("shares", shares.Dec()),
	)
	p.emit(ctx, model.EventLiquidityRemoved, model.LiquidityRemovedEvent{
		Provider: provider.Hex(),
		AmountA:  amountA.Dec(),
		AmountB:  amountB.Dec(),
		Shares:   shares.Dec(),
	})

	return amountA, amountB, nil
}
