package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"anchorePool/internal/model"
)

// SwapExactIn sells amountIn of assetIn from sender and pays the quoted output
// of the other asset to recipient. It fails with ErrOutputBelowMinimum, before
// any funds move, when the output is under minAmountOut.
func (p *Pool) SwapExactIn(
	ctx context.Context,
	sender common.Address,
	amountIn *uint256.Int,
	assetIn common.Address,
	minAmountOut *uint256.Int,
	recipient common.Address,
) (*uint256.Int, error) {
	if isZero(amountIn) {
		return nil, ErrZeroAmount
	}
	in, err := p.sideOf(assetIn)
	if err != nil {
		return nil, err
	}

	ctx, err = p.enter(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureSynced(ctx); err != nil {
		return nil, err
	}

	out := in.other()
	amountOut, err := QuoteExactIn(amountIn, &p.reserves[in], &p.reserves[out], p.feeBps)
	if err != nil {
		return nil, err
	}
	if amountOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	if minAmountOut != nil && amountOut.Lt(minAmountOut) {
		return nil, fmt.Errorf("%w: got %s, want at least %s", ErrOutputBelowMinimum, amountOut.Dec(), minAmountOut.Dec())
	}

	if err := p.swap(ctx, sender, in, amountIn, recipient, amountOut); err != nil {
		return nil, err
	}
	return amountOut, nil
}

// SwapExactOut buys amountOut of the asset opposite assetIn for recipient and
// charges sender the quoted input. It fails with ErrInputExceedsMaximum, before
// any funds move, when the input is over maxAmountIn or the trade would drain
// the output reserve. A nil maxAmountIn admits no input at all.
func (p *Pool) SwapExactOut(
	ctx context.Context,
	sender common.Address,
	amountOut *uint256.Int,
	assetIn common.Address,
	maxAmountIn *uint256.Int,
	recipient common.Address,
) (*uint256.Int, error) {
	if isZero(amountOut) {
		return nil, ErrZeroAmount
	}
	in, err := p.sideOf(assetIn)
	if err != nil {
		return nil, err
	}

	ctx, err = p.enter(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureSynced(ctx); err != nil {
		return nil, err
	}

	out := in.other()
	if p.reserves[in].IsZero() || p.reserves[out].IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	amountIn, err := QuoteExactOut(amountOut, &p.reserves[in], &p.reserves[out], p.feeBps)
	if err != nil {
		return nil, err
	}
	if !amountOut.Lt(&p.reserves[out]) {
		return nil, fmt.Errorf("%w: output %s drains reserve %s", ErrInputExceedsMaximum, amountOut.Dec(), p.reserves[out].Dec())
	}
	if maxAmountIn == nil || amountIn.Gt(maxAmountIn) {
		limit := "0"
		if maxAmountIn != nil {
			limit = maxAmountIn.Dec()
		}
		return nil, fmt.Errorf("%w: need %s, allowed %s", ErrInputExceedsMaximum, amountIn.Dec(), limit)
	}

	if err := p.swap(ctx, sender, in, amountIn, recipient, amountOut); err != nil {
		return nil, err
	}
	return amountIn, nil
}

// swap settles a priced trade. Reserves and the fee counter move first; the
// input is then pulled from sender and the output pushed to recipient.
func (p *Pool) swap(ctx context.Context, sender common.Address, in side, amountIn *uint256.Int, recipient common.Address, amountOut *uint256.Int) error {
	out := in.other()

	afterFee, err := AmountAfterFee(amountIn, p.feeBps)
	if err != nil {
		return err
	}
	fee := new(uint256.Int).Sub(amountIn, afterFee)

	reserveIn, overflow := new(uint256.Int).AddOverflow(&p.reserves[in], amountIn)
	if overflow {
		return ErrOverflow
	}
	feesIn, overflow := new(uint256.Int).AddOverflow(&p.fees[in], fee)
	if overflow {
		return ErrOverflow
	}

	cp := p.checkpoint(sender)
	p.reserves[in] = *reserveIn
	p.reserves[out].Sub(&p.reserves[out], amountOut)
	p.fees[in] = *feesIn

	if err := p.pull(ctx, in, sender, amountIn); err != nil {
		p.restore(cp)
		return err
	}
	if err := p.push(ctx, out, recipient, amountOut); err != nil {
		err = multierr.Append(err, p.refund(ctx, in, sender, amountIn))
		p.restore(cp)
		return err
	}

	p.settle(ctx, "swap")

	p.logger.Debug("swap",
		zap.String("sender", sender.Hex()),
		zap.String("asset_in", p.assets[in].Hex()),
		zap.String("amount_in", amountIn.Dec()),
		zap.String("amount_out", amountOut.Dec()),
		zap.String("fee", fee.Dec()),
		zap.String("recipient", recipient.Hex()),
	)
	p.emit(ctx, model.EventSwap, model.SwapEvent{
		Sender:    sender.Hex(),
		AssetIn:   p.assets[in].Hex(),
		AssetOut:  p.assets[out].Hex(),
		AmountIn:  amountIn.Dec(),
		AmountOut: amountOut.Dec(),
		Recipient: recipient.Hex(),
	})
	return nil
}
