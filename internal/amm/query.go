package amm

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"anchorePool/internal/model"
)

// Address returns the pool's account on the asset ledgers.
func (p *Pool) Address() common.Address {
	return p.address
}

// Assets returns the two pooled assets in provisioning order.
func (p *Pool) Assets() (common.Address, common.Address) {
	return p.assets[sideA], p.assets[sideB]
}

func (p *Pool) FeeBps() uint16 {
	return p.feeBps
}

// Reserves returns the cached reserves of asset A and asset B.
func (p *Pool) Reserves() (*uint256.Int, *uint256.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reserves[sideA].Clone(), p.reserves[sideB].Clone()
}

func (p *Pool) TotalShares() *uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalShares.Clone()
}

// ShareBalance returns the shares held by account.
func (p *Pool) ShareBalance(account common.Address) *uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	balance := p.shares[account]
	return balance.Clone()
}

// AccumulatedFees returns the fee income collected on each side. Fees stay in
// the reserves; the counters are informational.
func (p *Pool) AccumulatedFees() (*uint256.Int, *uint256.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fees[sideA].Clone(), p.fees[sideB].Clone()
}

// Price returns the price of asset in units of the other asset, scaled by
// 1e18. It is zero while either reserve is empty.
func (p *Pool) Price(asset common.Address) (*uint256.Int, error) {
	s, err := p.sideOf(asset)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return SpotPrice(&p.reserves[s], &p.reserves[s.other()])
}

// AmountOut quotes SwapExactIn against the current reserves.
func (p *Pool) AmountOut(amountIn *uint256.Int, assetIn common.Address) (*uint256.Int, error) {
	in, err := p.sideOf(assetIn)
	if err != nil {
		return nil, err
	}
	if amountIn == nil {
		amountIn = new(uint256.Int)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return QuoteExactIn(amountIn, &p.reserves[in], &p.reserves[in.other()], p.feeBps)
}

// AmountIn quotes SwapExactOut against the current reserves.
func (p *Pool) AmountIn(amountOut *uint256.Int, assetIn common.Address) (*uint256.Int, error) {
	in, err := p.sideOf(assetIn)
	if err != nil {
		return nil, err
	}
	if amountOut == nil {
		amountOut = new(uint256.Int)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return QuoteExactOut(amountOut, &p.reserves[in], &p.reserves[in.other()], p.feeBps)
}

// Snapshot copies the pool state into a storage record.
func (p *Pool) Snapshot() model.PoolSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	shares := make(map[string]string, len(p.shares))
	for account, balance := range p.shares {
		shares[account.Hex()] = balance.Dec()
	}

	return model.PoolSnapshot{
		Address:     p.address.Hex(),
		AssetA:      p.assets[sideA].Hex(),
		AssetB:      p.assets[sideB].Hex(),
		FeeBps:      p.feeBps,
		ReserveA:    p.reserves[sideA].Dec(),
		ReserveB:    p.reserves[sideB].Dec(),
		TotalShares: p.totalShares.Dec(),
		FeesA:       p.fees[sideA].Dec(),
		FeesB:       p.fees[sideB].Dec(),
		Shares:      shares,
		Seq:         p.seq,
		TakenAt:     p.now().UTC().Format(time.RFC3339Nano),
	}
}
