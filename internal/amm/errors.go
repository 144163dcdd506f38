package amm

import "errors"

var (
	// ErrZeroAmount is returned when a deposit or swap amount is zero.
	ErrZeroAmount = errors.New("amount must be greater than zero")
	// ErrZeroLiquidity is returned when zero shares are redeemed.
	ErrZeroLiquidity = errors.New("liquidity to burn must be greater than zero")
	// ErrInsufficientShareBalance is returned when a provider redeems more shares than it holds.
	ErrInsufficientShareBalance = errors.New("insufficient share balance")
	// ErrInvalidInputAsset is returned when the swap input asset is neither pool asset.
	ErrInvalidInputAsset = errors.New("input asset is not part of the pool")
	// ErrOutputBelowMinimum is returned when the computed output is under the caller's floor.
	ErrOutputBelowMinimum = errors.New("output below minimum")
	// ErrInputExceedsMaximum is returned when the required input is over the caller's ceiling.
	ErrInputExceedsMaximum = errors.New("input exceeds maximum")
	// ErrIdenticalAssets is returned by New when both assets are the same.
	ErrIdenticalAssets = errors.New("pool assets must differ")
	// ErrInvalidFee is returned by New for a fee of 10000 bps or more.
	ErrInvalidFee = errors.New("fee rate must be below 10000 bps")
	// ErrInsufficientLiquidity is returned when a swap or deposit meets an empty reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInsufficientLiquidityMinted is returned when a deposit would mint zero shares.
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	// ErrOverflow is returned when an intermediate product exceeds 256 bits.
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrReentrantCall is returned when a ledger callback calls back into the pool.
	ErrReentrantCall = errors.New("reentrant pool call")
	// ErrNilLedger is returned by New when an asset has no ledger.
	ErrNilLedger = errors.New("ledger is nil")
)

// ErrorKind maps pool errors to a short label. Errors that did not originate in
// the pool are reported as "other".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, ErrZeroLiquidity):
		return "zero_liquidity"
	case errors.Is(err, ErrInsufficientShareBalance):
		return "insufficient_share_balance"
	case errors.Is(err, ErrInvalidInputAsset):
		return "invalid_input_asset"
	case errors.Is(err, ErrOutputBelowMinimum):
		return "output_below_minimum"
	case errors.Is(err, ErrInputExceedsMaximum):
		return "input_exceeds_maximum"
	case errors.Is(err, ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, ErrInsufficientLiquidityMinted):
		return "insufficient_liquidity_minted"
	case errors.Is(err, ErrOverflow):
		return "overflow"
	case errors.Is(err, ErrReentrantCall):
		return "reentrant_call"
	default:
		return "other"
	}
}
