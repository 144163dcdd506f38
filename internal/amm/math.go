package amm

import (
	"github.com/holiman/uint256"
)

// BasisPoints is 100% expressed in basis points.
const BasisPoints = 10000

var (
	bpsDivisor = uint256.NewInt(BasisPoints)
	priceScale = uint256.NewInt(1_000_000_000_000_000_000)
)

// MaxAmount returns the largest representable amount. QuoteExactOut reports it
// as the required input of a trade that would drain the output reserve.
func MaxAmount() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

func feeMultiplier(feeBps uint16) (*uint256.Int, error) {
	if feeBps >= BasisPoints {
		return nil, ErrInvalidFee
	}
	return uint256.NewInt(BasisPoints - uint64(feeBps)), nil
}

// AmountAfterFee returns floor(amountIn * (10000 - feeBps) / 10000).
func AmountAfterFee(amountIn *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	mult, err := feeMultiplier(feeBps)
	if err != nil {
		return nil, err
	}
	out, overflow := new(uint256.Int).MulDivOverflow(amountIn, mult, bpsDivisor)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// QuoteExactIn returns the output paid for amountIn given the reserves on each
// side of the trade:
//
//	afterFee  = floor(amountIn * (10000 - feeBps) / 10000)
//	amountOut = floor(afterFee * reserveOut / (reserveIn + afterFee))
//
// A zero input or an empty reserve quotes zero.
func QuoteExactIn(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	if feeBps >= BasisPoints {
		return nil, ErrInvalidFee
	}
	if amountIn.IsZero() || reserveIn.IsZero() || reserveOut.IsZero() {
		return new(uint256.Int), nil
	}

	afterFee, err := AmountAfterFee(amountIn, feeBps)
	if err != nil {
		return nil, err
	}

	denominator, overflow := new(uint256.Int).AddOverflow(reserveIn, afterFee)
	if overflow {
		return nil, ErrOverflow
	}
	out, overflow := new(uint256.Int).MulDivOverflow(afterFee, reserveOut, denominator)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// QuoteExactOut returns the input required to receive amountOut:
//
//	amountIn = floor(reserveIn * amountOut * 10000 / ((reserveOut - amountOut) * (10000 - feeBps))) + 1
//
// and never less than the smallest input that QuoteExactIn converts into at
// least amountOut. When amountOut would take the whole output reserve the
// result is MaxAmount. A zero output or an empty reserve quotes zero.
func QuoteExactOut(amountOut, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	mult, err := feeMultiplier(feeBps)
	if err != nil {
		return nil, err
	}
	if amountOut.IsZero() || reserveIn.IsZero() || reserveOut.IsZero() {
		return new(uint256.Int), nil
	}
	if !amountOut.Lt(reserveOut) {
		return MaxAmount(), nil
	}

	numerator, overflow := new(uint256.Int).MulOverflow(reserveIn, amountOut)
	if overflow {
		return nil, ErrOverflow
	}
	denominator := new(uint256.Int).Sub(reserveOut, amountOut)
	if _, overflow = denominator.MulOverflow(denominator, mult); overflow {
		return nil, ErrOverflow
	}

	in, overflow := new(uint256.Int).MulDivOverflow(numerator, bpsDivisor, denominator)
	if overflow {
		return nil, ErrOverflow
	}
	if _, overflow = in.AddOverflow(in, uint256.NewInt(1)); overflow {
		return nil, ErrOverflow
	}

	// The closed form ignores that exact-in floors the fee haircut on its own,
	// so it can land a unit short of an input that buys amountOut. Raise it to
	// the smallest input whose exact-in quote reaches amountOut.
	afterFee, err := mulDivUp(amountOut, reserveIn, new(uint256.Int).Sub(reserveOut, amountOut))
	if err != nil {
		return nil, err
	}
	least, err := mulDivUp(afterFee, bpsDivisor, mult)
	if err != nil {
		return nil, err
	}
	if in.Lt(least) {
		in = least
	}
	return in, nil
}

// mulDivUp returns ceil(x * y / d) for a non-zero d.
func mulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	q, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	if !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if _, overflow = q.AddOverflow(q, uint256.NewInt(1)); overflow {
			return nil, ErrOverflow
		}
	}
	return q, nil
}

// SharesToMint returns the shares credited for a deposit. The first deposit
// mints the geometric mean of the two amounts; later deposits are credited for
// the smaller of the two ratios against the pre-deposit reserves.
func SharesToMint(amountA, amountB, reserveA, reserveB, totalShares *uint256.Int) (*uint256.Int, error) {
	if totalShares.IsZero() {
		product, overflow := new(uint256.Int).MulOverflow(amountA, amountB)
		if overflow {
			return nil, ErrOverflow
		}
		return isqrt(product), nil
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrInsufficientLiquidity
	}

	byA, overflow := new(uint256.Int).MulDivOverflow(amountA, totalShares, reserveA)
	if overflow {
		return nil, ErrOverflow
	}
	byB, overflow := new(uint256.Int).MulDivOverflow(amountB, totalShares, reserveB)
	if overflow {
		return nil, ErrOverflow
	}
	if byA.Lt(byB) {
		return byA, nil
	}
	return byB, nil
}

// ShareValue returns floor(shares * reserve / totalShares).
func ShareValue(shares, reserve, totalShares *uint256.Int) (*uint256.Int, error) {
	if totalShares.IsZero() {
		return new(uint256.Int), nil
	}
	out, overflow := new(uint256.Int).MulDivOverflow(shares, reserve, totalShares)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// SpotPrice returns reserveOther * 1e18 / reserveThis, or zero when either
// reserve is empty.
func SpotPrice(reserveThis, reserveOther *uint256.Int) (*uint256.Int, error) {
	if reserveThis.IsZero() || reserveOther.IsZero() {
		return new(uint256.Int), nil
	}
	out, overflow := new(uint256.Int).MulDivOverflow(reserveOther, priceScale, reserveThis)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}
