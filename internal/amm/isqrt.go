package amm

import "github.com/holiman/uint256"

// isqrt returns floor(sqrt(n)) using Newton's iteration over integers.
func isqrt(n *uint256.Int) *uint256.Int {
	if n.IsZero() {
		return new(uint256.Int)
	}
	if n.IsUint64() && n.Uint64() == 1 {
		return uint256.NewInt(1)
	}

	x := new(uint256.Int).Set(n)
	// (n+1)/2 without overflowing at the top of the range.
	y := new(uint256.Int).Rsh(n, 1)
	if n.Uint64()&1 == 1 {
		y.AddUint64(y, 1)
	}

	q := new(uint256.Int)
	for y.Lt(x) {
		x.Set(y)
		q.Div(n, x)
		y.Add(x, q)
		y.Rsh(y, 1)
	}
	return x
}
