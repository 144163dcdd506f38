package amm

import (
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func TestIsqrt(t *testing.T) {
	testCases := []struct {
		in   *uint256.Int
		want *uint256.Int
	}{
		{in: u(0), want: u(0)},
		{in: u(1), want: u(1)},
		{in: u(2), want: u(1)},
		{in: u(3), want: u(1)},
		{in: u(4), want: u(2)},
		{in: u(15), want: u(3)},
		{in: u(16), want: u(4)},
		{in: u(17), want: u(4)},
		{in: u(4_000_000), want: u(2000)},
		{in: MaxAmount(), want: uint256.MustFromDecimal("340282366920938463463374607431768211455")},
	}

	for _, tc := range testCases {
		t.Run(tc.in.Dec(), func(t *testing.T) {
			assert.Equal(t, tc.want.Dec(), isqrt(tc.in).Dec())
		})
	}
}

func TestIsqrtMatchesLibrarySqrt(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		n := new(uint256.Int).SetUint64(rng.Uint64())
		n.Lsh(n, uint(rng.Intn(190)))
		n.AddUint64(n, rng.Uint64())

		want := new(uint256.Int).Sqrt(n)
		require.Equal(t, want.Dec(), isqrt(n).Dec(), "n=%s", n.Dec())
	}
}

func TestQuoteExactIn(t *testing.T) {
	testCases := []struct {
		name       string
		amountIn   *uint256.Int
		reserveIn  *uint256.Int
		reserveOut *uint256.Int
		feeBps     uint16
		want       *uint256.Int
		wantErr    error
	}{
		{
			name:       "documented example",
			amountIn:   u(100),
			reserveIn:  u(1000),
			reserveOut: u(4000),
			feeBps:     30,
			want:       u(360),
		},
		{
			name:       "six and eighteen decimals",
			amountIn:   u(1_000_000),
			reserveIn:  u(100_000_000),
			reserveOut: uint256.MustFromDecimal("50000000000000000000"),
			feeBps:     30,
			want:       uint256.MustFromDecimal("493579017198530649"),
		},
		{
			name:       "zero fee",
			amountIn:   u(1000),
			reserveIn:  u(1000),
			reserveOut: u(4000),
			feeBps:     0,
			want:       u(2000),
		},
		{
			name:       "zero input quotes zero",
			amountIn:   u(0),
			reserveIn:  u(1000),
			reserveOut: u(4000),
			feeBps:     30,
			want:       u(0),
		},
		{
			name:       "empty reserve quotes zero",
			amountIn:   u(100),
			reserveIn:  u(0),
			reserveOut: u(4000),
			feeBps:     30,
			want:       u(0),
		},
		{
			name:       "fee of one hundred percent",
			amountIn:   u(100),
			reserveIn:  u(1000),
			reserveOut: u(4000),
			feeBps:     BasisPoints,
			wantErr:    ErrInvalidFee,
		},
		{
			name:       "denominator overflow",
			amountIn:   MaxAmount(),
			reserveIn:  MaxAmount(),
			reserveOut: u(4000),
			feeBps:     0,
			wantErr:    ErrOverflow,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := QuoteExactIn(tc.amountIn, tc.reserveIn, tc.reserveOut, tc.feeBps)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want.Dec(), got.Dec())
		})
	}
}

func TestQuoteExactOut(t *testing.T) {
	testCases := []struct {
		name       string
		amountOut  *uint256.Int
		reserveIn  *uint256.Int
		reserveOut *uint256.Int
		feeBps     uint16
		want       *uint256.Int
	}{
		{name: "inverse of documented example", amountOut: u(360), reserveIn: u(1000), reserveOut: u(4000), feeBps: 30, want: u(100)},
		{name: "raised to reach the output", amountOut: u(1000), reserveIn: u(1000), reserveOut: u(4000), feeBps: 30, want: u(336)},
		{name: "smallest output", amountOut: u(1), reserveIn: u(1000), reserveOut: u(4000), feeBps: 30, want: u(2)},
		{name: "zero fee rounds up", amountOut: u(2000), reserveIn: u(1000), reserveOut: u(4000), feeBps: 0, want: u(1001)},
		{name: "drains reserve", amountOut: u(4000), reserveIn: u(1000), reserveOut: u(4000), feeBps: 30, want: MaxAmount()},
		{name: "more than reserve", amountOut: u(5000), reserveIn: u(1000), reserveOut: u(4000), feeBps: 30, want: MaxAmount()},
		{name: "zero output", amountOut: u(0), reserveIn: u(1000), reserveOut: u(4000), feeBps: 30, want: u(0)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := QuoteExactOut(tc.amountOut, tc.reserveIn, tc.reserveOut, tc.feeBps)
			require.NoError(t, err)
			assert.Equal(t, tc.want.Dec(), got.Dec())
		})
	}
}

// An exact-out quote fed back into exact-in on the same reserves buys at least
// the requested output.
func TestQuoteRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	fees := []uint16{0, 3, 30, 100, 9999}

	for i := 0; i < 5000; i++ {
		reserveIn := u(uint64(rng.Int63n(1_000_000_000)) + 1)
		reserveOut := u(uint64(rng.Int63n(1_000_000_000)) + 2)
		amountOut := u(uint64(rng.Int63n(int64(reserveOut.Uint64()-1))) + 1)
		fee := fees[rng.Intn(len(fees))]

		amountIn, err := QuoteExactOut(amountOut, reserveIn, reserveOut, fee)
		require.NoError(t, err)

		got, err := QuoteExactIn(amountIn, reserveIn, reserveOut, fee)
		require.NoError(t, err)
		require.False(t, got.Lt(amountOut),
			"reserves %s/%s fee %d: exact-out %s needs %s, exact-in pays %s",
			reserveIn.Dec(), reserveOut.Dec(), fee, amountOut.Dec(), amountIn.Dec(), got.Dec())
	}
}

func TestAmountAfterFee(t *testing.T) {
	got, err := AmountAfterFee(u(100), 30)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), got.Uint64())

	got, err = AmountAfterFee(u(1_000_000), 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(999_700), got.Uint64())
}

func TestSharesToMint(t *testing.T) {
	first, err := SharesToMint(u(1000), u(4000), u(0), u(0), u(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), first.Uint64())

	// 500/1000 credits 1000 shares, 1000/4000 only 500.
	limited, err := SharesToMint(u(500), u(1000), u(1000), u(4000), u(2000))
	require.NoError(t, err)
	assert.Equal(t, uint64(500), limited.Uint64())

	_, err = SharesToMint(MaxAmount(), u(2), u(0), u(0), u(0))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = SharesToMint(u(1), u(1), u(0), u(10), u(10))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestShareValue(t *testing.T) {
	got, err := ShareValue(u(1), u(10), u(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Uint64())

	got, err = ShareValue(u(1), u(10), u(0))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestSpotPrice(t *testing.T) {
	got, err := SpotPrice(u(1000), u(4000))
	require.NoError(t, err)
	assert.Equal(t, "4000000000000000000", got.Dec())

	got, err = SpotPrice(u(4000), u(1000))
	require.NoError(t, err)
	assert.Equal(t, "250000000000000000", got.Dec())

	got, err = SpotPrice(u(0), u(1000))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "output_below_minimum", ErrorKind(ErrOutputBelowMinimum))
	assert.Equal(t, "reentrant_call", ErrorKind(ErrReentrantCall))
	assert.Equal(t, "other", ErrorKind(assert.AnError))
	assert.Equal(t, "", ErrorKind(nil))
}
