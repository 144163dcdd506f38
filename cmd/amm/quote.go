package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"anchorePool/internal/amm"
	"anchorePool/internal/config"
	"anchorePool/internal/storage"
)

type quoteResult struct {
	AssetIn        string `json:"asset_in"`
	AmountIn       string `json:"amount_in"`
	AmountOut      string `json:"amount_out"`
	AmountInUnits  string `json:"amount_in_units"`
	AmountOutUnits string `json:"amount_out_units"`
	FeeBps         uint16 `json:"fee_bps"`
	PriceBefore    string `json:"price_before"`
	PriceAfter     string `json:"price_after"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reserveA, reserveB, feeBps, err := quoteReserves(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	var aToB bool
	switch strings.ToLower(cfg.AssetIn) {
	case "a":
		aToB = true
	case "b":
	default:
		return fmt.Errorf("asset-in must be a or b, got %q", cfg.AssetIn)
	}
	if (cfg.AmountIn == "") == (cfg.AmountOut == "") {
		return fmt.Errorf("exactly one of amount-in and amount-out is required")
	}

	reserveIn, reserveOut := reserveA, reserveB
	decimalsIn, decimalsOut := cfg.DecimalsA, cfg.DecimalsB
	if !aToB {
		reserveIn, reserveOut = reserveB, reserveA
		decimalsIn, decimalsOut = cfg.DecimalsB, cfg.DecimalsA
	}

	var amountIn, amountOut *uint256.Int
	if cfg.AmountIn != "" {
		amountIn, err = parseBaseUnits("amount-in", cfg.AmountIn)
	} else {
		amountOut, err = parseBaseUnits("amount-out", cfg.AmountOut)
	}
	if err != nil {
		return err
	}

	q, err := quoteSwap(reserveIn, reserveOut, amountIn, amountOut, feeBps)
	if err != nil {
		return err
	}

	result := quoteResult{
		AssetIn:        strings.ToLower(cfg.AssetIn),
		AmountIn:       q.amountIn.Dec(),
		AmountOut:      q.amountOut.Dec(),
		AmountInUnits:  units(q.amountIn, decimalsIn),
		AmountOutUnits: units(q.amountOut, decimalsOut),
		FeeBps:         feeBps,
		PriceBefore:    units(q.priceBefore, 18),
		PriceAfter:     units(q.priceAfter, 18),
	}
	logger.Debug("quote", zap.Any("result", result))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

type swapQuote struct {
	amountIn    *uint256.Int
	amountOut   *uint256.Int
	priceBefore *uint256.Int
	priceAfter  *uint256.Int
}

// quoteSwap prices an exact-in swap when amountIn is set, otherwise an
// exact-out swap, and the spot price of the input asset before and after.
func quoteSwap(reserveIn, reserveOut, amountIn, amountOut *uint256.Int, feeBps uint16) (swapQuote, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return swapQuote{}, amm.ErrInsufficientLiquidity
	}

	var err error
	if amountIn != nil {
		amountOut, err = amm.QuoteExactIn(amountIn, reserveIn, reserveOut, feeBps)
	} else {
		amountIn, err = amm.QuoteExactOut(amountOut, reserveIn, reserveOut, feeBps)
	}
	if err != nil {
		return swapQuote{}, err
	}
	if amountIn.Eq(amm.MaxAmount()) || !amountOut.Lt(reserveOut) {
		return swapQuote{}, fmt.Errorf("%w: %s cannot be bought from a reserve of %s", amm.ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	priceBefore, err := amm.SpotPrice(reserveIn, reserveOut)
	if err != nil {
		return swapQuote{}, err
	}
	newIn, overflow := new(uint256.Int).AddOverflow(reserveIn, amountIn)
	if overflow {
		return swapQuote{}, amm.ErrOverflow
	}
	priceAfter, err := amm.SpotPrice(newIn, new(uint256.Int).Sub(reserveOut, amountOut))
	if err != nil {
		return swapQuote{}, err
	}
	return swapQuote{amountIn: amountIn, amountOut: amountOut, priceBefore: priceBefore, priceAfter: priceAfter}, nil
}

// quoteReserves returns the reserves and fee from the snapshot when one is
// given, otherwise from the flags.
func quoteReserves(ctx context.Context, cfg config.QuoteConfig) (*uint256.Int, *uint256.Int, uint16, error) {
	if cfg.Snapshot != "" {
		snapshot, ok, err := storage.NewJsonlStorage("", cfg.Snapshot).LoadSnapshot(ctx, "")
		if err != nil {
			return nil, nil, 0, err
		}
		if !ok {
			return nil, nil, 0, fmt.Errorf("snapshot %s not found", cfg.Snapshot)
		}
		reserveA, err := parseBaseUnits("reserve_a", snapshot.ReserveA)
		if err != nil {
			return nil, nil, 0, err
		}
		reserveB, err := parseBaseUnits("reserve_b", snapshot.ReserveB)
		if err != nil {
			return nil, nil, 0, err
		}
		return reserveA, reserveB, snapshot.FeeBps, nil
	}

	reserveA, err := parseBaseUnits("reserve-a", cfg.ReserveA)
	if err != nil {
		return nil, nil, 0, err
	}
	reserveB, err := parseBaseUnits("reserve-b", cfg.ReserveB)
	if err != nil {
		return nil, nil, 0, err
	}
	return reserveA, reserveB, cfg.FeeBps, nil
}

func parseBaseUnits(name, input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	amount, err := uint256.FromDecimal(input)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, input, err)
	}
	return amount, nil
}

// units renders a base-unit amount with the given number of decimals.
func units(amount *uint256.Int, decimals uint8) string {
	return decimal.NewFromBigInt(amount.ToBig(), -int32(decimals)).String()
}
