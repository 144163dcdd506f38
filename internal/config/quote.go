package config

import (
	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	Snapshot  string
	ReserveA  string
	ReserveB  string
	FeeBps    uint16
	AssetIn   string
	AmountIn  string
	AmountOut string
	DecimalsA uint8
	DecimalsB uint8
	LogLevel  string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"asset-in":   "a",
		"fee-bps":    30,
		"decimals-a": 18,
		"decimals-b": 18,
		"log-level":  "warn",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	fee, err := feeBps(v)
	if err != nil {
		return QuoteConfig{}, err
	}
	decimalsA, err := decimals(v, "decimals-a")
	if err != nil {
		return QuoteConfig{}, err
	}
	decimalsB, err := decimals(v, "decimals-b")
	if err != nil {
		return QuoteConfig{}, err
	}

	return QuoteConfig{
		Snapshot:  v.GetString("snapshot"),
		ReserveA:  v.GetString("reserve-a"),
		ReserveB:  v.GetString("reserve-b"),
		FeeBps:    fee,
		AssetIn:   v.GetString("asset-in"),
		AmountIn:  v.GetString("amount-in"),
		AmountOut: v.GetString("amount-out"),
		DecimalsA: decimalsA,
		DecimalsB: decimalsB,
		LogLevel:  v.GetString("log-level"),
	}, nil
}
