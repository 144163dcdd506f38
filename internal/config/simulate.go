package config

import (
	"github.com/spf13/pflag"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Scenario          string
	Out               string
	Snapshot          string
	Errors            string
	PGDSN             string
	BatchSize         int
	Checkpoint        string
	CheckpointEnabled bool
	MetricsFile       string
	LogLevel          string

	PoolAddress string
	AssetA      string
	AssetB      string
	SymbolA     string
	SymbolB     string
	DecimalsA   uint8
	DecimalsB   uint8
	FeeBps      uint16
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"out":                "./data/events.jsonl",
		"snapshot":           "./data/snapshot.json",
		"errors":             "./data/errors.jsonl",
		"batch-size":         500,
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"log-level":          "info",
		"pool":               "0x00000000000000000000000000000000000000a0",
		"asset-a":            "0x000000000000000000000000000000000000000a",
		"asset-b":            "0x000000000000000000000000000000000000000b",
		"symbol-a":           "A",
		"symbol-b":           "B",
		"decimals-a":         18,
		"decimals-b":         18,
		"fee-bps":            30,
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	fee, err := feeBps(v)
	if err != nil {
		return SimulateConfig{}, err
	}
	decimalsA, err := decimals(v, "decimals-a")
	if err != nil {
		return SimulateConfig{}, err
	}
	decimalsB, err := decimals(v, "decimals-b")
	if err != nil {
		return SimulateConfig{}, err
	}

	return SimulateConfig{
		Scenario:          v.GetString("in"),
		Out:               v.GetString("out"),
		Snapshot:          v.GetString("snapshot"),
		Errors:            v.GetString("errors"),
		PGDSN:             v.GetString("pg-dsn"),
		BatchSize:         v.GetInt("batch-size"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MetricsFile:       v.GetString("metrics-file"),
		LogLevel:          v.GetString("log-level"),
		PoolAddress:       v.GetString("pool"),
		AssetA:            v.GetString("asset-a"),
		AssetB:            v.GetString("asset-b"),
		SymbolA:           v.GetString("symbol-a"),
		SymbolB:           v.GetString("symbol-b"),
		DecimalsA:         decimalsA,
		DecimalsB:         decimalsB,
		FeeBps:            fee,
	}, nil
}
