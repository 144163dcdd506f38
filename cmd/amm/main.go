package main

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("load .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product liquidity pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a JSONL scenario against a fresh pool",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("in", "", "input scenario JSONL")
	simulateCmd.Flags().String("out", "./data/events.jsonl", "output pool events JSONL")
	simulateCmd.Flags().String("snapshot", "./data/snapshot.json", "final pool snapshot path")
	simulateCmd.Flags().String("errors", "./data/errors.jsonl", "rejected operations JSONL")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events and snapshots")
	simulateCmd.Flags().Int("batch-size", 500, "scenario lines per flush")
	simulateCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	simulateCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	simulateCmd.Flags().String("metrics-file", "", "optional Prometheus textfile output")
	simulateCmd.Flags().String("pool", "0x00000000000000000000000000000000000000a0", "pool address")
	simulateCmd.Flags().String("asset-a", "0x000000000000000000000000000000000000000a", "asset A address")
	simulateCmd.Flags().String("asset-b", "0x000000000000000000000000000000000000000b", "asset B address")
	simulateCmd.Flags().String("symbol-a", "A", "asset A symbol")
	simulateCmd.Flags().String("symbol-b", "B", "asset B symbol")
	simulateCmd.Flags().Int("decimals-a", 18, "asset A decimals")
	simulateCmd.Flags().Int("decimals-b", 18, "asset B decimals")
	simulateCmd.Flags().Int("fee-bps", 30, "swap fee in basis points")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against given reserves or a stored snapshot",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("snapshot", "", "read reserves and fee from a snapshot file")
	quoteCmd.Flags().String("reserve-a", "", "reserve of asset A in base units")
	quoteCmd.Flags().String("reserve-b", "", "reserve of asset B in base units")
	quoteCmd.Flags().Int("fee-bps", 30, "swap fee in basis points")
	quoteCmd.Flags().String("asset-in", "a", "asset paid in (a or b)")
	quoteCmd.Flags().String("amount-in", "", "exact input amount")
	quoteCmd.Flags().String("amount-out", "", "exact output amount")
	quoteCmd.Flags().Int("decimals-a", 18, "asset A decimals for display")
	quoteCmd.Flags().Int("decimals-b", 18, "asset B decimals for display")
	quoteCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare stored reserves with on-chain token balances",
		RunE:  runReconcile,
	}

	reconcileCmd.Flags().String("rpc", "", "EVM RPC URL")
	reconcileCmd.Flags().String("snapshot", "./data/snapshot.json", "snapshot file path")
	reconcileCmd.Flags().String("pg-dsn", "", "read the snapshot from Postgres instead of the file")
	reconcileCmd.Flags().String("pool", "", "pool address (required with pg-dsn)")
	reconcileCmd.Flags().Uint64("block", 0, "block number, 0 means latest")
	reconcileCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	reconcileCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	reconcileCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reconcileCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
