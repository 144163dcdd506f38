package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"anchorePool/internal/config"
	"anchorePool/internal/metrics"
	"anchorePool/internal/simulate"
	"anchorePool/internal/storage"
	"anchorePool/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Scenario == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	pool, err := parsePoolConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := storage.Multi{storage.NewJsonlStorage(cfg.Out, cfg.Snapshot)}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.Scenario)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	runner := simulate.NewRunner(simulate.RunConfig{
		Pool:              pool,
		Scenario:          filepath.Base(cfg.Scenario),
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
	}, sinks, storage.NewFailureLog(cfg.Errors), m, logger)

	logger.Info("simulate start",
		zap.String("in", cfg.Scenario),
		zap.String("pool", pool.Address.Hex()),
		zap.Uint16("fee_bps", pool.FeeBps),
		zap.String("out", cfg.Out),
		zap.String("snapshot", cfg.Snapshot),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	_, runErr := runner.Run(ctx, inputFile)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile, registry); err != nil {
			logger.Warn("write metrics failed", zap.Error(err))
		}
	}
	return runErr
}

func parsePoolConfig(cfg config.SimulateConfig) (simulate.PoolConfig, error) {
	addresses, err := parseAddresses(map[string]string{
		"pool":    cfg.PoolAddress,
		"asset-a": cfg.AssetA,
		"asset-b": cfg.AssetB,
	})
	if err != nil {
		return simulate.PoolConfig{}, err
	}
	return simulate.PoolConfig{
		Address:   addresses["pool"],
		AssetA:    addresses["asset-a"],
		AssetB:    addresses["asset-b"],
		SymbolA:   cfg.SymbolA,
		SymbolB:   cfg.SymbolB,
		DecimalsA: cfg.DecimalsA,
		DecimalsB: cfg.DecimalsB,
		FeeBps:    cfg.FeeBps,
	}, nil
}

// parseAddresses converts named hex strings into addresses.
func parseAddresses(inputs map[string]string) (map[string]common.Address, error) {
	out := make(map[string]common.Address, len(inputs))
	for name, input := range inputs {
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid %s address: %q", name, input)
		}
		out[name] = common.HexToAddress(input)
	}
	return out, nil
}
