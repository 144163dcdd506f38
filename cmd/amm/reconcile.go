package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"anchorePool/internal/chain"
	"anchorePool/internal/config"
	"anchorePool/internal/model"
	"anchorePool/internal/reconcile"
	"anchorePool/internal/storage"
	"anchorePool/internal/storage/postgres"
)

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReconcile(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Pool != "" && !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("invalid pool address: %s", cfg.Pool)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshot, err := loadSnapshot(ctx, cfg, logger)
	if err != nil {
		return err
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	block, balanceOf, err := chainClient.BalancesAt(ctx, cfg.Block)
	if err != nil {
		return err
	}

	reconciler := reconcile.New(balanceOf, chain.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
	}, logger).WithDecimals(func(ctx context.Context, token common.Address) (uint8, error) {
		return chain.Decimals(ctx, chainClient, token)
	})

	logger.Info("reconcile start",
		zap.String("pool", snapshot.Address),
		zap.Uint64("seq", snapshot.Seq),
		zap.String("chain_id", chainID.String()),
		zap.Uint64("block", block),
	)

	report, err := reconciler.Run(ctx, snapshot)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !report.InSync() {
		return fmt.Errorf("pool %s reserves drifted from ledger balances", report.Pool)
	}
	return nil
}

// loadSnapshot reads the pool snapshot from Postgres when a DSN is set,
// otherwise from the snapshot file.
func loadSnapshot(ctx context.Context, cfg config.ReconcileConfig, logger *zap.Logger) (model.PoolSnapshot, error) {
	var (
		loader storage.SnapshotLoader
		pool   string
		source string
	)
	if cfg.Pool != "" {
		pool = common.HexToAddress(cfg.Pool).Hex()
	}

	if cfg.PGDSN != "" {
		if pool == "" {
			return model.PoolSnapshot{}, fmt.Errorf("pool address is required with pg-dsn")
		}
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return model.PoolSnapshot{}, err
		}
		defer store.Close()
		loader = store
		source = redactDSN(cfg.PGDSN)
	} else {
		if cfg.Snapshot == "" {
			return model.PoolSnapshot{}, fmt.Errorf("snapshot path is required")
		}
		loader = storage.NewJsonlStorage("", cfg.Snapshot)
		source = cfg.Snapshot
	}

	snapshot, ok, err := loader.LoadSnapshot(ctx, pool)
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("load snapshot from %s: %w", source, err)
	}
	if !ok {
		return model.PoolSnapshot{}, fmt.Errorf("no snapshot for pool %q in %s", pool, source)
	}
	logger.Debug("snapshot loaded", zap.String("source", source), zap.String("taken_at", snapshot.TakenAt))
	return snapshot, nil
}

// redactDSN drops the password from a URL-style DSN.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return "postgres"
	}
	return u.Redacted()
}
