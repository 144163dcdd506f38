package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ReconcileConfig holds configuration for the reconcile command.
type ReconcileConfig struct {
	RPCURL       string
	Snapshot     string
	PGDSN        string
	Pool         string
	Block        uint64
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadReconcile merges config file, environment variables, and flags into ReconcileConfig.
func LoadReconcile(cfgFile string, flags *pflag.FlagSet) (ReconcileConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"snapshot":      "./data/snapshot.json",
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return ReconcileConfig{}, err
	}

	return ReconcileConfig{
		RPCURL:       v.GetString("rpc"),
		Snapshot:     v.GetString("snapshot"),
		PGDSN:        v.GetString("pg-dsn"),
		Pool:         v.GetString("pool"),
		Block:        v.GetUint64("block"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}
