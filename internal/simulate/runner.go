package simulate

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"anchorePool/internal/amm"
	"anchorePool/internal/ledger"
	"anchorePool/internal/metrics"
	"anchorePool/internal/model"
	"anchorePool/internal/storage"
)

// PoolConfig describes the pool and the two in-memory assets it trades.
type PoolConfig struct {
	Address   common.Address
	AssetA    common.Address
	AssetB    common.Address
	SymbolA   string
	SymbolB   string
	DecimalsA uint8
	DecimalsB uint8
	FeeBps    uint16
}

// RunConfig holds runtime settings for a simulation.
type RunConfig struct {
	Pool              PoolConfig
	Scenario          string
	BatchSize         int
	CheckpointPath    string
	CheckpointEnabled bool
	Now               func() time.Time
}

// Summary describes a finished run.
type Summary struct {
	Steps    int
	Applied  int
	Failed   int
	Replayed int
	Snapshot model.PoolSnapshot
}

// Runner replays a scenario against a fresh pool and persists what it emits.
type Runner struct {
	cfg        RunConfig
	storage    storage.Storage
	failures   *storage.FailureLog
	metrics    *metrics.Metrics
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies. failures and m may be nil.
func NewRunner(cfg RunConfig, storageSink storage.Storage, failures *storage.FailureLog, m *metrics.Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		storage:    storageSink,
		failures:   failures,
		metrics:    m,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes every step of the scenario read from in.
//
// The pool lives in memory, so a resumed run replays the whole scenario to
// rebuild state but only persists the output of lines after the checkpoint.
func (r *Runner) Run(ctx context.Context, in io.Reader) (Summary, error) {
	if r.storage == nil {
		return Summary{}, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize <= 0 {
		return Summary{}, fmt.Errorf("batch size must be greater than zero")
	}

	var resumeAfter uint64
	sink := r.storage
	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return Summary{}, err
	}
	if ok {
		if cp.Scenario != r.cfg.Scenario {
			return Summary{}, fmt.Errorf("checkpoint belongs to scenario %q, not %q", cp.Scenario, r.cfg.Scenario)
		}
		resumeAfter = cp.LastPersistedLine
		// Events written after the last checkpoint save are already stored.
		sink, err = storage.Resume(ctx, r.storage, r.cfg.Pool.Address.Hex())
		if err != nil {
			return Summary{}, err
		}
		r.logger.Info("resume from checkpoint", zap.Uint64("last_persisted_line", resumeAfter), zap.Uint64("seq", cp.Seq))
	}

	var pending []model.PoolEvent
	m, err := r.newMarket(amm.EventSinkFunc(func(_ context.Context, event model.PoolEvent) {
		pending = append(pending, event)
	}))
	if err != nil {
		return Summary{}, err
	}

	var (
		summary  Summary
		failures []model.OperationFailure
		events   []model.PoolEvent
		lastLine uint64
		inBatch  int
	)

	out := amm.MultiSink{amm.EventSinkFunc(func(_ context.Context, event model.PoolEvent) {
		events = append(events, event)
	})}
	if r.metrics != nil {
		out = append(out, r.metrics)
	}

	flush := func() error {
		if len(events) > 0 {
			if err := sink.PutEventBatch(ctx, events); err != nil {
				return fmt.Errorf("store events: %w", err)
			}
		}
		if err := r.failures.Put(failures); err != nil {
			return fmt.Errorf("store failures: %w", err)
		}
		if lastLine > resumeAfter {
			if err := r.checkpoint.Save(Checkpoint{Scenario: r.cfg.Scenario, LastPersistedLine: lastLine, Seq: m.pool.Snapshot().Seq}); err != nil {
				return err
			}
		}
		r.logger.Debug("batch complete", zap.Int("events", len(events)), zap.Int("failures", len(failures)), zap.Uint64("line", lastLine))
		events, failures, inBatch = nil, nil, 0
		return nil
	}

	err = ReadSteps(in, func(step Step) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		summary.Steps++
		lastLine = step.Line
		replay := step.Line <= resumeAfter

		stepErr := step.Err
		if stepErr == nil {
			stepErr = m.apply(ctx, step.Op)
		}

		if replay {
			summary.Replayed++
			pending = pending[:0]
			return nil
		}

		if stepErr != nil {
			summary.Failed++
			kind := errorKind(stepErr)
			r.logger.Warn("operation failed",
				zap.Uint64("line", step.Line),
				zap.String("op", step.Op.Op),
				zap.String("kind", kind),
				zap.Error(stepErr),
			)
			failures = append(failures, model.OperationFailure{Line: step.Line, Op: step.Op, Kind: kind, Error: stepErr.Error()})
			if r.metrics != nil {
				r.metrics.ObserveFailure(step.Op.Op, kind)
			}
		} else {
			summary.Applied++
		}

		for _, event := range pending {
			out.Emit(ctx, event)
		}
		pending = pending[:0]

		inBatch++
		if inBatch >= r.cfg.BatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return summary, err
	}
	if err := flush(); err != nil {
		return summary, err
	}

	summary.Snapshot = m.pool.Snapshot()
	if err := sink.SaveSnapshot(ctx, summary.Snapshot); err != nil {
		return summary, fmt.Errorf("save snapshot: %w", err)
	}
	if r.metrics != nil {
		r.metrics.ObserveSnapshot(summary.Snapshot)
	}

	r.logger.Info("simulation complete",
		zap.Int("steps", summary.Steps),
		zap.Int("applied", summary.Applied),
		zap.Int("failed", summary.Failed),
		zap.Int("replayed", summary.Replayed),
		zap.String("reserve_a", summary.Snapshot.ReserveA),
		zap.String("reserve_b", summary.Snapshot.ReserveB),
		zap.String("total_shares", summary.Snapshot.TotalShares),
	)
	return summary, nil
}

func (r *Runner) newMarket(sink amm.EventSink) (*market, error) {
	pc := r.cfg.Pool
	tokenA := ledger.NewToken(pc.AssetA, pc.SymbolA, pc.DecimalsA)
	tokenB := ledger.NewToken(pc.AssetB, pc.SymbolB, pc.DecimalsB)

	pool, err := amm.New(amm.Config{
		Address: pc.Address,
		AssetA:  pc.AssetA,
		AssetB:  pc.AssetB,
		FeeBps:  pc.FeeBps,
		LedgerA: tokenA,
		LedgerB: tokenB,
		Sink:    sink,
		Logger:  r.logger,
		Now:     r.cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	return &market{
		pool: pool,
		book: ledger.NewBook(tokenA, tokenB),
		pairs: map[string]common.Address{
			"a": pc.AssetA,
			"b": pc.AssetB,
		},
	}, nil
}
