package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"anchorePool/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool_events (
	pool_address TEXT NOT NULL,
	seq BIGINT NOT NULL,
	event_name TEXT NOT NULL,
	event_ts BIGINT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool_address, seq)
);
CREATE TABLE IF NOT EXISTS pool_snapshots (
	pool_address TEXT PRIMARY KEY,
	asset_a TEXT NOT NULL,
	asset_b TEXT NOT NULL,
	fee_bps INTEGER NOT NULL,
	reserve_a NUMERIC(78, 0) NOT NULL,
	reserve_b NUMERIC(78, 0) NOT NULL,
	total_shares NUMERIC(78, 0) NOT NULL,
	accumulated_fees_a NUMERIC(78, 0) NOT NULL,
	accumulated_fees_b NUMERIC(78, 0) NOT NULL,
	shares JSONB NOT NULL,
	seq BIGINT NOT NULL,
	taken_at TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for pool events and snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// PutEventBatch inserts events, skipping any (pool, seq) already stored so a
// resumed run can replay a batch.
func (s *Store) PutEventBatch(ctx context.Context, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		payload, err := json.Marshal(event.Decoded)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", event.EventName, err)
		}
		batch.Queue(`
			INSERT INTO pool_events (pool_address, seq, event_name, event_ts, payload)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (pool_address, seq) DO NOTHING
		`,
			event.Pool,
			int64(event.Seq),
			event.EventName,
			int64(event.Timestamp),
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot inserts or replaces the snapshot for the pool.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot model.PoolSnapshot) error {
	shares, err := json.Marshal(snapshot.Shares)
	if err != nil {
		return fmt.Errorf("marshal shares: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pool_snapshots (
			pool_address, asset_a, asset_b, fee_bps, reserve_a, reserve_b, total_shares,
			accumulated_fees_a, accumulated_fees_b, shares, seq, taken_at, updated_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10, $11, $12, now())
		ON CONFLICT (pool_address)
		DO UPDATE SET
			reserve_a = EXCLUDED.reserve_a,
			reserve_b = EXCLUDED.reserve_b,
			total_shares = EXCLUDED.total_shares,
			accumulated_fees_a = EXCLUDED.accumulated_fees_a,
			accumulated_fees_b = EXCLUDED.accumulated_fees_b,
			shares = EXCLUDED.shares,
			seq = EXCLUDED.seq,
			taken_at = EXCLUDED.taken_at,
			updated_at = now()
	`,
		snapshot.Address,
		snapshot.AssetA,
		snapshot.AssetB,
		int32(snapshot.FeeBps),
		orZero(snapshot.ReserveA),
		orZero(snapshot.ReserveB),
		orZero(snapshot.TotalShares),
		orZero(snapshot.FeesA),
		orZero(snapshot.FeesB),
		shares,
		int64(snapshot.Seq),
		snapshot.TakenAt,
	)
	return err
}

// LastSeq returns the highest stored event sequence for pool.
func (s *Store) LastSeq(ctx context.Context, pool string) (uint64, error) {
	var last int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM pool_events WHERE pool_address = $1`,
		pool,
	).Scan(&last)
	if err != nil {
		return 0, err
	}
	return uint64(last), nil
}

// LoadSnapshot returns the stored snapshot for pool.
func (s *Store) LoadSnapshot(ctx context.Context, pool string) (model.PoolSnapshot, bool, error) {
	if pool == "" {
		return model.PoolSnapshot{}, false, fmt.Errorf("pool address required")
	}

	var (
		snapshot model.PoolSnapshot
		feeBps   int32
		seq      int64
		shares   []byte
	)
	row := s.pool.QueryRow(ctx, `
		SELECT pool_address, asset_a, asset_b, fee_bps, reserve_a::text, reserve_b::text,
			total_shares::text, accumulated_fees_a::text, accumulated_fees_b::text, shares, seq, taken_at
		FROM pool_snapshots WHERE pool_address = $1
	`, pool)
	err := row.Scan(
		&snapshot.Address,
		&snapshot.AssetA,
		&snapshot.AssetB,
		&feeBps,
		&snapshot.ReserveA,
		&snapshot.ReserveB,
		&snapshot.TotalShares,
		&snapshot.FeesA,
		&snapshot.FeesB,
		&shares,
		&seq,
		&snapshot.TakenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolSnapshot{}, false, nil
		}
		return model.PoolSnapshot{}, false, err
	}
	if err := json.Unmarshal(shares, &snapshot.Shares); err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("parse shares: %w", err)
	}
	snapshot.FeeBps = uint16(feeBps)
	snapshot.Seq = uint64(seq)
	return snapshot, true, nil
}

func orZero(amount string) string {
	if amount == "" {
		return "0"
	}
	return amount
}
