package storage

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"anchorePool/internal/model"
)

// Storage defines a sink for pool records.
type Storage interface {
	PutEventBatch(ctx context.Context, events []model.PoolEvent) error
	SaveSnapshot(ctx context.Context, snapshot model.PoolSnapshot) error
}

// SnapshotLoader reads back the latest snapshot saved for a pool.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, pool string) (model.PoolSnapshot, bool, error)
}

// Multi writes every record to each storage in turn. A failing storage does
// not stop the others; all errors are returned together.
type Multi []Storage

func (m Multi) PutEventBatch(ctx context.Context, events []model.PoolEvent) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.PutEventBatch(ctx, events))
	}
	return err
}

func (m Multi) SaveSnapshot(ctx context.Context, snapshot model.PoolSnapshot) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.SaveSnapshot(ctx, snapshot))
	}
	return err
}

// SeqReader reports the highest event sequence already stored for a pool.
type SeqReader interface {
	LastSeq(ctx context.Context, pool string) (uint64, error)
}

// Resume wraps s so that events it already holds for pool are not written
// again. Each sink of a Multi is positioned on its own; sinks that cannot
// report a sequence are returned unchanged.
func Resume(ctx context.Context, s Storage, pool string) (Storage, error) {
	if multi, ok := s.(Multi); ok {
		out := make(Multi, 0, len(multi))
		for _, sink := range multi {
			resumed, err := Resume(ctx, sink, pool)
			if err != nil {
				return nil, err
			}
			out = append(out, resumed)
		}
		return out, nil
	}

	reader, ok := s.(SeqReader)
	if !ok {
		return s, nil
	}
	last, err := reader.LastSeq(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("last stored seq: %w", err)
	}
	if last == 0 {
		return s, nil
	}
	return &resumed{Storage: s, after: last}, nil
}

type resumed struct {
	Storage
	after uint64
}

func (r *resumed) PutEventBatch(ctx context.Context, events []model.PoolEvent) error {
	fresh := make([]model.PoolEvent, 0, len(events))
	for _, event := range events {
		if event.Seq > r.after {
			fresh = append(fresh, event)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	return r.Storage.PutEventBatch(ctx, fresh)
}
