package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorePool/internal/model"
)

const poolAddress = "0x00000000000000000000000000000000000000AA"

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var out []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		out = append(out, record)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJsonlStorageAppendsEvents(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewJsonlStorage(filepath.Join(dir, "out", "events.jsonl"), "")

	require.NoError(t, store.PutEventBatch(ctx, nil))
	require.NoError(t, store.PutEventBatch(ctx, []model.PoolEvent{
		{Pool: poolAddress, Seq: 1, EventName: model.EventLiquidityAdded, Decoded: model.LiquidityAddedEvent{Shares: "2000"}},
	}))
	require.NoError(t, store.PutEventBatch(ctx, []model.PoolEvent{
		{Pool: poolAddress, Seq: 2, EventName: model.EventSwap, Decoded: model.SwapEvent{AmountOut: "360"}},
	}))

	lines := readLines(t, filepath.Join(dir, "out", "events.jsonl"))
	require.Len(t, lines, 2)
	assert.Equal(t, "LiquidityAdded", lines[0]["event_name"])
	assert.Equal(t, float64(2), lines[1]["seq"])
	assert.Equal(t, "360", lines[1]["decoded"].(map[string]interface{})["amount_out"])
}

func TestJsonlStorageSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewJsonlStorage(filepath.Join(dir, "events.jsonl"), filepath.Join(dir, "snapshot.json"))

	_, ok, err := store.LoadSnapshot(ctx, poolAddress)
	require.NoError(t, err)
	assert.False(t, ok)

	snapshot := model.PoolSnapshot{
		Address:     poolAddress,
		FeeBps:      30,
		ReserveA:    "1100",
		ReserveB:    "3640",
		TotalShares: "2000",
		Shares:      map[string]string{"0x1111111111111111111111111111111111111111": "2000"},
		Seq:         2,
	}
	require.NoError(t, store.SaveSnapshot(ctx, snapshot))

	got, ok, err := store.LoadSnapshot(ctx, "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snapshot, got)

	_, ok, err = store.LoadSnapshot(ctx, "0x00000000000000000000000000000000000000bb")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(filepath.Join(dir, "snapshot.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFailureLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.jsonl")
	log := NewFailureLog(path)

	require.NoError(t, log.Put([]model.OperationFailure{
		{Line: 3, Op: model.Operation{Op: model.OpSwapExactIn, Caller: "0x01"}, Kind: "output_below_minimum", Error: "output below minimum"},
	}))

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(3), lines[0]["line"])
	assert.Equal(t, "output_below_minimum", lines[0]["kind"])
	assert.Equal(t, "swap_exact_in", lines[0]["op"].(map[string]interface{})["op"])
}

type failingStorage struct {
	err    error
	events int
}

func (f *failingStorage) PutEventBatch(_ context.Context, events []model.PoolEvent) error {
	f.events += len(events)
	return f.err
}

func (f *failingStorage) SaveSnapshot(context.Context, model.PoolSnapshot) error {
	return f.err
}

func TestMultiWritesEverySink(t *testing.T) {
	ctx := context.Background()
	errDown := errors.New("down")
	broken := &failingStorage{err: errDown}
	healthy := &failingStorage{}

	err := Multi{broken, healthy}.PutEventBatch(ctx, []model.PoolEvent{{Seq: 1}, {Seq: 2}})
	require.ErrorIs(t, err, errDown)
	assert.Equal(t, 2, broken.events)
	assert.Equal(t, 2, healthy.events)

	require.NoError(t, Multi{healthy}.SaveSnapshot(ctx, model.PoolSnapshot{}))
}

func TestJsonlStorageLastSeq(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	store := NewJsonlStorage(path, "")

	last, err := store.LastSeq(ctx, poolAddress)
	require.NoError(t, err)
	assert.Zero(t, last)

	require.NoError(t, store.PutEventBatch(ctx, []model.PoolEvent{
		{Pool: poolAddress, Seq: 1},
		{Pool: "0x00000000000000000000000000000000000000bb", Seq: 9},
		{Pool: poolAddress, Seq: 2},
	}))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString(`{"pool":"0x00000000000000000000000000000000000000aa","se`)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	last, err = store.LastSeq(ctx, "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), last)
}

func TestResumeSkipsStoredEventsPerSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	jsonl := NewJsonlStorage(path, "")
	require.NoError(t, jsonl.PutEventBatch(ctx, []model.PoolEvent{
		{Pool: poolAddress, Seq: 1},
		{Pool: poolAddress, Seq: 2},
	}))
	plain := &failingStorage{}

	resumed, err := Resume(ctx, Multi{jsonl, plain}, poolAddress)
	require.NoError(t, err)

	require.NoError(t, resumed.PutEventBatch(ctx, []model.PoolEvent{
		{Pool: poolAddress, Seq: 2},
		{Pool: poolAddress, Seq: 3},
	}))

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, float64(3), lines[2]["seq"])
	assert.Equal(t, 2, plain.events)

	// Nothing new for the file sink is not an error.
	require.NoError(t, resumed.PutEventBatch(ctx, []model.PoolEvent{{Pool: poolAddress, Seq: 3}}))
	assert.Len(t, readLines(t, path), 3)
}
