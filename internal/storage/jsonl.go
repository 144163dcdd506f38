package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"anchorePool/internal/model"
)

// JsonlStorage appends pool events to a JSONL file and keeps the latest
// snapshot in a JSON file next to it.
type JsonlStorage struct {
	eventsPath   string
	snapshotPath string
	mu           sync.Mutex
}

func NewJsonlStorage(eventsPath, snapshotPath string) *JsonlStorage {
	return &JsonlStorage{eventsPath: eventsPath, snapshotPath: snapshotPath}
}

// PutEventBatch appends a batch of events as JSON lines.
func (s *JsonlStorage) PutEventBatch(_ context.Context, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]interface{}, 0, len(events))
	for _, event := range events {
		records = append(records, event)
	}
	return appendLines(s.eventsPath, records)
}

// LastSeq scans the events file for the highest sequence recorded for pool.
// A missing file reports zero.
func (s *JsonlStorage) LastSeq(_ context.Context, pool string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.eventsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open events: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var last uint64
	for scanner.Scan() {
		var record struct {
			Pool string `json:"pool"`
			Seq  uint64 `json:"seq"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			// A line cut short by a crash is ignored.
			continue
		}
		if sameAddress(record.Pool, pool) && record.Seq > last {
			last = record.Seq
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan events: %w", err)
	}
	return last, nil
}

// SaveSnapshot replaces the snapshot file. An empty snapshot path disables it.
func (s *JsonlStorage) SaveSnapshot(_ context.Context, snapshot model.PoolSnapshot) error {
	if s.snapshotPath == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureDir(s.snapshotPath); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot if it belongs to pool. An empty
// pool matches any snapshot.
func (s *JsonlStorage) LoadSnapshot(_ context.Context, pool string) (model.PoolSnapshot, bool, error) {
	if s.snapshotPath == "" {
		return model.PoolSnapshot{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.PoolSnapshot{}, false, nil
		}
		return model.PoolSnapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot model.PoolSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	if pool != "" && !sameAddress(snapshot.Address, pool) {
		return model.PoolSnapshot{}, false, nil
	}
	return snapshot, true, nil
}

// FailureLog appends rejected scenario steps to a JSONL file.
type FailureLog struct {
	path string
	mu   sync.Mutex
}

func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path}
}

func (l *FailureLog) Put(failures []model.OperationFailure) error {
	if l == nil || l.path == "" || len(failures) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records := make([]interface{}, 0, len(failures))
	for _, failure := range failures {
		records = append(records, failure)
	}
	return appendLines(l.path, records)
}

func appendLines(path string, records []interface{}) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

func sameAddress(a, b string) bool {
	return common.HexToAddress(a) == common.HexToAddress(b)
}
