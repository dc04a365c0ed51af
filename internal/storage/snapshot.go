package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mevAMM/internal/model"
)

// FileSnapshotStore keeps pair snapshots in a single JSON file keyed by pool address.
// Writes go to a temporary file that is renamed over the previous one.
type FileSnapshotStore struct {
	path string
	mu   sync.Mutex
}

func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

func (f *FileSnapshotStore) LoadSnapshot(_ context.Context, pool string) (model.PairSnapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return model.PairSnapshot{}, false, err
	}
	snap, ok := all[pool]
	return snap, ok, nil
}

func (f *FileSnapshotStore) SaveSnapshot(_ context.Context, snap model.PairSnapshot) error {
	if snap.Pool == "" {
		return fmt.Errorf("snapshot pool is empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return err
	}
	all[snap.Pool] = snap

	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshots: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (f *FileSnapshotStore) readAll() (map[string]model.PairSnapshot, error) {
	all := make(map[string]model.PairSnapshot)

	stat, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return all, nil
		}
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("snapshot path is a directory")
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return all, nil
}
