package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/refurbtrack/refurb-tracker/internal/models"
)

// snapshotFile is the on-disk envelope. Records are kept as a sorted list
// so the file diffs cleanly under version control and row order in the
// backing file never becomes an accidental source of truth.
type snapshotFile struct {
	SavedAt time.Time              `json:"saved_at"`
	Records []models.ProductRecord `json:"records"`
}

// FileStore persists the previous snapshot as a JSON file. It owns that
// file exclusively between runs: read once at the start of a run, replaced
// once at the end.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadPrevious returns the stored snapshot. A missing file is a first run
// and yields an empty snapshot; an unreadable or unparseable file is NOT
// treated as first-run data and fails with models.ErrStoreUnavailable.
func (s *FileStore) LoadPrevious(ctx context.Context) (models.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Snapshot{}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", models.ErrStoreUnavailable, s.path, err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: corrupt snapshot file %s: %v", models.ErrStoreUnavailable, s.path, err)
	}

	snap, err := models.NewSnapshot(file.Records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return snap, nil
}

// SaveCurrent atomically replaces the stored snapshot: write to a temp file
// in the same directory, fsync, rename. A crash mid-save leaves the old
// baseline intact for the next run.
func (s *FileStore) SaveCurrent(ctx context.Context, snap models.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snapshotFile{
		SavedAt: time.Now().UTC(),
		Records: snap.Records(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}
