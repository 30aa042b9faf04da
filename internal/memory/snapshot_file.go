package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileOption mutates snapshot file configuration.
type FileOption func(*SnapshotFile)

// WithFileLogger injects a structured logger.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(file *SnapshotFile) {
		if logger != nil {
			file.logger = logger
		}
	}
}

// SnapshotFile persists the complete store snapshot as one JSON document.
// Every save rewrites the whole file; a save writes to a temporary path in
// the same directory and renames it into place, so a crash mid-write leaves
// the previous snapshot intact.
type SnapshotFile struct {
	path   string
	logger *slog.Logger
}

// NewSnapshotFile creates a codec bound to one backing file path. The parent
// directory is created if missing, so a fresh deployment can save right away.
func NewSnapshotFile(path string, options ...FileOption) (*SnapshotFile, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("new snapshot file: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("new snapshot file: create parent dir: %w", err)
	}

	file := &SnapshotFile{
		path:   trimmed,
		logger: slog.Default(),
	}
	for _, option := range options {
		option(file)
	}

	return file, nil
}

// Path returns the backing file path.
func (f *SnapshotFile) Path() string {
	return f.path
}

// Save atomically overwrites the backing file with the snapshot.
func (f *SnapshotFile) Save(snapshot StoreSnapshot) error {
	if f == nil {
		return fmt.Errorf("snapshot save: nil file")
	}
	if snapshot == nil {
		snapshot = StoreSnapshot{}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot save marshal: %w", err)
	}

	dir := filepath.Dir(f.path)
	temp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot save create temp: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("snapshot save write temp: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("snapshot save close temp: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("snapshot save rename: %w", err)
	}

	f.logger.Debug("saved memory snapshot", "path", f.path, "records", len(snapshot))

	return nil
}

// Load reads the backing file. A missing file is a first run and yields an
// empty snapshot with no error; an unreadable or corrupt file yields an
// empty snapshot and an error the caller should log and recover from.
func (f *SnapshotFile) Load() (StoreSnapshot, error) {
	if f == nil {
		return StoreSnapshot{}, fmt.Errorf("snapshot load: nil file")
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return StoreSnapshot{}, nil
	}
	if err != nil {
		return StoreSnapshot{}, fmt.Errorf("snapshot load read %s: %w", f.path, err)
	}

	var snapshot StoreSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return StoreSnapshot{}, fmt.Errorf("snapshot load parse %s: %w", f.path, err)
	}
	if snapshot == nil {
		snapshot = StoreSnapshot{}
	}

	return snapshot, nil
}
