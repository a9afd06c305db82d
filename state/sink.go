package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrPersist is returned when a snapshot could not be written to a sink.
var ErrPersist = errors.New("state: persist failed")

// Sink receives every serialized snapshot.
type Sink interface {
	Save(ctx context.Context, data []byte) error
}

// GraphFile is the snapshot file name inside <workspace>/logs.
const GraphFile = "attack_graph.json"

// GraphPath returns the snapshot path for a workspace.
func GraphPath(workspace string) string {
	return filepath.Join(workspace, "logs", GraphFile)
}

// FileSink writes snapshots to a local file. Each write goes to a temporary
// file in the same directory which then replaces the target, so readers never
// see a truncated document.
type FileSink struct {
	Path string
}

// NewFileSink creates a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

// Save atomically replaces the file with data.
func (s *FileSink) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.Path, err)
	}
	return nil
}

// Load reads a persisted snapshot.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return decodeSnapshot(data)
}
