package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Backend reads and writes the serialized document as a whole.
//
// Load returns an error wrapping fs.ErrNotExist when nothing was saved yet.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// Backuper is implemented by backends that can keep a copy of a document
// before it gets replaced.
type Backuper interface {
	// Backup stores data aside and returns where it went.
	Backup(ctx context.Context, data []byte) (string, error)
}

// FileBackend stores the document in a single JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend writing to path. The parent directory is
// created on first save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the path of the database file.
func (f *FileBackend) Path() string {
	return f.path
}

// Load reads the whole file.
func (f *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return data, nil
}

// Save replaces the file. The data is written to a temporary file in the same
// directory and renamed over the previous one so readers never see a partial
// document. Concurrent writers still race; the last rename wins.
func (f *FileBackend) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// BackupPath returns the path Backup writes to.
func (f *FileBackend) BackupPath() string {
	return f.path + ".bak"
}

// Backup writes data next to the database file, replacing any previous
// backup.
func (f *FileBackend) Backup(_ context.Context, data []byte) (string, error) {
	p := f.BackupPath()
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", p, err)
	}
	return p, nil
}

// Close is a no-op.
func (f *FileBackend) Close() error {
	return nil
}

var (
	_ Backend  = (*FileBackend)(nil)
	_ Backuper = (*FileBackend)(nil)
)
