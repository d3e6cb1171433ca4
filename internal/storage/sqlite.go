package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	name TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Rows of the documents table.
const (
	documentName = "dundie"
	backupName   = "dundie.bak"
)

// SQLiteBackend stores the document in a SQLite database, for hosts where a
// transactional write is preferable to a file rename.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens or creates the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Load returns the stored document.
func (s *SQLiteBackend) Load(ctx context.Context) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM documents WHERE name = ?", documentName).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no document %q: %w", documentName, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return []byte(body), nil
}

// Save replaces the stored document in a transaction.
func (s *SQLiteBackend) Save(ctx context.Context, data []byte) error {
	return s.put(ctx, documentName, data)
}

// Backup stores data in a separate row of the documents table.
func (s *SQLiteBackend) Backup(ctx context.Context, data []byte) (string, error) {
	if err := s.put(ctx, backupName, data); err != nil {
		return "", err
	}
	return "documents/" + backupName, nil
}

func (s *SQLiteBackend) put(ctx context.Context, name string, data []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		name, string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

var (
	_ Backend  = (*SQLiteBackend)(nil)
	_ Backuper = (*SQLiteBackend)(nil)
)
