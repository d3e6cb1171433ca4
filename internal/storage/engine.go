package storage

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
)

// History records a version of the database after each successful commit.
type History interface {
	Record(ctx context.Context, author, message string) error
}

// Engine loads and commits the whole store through a Backend.
//
// There is a single writer: two engines committing to the same backend
// silently overwrite each other and the last commit wins.
type Engine struct {
	backend Backend
	history History
	// Author is recorded in the history of each commit.
	Author string
}

// NewEngine returns an engine over b. history may be nil.
func NewEngine(b Backend, history History) *Engine {
	return &Engine{backend: b, history: history}
}

// Connect reads the store. A missing or malformed document yields the empty
// store so that the first run needs no setup. A malformed document is first
// copied aside when the backend is a Backuper.
func (e *Engine) Connect(ctx context.Context) (*Store, error) {
	data, err := e.backend.Load(ctx)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			slog.DebugContext(ctx, "No database yet, starting empty")
			return EmptyStore(), nil
		}
		return nil, err
	}
	s, err := Deserialize(data)
	if err != nil {
		attrs := []any{"err", err}
		if b, ok := e.backend.(Backuper); ok && len(bytes.TrimSpace(data)) != 0 {
			if p, berr := b.Backup(ctx, data); berr != nil {
				attrs = append(attrs, "backup_err", berr)
			} else {
				attrs = append(attrs, "backup", p)
			}
		}
		slog.WarnContext(ctx, "Malformed database, starting empty; the next commit replaces it", attrs...)
		return EmptyStore(), nil
	}
	return s, nil
}

// Commit writes the store with a generic history message.
func (e *Engine) Commit(ctx context.Context, s *Store) error {
	return e.CommitMessage(ctx, s, "")
}

// CommitMessage serializes s, checks that it holds exactly the canonical
// tables and replaces the stored document with it. A schema mismatch is
// fatal and nothing is written.
func (e *Engine) CommitMessage(ctx context.Context, s *Store, message string) error {
	doc, err := Serialize(s)
	if err != nil {
		return err
	}
	if err := checkSchema(doc); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	data = append(data, '\n')
	if err := e.backend.Save(ctx, data); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Database committed", "people", s.People.Len(), "movements", s.Movement.Len())
	if e.history == nil {
		return nil
	}
	if message == "" {
		message = fmt.Sprintf("Update database: %d people, %d movements", s.People.Len(), s.Movement.Len())
	}
	if err := e.history.Record(ctx, e.Author, message); err != nil {
		slog.WarnContext(ctx, "Failed to record history", "err", err)
	}
	return nil
}

// Close releases the backend.
func (e *Engine) Close() error {
	return e.backend.Close()
}
