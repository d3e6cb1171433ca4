// Package git keeps the history of the database file in a git repository.
package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Commit is one recorded version of the database.
type Commit struct {
	Hash        string    `json:"hash"`
	Message     string    `json:"message"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	Date        time.Time `json:"date"`
}

// Repo records the database file in the git repository of its directory.
type Repo struct {
	dir          string
	file         string
	defaultName  string
	defaultEmail string
	repo         *gogit.Repository
	mu           sync.Mutex
}

// Open opens the repository holding dbPath, initializing one in its
// directory when needed.
func Open(dbPath, defaultName, defaultEmail string) (*Repo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = defaultName
		cfg.User.Email = defaultEmail
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}
	return &Repo{
		dir:          dir,
		file:         filepath.Base(dbPath),
		defaultName:  defaultName,
		defaultEmail: defaultEmail,
		repo:         repo,
	}, nil
}

// Record stages the database file and commits it. Nothing is committed when
// the file did not change.
func (r *Repo) Record(_ context.Context, author, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(r.file); err != nil {
		return fmt.Errorf("failed to stage %s: %w", r.file, err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if st := status.File(r.file); st.Staging != gogit.Added && st.Staging != gogit.Modified {
		return nil
	}
	name := author
	if name == "" {
		name = r.defaultName
	}
	now := time.Now()
	_, err = w.Commit(message, &gogit.CommitOptions{
		Author:    &object.Signature{Name: name, Email: r.defaultEmail, When: now},
		Committer: &object.Signature{Name: r.defaultName, Email: r.defaultEmail, When: now},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Log returns up to n commits touching the database file, newest first.
func (r *Repo) Log(_ context.Context, n int) ([]*Commit, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}
	iter, err := r.repo.Log(&gogit.LogOptions{FileName: &r.file})
	if err != nil {
		// No commits yet.
		return nil, nil
	}
	defer iter.Close()
	var commits []*Commit
	for range n {
		c, err := iter.Next()
		if err != nil {
			break
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, &Commit{
			Hash:        c.Hash.String(),
			Message:     subject,
			Author:      c.Author.Name,
			AuthorEmail: c.Author.Email,
			Date:        c.Author.When,
		})
	}
	return commits, nil
}

// FileAt returns the database file as of a commit. "HEAD" is accepted.
func (r *Repo) FileAt(_ context.Context, hash string) ([]byte, error) {
	h := plumbing.NewHash(hash)
	if hash == "HEAD" {
		ref, err := r.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		h = ref.Hash()
	}
	c, err := r.repo.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	f, err := c.File(r.file)
	if err != nil {
		return nil, fmt.Errorf("failed to get file at commit: %w", err)
	}
	s, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read file at commit: %w", err)
	}
	return []byte(s), nil
}
