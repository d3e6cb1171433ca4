package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/subcommands"
	"github.com/maruel/dundie/internal/render"
)

// settle is how long to wait after a change before redrawing, so that a
// burst of writes renders once.
const settle = 200 * time.Millisecond

type watchCmd struct {
	*env
	queryFlags
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "show balances and redraw them when the database changes" }
func (*watchCmd) Usage() string {
	return `watch [-email <email>] [-dept <dept>] [-role <role>] [-name <name>]
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if err := c.watch(ctx); err != nil {
		return failure(err)
	}
	return subcommands.ExitSuccess
}

func (c *watchCmd) watch(ctx context.Context) error {
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	if err := c.draw(ctx); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	// The file is replaced on each commit so the directory is watched.
	dbPath := a.cfg.DatabasePath()
	if err := w.Add(filepath.Dir(dbPath)); err != nil {
		return err
	}
	base := filepath.Base(dbPath)
	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(event.Name), base) && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)) {
				timer.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Error watching database", "err", err)
		case <-timer.C:
			if err := c.draw(ctx); err != nil {
				slog.WarnContext(ctx, "Failed to redraw", "err", err)
			}
		}
	}
}

func (c *watchCmd) draw(ctx context.Context) error {
	people, err := c.app.service.Read(ctx, c.q)
	if err != nil {
		return err
	}
	if c.color {
		// Clear the screen.
		fmt.Fprint(c.out, "\033[H\033[2J")
	}
	t := render.People(people)
	t.Title += " (" + time.Now().Format(time.TimeOnly) + ")"
	return c.render(t)
}
