// Command dundie manages the points of the Dunder Mifflin associates.
//
// The database lives in the data directory along with config.yaml, an
// optional .env file and the session token saved by "dundie login".
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		var s exitStatus
		if !errors.As(err, &s) {
			fmt.Fprintf(os.Stderr, "dundie: %v\n", err)
			s = exitStatus(subcommands.ExitFailure)
		}
		os.Exit(int(s))
	}
}

// exitStatus is returned when a command already reported its failure.
type exitStatus subcommands.ExitStatus

func (s exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", s)
}

func mainImpl() error {
	dataDir := flag.String("data-dir", defaultDataDir(), "Data directory")
	logLevel := flag.String("log-level", os.Getenv("LOG_LEVEL"), "Log level (debug, info, warn, error)")
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	e := &env{
		in:     os.Stdin,
		out:    os.Stdout,
		color:  isatty.IsTerminal(os.Stdout.Fd()),
		prompt: isatty.IsTerminal(os.Stdin.Fd()),
	}
	register(commander, e)
	flag.Parse()
	e.dataDir = *dataDir

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(parseLevel(*logLevel))
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:       ll,
		TimeFormat:  "15:04:05.000",
		NoColor:     !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: dropEmpty,
	})))

	status := commander.Execute(ctx)
	e.close()
	if status != subcommands.ExitSuccess {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return exitStatus(status)
	}
	return nil
}

func register(c *subcommands.Commander, e *env) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")
	c.Register(&versionCmd{}, "")

	c.Register(&loadCmd{env: e}, "database")
	c.Register(&showCmd{env: e}, "database")
	c.Register(&addCmd{env: e}, "database")
	c.Register(&addCmd{env: e, remove: true}, "database")
	c.Register(&statementCmd{env: e}, "database")
	c.Register(&watchCmd{env: e}, "database")
	c.Register(&logCmd{env: e}, "database")
	c.Register(&schemaCmd{env: e}, "database")

	c.Register(&loginCmd{env: e}, "users")
	c.Register(&transferCmd{env: e}, "users")

	c.Register(&serveCmd{env: e}, "server")
}

func defaultDataDir() string {
	if d := os.Getenv("DUNDIE_DATA_DIR"); d != "" {
		return d
	}
	return "./data"
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// dropEmpty removes zero valued attributes from log lines.
func dropEmpty(_ []string, a slog.Attr) slog.Attr {
	skip := false
	switch t := a.Value.Any().(type) {
	case string:
		skip = t == ""
	case bool:
		skip = !t
	case int64:
		skip = t == 0
	case uint64:
		skip = t == 0
	case float64:
		skip = t == 0
	case time.Time:
		skip = t.IsZero()
	case time.Duration:
		skip = t == 0
	case nil:
		skip = true
	}
	if skip {
		return slog.Attr{}
	}
	return a
}
