package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/maruel/dundie/internal/core"
	"github.com/maruel/dundie/internal/models"
	"github.com/maruel/dundie/internal/render"
	"github.com/maruel/dundie/internal/storage"
)

// failure reports err and returns the failure status.
func failure(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

// queryFlags are the people filters shared by several commands.
type queryFlags struct {
	q core.Query
}

func (f *queryFlags) setFlags(fs *flag.FlagSet) {
	fs.StringVar(&f.q.Email, "email", "", "Filter by email")
	fs.StringVar(&f.q.Dept, "dept", "", "Filter by department")
	fs.StringVar(&f.q.Role, "role", "", "Filter by role")
	fs.StringVar(&f.q.Name, "name", "", "Filter by name")
}

type loadCmd struct {
	*env
}

func (*loadCmd) Name() string     { return "load" }
func (*loadCmd) Synopsis() string { return "import people from a CSV file" }
func (*loadCmd) Usage() string {
	return `load <file.csv>

  Imports people from a CSV file with the columns name, dept, role, email and
  an optional currency. New people get their initial points and a password by
  email. Known people are updated.
`
}

func (*loadCmd) SetFlags(*flag.FlagSet) {}

func (c *loadCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one CSV file is required.")
		return subcommands.ExitUsageError
	}
	a, err := c.open(ctx)
	if err != nil {
		return failure(err)
	}
	results, err := a.service.Load(ctx, f.Arg(0))
	if err != nil {
		return failure(err)
	}
	if err := c.render(render.Loaded(results)); err != nil {
		return failure(err)
	}
	return subcommands.ExitSuccess
}

type showCmd struct {
	*env
	queryFlags
	json bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "show people and their balance" }
func (*showCmd) Usage() string {
	return `show [-email <email>] [-dept <dept>] [-role <role>] [-name <name>] [-json]
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.BoolVar(&c.json, "json", false, "Print JSON instead of a table")
}

func (c *showCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	a, err := c.open(ctx)
	if err != nil {
		return failure(err)
	}
	people, err := a.service.Read(ctx, c.q)
	if err != nil {
		return failure(err)
	}
	if c.json {
		err = writeJSON(c.env, people)
	} else {
		err = c.render(render.People(people))
	}
	if err != nil {
		return failure(err)
	}
	return subcommands.ExitSuccess
}

// addCmd adds points, or removes them when remove is set.
type addCmd struct {
	*env
	queryFlags
	remove bool
	value  string
}

func (c *addCmd) Name() string {
	if c.remove {
		return "remove"
	}
	return "add"
}

func (c *addCmd) Synopsis() string {
	if c.remove {
		return "remove points from the selected people"
	}
	return "add points to the selected people"
}

func (c *addCmd) Usage() string {
	return c.Name() + ` -value <points> [-email <email>] [-dept <dept>] [-role <role>] [-name <name>]

  Without filter, everybody is selected.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.value, "value", "", "Points (required)")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.value == "" {
		fmt.Fprintln(os.Stderr, "Error: -value is required.")
		return subcommands.ExitUsageError
	}
	value, err := models.ParsePoints(c.value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.remove {
		value = value.Neg()
	}
	a, err := c.open(ctx)
	if err != nil {
		return failure(err)
	}
	people, err := a.service.Add(ctx, value, c.q, currentUser())
	if err != nil {
		return failure(err)
	}
	if err := c.render(render.People(people)); err != nil {
		return failure(err)
	}
	return subcommands.ExitSuccess
}

type statementCmd struct {
	*env
}

func (*statementCmd) Name() string     { return "statement" }
func (*statementCmd) Synopsis() string { return "list the movements of a person" }
func (*statementCmd) Usage() string {
	return `statement <email>
`
}

func (*statementCmd) SetFlags(*flag.FlagSet) {}

func (c *statementCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one email is required.")
		return subcommands.ExitUsageError
	}
	a, err := c.open(ctx)
	if err != nil {
		return failure(err)
	}
	movements, err := a.service.Statement(ctx, f.Arg(0))
	if err != nil {
		return failure(err)
	}
	if err := c.render(render.Statement(f.Arg(0), movements)); err != nil {
		return failure(err)
	}
	return subcommands.ExitSuccess
}

type logCmd struct {
	*env
	n  int
	at string
}

func (*logCmd) Name() string     { return "log" }
func (*logCmd) Synopsis() string { return "show the history of the database" }
func (*logCmd) Usage() string {
	return `log [-n <count>] [-at <commit>]

  Lists the recorded versions of the database, or prints the database as of
  a commit. Requires "history: true" in config.yaml.
`
}

func (c *logCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.n, "n", 20, "Number of versions to list")
	f.StringVar(&c.at, "at", "", "Print the database as of this commit (or HEAD)")
}

func (c *logCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	a, err := c.open(ctx)
	if err != nil {
		return failure(err)
	}
	if a.repo == nil {
		return failure(errors.New("history is disabled"))
	}
	if c.at != "" {
		raw, err := a.repo.FileAt(ctx, c.at)
		if err != nil {
			return failure(err)
		}
		if _, err := c.out.Write(raw); err != nil {
			return failure(err)
		}
		return subcommands.ExitSuccess
	}
	commits, err := a.repo.Log(ctx, c.n)
	if err != nil {
		return failure(err)
	}
	if err := c.render(render.History(commits)); err != nil {
		return failure(err)
	}
	return subcommands.ExitSuccess
}

type schemaCmd struct {
	*env
}

func (*schemaCmd) Name() string     { return "schema" }
func (*schemaCmd) Synopsis() string { return "print the JSON schema of the database file" }
func (*schemaCmd) Usage() string {
	return `schema
`
}

func (*schemaCmd) SetFlags(*flag.FlagSet) {}

func (c *schemaCmd) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	if err := writeJSON(c.env, storage.JSONSchema()); err != nil {
		return failure(err)
	}
	return subcommands.ExitSuccess
}

func writeJSON(e *env, v any) error {
	w := bufio.NewWriter(e.out)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return w.Flush()
}
