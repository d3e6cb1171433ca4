package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/maruel/dundie/internal/auth"
	"github.com/maruel/dundie/internal/core"
	"github.com/maruel/dundie/internal/models"
	"github.com/maruel/dundie/internal/render"
)

type loginCmd struct {
	*env
	email string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "log in with the password received by email" }
func (*loginCmd) Usage() string {
	return `login -email <email>

  Reads the password from stdin and saves a session token in the data
  directory for the commands that act on behalf of a user.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Email (required)")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.email == "" {
		fmt.Fprintln(os.Stderr, "Error: -email is required.")
		return subcommands.ExitUsageError
	}
	if c.prompt {
		fmt.Fprint(os.Stderr, "Password: ")
	}
	password, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return failure(err)
	}
	a, err := c.open(ctx)
	if err != nil {
		return failure(err)
	}
	db, err := a.service.Connect(ctx)
	if err != nil {
		return failure(err)
	}
	u, err := auth.Authenticate(db, c.email, strings.TrimRight(password, "\r\n"))
	if err != nil {
		return failure(err)
	}
	sessions, err := a.sessions()
	if err != nil {
		return failure(err)
	}
	token, err := sessions.Issue(u.Person.Email)
	if err != nil {
		return failure(err)
	}
	if err := c.saveToken(token); err != nil {
		return failure(err)
	}
	fmt.Fprintf(c.out, "Logged in as %s\n", u.Person.Email)
	return subcommands.ExitSuccess
}

type transferCmd struct {
	*env
	to    string
	value string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "give some of your points to somebody" }
func (*transferCmd) Usage() string {
	return `transfer -to <email> -value <points>

  Requires "dundie login".
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.to, "to", "", "Receiver email (required)")
	f.StringVar(&c.value, "value", "", "Points (required)")
}

func (c *transferCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.to == "" || c.value == "" {
		fmt.Fprintln(os.Stderr, "Error: -to and -value are required.")
		return subcommands.ExitUsageError
	}
	value, err := models.ParsePoints(c.value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, err := c.open(ctx)
	if err != nil {
		return failure(err)
	}
	from, err := c.loggedIn(a)
	if err != nil {
		return failure(err)
	}
	if err := a.service.Transfer(ctx, from, c.to, value); err != nil {
		return failure(err)
	}
	people, err := a.service.Read(ctx, core.Query{Email: from})
	if err != nil {
		return failure(err)
	}
	if err := c.render(render.People(people)); err != nil {
		return failure(err)
	}
	return subcommands.ExitSuccess
}
