package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errUnknownCommand = errors.New("unknown command")

// execIface is the command surface the REPL drives. App satisfies it; tests
// use a lightweight stub.
type execIface interface {
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Refresh(ctx context.Context) error
	Me(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Ping(ctx context.Context) error
}

const helpText = `Available commands:
  register   create an account and log in
  login      log in with e-mail and password
  refresh    rotate the cached token pair
  me         show the current user
  password   change the password (signs out other sessions)
  logout     revoke all sessions and clear local data
  status     show who is logged in
  ping       check that the server is reachable
  exit       leave the program`

// dispatch runs a single command by name.
func dispatch(ctx context.Context, a execIface, cmd string) error {
	switch cmd {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "refresh":
		return a.Refresh(ctx)
	case "me":
		return a.Me(ctx)
	case "password", "passwd":
		return a.ChangePassword(ctx)
	case "logout":
		return a.Logout(ctx)
	case "status":
		return a.Status(ctx)
	case "ping":
		return a.Ping(ctx)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}

// Exec runs one command, printing "help" when asked for it.
func (a *App) Exec(ctx context.Context, cmd string) error {
	if cmd == "help" {
		fmt.Fprintln(a.out, helpText)
		return nil
	}
	return dispatch(ctx, a, cmd)
}

// runREPL reads commands line by line from reader and dispatches them until
// EOF, "exit"/"quit" or ctx cancellation. Command errors are printed and the
// loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func(context.Context) string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "gophauth %s> ", statusFn(ctx))

		line, err := reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}

		switch cmd := parts[0]; cmd {
		case "help":
			fmt.Fprintln(w, helpText)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			if derr := dispatch(ctx, a, cmd); derr != nil {
				fmt.Fprintln(w, "Error:", DescribeError(derr))
			}
		}

		if err != nil {
			return
		}
	}
}
