// Command dataroomctl is a terminal front end for the Dataroom API.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dataroom/dataroom/pkg/client"
)

const (
	defaultServer = "http://localhost:8080"
	userAgent     = "dataroomctl/1.0"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".dataroomctl", "state.db")
	}
	return filepath.Join(home, ".dataroomctl", "state.db")
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "dataroomctl",
		Usage: "Manage datarooms and import files from Google Drive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "Dataroom API base URL",
				EnvVars: []string{"DATAROOM_SERVER"},
				Value:   defaultServer,
			},
			&cli.StringFlag{
				Name:    "state",
				Usage:   "Path to the local state database",
				EnvVars: []string{"DATAROOMCTL_STATE"},
				Value:   defaultStatePath(),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log client diagnostics to stderr",
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			roomsCommand(),
			filesCommand(),
			driveCommand(),
		},
	}
}

// env is what every command runs against.
type env struct {
	client  *client.Client
	session *client.Session
	out     io.Writer
	errOut  io.Writer
	in      io.Reader
}

// action opens the state DB, builds a client for --server and runs fn.
func action(fn func(ctx context.Context, c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		state, err := openStateDB(c.String("state"))
		if err != nil {
			return err
		}
		defer state.Close()

		level := slog.LevelWarn
		if c.Bool("verbose") {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))

		server := strings.TrimRight(c.String("server"), "/")
		api := client.New(server,
			client.WithTokenStore(state.tokenStore(server)),
			client.WithLogger(logger),
			client.WithUserAgent(userAgent),
		)

		in := c.App.Reader
		if in == nil {
			in = os.Stdin
		}
		e := &env{
			client:  api,
			session: client.NewSession(api),
			out:     c.App.Writer,
			errOut:  c.App.ErrWriter,
			in:      in,
		}
		return explain(fn(c.Context, c, e))
	}
}

// requireArgs checks the positional argument count.
func requireArgs(c *cli.Context, names ...string) error {
	if c.NArg() < len(names) {
		return fmt.Errorf("usage: %s %s", c.Command.FullName(), strings.Join(upper(names), " "))
	}
	return nil
}

func upper(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToUpper(n)
	}
	return out
}
