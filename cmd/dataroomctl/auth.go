package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dataroom/dataroom/pkg/client"
)

var errNotLoggedIn = errors.New("not logged in; run `dataroomctl login`")

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with Google and store the session token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "token",
				Usage: "Session token (or the full callback URL) instead of reading stdin",
			},
		},
		Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
			raw := c.String("token")
			if raw == "" {
				fmt.Fprintf(e.out, "Open this URL in a browser and sign in with Google:\n\n  %s\n\n", e.client.GoogleAuthURL())
				fmt.Fprint(e.out, "Paste the token (or the whole URL you were redirected to): ")

				line, err := bufio.NewReader(e.in).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				raw = line
			}

			token := extractToken(raw)
			if token == "" {
				return errors.New("no token given")
			}

			if err := e.session.Login(ctx, token); err != nil {
				return err
			}
			st := e.session.Snapshot()
			if !st.IsAuthenticated() {
				return errors.New("login failed: the server rejected the token")
			}

			fmt.Fprintf(e.out, "Logged in as %s\n", st.User.Email)
			if !st.GoogleConnected {
				fmt.Fprintln(e.out, "Google Drive is not connected; sign in again to grant Drive access.")
			}
			return nil
		}),
	}
}

// extractToken accepts a bare token or a callback URL carrying ?token= and
// returns the token.
func extractToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "token=") {
		return raw
	}
	if u, err := url.Parse(raw); err == nil && u.Query().Get("token") != "" {
		return u.Query().Get("token")
	}
	if q, err := url.ParseQuery(strings.TrimPrefix(raw, "?")); err == nil {
		return q.Get("token")
	}
	return ""
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Revoke the session and forget the token",
		Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
			if !e.client.HasToken() {
				fmt.Fprintln(e.out, "Not logged in")
				return nil
			}
			e.session.Logout(ctx)
			fmt.Fprintln(e.out, "Logged out")
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Action: action(func(ctx context.Context, c *cli.Context, e *env) error {
			e.session.Init(ctx)
			st := e.session.Snapshot()
			if !st.IsAuthenticated() {
				return errNotLoggedIn
			}

			w := newTable(e.out)
			fmt.Fprintf(w, "ID\t%s\n", st.User.ID)
			fmt.Fprintf(w, "Email\t%s\n", st.User.Email)
			fmt.Fprintf(w, "Name\t%s\n", st.User.DisplayName())
			fmt.Fprintf(w, "Google Drive\t%s\n", connectedLabel(st.GoogleConnected))
			return w.Flush()
		}),
	}
}

func connectedLabel(connected bool) string {
	if connected {
		return "connected"
	}
	return "not connected"
}

// explain adds a next step to errors the user can act on.
func explain(err error) error {
	switch {
	case errors.Is(err, client.ErrSessionExpired):
		return fmt.Errorf("%w; run `dataroomctl login`", err)
	case client.ErrorCode(err) == client.CodeOAuthRevoked:
		return fmt.Errorf("%w; run `dataroomctl login` to reconnect Google", err)
	}
	return err
}
