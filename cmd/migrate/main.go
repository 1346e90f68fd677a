// Command migrate applies or reverts the embedded Postgres schema.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"

	"github.com/dataroom/dataroom/migrations"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	app := &cli.App{
		Name:  "migrate",
		Usage: "Manage the Dataroom database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "PostgreSQL connection string",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(c *cli.Context) error {
					return withDB(c, func(ctx context.Context, db *sql.DB) error {
						applied, err := migrations.Up(ctx, db)
						if err != nil {
							return err
						}
						if len(applied) == 0 {
							logger.Info("schema is up to date")
							return nil
						}
						logger.Info("migrations applied", slog.Any("versions", applied))
						return nil
					})
				},
			},
			{
				Name:  "down",
				Usage: "Revert the most recent migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "steps",
						Usage: "Number of migrations to revert",
						Value: 1,
					},
				},
				Action: func(c *cli.Context) error {
					return withDB(c, func(ctx context.Context, db *sql.DB) error {
						for i := 0; i < c.Int("steps"); i++ {
							version, err := migrations.Down(ctx, db)
							if err != nil {
								return err
							}
							if version == 0 {
								logger.Info("nothing left to revert")
								return nil
							}
							logger.Info("migration reverted", slog.Int("version", version))
						}
						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "List migrations and whether they are applied",
				Action: func(c *cli.Context) error {
					return withDB(c, func(ctx context.Context, db *sql.DB) error {
						states, err := migrations.Status(ctx, db)
						if err != nil {
							return err
						}
						w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
						fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
						for _, s := range states {
							fmt.Fprintf(w, "%06d\t%s\t%t\n", s.Version, s.Name, s.Applied)
						}
						return w.Flush()
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func withDB(c *cli.Context, fn func(context.Context, *sql.DB) error) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", c.String("database-url"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	return fn(ctx, db)
}
