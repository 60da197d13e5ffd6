package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/lborres/medauth/client"
	"github.com/lborres/medauth/internal/cli"
)

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "medauth", "session.db")
}

func main() {
	server := flag.String("server", "http://localhost:8080/api/auth", "auth API base URL")
	statePath := flag.String("state", defaultStatePath(), "sqlite file holding the local session")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger, *server, *statePath, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, server, statePath string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(statePath), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", statePath)
	if err != nil {
		return fmt.Errorf("open state db: %w", err)
	}
	defer db.Close()

	records := client.NewSQLRecordStore(db)
	if err := records.EnsureSchema(ctx); err != nil {
		return err
	}

	app, err := cli.NewApp(ctx, client.NewHTTPTransport(server, nil), records, os.Stdin, os.Stdout, logger)
	if err != nil {
		return err
	}
	return app.Run(ctx, args)
}
