package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"github.com/lborres/medauth"
	fiberadapter "github.com/lborres/medauth/adapters/fiber"
	"github.com/lborres/medauth/adapters/memory"
	pgxadapter "github.com/lborres/medauth/adapters/pgx"
	"github.com/lborres/medauth/config"
	"github.com/lborres/medauth/core"
	"github.com/lborres/medauth/pkg/cache"
)

const maxMemoryTickets = 5000

func logFormat() string {
	format := []string{
		// Timestamp & Request ID
		"${time}|${respHeader:X-Request-ID}",

		// Response metadata
		"${status}|${latency}",

		// Client info
		"${ip}",

		// Request details
		"${method}|${path}",

		// errors
		"${error}",
	}
	return strings.Join(format, "|") + "\n"
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		slog.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := cfg.Level()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	app := newApp()

	auth, err := medauth.New(medauth.Config{
		Secret:       cfg.Secret,
		Storage:      storage,
		HTTP:         fiberadapter.New(app, fiberadapter.WithLogger(log)),
		Logger:       log,
		TokenTTL:     cfg.TokenTTL,
		ResetTTL:     cfg.ResetTTL,
		RefreshGrace: cfg.AuthRefreshGrace(),
		BasePath:     cfg.BasePath,
	})
	if err != nil {
		return fmt.Errorf("could not create auth instance: %w", err)
	}

	if cfg.SeedDemo {
		seedDemoAccounts(ctx, auth, log)
	}

	registerAppRoutes(app, auth)

	go auth.RunTicketPurger(ctx, cfg.PurgeInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", cfg.Addr), slog.String("base_path", auth.BasePath), slog.Bool("in_memory", cfg.InMemory()))
		errCh <- app.Listen(cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// newApp builds the fiber app with the request middleware stack.
func newApp() *fiber.App {
	app := fiber.New(fiber.Config{AppName: "medauth"})
	app.Use(recoverer.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format:     logFormat(),
		TimeFormat: "2006/01/02 15:04:05",
		TimeZone:   "Local",
	}))
	return app
}

// openStorage returns the pgx adapter when a DSN is configured and the
// in-memory adapter otherwise.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (core.StorageAdapter, func(), error) {
	if cfg.InMemory() {
		log.Warn("no database configured, accounts live in memory only")
		tickets := cache.NewTicketCache(cache.Config{MaxSize: maxMemoryTickets})
		storage := memory.New(memory.WithTicketCache(tickets))
		closeFn := func() {
			stats := tickets.Stats()
			log.Info("discarding in-memory state",
				slog.Int("accounts", storage.Count()),
				slog.Int64("puts", stats.Puts),
				slog.Int64("takes", stats.Takes),
				slog.Int64("misses", stats.Misses),
				slog.Int64("evictions", stats.Evictions),
				slog.Int("size", stats.Size))
		}
		return storage, closeFn, nil
	}

	if cfg.Migrate {
		if err := pgxadapter.Migrate(ctx, cfg.DatabaseDSN); err != nil {
			return nil, nil, err
		}
	}

	pool, err := pgxadapter.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	return pgxadapter.New(pool), pool.Close, nil
}

func seedDemoAccounts(ctx context.Context, auth *medauth.Auth, log *slog.Logger) {
	for _, demo := range memory.DemoAccounts() {
		_, err := auth.Register(ctx, demo)
		switch {
		case err == nil:
			log.Info("seeded demo account", slog.String("email", demo.Email), slog.String("role", demo.Role))
		case errors.Is(err, core.ErrDuplicateEmail):
		default:
			log.Error("seed demo account", slog.String("email", demo.Email), slog.String("error", err.Error()))
		}
	}
}
