package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dbstatic/internal/config"
	"dbstatic/internal/db"
	httpx "dbstatic/internal/http"
	"dbstatic/internal/logging"
)

const connectTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[0], os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 after a clean shutdown, 1 for
// startup or serve failures and 2 for command-line errors.
func run(name string, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(name, args, stderr)
	if errors.Is(err, config.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	log.Info("Application starting",
		zap.String("addr", cfg.ListenAddr()),
		zap.String("static_dir", cfg.StaticDir),
		zap.Bool("database", cfg.DatabaseEnabled()))

	var (
		values httpx.ValueStore
		checks []httpx.HealthCheck
	)
	if cfg.DatabaseEnabled() {
		pool, err := setupDB(cfg)
		if err != nil {
			log.Error("Failed to set up database", zap.Error(err))
			return 1
		}
		defer pool.Close()

		// assigned only here so a disabled database stays a nil interface
		values = db.NewValueRepo(pool)
		checks = append(checks, httpx.HealthCheck{Name: "database", Check: pool.Ping})
	}

	srv := httpx.NewServer(httpx.Config{
		StaticDir:  cfg.StaticDir,
		JWTSecret:  cfg.JWTSecret,
		CORSOrigin: cfg.CORSOrigin,
	}, values, log, checks...)

	l, err := srv.Listen(cfg.ListenAddr())
	if err != nil {
		log.Error("Failed to start server", zap.Error(err))
		return 1
	}

	done := runGracefulShutdown(srv, cfg.ShutdownTimeout, log, stdout)

	if err := srv.Serve(l); err != nil {
		log.Error("Server error", zap.Error(err))
		return 1
	}

	if err := <-done; err != nil {
		log.Error("Server shutdown error", zap.Error(err))
		return 1
	}
	log.Info("Server stopped")
	return 0
}

func setupDB(cfg *config.Settings) (*db.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return pool, nil
}

// runGracefulShutdown waits for SIGINT or SIGTERM, then drains the server.
// The returned channel yields the result of the drain.
func runGracefulShutdown(srv *httpx.Server, timeout time.Duration, log *zap.Logger, out io.Writer) <-chan error {
	done := make(chan error, 1)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		signal.Stop(sigChan)
		fmt.Fprintln(out, "signal shutdown")
		log.Info("Shutdown signal received, draining requests", zap.String("signal", sig.String()))

		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		done <- srv.Shutdown(ctx)
	}()

	return done
}
