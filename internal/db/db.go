// Package db owns the PostgreSQL connection pool and the single table the
// server reads and writes.
package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dbstatic/internal/metrics"
)

const (
	DefaultMaxConns       = 5
	DefaultAcquireTimeout = 3 * time.Second
)

// ErrPoolTimeout is returned when no connection became free within the
// acquire timeout.
var ErrPoolTimeout = errors.New("timed out waiting for a pooled connection")

// Pool bounds concurrent connections and the time spent waiting for one.
// It is safe for concurrent use.
type Pool struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

type options struct {
	acquireTimeout time.Duration
}

type Option func(*options)

// WithAcquireTimeout overrides how long Acquire waits for a free connection.
func WithAcquireTimeout(d time.Duration) Option {
	return func(o *options) { o.acquireTimeout = d }
}

// Connect creates the pool and verifies the database is reachable. A failed
// ping is returned as an error; callers treat it as fatal.
func Connect(ctx context.Context, databaseURL string, opts ...Option) (*Pool, error) {
	o := options{acquireTimeout: DefaultAcquireTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	cfg.MaxConns = DefaultMaxConns
	cfg.MinConns = 0
	cfg.ConnConfig.Tracer = &MetricsTracer{}

	mode := sslMode(databaseURL)
	if mode == "" {
		disableTLS(&cfg.ConnConfig.Config)
		mode = "disable (default)"
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	zap.L().Info("Database connected",
		zap.String("sslmode", mode),
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Duration("acquire_timeout", o.acquireTimeout))

	return &Pool{pool: pool, acquireTimeout: o.acquireTimeout}, nil
}

// Acquire waits for a free connection. The caller must Release it.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.pool.Acquire(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
			metrics.DBPoolAcquireTimeouts.Inc()
			return nil, fmt.Errorf("%w after %s", ErrPoolTimeout, p.acquireTimeout)
		}
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	p.recordStats()
	return conn, nil
}

// WithConn runs fn on a pooled connection and always returns it to the pool.
func (p *Pool) WithConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		conn.Release()
		p.recordStats()
	}()

	return fn(conn)
}

func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Pool) Stat() *pgxpool.Stat {
	return p.pool.Stat()
}

func (p *Pool) Close() {
	p.pool.Close()
}

func (p *Pool) recordStats() {
	stat := p.pool.Stat()
	metrics.DBPoolConnections.WithLabelValues("acquired").Set(float64(stat.AcquiredConns()))
	metrics.DBPoolConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	metrics.DBPoolConnections.WithLabelValues("total").Set(float64(stat.TotalConns()))
}

// sslMode returns the sslmode named in a URL or keyword/value DSN, then
// PGSSLMODE, or "" when neither sets one.
func sslMode(databaseURL string) string {
	if mode := dsnSSLMode(databaseURL); mode != "" {
		return mode
	}
	return strings.ToLower(os.Getenv("PGSSLMODE"))
}

func dsnSSLMode(databaseURL string) string {
	if strings.Contains(databaseURL, "://") {
		u, err := url.Parse(databaseURL)
		if err != nil {
			return ""
		}
		return strings.ToLower(u.Query().Get("sslmode"))
	}

	for _, field := range strings.Fields(databaseURL) {
		if v, ok := strings.CutPrefix(field, "sslmode="); ok {
			return strings.ToLower(strings.Trim(v, "'"))
		}
	}
	return ""
}

// disableTLS drops TLS from the primary target and every fallback. The
// plaintext fallback for the primary host is removed as well, since the
// primary itself is now that target.
func disableTLS(cfg *pgconn.Config) {
	cfg.TLSConfig = nil

	fallbacks := cfg.Fallbacks[:0]
	for _, fb := range cfg.Fallbacks {
		if fb.TLSConfig != nil {
			continue
		}
		if fb.Host == cfg.Host && fb.Port == cfg.Port {
			continue
		}
		fallbacks = append(fallbacks, fb)
	}
	cfg.Fallbacks = fallbacks
}
