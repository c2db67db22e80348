package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ValueStore is the database capability handed to the CRUD handlers.
type ValueStore interface {
	Insert(ctx context.Context, n int32) (pgconn.CommandTag, error)
	List(ctx context.Context) ([]int32, error)
}

// HealthCheck is a named readiness check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Config struct {
	StaticDir  string
	JWTSecret  string
	CORSOrigin string
}

type Server struct {
	R      *gin.Engine
	Values ValueStore
	Now    func() time.Time

	cfg          Config
	log          *zap.Logger
	static       *StaticFiles
	healthChecks []HealthCheck
	startTime    time.Time
	http         *http.Server
}

// NewServer builds the route table. values may be nil, in which case the
// /db routes are not registered.
func NewServer(cfg Config, values ValueStore, log *zap.Logger, healthChecks ...HealthCheck) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	s := &Server{
		R:            r,
		Values:       values,
		Now:          time.Now,
		cfg:          cfg,
		log:          log,
		static:       NewStaticFiles(cfg.StaticDir, log),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}
	s.http = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.registerRoutes()
	return s
}

// Listen binds addr. Binding happens before serving so a bad address or a
// port already in use fails startup.
func (s *Server) Listen(addr string) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	return l, nil
}

// Serve blocks until Shutdown is called. It returns nil after a graceful stop.
func (s *Server) Serve(l net.Listener) error {
	s.log.Info("Server listening", zap.String("addr", l.Addr().String()))
	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
