// Package config turns command-line flags and environment variables into
// the immutable Settings the server is started with.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go-simpler.org/env"
)

// ErrHelp is returned by Load when -h/--help was requested.
var ErrHelp = pflag.ErrHelp

// Settings is created once at startup and never modified afterwards.
type Settings struct {
	Addr      string `env:"ADDR" default:"::1"`
	Port      uint16 `env:"PORT" default:"3000"`
	StaticDir string `env:"STATIC_DIR" default:"./assets"`

	// DatabaseURL empty disables the /db routes and the pool.
	DatabaseURL string `env:"DATABASE_URL" default:"postgres://pg:ss@localhost/db"`
	Migrate     bool   `env:"MIGRATE" default:"true"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"console"`

	JWTSecret  string `env:"JWT_SECRET"`
	CORSOrigin string `env:"CORS_ORIGIN"`

	// ShutdownTimeout of zero waits for in-flight requests indefinitely.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"0s"`
}

// ListenAddr is the host:port pair the server binds to.
func (s *Settings) ListenAddr() string {
	return net.JoinHostPort(s.Addr, strconv.Itoa(int(s.Port)))
}

// DatabaseEnabled reports whether a connection string was supplied.
func (s *Settings) DatabaseEnabled() bool {
	return s.DatabaseURL != ""
}

// Load builds Settings from defaults, a .env file if present, the process
// environment and finally args (without the program name). Flags win.
func Load(name string, args []string, output io.Writer) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var s Settings
	if err := env.Load(&s, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(output)
	flags.SortFlags = false

	flags.StringVarP(&s.Addr, "addr", "a", s.Addr, "address to bind to")
	flags.Uint16VarP(&s.Port, "port", "p", s.Port, "port to listen on")
	// -s is the port shorthand of the static-only build; kept as an alias.
	flags.Uint16VarP(&s.Port, "server-port", "s", s.Port, "alias of --port")
	_ = flags.MarkHidden("server-port")
	flags.StringVarP(&s.StaticDir, "static-dir", "d", s.StaticDir, "directory served under /static")
	flags.StringVar(&s.DatabaseURL, "db", s.DatabaseURL, "database connection URI, empty disables the /db routes")
	flags.BoolVar(&s.Migrate, "migrate", s.Migrate, "apply schema migrations at startup")
	flags.StringVar(&s.LogLevel, "log-level", s.LogLevel, "debug, info, warn or error")
	flags.StringVar(&s.LogFormat, "log-format", s.LogFormat, "console or json")
	flags.StringVar(&s.JWTSecret, "jwt-secret", s.JWTSecret, "require HS256 bearer tokens signed with this secret on /db routes")
	flags.StringVar(&s.CORSOrigin, "cors-origin", s.CORSOrigin, "allowed CORS origin")
	flags.DurationVar(&s.ShutdownTimeout, "shutdown-timeout", s.ShutdownTimeout, "upper bound for draining requests on shutdown, 0 waits forever")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}

	if err := validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func validate(s *Settings) error {
	if s.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if s.StaticDir == "" {
		return errors.New("static-dir must not be empty")
	}

	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", s.LogLevel)
	}

	switch s.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", s.LogFormat)
	}

	if scheme, _, ok := strings.Cut(s.DatabaseURL, "://"); ok {
		if scheme != "postgres" && scheme != "postgresql" {
			return fmt.Errorf("unsupported database scheme %q", scheme)
		}
	}

	if s.ShutdownTimeout < 0 {
		return errors.New("shutdown-timeout must not be negative")
	}
	return nil
}
