package minesim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	cfg "github.com/loykin/minesim/internal/config"
	"github.com/loykin/minesim/internal/hashing"
	"github.com/loykin/minesim/internal/manager"
	"github.com/loykin/minesim/internal/metrics"
	"github.com/loykin/minesim/internal/mining"
	"github.com/loykin/minesim/internal/report"
	iapi "github.com/loykin/minesim/internal/server"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type MiningConfig = mining.Config

type Status = manager.Status

type Snapshot = mining.Snapshot

type Event = mining.Event

type Sink = report.Sink

type Config = cfg.Config

type ServerOptions = iapi.Options

var (
	ErrInvalidConfig     = mining.ErrInvalidConfig
	ErrUnknownAlgorithm  = hashing.ErrUnknownAlgorithm
	ErrInvalidDifficulty = manager.ErrInvalidDifficulty
	ErrShuttingDown      = manager.ErrShuttingDown
)

// Option configures a Manager.
type Option = manager.Option

func WithSinks(sinks ...Sink) Option             { return manager.WithSinks(sinks...) }
func WithLogger(l *slog.Logger) Option           { return manager.WithLogger(l) }
func WithDifficulty(n int) Option                { return manager.WithDifficulty(n) }
func WithExitHook(fn func(string, error)) Option { return manager.WithExitHook(fn) }

// Manager is a thin facade over internal/manager.Manager.
// It provides a stable public API for embedding.
type Manager struct{ inner *manager.Manager }

// DefaultMiningConfig returns the stock loop settings.
func DefaultMiningConfig() MiningConfig { return mining.DefaultConfig() }

func New(c MiningConfig, opts ...Option) (*Manager, error) {
	inner, err := manager.New(c, opts...)
	if err != nil {
		return nil, err
	}
	return &Manager{inner: inner}, nil
}

func (m *Manager) Start(ctx context.Context) error    { return m.inner.Start(ctx) }
func (m *Manager) Stop(ctx context.Context) error     { return m.inner.Stop(ctx) }
func (m *Manager) Shutdown(ctx context.Context) error { return m.inner.Shutdown(ctx) }
func (m *Manager) Status() Status                     { return m.inner.Status() }
func (m *Manager) Logs() []string                     { return m.inner.Logs() }
func (m *Manager) Running() bool                      { return m.inner.Running() }
func (m *Manager) Difficulty() int                    { return m.inner.Difficulty() }
func (m *Manager) SetDifficulty(n int) error          { return m.inner.SetDifficulty(n) }

// Subscribe streams loop events until cancel is called.
func (m *Manager) Subscribe() (<-chan Event, func()) { return m.inner.Board().Subscribe() }

// NewLineSink writes each event line to w, flushing buffered writers per line.
func NewLineSink(name string, w io.Writer) Sink { return report.NewLineSink(name, w) }

// NewSlogSink records events as structured log entries.
func NewSlogSink(l *slog.Logger) Sink { return report.NewSlogSink(l) }

// Algorithms lists the available hash functions.
func Algorithms() []string { return hashing.Names() }

func LoadConfig(path string) (*Config, error) {
	return cfg.LoadConfig(path)
}

// NewHTTPHandler returns the control API and optional dashboard as an
// http.Handler for mounting in another server.
func NewHTTPHandler(m *Manager, basePath string, opts ServerOptions) http.Handler {
	return iapi.NewRouter(m.inner, basePath, opts).Handler()
}

// NewHTTPServer binds addr and serves the control API for m in the background.
// It fails if addr cannot be bound.
func NewHTTPServer(addr, basePath string, m *Manager, opts ServerOptions) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, m.inner, opts)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// MetricsHandler serves the default registry.
func MetricsHandler() http.Handler { return metrics.Handler() }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	return NewMetricsServer(addr).ListenAndServe()
}

// NewMetricsServer builds (without starting) a server exposing /metrics.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
