package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/minesim"
	"github.com/loykin/minesim/internal/mcpserver"
	"github.com/loykin/minesim/pkg/client"
)

type command struct {
	out    io.Writer
	errOut io.Writer
}

// Serve runs the daemon: control API, dashboard and metrics until a signal arrives.
func (c *command) Serve(f ServeFlags) error {
	cfg, err := minesim.LoadConfig(f.ConfigPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if f.Listen != "" {
		cfg.Server.Listen = f.Listen
	}

	gin.SetMode(gin.ReleaseMode)
	env, err := c.daemonRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	// Registered before the manager exists so its initial gauges are recorded.
	if cfg.Metrics.Enabled {
		if err := minesim.RegisterMetricsDefault(); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}
	mgr, err := env.newManager(cfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	}()

	opts := minesim.ServerOptions{Dashboard: cfg.Server.Dashboard}
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Listen == "" {
			opts.Metrics = minesim.MetricsHandler()
		} else {
			metricsSrv = minesim.NewMetricsServer(cfg.Metrics.Listen)
			go func() {
				if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					env.logger.Error("Metrics server failed", "addr", cfg.Metrics.Listen, "error", err)
				}
			}()
		}
	}

	srv, err := minesim.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, mgr, opts)
	if err != nil {
		return err
	}
	env.logger.Info("minesim daemon listening", "addr", srv.Addr, "base", cfg.Server.BasePath,
		"dashboard", cfg.Server.Dashboard, "metrics", cfg.Metrics.Enabled)

	if cfg.Miner.AutoStart {
		if err := mgr.Start(context.Background()); err != nil {
			return fmt.Errorf("auto start: %w", err)
		}
	}

	if !f.NonBlocking {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		signal.Stop(sig)
		env.logger.Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(ctx)
	}
	return nil
}

// daemonRuntime prints progress lines on stdout next to the structured
// logs on stderr.
func (c *command) daemonRuntime(cfg *minesim.Config) (*runtimeEnv, error) {
	return newRuntime(cfg, c.errOut, c.out)
}

// mcpRuntime keeps stdout free for the protocol, so progress lines share
// stderr with the logs.
func (c *command) mcpRuntime(cfg *minesim.Config) (*runtimeEnv, error) {
	return newRuntime(cfg, c.errOut, c.errOut)
}

// Run mines in the foreground, printing progress lines until interrupted,
// the optional duration elapses, or a report destination fails.
func (c *command) Run(ctx context.Context, f RunFlags) error {
	cfg, err := minesim.LoadConfig(f.ConfigPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	applyRunOverrides(cfg, f)
	if err := cfg.Validate(); err != nil {
		return err
	}

	env, err := newRuntime(cfg, c.errOut, c.out)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	exited := make(chan error, 1)
	mgr, err := env.newManager(cfg, minesim.WithExitHook(func(_ string, err error) {
		select {
		case exited <- err:
		default:
		}
	}))
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if f.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Duration)
		defer cancel()
	}

	if err := mgr.Start(ctx); err != nil {
		return err
	}
	select {
	case err := <-exited:
		return err
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mgr.Stop(stopCtx); err != nil {
		return err
	}
	select {
	case err := <-exited:
		return err
	default:
		return nil
	}
}

func applyRunOverrides(cfg *minesim.Config, f RunFlags) {
	if f.Algorithm != "" {
		cfg.Miner.Algorithm = f.Algorithm
	}
	if f.BatchSize > 0 {
		cfg.Miner.BatchSize = f.BatchSize
	}
	if f.ReportInterval > 0 {
		cfg.Miner.ReportInterval = f.ReportInterval
	}
	if f.YieldDuration > 0 {
		cfg.Miner.YieldDuration = f.YieldDuration
	}
	if f.Difficulty != 0 {
		cfg.Miner.Difficulty = f.Difficulty
	}
}

// MCP serves the miner tools over stdio. Logs and progress lines go to
// stderr since stdout carries the protocol.
func (c *command) MCP(ctx context.Context, f MCPFlags, version string) error {
	cfg, err := minesim.LoadConfig(f.ConfigPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	env, err := c.mcpRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	mgr, err := env.newManager(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Shutdown(context.Background()) }()

	if f.AutoStart || cfg.Miner.AutoStart {
		if err := mgr.Start(ctx); err != nil {
			return err
		}
	}
	return mcpserver.New(version, mgr).Run(ctx)
}

func (c *command) Algorithms() error {
	for _, name := range minesim.Algorithms() {
		_, _ = fmt.Fprintln(c.out, name)
	}
	return nil
}

// --- Remote control ---

func (c *command) apiClient(f APIFlags) *client.Client {
	cfg := client.DefaultConfig()
	if f.APIUrl != "" {
		cfg.BaseURL = f.APIUrl
	}
	if f.APITimeout > 0 {
		cfg.Timeout = f.APITimeout
	}
	return client.New(cfg)
}

func (c *command) Start(ctx context.Context, f APIFlags) error {
	api := c.apiClient(f)
	if err := api.Start(ctx); err != nil {
		return err
	}
	return c.printStatus(ctx, api)
}

func (c *command) Stop(ctx context.Context, f StopFlags) error {
	api := c.apiClient(f.APIFlags)
	if err := api.Stop(ctx, f.Wait); err != nil {
		return err
	}
	return c.printStatus(ctx, api)
}

func (c *command) Status(ctx context.Context, f APIFlags) error {
	return c.printStatus(ctx, c.apiClient(f))
}

func (c *command) Logs(ctx context.Context, f APIFlags) error {
	lines, err := c.apiClient(f).Logs(ctx)
	if err != nil {
		return err
	}
	for _, l := range lines {
		_, _ = fmt.Fprintln(c.out, l)
	}
	return nil
}

// Difficulty prints the setting, updating it first when a value is given.
func (c *command) Difficulty(ctx context.Context, f DifficultyFlags) error {
	api := c.apiClient(f.APIFlags)
	var (
		resp client.DifficultyResponse
		err  error
	)
	if f.Value != 0 {
		resp, err = api.SetDifficulty(ctx, f.Value)
	} else {
		resp, err = api.Difficulty(ctx)
	}
	if err != nil {
		return err
	}
	c.printJSON(resp)
	return nil
}

func (c *command) printStatus(ctx context.Context, api *client.Client) error {
	st, err := api.Status(ctx)
	if err != nil {
		return err
	}
	c.printJSON(st)
	return nil
}

func (c *command) printJSON(v any) {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
