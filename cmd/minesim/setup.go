package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/loykin/minesim"
	"github.com/loykin/minesim/internal/logger"
)

// runtimeEnv bundles the logger and report sinks built from configuration.
type runtimeEnv struct {
	logger  *slog.Logger
	sinks   []minesim.Sink
	closers []io.Closer
}

// newRuntime prepares logging from cfg. stderr receives structured logs and
// terminal, when non-nil, receives the progress lines.
func newRuntime(cfg *minesim.Config, stderr, terminal io.Writer) (*runtimeEnv, error) {
	lc := cfg.Log.Logger()
	// A broken log destination is a startup error, not a mid-run surprise.
	if err := lc.Probe(); err != nil {
		return nil, fmt.Errorf("log destination: %w", err)
	}
	l, logCloser, err := logger.New(lc, stderr)
	if err != nil {
		return nil, err
	}
	env := &runtimeEnv{logger: l, closers: []io.Closer{logCloser}}
	env.sinks = append(env.sinks, minesim.NewSlogSink(l))

	if terminal != nil {
		env.sinks = append(env.sinks, minesim.NewLineSink("terminal", bufio.NewWriter(terminal)))
	}
	if linesW := lc.LinesWriter(); linesW != nil {
		env.sinks = append(env.sinks, minesim.NewLineSink("lines-file", linesW))
		env.closers = append(env.closers, linesW)
	}
	return env, nil
}

func (e *runtimeEnv) newManager(cfg *minesim.Config, opts ...minesim.Option) (*minesim.Manager, error) {
	base := []minesim.Option{
		minesim.WithLogger(e.logger),
		minesim.WithSinks(e.sinks...),
		minesim.WithDifficulty(cfg.Miner.Difficulty),
	}
	return minesim.New(cfg.Miner.Mining(), append(base, opts...)...)
}

func (e *runtimeEnv) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
