package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/minesim/internal/hashing"
	"github.com/loykin/minesim/internal/metrics"
	"github.com/loykin/minesim/internal/mining"
	"github.com/loykin/minesim/internal/report"
)

const (
	MinDifficulty     = 1
	MaxDifficulty     = 5
	DefaultDifficulty = 2
)

var (
	ErrInvalidDifficulty = errors.New("difficulty out of range")
	ErrShuttingDown      = errors.New("miner manager shutting down")
)

// Manager owns the mining loop and serializes control through a single
// state-machine goroutine. Start and Stop are idempotent.
//
// Lock Hierarchy:
// 1. mu (state lock) - protects state, active run and bookkeeping
// 2. report sinks' own locks, never taken while holding mu
//
// State Machine:
// Stopped -> Running -> Stopped
type Manager struct {
	mu         sync.RWMutex
	state      runState
	cfg        mining.Config
	difficulty int
	active     *activeRun
	lastErr    error
	lastRun    string
	runs       uint64

	logger *slog.Logger
	board  *report.Board
	stats  *report.MetricsSink
	sinks  []report.Sink
	lines  *mining.LogRing
	onExit func(runID string, err error)

	cmdChan  chan command
	exitChan chan *activeRun
	doneChan chan struct{}
}

type activeRun struct {
	id        string
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
	startedAt time.Time
}

type command struct {
	action commandAction
	ctx    context.Context
	reply  chan error
}

type commandAction int

const (
	actionStart commandAction = iota
	actionStop
	actionShutdown
)

// Option configures a Manager.
type Option func(*Manager)

// WithSinks adds destinations that receive every loop event after the live
// board and metrics.
func WithSinks(sinks ...report.Sink) Option {
	return func(m *Manager) { m.sinks = append(m.sinks, sinks...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithDifficulty sets the initial difficulty. Out-of-range values are
// rejected by New.
func WithDifficulty(n int) Option {
	return func(m *Manager) { m.difficulty = n }
}

// WithExitHook registers fn to be called after every run ends, with the
// error that ended it (nil for a requested stop).
func WithExitHook(fn func(runID string, err error)) Option {
	return func(m *Manager) { m.onExit = fn }
}

// New validates cfg and starts the state machine. Call Shutdown to release it.
func New(cfg mining.Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = hashing.Default
	}
	m := &Manager{
		state:      StateStopped,
		cfg:        cfg,
		difficulty: DefaultDifficulty,
		logger:     slog.Default(),
		board:      report.NewBoard(),
		stats:      report.NewMetricsSink(),
		lines:      mining.NewLogRing(cfg.MaxLogLines),
		cmdChan:    make(chan command),
		exitChan:   make(chan *activeRun, 1),
		doneChan:   make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	if err := validDifficulty(m.difficulty); err != nil {
		return nil, err
	}
	metrics.SetDifficulty(m.difficulty)
	metrics.SetCurrentState(StateStopped.String(), true)

	go m.runStateMachine()
	return m, nil
}

// Start begins a run. Starting a running miner is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	return m.send(ctx, actionStart)
}

// Stop cancels the current run and waits until the loop has observed the
// cancellation or ctx expires. Stopping a stopped miner is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	return m.send(ctx, actionStop)
}

// Shutdown stops any run and terminates the state machine. Further
// commands fail with ErrShuttingDown.
func (m *Manager) Shutdown(ctx context.Context) error {
	err := m.send(ctx, actionShutdown)
	if errors.Is(err, ErrShuttingDown) {
		return nil // Already shut down
	}
	return err
}

func (m *Manager) send(ctx context.Context, action commandAction) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reply := make(chan error, 1)
	select {
	case m.cmdChan <- command{action: action, ctx: ctx, reply: reply}:
	case <-m.doneChan:
		return ErrShuttingDown
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-m.doneChan:
		return ErrShuttingDown
	}
}

// SetDifficulty stores the difficulty setting. It has no effect on the work
// performed.
func (m *Manager) SetDifficulty(n int) error {
	if err := validDifficulty(n); err != nil {
		return err
	}
	m.mu.Lock()
	m.difficulty = n
	m.mu.Unlock()
	metrics.SetDifficulty(n)
	m.logger.Debug("Difficulty updated", "difficulty", n)
	return nil
}

func (m *Manager) Difficulty() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.difficulty
}

// Running reports whether a run is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateRunning
}

// Config returns the loop configuration.
func (m *Manager) Config() mining.Config { return m.cfg }

// Board exposes the live display for streaming consumers.
func (m *Manager) Board() *report.Board { return m.board }

// Logs returns the scrollback, newest last.
func (m *Manager) Logs() []string { return m.board.Lines() }

// Status returns the control state together with the latest snapshot.
func (m *Manager) Status() Status {
	m.mu.RLock()
	st := Status{
		State:      m.state.String(),
		Running:    m.state == StateRunning,
		Algorithm:  m.cfg.Algorithm,
		Difficulty: m.difficulty,
		Runs:       m.runs,
		RunID:      m.lastRun,
	}
	if m.active != nil {
		st.RunID = m.active.id
		started := m.active.startedAt
		st.StartedAt = &started
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	if ev, ok := m.board.Latest(); ok {
		if ev.RunID == st.RunID {
			st.Snapshot = ev.Snapshot
		}
		st.Lines = ev.Lines
	}
	if st.Lines == nil {
		st.Lines = []string{}
	}
	return st
}

// runStateMachine is the core state machine (single goroutine, no races)
func (m *Manager) runStateMachine() {
	defer close(m.doneChan)

	for {
		select {
		case cmd := <-m.cmdChan:
			if m.handleCommand(cmd) {
				return
			}
		case r := <-m.exitChan:
			m.finish(r)
		}
	}
}

// handleCommand replies to cmd and reports whether the machine should exit.
func (m *Manager) handleCommand(cmd command) bool {
	var err error
	exit := false
	switch cmd.action {
	case actionStart:
		err = m.handleStart()
	case actionStop:
		err = m.handleStop(cmd.ctx)
	case actionShutdown:
		err = m.handleStop(cmd.ctx)
		exit = true
	}
	cmd.reply <- err
	return exit
}

func (m *Manager) handleStart() error {
	m.mu.RLock()
	running := m.active != nil
	m.mu.RUnlock()
	if running {
		return nil
	}

	id := uuid.NewString()
	sink := report.Multi(append([]report.Sink{m.board, m.stats}, m.sinks...)...)
	loop, err := mining.NewLoop(m.cfg, id, m.lines, sink)
	if err != nil {
		return fmt.Errorf("prepare run: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &activeRun{id: id, cancel: cancel, done: make(chan struct{}), startedAt: time.Now()}

	m.mu.Lock()
	m.active = r
	m.lastRun = id
	m.lastErr = nil
	m.runs++
	m.mu.Unlock()
	m.setState(StateRunning)
	metrics.IncRun()

	go func() {
		r.err = loop.Run(ctx)
		close(r.done)
		select {
		case m.exitChan <- r:
		case <-m.doneChan:
		}
	}()
	return nil
}

func (m *Manager) handleStop(ctx context.Context) error {
	m.mu.RLock()
	r := m.active
	m.mu.RUnlock()
	if r == nil {
		return nil
	}

	r.cancel()
	select {
	case <-r.done:
		m.finish(r)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop run %s: %w", r.id, ctx.Err())
	}
}

// finish records the end of r. Late notifications for runs that were
// already finished are ignored.
func (m *Manager) finish(r *activeRun) {
	m.mu.Lock()
	if m.active != r {
		m.mu.Unlock()
		return
	}
	m.active = nil
	m.lastErr = r.err
	hook := m.onExit
	m.mu.Unlock()

	r.cancel()
	if r.err != nil {
		metrics.IncRunFailure()
		m.logger.Error("Mining run failed", "run", r.id, "error", r.err)
	}
	m.setState(StateStopped)
	metrics.IncStop()
	if hook != nil {
		hook(r.id, r.err)
	}
}

// setState safely updates state (minimal lock scope)
func (m *Manager) setState(newState runState) {
	m.mu.Lock()
	oldState := m.state
	m.state = newState
	m.mu.Unlock()
	if oldState == newState {
		return
	}

	metrics.RecordStateTransition(oldState.String(), newState.String())
	metrics.SetCurrentState(oldState.String(), false)
	metrics.SetCurrentState(newState.String(), true)
}

func validDifficulty(n int) error {
	if n < MinDifficulty || n > MaxDifficulty {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidDifficulty, n, MinDifficulty, MaxDifficulty)
	}
	return nil
}
