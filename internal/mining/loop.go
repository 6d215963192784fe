package mining

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/loykin/minesim/internal/hashing"
)

const clockLayout = "15:04:05"

// Loop runs batches of synthetic hashing work and reports progress at most
// once per report interval. A Loop is single-use and owned by one goroutine.
//
// Cancellation is observed only at the per-batch checkpoint, so a stop takes
// effect within one batch plus the yield that follows a report.
type Loop struct {
	cfg      Config
	hash     hashing.Func
	reporter Reporter
	runID    string
	state    State
	now      func() time.Time
	key      []byte
	digest   [32]byte
}

// NewLoop validates cfg and prepares a loop that appends to lines. A nil
// lines ring gets a fresh one sized by cfg.MaxLogLines.
func NewLoop(cfg Config, runID string, lines *LogRing, r Reporter) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fn, err := hashing.Lookup(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = NewLogRing(cfg.MaxLogLines)
	}
	if r == nil {
		r = nopReporter{}
	}
	return &Loop{
		cfg:      cfg,
		hash:     fn,
		reporter: r,
		runID:    runID,
		state:    State{Lines: lines},
		now:      time.Now,
		key:      make([]byte, 0, len(cfg.KeyPrefix)+20),
	}, nil
}

// State returns a copy of the run state. The Lines ring is shared.
func (l *Loop) State() State { return l.state }

// Run executes the loop until ctx is cancelled or a reporter fails.
// A clean cancellation returns nil.
func (l *Loop) Run(ctx context.Context) error {
	now := l.begin()
	line := fmt.Sprintf("[%s] Process Started...", now.Format(clockLayout))
	l.state.Lines.Append(line)
	if err := l.emit(ctx, Event{Kind: EventStarted, At: now, Line: line}); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return l.finish(ctx)
		}
		reported, err := l.Step(ctx)
		if err != nil {
			return err
		}
		if reported {
			l.yield(ctx)
		}
	}
}

// Step hashes one batch and reports if the interval has been exceeded.
// It returns true when a report was emitted.
func (l *Loop) Step(ctx context.Context) (bool, error) {
	if l.state.StartTime.IsZero() {
		l.begin()
	}
	l.hashBatch()

	now := l.now()
	if now.Sub(l.state.LastReportTime) <= l.cfg.ReportInterval {
		return false, nil
	}

	snap := NewSnapshot(l.state.Counter, now.Sub(l.state.StartTime))
	line := FormatAlive(now, snap)
	l.state.Lines.Append(line)
	l.state.LastReportTime = now
	if err := l.emit(ctx, Event{Kind: EventAlive, At: now, Snapshot: snap, Line: line}); err != nil {
		return true, err
	}
	return true, nil
}

// FormatAlive renders the periodic progress line.
func FormatAlive(at time.Time, s Snapshot) string {
	return fmt.Sprintf("[%s] ALIVE | Time: %.1fs | Hashes: %d", at.Format(clockLayout), s.ElapsedSeconds, s.TotalCount)
}

func (l *Loop) begin() time.Time {
	now := l.now()
	l.state.Counter = 0
	l.state.StartTime = now
	l.state.LastReportTime = now
	return now
}

func (l *Loop) hashBatch() {
	start := l.state.Counter
	n := uint64(l.cfg.BatchSize)
	prefix := len(l.cfg.KeyPrefix)
	l.key = append(l.key[:0], l.cfg.KeyPrefix...)
	for i := uint64(0); i < n; i++ {
		l.key = strconv.AppendUint(l.key[:prefix], start+i, 10)
		l.digest = l.hash(l.key)
	}
	l.state.Counter += n
}

// yield pauses after a report so a pending stop can land.
func (l *Loop) yield(ctx context.Context) {
	if l.cfg.YieldDuration <= 0 {
		return
	}
	t := time.NewTimer(l.cfg.YieldDuration)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (l *Loop) finish(ctx context.Context) error {
	now := l.now()
	snap := NewSnapshot(l.state.Counter, now.Sub(l.state.StartTime))
	// The summary goes to the log stream only; the scrollback is left as is.
	line := fmt.Sprintf("[%s] Process Stopped | Duration: %.2fs | Hashes: %d",
		now.Format(clockLayout), snap.ElapsedSeconds, snap.TotalCount)
	return l.emit(context.WithoutCancel(ctx), Event{Kind: EventStopped, At: now, Snapshot: snap, Line: line})
}

func (l *Loop) emit(ctx context.Context, e Event) error {
	e.RunID = l.runID
	e.Lines = l.state.Lines.Lines()
	if l.state.Counter > 0 {
		e.Digest = hex.EncodeToString(l.digest[:])
	}
	if err := l.reporter.Send(ctx, e); err != nil {
		return fmt.Errorf("report %s event: %w", e.Kind, err)
	}
	return nil
}

type nopReporter struct{}

func (nopReporter) Send(context.Context, Event) error { return nil }
