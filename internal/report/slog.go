package report

import (
	"context"
	"log/slog"

	"github.com/loykin/minesim/internal/mining"
)

// SlogSink records events as structured log entries.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(l *slog.Logger) *SlogSink {
	if l == nil {
		l = slog.Default()
	}
	return &SlogSink{logger: l}
}

func (s *SlogSink) Name() string { return "slog" }

func (s *SlogSink) Send(ctx context.Context, e mining.Event) error {
	switch e.Kind {
	case mining.EventStarted:
		s.logger.InfoContext(ctx, "Mining run started", "run", e.RunID)
	case mining.EventAlive:
		s.logger.DebugContext(ctx, "Mining progress",
			"run", e.RunID,
			"hashes", e.Snapshot.TotalCount,
			"elapsed", e.Snapshot.ElapsedSeconds,
			"rate", e.Snapshot.Rate)
	case mining.EventStopped:
		s.logger.InfoContext(ctx, "Mining run stopped",
			"run", e.RunID,
			"hashes", e.Snapshot.TotalCount,
			"duration", e.Snapshot.ElapsedSeconds)
	}
	return nil
}
