package report

import (
	"context"
	"sync"
	"time"

	"github.com/loykin/minesim/internal/metrics"
	"github.com/loykin/minesim/internal/mining"
)

// MetricsSink converts events into Prometheus samples. Hash totals are
// counted as deltas between consecutive events of the same run.
type MetricsSink struct {
	mu        sync.Mutex
	runID     string
	lastCount uint64
	lastAt    time.Time
}

func NewMetricsSink() *MetricsSink { return &MetricsSink{} }

func (s *MetricsSink) Name() string { return "metrics" }

func (s *MetricsSink) Send(_ context.Context, e mining.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Kind == mining.EventStarted || e.RunID != s.runID {
		s.runID = e.RunID
		s.lastCount = 0
		s.lastAt = e.At
	}
	if e.Snapshot.TotalCount > s.lastCount {
		metrics.AddHashes(e.Snapshot.TotalCount - s.lastCount)
		s.lastCount = e.Snapshot.TotalCount
	}
	if e.Kind == mining.EventAlive {
		metrics.ObserveReport(e.Snapshot.Rate, e.Snapshot.ElapsedSeconds)
		if !s.lastAt.IsZero() {
			metrics.ObserveReportSpacing(e.At.Sub(s.lastAt).Seconds())
		}
		s.lastAt = e.At
	}
	return nil
}
