package report

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/loykin/minesim/internal/metrics"
	"github.com/loykin/minesim/internal/mining"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alive(run string, count uint64, line string, at time.Time) mining.Event {
	return mining.Event{
		Kind:     mining.EventAlive,
		RunID:    run,
		At:       at,
		Snapshot: mining.NewSnapshot(count, time.Second),
		Line:     line,
		Lines:    []string{line},
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestLineSinkWritesAndFlushes(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	s := NewLineSink("terminal", bw)

	require.NoError(t, s.Send(context.Background(), alive("r", 1, "[00:00:01] ALIVE | Time: 1.0s | Hashes: 1", time.Now())))
	require.NoError(t, s.Send(context.Background(), mining.Event{Kind: mining.EventAlive}))

	assert.Equal(t, "[00:00:01] ALIVE | Time: 1.0s | Hashes: 1\n", buf.String(), "line must be flushed immediately")
}

func TestMultiStopsAtFirstFailure(t *testing.T) {
	var calls []string
	first := SinkFunc(func(context.Context, mining.Event) error {
		calls = append(calls, "first")
		return nil
	})
	third := SinkFunc(func(context.Context, mining.Event) error {
		calls = append(calls, "third")
		return nil
	})
	m := Multi(first, nil, NewLineSink("log-file", failingWriter{}), third)

	err := m.Send(context.Background(), alive("r", 1, "x", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink log-file")
	assert.Equal(t, []string{"first"}, calls)
}

func TestMultiUnnamedSinkIndex(t *testing.T) {
	boom := errors.New("boom")
	m := Multi(SinkFunc(func(context.Context, mining.Event) error { return boom }))
	err := m.Send(context.Background(), mining.Event{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sink #0")
}

func TestBoardLatestAndSubscribe(t *testing.T) {
	b := NewBoard()
	_, ok := b.Latest()
	assert.False(t, ok)
	assert.Empty(t, b.Lines())

	ch, cancel := b.Subscribe()
	assert.Equal(t, 1, b.Subscribers())

	e := alive("run-a", 5000, "line-1", time.Now())
	require.NoError(t, b.Send(context.Background(), e))

	got, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(5000), got.Snapshot.TotalCount)
	assert.Equal(t, []string{"line-1"}, b.Lines())

	select {
	case ev := <-ch:
		assert.Equal(t, "run-a", ev.RunID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}

func TestBoardSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBoard()
	_, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			_ = b.Send(context.Background(), alive("r", uint64(i), "l", time.Now()))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("board blocked on a slow subscriber")
	}
}

func TestBoardCopiesLines(t *testing.T) {
	b := NewBoard()
	lines := []string{"a", "b"}
	require.NoError(t, b.Send(context.Background(), mining.Event{Lines: lines}))
	lines[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, b.Lines())
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewSlogSink(l)
	ctx := context.Background()

	require.NoError(t, s.Send(ctx, mining.Event{Kind: mining.EventStarted, RunID: "r1"}))
	require.NoError(t, s.Send(ctx, alive("r1", 10, "x", time.Now())))
	require.NoError(t, s.Send(ctx, mining.Event{Kind: mining.EventStopped, RunID: "r1"}))

	out := buf.String()
	assert.Contains(t, out, "Mining run started")
	assert.Contains(t, out, "hashes=10")
	assert.Contains(t, out, "Mining run stopped")
}

func TestMetricsSinkCountsDeltas(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	s := NewMetricsSink()
	ctx := context.Background()
	t0 := time.Now()
	require.NoError(t, s.Send(ctx, mining.Event{Kind: mining.EventStarted, RunID: "r1", At: t0}))
	require.NoError(t, s.Send(ctx, alive("r1", 5000, "a", t0.Add(500*time.Millisecond))))
	require.NoError(t, s.Send(ctx, alive("r1", 12000, "b", t0.Add(time.Second))))
	require.NoError(t, s.Send(ctx, mining.Event{Kind: mining.EventStarted, RunID: "r2", At: t0}))
	require.NoError(t, s.Send(ctx, alive("r2", 3000, "c", t0.Add(time.Second))))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range mfs {
		m := mf.GetMetric()[0]
		switch mf.GetName() {
		case "minesim_miner_hashes_total":
			values["hashes"] = m.GetCounter().GetValue()
		case "minesim_miner_reports_total":
			values["reports"] = m.GetCounter().GetValue()
		case "minesim_miner_report_spacing_seconds":
			values["spacings"] = float64(m.GetHistogram().GetSampleCount())
		}
	}
	assert.Equal(t, 15000.0, values["hashes"])
	assert.Equal(t, 3.0, values["reports"])
	assert.Equal(t, 3.0, values["spacings"])
}
