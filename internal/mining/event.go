package mining

import (
	"context"
	"time"
)

// EventKind identifies what a loop is reporting.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventAlive   EventKind = "alive"
	EventStopped EventKind = "stopped"
)

// Event is emitted by the loop at start, at every report and on stop.
// Lines is a copy of the scrollback at emission time, newest last.
type Event struct {
	Kind     EventKind `json:"kind"`
	RunID    string    `json:"run_id"`
	At       time.Time `json:"at"`
	Snapshot Snapshot  `json:"snapshot"`
	Line     string    `json:"line,omitempty"`
	Lines    []string  `json:"lines"`
	Digest   string    `json:"digest,omitempty"`
}

// Reporter receives loop events. A non-nil error stops the run.
type Reporter interface {
	Send(ctx context.Context, e Event) error
}
