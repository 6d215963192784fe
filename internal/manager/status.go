package manager

import (
	"time"

	"github.com/loykin/minesim/internal/mining"
)

type runState int32

const (
	StateStopped runState = iota
	StateRunning
)

func (s runState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Status is the externally visible state of the miner. RunID and Snapshot
// describe the current run, or the last one when stopped.
type Status struct {
	State      string          `json:"state"`
	Running    bool            `json:"running"`
	RunID      string          `json:"run_id,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	Algorithm  string          `json:"algorithm"`
	Difficulty int             `json:"difficulty"`
	Snapshot   mining.Snapshot `json:"snapshot"`
	Lines      []string        `json:"lines"`
	Runs       uint64          `json:"runs"`
	LastError  string          `json:"last_error,omitempty"`
}
