package client

import "time"

// Snapshot is the progress triple computed at the last report.
type Snapshot struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	TotalCount     uint64  `json:"total_count"`
	Rate           float64 `json:"rate"`
}

// Status represents the miner status returned by the daemon
type Status struct {
	State      string    `json:"state"`
	Running    bool      `json:"running"`
	RunID      string    `json:"run_id,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	Algorithm  string    `json:"algorithm"`
	Difficulty int       `json:"difficulty"`
	Snapshot   Snapshot  `json:"snapshot"`
	Lines      []string  `json:"lines"`
	Runs       uint64    `json:"runs"`
	LastError  string    `json:"last_error,omitempty"`
}

// LogsResponse holds the scrollback, newest last
type LogsResponse struct {
	Lines []string `json:"lines"`
}

// DifficultyRequest sets the difficulty
type DifficultyRequest struct {
	Difficulty int `json:"difficulty"`
}

// DifficultyResponse reports the difficulty and its bounds
type DifficultyResponse struct {
	Difficulty int `json:"difficulty"`
	Min        int `json:"min"`
	Max        int `json:"max"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
