package mining

import "time"

// Snapshot is the derived progress triple computed at report time.
type Snapshot struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	TotalCount     uint64  `json:"total_count"`
	Rate           float64 `json:"rate"`
}

// NewSnapshot derives the rate from a count and elapsed time. Rate is zero
// when no time has elapsed.
func NewSnapshot(total uint64, elapsed time.Duration) Snapshot {
	secs := elapsed.Seconds()
	rate := 0.0
	if secs > 0 {
		rate = float64(total) / secs
	}
	return Snapshot{ElapsedSeconds: secs, TotalCount: total, Rate: rate}
}

// LogRing keeps the most recent lines, oldest first. It is not safe for
// concurrent use; a ring belongs to whichever loop is currently running.
type LogRing struct {
	max   int
	lines []string
}

// NewLogRing creates a ring bounded to max lines (at least one).
func NewLogRing(max int) *LogRing {
	if max < 1 {
		max = 1
	}
	return &LogRing{max: max, lines: make([]string, 0, max)}
}

// Append adds a line, evicting the oldest entries past the bound.
func (r *LogRing) Append(line string) {
	r.lines = append(r.lines, line)
	if over := len(r.lines) - r.max; over > 0 {
		r.lines = append(r.lines[:0], r.lines[over:]...)
	}
}

// Lines returns a copy of the buffered lines, oldest first.
func (r *LogRing) Lines() []string {
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

func (r *LogRing) Len() int { return len(r.lines) }

func (r *LogRing) Cap() int { return r.max }

// State is the run state owned by a single Loop.
type State struct {
	Counter        uint64
	StartTime      time.Time
	LastReportTime time.Time
	Lines          *LogRing
}
