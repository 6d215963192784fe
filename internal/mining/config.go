package mining

import (
	"errors"
	"fmt"
	"time"

	"github.com/loykin/minesim/internal/hashing"
)

// Defaults for the work/report loop.
const (
	DefaultBatchSize      = 5000
	DefaultReportInterval = 500 * time.Millisecond
	DefaultYieldDuration  = 10 * time.Millisecond
	DefaultMaxLogLines    = 10
	DefaultKeyPrefix      = "block_"
)

// ErrInvalidConfig wraps every validation failure returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid miner config")

// Config controls a single run of the work/report loop.
type Config struct {
	Algorithm      string        `json:"algorithm"`
	BatchSize      int           `json:"batch_size"`
	ReportInterval time.Duration `json:"report_interval"`
	YieldDuration  time.Duration `json:"yield_duration"`
	MaxLogLines    int           `json:"log_lines"`
	KeyPrefix      string        `json:"key_prefix"`
}

// DefaultConfig returns the stock loop settings.
func DefaultConfig() Config {
	return Config{
		Algorithm:      hashing.Default,
		BatchSize:      DefaultBatchSize,
		ReportInterval: DefaultReportInterval,
		YieldDuration:  DefaultYieldDuration,
		MaxLogLines:    DefaultMaxLogLines,
		KeyPrefix:      DefaultKeyPrefix,
	}
}

// Validate checks the config and resolves the hash algorithm so that a
// missing primitive is reported before any run starts.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be > 0, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("%w: report_interval must be > 0, got %s", ErrInvalidConfig, c.ReportInterval)
	}
	if c.YieldDuration < 0 {
		return fmt.Errorf("%w: yield_duration must be >= 0, got %s", ErrInvalidConfig, c.YieldDuration)
	}
	if c.MaxLogLines < 1 {
		return fmt.Errorf("%w: log_lines must be >= 1, got %d", ErrInvalidConfig, c.MaxLogLines)
	}
	if _, err := hashing.Lookup(c.Algorithm); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
