package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/minesim/internal/hashing"
	"github.com/loykin/minesim/internal/manager"
	"github.com/loykin/minesim/internal/mining"
)

func writeTOML(t *testing.T, data string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "minesim.toml")
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	return file
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m := cfg.Miner
	if m.Algorithm != "sha256" || m.BatchSize != 5000 || m.ReportInterval != 500*time.Millisecond ||
		m.YieldDuration != 10*time.Millisecond || m.LogLines != 10 || m.KeyPrefix != "block_" {
		t.Fatalf("unexpected miner defaults: %+v", m)
	}
	if m.Difficulty != manager.DefaultDifficulty || m.AutoStart {
		t.Fatalf("unexpected difficulty/auto_start: %+v", m)
	}
	if cfg.Server.Listen != ":8080" || cfg.Server.BasePath != "/api" || !cfg.Server.Dashboard {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Listen != "" {
		t.Fatalf("unexpected metrics defaults: %+v", cfg.Metrics)
	}
}

func TestLoadConfig_Full(t *testing.T) {
	file := writeTOML(t, `
[miner]
algorithm = "blake3"
batch_size = 1000
report_interval = "250ms"
yield_duration = "0s"
log_lines = 20
key_prefix = "blk-"
difficulty = 5
auto_start = true

[server]
listen = "127.0.0.1:9090"
base_path = "/miner"
dashboard = false

[log]
level = "debug"
format = "json"
  [log.file]
  path = "/tmp/minesim.log"
  max_size_mb = 5
  [log.lines]
  path = "/tmp/lines.log"
  compress = true

[metrics]
enabled = false
listen = ":9100"
`)
	cfg, err := LoadConfig(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := mining.Config{
		Algorithm:      "blake3",
		BatchSize:      1000,
		ReportInterval: 250 * time.Millisecond,
		YieldDuration:  0,
		MaxLogLines:    20,
		KeyPrefix:      "blk-",
	}
	if got := cfg.Miner.Mining(); got != want {
		t.Fatalf("mining config = %+v, want %+v", got, want)
	}
	if cfg.Miner.Difficulty != 5 || !cfg.Miner.AutoStart {
		t.Fatalf("unexpected miner: %+v", cfg.Miner)
	}
	if cfg.Server.Listen != "127.0.0.1:9090" || cfg.Server.BasePath != "/miner" || cfg.Server.Dashboard {
		t.Fatalf("unexpected server: %+v", cfg.Server)
	}
	lc := cfg.Log.Logger()
	if lc.Level != "debug" || lc.Format != "json" || lc.File.Path != "/tmp/minesim.log" || lc.File.MaxSizeMB != 5 {
		t.Fatalf("unexpected log config: %+v", lc)
	}
	if lc.Lines.Path != "/tmp/lines.log" || !lc.Lines.Compress {
		t.Fatalf("unexpected lines config: %+v", lc.Lines)
	}
	if cfg.Metrics.Enabled || cfg.Metrics.Listen != ":9100" {
		t.Fatalf("unexpected metrics: %+v", cfg.Metrics)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	file := writeTOML(t, `
[miner]
batch_size = 1000
`)
	t.Setenv("MINESIM_MINER_BATCH_SIZE", "2500")
	t.Setenv("MINESIM_MINER_REPORT_INTERVAL", "1s")
	t.Setenv("MINESIM_LOG_LINES_PATH", "/var/log/minesim/lines.log")
	t.Setenv("MINESIM_SERVER_DASHBOARD", "false")

	cfg, err := LoadConfig(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Miner.BatchSize != 2500 {
		t.Fatalf("env should override file: batch_size=%d", cfg.Miner.BatchSize)
	}
	if cfg.Miner.ReportInterval != time.Second {
		t.Fatalf("report_interval=%s", cfg.Miner.ReportInterval)
	}
	if cfg.Log.Lines.Path != "/var/log/minesim/lines.log" {
		t.Fatalf("lines path=%q", cfg.Log.Lines.Path)
	}
	if cfg.Server.Dashboard {
		t.Fatalf("dashboard should be disabled by env")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadConfig(writeTOML(t, "[miner\nbatch_size = ")); err == nil {
		t.Fatalf("expected error for malformed toml")
	}

	cases := []struct {
		name string
		toml string
		is   error
	}{
		{"unknown algorithm", "[miner]\nalgorithm = \"md5\"", hashing.ErrUnknownAlgorithm},
		{"zero batch", "[miner]\nbatch_size = 0", mining.ErrInvalidConfig},
		{"negative yield", "[miner]\nyield_duration = \"-1s\"", mining.ErrInvalidConfig},
		{"no log lines", "[miner]\nlog_lines = 0", mining.ErrInvalidConfig},
		{"difficulty high", "[miner]\ndifficulty = 6", manager.ErrInvalidDifficulty},
		{"difficulty low", "[miner]\ndifficulty = 0", manager.ErrInvalidDifficulty},
		{"bad level", "[log]\nlevel = \"loud\"", nil},
		{"bad format", "[log]\nformat = \"xml\"", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeTOML(t, tc.toml))
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("error %v is not %v", err, tc.is)
			}
		})
	}
}
