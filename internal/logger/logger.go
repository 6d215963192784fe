package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default logging configuration constants
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// FileConfig describes a rotating file destination.
// Rotation parameters follow lumberjack semantics.
type FileConfig struct {
	Path       string // empty disables the destination
	MaxSizeMB  int    // megabytes before rotation (default 10)
	MaxBackups int    // number of backups to keep (default 3)
	MaxAgeDays int    // days to keep (default 7)
	Compress   bool   // Gzip rotated files
}

// Config describes where structured logs and the progress line stream go.
// Structured logs always go to stderr; File adds a rotating copy. Lines
// adds a rotating copy of the progress lines printed by the CLI.
type Config struct {
	Level  string // debug, info, warn, error (default info)
	Format string // text or json (default text)
	Color  bool   // ANSI level colors for the text format
	File   FileConfig
	Lines  FileConfig
}

// LinesWriter returns a rotating writer for the progress line mirror, or nil
// when Lines.Path is unset. The structured log file is owned by New.
func (c Config) LinesWriter() io.WriteCloser {
	return c.Lines.writer()
}

func (f FileConfig) writer() io.WriteCloser {
	if f.Path == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   f.Path,
		MaxSize:    valOr(f.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(f.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(f.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   f.Compress,
	}
}

// Probe verifies that every configured file can be created and appended to.
// lumberjack opens files lazily, so without this a bad path would only
// surface on the first report.
func (c Config) Probe() error {
	for _, f := range []FileConfig{c.File, c.Lines} {
		if f.Path == "" {
			continue
		}
		clean := filepath.Clean(f.Path)
		if err := os.MkdirAll(filepath.Dir(clean), 0o750); err != nil {
			return fmt.Errorf("create log dir for %s: %w", clean, err)
		}
		fh, err := os.OpenFile(clean, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", clean, err)
		}
		_ = fh.Close()
	}
	return nil
}

// ParseLevel maps a level name to slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds a slog.Logger writing to stderr and, if configured, to the
// rotating log file. The returned closer releases the file.
func New(c Config, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, nil, err
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	fileW := c.File.writer()
	var closer io.Closer = nopCloser{}
	w := stderr
	if fileW != nil {
		w = io.MultiWriter(stderr, fileW)
		closer = fileW
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(c.Format) {
	case "", "text":
		if c.Color {
			h = NewColorTextHandler(w, opts, true)
		} else {
			h = slog.NewTextHandler(w, opts)
		}
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", c.Format)
	}
	return slog.New(h), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
