package main

import "time"

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

// APIFlags selects the remote daemon for control commands.
type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// ServeFlags Flag structs to decouple cobra from logic for testing.
type ServeFlags struct {
	ConfigPath string
	Listen     string
	// For tests we can set NonBlocking to return right after startup
	NonBlocking bool
}

// RunFlags override the [miner] section for a foreground run.
type RunFlags struct {
	ConfigPath     string
	Algorithm      string
	BatchSize      int
	ReportInterval time.Duration
	YieldDuration  time.Duration
	Difficulty     int
	Duration       time.Duration
}

type StopFlags struct {
	APIFlags
	Wait time.Duration
}

type DifficultyFlags struct {
	APIFlags
	Value int
}

type MCPFlags struct {
	ConfigPath string
	AutoStart  bool
}
