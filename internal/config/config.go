package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/loykin/minesim/internal/logger"
	"github.com/loykin/minesim/internal/manager"
	"github.com/loykin/minesim/internal/mining"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g.
// MINESIM_MINER_BATCH_SIZE or MINESIM_LOG_FILE_PATH.
const EnvPrefix = "MINESIM"

// Config represents the top-level TOML structure.
type Config struct {
	Miner   MinerConfig   `toml:"miner" mapstructure:"miner"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`
	Metrics MetricsConfig `toml:"metrics" mapstructure:"metrics"`
}

type MinerConfig struct {
	Algorithm      string        `toml:"algorithm" mapstructure:"algorithm"`
	BatchSize      int           `toml:"batch_size" mapstructure:"batch_size"`
	ReportInterval time.Duration `toml:"report_interval" mapstructure:"report_interval"`
	YieldDuration  time.Duration `toml:"yield_duration" mapstructure:"yield_duration"`
	LogLines       int           `toml:"log_lines" mapstructure:"log_lines"`
	KeyPrefix      string        `toml:"key_prefix" mapstructure:"key_prefix"`
	Difficulty     int           `toml:"difficulty" mapstructure:"difficulty"`
	AutoStart      bool          `toml:"auto_start" mapstructure:"auto_start"`
}

type ServerConfig struct {
	Listen    string `toml:"listen" mapstructure:"listen"`
	BasePath  string `toml:"base_path" mapstructure:"base_path"`
	Dashboard bool   `toml:"dashboard" mapstructure:"dashboard"`
}

type LogConfig struct {
	Level  string        `toml:"level" mapstructure:"level"`
	Format string        `toml:"format" mapstructure:"format"`
	Color  bool          `toml:"color" mapstructure:"color"`
	File   LogFileConfig `toml:"file" mapstructure:"file"`
	Lines  LogFileConfig `toml:"lines" mapstructure:"lines"`
}

type LogFileConfig struct {
	Path       string `toml:"path" mapstructure:"path"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled" mapstructure:"enabled"`
	// Listen serves /metrics on a separate address; empty mounts it on the
	// main server.
	Listen string `toml:"listen" mapstructure:"listen"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	mc := mining.DefaultConfig()
	return Config{
		Miner: MinerConfig{
			Algorithm:      mc.Algorithm,
			BatchSize:      mc.BatchSize,
			ReportInterval: mc.ReportInterval,
			YieldDuration:  mc.YieldDuration,
			LogLines:       mc.MaxLogLines,
			KeyPrefix:      mc.KeyPrefix,
			Difficulty:     manager.DefaultDifficulty,
		},
		Server: ServerConfig{
			Listen:    ":8080",
			BasePath:  "/api",
			Dashboard: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// LoadConfig reads path (TOML) over the defaults and applies MINESIM_*
// environment overrides. An empty path yields defaults plus environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("miner.algorithm", d.Miner.Algorithm)
	v.SetDefault("miner.batch_size", d.Miner.BatchSize)
	v.SetDefault("miner.report_interval", d.Miner.ReportInterval)
	v.SetDefault("miner.yield_duration", d.Miner.YieldDuration)
	v.SetDefault("miner.log_lines", d.Miner.LogLines)
	v.SetDefault("miner.key_prefix", d.Miner.KeyPrefix)
	v.SetDefault("miner.difficulty", d.Miner.Difficulty)
	v.SetDefault("miner.auto_start", d.Miner.AutoStart)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.base_path", d.Server.BasePath)
	v.SetDefault("server.dashboard", d.Server.Dashboard)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.color", d.Log.Color)
	for _, k := range []string{"file", "lines"} {
		v.SetDefault("log."+k+".path", "")
		v.SetDefault("log."+k+".max_size_mb", 0)
		v.SetDefault("log."+k+".max_backups", 0)
		v.SetDefault("log."+k+".max_age_days", 0)
		v.SetDefault("log."+k+".compress", false)
	}

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := c.Miner.Mining().Validate(); err != nil {
		return err
	}
	if c.Miner.Difficulty < manager.MinDifficulty || c.Miner.Difficulty > manager.MaxDifficulty {
		return fmt.Errorf("%w: %d not in [%d, %d]", manager.ErrInvalidDifficulty,
			c.Miner.Difficulty, manager.MinDifficulty, manager.MaxDifficulty)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Mining converts the miner section to loop settings.
func (c MinerConfig) Mining() mining.Config {
	return mining.Config{
		Algorithm:      c.Algorithm,
		BatchSize:      c.BatchSize,
		ReportInterval: c.ReportInterval,
		YieldDuration:  c.YieldDuration,
		MaxLogLines:    c.LogLines,
		KeyPrefix:      c.KeyPrefix,
	}
}

// Logger converts the log section to logger settings.
func (c LogConfig) Logger() logger.Config {
	return logger.Config{
		Level:  c.Level,
		Format: c.Format,
		Color:  c.Color,
		File:   c.File.fileConfig(),
		Lines:  c.Lines.fileConfig(),
	}
}

func (c LogFileConfig) fileConfig() logger.FileConfig {
	return logger.FileConfig{
		Path:       c.Path,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}
