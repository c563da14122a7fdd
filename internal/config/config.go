// Package config provides configuration loading and structs for the
// linesight server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Replay     ReplayConfig     `yaml:"replay"`
	Query      QueryConfig      `yaml:"query"`
	Sensor     SensorConfig     `yaml:"sensor"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and the vector index snapshot.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// EmbeddingConfig holds settings for the hosted embedding endpoint.
type EmbeddingConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheSize      int    `yaml:"cache_size"`
	// Mock swaps the hosted endpoint for a deterministic local embedder.
	Mock bool `yaml:"mock"`
}

// Timeout returns the request timeout as a duration.
func (c *EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CompletionConfig holds settings for the hosted completion endpoint.
type CompletionConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Mock           bool    `yaml:"mock"`
}

// Timeout returns the request timeout as a duration.
func (c *CompletionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ReplayConfig holds escalation thresholds and replay pacing.
type ReplayConfig struct {
	// SpeedMultiplier compresses inter-sample gaps during paced replay.
	// Zero disables pacing.
	SpeedMultiplier       float64 `yaml:"speed_multiplier"`
	EscalateRatePct       float64 `yaml:"escalate_rate_pct"`
	RecoverRatePct        float64 `yaml:"recover_rate_pct"`
	RateWindowMinutes     int     `yaml:"rate_window_minutes"`
	TierDwellMinutes      int     `yaml:"tier_dwell_minutes"`
	RecoveryWindowMinutes int     `yaml:"recovery_window_minutes"`
}

// QueryConfig holds question-answering defaults.
type QueryConfig struct {
	TopK             int     `yaml:"top_k"`
	WindowHours      float64 `yaml:"window_hours"`
	MinUniqueSources int     `yaml:"min_unique_sources"`
}

// SensorConfig holds the plant's nominal operating limits. Warning limits
// alert operators; critical limits may warrant a slow-down or line stop.
type SensorConfig struct {
	TempWarningC          float64 `yaml:"temp_warning_c"`
	TempCriticalC         float64 `yaml:"temp_critical_c"`
	PressureWarningBar    float64 `yaml:"pressure_warning_bar"`
	PressureCriticalBar   float64 `yaml:"pressure_critical_bar"`
	NominalLineSpeedMPM   float64 `yaml:"nominal_line_speed_mpm"`
	NominalPressureBar    float64 `yaml:"nominal_pressure_bar"`
	NominalCoolantFlowPct float64 `yaml:"nominal_coolant_flow_pct"`
	BaselineDefectRatePct float64 `yaml:"baseline_defect_rate_pct"`
}

// WatchConfig holds telemetry drop-directory watch settings.
type WatchConfig struct {
	Directory string `yaml:"directory"`
}

// Load reads and parses the config file at path, expands paths, and
// applies defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	if cfg.Watch.Directory != "" {
		cfg.Watch.Directory = expandPath(cfg.Watch.Directory, configDir)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file is given.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
