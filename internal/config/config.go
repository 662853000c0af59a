package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the control-loop deployment configuration. Fields are pointers
// so a partial JSON file only overrides what it names; the Get* accessors
// supply defaults for everything else.
type Config struct {
	// Transport
	StatsListenAddr *string `json:"stats_listen_addr,omitempty"` // UDP address statistics frames arrive on
	HTTPListenAddr  *string `json:"http_listen_addr,omitempty"`  // monitor HTTP server address
	StatsRcvBuf     *int    `json:"stats_rcvbuf,omitempty"`      // UDP receive buffer in bytes
	LogInterval     *string `json:"log_interval,omitempty"`      // periodic stats log cadence, duration string

	// Calibration resources (any may be absent, bring-up degrades)
	TuningBlobPath *string `json:"tuning_blob_path,omitempty"`
	NVMBlobPath    *string `json:"nvm_blob_path,omitempty"`
	AIQDBlobPath   *string `json:"aiqd_blob_path,omitempty"`

	// Control loop
	PipelineDepth *int `json:"pipeline_depth,omitempty"` // frames between statistics and their parameters taking effect

	// Recording
	DBPath *string `json:"db_path,omitempty"` // decision store path, empty string disables recording
}

// Load reads a Config from a JSON file. Fields omitted from the file keep
// their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Bound the read for safety.
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges for every field that is set.
func (c *Config) Validate() error {
	if c.PipelineDepth != nil {
		if *c.PipelineDepth < 1 || *c.PipelineDepth > 16 {
			return fmt.Errorf("pipeline_depth must be between 1 and 16, got %d", *c.PipelineDepth)
		}
	}
	if c.StatsRcvBuf != nil && *c.StatsRcvBuf < 0 {
		return fmt.Errorf("stats_rcvbuf must be non-negative, got %d", *c.StatsRcvBuf)
	}
	if c.LogInterval != nil && *c.LogInterval != "" {
		if _, err := time.ParseDuration(*c.LogInterval); err != nil {
			return fmt.Errorf("invalid log_interval '%s': %w", *c.LogInterval, err)
		}
	}
	return nil
}

// GetStatsListenAddr returns the statistics UDP address or the default.
func (c *Config) GetStatsListenAddr() string {
	if c.StatsListenAddr == nil || *c.StatsListenAddr == "" {
		return ":9020"
	}
	return *c.StatsListenAddr
}

// GetHTTPListenAddr returns the monitor HTTP address or the default.
func (c *Config) GetHTTPListenAddr() string {
	if c.HTTPListenAddr == nil || *c.HTTPListenAddr == "" {
		return ":8080"
	}
	return *c.HTTPListenAddr
}

// GetStatsRcvBuf returns the UDP receive buffer size or the default.
func (c *Config) GetStatsRcvBuf() int {
	if c.StatsRcvBuf == nil || *c.StatsRcvBuf == 0 {
		return 1 << 20
	}
	return *c.StatsRcvBuf
}

// GetLogInterval parses and returns the periodic log cadence.
func (c *Config) GetLogInterval() time.Duration {
	if c.LogInterval == nil || *c.LogInterval == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(*c.LogInterval)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetTuningBlobPath returns the tuning blob path, empty when unset.
func (c *Config) GetTuningBlobPath() string {
	if c.TuningBlobPath == nil {
		return ""
	}
	return *c.TuningBlobPath
}

// GetNVMBlobPath returns the NVM blob path, empty when unset.
func (c *Config) GetNVMBlobPath() string {
	if c.NVMBlobPath == nil {
		return ""
	}
	return *c.NVMBlobPath
}

// GetAIQDBlobPath returns the AIQD blob path, empty when unset.
func (c *Config) GetAIQDBlobPath() string {
	if c.AIQDBlobPath == nil {
		return ""
	}
	return *c.AIQDBlobPath
}

// GetPipelineDepth returns the configured pipeline depth or the default.
// Statistics for frame N produce parameters applied at frame N+depth; the
// default matches the engine's in-flight statistics bound.
func (c *Config) GetPipelineDepth() int {
	if c.PipelineDepth == nil {
		return 4
	}
	return *c.PipelineDepth
}

// GetDBPath returns the decision store path. Empty disables recording.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return "aiq_decisions.db"
	}
	return *c.DBPath
}
