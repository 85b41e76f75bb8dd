// Package config provides configuration management for the doclens CLI and
// server. It supports loading and saving a JSON file with defaults and
// environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"doclens/internal/processor"
)

// Environment overrides, applied after the file is read.
const (
	EnvPort     = "DOCLENS_PORT"
	EnvCacheDB  = "DOCLENS_CACHE_DB"
	EnvLogLevel = "DOCLENS_LOG_LEVEL"
)

// Config holds all system configuration.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Processing ProcessingConfig `json:"processing"`
	Cache      CacheConfig      `json:"cache"`
	Log        LogConfig        `json:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        int `json:"port"`
	MaxUploadMB int `json:"max_upload_mb"`
}

// ProcessingConfig tunes the document pipeline.
type ProcessingConfig struct {
	MaxConcurrency  int     `json:"max_concurrency"`
	PageConcurrency int     `json:"page_concurrency"`
	MaxFileSizeMB   int     `json:"max_file_size_mb"`
	PDFPageCap      int     `json:"pdf_page_cap"`
	PDFRenderScale  float64 `json:"pdf_render_scale"`
	RenderSlides    bool    `json:"render_slides"`
}

// CacheConfig holds result cache configuration.
type CacheConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"db_path"`
}

// LogConfig holds logger configuration. ErrorDir, when set, receives a
// rotated copy of every ERROR entry.
type LogConfig struct {
	Level          string `json:"level"`
	ErrorDir       string `json:"error_dir,omitempty"`
	ErrorMaxSizeMB int    `json:"error_max_size_mb,omitempty"`
}

// ConfigManager manages loading and saving configuration.
type ConfigManager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewConfigManager creates a new ConfigManager for the given config file path.
func NewConfigManager(configPath string) *ConfigManager {
	return &ConfigManager{configPath: configPath}
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			MaxUploadMB: 50,
		},
		Processing: ProcessingConfig{
			MaxConcurrency:  4,
			PageConcurrency: 4,
			MaxFileSizeMB:   100,
			PDFPageCap:      processor.DefaultPDFPageCap,
			PDFRenderScale:  processor.DefaultPDFRenderScale,
		},
		Cache: CacheConfig{
			DBPath: "./data/doclens.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file from disk.
// If the file does not exist, it initializes with default values and saves.
func (cm *ConfigManager) Load() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read config file: %w", err)
		}
		cm.config = DefaultConfig()
		if err := cm.saveLocked(); err != nil {
			return err
		}
		return applyEnv(cm.config)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	applyDefaults(&cfg)
	if err := applyEnv(&cfg); err != nil {
		return err
	}
	cm.config = &cfg
	return nil
}

// Save writes the current config to disk.
func (cm *ConfigManager) Save() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.saveLocked()
}

// saveLocked writes config to disk. Caller must hold at least a read lock.
func (cm *ConfigManager) saveLocked() error {
	if cm.config == nil {
		return errors.New("no config loaded")
	}
	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(cm.configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(cm.configPath, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.config == nil {
		return nil
	}
	c := *cm.config
	return &c
}

// ProcessorConfig converts the processing section for processor.New.
func (c *Config) ProcessorConfig() processor.Config {
	return processor.Config{
		MaxConcurrency:  c.Processing.MaxConcurrency,
		PageConcurrency: c.Processing.PageConcurrency,
		MaxFileSize:     int64(c.Processing.MaxFileSizeMB) << 20,
		PDFPageCap:      c.Processing.PDFPageCap,
		PDFRenderScale:  c.Processing.PDFRenderScale,
		RenderSlides:    c.Processing.RenderSlides,
	}
}

// applyDefaults fills in zero-value fields with defaults.
func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = defaults.Server.MaxUploadMB
	}
	if cfg.Processing.MaxConcurrency == 0 {
		cfg.Processing.MaxConcurrency = defaults.Processing.MaxConcurrency
	}
	if cfg.Processing.PageConcurrency == 0 {
		cfg.Processing.PageConcurrency = defaults.Processing.PageConcurrency
	}
	if cfg.Processing.MaxFileSizeMB == 0 {
		cfg.Processing.MaxFileSizeMB = defaults.Processing.MaxFileSizeMB
	}
	if cfg.Processing.PDFPageCap == 0 {
		cfg.Processing.PDFPageCap = defaults.Processing.PDFPageCap
	}
	if cfg.Processing.PDFRenderScale == 0 {
		cfg.Processing.PDFRenderScale = defaults.Processing.PDFRenderScale
	}
	if cfg.Cache.DBPath == "" {
		cfg.Cache.DBPath = defaults.Cache.DBPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("%s: port must be between 1 and 65535, got %q", EnvPort, v)
		}
		cfg.Server.Port = port
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheDB)); v != "" {
		cfg.Cache.DBPath = v
		cfg.Cache.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	return nil
}
