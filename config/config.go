// Package config provides configuration parsing for cloud-optimizer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppName names the per-user config, cache and log directories.
const AppName = "cloud-optimizer"

// Config represents the cloud-optimizer configuration.
type Config struct {
	// Monitor holds metrics sampling settings.
	Monitor MonitorConfig `yaml:"monitor"`

	// Startup holds startup inventory settings.
	Startup StartupConfig `yaml:"startup"`

	// Tweaks holds the targets of the tweak catalog.
	Tweaks TweaksConfig `yaml:"tweaks"`

	// Display holds TUI rendering settings.
	Display DisplayConfig `yaml:"display"`

	// Log holds log output settings.
	Log LogConfig `yaml:"log"`

	// Cache holds persisted state settings.
	Cache CacheConfig `yaml:"cache"`
}

// MonitorConfig holds metrics sampling settings.
type MonitorConfig struct {
	// PollInterval is a duration string (e.g. "2s") between samples.
	PollInterval string `yaml:"poll_interval"`
	// CPUWindow is the duration string each CPU measurement blocks for.
	CPUWindow string `yaml:"cpu_window"`
	// GPUTool is the GPU utilization tool looked up on PATH; empty disables GPU.
	GPUTool string `yaml:"gpu_tool"`
	// HistorySize is the number of samples kept for sparklines.
	HistorySize int `yaml:"history_size"`
}

// StartupConfig holds startup inventory settings.
type StartupConfig struct {
	// SideStoreDir receives files disabled from the Startup folders.
	SideStoreDir string `yaml:"side_store_dir"`
	// DisabledSubkey is created under each Run key for disabled values.
	DisabledSubkey string `yaml:"disabled_subkey"`
	// Extensions are the Startup folder file types listed as entries.
	Extensions []string `yaml:"extensions"`
	// RefreshInterval is a duration string between inventory refreshes in the TUI.
	RefreshInterval string `yaml:"refresh_interval"`
}

// TweaksConfig holds the targets of the tweak catalog.
type TweaksConfig struct {
	// TempFolders are emptied by clean-temp. $VARS are expanded.
	TempFolders []string `yaml:"temp_folders"`
	// Services are stopped and disabled by the services tweak.
	Services []string `yaml:"services"`
	// BundledApps are removed from startup by bundled-apps.
	BundledApps []string `yaml:"bundled_apps"`
}

// DisplayConfig holds TUI rendering settings.
type DisplayConfig struct {
	// Theme selects the display theme: "minimal", "full", or "monitoring".
	Theme string `yaml:"theme"`
	// Mouse enables clickable tabs and rows.
	Mouse bool `yaml:"mouse"`
}

// LogConfig holds log output settings.
type LogConfig struct {
	// File is the log path; empty logs to stderr (discarded while the TUI runs).
	File string `yaml:"file"`
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
}

// CacheConfig holds persisted state settings.
type CacheConfig struct {
	// Dir is the directory for metrics history and the tweak log.
	Dir string `yaml:"dir"`
}

// DefaultPath returns the default config file location, typically
// %APPDATA%\cloud-optimizer\config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, "config.yaml")
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	cacheDir := ""
	if base, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(base, AppName)
	}

	return &Config{
		Monitor: MonitorConfig{
			PollInterval: "2s",
			CPUWindow:    "300ms",
			GPUTool:      "nvidia-smi",
			HistorySize:  60,
		},
		Startup: StartupConfig{
			SideStoreDir:    `C:\CloudOptimizerDisabled`,
			DisabledSubkey:  "DisabledByCloudOptimizer",
			Extensions:      []string{".lnk", ".exe", ".bat", ".cmd", ".vbs", ".ps1", ".ini"},
			RefreshInterval: "30s",
		},
		Tweaks: TweaksConfig{
			TempFolders: []string{"$TEMP", "$TMP", `C:\Windows\Temp`, `C:\Windows\Prefetch`, `C:\Windows\Logs`},
			Services:    []string{"DiagTrack", "dmwappushservice", "SysMain", "WSearch"},
			BundledApps: []string{"OneDrive", "Skype", "Teams", "Spotify"},
		},
		Display: DisplayConfig{
			Theme: "monitoring",
			Mouse: true,
		},
		Log: LogConfig{
			File:  filepath.Join(cacheDir, AppName+".log"),
			Level: "info",
		},
		Cache: CacheConfig{
			Dir: cacheDir,
		},
	}
}

// LoadConfig loads configuration from a YAML file, merging with defaults.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return config, nil
}

// Validate checks the configuration for required fields and logical consistency.
func (c *Config) Validate() error {
	// Monitor validation
	if _, err := positiveDuration("monitor.poll_interval", c.Monitor.PollInterval); err != nil {
		return err
	}
	if _, err := positiveDuration("monitor.cpu_window", c.Monitor.CPUWindow); err != nil {
		return err
	}
	if c.Monitor.HistorySize < 1 || c.Monitor.HistorySize > 3600 {
		return fmt.Errorf("monitor.history_size must be between 1 and 3600, got %d", c.Monitor.HistorySize)
	}

	// Startup validation
	if c.Startup.SideStoreDir == "" {
		return fmt.Errorf("startup.side_store_dir is required")
	}
	if c.Startup.DisabledSubkey == "" || strings.ContainsAny(c.Startup.DisabledSubkey, `\/`) {
		return fmt.Errorf("startup.disabled_subkey must be a single key name, got %q", c.Startup.DisabledSubkey)
	}
	if len(c.Startup.Extensions) == 0 {
		return fmt.Errorf("startup.extensions must list at least one extension")
	}
	for i, ext := range c.Startup.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("startup.extensions[%d] must look like \".lnk\", got %q", i, ext)
		}
	}
	if _, err := positiveDuration("startup.refresh_interval", c.Startup.RefreshInterval); err != nil {
		return err
	}

	// Display validation
	validThemes := map[string]bool{"minimal": true, "full": true, "monitoring": true}
	if !validThemes[c.Display.Theme] {
		return fmt.Errorf("display.theme must be 'minimal', 'full', or 'monitoring', got %q", c.Display.Theme)
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	return nil
}

// PollInterval returns monitor.poll_interval, or 0 if it does not parse.
func (c *Config) PollInterval() time.Duration {
	d, _ := time.ParseDuration(c.Monitor.PollInterval)
	return d
}

// CPUWindow returns monitor.cpu_window, or 0 if it does not parse.
func (c *Config) CPUWindow() time.Duration {
	d, _ := time.ParseDuration(c.Monitor.CPUWindow)
	return d
}

// RefreshInterval returns startup.refresh_interval, or 0 if it does not parse.
func (c *Config) RefreshInterval() time.Duration {
	d, _ := time.ParseDuration(c.Startup.RefreshInterval)
	return d
}

func positiveDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return d, nil
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
