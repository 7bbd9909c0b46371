package model

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultBaseURL is the backend host used when no config overrides it.
const DefaultBaseURL = "https://webnwellapiv2.otomatika.tech/"

// APIConfig controls the REST client.
type APIConfig struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// PollingConfig controls the task poller and the connection watcher.
type PollingConfig struct {
	// TaskIntervalMs is the fixed delay between task status checks.
	TaskIntervalMs int `mapstructure:"task_interval_ms" yaml:"task_interval_ms"`

	// GoogleCheckSec is how often the Google connection is re-validated.
	GoogleCheckSec int `mapstructure:"google_check_sec" yaml:"google_check_sec"`
}

// OAuthConfig controls the local OAuth callback listener.
type OAuthConfig struct {
	// CallbackPort is the loopback port; 0 disables the listener.
	CallbackPort int `mapstructure:"callback_port" yaml:"callback_port"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme    string `mapstructure:"theme" yaml:"theme"`
	PageSize int    `mapstructure:"page_size" yaml:"page_size"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// CacheConfig locates the local SQLite cache.
type CacheConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Polling PollingConfig `mapstructure:"polling" yaml:"polling"`
	OAuth   OAuthConfig   `mapstructure:"oauth" yaml:"oauth"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
}

// TaskInterval returns the poll delay as a duration.
func (c *AppConfig) TaskInterval() time.Duration {
	if c.Polling.TaskIntervalMs <= 0 {
		return time.Second
	}
	return time.Duration(c.Polling.TaskIntervalMs) * time.Millisecond
}

// GoogleCheckInterval returns the connection re-validation period.
func (c *AppConfig) GoogleCheckInterval() time.Duration {
	if c.Polling.GoogleCheckSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Polling.GoogleCheckSec) * time.Second
}

// Timeout returns the HTTP client timeout.
func (c *AppConfig) Timeout() time.Duration {
	if c.API.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// LogLevel parses Log.Level, falling back to info.
func (c *AppConfig) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigDir returns ~/.config/adsdash.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "adsdash")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/adsdash/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    DefaultBaseURL,
			TimeoutSec: 30,
			MaxRetries: 3,
		},
		Polling: PollingConfig{
			TaskIntervalMs: 1000,
			GoogleCheckSec: 30,
		},
		OAuth: OAuthConfig{CallbackPort: 8765},
		Display: DisplayConfig{
			Theme:    "default",
			PageSize: 10,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "adsdash.log"),
		},
		Cache: CacheConfig{Path: filepath.Join(dir, "cache.db")},
	}
}

func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout_sec", d.API.TimeoutSec)
	v.SetDefault("api.max_retries", d.API.MaxRetries)
	v.SetDefault("polling.task_interval_ms", d.Polling.TaskIntervalMs)
	v.SetDefault("polling.google_check_sec", d.Polling.GoogleCheckSec)
	v.SetDefault("oauth.callback_port", d.OAuth.CallbackPort)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.page_size", d.Display.PageSize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)
	v.SetDefault("cache.path", d.Cache.Path)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Values may be overridden by ADSDASH_* environment variables, e.g.
// ADSDASH_API_BASE_URL. If the file does not exist, defaults are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ADSDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, defaultAppConfig())

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if !strings.HasSuffix(cfg.API.BaseURL, "/") {
		cfg.API.BaseURL += "/"
	}
	if cfg.Display.PageSize <= 0 {
		cfg.Display.PageSize = 10
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("polling", cfg.Polling)
	v.Set("oauth", cfg.OAuth)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)
	v.Set("metrics", cfg.Metrics)
	v.Set("cache", cfg.Cache)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
