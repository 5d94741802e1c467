package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Data         DataConfig         `mapstructure:"data"`
	Transport    TransportConfig    `mapstructure:"transport"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DataConfig contains the data root layout and request defaults
type DataConfig struct {
	RootDir          string `mapstructure:"root_dir"`
	DownloadsDir     string `mapstructure:"downloads_dir"`
	TempDir          string `mapstructure:"temp_dir"`
	LogsDir          string `mapstructure:"logs_dir"`
	Convention       string `mapstructure:"convention"`
	ReplaceDownload  bool   `mapstructure:"replace_download"`
	ReplaceExtracted bool   `mapstructure:"replace_extracted"`
}

// Layout returns the subdirectory layout used under every fetch root
func (c DataConfig) Layout() Layout {
	layout := DefaultLayout()
	if c.DownloadsDir != "" {
		layout.DownloadsDir = c.DownloadsDir
	}
	if c.TempDir != "" {
		layout.TempDir = c.TempDir
	}
	return layout
}

// LogsPath returns the logs directory, defaulting to <root>/logs
func (c DataConfig) LogsPath() string {
	if c.LogsDir != "" {
		return c.LogsDir
	}
	return filepath.Join(c.RootDir, "logs")
}

// TransportConfig contains HTTP transport configuration
type TransportConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	UserAgent        string        `mapstructure:"user_agent"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// QueueConfig contains queue and history configuration
type QueueConfig struct {
	DatabasePath  string        `mapstructure:"database_path"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	History       bool          `mapstructure:"history"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Data: DataConfig{
			RootDir:          "data",
			DownloadsDir:     "downloads",
			TempDir:          "temp",
			Convention:       string(ConventionGeneric),
			ReplaceDownload:  false,
			ReplaceExtracted: false,
		},
		Transport: TransportConfig{
			Timeout:          0,
			UserAgent:        "dataset-fetch/1.0",
			ProgressInterval: 200 * time.Millisecond,
		},
		Queue: QueueConfig{
			DatabasePath:  "$HOME/.dsfetch/runs.db",
			CheckInterval: 2 * time.Second,
			History:       true,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}
