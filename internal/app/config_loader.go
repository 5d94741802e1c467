package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.dsfetch")
		v.AddConfigPath("/etc/dsfetch")
	}

	v.SetEnvPrefix("DSFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnv registers every key so AutomaticEnv also applies to keys absent
// from the config file.
func bindEnv(v *viper.Viper) {
	keys := []string{
		"server.host", "server.port",
		"data.root_dir", "data.downloads_dir", "data.temp_dir", "data.logs_dir",
		"data.convention", "data.replace_download", "data.replace_extracted",
		"transport.timeout", "transport.user_agent", "transport.progress_interval",
		"queue.database_path", "queue.check_interval", "queue.history",
		"notification.enabled", "notification.method",
		"logging.level", "logging.format", "logging.output_path",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Data.RootDir = expandPath(config.Data.RootDir)
	config.Data.LogsDir = expandPath(config.Data.LogsDir)
	config.Queue.DatabasePath = expandPath(config.Queue.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Data.RootDir == "" {
		return fmt.Errorf("data root directory not configured")
	}

	if !domain.ValidateConvention(domain.Convention(config.Data.Convention)) {
		return fmt.Errorf("invalid convention: %q", config.Data.Convention)
	}

	for name, dir := range map[string]string{
		"downloads_dir": config.Data.DownloadsDir,
		"temp_dir":      config.Data.TempDir,
	} {
		if filepath.IsAbs(dir) || strings.Contains(dir, "..") {
			return fmt.Errorf("%s must be a plain subdirectory name: %q", name, dir)
		}
	}

	if config.Transport.Timeout < 0 {
		return fmt.Errorf("transport timeout cannot be negative")
	}

	if config.Queue.History && config.Queue.DatabasePath == "" {
		return fmt.Errorf("queue database path not configured")
	}

	if config.Queue.CheckInterval <= 0 {
		return fmt.Errorf("queue check interval must be positive")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server", map[string]interface{}{
		"host": config.Server.Host,
		"port": config.Server.Port,
	})
	v.Set("data", map[string]interface{}{
		"root_dir":          config.Data.RootDir,
		"downloads_dir":     config.Data.DownloadsDir,
		"temp_dir":          config.Data.TempDir,
		"logs_dir":          config.Data.LogsDir,
		"convention":        config.Data.Convention,
		"replace_download":  config.Data.ReplaceDownload,
		"replace_extracted": config.Data.ReplaceExtracted,
	})
	v.Set("transport", map[string]interface{}{
		"timeout":           config.Transport.Timeout.String(),
		"user_agent":        config.Transport.UserAgent,
		"progress_interval": config.Transport.ProgressInterval.String(),
	})
	v.Set("queue", map[string]interface{}{
		"database_path":  config.Queue.DatabasePath,
		"check_interval": config.Queue.CheckInterval.String(),
		"history":        config.Queue.History,
	})
	v.Set("notification", map[string]interface{}{
		"enabled": config.Notification.Enabled,
		"method":  config.Notification.Method,
	})
	v.Set("logging", map[string]interface{}{
		"level":       config.Logging.Level,
		"format":      config.Logging.Format,
		"output_path": config.Logging.OutputPath,
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
