package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variable overrides, e.g. JSONNYMOUS_SERVER_PORT
const EnvPrefix = "JSONNYMOUS"

var (
	mu     sync.Mutex
	active *viper.Viper
)

// envKeys are bound explicitly so overrides apply without a config file
var envKeys = []string{
	"server.host", "server.port", "server.max_body_bytes",
	"generation.default_count", "generation.max_count", "generation.max_retries",
	"generation.max_ref_depth", "generation.validate",
	"privacy.consistent",
	"rate_limit.enabled", "rate_limit.requests_per_second", "rate_limit.burst",
	"logging.level", "logging.format",
	"websocket.enabled", "metrics.enabled",
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	config := GetDefaults()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/jsonnymous/")
	v.AddConfigPath("$HOME/.jsonnymous/")

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mu.Lock()
	active = v
	mu.Unlock()

	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Generation.DefaultCount < 0 || config.Generation.MaxCount < config.Generation.DefaultCount {
		return fmt.Errorf("invalid generation counts: default %d, max %d", config.Generation.DefaultCount, config.Generation.MaxCount)
	}

	if config.Generation.MaxRetries <= 0 || config.Generation.MaxRefDepth <= 0 {
		return fmt.Errorf("generation max_retries and max_ref_depth must be positive")
	}

	if config.Random.MaxDepth < 0 || config.Random.MaxKeys < 1 || config.Random.MaxChildren < 1 || config.Random.MaxItems < 1 {
		return fmt.Errorf("invalid random caps: %+v", config.Random)
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive requests_per_second and burst")
	}

	for _, rule := range config.Privacy.ExtraRules {
		if rule.Pattern == "" || rule.Category == "" {
			return fmt.Errorf("privacy extra rule needs both pattern and category")
		}
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	return nil
}

// Watch starts watching the loaded configuration file for changes. The
// callback receives only configurations that pass validation; onError, if
// set, receives the ones that do not.
func Watch(callback func(*Config), onError func(error)) error {
	mu.Lock()
	v := active
	mu.Unlock()

	if v == nil {
		return errors.New("configuration has not been loaded")
	}
	if v.ConfigFileUsed() == "" {
		return errors.New("no configuration file to watch")
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		newConfig := GetDefaults()
		if err := v.Unmarshal(newConfig); err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to unmarshal config: %w", err))
			}
			return
		}

		if err := validateConfig(newConfig); err != nil {
			if onError != nil {
				onError(fmt.Errorf("invalid configuration: %w", err))
			}
			return
		}

		callback(newConfig)
	})
	v.WatchConfig()

	return nil
}
