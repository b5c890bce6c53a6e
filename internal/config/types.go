package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Random     RandomConfig     `yaml:"random" mapstructure:"random"`
	Privacy    PrivacyConfig    `yaml:"privacy" mapstructure:"privacy"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	WebSocket  WebSocketConfig  `yaml:"websocket" mapstructure:"websocket"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host           string        `yaml:"host" mapstructure:"host"`
	Port           int           `yaml:"port" mapstructure:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// GenerationConfig bounds skeleton-driven generation
type GenerationConfig struct {
	DefaultCount int  `yaml:"default_count" mapstructure:"default_count"`
	MaxCount     int  `yaml:"max_count" mapstructure:"max_count"`
	MaxRetries   int  `yaml:"max_retries" mapstructure:"max_retries"`
	MaxRefDepth  int  `yaml:"max_ref_depth" mapstructure:"max_ref_depth"`
	Validate     bool `yaml:"validate" mapstructure:"validate"`
}

// RandomConfig caps the random document generator
type RandomConfig struct {
	MaxDepth    int `yaml:"max_depth" mapstructure:"max_depth"`
	MaxKeys     int `yaml:"max_keys" mapstructure:"max_keys"`
	MaxChildren int `yaml:"max_children" mapstructure:"max_children"`
	MaxItems    int `yaml:"max_items" mapstructure:"max_items"`
}

// KeyRuleConfig adds a key-name pattern ahead of the built-in table
type KeyRuleConfig struct {
	Pattern  string `yaml:"pattern" mapstructure:"pattern"`
	Category string `yaml:"category" mapstructure:"category"`
}

// PrivacyConfig contains sensitive-field detection and anonymization configuration
type PrivacyConfig struct {
	Detectors       []string        `yaml:"detectors" mapstructure:"detectors"`
	Consistent      bool            `yaml:"consistent" mapstructure:"consistent"`
	AlwaysSensitive []string        `yaml:"always_sensitive" mapstructure:"always_sensitive"`
	NeverSensitive  []string        `yaml:"never_sensitive" mapstructure:"never_sensitive"`
	ExtraRules      []KeyRuleConfig `yaml:"extra_rules" mapstructure:"extra_rules"`
}

// RateLimitConfig contains per-client request throttling
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	IdleTTL           time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains the operation event feed configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxMessageSize  int64         `yaml:"max_message_size" mapstructure:"max_message_size"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxBodyBytes:   10 << 20,
			AllowedOrigins: []string{"*"},
		},
		Generation: GenerationConfig{
			DefaultCount: 1,
			MaxCount:     10000,
			MaxRetries:   16,
			MaxRefDepth:  8,
			Validate:     false,
		},
		Random: RandomConfig{
			MaxDepth:    10,
			MaxKeys:     50,
			MaxChildren: 50,
			MaxItems:    100,
		},
		Privacy: PrivacyConfig{
			Detectors:  []string{"all"},
			Consistent: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
			IdleTTL:           10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			MaxConnections:  100,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxMessageSize:  512,
			AllowedOrigins:  []string{"*"}, // Allow all origins for development
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
	cfg.Logging.File.Path = "logs/jsonnymous.log"
	return cfg
}
