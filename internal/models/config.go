package models

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Grouping GroupingConfig `json:"grouping"`
	Retry    RetryConfig    `json:"retry"`
	Tracing  TracingConfig  `json:"tracing"`
	LogLevel string         `json:"log_level"`
}

// ServerConfig holds webhook server related configurations
type ServerConfig struct {
	Port            int   `json:"port"`
	ReadTimeoutSec  int   `json:"readTimeoutSec"`
	WriteTimeoutSec int   `json:"writeTimeoutSec"`
	IdleTimeoutSec  int   `json:"idleTimeoutSec"`
	MaxBodyBytes    int64 `json:"maxBodyBytes"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// GroupingConfig holds conversation grouping configurations
type GroupingConfig struct {
	// ReadyThreshold is the message count at which a conversation becomes
	// ready for downstream processing.
	ReadyThreshold int `json:"readyThreshold"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig holds OpenTelemetry related configurations
type TracingConfig struct {
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	Enabled        bool    `json:"enabled"`
	UseStdout      bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
