package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables that override provider keys
const (
	RealtimeAPIKeyEnv = "SCRIBE_REALTIME_API_KEY"
	GeminiAPIKeyEnv   = "SCRIBE_GEMINI_API_KEY"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server        ServerConfig        `toml:"server"`        // HTTP server settings
	Logging       LoggingConfig       `toml:"logging"`       // Application logging settings
	Transcription TranscriptionConfig `toml:"transcription"` // Transcription pipeline and provider settings
	Storage       StorageConfig       `toml:"storage"`       // Result history settings
	Metrics       MetricsConfig       `toml:"metrics"`       // Prometheus endpoint settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response (must exceed the transcription timeout)
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	MaxUploadMB      int    `toml:"max_upload_mb"`         // Largest accepted audio upload in megabytes

	CORSAllowedOrigins []string `toml:"cors_allowed_origins"` // List of origins allowed for CORS requests (use ["*"] for all origins)
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// TranscriptionConfig contains settings for the streaming transcription pipeline
type TranscriptionConfig struct {
	Provider               string   `toml:"provider"`                 // Recognition provider: "aws", "realtime" or "gemini"
	Region                 string   `toml:"region"`                   // Default service region (e.g., "ap-southeast-1")
	DefaultLanguageOptions []string `toml:"default_language_options"` // Candidate languages used when a request names none

	// Upload pacing
	FrameSizeBytes  int `toml:"frame_size_bytes"`  // Bytes of PCM per streamed frame
	FrameIntervalMs int `toml:"frame_interval_ms"` // Pause after each frame in milliseconds
	FlushDelayMs    int `toml:"flush_delay_ms"`    // Pause after end-of-stream before the upload is considered done

	TimeoutSeconds int    `toml:"timeout_seconds"` // Overall limit for one streaming session
	WorkDir        string `toml:"work_dir"`        // Directory for staged input files (empty = system temp dir)

	// Realtime websocket provider settings
	RealtimeURL    string `toml:"realtime_url"`     // Websocket endpoint of the realtime recognition service
	RealtimeAPIKey string `toml:"realtime_api_key"` // Bearer token; SCRIBE_REALTIME_API_KEY takes precedence
	RealtimeModel  string `toml:"realtime_model"`   // Recognition model requested at session start
	Streaming      *bool  `toml:"streaming"`        // Whether the realtime endpoint supports streaming (default true)

	// Gemini Live provider settings
	GeminiURL    string `toml:"gemini_url"`     // Override of the Live API websocket endpoint
	GeminiAPIKey string `toml:"gemini_api_key"` // API key; SCRIBE_GEMINI_API_KEY takes precedence
	GeminiModel  string `toml:"gemini_model"`   // Live model with input transcription support
}

// StorageConfig contains result history configuration
type StorageConfig struct {
	Enabled    bool   `toml:"enabled"`     // Persist every transcription result
	SQLitePath string `toml:"sqlite_path"` // Path of the SQLite database file
}

// MetricsConfig contains Prometheus exporter configuration
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"` // Expose Prometheus metrics
	Path    string `toml:"path"`    // HTTP path of the metrics endpoint
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyEnv()

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,
		"configs/config.toml",
		"config.toml",
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

func (c *Config) applyEnv() {
	if key := strings.TrimSpace(os.Getenv(RealtimeAPIKeyEnv)); key != "" {
		c.Transcription.RealtimeAPIKey = key
	}
	if key := strings.TrimSpace(os.Getenv(GeminiAPIKeyEnv)); key != "" {
		c.Transcription.GeminiAPIKey = key
	}
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	// Server
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 25
	}

	// Logging
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if err := c.ValidateTranscription(); err != nil {
		return err
	}

	// Storage
	if c.Storage.Enabled && c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/scribe.db"
	}

	// Metrics
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %s", c.Metrics.Path)
	}

	return nil
}

// ValidateTranscription validates the transcription section
func (c *Config) ValidateTranscription() error {
	t := &c.Transcription

	if t.Provider == "" {
		t.Provider = "aws"
	}
	if t.Region == "" {
		t.Region = "ap-southeast-1"
	}
	if len(t.DefaultLanguageOptions) == 0 {
		t.DefaultLanguageOptions = []string{"en-US", "id-ID"}
	}
	if t.FrameSizeBytes == 0 {
		t.FrameSizeBytes = 4096
	}
	if t.FrameSizeBytes < 0 || t.FrameSizeBytes%2 != 0 {
		return fmt.Errorf("invalid frame_size_bytes: %d (must be a positive even number)", t.FrameSizeBytes)
	}
	if t.FrameIntervalMs < 0 {
		return fmt.Errorf("invalid frame_interval_ms: %d", t.FrameIntervalMs)
	}
	if t.FlushDelayMs < 0 {
		return fmt.Errorf("invalid flush_delay_ms: %d", t.FlushDelayMs)
	}
	if t.TimeoutSeconds == 0 {
		t.TimeoutSeconds = 60
	}
	if t.TimeoutSeconds < 0 {
		return fmt.Errorf("invalid timeout_seconds: %d", t.TimeoutSeconds)
	}

	switch t.Provider {
	case "aws":
	case "realtime":
		if t.RealtimeURL == "" {
			return fmt.Errorf("realtime_url is required when provider is realtime")
		}
		if t.RealtimeModel == "" {
			t.RealtimeModel = "gpt-4o-transcribe"
		}
	case "gemini":
		if t.GeminiAPIKey == "" {
			return fmt.Errorf("gemini_api_key (or %s) is required when provider is gemini", GeminiAPIKeyEnv)
		}
	default:
		return fmt.Errorf("invalid transcription provider: %s (must be 'aws', 'realtime' or 'gemini')", t.Provider)
	}

	return nil
}

// FrameInterval returns the pause between frames
func (t TranscriptionConfig) FrameInterval() time.Duration {
	return time.Duration(t.FrameIntervalMs) * time.Millisecond
}

// FlushDelay returns the pause after end-of-stream
func (t TranscriptionConfig) FlushDelay() time.Duration {
	return time.Duration(t.FlushDelayMs) * time.Millisecond
}

// Timeout returns the per-session limit
func (t TranscriptionConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// StreamingEnabled reports whether the realtime endpoint accepts streamed audio
func (t TranscriptionConfig) StreamingEnabled() bool {
	return t.Streaming == nil || *t.Streaming
}

// MaxUploadBytes returns the upload limit in bytes
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}
