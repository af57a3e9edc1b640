package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Queue       QueueConfig    `toml:"queue"`
	Storage     StorageConfig  `toml:"storage"`
	Scraper     ScraperConfig  `toml:"scraper"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Claude      ClaudeConfig   `toml:"claude"`
	LLM         LLMConfig      `toml:"llm"`
	Pipeline    PipelineConfig `toml:"pipeline"`
	Logging     LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type QueueConfig struct {
	PollInterval    string `toml:"poll_interval"`      // e.g., "1s" - how often workers poll for jobs
	Concurrency     int    `toml:"concurrency"`        // Number of concurrent workers
	LeaseDuration   string `toml:"lease_duration"`     // e.g., "10m" - job lease before redelivery
	HeartbeatEvery  string `toml:"heartbeat_every"`    // e.g., "30s" - lease extension interval
	MaxStartsPerMin int    `toml:"max_starts_per_min"` // Rolling-window cap on job starts
	JanitorSchedule string `toml:"janitor_schedule"`   // Cron schedule for lease reclaim and retention
	RetentionDays   int    `toml:"retention_days"`     // Days to keep terminal jobs before purge
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// ScraperConfig contains acquisition configuration for both the browser
// and the plain HTTP fallback
type ScraperConfig struct {
	UserAgent        string        `toml:"user_agent"`         // User agent for both acquisition methods
	RequestTimeout   time.Duration `toml:"request_timeout"`    // Per-URL acquisition timeout
	RequestDelay     time.Duration `toml:"request_delay"`      // Minimum delay between requests to same domain
	MaxBodySize      int           `toml:"max_body_size"`      // Maximum response body size in bytes
	MaxRetries       int           `toml:"max_retries"`        // Retries per acquisition method
	RetryBackoff     time.Duration `toml:"retry_backoff"`      // Base backoff between retries
	RenderWaitTime   time.Duration `toml:"render_wait_time"`   // Time to wait for JavaScript to render
	CaptureViewportW int64         `toml:"capture_viewport_w"` // Screenshot viewport width
	CaptureViewportH int64         `toml:"capture_viewport_h"` // Screenshot viewport height
	BrowserPoolSize  int           `toml:"browser_pool_size"`  // Concurrent browser tabs
	ExcerptMaxChars  int           `toml:"excerpt_max_chars"`  // Markdown excerpt cap for prompts
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for AI operations (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key (ANTHROPIC_API_KEY or config)
	Model       string  `toml:"model"`       // Model for AI operations (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
}

// PipelineConfig contains analysis pipeline limits and weights
type PipelineConfig struct {
	MaxCompetitors    int `toml:"max_competitors"`    // Max unique domains analyzed per job (default: 5)
	AcquisitionWeight int `toml:"acquisition_weight"` // Progress share for the acquisition phase (default: 50)
	AnalysisWeight    int `toml:"analysis_weight"`    // Progress share for the analysis phase (default: 50)
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in aemulus.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Queue: QueueConfig{
			PollInterval:    "1s",
			Concurrency:     4,
			LeaseDuration:   "10m",
			HeartbeatEvery:  "30s",
			MaxStartsPerMin: 10,
			JanitorSchedule: "0 */1 * * * *", // Every minute (cron format with seconds)
			RetentionDays:   7,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Scraper: ScraperConfig{
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout:   30 * time.Second,
			RequestDelay:     1 * time.Second,
			MaxBodySize:      10 * 1024 * 1024, // 10MB
			MaxRetries:       2,
			RetryBackoff:     2 * time.Second,
			RenderWaitTime:   3 * time.Second,
			CaptureViewportW: 1280,
			CaptureViewportH: 800,
			BrowserPoolSize:  3,
			ExcerptMaxChars:  8000,
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (no fallback)
			Model:       "gemini-3-flash-preview",
			Timeout:     "2m",
			RateLimit:   "4s", // Default to 4s (15 RPM) for free tier
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Pipeline: PipelineConfig{
			MaxCompetitors:    5,
			AcquisitionWeight: 50,
			AnalysisWeight:    50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("AEMULUS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("AEMULUS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("AEMULUS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Queue configuration
	if pollInterval := os.Getenv("AEMULUS_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}
	if concurrency := os.Getenv("AEMULUS_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}
	if leaseDuration := os.Getenv("AEMULUS_QUEUE_LEASE_DURATION"); leaseDuration != "" {
		config.Queue.LeaseDuration = leaseDuration
	}
	if maxStarts := os.Getenv("AEMULUS_QUEUE_MAX_STARTS_PER_MIN"); maxStarts != "" {
		if ms, err := strconv.Atoi(maxStarts); err == nil {
			config.Queue.MaxStartsPerMin = ms
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("AEMULUS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Scraper configuration
	if userAgent := os.Getenv("AEMULUS_SCRAPER_USER_AGENT"); userAgent != "" {
		config.Scraper.UserAgent = userAgent
	}
	if requestTimeout := os.Getenv("AEMULUS_SCRAPER_REQUEST_TIMEOUT"); requestTimeout != "" {
		if rt, err := time.ParseDuration(requestTimeout); err == nil {
			config.Scraper.RequestTimeout = rt
		}
	}
	if requestDelay := os.Getenv("AEMULUS_SCRAPER_REQUEST_DELAY"); requestDelay != "" {
		if rd, err := time.ParseDuration(requestDelay); err == nil {
			config.Scraper.RequestDelay = rd
		}
	}

	// LLM configuration
	if provider := os.Getenv("AEMULUS_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" && config.Gemini.APIKey == "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = apiKey
	}

	// Logging configuration
	if level := os.Getenv("AEMULUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// QueuePollInterval parses the configured poll interval with a safe fallback
func (c *Config) QueuePollInterval() time.Duration {
	d, err := time.ParseDuration(c.Queue.PollInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// QueueLeaseDuration parses the configured lease duration with a safe fallback
func (c *Config) QueueLeaseDuration() time.Duration {
	d, err := time.ParseDuration(c.Queue.LeaseDuration)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// QueueHeartbeatInterval parses the heartbeat interval with a safe fallback
func (c *Config) QueueHeartbeatInterval() time.Duration {
	d, err := time.ParseDuration(c.Queue.HeartbeatEvery)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
