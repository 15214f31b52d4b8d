package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv is consulted when the config file sets no API key.
const APIKeyEnv = "GEMINI_API_KEY"

// Config holds all versewright configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	DBPath    string          `yaml:"db_path"`
	Log       LogConfig       `yaml:"log"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Artists   ArtistsConfig   `yaml:"artists"`
	Models    ModelsConfig    `yaml:"models"`
	Budget    BudgetConfig    `yaml:"budget"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GeminiConfig defines the generation API connection.
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	// Persistent stores artist style analyses in db_path across restarts.
	Persistent bool `yaml:"persistent"`
}

// RateLimitConfig paces outbound calls.
type RateLimitConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxRequests int           `yaml:"max_requests"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// ArtistsConfig controls per-artist analysis batches.
type ArtistsConfig struct {
	// FanOut runs per-artist calls concurrently; otherwise they run serially.
	FanOut bool `yaml:"fan_out"`
}

// ModelsConfig selects the model for each operation.
type ModelsConfig struct {
	Default   string            `yaml:"default"`
	Overrides map[string]string `yaml:"overrides"`
}

// BudgetConfig caps tokens spent per period. A zero MaxTokens disables it.
type BudgetConfig struct {
	MaxTokens int64  `yaml:"max_tokens"`
	Period    string `yaml:"period"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		DBPath: "versewright.db",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Timeout: 60 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        24 * time.Hour,
			Persistent: true,
		},
		RateLimit: RateLimitConfig{
			Window:      60 * time.Second,
			MaxRequests: 10,
			MinInterval: 6 * time.Second,
		},
		Artists: ArtistsConfig{
			FanOut: true,
		},
		Models: ModelsConfig{
			Default: "gemini-2.5-flash",
		},
		Budget: BudgetConfig{
			Period: "daily",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return cfg, err
}

func (c *Config) applyEnv() {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		c.Gemini.APIKey = os.Getenv(APIKeyEnv)
	}
}

// Validate reports configuration errors that would make every call fail.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		problems = append(problems, fmt.Sprintf("gemini.api_key is empty (set it or %s)", APIKeyEnv))
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		problems = append(problems, "cache.ttl must be positive")
	}
	if c.RateLimit.Window <= 0 {
		problems = append(problems, "rate_limit.window must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 {
		problems = append(problems, "rate_limit.max_requests must be positive")
	}
	if c.RateLimit.MinInterval < 0 {
		problems = append(problems, "rate_limit.min_interval must not be negative")
	}
	if c.Budget.MaxTokens < 0 {
		problems = append(problems, "budget.max_tokens must not be negative")
	}
	switch strings.ToLower(c.Budget.Period) {
	case "", "daily", "monthly":
	default:
		problems = append(problems, fmt.Sprintf("budget.period %q must be daily or monthly", c.Budget.Period))
	}
	if c.Cache.Persistent && c.DBPath == "" {
		problems = append(problems, "db_path is required for the persistent cache")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
