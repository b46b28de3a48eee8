package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Dir is the per-workspace state directory.
const Dir = ".lista"

// Config holds all listacerta configuration.
type Config struct {
	// Gemini configuration
	LLM LLMConfig `yaml:"llm"`

	// Suggestion pipeline tuning
	Suggest SuggestConfig `yaml:"suggest"`

	// Local persistence
	Store StoreConfig `yaml:"store"`

	// HTTP API
	Server ServerConfig `yaml:"server"`

	// Default location for price comparison
	Location LocationConfig `yaml:"location"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the Gemini gateway.
type LLMConfig struct {
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`       // text model for suggestions and comparisons
	ImageModel string `yaml:"image_model"` // Imagen model for product photos
	Timeout    string `yaml:"timeout"`
	BaseURL    string `yaml:"base_url,omitempty"` // endpoint override, e.g. a proxy
}

// SuggestConfig configures the debounced suggestion pipeline.
type SuggestConfig struct {
	Delay          string `yaml:"delay"`
	MinQueryLength int    `yaml:"min_query_length"`
	MaxCandidates  int    `yaml:"max_candidates"`
	Images         bool   `yaml:"images"` // generate a photo per candidate
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite (pure Go) or sqlite3 (cgo)
	Path   string `yaml:"path"`   // relative paths resolve against the workspace
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LocationConfig is the default city used when compare is run without flags.
type LocationConfig struct {
	City  string `yaml:"city"`
	State string `yaml:"state"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:      "gemini-2.5-flash",
			ImageModel: "imagen-4.0-generate-001",
			Timeout:    "60s",
		},
		Suggest: SuggestConfig{
			Delay:          "750ms",
			MinQueryLength: 3,
			MaxCandidates:  6,
			Images:         true,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join(Dir, "lista.db"),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the config file path for a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, Dir, "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// GEMINI_API_KEY wins over the generic Google key
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("LISTA_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if path := os.Getenv("LISTA_DB"); path != "" {
		c.Store.Path = path
	}
}

// GetLLMTimeout returns the per-call Gemini timeout.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// GetSuggestDelay returns the debounce quiet period.
func (c *Config) GetSuggestDelay() time.Duration {
	d, err := time.ParseDuration(c.Suggest.Delay)
	if err != nil || d < 0 {
		return 750 * time.Millisecond
	}
	return d
}

// GetMinQueryLength returns the minimum trimmed query length, in runes.
func (c *Config) GetMinQueryLength() int {
	if c.Suggest.MinQueryLength <= 0 {
		return 3
	}
	return c.Suggest.MinQueryLength
}

// GetMaxCandidates returns the candidate cap, never above 6.
func (c *Config) GetMaxCandidates() int {
	if c.Suggest.MaxCandidates <= 0 || c.Suggest.MaxCandidates > 6 {
		return 6
	}
	return c.Suggest.MaxCandidates
}

// DatabasePath resolves the store path against the workspace.
func (c *Config) DatabasePath(workspace string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(workspace, c.Store.Path)
}

// ValidDrivers lists the supported SQLite drivers.
var ValidDrivers = []string{"sqlite", "sqlite3"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("Gemini API key not configured (set GEMINI_API_KEY or llm.api_key)")
	}

	validDriver := false
	for _, d := range ValidDrivers {
		if c.Store.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid store driver: %s (valid: %v)", c.Store.Driver, ValidDrivers)
	}

	if _, err := time.ParseDuration(c.Suggest.Delay); err != nil {
		return fmt.Errorf("invalid suggest.delay %q: %w", c.Suggest.Delay, err)
	}
	return nil
}
