package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pipeline configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Sync batch job parameters
	Sync SyncConfig `yaml:"sync"`

	// External data sources, keyed by adapter name
	Sources map[string]SourceConfig `yaml:"sources"`

	// Image sourcing engine
	Images ImagesConfig `yaml:"images"`

	// Political-alignment scoring
	Alignment AlignmentConfig `yaml:"alignment"`

	// Datastore
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SyncConfig configures one batch invocation of the pipeline.
type SyncConfig struct {
	BatchSize       int    `yaml:"batch_size"`        // 1-100
	TestMode        bool   `yaml:"test_mode"`         // skip persistence side effects
	TargetCount     int    `yaml:"target_count"`      // max candidates per run
	Region          string `yaml:"region"`            // geographic working set
	InterBatchDelay string `yaml:"inter_batch_delay"` // pause between batches
	RequestTimeout  string `yaml:"request_timeout"`   // per external call
}

// SourceConfig configures one external data source adapter.
type SourceConfig struct {
	Enabled         bool   `yaml:"enabled"`
	BaseURL         string `yaml:"base_url"`
	RequestsPerHour int    `yaml:"requests_per_hour"`
	APIKeyEnv       string `yaml:"api_key_env"`
	APIKey          string `yaml:"-"` // resolved from env, never serialized
}

// ImagesConfig configures the image sourcing engine.
type ImagesConfig struct {
	MinByteSize    int64           `yaml:"min_byte_size"`   // reject bodies below this
	RequestTimeout string          `yaml:"request_timeout"` // per provider fetch
	MaxPerRun      int             `yaml:"max_per_run"`     // backfill cap per sync run
	Providers      ProvidersConfig `yaml:"providers"`
}

// ProvidersConfig toggles individual image providers.
type ProvidersConfig struct {
	LogoCDN     bool `yaml:"logocdn"`
	Wikimedia   bool `yaml:"wikimedia"`
	PhotoSearch bool `yaml:"photosearch"`
	Webshot     bool `yaml:"webshot"` // requires a local Chromium; off by default
	Placeholder bool `yaml:"placeholder"`
}

// AlignmentConfig configures the signal-aggregation policy.
type AlignmentConfig struct {
	Policy        string `yaml:"policy"`      // keyword | scripted
	ScriptPath    string `yaml:"script_path"` // for the scripted policy
	UseEmbeddings bool   `yaml:"use_embeddings"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// StoreConfig configures the SQLite datastore.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "VoteWithYourWallet",
		Version: "1.0.0",

		Sync: SyncConfig{
			BatchSize:       20,
			TestMode:        false,
			TargetCount:     200,
			Region:          "",
			InterBatchDelay: "2s",
			RequestTimeout:  "12s",
		},

		Sources: map[string]SourceConfig{
			"overpass": {
				Enabled:         true,
				BaseURL:         "https://overpass-api.de/api/interpreter",
				RequestsPerHour: 360,
			},
			"wikipedia": {
				Enabled:         true,
				BaseURL:         "https://en.wikipedia.org/w/api.php",
				RequestsPerHour: 1800,
			},
			"donations": {
				Enabled:         true,
				BaseURL:         "https://api.open-campaign-data.org/v1",
				RequestsPerHour: 120,
				APIKeyEnv:       "VW_DONATIONS_API_KEY",
			},
			"news": {
				Enabled:         true,
				BaseURL:         "https://news-index.example.com/search",
				RequestsPerHour: 240,
			},
		},

		Images: ImagesConfig{
			MinByteSize:    1024,
			RequestTimeout: "15s",
			MaxPerRun:      50,
			Providers: ProvidersConfig{
				LogoCDN:     true,
				Wikimedia:   true,
				PhotoSearch: true,
				Webshot:     false,
				Placeholder: true,
			},
		},

		Alignment: AlignmentConfig{
			Policy:         "keyword",
			UseEmbeddings:  false,
			EmbeddingModel: "gemini-embedding-001",
		},

		Store: StoreConfig{
			DatabasePath: "data/votewallet.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "votewallet.log",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
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
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
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
	// Resolve per-source API keys from their configured env vars
	for name, src := range c.Sources {
		if src.APIKeyEnv != "" {
			if key := os.Getenv(src.APIKeyEnv); key != "" {
				src.APIKey = key
				c.Sources[name] = src
			}
		}
	}

	// Database path from environment
	if path := os.Getenv("VOTEWALLET_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// GetRequestTimeout returns the per-call timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Sync.RequestTimeout)
	if err != nil {
		return 12 * time.Second
	}
	return d
}

// GetInterBatchDelay returns the pause between batches as a duration.
func (c *Config) GetInterBatchDelay() time.Duration {
	d, err := time.ParseDuration(c.Sync.InterBatchDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetImageTimeout returns the per-provider image fetch timeout.
func (c *Config) GetImageTimeout() time.Duration {
	d, err := time.ParseDuration(c.Images.RequestTimeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// ValidPolicies lists supported alignment aggregation policies.
var ValidPolicies = []string{"keyword", "scripted"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Sync.BatchSize < 1 || c.Sync.BatchSize > 100 {
		return fmt.Errorf("sync.batch_size must be in [1,100], got %d", c.Sync.BatchSize)
	}
	if c.Sync.TargetCount < 0 {
		return fmt.Errorf("sync.target_count must be non-negative, got %d", c.Sync.TargetCount)
	}

	for name, src := range c.Sources {
		if src.Enabled && src.RequestsPerHour <= 0 {
			return fmt.Errorf("sources.%s.requests_per_hour must be positive", name)
		}
	}

	validPolicy := false
	for _, p := range ValidPolicies {
		if c.Alignment.Policy == p {
			validPolicy = true
			break
		}
	}
	if !validPolicy {
		return fmt.Errorf("invalid alignment policy: %s (valid: %v)", c.Alignment.Policy, ValidPolicies)
	}
	if c.Alignment.Policy == "scripted" && c.Alignment.ScriptPath == "" {
		return fmt.Errorf("alignment.script_path required for scripted policy")
	}

	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store.database_path required")
	}

	return nil
}

// SourceAPIKey returns the resolved API key for a source, or empty.
func (c *Config) SourceAPIKey(name string) string {
	if src, ok := c.Sources[name]; ok {
		return src.APIKey
	}
	return ""
}

// IsSourceEnabled returns whether a source adapter is enabled.
func (c *Config) IsSourceEnabled(name string) bool {
	src, ok := c.Sources[name]
	return ok && src.Enabled
}
