package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	// Provider credentials
	BraveAPIKey     string `envconfig:"BRAVE_SEARCH_API_KEY"`
	FirecrawlAPIKey string `envconfig:"FIRECRAWL_API_KEY"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`

	// Provider endpoints (overridable for tests)
	BraveBaseURL     string `envconfig:"BRAVE_BASE_URL" default:"https://api.search.brave.com"`
	FirecrawlBaseURL string `envconfig:"FIRECRAWL_BASE_URL" default:"https://api.firecrawl.dev"`

	// Models
	ClassifierModel string `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.0-flash"`
	OptimizerModel  string `envconfig:"OPTIMIZER_MODEL" default:"gemini-2.0-flash"`

	// Database
	DBHost string `envconfig:"DB_HOST" default:"localhost"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"insightsearch"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"insightsearch"`

	// Crawl behaviour
	ExtractTimeoutSeconds int `envconfig:"EXTRACT_TIMEOUT_SECONDS" default:"31"`
	CooldownSeconds       int `envconfig:"COOLDOWN_SECONDS" default:"61"`
	BatchPauseEvery       int `envconfig:"BATCH_PAUSE_EVERY" default:"100"`
	ChunkMaxTokens        int `envconfig:"CHUNK_MAX_TOKENS" default:"90000"`
	ChunkOverlapTokens    int `envconfig:"CHUNK_OVERLAP_TOKENS" default:"9000"`

	// Outputs
	OutputDir     string `envconfig:"OUTPUT_DIR" default:"OUTPUT"`
	LogPath       string `envconfig:"LOG_PATH" default:"insightsearch.log"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, env vars might be set in the shell
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BraveAPIKey == "" {
		return fmt.Errorf("%w: BRAVE_SEARCH_API_KEY", ErrMissingRequired)
	}
	if c.FirecrawlAPIKey == "" {
		return fmt.Errorf("%w: FIRECRAWL_API_KEY", ErrMissingRequired)
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
	}
	if c.ChunkOverlapTokens >= c.ChunkMaxTokens {
		return fmt.Errorf("CHUNK_OVERLAP_TOKENS must be smaller than CHUNK_MAX_TOKENS")
	}
	return nil
}
