package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		BraveAPIKey:        "brave",
		FirecrawlAPIKey:    "firecrawl",
		GeminiAPIKey:       "gemini",
		ChunkMaxTokens:     90000,
		ChunkOverlapTokens: 9000,
	}

	t.Run("Valid", func(t *testing.T) {
		cfg := valid
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Missing Keys", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Config)
		}{
			{"BRAVE_SEARCH_API_KEY", func(c *Config) { c.BraveAPIKey = "" }},
			{"FIRECRAWL_API_KEY", func(c *Config) { c.FirecrawlAPIKey = "" }},
			{"GEMINI_API_KEY", func(c *Config) { c.GeminiAPIKey = "" }},
		}
		for _, tt := range tests {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrMissingRequired)
			assert.Contains(t, err.Error(), tt.name)
		}
	})

	t.Run("Overlap Must Be Smaller Than Chunk Size", func(t *testing.T) {
		cfg := valid
		cfg.ChunkOverlapTokens = cfg.ChunkMaxTokens
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BRAVE_SEARCH_API_KEY", "brave")
	t.Setenv("FIRECRAWL_API_KEY", "firecrawl")
	t.Setenv("GEMINI_API_KEY", "gemini")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, 31, cfg.ExtractTimeoutSeconds)
	assert.Equal(t, 61, cfg.CooldownSeconds)
	assert.Equal(t, 100, cfg.BatchPauseEvery)
	assert.Equal(t, 90000, cfg.ChunkMaxTokens)
	assert.Equal(t, 9000, cfg.ChunkOverlapTokens)
	assert.Equal(t, "OUTPUT", cfg.OutputDir)
	assert.Equal(t, "https://api.firecrawl.dev", cfg.FirecrawlBaseURL)
}
