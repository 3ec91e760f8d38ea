package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("NATS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-1.5-pro", cfg.LLM.Model)
	assert.Equal(t, 96*time.Hour, cfg.Explain.ExplanationTTL)
	assert.Equal(t, time.Duration(0), cfg.Explain.PeakSummaryTTL)
	assert.Equal(t, "explanation", cfg.NATS.EventsTopic)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("EXPLANATION_TTL", "1h")
	t.Setenv("SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "not a number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, time.Hour, cfg.Explain.ExplanationTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CorsOrigins)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "postgres://postgres:postgres@db:5432/trendlens?sslmode=disable", cfg.Database.ConnString())
}

func TestLoad_Validation(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv("APP_ENV", "development")
		t.Setenv("LLM_PROVIDER", "mystery")

		_, err := Load()
		assert.ErrorContains(t, err, "unsupported llm provider")
	})

	t.Run("api key required outside development", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("LLM_PROVIDER", "claude")
		t.Setenv("LLM_API_KEY", "")

		_, err := Load()
		assert.ErrorContains(t, err, "LLM_API_KEY")
	})

	t.Run("ollama runs without a key", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("LLM_PROVIDER", "ollama")
		t.Setenv("LLM_API_KEY", "")

		_, err := Load()
		assert.NoError(t, err)
	})
}
