// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Log         LogConfig
	Redis       RedisConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	LLM         LLMConfig
	Explain     ExplainConfig
	Synthesis   SynthesisConfig
	Refresh     RefreshConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// RedisConfig holds the cache connection
type RedisConfig struct {
	URL string
}

// DatabaseConfig holds the optional explanation archive connection.
// An empty host disables the archive.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// Enabled reports whether the archive should be connected
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// ConnString renders the postgres connection URL
func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// NATSConfig holds the optional event bus connection. An empty URL
// disables event publishing.
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	EventsTopic    string
}

// LLMConfig selects the text generation backend
type LLMConfig struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// ExplainConfig holds explanation cache settings
type ExplainConfig struct {
	ExplanationTTL time.Duration
	PeakSummaryTTL time.Duration
	HistoryLimit   int
}

// SynthesisConfig holds the state-of-the-world settings
type SynthesisConfig struct {
	LookupConcurrency int
	TaskTimeout       time.Duration
	TaskRate          float64
	TaskBurst         int
	MaxTrackedTasks   int
}

// RefreshConfig holds the scheduled regeneration settings. An empty
// schedule disables it.
type RefreshConfig struct {
	Schedule string
}

// Load reads a .env file when present and loads configuration from
// environment variables
func Load() (Config, error) {
	_ = godotenv.Load()

	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 2*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", ""),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "trendlens"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", ""),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			EventsTopic:    getEnv("EVENTS_TOPIC", "explanation"),
		},
		LLM: LLMConfig{
			Provider:  strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
			APIKey:    getEnv("LLM_API_KEY", ""),
			Model:     getEnv("LLM_MODEL", ""),
			BaseURL:   getEnv("LLM_BASE_URL", ""),
			MaxTokens: getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Timeout:   getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
		},
		Explain: ExplainConfig{
			ExplanationTTL: getEnvAsDuration("EXPLANATION_TTL", 96*time.Hour),
			PeakSummaryTTL: getEnvAsDuration("PEAK_SUMMARY_TTL", 0),
			HistoryLimit:   getEnvAsInt("EXPLANATION_HISTORY_LIMIT", 20),
		},
		Synthesis: SynthesisConfig{
			LookupConcurrency: getEnvAsInt("SYNTHESIS_LOOKUP_CONCURRENCY", 8),
			TaskTimeout:       getEnvAsDuration("SYNTHESIS_TASK_TIMEOUT", 3*time.Minute),
			TaskRate:          getEnvAsFloat("SYNTHESIS_TASK_RATE", 2),
			TaskBurst:         getEnvAsInt("SYNTHESIS_TASK_BURST", 4),
			MaxTrackedTasks:   getEnvAsInt("SYNTHESIS_MAX_TRACKED_TASKS", 256),
		},
		Refresh: RefreshConfig{
			Schedule: getEnv("REFRESH_SCHEDULE", ""),
		},
	}

	if config.LLM.Model == "" {
		config.LLM.Model = defaultModels[config.LLM.Provider]
	}

	return config, validate(config)
}

var defaultModels = map[string]string{
	"gemini": "gemini-1.5-pro",
	"openai": "gpt-4o-mini",
	"claude": "claude-3-5-sonnet-latest",
	"ollama": "llama3.1",
}

// validate checks if config is valid
func validate(config Config) error {
	if _, ok := defaultModels[config.LLM.Provider]; !ok {
		return fmt.Errorf("unsupported llm provider: %s", config.LLM.Provider)
	}

	if config.LLM.APIKey == "" && config.LLM.Provider != "ollama" && config.Environment != "development" {
		return fmt.Errorf("LLM_API_KEY must be set in non-development environments")
	}

	if config.Explain.ExplanationTTL < 0 || config.Explain.PeakSummaryTTL < 0 {
		return fmt.Errorf("cache ttls must not be negative")
	}

	if config.Synthesis.LookupConcurrency < 1 {
		return fmt.Errorf("SYNTHESIS_LOOKUP_CONCURRENCY must be at least 1")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
