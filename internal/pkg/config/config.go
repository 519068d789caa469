package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

// LLMConfig holds the Azure OpenAI connection settings. Endpoint is the
// resource base URL without a trailing slash, Deployment the model
// deployment name.
type LLMConfig struct {
	Endpoint       string
	Deployment     string
	APIKey         string
	APIVersion     string
	RequestTimeout time.Duration
	IdleTimeout    time.Duration
}

// RelayConfig tunes the itinerary stream relay. PreludeDelay is the pause
// between synthetic planning updates, HistoryLimit caps how many stored
// chat turns are replayed to the model per follow-up request.
type RelayConfig struct {
	PreludeDelay time.Duration
	HistoryLimit int
}

type AuthConfig struct {
	JWTSecret string
}

type Config struct {
	Repositories RepositoriesConfig
	LLM          LLMConfig
	Relay        RelayConfig
	Auth         AuthConfig
	ServerPort   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5438"),
				DB:       getEnvOrDefault("POSTGRES_DB", "tripflow"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		LLM: LLMConfig{
			Endpoint:       getEnvOrDefault("AZURE_OPENAI_ENDPOINT", ""),
			Deployment:     getEnvOrDefault("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4o"),
			APIKey:         getEnvOrDefault("AZURE_OPENAI_API_KEY", ""),
			APIVersion:     getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
			RequestTimeout: getEnvDuration("LLM_REQUEST_TIMEOUT", 5*time.Minute),
			IdleTimeout:    getEnvDuration("LLM_IDLE_TIMEOUT", 60*time.Second),
		},
		Relay: RelayConfig{
			PreludeDelay: getEnvDuration("RELAY_PRELUDE_DELAY", 500*time.Millisecond),
			HistoryLimit: getEnvInt("RELAY_HISTORY_LIMIT", 20),
		},
		Auth: AuthConfig{
			JWTSecret: getEnvOrDefault("JWT_SECRET", ""),
		},
		ServerPort: getEnvOrDefault("SERVER_PORT", "8091"),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
