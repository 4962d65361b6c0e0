package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all service configuration.
type Config struct {
	Server     ServerConfig
	Env        string
	Completion CompletionConfig
	Store      StoreConfig
}

// Development reports whether the service runs in development mode, which
// allows raw upstream error details in HTTP responses.
func (c *Config) Development() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	env := getEnvOrDefault("APP_ENV", "development")
	if env != "development" && env != "production" {
		return nil, fmt.Errorf("invalid APP_ENV value: %q", env)
	}

	comp, err := loadCompletionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		Env:        env,
		Completion: comp,
		Store:      loadStoreConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// CompletionConfig describes the upstream completion API.
type CompletionConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Referer     string
	Title       string
	Temperature *float64
	MaxTokens   *int
	Timeout     time.Duration
}

// Enabled reports whether the required API key is present.
func (c CompletionConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadCompletionConfig() (CompletionConfig, error) {
	temperature, err := parseOptionalFloatEnv("OPENROUTER_TEMPERATURE")
	if err != nil {
		return CompletionConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("OPENROUTER_MAX_TOKENS")
	if err != nil {
		return CompletionConfig{}, err
	}

	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("OPENROUTER_TIMEOUT"); err != nil {
		return CompletionConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return CompletionConfig{}, fmt.Errorf("invalid OPENROUTER_TIMEOUT value: %d", *override)
		}
		timeoutSeconds = *override
	}

	return CompletionConfig{
		APIKey:      strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		BaseURL:     getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		Model:       getEnvOrDefault("OPENROUTER_MODEL", "deepseek/deepseek-r1:free"),
		Referer:     getEnvOrDefault("HTTP_REFERER", "https://www.webstylepress.com"),
		Title:       getEnvOrDefault("X_TITLE", "WebStylePress"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// StoreConfig describes message persistence. DATABASE_URL selects Postgres;
// otherwise the local SQLite file is used.
type StoreConfig struct {
	DatabaseURL string
	SQLitePath  string
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "data/chatbot.db"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
