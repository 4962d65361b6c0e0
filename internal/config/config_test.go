package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_ENV",
		"OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "OPENROUTER_MODEL",
		"OPENROUTER_TEMPERATURE", "OPENROUTER_MAX_TOKENS", "OPENROUTER_TIMEOUT",
		"HTTP_REFERER", "X_TITLE",
		"DATABASE_URL", "SQLITE_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if !cfg.Development() {
		t.Fatal("expected development mode by default")
	}
	if cfg.Completion.Model != "deepseek/deepseek-r1:free" {
		t.Fatalf("unexpected model: %s", cfg.Completion.Model)
	}
	if cfg.Completion.BaseURL != "https://openrouter.ai/api/v1" {
		t.Fatalf("unexpected base URL: %s", cfg.Completion.BaseURL)
	}
	if cfg.Completion.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.Completion.Timeout)
	}
	if cfg.Completion.Enabled() {
		t.Fatal("completion should be disabled without an API key")
	}
	if cfg.Store.SQLitePath != "data/chatbot.db" {
		t.Fatalf("unexpected sqlite path: %s", cfg.Store.SQLitePath)
	}
}

func TestLoadPortForms(t *testing.T) {
	clearEnv(t)

	t.Setenv("PORT", "9090")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}

	t.Setenv("PORT", "127.0.0.1:7070")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7070" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}

	t.Setenv("PORT", "not a port")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid PORT")
	}
}

func TestLoadRejectsUnknownEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "staging")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown APP_ENV")
	}
}

func TestLoadProductionMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Development() {
		t.Fatal("expected production mode")
	}
}

func TestLoadOptionalOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("OPENROUTER_TEMPERATURE", "0.2")
	t.Setenv("OPENROUTER_MAX_TOKENS", "512")
	t.Setenv("OPENROUTER_TIMEOUT", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if !cfg.Completion.Enabled() {
		t.Fatal("completion should be enabled with an API key")
	}
	if cfg.Completion.Temperature == nil || *cfg.Completion.Temperature != 0.2 {
		t.Fatalf("temperature override lost: %v", cfg.Completion.Temperature)
	}
	if cfg.Completion.MaxTokens == nil || *cfg.Completion.MaxTokens != 512 {
		t.Fatalf("max tokens override lost: %v", cfg.Completion.MaxTokens)
	}
	if cfg.Completion.Timeout != 10*time.Second {
		t.Fatalf("timeout override lost: %s", cfg.Completion.Timeout)
	}
}

func TestLoadRejectsBadOverrides(t *testing.T) {
	clearEnv(t)

	t.Setenv("OPENROUTER_TEMPERATURE", "warm")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid temperature")
	}
	t.Setenv("OPENROUTER_TEMPERATURE", "")

	t.Setenv("OPENROUTER_TIMEOUT", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}
