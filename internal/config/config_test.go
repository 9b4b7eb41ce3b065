package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "FRONTEND_URL", "DB_PATH", "MEMORY_WINDOW_SIZE",
		"GENERATION_TIMEOUT_SECONDS", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"OPENAI_MODEL", "TRANSCRIPT_ENABLED", "TRANSCRIPT_DIR",
		"TRANSCRIPT_QUEUE_SIZE",
	} {
		// t.Setenv registers the restore; unsetting afterwards lets the
		// loader see the variable as absent so defaults apply.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DBPath != "./data/parlo.db" {
		t.Errorf("Unexpected default db path: %s", cfg.DBPath)
	}
	if cfg.MemoryWindowSize != 20 {
		t.Errorf("Expected default window size 20, got %d", cfg.MemoryWindowSize)
	}
	if cfg.GenerationTimeout != 60*time.Second {
		t.Errorf("Expected default timeout 60s, got %v", cfg.GenerationTimeout)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("Expected default model gpt-4o, got %s", cfg.OpenAI.Model)
	}
	if !cfg.Transcript.Enabled {
		t.Error("Expected transcripts enabled by default")
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); err == nil {
		t.Error("Expected error when OPENAI_API_KEY is missing")
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("PORT", "9090")
	t.Setenv("MEMORY_WINDOW_SIZE", "6")
	t.Setenv("GENERATION_TIMEOUT_SECONDS", "15")
	t.Setenv("TRANSCRIPT_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.MemoryWindowSize != 6 {
		t.Errorf("Expected window size 6, got %d", cfg.MemoryWindowSize)
	}
	if cfg.GenerationTimeout != 15*time.Second {
		t.Errorf("Expected timeout 15s, got %v", cfg.GenerationTimeout)
	}
	if cfg.Transcript.Enabled {
		t.Error("Expected transcripts disabled")
	}
}

func TestLoad_InvalidWindowSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("MEMORY_WINDOW_SIZE", "0")

	if _, err := Load(); err == nil {
		t.Error("Expected error for zero window size")
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		frontendURL string
		want        bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:3000", true},
		{"https://parlo.example.com", false},
	}
	for _, tt := range tests {
		cfg := &Config{FrontendURL: tt.frontendURL}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tt.frontendURL, got, tt.want)
		}
	}
}
