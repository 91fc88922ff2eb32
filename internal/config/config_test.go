package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "BATCH_SIZE", "FEEDBACK_INTERVAL", "GEMINI_API_KEY", "GEMENI_API_KEY", "TLS", "PUBLIC_HOST"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.BatchSize != 30 {
		t.Errorf("BatchSize = %d, want 30", cfg.BatchSize)
	}
	if cfg.FeedbackInterval != time.Minute {
		t.Errorf("FeedbackInterval = %v, want 1m", cfg.FeedbackInterval)
	}
	if cfg.GeminiAPIKey != "" {
		t.Errorf("GeminiAPIKey = %q, want empty", cfg.GeminiAPIKey)
	}
	if got := cfg.Host(); got != "localhost:8080" {
		t.Errorf("Host() = %q", got)
	}
	if cfg.WSScheme() != "ws" || cfg.HTTPScheme() != "http" {
		t.Errorf("schemes = %s/%s, want ws/http", cfg.WSScheme(), cfg.HTTPScheme())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMENI_API_KEY", "legacy")
	t.Setenv("BATCH_SIZE", "12")
	t.Setenv("HTTP_BATCH_SIZE", "-3")
	t.Setenv("THROW_DURATION", "1500")
	t.Setenv("REST_DURATION", "4s")
	t.Setenv("SESSION_TTL", "bogus")
	t.Setenv("TLS", "1")
	t.Setenv("PUBLIC_HOST", "coach.example.com")

	cfg := Load()
	if cfg.GeminiAPIKey != "legacy" {
		t.Errorf("GeminiAPIKey = %q, want legacy fallback", cfg.GeminiAPIKey)
	}
	if cfg.BatchSize != 12 {
		t.Errorf("BatchSize = %d, want 12", cfg.BatchSize)
	}
	if cfg.HTTPBatchSize != 5 {
		t.Errorf("HTTPBatchSize = %d, want default for negative input", cfg.HTTPBatchSize)
	}
	if cfg.ThrowDuration != 1500*time.Millisecond {
		t.Errorf("ThrowDuration = %v, want 1.5s", cfg.ThrowDuration)
	}
	if cfg.RestDuration != 4*time.Second {
		t.Errorf("RestDuration = %v, want 4s", cfg.RestDuration)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want default", cfg.SessionTTL)
	}
	if cfg.Host() != "coach.example.com" || cfg.WSScheme() != "wss" {
		t.Errorf("Host/WSScheme = %s/%s", cfg.Host(), cfg.WSScheme())
	}
}
