package server_test

import (
	"testing"
	"time"

	"github.com/Andrvat/MultiUserChat/internal/server"
)

// TestNewConfigDefaults verifies a fresh configuration carries usable
// defaults for every setting.
func TestNewConfigDefaults(t *testing.T) {
	cfg := server.NewConfig()

	if cfg.ChatAddr == "" {
		t.Error("Default ChatAddr should not be empty")
	}
	if cfg.MaxMessageSize <= 0 {
		t.Error("Default MaxMessageSize should be positive")
	}
	if cfg.PasswordRotationInterval != 30*time.Second {
		t.Errorf("Default rotation interval should be 30s, got %s", cfg.PasswordRotationInterval)
	}
	if cfg.RateLimit.Burst <= 0 || cfg.RateLimit.RefillInterval <= 0 {
		t.Error("Default rate limit parameters should be positive")
	}
}

// TestNewConfigFromEnv verifies environment overrides and the fallback to
// defaults for unparsable values.
func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("CHAT_ADDR", ":5005")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example.com, http://b.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("PASSWORD_ROTATION_INTERVAL", "10")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")

	cfg := server.NewConfigFromEnv()

	if cfg.ChatAddr != ":5005" {
		t.Errorf("Expected ChatAddr :5005, got %q", cfg.ChatAddr)
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("Expected empty HTTPAddr to disable the gateway, got %q", cfg.HTTPAddr)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.example.com" {
		t.Errorf("Expected two trimmed origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("Expected MaxMessageSize 1024, got %d", cfg.MaxMessageSize)
	}
	if cfg.PasswordRotationInterval != 10*time.Second {
		t.Errorf("Expected rotation interval 10s, got %s", cfg.PasswordRotationInterval)
	}
	if cfg.RateLimit.Burst != 5 {
		t.Errorf("Unparsable burst should fall back to the default, got %d", cfg.RateLimit.Burst)
	}
}
