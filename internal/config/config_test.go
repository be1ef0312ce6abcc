package config

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_URL", "https://nebula.test/")
	t.Setenv("WEBHOOK_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("SIDE_EFFECT_TIMEOUT_SECONDS", "12")
	t.Setenv("PAYMENT_CURRENCY", "EUR")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.AppEnv != "development" {
		t.Fatalf("expected development, got %q", cfg.AppEnv)
	}
	if cfg.AppURL != "https://nebula.test" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.AppURL)
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("expected text log format in development, got %q", cfg.LogFormat)
	}
	if cfg.WebhookMaxAttempts != 5 {
		t.Fatalf("expected fallback of 5 attempts, got %d", cfg.WebhookMaxAttempts)
	}
	if cfg.SideEffectTimeout != 12*time.Second {
		t.Fatalf("expected 12s timeout, got %s", cfg.SideEffectTimeout)
	}
	if cfg.PaymentCurrency != "eur" {
		t.Fatalf("expected lowercase currency, got %q", cfg.PaymentCurrency)
	}
}

func TestNormalizeEnv(t *testing.T) {
	cases := map[string]string{
		"prod":    "production",
		" Local ": "development",
		"stage":   "staging",
		"testing": "test",
		"custom":  "custom",
	}
	for in, want := range cases {
		if got := normalizeEnv(in); got != want {
			t.Errorf("normalizeEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("FLAG_ON", "yes")
	t.Setenv("FLAG_BAD", "maybe")

	if !getEnvBool("FLAG_ON", false) {
		t.Fatalf("expected true")
	}
	if !getEnvBool("FLAG_BAD", true) {
		t.Fatalf("expected fallback for unparseable value")
	}
}
