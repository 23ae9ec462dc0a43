package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}

	if cfg.Catalog.BaseURL != "http://catalog.local" {
		t.Fatalf("unexpected catalog base URL: %q", cfg.Catalog.BaseURL)
	}

	if got := cfg.Catalog.SnapshotTTL; got != 30*time.Second {
		t.Fatalf("expected default snapshot TTL 30s, got %v", got)
	}

	if cfg.Checkout.DeliveryFee != 10 {
		t.Fatalf("expected default delivery fee 10, got %v", cfg.Checkout.DeliveryFee)
	}

	if cfg.Session.TTL() != 7*24*time.Hour {
		t.Fatalf("unexpected session TTL: %v", cfg.Session.TTL())
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_DeliveryFeeOverride(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvDeliveryFee, "25.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Checkout.DeliveryFee != 25.5 {
		t.Fatalf("expected delivery fee 25.5, got %v", cfg.Checkout.DeliveryFee)
	}
}

func TestMobileMoneyConfigured(t *testing.T) {
	cfg := MobileMoneyConfig{}
	if cfg.Configured() {
		t.Fatal("empty provider config should not report configured")
	}

	cfg = MobileMoneyConfig{
		BaseURL:        "https://payments.example.com",
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
	}
	if !cfg.Configured() {
		t.Fatal("fully populated provider config should report configured")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvCatalogBaseURL, "http://catalog.local")
	t.Setenv(EnvSessionSecret, "secret")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	dev := AppConfig{Env: "Development"}
	if !dev.IsDev() || dev.IsProd() {
		t.Fatalf("expected dev env helpers to match, got dev=%v prod=%v", dev.IsDev(), dev.IsProd())
	}

	prod := AppConfig{Env: "PRODUCTION"}
	if !prod.IsProd() || prod.IsDev() {
		t.Fatalf("expected prod env helpers to match, got dev=%v prod=%v", prod.IsDev(), prod.IsProd())
	}
}
