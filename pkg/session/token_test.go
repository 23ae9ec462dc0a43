package session

import (
	"strings"
	"testing"
	"time"

	"github.com/dukahq/storefront-backend/pkg/config"
)

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:     "test-secret",
		Issuer:     "duka-storefront",
		TTLMinutes: 60,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testConfig()
	now := time.Now()

	token, id, err := Mint(cfg, now, "")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated session id")
	}

	parsed, err := Parse(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("expected session id %q, got %q", id, parsed)
	}
}

func TestMintPreservesExistingSession(t *testing.T) {
	cfg := testConfig()
	token, id, err := Mint(cfg, time.Now(), "existing-session")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if id != "existing-session" {
		t.Fatalf("expected existing session id preserved, got %q", id)
	}
	parsed, err := Parse(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != "existing-session" {
		t.Fatalf("unexpected parsed session %q", parsed)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	token, _, err := Mint(cfg, time.Now().Add(-2*time.Hour), "stale")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := Parse(cfg, token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := testConfig()
	token, _, err := Mint(cfg, time.Now(), "sess")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := Parse(other, token); err == nil {
		t.Fatal("expected issuer mismatch to be rejected")
	}
}

func TestMintValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Secret = " "
	if _, _, err := Mint(cfg, time.Now(), ""); err == nil || !strings.Contains(err.Error(), "secret") {
		t.Fatalf("expected secret error, got %v", err)
	}
}
