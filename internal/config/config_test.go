package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.TokenTTL != 24*time.Hour || !cfg.EmailVerification {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Storage.Type != "local" || cfg.Redis.TTL != 10*time.Minute {
		t.Fatalf("unexpected nested defaults %+v", cfg)
	}
}

func TestLoadCollectsErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TOKEN_TTL", "forever")
	t.Setenv("REDIS_DB", "one")
	t.Setenv("STORAGE_TYPE", "ftp")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"JWT_SECRET", "TOKEN_TTL", "REDIS_DB", "STORAGE_TYPE"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err)
		}
	}
}
