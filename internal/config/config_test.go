package config

import (
	"os"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if val, ok := os.LookupEnv(key); ok {
		t.Cleanup(func() { os.Setenv(key, val) })
	}
	os.Unsetenv(key)
}

func TestLoad(t *testing.T) {
	t.Run("returns config with defaults when no env vars set", func(t *testing.T) {
		for _, key := range []string{"DB_DRIVER", "DB_HOST", "DB_PORT", "SERVER_PORT", "JWT_EXPIRATION_HOURS", "FORMS_LOCK_POLICY", "RATE_LIMIT_WINDOW"} {
			unsetEnv(t, key)
		}

		cfg := Load()
		if cfg == nil {
			t.Fatal("expected non-nil config")
		}
		if cfg.DB.Driver != "postgres" {
			t.Errorf("expected DB.Driver 'postgres', got %s", cfg.DB.Driver)
		}
		if cfg.DB.Host != "localhost" {
			t.Errorf("expected DB.Host 'localhost', got %s", cfg.DB.Host)
		}
		if cfg.Server.Port != "3001" {
			t.Errorf("expected Server.Port '3001', got %s", cfg.Server.Port)
		}
		if cfg.JWT.ExpirationHours != 24 {
			t.Errorf("expected JWT.ExpirationHours 24, got %d", cfg.JWT.ExpirationHours)
		}
		if cfg.Forms.LockPolicy != LockPolicyAnyCollaborator {
			t.Errorf("expected lock policy %q, got %q", LockPolicyAnyCollaborator, cfg.Forms.LockPolicy)
		}
		if cfg.RateLimit.Window != 15*time.Minute {
			t.Errorf("expected RateLimit.Window 15m, got %v", cfg.RateLimit.Window)
		}
	})

	t.Run("reads environment variables", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "SQLite")
		t.Setenv("DB_SQLITE_PATH", "/tmp/forms.db")
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("JWT_SECRET", "my-secret")
		t.Setenv("JWT_EXPIRATION_HOURS", "48")
		t.Setenv("FORMS_LOCK_POLICY", "owner_only")
		t.Setenv("RATE_LIMIT_MAX", "5")

		cfg := Load()

		if cfg.DB.Driver != "sqlite" {
			t.Errorf("expected DB.Driver 'sqlite', got %s", cfg.DB.Driver)
		}
		if cfg.DB.SQLitePath != "/tmp/forms.db" {
			t.Errorf("expected DB.SQLitePath '/tmp/forms.db', got %s", cfg.DB.SQLitePath)
		}
		if cfg.Server.Port != "9090" {
			t.Errorf("expected Server.Port '9090', got %s", cfg.Server.Port)
		}
		if cfg.JWT.Secret != "my-secret" {
			t.Errorf("expected JWT.Secret 'my-secret', got %s", cfg.JWT.Secret)
		}
		if cfg.JWT.ExpirationHours != 48 {
			t.Errorf("expected JWT.ExpirationHours 48, got %d", cfg.JWT.ExpirationHours)
		}
		if cfg.Forms.LockPolicy != LockPolicyOwnerOnly {
			t.Errorf("expected lock policy %q, got %q", LockPolicyOwnerOnly, cfg.Forms.LockPolicy)
		}
		if cfg.RateLimit.Max != 5 {
			t.Errorf("expected RateLimit.Max 5, got %d", cfg.RateLimit.Max)
		}
	})

	t.Run("falls back on malformed values", func(t *testing.T) {
		t.Setenv("JWT_EXPIRATION_HOURS", "soon")
		t.Setenv("MINIO_USE_SSL", "maybe")
		t.Setenv("FORMS_LOCK_POLICY", "everyone")

		cfg := Load()

		if cfg.JWT.ExpirationHours != 24 {
			t.Errorf("expected JWT.ExpirationHours 24, got %d", cfg.JWT.ExpirationHours)
		}
		if cfg.MinIO.UseSSL {
			t.Error("expected MinIO.UseSSL false")
		}
		if cfg.Forms.LockPolicy != LockPolicyAnyCollaborator {
			t.Errorf("expected lock policy %q, got %q", LockPolicyAnyCollaborator, cfg.Forms.LockPolicy)
		}
	})
}

func TestExportLocation(t *testing.T) {
	if loc := (FormsConfig{ExportTimeZone: "UTC"}).ExportLocation(); loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %s", loc)
	}
	if loc := (FormsConfig{ExportTimeZone: "Nowhere/Special"}).ExportLocation(); loc != time.Local {
		t.Fatalf("expected fallback to local zone, got %s", loc)
	}
}
