package database

import (
	"path/filepath"
	"testing"

	"github.com/formdesk/server/internal/config"
	"github.com/formdesk/server/internal/models"
)

func TestConnectSQLite(t *testing.T) {
	cfg := config.DBConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "forms.sqlite"),
	}

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, model := range Models {
		if !db.Migrator().HasTable(model) {
			t.Errorf("expected table for %T", model)
		}
	}
	if !db.Migrator().HasIndex(&models.Answer{}, "idx_answers_response_question") {
		t.Error("expected idx_answers_response_question to exist")
	}

	t.Run("migrate is idempotent", func(t *testing.T) {
		if err := Migrate(db); err != nil {
			t.Fatalf("second Migrate returned error: %v", err)
		}
	})
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	if _, err := Connect(config.DBConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
