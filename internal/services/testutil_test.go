package services

import (
	"io"
	"testing"

	"github.com/formdesk/server/internal/database"
	"github.com/formdesk/server/internal/models"
	"github.com/formdesk/server/pkg/logger"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.SetOutput(io.Discard)

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating models: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email, name string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "hash", Name: name}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user %s: %v", email, err)
	}
	return user
}

func createTestForm(t *testing.T, db *gorm.DB, owner *models.User, title string) *models.Form {
	t.Helper()
	form := &models.Form{Title: title, CreatedBy: owner.ID}
	if err := db.Create(form).Error; err != nil {
		t.Fatalf("failed creating form %s: %v", title, err)
	}
	return form
}

func createTestQuestion(t *testing.T, db *gorm.DB, form *models.Form, text string, qt models.QuestionType, order int) *models.Question {
	t.Helper()
	question := &models.Question{
		FormID:     form.ID,
		Text:       text,
		Type:       qt,
		Options:    models.EncodeOptions(nil),
		OrderIndex: order,
	}
	if err := db.Create(question).Error; err != nil {
		t.Fatalf("failed creating question %s: %v", text, err)
	}
	return question
}

func addTestCollaborator(t *testing.T, db *gorm.DB, form *models.Form, user *models.User, role models.CollaboratorRole) {
	t.Helper()
	collaborator := &models.Collaborator{FormID: form.ID, UserID: user.ID, Role: role}
	if err := db.Create(collaborator).Error; err != nil {
		t.Fatalf("failed adding collaborator %s: %v", user.Email, err)
	}
}

func strPtr(s string) *string {
	return &s
}

func uintPtr(v uint) *uint {
	return &v
}
