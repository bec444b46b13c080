package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/formdesk/server/internal/models"
	"github.com/formdesk/server/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CollaboratorView struct {
	ID        uint                    `json:"id"`
	FormID    uint                    `json:"form_id"`
	UserID    uint                    `json:"user_id"`
	Name      string                  `json:"name"`
	Email     string                  `json:"email"`
	Role      models.CollaboratorRole `json:"role"`
	CreatedAt time.Time               `json:"created_at"`
}

type CollaboratorService struct {
	DB     *gorm.DB
	Access *AccessService
}

func NewCollaboratorService(db *gorm.DB, access *AccessService) *CollaboratorService {
	return &CollaboratorService{DB: db, Access: access}
}

// Add grants the user with email a role on the form. Adding an existing
// collaborator changes their role in place.
func (s *CollaboratorService) Add(ctx context.Context, formID, ownerID uint, email string, role models.CollaboratorRole) (*CollaboratorView, error) {
	if _, _, err := s.Access.Authorize(ctx, formID, &ownerID, ActionManage); err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ValidationError("collaborator_email is required")
	}
	if role == "" {
		role = models.CollaboratorRoleViewer
	}
	if !role.Valid() {
		return nil, ValidationError("role must be editor or viewer")
	}

	db := s.DB.WithContext(ctx)
	var user models.User
	if err := db.Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("User not found")
		}
		return nil, StorageError("find collaborator user", err)
	}
	if user.ID == ownerID {
		return nil, ConflictError("Cannot add yourself as collaborator")
	}

	record := models.Collaborator{FormID: formID, UserID: user.ID, Role: role}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "form_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "created_at"}),
	}).Create(&record).Error
	if err != nil {
		return nil, StorageError("upsert collaborator", err)
	}

	var saved models.Collaborator
	if err := db.Where("form_id = ? AND user_id = ?", formID, user.ID).First(&saved).Error; err != nil {
		return nil, StorageError("reload collaborator", err)
	}

	logger.InfoWithUser(userIDString(ownerID), "collaborator_added", map[string]interface{}{
		"form_id":              formID,
		"collaborator_user_id": user.ID,
		"role":                 string(saved.Role),
	})

	return &CollaboratorView{
		ID:        saved.ID,
		FormID:    formID,
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      saved.Role,
		CreatedAt: saved.CreatedAt,
	}, nil
}

// Remove revokes the collaborator identified by their user id.
func (s *CollaboratorService) Remove(ctx context.Context, formID, ownerID, collaboratorUserID uint) error {
	if _, _, err := s.Access.Authorize(ctx, formID, &ownerID, ActionManage); err != nil {
		return err
	}

	result := s.DB.WithContext(ctx).
		Where("form_id = ? AND user_id = ?", formID, collaboratorUserID).
		Delete(&models.Collaborator{})
	if result.Error != nil {
		return StorageError("remove collaborator", result.Error)
	}
	if result.RowsAffected == 0 {
		return NotFoundError("Collaborator not found")
	}

	logger.InfoWithUser(userIDString(ownerID), "collaborator_removed", map[string]interface{}{
		"form_id":              formID,
		"collaborator_user_id": collaboratorUserID,
	})
	return nil
}

func (s *CollaboratorService) List(ctx context.Context, formID, userID uint) ([]CollaboratorView, error) {
	if _, _, err := s.Access.Authorize(ctx, formID, &userID, ActionListCollaborators); err != nil {
		return nil, err
	}

	var collaborators []models.Collaborator
	err := s.DB.WithContext(ctx).
		Preload("User").
		Where("form_id = ?", formID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&collaborators).Error
	if err != nil {
		return nil, StorageError("list collaborators", err)
	}

	views := make([]CollaboratorView, 0, len(collaborators))
	for _, c := range collaborators {
		views = append(views, CollaboratorView{
			ID:        c.ID,
			FormID:    c.FormID,
			UserID:    c.UserID,
			Name:      c.User.Name,
			Email:     c.User.Email,
			Role:      c.Role,
			CreatedAt: c.CreatedAt,
		})
	}
	return views, nil
}
