package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/formdesk/server/internal/models"
	"github.com/formdesk/server/pkg/logger"
	"gorm.io/gorm"
)

type CreateFormInput struct {
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	AllowUnauthenticated bool            `json:"allow_unauthenticated"`
	Questions            []QuestionInput `json:"questions"`
}

// UpdateFormInput carries a partial update. Nil fields are left unchanged;
// a non-nil Questions slice (even an empty one) replaces the question set.
type UpdateFormInput struct {
	Title                *string         `json:"title"`
	Description          *string         `json:"description"`
	AllowUnauthenticated *bool           `json:"allow_unauthenticated"`
	IsLocked             *bool           `json:"is_locked"`
	Questions            []QuestionInput `json:"questions"`
}

// FormView is a form with its ordered questions and the caller's permissions.
type FormView struct {
	*models.Form
	CanEdit          bool                     `json:"can_edit"`
	CollaboratorRole *models.CollaboratorRole `json:"collaborator_role"`
	IsCollaborator   bool                     `json:"is_collaborator"`
}

// FormSummary is one dashboard row.
type FormSummary struct {
	ID                   uint                     `json:"id"`
	Title                string                   `json:"title"`
	Description          string                   `json:"description"`
	AllowUnauthenticated bool                     `json:"allow_unauthenticated"`
	IsLocked             bool                     `json:"is_locked"`
	CreatedBy            uint                     `json:"created_by"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
	UserRole             Role                     `json:"user_role"`
	CollaboratorRole     *models.CollaboratorRole `json:"collaborator_role"`
	IsCollaborator       bool                     `json:"is_collaborator"`
	CanEdit              bool                     `json:"can_edit"`
	ResponseCount        int64                    `json:"response_count"`
	CompletionRate       int                      `json:"completion_rate"`
	LastResponse         *time.Time               `json:"last_response"`
}

type FormService struct {
	DB        *gorm.DB
	Access    *AccessService
	Questions *QuestionService
	Responses *ResponseService
}

func NewFormService(db *gorm.DB, access *AccessService, questions *QuestionService, responses *ResponseService) *FormService {
	return &FormService{DB: db, Access: access, Questions: questions, Responses: responses}
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ValidationError("Form title is required")
	}
	return nil
}

// Create stores a form and its initial questions in one transaction.
func (s *FormService) Create(ctx context.Context, userID uint, input CreateFormInput) (*models.Form, error) {
	if err := validateTitle(input.Title); err != nil {
		return nil, err
	}
	if err := ValidateQuestions(input.Questions); err != nil {
		return nil, err
	}

	form := &models.Form{
		Title:                strings.TrimSpace(input.Title),
		Description:          input.Description,
		AllowUnauthenticated: input.AllowUnauthenticated,
		CreatedBy:            userID,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(form).Error; err != nil {
			return fmt.Errorf("create form: %w", err)
		}
		questions, err := s.Questions.CreateBatchTx(tx, form.ID, input.Questions)
		if err != nil {
			return err
		}
		form.Questions = questions
		return nil
	})
	if err != nil {
		return nil, StorageError("create form", err)
	}

	logger.InfoWithUser(userIDString(userID), "form_created", map[string]interface{}{
		"form_id":        form.ID,
		"question_count": len(form.Questions),
	})
	return form, nil
}

// Get returns the form for a respondent or collaborator. Anonymous callers
// are served only when the form allows unauthenticated access.
func (s *FormService) Get(ctx context.Context, formID uint, userID *uint) (*FormView, error) {
	form, role, err := s.Access.Authorize(ctx, formID, userID, ActionRead)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, form, role)
}

func (s *FormService) view(ctx context.Context, form *models.Form, role Role) (*FormView, error) {
	questions, err := s.Questions.ListByForm(ctx, form.ID)
	if err != nil {
		return nil, StorageError("load questions", err)
	}
	if questions == nil {
		questions = []models.Question{}
	}
	form.Questions = questions

	view := &FormView{Form: form, CanEdit: Can(role, ActionEdit, s.Access.LockPolicy)}
	if collaboratorRole, ok := collaboratorRoleOf(role); ok {
		view.CollaboratorRole = &collaboratorRole
		view.IsCollaborator = true
	}
	return view, nil
}

// Update applies a partial update. Questions are reconciled first and the
// form fields are written in the same transaction, so a failed
// reconciliation leaves the form untouched.
func (s *FormService) Update(ctx context.Context, formID, userID uint, input UpdateFormInput) (*FormView, error) {
	form, role, err := s.Access.Authorize(ctx, formID, &userID, ActionEdit)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if err := validateTitle(*input.Title); err != nil {
			return nil, err
		}
	}
	if input.Questions != nil {
		if err := ValidateQuestions(input.Questions); err != nil {
			return nil, err
		}
	}
	if input.IsLocked != nil && *input.IsLocked != form.IsLocked && !Can(role, ActionToggleLock, s.Access.LockPolicy) {
		return nil, AccessDeniedError("Only form owner can lock or unlock the form")
	}

	fields := map[string]interface{}{"updated_at": time.Now().UTC()}
	if input.Title != nil {
		fields["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.AllowUnauthenticated != nil {
		fields["allow_unauthenticated"] = *input.AllowUnauthenticated
	}
	if input.IsLocked != nil {
		fields["is_locked"] = *input.IsLocked
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.Questions != nil {
			if _, err := s.Questions.ReconcileTx(tx, formID, input.Questions); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Form{}).Where("id = ?", formID).Updates(fields).Error; err != nil {
			return fmt.Errorf("update form fields: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, StorageError("update form", err)
	}

	logger.InfoWithUser(userIDString(userID), "form_updated", map[string]interface{}{
		"form_id":              formID,
		"questions_reconciled": input.Questions != nil,
		"question_count":       len(input.Questions),
	})

	var updated models.Form
	if err := s.DB.WithContext(ctx).First(&updated, formID).Error; err != nil {
		return nil, StorageError("reload form", err)
	}
	return s.view(ctx, &updated, role)
}

// ReorderQuestions rewrites order_index from the id list without touching
// question content.
func (s *FormService) ReorderQuestions(ctx context.Context, formID, userID uint, questionIDs []uint) ([]models.Question, error) {
	if _, _, err := s.Access.Authorize(ctx, formID, &userID, ActionEdit); err != nil {
		return nil, err
	}
	if len(questionIDs) == 0 {
		return nil, ValidationError("question_ids must not be empty")
	}
	return s.Questions.Reorder(ctx, formID, questionIDs)
}

// SetLock locks or unlocks a form. A nil locked flips the current state.
func (s *FormService) SetLock(ctx context.Context, formID, userID uint, locked *bool) (*models.Form, error) {
	form, _, err := s.Access.Authorize(ctx, formID, &userID, ActionToggleLock)
	if err != nil {
		return nil, err
	}

	next := !form.IsLocked
	if locked != nil {
		next = *locked
	}

	err = s.DB.WithContext(ctx).Model(form).Updates(map[string]interface{}{
		"is_locked":  next,
		"updated_at": time.Now().UTC(),
	}).Error
	if err != nil {
		return nil, StorageError("update form lock", err)
	}
	form.IsLocked = next

	logger.InfoWithUser(userIDString(userID), "form_lock_changed", map[string]interface{}{
		"form_id":   formID,
		"is_locked": next,
	})
	return form, nil
}

// Delete removes a form with its answers, responses, questions and
// collaborators in one transaction.
func (s *FormService) Delete(ctx context.Context, formID, userID uint) error {
	if _, _, err := s.Access.Authorize(ctx, formID, &userID, ActionDelete); err != nil {
		return err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		responseIDs := tx.Model(&models.Response{}).Select("id").Where("form_id = ?", formID)
		questionIDs := tx.Model(&models.Question{}).Select("id").Where("form_id = ?", formID)
		if err := tx.Where("response_id IN (?) OR question_id IN (?)", responseIDs, questionIDs).Delete(&models.Answer{}).Error; err != nil {
			return fmt.Errorf("delete answers: %w", err)
		}
		if err := tx.Where("form_id = ?", formID).Delete(&models.Response{}).Error; err != nil {
			return fmt.Errorf("delete responses: %w", err)
		}
		if err := tx.Where("form_id = ?", formID).Delete(&models.Question{}).Error; err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := tx.Where("form_id = ?", formID).Delete(&models.Collaborator{}).Error; err != nil {
			return fmt.Errorf("delete collaborators: %w", err)
		}
		if err := tx.Delete(&models.Form{}, formID).Error; err != nil {
			return fmt.Errorf("delete form: %w", err)
		}
		return nil
	})
	if err != nil {
		return StorageError("delete form", err)
	}

	logger.InfoWithUser(userIDString(userID), "form_deleted", map[string]interface{}{"form_id": formID})
	return nil
}

// ListForUser returns the dashboard: forms the user owns or collaborates on,
// most recently updated first. Each form's statistics are computed
// independently; a failure degrades that form's figures to zero values.
func (s *FormService) ListForUser(ctx context.Context, userID uint) ([]FormSummary, error) {
	db := s.DB.WithContext(ctx)

	var collaborations []models.Collaborator
	if err := db.Where("user_id = ?", userID).Find(&collaborations).Error; err != nil {
		return nil, StorageError("load collaborations", err)
	}
	roles := make(map[uint]models.CollaboratorRole, len(collaborations))
	formIDs := make([]uint, 0, len(collaborations))
	for _, c := range collaborations {
		roles[c.FormID] = c.Role
		formIDs = append(formIDs, c.FormID)
	}

	query := db.Where("created_by = ?", userID)
	if len(formIDs) > 0 {
		query = query.Or("id IN ?", formIDs)
	}
	var forms []models.Form
	if err := query.Order("updated_at DESC").Order("id DESC").Find(&forms).Error; err != nil {
		return nil, StorageError("list forms", err)
	}

	summaries := make([]FormSummary, 0, len(forms))
	for _, form := range forms {
		role := RoleOwner
		if form.CreatedBy != userID {
			switch roles[form.ID] {
			case models.CollaboratorRoleEditor:
				role = RoleEditor
			case models.CollaboratorRoleViewer:
				role = RoleViewer
			default:
				role = RoleNone
			}
		}

		summary := FormSummary{
			ID:                   form.ID,
			Title:                form.Title,
			Description:          form.Description,
			AllowUnauthenticated: form.AllowUnauthenticated,
			IsLocked:             form.IsLocked,
			CreatedBy:            form.CreatedBy,
			CreatedAt:            form.CreatedAt,
			UpdatedAt:            form.UpdatedAt,
			UserRole:             role,
			CanEdit:              Can(role, ActionEdit, s.Access.LockPolicy),
		}
		if collaboratorRole, ok := collaboratorRoleOf(role); ok {
			summary.CollaboratorRole = &collaboratorRole
			summary.IsCollaborator = true
		}
		s.fillStats(ctx, &summary)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *FormService) fillStats(ctx context.Context, summary *FormSummary) {
	details := map[string]interface{}{"form_id": summary.ID}

	if count, err := s.Responses.ResponseCount(ctx, summary.ID); err != nil {
		logger.Error("form_stats_failed", err, withStat(details, "response_count"))
	} else {
		summary.ResponseCount = count
	}

	if rate, err := s.Responses.FormCompletionRate(ctx, summary.ID); err != nil {
		logger.Error("form_stats_failed", err, withStat(details, "completion_rate"))
	} else {
		summary.CompletionRate = rate
	}

	if last, err := s.Responses.LastResponseDate(ctx, summary.ID); err != nil {
		logger.Error("form_stats_failed", err, withStat(details, "last_response"))
	} else {
		summary.LastResponse = last
	}
}

func withStat(details map[string]interface{}, stat string) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out["stat"] = stat
	return out
}

func collaboratorRoleOf(role Role) (models.CollaboratorRole, bool) {
	switch role {
	case RoleEditor:
		return models.CollaboratorRoleEditor, true
	case RoleViewer:
		return models.CollaboratorRoleViewer, true
	default:
		return "", false
	}
}

func userIDString(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
