package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/formdesk/server/internal/config"
	"github.com/formdesk/server/internal/models"
	"github.com/formdesk/server/pkg/logger"
	"gorm.io/gorm"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleNone   Role = "none"
)

type Action string

const (
	// ActionRead and ActionSubmit are respondent actions: any authenticated
	// caller may perform them, and anonymous callers too when the form
	// allows unauthenticated access.
	ActionRead   Action = "read"
	ActionSubmit Action = "submit"

	ActionViewResponses     Action = "view_responses"
	ActionExport            Action = "export"
	ActionListCollaborators Action = "list_collaborators"
	ActionEdit              Action = "edit"
	ActionToggleLock        Action = "toggle_lock"
	ActionManage            Action = "manage_collaborators"
	ActionDelete            Action = "delete"
)

// Can decides whether role may perform a role-gated action. Respondent
// actions are not role-gated and always return true.
func Can(role Role, action Action, lockPolicy config.LockPolicy) bool {
	switch action {
	case ActionRead, ActionSubmit:
		return true
	case ActionViewResponses, ActionExport, ActionListCollaborators:
		return role != RoleNone && role != ""
	case ActionEdit:
		return role == RoleOwner || role == RoleEditor
	case ActionToggleLock:
		if lockPolicy == config.LockPolicyOwnerOnly {
			return role == RoleOwner
		}
		return role != RoleNone && role != ""
	case ActionManage, ActionDelete:
		return role == RoleOwner
	default:
		return false
	}
}

type AccessService struct {
	DB         *gorm.DB
	LockPolicy config.LockPolicy
}

func NewAccessService(db *gorm.DB, lockPolicy config.LockPolicy) *AccessService {
	if lockPolicy == "" {
		lockPolicy = config.LockPolicyAnyCollaborator
	}
	return &AccessService{DB: db, LockPolicy: lockPolicy}
}

// ResolveRole returns the caller's role on a form. Lookup failures resolve to
// RoleNone.
func (a *AccessService) ResolveRole(ctx context.Context, formID uint, userID *uint) Role {
	if userID == nil {
		return RoleNone
	}
	var form models.Form
	if err := a.DB.WithContext(ctx).Select("id", "created_by").First(&form, formID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("access_role_lookup_failed", err, map[string]interface{}{"form_id": formID})
		}
		return RoleNone
	}
	role, err := a.roleFor(ctx, &form, *userID)
	if err != nil {
		logger.Error("access_role_lookup_failed", err, map[string]interface{}{"form_id": formID})
		return RoleNone
	}
	return role
}

func (a *AccessService) HasAccess(ctx context.Context, formID uint, userID *uint) bool {
	return a.ResolveRole(ctx, formID, userID) != RoleNone
}

func (a *AccessService) CanEdit(ctx context.Context, formID uint, userID *uint) bool {
	return Can(a.ResolveRole(ctx, formID, userID), ActionEdit, a.LockPolicy)
}

func (a *AccessService) CanManage(ctx context.Context, formID uint, userID *uint) bool {
	return Can(a.ResolveRole(ctx, formID, userID), ActionManage, a.LockPolicy)
}

func (a *AccessService) CanToggleLock(ctx context.Context, formID uint, userID *uint) bool {
	return Can(a.ResolveRole(ctx, formID, userID), ActionToggleLock, a.LockPolicy)
}

// Authorize loads the form and checks, in order, that it exists, that it
// accepts submissions (for ActionSubmit), that the caller is authenticated
// when required, and that the caller's role permits the action.
func (a *AccessService) Authorize(ctx context.Context, formID uint, userID *uint, action Action) (*models.Form, Role, error) {
	var form models.Form
	if err := a.DB.WithContext(ctx).First(&form, formID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, RoleNone, NotFoundError("Form not found")
		}
		return nil, RoleNone, StorageError("load form", err)
	}

	if action == ActionSubmit && form.IsLocked {
		return nil, RoleNone, LockedError("Form is locked and not accepting responses")
	}

	if userID == nil {
		if (action == ActionRead || action == ActionSubmit) && form.AllowUnauthenticated {
			return &form, RoleNone, nil
		}
		return nil, RoleNone, AuthRequiredError(authRequiredMessage(action))
	}

	role, err := a.roleFor(ctx, &form, *userID)
	if err != nil {
		logger.ErrorWithUser(strconv.FormatUint(uint64(*userID), 10), "access_role_lookup_failed", err, map[string]interface{}{
			"form_id": formID,
			"action":  string(action),
		})
		role = RoleNone
	}

	if !Can(role, action, a.LockPolicy) {
		return nil, role, AccessDeniedError(deniedMessage(action))
	}
	return &form, role, nil
}

func (a *AccessService) roleFor(ctx context.Context, form *models.Form, userID uint) (Role, error) {
	if form.CreatedBy == userID {
		return RoleOwner, nil
	}

	var collaborator models.Collaborator
	err := a.DB.WithContext(ctx).
		Where("form_id = ? AND user_id = ?", form.ID, userID).
		First(&collaborator).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RoleNone, nil
	}
	if err != nil {
		return RoleNone, err
	}

	switch collaborator.Role {
	case models.CollaboratorRoleEditor:
		return RoleEditor, nil
	case models.CollaboratorRoleViewer:
		return RoleViewer, nil
	default:
		return RoleNone, nil
	}
}

func authRequiredMessage(action Action) string {
	switch action {
	case ActionRead:
		return "Authentication required to access this form"
	case ActionSubmit:
		return "Authentication required to submit this form"
	default:
		return "Authentication required"
	}
}

func deniedMessage(action Action) string {
	switch action {
	case ActionDelete:
		return "Only form owner can delete the form"
	case ActionManage:
		return "Only form owner can manage collaborators"
	default:
		return "Access denied"
	}
}
