package models

type CollaboratorRole string

const (
	CollaboratorRoleEditor CollaboratorRole = "editor"
	CollaboratorRoleViewer CollaboratorRole = "viewer"
)

func (r CollaboratorRole) Valid() bool {
	return r == CollaboratorRoleEditor || r == CollaboratorRoleViewer
}

// Collaborator grants a non-owner user access to a form. (FormID, UserID) is
// unique; re-adding a user changes the role in place.
type Collaborator struct {
	BaseModel
	FormID uint             `json:"form_id" gorm:"not null;index;uniqueIndex:idx_collaborator_form_user"`
	UserID uint             `json:"user_id" gorm:"not null;index;uniqueIndex:idx_collaborator_form_user"`
	Role   CollaboratorRole `json:"role" gorm:"type:varchar(20);not null"`
	User   User             `json:"-" gorm:"foreignKey:UserID;references:ID"`
}

func (Collaborator) TableName() string {
	return "collaborators"
}
