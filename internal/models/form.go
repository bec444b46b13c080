package models

import "time"

type Form struct {
	BaseModel
	Title                string    `json:"title" gorm:"type:varchar(255);not null"`
	Description          string    `json:"description" gorm:"type:text"`
	AllowUnauthenticated bool      `json:"allow_unauthenticated" gorm:"not null"`
	IsLocked             bool      `json:"is_locked" gorm:"not null"`
	CreatedBy            uint      `json:"created_by" gorm:"not null;index"`
	UpdatedAt            time.Time `json:"updated_at" gorm:"not null"`

	Owner         User           `json:"-" gorm:"foreignKey:CreatedBy;references:ID"`
	Questions     []Question     `json:"questions" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
	Collaborators []Collaborator `json:"-" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
	Responses     []Response     `json:"-" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
}

func (Form) TableName() string {
	return "forms"
}
