package models

type User struct {
	BaseModel
	Email        string `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"type:varchar(255);not null"`
	Name         string `json:"name" gorm:"type:varchar(255);not null"`
}

func (User) TableName() string {
	return "users"
}
