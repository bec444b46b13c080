package models

import "time"

// BaseModel carries the numeric primary key and creation stamp shared by
// every persisted entity.
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}
