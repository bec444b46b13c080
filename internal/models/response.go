package models

import (
	"time"

	"gorm.io/datatypes"
)

// Response is one submission to a form. It is written once and only removed
// together with its form.
type Response struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FormID      uint      `json:"form_id" gorm:"not null;index"`
	UserID      *uint     `json:"user_id" gorm:"index"`
	SubmittedAt time.Time `json:"submitted_at" gorm:"not null;index"`

	User    *User    `json:"-" gorm:"foreignKey:UserID;references:ID"`
	Answers []Answer `json:"answers" gorm:"foreignKey:ResponseID;constraint:OnDelete:CASCADE"`
}

func (Response) TableName() string {
	return "responses"
}

// UserName is the respondent's display name, or "Anonymous".
func (r Response) UserName() string {
	if r.User == nil || r.User.Name == "" {
		return "Anonymous"
	}
	return r.User.Name
}

// AnswerFor returns the response's answer to questionID. See FindAnswer.
func (r Response) AnswerFor(questionID uint) *Answer {
	return FindAnswer(r.Answers, questionID)
}

// FindAnswer returns the first answer for questionID, or nil. Duplicate
// answers to one question are tolerated and only the first counts.
func FindAnswer(answers []Answer, questionID uint) *Answer {
	for i := range answers {
		if answers[i].QuestionID == questionID {
			return &answers[i]
		}
	}
	return nil
}

// Answer is a response's value for one question. Nothing enforces a single
// answer per (response, question); readers take the first match.
type Answer struct {
	BaseModel
	ResponseID    uint           `json:"response_id" gorm:"not null;index"`
	QuestionID    uint           `json:"question_id" gorm:"not null;index"`
	AnswerText    *string        `json:"answer_text" gorm:"type:text"`
	AnswerOptions datatypes.JSON `json:"answer_options"`

	Question *Question `json:"-" gorm:"foreignKey:QuestionID;references:ID"`
}

func (Answer) TableName() string {
	return "answers"
}
