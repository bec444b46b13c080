package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/formdesk/server/internal/models"
	"github.com/formdesk/server/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnswerInput is one submitted answer. AnswerOptions is kept as raw JSON:
// clients send a list for checkbox questions and a scalar elsewhere.
type AnswerInput struct {
	QuestionID    uint            `json:"questionId"`
	AnswerText    *string         `json:"answerText"`
	AnswerOptions json.RawMessage `json:"answerOptions"`
}

func (a AnswerInput) options() datatypes.JSON {
	raw := bytes.TrimSpace(a.AnswerOptions)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return datatypes.JSON(raw)
}

type AnswerView struct {
	QuestionID    uint                `json:"question_id"`
	QuestionText  string              `json:"question_text"`
	QuestionType  models.QuestionType `json:"question_type"`
	AnswerText    *string             `json:"answer_text"`
	AnswerOptions datatypes.JSON      `json:"answer_options"`
}

type ResponseView struct {
	ID          uint         `json:"id"`
	FormID      uint         `json:"form_id"`
	UserID      *uint        `json:"user_id"`
	UserName    string       `json:"user_name"`
	SubmittedAt time.Time    `json:"submitted_at"`
	Answers     []AnswerView `json:"answers"`
}

type ResponseCompletion struct {
	ResponseID  uint      `json:"response_id"`
	UserName    string    `json:"user_name"`
	SubmittedAt time.Time `json:"submitted_at"`
	Completion
}

type FormStats struct {
	FormID                uint                 `json:"form_id"`
	TotalResponses        int                  `json:"total_responses"`
	TotalQuestions        int                  `json:"total_questions"`
	AverageCompletionRate float64              `json:"average_completion_rate"`
	IndividualResponses   []ResponseCompletion `json:"individual_responses"`
}

// ExportSource is everything the spreadsheet export needs about one form.
type ExportSource struct {
	Form      *models.Form
	Questions []models.Question
	Responses []models.Response
}

type ResponseService struct {
	DB     *gorm.DB
	Access *AccessService
}

func NewResponseService(db *gorm.DB, access *AccessService) *ResponseService {
	return &ResponseService{DB: db, Access: access}
}

// Submit records a response and its answers atomically. userID is nil for
// anonymous submissions.
func (s *ResponseService) Submit(ctx context.Context, formID uint, userID *uint, answers []AnswerInput) (*models.Response, error) {
	if _, _, err := s.Access.Authorize(ctx, formID, userID, ActionSubmit); err != nil {
		return nil, err
	}

	questions, err := listQuestions(s.DB.WithContext(ctx), formID)
	if err != nil {
		return nil, StorageError("load questions", err)
	}

	stored := make([]models.Answer, 0, len(answers))
	for _, answer := range answers {
		stored = append(stored, models.Answer{
			QuestionID:    answer.QuestionID,
			AnswerText:    answer.AnswerText,
			AnswerOptions: answer.options(),
		})
	}
	if err := validateSubmission(questions, answers, stored); err != nil {
		return nil, err
	}

	response := &models.Response{
		FormID:      formID,
		UserID:      userID,
		SubmittedAt: time.Now().UTC(),
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Answers").Create(response).Error; err != nil {
			return fmt.Errorf("create response: %w", err)
		}
		for i := range stored {
			stored[i].ResponseID = response.ID
			if err := tx.Create(&stored[i]).Error; err != nil {
				return fmt.Errorf("create answer for question %d: %w", stored[i].QuestionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, StorageError("submit response", err)
	}
	response.Answers = stored

	details := map[string]interface{}{
		"form_id":      formID,
		"response_id":  response.ID,
		"answer_count": len(stored),
	}
	if userID != nil {
		logger.InfoWithUser(userIDString(*userID), "response_submitted", details)
	} else {
		logger.Info("response_submitted", details)
	}
	return response, nil
}

// validateSubmission rejects answers to questions outside the form, malformed
// option payloads and unanswered required questions, listing every problem.
func validateSubmission(questions []models.Question, inputs []AnswerInput, answers []models.Answer) error {
	known := make(map[uint]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}

	var details []string
	for i, input := range inputs {
		if _, ok := known[input.QuestionID]; !ok {
			details = append(details, fmt.Sprintf("Question %d does not belong to this form", input.QuestionID))
			continue
		}
		if raw := answers[i].AnswerOptions; raw != nil && !json.Valid(raw) {
			details = append(details, fmt.Sprintf("Answer options for question %d are not valid JSON", input.QuestionID))
		}
	}
	for _, q := range questions {
		if q.IsRequired && !IsAnswered(models.FindAnswer(answers, q.ID)) {
			details = append(details, fmt.Sprintf("Question %q is required", q.Text))
		}
	}

	if len(details) > 0 {
		return ValidationError("Validation failed", details...)
	}
	return nil
}

// Page selects a window of a listing. Number is 1-based.
type Page struct {
	Number int
	Limit  int
}

func (p Page) offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// List returns one page of a form's responses, newest first, with the total
// response count.
func (s *ResponseService) List(ctx context.Context, formID, userID uint, page Page) ([]ResponseView, int64, error) {
	if _, _, err := s.Access.Authorize(ctx, formID, &userID, ActionViewResponses); err != nil {
		return nil, 0, err
	}

	total, err := s.ResponseCount(ctx, formID)
	if err != nil {
		return nil, 0, StorageError("count responses", err)
	}

	query := s.DB.WithContext(ctx)
	if page.Limit > 0 {
		query = query.Limit(page.Limit).Offset(page.offset())
	}
	responses, err := loadResponses(query, formID)
	if err != nil {
		return nil, 0, StorageError("load responses", err)
	}

	views := make([]ResponseView, 0, len(responses))
	for _, response := range responses {
		views = append(views, toResponseView(response))
	}
	return views, total, nil
}

func (s *ResponseService) Get(ctx context.Context, formID, responseID, userID uint) (*ResponseView, error) {
	if _, _, err := s.Access.Authorize(ctx, formID, &userID, ActionViewResponses); err != nil {
		return nil, err
	}

	var response models.Response
	err := preloadResponse(s.DB.WithContext(ctx)).
		Where("id = ? AND form_id = ?", responseID, formID).
		First(&response).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError("Response not found")
	}
	if err != nil {
		return nil, StorageError("load response", err)
	}

	view := toResponseView(response)
	return &view, nil
}

// Stats computes the per-response completion table and its average.
func (s *ResponseService) Stats(ctx context.Context, formID, userID uint) (*FormStats, error) {
	if _, _, err := s.Access.Authorize(ctx, formID, &userID, ActionViewResponses); err != nil {
		return nil, err
	}
	return s.statsFor(ctx, formID)
}

func (s *ResponseService) statsFor(ctx context.Context, formID uint) (*FormStats, error) {
	db := s.DB.WithContext(ctx)
	questions, err := listQuestions(db, formID)
	if err != nil {
		return nil, StorageError("load questions", err)
	}
	responses, err := loadResponses(db, formID)
	if err != nil {
		return nil, StorageError("load responses", err)
	}

	stats := &FormStats{
		FormID:                formID,
		TotalResponses:        len(responses),
		TotalQuestions:        len(questions),
		AverageCompletionRate: AverageCompletionRate(questions, responses),
		IndividualResponses:   make([]ResponseCompletion, 0, len(responses)),
	}
	for _, response := range responses {
		stats.IndividualResponses = append(stats.IndividualResponses, ResponseCompletion{
			ResponseID:  response.ID,
			UserName:    response.UserName(),
			SubmittedAt: response.SubmittedAt,
			Completion:  ComputeResponseCompletion(questions, response),
		})
	}
	return stats, nil
}

// ExportSource loads a form with its questions and responses for export.
func (s *ResponseService) ExportSource(ctx context.Context, formID, userID uint) (*ExportSource, error) {
	form, _, err := s.Access.Authorize(ctx, formID, &userID, ActionExport)
	if err != nil {
		return nil, err
	}
	return s.LoadExportSource(ctx, form)
}

// LoadExportSource skips access checks; it serves the operator CLI.
func (s *ResponseService) LoadExportSource(ctx context.Context, form *models.Form) (*ExportSource, error) {
	db := s.DB.WithContext(ctx)
	questions, err := listQuestions(db, form.ID)
	if err != nil {
		return nil, StorageError("load questions", err)
	}
	responses, err := loadResponses(db, form.ID)
	if err != nil {
		return nil, StorageError("load responses", err)
	}
	return &ExportSource{Form: form, Questions: questions, Responses: responses}, nil
}

func (s *ResponseService) ResponseCount(ctx context.Context, formID uint) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Response{}).Where("form_id = ?", formID).Count(&count).Error
	return count, err
}

// LastResponseDate returns the newest submitted_at, or nil without responses.
func (s *ResponseService) LastResponseDate(ctx context.Context, formID uint) (*time.Time, error) {
	var latest []models.Response
	err := s.DB.WithContext(ctx).
		Select("id", "submitted_at").
		Where("form_id = ?", formID).
		Order("submitted_at DESC").
		Limit(1).
		Find(&latest).Error
	if err != nil || len(latest) == 0 {
		return nil, err
	}
	return &latest[0].SubmittedAt, nil
}

// FormCompletionRate is the dashboard completion percentage of a form.
func (s *ResponseService) FormCompletionRate(ctx context.Context, formID uint) (int, error) {
	db := s.DB.WithContext(ctx)
	questions, err := listQuestions(db, formID)
	if err != nil {
		return 0, err
	}
	if len(questions) == 0 {
		return 0, nil
	}
	responses, err := loadResponses(db, formID)
	if err != nil {
		return 0, err
	}
	return FormCompletionPercent(questions, responses), nil
}

func preloadResponse(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.id ASC")
		}).
		Preload("Answers.Question")
}

func loadResponses(db *gorm.DB, formID uint) ([]models.Response, error) {
	var responses []models.Response
	err := preloadResponse(db).
		Where("form_id = ?", formID).
		Order("submitted_at DESC").
		Order("id DESC").
		Find(&responses).Error
	return responses, err
}

func toResponseView(response models.Response) ResponseView {
	view := ResponseView{
		ID:          response.ID,
		FormID:      response.FormID,
		UserID:      response.UserID,
		UserName:    response.UserName(),
		SubmittedAt: response.SubmittedAt,
		Answers:     make([]AnswerView, 0, len(response.Answers)),
	}
	for _, answer := range response.Answers {
		item := AnswerView{
			QuestionID:    answer.QuestionID,
			AnswerText:    answer.AnswerText,
			AnswerOptions: answer.AnswerOptions,
		}
		if answer.Question != nil {
			item.QuestionText = answer.Question.Text
			item.QuestionType = answer.Question.Type
		}
		view.Answers = append(view.Answers, item)
	}
	return view
}
