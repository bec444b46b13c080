package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/formdesk/server/internal/models"
	"gorm.io/gorm"
)

// QuestionInput is one item of an incoming question list. An ID that is a
// positive JSON number naming an existing question updates it; anything else
// (absent, null, a string such as a client-side temporary key) creates a new
// question.
type QuestionInput struct {
	ID         json.RawMessage     `json:"id,omitempty"`
	Text       string              `json:"text"`
	Type       models.QuestionType `json:"type"`
	IsRequired bool                `json:"is_required"`
	Options    []any               `json:"options"`
	ImageURL   *string             `json:"image_url"`
}

// NumericID returns the item's id when it is a positive integral JSON number.
func (q QuestionInput) NumericID() (uint, bool) {
	raw := bytes.TrimSpace(q.ID)
	if len(raw) == 0 {
		return 0, false
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	number, ok := value.(float64)
	if !ok || number < 1 || number != math.Trunc(number) || number > math.MaxUint32 {
		return 0, false
	}
	return uint(number), true
}

// ValidateQuestions checks a whole batch and reports every violation.
func ValidateQuestions(inputs []QuestionInput) error {
	var details []string
	seen := make(map[uint]int, len(inputs))

	for i, input := range inputs {
		position := i + 1
		if strings.TrimSpace(input.Text) == "" {
			details = append(details, fmt.Sprintf("Question %d text is required", position))
		}
		if !input.Type.Valid() {
			details = append(details, fmt.Sprintf("Invalid question type for question %d", position))
		} else if input.Type.HasChoices() && len(input.Options) == 0 {
			details = append(details, fmt.Sprintf("Options are required for %s question %d", input.Type, position))
		}
		if id, ok := input.NumericID(); ok {
			if first, dup := seen[id]; dup {
				details = append(details, fmt.Sprintf("Question %d repeats the id of question %d", position, first))
			} else {
				seen[id] = position
			}
		}
	}

	if len(details) > 0 {
		return ValidationError("Validation failed", details...)
	}
	return nil
}

type QuestionUpdate struct {
	ID       uint
	Position int
	Input    QuestionInput
}

type QuestionInsert struct {
	Position int
	Input    QuestionInput
}

// ReconcilePlan is the set of writes that turns the persisted questions of a
// form into the incoming list.
type ReconcilePlan struct {
	Deletes []uint
	Updates []QuestionUpdate
	Inserts []QuestionInsert
}

// PlanReconcile diffs incoming against existing. Existing questions whose id
// is absent from incoming are deleted; incoming items naming an existing id
// update it; the rest are inserted. Positions are 0-based list indexes.
func PlanReconcile(existing []models.Question, incoming []QuestionInput) ReconcilePlan {
	existingIDs := make(map[uint]struct{}, len(existing))
	for _, q := range existing {
		existingIDs[q.ID] = struct{}{}
	}

	var plan ReconcilePlan
	kept := make(map[uint]struct{}, len(incoming))
	for position, input := range incoming {
		if id, ok := input.NumericID(); ok {
			if _, exists := existingIDs[id]; exists {
				kept[id] = struct{}{}
				plan.Updates = append(plan.Updates, QuestionUpdate{ID: id, Position: position, Input: input})
				continue
			}
		}
		plan.Inserts = append(plan.Inserts, QuestionInsert{Position: position, Input: input})
	}

	for _, q := range existing {
		if _, ok := kept[q.ID]; !ok {
			plan.Deletes = append(plan.Deletes, q.ID)
		}
	}
	return plan
}

type QuestionService struct {
	DB *gorm.DB
}

func NewQuestionService(db *gorm.DB) *QuestionService {
	return &QuestionService{DB: db}
}

// ListByForm returns a form's questions in display order.
func (s *QuestionService) ListByForm(ctx context.Context, formID uint) ([]models.Question, error) {
	return listQuestions(s.DB.WithContext(ctx), formID)
}

// Reconcile validates incoming and applies it to the form's questions in a
// single transaction.
func (s *QuestionService) Reconcile(ctx context.Context, formID uint, incoming []QuestionInput) ([]models.Question, error) {
	if err := ValidateQuestions(incoming); err != nil {
		return nil, err
	}

	var applied []models.Question
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		applied, err = s.ReconcileTx(tx, formID, incoming)
		return err
	})
	if err != nil {
		return nil, StorageError("reconcile questions", err)
	}
	return applied, nil
}

// ReconcileTx applies incoming inside tx. Answers to removed questions are
// deleted before the questions themselves. Callers validate first.
func (s *QuestionService) ReconcileTx(tx *gorm.DB, formID uint, incoming []QuestionInput) ([]models.Question, error) {
	existing, err := listQuestions(tx, formID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	plan := PlanReconcile(existing, incoming)

	if len(plan.Deletes) > 0 {
		if err := tx.Where("question_id IN ?", plan.Deletes).Delete(&models.Answer{}).Error; err != nil {
			return nil, fmt.Errorf("delete answers of removed questions: %w", err)
		}
		if err := tx.Where("id IN ? AND form_id = ?", plan.Deletes, formID).Delete(&models.Question{}).Error; err != nil {
			return nil, fmt.Errorf("delete questions: %w", err)
		}
	}

	for _, update := range plan.Updates {
		in := update.Input
		err := tx.Model(&models.Question{}).
			Where("id = ? AND form_id = ?", update.ID, formID).
			Updates(map[string]interface{}{
				"text":        in.Text,
				"type":        in.Type,
				"is_required": in.IsRequired,
				"options":     models.EncodeOptions(in.Options),
				"order_index": update.Position,
				"image_url":   in.ImageURL,
			}).Error
		if err != nil {
			return nil, fmt.Errorf("update question %d: %w", update.ID, err)
		}
	}

	for _, insert := range plan.Inserts {
		question := newQuestion(formID, insert.Position, insert.Input)
		if err := tx.Create(&question).Error; err != nil {
			return nil, fmt.Errorf("insert question at %d: %w", insert.Position, err)
		}
	}

	applied, err := listQuestions(tx, formID)
	if err != nil {
		return nil, fmt.Errorf("reload questions: %w", err)
	}
	return applied, nil
}

// CreateBatchTx inserts inputs as new questions ordered by list position.
func (s *QuestionService) CreateBatchTx(tx *gorm.DB, formID uint, inputs []QuestionInput) ([]models.Question, error) {
	created := make([]models.Question, 0, len(inputs))
	for position, input := range inputs {
		question := newQuestion(formID, position, input)
		if err := tx.Create(&question).Error; err != nil {
			return nil, fmt.Errorf("insert question at %d: %w", position, err)
		}
		created = append(created, question)
	}
	return created, nil
}

// Reorder rewrites order_index for every question of the form: the ids in
// ids come first in that order, then the questions ids does not name, in
// their current relative order. Unknown and repeated ids are ignored, so the
// result is contiguous and repeating a call is harmless.
func (s *QuestionService) Reorder(ctx context.Context, formID uint, ids []uint) ([]models.Question, error) {
	var reordered []models.Question
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := listQuestions(tx, formID)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}

		for position, question := range ReorderPlan(existing, ids) {
			if question.OrderIndex == position {
				continue
			}
			err := tx.Model(&models.Question{}).
				Where("id = ? AND form_id = ?", question.ID, formID).
				Update("order_index", position).Error
			if err != nil {
				return fmt.Errorf("reorder question %d: %w", question.ID, err)
			}
		}

		reordered, err = listQuestions(tx, formID)
		return err
	})
	if err != nil {
		return nil, StorageError("reorder questions", err)
	}
	return reordered, nil
}

// ReorderPlan returns existing in its new display order. existing must be in
// the current display order.
func ReorderPlan(existing []models.Question, ids []uint) []models.Question {
	byID := make(map[uint]models.Question, len(existing))
	for _, q := range existing {
		byID[q.ID] = q
	}

	ordered := make([]models.Question, 0, len(existing))
	placed := make(map[uint]struct{}, len(existing))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := placed[id]; dup {
			continue
		}
		placed[id] = struct{}{}
		ordered = append(ordered, q)
	}
	for _, q := range existing {
		if _, ok := placed[q.ID]; !ok {
			ordered = append(ordered, q)
		}
	}
	return ordered
}

func newQuestion(formID uint, position int, input QuestionInput) models.Question {
	return models.Question{
		FormID:     formID,
		Text:       input.Text,
		Type:       input.Type,
		IsRequired: input.IsRequired,
		Options:    models.EncodeOptions(input.Options),
		OrderIndex: position,
		ImageURL:   input.ImageURL,
	}
}

func listQuestions(db *gorm.DB, formID uint) ([]models.Question, error) {
	var questions []models.Question
	err := db.Where("form_id = ?", formID).Order("order_index ASC").Order("id ASC").Find(&questions).Error
	return questions, err
}
