package services

import (
	"testing"

	"github.com/formdesk/server/internal/models"
	"gorm.io/datatypes"
)

func answerWith(questionID uint, text *string, options string) models.Answer {
	answer := models.Answer{QuestionID: questionID, AnswerText: text}
	if options != "" {
		answer.AnswerOptions = datatypes.JSON(options)
	}
	return answer
}

func TestIsAnswered(t *testing.T) {
	tests := []struct {
		name   string
		answer *models.Answer
		want   bool
	}{
		{"nil answer", nil, false},
		{"empty text and empty options", &models.Answer{AnswerText: strPtr(""), AnswerOptions: datatypes.JSON("[]")}, false},
		{"whitespace text", &models.Answer{AnswerText: strPtr("   ")}, false},
		{"null options", &models.Answer{AnswerOptions: datatypes.JSON("null")}, false},
		{"text", &models.Answer{AnswerText: strPtr("hello")}, true},
		{"option list", &models.Answer{AnswerOptions: datatypes.JSON(`["x"]`)}, true},
		{"scalar option", &models.Answer{AnswerOptions: datatypes.JSON(`"x"`)}, true},
		{"blank scalar option", &models.Answer{AnswerOptions: datatypes.JSON(`"  "`)}, false},
		{"numeric scalar option", &models.Answer{AnswerOptions: datatypes.JSON(`5`)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAnswered(tt.answer); got != tt.want {
				t.Fatalf("IsAnswered() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeResponseCompletion_DuplicateAnswersFirstWins(t *testing.T) {
	questions := []models.Question{{BaseModel: models.BaseModel{ID: 1}}}
	response := models.Response{Answers: []models.Answer{
		answerWith(1, strPtr("   "), ""),
		answerWith(1, strPtr("late"), ""),
	}}

	got := ComputeResponseCompletion(questions, response)
	if got.AnsweredCount != 0 || got.CompletionRate != 0 {
		t.Fatalf("expected only the blank first answer to be considered, got %+v", got)
	}
}

func TestComputeResponseCompletion(t *testing.T) {
	questions := []models.Question{
		{BaseModel: models.BaseModel{ID: 1}},
		{BaseModel: models.BaseModel{ID: 2}},
	}

	t.Run("half answered", func(t *testing.T) {
		response := models.Response{Answers: []models.Answer{
			answerWith(1, strPtr("yes"), ""),
			answerWith(2, strPtr(""), "[]"),
		}}
		got := ComputeResponseCompletion(questions, response)
		if got.AnsweredCount != 1 || got.TotalQuestions != 2 || got.CompletionRate != 50.0 {
			t.Fatalf("unexpected completion: %+v", got)
		}
	})

	t.Run("answers to unknown questions are ignored", func(t *testing.T) {
		response := models.Response{Answers: []models.Answer{answerWith(99, strPtr("stray"), "")}}
		got := ComputeResponseCompletion(questions, response)
		if got.AnsweredCount != 0 || got.CompletionRate != 0 {
			t.Fatalf("unexpected completion: %+v", got)
		}
	})

	t.Run("duplicate answers count once using the first", func(t *testing.T) {
		response := models.Response{Answers: []models.Answer{
			answerWith(1, strPtr(""), ""),
			answerWith(1, strPtr("late"), ""),
		}}
		got := ComputeResponseCompletion(questions, response)
		if got.AnsweredCount != 0 {
			t.Fatalf("expected first (empty) duplicate to decide, got %+v", got)
		}
	})

	t.Run("no questions", func(t *testing.T) {
		got := ComputeResponseCompletion(nil, models.Response{})
		if got.TotalQuestions != 0 || got.CompletionRate != 0 {
			t.Fatalf("unexpected completion: %+v", got)
		}
	})

	t.Run("rate rounds to one decimal", func(t *testing.T) {
		three := append(questions, models.Question{BaseModel: models.BaseModel{ID: 3}})
		response := models.Response{Answers: []models.Answer{answerWith(1, strPtr("a"), "")}}
		got := ComputeResponseCompletion(three, response)
		if got.CompletionRate != 33.3 {
			t.Fatalf("expected 33.3, got %v", got.CompletionRate)
		}
	})
}

func TestAverageAndFormCompletion(t *testing.T) {
	questions := []models.Question{
		{BaseModel: models.BaseModel{ID: 1}},
		{BaseModel: models.BaseModel{ID: 2}},
		{BaseModel: models.BaseModel{ID: 3}},
		{BaseModel: models.BaseModel{ID: 4}},
	}
	responses := []models.Response{
		{Answers: []models.Answer{
			answerWith(1, strPtr("a"), ""),
			answerWith(2, nil, `["b"]`),
			answerWith(3, strPtr("c"), ""),
			answerWith(4, strPtr("d"), ""),
		}},
		{Answers: []models.Answer{answerWith(1, strPtr("a"), "")}},
	}

	if got := AverageCompletionRate(questions, responses); got != 62.5 {
		t.Fatalf("AverageCompletionRate() = %v, want 62.5", got)
	}
	if got := FormCompletionPercent(questions, responses); got != 63 {
		t.Fatalf("FormCompletionPercent() = %v, want 63", got)
	}
	if got := AverageCompletionRate(questions, nil); got != 0 {
		t.Fatalf("expected 0 without responses, got %v", got)
	}
	if got := FormCompletionPercent(nil, responses); got != 0 {
		t.Fatalf("expected 0 without questions, got %v", got)
	}
}
