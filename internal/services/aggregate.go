package services

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/formdesk/server/internal/models"
	"gorm.io/datatypes"
)

// Completion is the per-response completion summary.
type Completion struct {
	AnsweredCount  int     `json:"answered_questions"`
	TotalQuestions int     `json:"total_questions"`
	CompletionRate float64 `json:"completion_rate"`
}

// IsAnswered reports whether an answer carries content: non-blank text, a
// non-empty option list, or a non-blank scalar option value.
func IsAnswered(answer *models.Answer) bool {
	if answer == nil {
		return false
	}
	if answer.AnswerText != nil && len(strings.TrimSpace(*answer.AnswerText)) > 0 {
		return true
	}
	return hasOptionContent(answer.AnswerOptions)
}

func hasOptionContent(raw datatypes.JSON) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}

	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return len(strings.TrimSpace(string(trimmed))) > 0
	}

	switch v := value.(type) {
	case nil:
		return false
	case []any:
		return len(v) > 0
	case string:
		return len(strings.TrimSpace(v)) > 0
	default:
		return len(strings.TrimSpace(models.FormatOptionValue(v))) > 0
	}
}

// ComputeResponseCompletion counts how many of questions have a non-empty
// answer in response. A form without questions has a rate of zero.
func ComputeResponseCompletion(questions []models.Question, response models.Response) Completion {
	result := Completion{TotalQuestions: len(questions)}
	for _, question := range questions {
		if IsAnswered(response.AnswerFor(question.ID)) {
			result.AnsweredCount++
		}
	}
	if result.TotalQuestions == 0 {
		return result
	}
	result.CompletionRate = round1(100 * float64(result.AnsweredCount) / float64(result.TotalQuestions))
	return result
}

// AverageCompletionRate is the mean of the per-response rates, rounded to
// one decimal. Zero responses or zero questions yield zero.
func AverageCompletionRate(questions []models.Question, responses []models.Response) float64 {
	if len(questions) == 0 || len(responses) == 0 {
		return 0
	}
	return round1(meanCompletion(questions, responses))
}

// FormCompletionPercent is the dashboard figure: the mean per-response rate
// rounded to the nearest integer and capped at 100.
func FormCompletionPercent(questions []models.Question, responses []models.Response) int {
	if len(questions) == 0 || len(responses) == 0 {
		return 0
	}
	percent := int(math.Round(meanCompletion(questions, responses)))
	if percent > 100 {
		return 100
	}
	if percent < 0 {
		return 0
	}
	return percent
}

func meanCompletion(questions []models.Question, responses []models.Response) float64 {
	var sum float64
	for _, response := range responses {
		sum += ComputeResponseCompletion(questions, response).CompletionRate
	}
	return sum / float64(len(responses))
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}
