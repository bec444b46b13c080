// Package export renders form responses as spreadsheet tables.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/formdesk/server/internal/models"
)

const (
	// PlaceholderThreshold is the answer length, in characters, above which
	// the text is replaced by a size placeholder.
	PlaceholderThreshold = 50000
	// TruncateThreshold is the length above which text is cut and marked.
	TruncateThreshold = 32000
	TruncationMarker  = "... [truncated]"

	ResponsesSheet = "Responses"
	QuestionsSheet = "Questions"

	submittedAtLayout = "1/2/2006, 3:04:05 PM"
)

// Table is one sheet: a header row followed by data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]interface{}
	Widths []float64
}

type Workbook struct {
	Responses Table
	Questions Table
}

type Formatter struct {
	Location *time.Location
}

func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{Location: loc}
}

func (f *Formatter) Build(questions []models.Question, responses []models.Response) Workbook {
	return Workbook{
		Responses: f.ResponseTable(questions, responses),
		Questions: QuestionTable(questions),
	}
}

// ResponseTable has one row per response: id, respondent, submission time,
// then one column per question in display order.
func (f *Formatter) ResponseTable(questions []models.Question, responses []models.Response) Table {
	table := Table{
		Name:   ResponsesSheet,
		Header: []string{"Response ID", "User", "Submitted At"},
		Widths: []float64{15, 20, 25},
		Rows:   make([][]interface{}, 0, len(responses)),
	}
	for _, q := range questions {
		table.Header = append(table.Header, q.Text)
		table.Widths = append(table.Widths, 20)
	}

	for _, response := range responses {
		row := make([]interface{}, 0, len(table.Header))
		row = append(row,
			response.ID,
			response.UserName(),
			response.SubmittedAt.In(f.Location).Format(submittedAtLayout),
		)
		for _, q := range questions {
			row = append(row, FormatCell(q, response.ID, response.AnswerFor(q.ID)))
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// QuestionTable lists question metadata for the second sheet.
func QuestionTable(questions []models.Question) Table {
	table := Table{
		Name:   QuestionsSheet,
		Header: []string{"Question ID", "Question Text", "Type", "Required", "Options"},
		Widths: []float64{12, 40, 15, 10, 40},
		Rows:   make([][]interface{}, 0, len(questions)),
	}
	for _, q := range questions {
		required := "No"
		if q.IsRequired {
			required = "Yes"
		}
		options := make([]string, 0)
		for _, value := range q.OptionValues() {
			options = append(options, models.FormatOptionValue(value))
		}
		table.Rows = append(table.Rows, []interface{}{q.ID, q.Text, string(q.Type), required, strings.Join(options, "; ")})
	}
	return table
}

// FormatCell renders one answer. Inline images become a placeholder naming
// the response and question; oversized text becomes a size placeholder or is
// truncated; option answers are joined with ", ".
func FormatCell(question models.Question, responseID uint, answer *models.Answer) string {
	if answer == nil {
		return ""
	}

	if answer.AnswerText != nil && *answer.AnswerText != "" {
		text := *answer.AnswerText
		length := utf8.RuneCountInString(text)
		switch {
		case question.Type == models.QuestionTypeImage && strings.HasPrefix(text, "data:image"):
			return fmt.Sprintf("[Image %d-%d]", responseID, question.ID)
		case length > PlaceholderThreshold:
			return fmt.Sprintf("[Data too long: %d chars]", length)
		case length > TruncateThreshold:
			return string([]rune(text)[:TruncateThreshold]) + TruncationMarker
		default:
			return text
		}
	}

	return formatOptions(answer.AnswerOptions)
}

func formatOptions(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw)
	}
	switch v := value.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, models.FormatOptionValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return models.FormatOptionValue(v)
	}
}

// Filename is the attachment name of a form's export.
func Filename(formID uint, at time.Time) string {
	return fmt.Sprintf("form-%d-responses-%d.xlsx", formID, at.UnixMilli())
}
