package models

import (
	"encoding/json"
	"strconv"
	"strings"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionTypeText        QuestionType = "text"
	QuestionTypeTextarea    QuestionType = "textarea"
	QuestionTypeRadio       QuestionType = "radio"
	QuestionTypeCheckbox    QuestionType = "checkbox"
	QuestionTypeSelect      QuestionType = "select"
	QuestionTypeEmail       QuestionType = "email"
	QuestionTypeNumber      QuestionType = "number"
	QuestionTypeNumberRange QuestionType = "number_range"
	QuestionTypeDate        QuestionType = "date"
	QuestionTypeTime        QuestionType = "time"
	QuestionTypeImage       QuestionType = "image"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeText, QuestionTypeTextarea, QuestionTypeRadio, QuestionTypeCheckbox,
		QuestionTypeSelect, QuestionTypeEmail, QuestionTypeNumber, QuestionTypeNumberRange,
		QuestionTypeDate, QuestionTypeTime, QuestionTypeImage:
		return true
	default:
		return false
	}
}

// HasChoices reports whether options are a literal list of choices that must
// be non-empty.
func (t QuestionType) HasChoices() bool {
	return t == QuestionTypeRadio || t == QuestionTypeCheckbox || t == QuestionTypeSelect
}

type Question struct {
	BaseModel
	FormID     uint           `json:"form_id" gorm:"not null;index"`
	Text       string         `json:"text" gorm:"type:text;not null"`
	Type       QuestionType   `json:"type" gorm:"type:varchar(50);not null"`
	IsRequired bool           `json:"is_required" gorm:"not null"`
	Options    datatypes.JSON `json:"options"`
	OrderIndex int            `json:"order_index" gorm:"not null;index"`
	ImageURL   *string        `json:"image_url" gorm:"type:text"`
}

func (Question) TableName() string {
	return "questions"
}

// NumberRange is the [min, max, step] triple carried by number_range options.
type NumberRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// OptionValues decodes the stored options. Anything that is not a JSON array
// decodes to an empty list.
func (q Question) OptionValues() []any {
	return DecodeOptions(q.Options)
}

// Choices returns the options as display strings. It is meaningful for
// radio, checkbox and select questions.
func (q Question) Choices() []string {
	values := q.OptionValues()
	choices := make([]string, 0, len(values))
	for _, value := range values {
		choices = append(choices, FormatOptionValue(value))
	}
	return choices
}

// Range returns the [min, max, step] triple of a number_range question.
// ok is false for any other type or when the options are not three numbers.
func (q Question) Range() (NumberRange, bool) {
	if q.Type != QuestionTypeNumberRange {
		return NumberRange{}, false
	}
	values := q.OptionValues()
	if len(values) != 3 {
		return NumberRange{}, false
	}
	var parsed [3]float64
	for i, value := range values {
		switch v := value.(type) {
		case float64:
			parsed[i] = v
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return NumberRange{}, false
			}
			parsed[i] = f
		default:
			return NumberRange{}, false
		}
	}
	return NumberRange{Min: parsed[0], Max: parsed[1], Step: parsed[2]}, true
}

// EncodeOptions stores a list of options, writing an empty array for nil.
func EncodeOptions(values []any) datatypes.JSON {
	if values == nil {
		values = []any{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(encoded)
}

func DecodeOptions(raw datatypes.JSON) []any {
	if len(raw) == 0 {
		return []any{}
	}
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil || values == nil {
		return []any{}
	}
	return values
}

// FormatOptionValue renders a decoded JSON scalar the way it was entered:
// numbers without a trailing ".0", strings verbatim.
func FormatOptionValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
