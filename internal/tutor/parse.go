package tutor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BTreeMap/MicroTutor/internal/models"
	"github.com/tidwall/gjson"
)

// fieldTypes lists the JSON type each known field must have when present.
var fieldTypes = map[string]gjson.Type{
	"microLessonText":    gjson.String,
	"exampleTitle":       gjson.String,
	"exampleContent":     gjson.String,
	"practiceTask":       gjson.String,
	"comparison":         gjson.JSON,
	"quiz":               gjson.JSON,
	"taskOptions":        gjson.JSON,
	"simulationRedirect": gjson.JSON,
}

var arrayFields = map[string]bool{"taskOptions": true}

// nestedFields lists the required members of each optional object, with the
// JSON type each must have.
var nestedFields = map[string][]struct {
	name string
	typ  gjson.Type
}{
	"quiz": {
		{"question", gjson.String},
		{"options", gjson.JSON},
		{"correctAnswerIndex", gjson.Number},
	},
	"comparison": {
		{"title", gjson.String},
		{"leftLabel", gjson.String},
		{"rightLabel", gjson.String},
		{"rows", gjson.JSON},
	},
	"simulationRedirect": {
		{"page", gjson.String},
		{"message", gjson.String},
	},
}

var comparisonRowFields = []string{"feature", "leftValue", "rightValue"}

// ParseLesson turns raw collaborator text into validated lesson content.
// The returned error names the failing stage via *GenerationError.
func ParseLesson(raw string) (models.LessonContent, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return models.LessonContent{}, &GenerationError{Stage: StageEmpty, Err: ErrEmptyResponse}
	}
	if err := checkShape(text); err != nil {
		return models.LessonContent{}, &GenerationError{Stage: StageParse, Err: err}
	}

	var content models.LessonContent
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return models.LessonContent{}, &GenerationError{Stage: StageParse, Err: fmt.Errorf("failed to decode lesson: %w", err)}
	}
	content.Normalize()
	if err := content.Validate(); err != nil {
		return models.LessonContent{}, &GenerationError{Stage: StageValidate, Err: err}
	}
	return content, nil
}

// checkShape rejects documents whose top level is not an object, that miss
// microLessonText, or whose known fields carry the wrong JSON type. Null is
// accepted for optional fields. A present quiz, comparison or redirect must
// carry every member LessonSchema marks required.
func checkShape(text string) error {
	if !gjson.Valid(text) {
		return ErrInvalidJSON
	}
	doc := gjson.Parse(text)
	if !doc.IsObject() {
		return fmt.Errorf("%w: top level is not an object", ErrSchemaMismatch)
	}
	if !doc.Get("microLessonText").Exists() {
		return fmt.Errorf("%w: microLessonText missing", ErrSchemaMismatch)
	}
	for field, want := range fieldTypes {
		v := doc.Get(field)
		if !v.Exists() {
			continue
		}
		if v.Type == gjson.Null && field != "microLessonText" {
			continue
		}
		if v.Type != want {
			return fmt.Errorf("%w: %s has type %s", ErrSchemaMismatch, field, v.Type)
		}
		if want == gjson.JSON && arrayFields[field] != v.IsArray() {
			return fmt.Errorf("%w: %s has the wrong container type", ErrSchemaMismatch, field)
		}
	}
	for parent, fields := range nestedFields {
		obj := doc.Get(parent)
		if !obj.Exists() || obj.Type == gjson.Null {
			continue
		}
		for _, f := range fields {
			v := obj.Get(f.name)
			if !v.Exists() {
				return fmt.Errorf("%w: %s.%s missing", ErrSchemaMismatch, parent, f.name)
			}
			if v.Type != f.typ {
				return fmt.Errorf("%w: %s.%s has type %s", ErrSchemaMismatch, parent, f.name, v.Type)
			}
		}
	}
	if opts := doc.Get("quiz.options"); opts.Exists() && !opts.IsArray() {
		return fmt.Errorf("%w: quiz.options is not an array", ErrSchemaMismatch)
	}
	if rows := doc.Get("comparison.rows"); rows.Exists() {
		if !rows.IsArray() {
			return fmt.Errorf("%w: comparison.rows is not an array", ErrSchemaMismatch)
		}
		var rowErr error
		rows.ForEach(func(i, row gjson.Result) bool {
			for _, f := range comparisonRowFields {
				if v := row.Get(f); v.Type != gjson.String {
					rowErr = fmt.Errorf("%w: comparison.rows[%d].%s missing or not a string", ErrSchemaMismatch, i.Int(), f)
					return false
				}
			}
			return true
		})
		if rowErr != nil {
			return rowErr
		}
	}
	return nil
}

// stripCodeFence removes a surrounding ```json fence some models add despite instructions.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
