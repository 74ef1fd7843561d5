package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// QuestionType is the tagged-variant discriminator for questions.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeEnumeration    QuestionType = "enumeration"
)

// AutoGradable reports whether correctness is decided by exact string
// comparison. Short-answer and enumeration questions need a human pass.
func (t QuestionType) AutoGradable() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeTrueFalse
}

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeTrueFalse,
		QuestionTypeShortAnswer, QuestionTypeEnumeration:
		return true
	}
	return false
}

// TrueFalseOptions is the fixed option set for true_false questions.
var TrueFalseOptions = []string{"True", "False"}

// Question is a single question owned by one assessment (staging or live).
// For auto-gradable types CorrectAnswer is the grading key; for manual types
// it holds the model answer shown to reviewers and is never string-matched.
type Question struct {
	ID           uuid.UUID    `json:"id"`
	AssessmentID uuid.UUID    `json:"assessment_id"`
	OrderIndex   int          `json:"order_index"`
	Type         QuestionType `json:"type"`
	Prompt       string       `json:"prompt"`
	Options      []string     `json:"options,omitempty"`
	CorrectAnswer string      `json:"correct_answer,omitempty"`
	Points       int          `json:"points"`
	Explanation  string       `json:"explanation,omitempty"`
}

// Validate enforces the per-type construction invariants. Violations are
// reported before any record is written.
func (q *Question) Validate() error {
	if !q.Type.Valid() {
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	if q.Prompt == "" {
		return errors.New("prompt is required")
	}
	if q.Points <= 0 {
		return errors.New("points must be a positive integer")
	}

	switch q.Type {
	case QuestionTypeMultipleChoice:
		if len(q.Options) < 2 {
			return errors.New("multiple_choice requires at least 2 options")
		}
		matches := 0
		for _, opt := range q.Options {
			if opt == "" {
				return errors.New("multiple_choice options must be non-empty")
			}
			if opt == q.CorrectAnswer {
				matches++
			}
		}
		if matches != 1 {
			return errors.New("correct_answer must equal exactly one option")
		}
	case QuestionTypeTrueFalse:
		if len(q.Options) != 0 && !isTrueFalseOptions(q.Options) {
			return errors.New(`true_false options are fixed to ["True","False"]`)
		}
		if q.CorrectAnswer != "True" && q.CorrectAnswer != "False" {
			return errors.New(`true_false correct_answer must be "True" or "False"`)
		}
	case QuestionTypeShortAnswer, QuestionTypeEnumeration:
		if len(q.Options) != 0 {
			return fmt.Errorf("%s questions do not take fixed options", q.Type)
		}
		if q.CorrectAnswer == "" {
			return errors.New("a model answer is required for reviewer reference")
		}
	}
	return nil
}

// Normalize fills type-derived fields after validation: true_false always
// carries the fixed option pair regardless of what the author sent.
func (q *Question) Normalize() {
	if q.Type == QuestionTypeTrueFalse {
		q.Options = append([]string(nil), TrueFalseOptions...)
	}
}

func isTrueFalseOptions(opts []string) bool {
	return len(opts) == 2 && opts[0] == "True" && opts[1] == "False"
}

// QuestionInput is the authoring payload for one question inside a
// submit-for-review request.
type QuestionInput struct {
	Type          string   `json:"type" binding:"required,oneof=multiple_choice true_false short_answer enumeration"`
	Prompt        string   `json:"prompt" binding:"required,min=1,max=4000"`
	Options       []string `json:"options" binding:"omitempty,max=10"`
	CorrectAnswer string   `json:"correct_answer" binding:"omitempty,max=2000"`
	Points        int      `json:"points" binding:"required,min=1,max=100"`
	Explanation   string   `json:"explanation" binding:"omitempty,max=4000"`
}

// ToQuestion converts an authoring payload into a Question at the given
// position. The result still needs Validate + Normalize.
func (in *QuestionInput) ToQuestion(orderIndex int) Question {
	return Question{
		OrderIndex:    orderIndex,
		Type:          QuestionType(in.Type),
		Prompt:        in.Prompt,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Points:        in.Points,
		Explanation:   in.Explanation,
	}
}

// QuestionForTaker is a question as served to a test-taker: the correct
// answer and explanation are withheld.
type QuestionForTaker struct {
	ID         uuid.UUID    `json:"id"`
	OrderIndex int          `json:"order_index"`
	Type       QuestionType `json:"type"`
	Prompt     string       `json:"prompt"`
	Options    []string     `json:"options,omitempty"`
	Points     int          `json:"points"`
}

// ForTaker strips grading-only fields from a question.
func (q *Question) ForTaker() QuestionForTaker {
	return QuestionForTaker{
		ID:         q.ID,
		OrderIndex: q.OrderIndex,
		Type:       q.Type,
		Prompt:     q.Prompt,
		Options:    q.Options,
		Points:     q.Points,
	}
}
