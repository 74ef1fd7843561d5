package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord is one entry of a result's answers snapshot. Correct is nil
// for question types that await a manual grading pass.
type AnswerRecord struct {
	QuestionID    uuid.UUID `json:"question_id"`
	Answer        string    `json:"answer"`
	Correct       *bool     `json:"correct"`
	PointsAwarded int       `json:"points_awarded"`
}

// Result is the append-only record of one completed attempt. A retake
// produces a new row; rows are never updated.
type Result struct {
	ID               uuid.UUID      `json:"id"`
	TakerID          int            `json:"taker_id"`
	AssessmentID     uuid.UUID      `json:"assessment_id"`
	Score            int            `json:"score"`
	TotalPoints      int            `json:"total_points"`
	Percentage       float64        `json:"percentage"`
	CorrectAnswers   int            `json:"correct_answers"`
	TotalQuestions   int            `json:"total_questions"`
	TimeTakenSeconds int            `json:"time_taken_seconds"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      time.Time      `json:"completed_at"`
	Answers          []AnswerRecord `json:"answers_snapshot"`
	Passed           bool           `json:"passed"`
}

// AssessmentStats is the aggregate read shape over all results of one
// live assessment.
type AssessmentStats struct {
	AssessmentID  uuid.UUID `json:"assessment_id"`
	AttemptCount  int       `json:"attempt_count"`
	AvgPercentage float64   `json:"avg_percentage"`
	MinPercentage float64   `json:"min_percentage"`
	MaxPercentage float64   `json:"max_percentage"`
	AvgTimeSecs   float64   `json:"avg_time_seconds"`
	CountAbove75  int       `json:"count_above_75"`
}
