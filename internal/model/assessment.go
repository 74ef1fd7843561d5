package model

import (
	"time"

	"github.com/google/uuid"
)

// Family distinguishes the two assessment catalogs kept per subject.
type Family string

const (
	FamilyPreAssessment Family = "pre_assessment"
	FamilyPostTest      Family = "post_test"
)

// DurationUnit is the unit the author expressed the time box in.
type DurationUnit string

const (
	DurationMinutes DurationUnit = "minutes"
	DurationHours   DurationUnit = "hours"
)

// StagingStatus enumerates the review workflow states. Approved and
// rejected are terminal.
type StagingStatus string

const (
	StagingStatusPending  StagingStatus = "pending"
	StagingStatusApproved StagingStatus = "approved"
	StagingStatusRejected StagingStatus = "rejected"
)

// LiveStatus enumerates the states of a promoted assessment.
type LiveStatus string

const (
	LiveStatusDraft    LiveStatus = "draft"
	LiveStatusActive   LiveStatus = "active"
	LiveStatusArchived LiveStatus = "archived"
)

// StagingAssessment is an authored definition waiting for (or past) review.
type StagingAssessment struct {
	ID             uuid.UUID     `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	SubjectID      int           `json:"subject_id"`
	Family         Family        `json:"family"`
	DurationValue  int           `json:"duration_value"`
	DurationUnit   DurationUnit  `json:"duration_unit"`
	PassingPercent float64       `json:"passing_percent"`
	AuthorID       int           `json:"author_id"`
	Status         StagingStatus `json:"status"`
	ReviewerID     *int          `json:"reviewer_id,omitempty"`
	DecisionReason *string       `json:"decision_reason,omitempty"`
	DecidedAt      *time.Time    `json:"decided_at,omitempty"`
	PromotedLiveID *uuid.UUID    `json:"promoted_live_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Duration returns the time box as a time.Duration.
func (a *StagingAssessment) Duration() time.Duration {
	return boxDuration(a.DurationValue, a.DurationUnit)
}

// LiveAssessment is the promoted, taker-visible copy of an approved
// staging definition. Its question set is a value copy frozen at
// promotion time.
type LiveAssessment struct {
	ID             uuid.UUID    `json:"id"`
	StagingID      uuid.UUID    `json:"staging_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	SubjectID      int          `json:"subject_id"`
	Family         Family       `json:"family"`
	DurationValue  int          `json:"duration_value"`
	DurationUnit   DurationUnit `json:"duration_unit"`
	PassingPercent float64      `json:"passing_percent"`
	AuthorID       int          `json:"author_id"`
	Status         LiveStatus   `json:"status"`
	PromotedAt     time.Time    `json:"promoted_at"`
}

// Duration returns the time box as a time.Duration.
func (a *LiveAssessment) Duration() time.Duration {
	return boxDuration(a.DurationValue, a.DurationUnit)
}

func boxDuration(value int, unit DurationUnit) time.Duration {
	if unit == DurationHours {
		return time.Duration(value) * time.Hour
	}
	return time.Duration(value) * time.Minute
}

// SubmitAssessmentRequest is the tutor payload that creates a pending
// staging record together with its question bank.
type SubmitAssessmentRequest struct {
	Title          string          `json:"title" binding:"required,min=3,max=255"`
	Description    string          `json:"description" binding:"omitempty,max=2000"`
	SubjectID      int             `json:"subject_id" binding:"required,min=1"`
	Family         string          `json:"family" binding:"required,oneof=pre_assessment post_test"`
	DurationValue  int             `json:"duration_value" binding:"required,min=1,max=480"`
	DurationUnit   string          `json:"duration_unit" binding:"required,oneof=minutes hours"`
	PassingPercent float64         `json:"passing_percent" binding:"required,min=1,max=100"`
	Questions      []QuestionInput `json:"questions" binding:"omitempty,dive"`
}

// ReviewRequest is the faculty payload deciding a pending staging record.
type ReviewRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Reason   string `json:"reason" binding:"omitempty,max=2000"`
}

// AssessmentPayload is the cached taker-facing view of a live assessment:
// the question set with correct answers withheld.
type AssessmentPayload struct {
	AssessmentID   uuid.UUID          `json:"assessment_id"`
	Title          string             `json:"title"`
	Family         Family             `json:"family"`
	DurationValue  int                `json:"duration_value"`
	DurationUnit   DurationUnit       `json:"duration_unit"`
	PassingPercent float64            `json:"passing_percent"`
	Questions      []QuestionForTaker `json:"questions"`
}
