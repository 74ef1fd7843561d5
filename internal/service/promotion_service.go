package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/edustack/assess-backend/internal/model"
	"github.com/edustack/assess-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Decision is a reviewer's verdict on a pending staging record.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// PromotionService runs the approval state machine: pending staging
// records either get rejected with a reason, or promoted into the live
// catalog by an atomic copy. Only this service writes live records.
type PromotionService struct {
	pool        *pgxpool.Pool
	stagingRepo *repository.StagingRepository
	liveRepo    *repository.LiveRepository
	subjectRepo *repository.SubjectRepository
	catalog     *CatalogService
	notifier    Notifier
	log         zerolog.Logger
}

// NewPromotionService creates a new PromotionService.
func NewPromotionService(
	pool *pgxpool.Pool,
	stagingRepo *repository.StagingRepository,
	liveRepo *repository.LiveRepository,
	subjectRepo *repository.SubjectRepository,
	catalog *CatalogService,
	notifier Notifier,
	log zerolog.Logger,
) *PromotionService {
	return &PromotionService{
		pool:        pool,
		stagingRepo: stagingRepo,
		liveRepo:    liveRepo,
		subjectRepo: subjectRepo,
		catalog:     catalog,
		notifier:    notifier,
		log:         log.With().Str("component", "promotion_service").Logger(),
	}
}

// SubmitForReview validates a tutor's submission and creates a pending
// staging record with its question bank. Nothing is written when any
// question violates its construction invariants.
func (s *PromotionService) SubmitForReview(ctx context.Context, authorID int, req *model.SubmitAssessmentRequest) (*model.StagingAssessment, []model.Question, error) {
	if len(req.Questions) == 0 {
		return nil, nil, newValidationError("questions", "an assessment needs at least one question")
	}

	if _, err := s.subjectRepo.GetByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrSubjectNotFound
		}
		return nil, nil, fmt.Errorf("get subject: %w", err)
	}

	questions := make([]model.Question, 0, len(req.Questions))
	fields := make(map[string]string)
	for i := range req.Questions {
		q := req.Questions[i].ToQuestion(i)
		if err := q.Validate(); err != nil {
			fields["questions["+strconv.Itoa(i)+"]"] = err.Error()
			continue
		}
		q.Normalize()
		questions = append(questions, q)
	}
	if len(fields) > 0 {
		return nil, nil, &ValidationError{Fields: fields}
	}

	staging := &model.StagingAssessment{
		Title:          req.Title,
		Description:    req.Description,
		SubjectID:      req.SubjectID,
		Family:         model.Family(req.Family),
		DurationValue:  req.DurationValue,
		DurationUnit:   model.DurationUnit(req.DurationUnit),
		PassingPercent: req.PassingPercent,
		AuthorID:       authorID,
	}

	if err := s.stagingRepo.CreateWithQuestions(ctx, staging, questions); err != nil {
		return nil, nil, fmt.Errorf("create staging assessment: %w", err)
	}

	s.log.Info().
		Str("staging_id", staging.ID.String()).
		Int("author_id", authorID).
		Int("questions", len(questions)).
		Msg("Assessment submitted for review")

	return staging, questions, nil
}

// Review applies a reviewer's decision to a pending staging record.
// Approve returns the live assessment id; re-approving an approved record
// is a no-op that returns the existing live id. Reject requires a reason.
func (s *PromotionService) Review(ctx context.Context, stagingID uuid.UUID, reviewerID int, decision Decision, reason string) (*uuid.UUID, error) {
	staging, err := s.stagingRepo.GetByID(ctx, stagingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStagingNotFound
		}
		return nil, fmt.Errorf("get staging assessment: %w", err)
	}

	switch decision {
	case DecisionReject:
		return nil, s.reject(ctx, staging, reviewerID, reason)
	case DecisionApprove:
		return s.approve(ctx, staging, reviewerID)
	default:
		return nil, newValidationError("decision", "must be approve or reject")
	}
}

func (s *PromotionService) reject(ctx context.Context, staging *model.StagingAssessment, reviewerID int, reason string) error {
	if reason == "" {
		return newValidationError("reason", "a rejection requires a reason")
	}
	if staging.Status != model.StagingStatusPending {
		return ErrStagingNotFound
	}

	ok, err := s.stagingRepo.MarkRejected(ctx, staging.ID, reviewerID, reason, time.Now())
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	if !ok {
		// Lost the race against a concurrent decision.
		return ErrStagingNotFound
	}

	s.log.Info().
		Str("staging_id", staging.ID.String()).
		Int("reviewer_id", reviewerID).
		Msg("Assessment rejected")

	s.notify(ctx, staging, string(DecisionReject), reason)
	return nil
}

// approve performs the atomic staging→live copy: insert the live record,
// value-copy every question preserving order, and flip the staging status,
// all in one transaction. Partial promotion is never observable.
func (s *PromotionService) approve(ctx context.Context, staging *model.StagingAssessment, reviewerID int) (*uuid.UUID, error) {
	if staging.Status == model.StagingStatusApproved && staging.PromotedLiveID != nil {
		return staging.PromotedLiveID, nil
	}
	if staging.Status != model.StagingStatusPending {
		return nil, ErrStagingNotFound
	}

	questions, err := s.stagingRepo.ListQuestions(ctx, staging.ID)
	if err != nil {
		return nil, fmt.Errorf("list staging questions: %w", err)
	}

	live := &model.LiveAssessment{
		ID:             uuid.New(),
		StagingID:      staging.ID,
		Title:          staging.Title,
		Description:    staging.Description,
		SubjectID:      staging.SubjectID,
		Family:         staging.Family,
		DurationValue:  staging.DurationValue,
		DurationUnit:   staging.DurationUnit,
		PassingPercent: staging.PassingPercent,
		AuthorID:       staging.AuthorID,
		Status:         model.LiveStatusActive,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin promotion: %w", err)
	}
	defer tx.Rollback(ctx)

	liveQuestions := append([]model.Question(nil), questions...)
	if err := s.liveRepo.InsertTx(ctx, tx, live, liveQuestions); err != nil {
		return nil, fmt.Errorf("insert live copy: %w", err)
	}

	ok, err := s.stagingRepo.MarkApprovedTx(ctx, tx, staging.ID, reviewerID, live.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("mark approved: %w", err)
	}
	if !ok {
		// A concurrent reviewer already decided; roll back our copy and
		// report what actually happened.
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.log.Warn().Err(rbErr).Msg("Rollback after lost review race failed")
		}
		current, err := s.stagingRepo.GetByID(ctx, staging.ID)
		if err != nil {
			return nil, fmt.Errorf("re-read staging after race: %w", err)
		}
		if current.Status == model.StagingStatusApproved && current.PromotedLiveID != nil {
			return current.PromotedLiveID, nil
		}
		return nil, ErrStagingNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit promotion: %w", err)
	}

	s.log.Info().
		Str("staging_id", staging.ID.String()).
		Str("live_id", live.ID.String()).
		Int("reviewer_id", reviewerID).
		Int("questions", len(liveQuestions)).
		Msg("Assessment promoted to live catalog")

	// Cache warming and author notification happen after the commit;
	// neither can undo the promotion.
	if err := s.catalog.WarmPayloadCache(ctx, live, liveQuestions); err != nil {
		s.log.Warn().Err(err).Str("live_id", live.ID.String()).Msg("Payload cache warm failed")
	}
	s.notify(ctx, staging, string(DecisionApprove), "")

	return &live.ID, nil
}

func (s *PromotionService) notify(ctx context.Context, staging *model.StagingAssessment, decision, reason string) {
	note := DecisionNote{
		RecipientID:  staging.AuthorID,
		AssessmentID: staging.ID,
		Title:        staging.Title,
		Decision:     decision,
		Reason:       reason,
	}
	if err := s.notifier.NotifyDecision(ctx, note); err != nil {
		s.log.Warn().Err(err).
			Str("staging_id", staging.ID.String()).
			Msg("Decision notification failed")
	}
}

// ListPending returns staging records awaiting review.
func (s *PromotionService) ListPending(ctx context.Context) ([]model.StagingAssessment, error) {
	return s.stagingRepo.ListPending(ctx)
}

// ListSubjects returns the subject reference data tutors author against.
func (s *PromotionService) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	return s.subjectRepo.GetAll(ctx)
}

// ListByAuthor returns a tutor's own submissions with their statuses.
func (s *PromotionService) ListByAuthor(ctx context.Context, authorID int) ([]model.StagingAssessment, error) {
	return s.stagingRepo.ListByAuthor(ctx, authorID)
}

// GetWithQuestions returns one staging record and its full question bank,
// model answers included. Reviewer/author read shape only.
func (s *PromotionService) GetWithQuestions(ctx context.Context, stagingID uuid.UUID) (*model.StagingAssessment, []model.Question, error) {
	staging, err := s.stagingRepo.GetByID(ctx, stagingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrStagingNotFound
		}
		return nil, nil, err
	}
	questions, err := s.stagingRepo.ListQuestions(ctx, stagingID)
	if err != nil {
		return nil, nil, err
	}
	return staging, questions, nil
}
