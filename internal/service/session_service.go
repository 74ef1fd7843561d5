package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edustack/assess-backend/internal/config"
	"github.com/edustack/assess-backend/internal/model"
	"github.com/edustack/assess-backend/internal/repository"
	"github.com/edustack/assess-backend/internal/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionService runs timed attempts. The in-memory engine is the
// authority on deadlines and submission; Redis mirrors answers and start
// times for operator visibility, and finalized results are queued for the
// persistence worker rather than written inline.
type SessionService struct {
	engine  *session.Engine
	catalog *CatalogService
	results *repository.ResultRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewSessionService creates a SessionService and its attempt engine.
func NewSessionService(
	catalog *CatalogService,
	results *repository.ResultRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	s := &SessionService{
		catalog: catalog,
		results: results,
		rdb:     rdb,
		log:     log.With().Str("component", "session_service").Logger(),
	}
	s.engine = session.NewEngine(s.finalize)
	return s
}

// AttemptState is the taker-facing snapshot of an attempt.
type AttemptState struct {
	AttemptID        uuid.UUID            `json:"attempt_id"`
	AssessmentID     uuid.UUID            `json:"assessment_id"`
	StartedAt        time.Time            `json:"started_at"`
	Deadline         time.Time            `json:"deadline"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Submitted        bool                 `json:"submitted"`
	Answers          map[uuid.UUID]string `json:"answers"`
}

// Start opens a timed attempt against an active live assessment.
func (s *SessionService) Start(ctx context.Context, takerID int, assessmentID uuid.UUID) (*AttemptState, error) {
	live, err := s.catalog.GetActive(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	questions, err := s.catalog.GetQuestions(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	attempt, err := s.engine.Start(takerID, live, questions)
	if err != nil {
		return nil, err
	}

	startKey := config.CacheKey.AttemptStartKey(assessmentID.String(), takerID)
	if err := s.rdb.Set(ctx, startKey, attempt.StartedAt.Format(time.RFC3339Nano), live.Duration()+time.Hour).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Start time mirror failed")
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("assessment_id", assessmentID.String()).
		Int("taker_id", takerID).
		Time("deadline", attempt.Deadline).
		Msg("Attempt started")

	return s.snapshot(attempt), nil
}

// RecordAnswer autosaves one answer on an open attempt.
func (s *SessionService) RecordAnswer(ctx context.Context, attemptID, questionID uuid.UUID, value string) error {
	if err := s.engine.RecordAnswer(attemptID, questionID, value); err != nil {
		return err
	}

	attempt, err := s.engine.Get(attemptID)
	if err == nil {
		key := config.CacheKey.AttemptAnswersKey(attempt.AssessmentID.String(), attempt.TakerID)
		if err := s.rdb.HSet(ctx, key, questionID.String(), value).Err(); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Answer mirror failed")
		}
	}
	return nil
}

// Submit finalizes an attempt. Safe to call repeatedly; every call returns
// the single Result the attempt graded to.
func (s *SessionService) Submit(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	return s.engine.Submit(attemptID, session.TriggerManual)
}

// State returns the current snapshot of an attempt.
func (s *SessionService) State(attemptID uuid.UUID) (*AttemptState, error) {
	attempt, err := s.engine.Get(attemptID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(attempt), nil
}

// Owner returns the taker id an attempt belongs to.
func (s *SessionService) Owner(attemptID uuid.UUID) (int, error) {
	attempt, err := s.engine.Get(attemptID)
	if err != nil {
		return 0, err
	}
	return attempt.TakerID, nil
}

// ActiveAttempt resolves the taker's open attempt on an assessment, if any.
func (s *SessionService) ActiveAttempt(takerID int, assessmentID uuid.UUID) (*AttemptState, error) {
	attempt, err := s.engine.GetActive(takerID, assessmentID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(attempt), nil
}

// History returns the taker's finalized results, newest first.
func (s *SessionService) History(ctx context.Context, takerID int) ([]model.Result, error) {
	return s.results.ListByTaker(ctx, takerID)
}

// Leaderboard returns an assessment's results ordered by percentage.
func (s *SessionService) Leaderboard(ctx context.Context, assessmentID uuid.UUID) ([]model.Result, error) {
	return s.results.ListByAssessment(ctx, assessmentID)
}

// Stats returns the aggregate figures for one assessment.
func (s *SessionService) Stats(ctx context.Context, assessmentID uuid.UUID) (*model.AssessmentStats, error) {
	return s.results.Stats(ctx, assessmentID)
}

func (s *SessionService) snapshot(attempt *session.Attempt) *AttemptState {
	return &AttemptState{
		AttemptID:        attempt.ID,
		AssessmentID:     attempt.AssessmentID,
		StartedAt:        attempt.StartedAt,
		Deadline:         attempt.Deadline,
		RemainingSeconds: int(s.engine.Remaining(attempt) / time.Second),
		Submitted:        attempt.Submitted(),
		Answers:          attempt.AnswersCopy(),
	}
}

// finalize receives every finalized attempt exactly once. The result goes
// onto the persistence queue; losing it here would lose the attempt, so a
// queue failure falls back to a direct insert.
func (s *SessionService) finalize(attempt *session.Attempt, trigger session.Trigger, res *model.Result) {
	ctx := context.Background()

	raw, err := json.Marshal(res)
	if err != nil {
		s.log.Error().Err(err).Str("result_id", res.ID.String()).Msg("Result marshal failed")
		return
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		s.log.Error().Err(err).Str("result_id", res.ID.String()).Msg("Result enqueue failed, inserting directly")
		if err := s.results.Insert(ctx, res); err != nil {
			s.log.Error().Err(err).Str("result_id", res.ID.String()).Msg("Direct result insert failed")
		}
	}

	answersKey := config.CacheKey.AttemptAnswersKey(attempt.AssessmentID.String(), attempt.TakerID)
	startKey := config.CacheKey.AttemptStartKey(attempt.AssessmentID.String(), attempt.TakerID)
	if err := s.rdb.Del(ctx, answersKey, startKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Attempt mirror cleanup failed")
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("result_id", res.ID.String()).
		Str("trigger", string(trigger)).
		Float64("percentage", res.Percentage).
		Bool("passed", res.Passed).
		Msg("Attempt finalized")
}
