package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edustack/assess-backend/internal/config"
	"github.com/edustack/assess-backend/internal/model"
	"github.com/edustack/assess-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CatalogService serves the live assessment catalog. Taker-facing question
// payloads are cached in Redis with correct answers withheld; the full
// bank (with answers) is only handed to the grading path.
type CatalogService struct {
	liveRepo    *repository.LiveRepository
	subjectRepo *repository.SubjectRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	liveRepo *repository.LiveRepository,
	subjectRepo *repository.SubjectRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		liveRepo:    liveRepo,
		subjectRepo: subjectRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "catalog_service").Logger(),
	}
}

// CatalogEntry is a live assessment with its display subject attached.
type CatalogEntry struct {
	model.LiveAssessment
	Subject *model.Subject `json:"subject,omitempty"`
}

// ListActive returns the catalog visible to takers.
func (s *CatalogService) ListActive(ctx context.Context, family *model.Family) ([]CatalogEntry, error) {
	assessments, err := s.liveRepo.ListActive(ctx, family)
	if err != nil {
		return nil, fmt.Errorf("list active assessments: %w", err)
	}

	subjects := make(map[int]*model.Subject)
	entries := make([]CatalogEntry, 0, len(assessments))
	for i := range assessments {
		entry := CatalogEntry{LiveAssessment: assessments[i]}
		subj, ok := subjects[entry.SubjectID]
		if !ok {
			subj, err = s.subjectRepo.GetByID(ctx, entry.SubjectID)
			if err != nil {
				subj = nil // Display metadata only; missing subject is not fatal
			}
			subjects[entry.SubjectID] = subj
		}
		entry.Subject = subj
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetActive retrieves one live assessment and verifies it is open for
// attempts.
func (s *CatalogService) GetActive(ctx context.Context, id uuid.UUID) (*model.LiveAssessment, error) {
	live, err := s.liveRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	if live.Status != model.LiveStatusActive {
		return nil, ErrNotAvailable
	}
	return live, nil
}

// GetQuestions returns the frozen question bank with grading keys. Never
// serve this shape to takers.
func (s *CatalogService) GetQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	return s.liveRepo.ListQuestions(ctx, assessmentID)
}

// GetTakerPayload returns the cached taker-facing payload, falling back to
// the database and self-healing the cache on a miss.
func (s *CatalogService) GetTakerPayload(ctx context.Context, assessmentID uuid.UUID) (*model.AssessmentPayload, error) {
	key := config.CacheKey.AssessmentPayloadKey(assessmentID.String())

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var payload model.AssessmentPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			return &payload, nil
		}
		// Corrupt cache entry; rebuild below.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	live, err := s.GetActive(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	questions, err := s.liveRepo.ListQuestions(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if err := s.WarmPayloadCache(ctx, live, questions); err != nil {
		s.log.Warn().Err(err).Str("assessment_id", assessmentID.String()).Msg("Self-heal cache warm failed")
	}
	payload := buildPayload(live, questions)
	return &payload, nil
}

// WarmPayloadCache builds and caches the taker-facing payload for one
// live assessment.
func (s *CatalogService) WarmPayloadCache(ctx context.Context, live *model.LiveAssessment, questions []model.Question) error {
	payload := buildPayload(live, questions)
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	key := config.CacheKey.AssessmentPayloadKey(live.ID.String())
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("cache payload: %w", err)
	}

	s.log.Debug().
		Str("assessment_id", live.ID.String()).
		Int("questions", len(questions)).
		Msg("Payload cache warmed")
	return nil
}

// PrewarmAllCaches loads every active assessment's payload into Redis on
// startup so first takers never race a lazy load.
func (s *CatalogService) PrewarmAllCaches(ctx context.Context) error {
	assessments, err := s.liveRepo.ListActive(ctx, nil)
	if err != nil {
		return fmt.Errorf("list active assessments: %w", err)
	}

	warmed := 0
	for i := range assessments {
		questions, err := s.liveRepo.ListQuestions(ctx, assessments[i].ID)
		if err != nil {
			s.log.Warn().Err(err).Str("assessment_id", assessments[i].ID.String()).Msg("Prewarm skipped")
			continue
		}
		if err := s.WarmPayloadCache(ctx, &assessments[i], questions); err != nil {
			s.log.Warn().Err(err).Str("assessment_id", assessments[i].ID.String()).Msg("Prewarm failed")
			continue
		}
		warmed++
	}

	s.log.Info().Int("warmed", warmed).Int("total", len(assessments)).Msg("Catalog prewarm complete")
	return nil
}

// Archive retires a live assessment from the catalog. Existing results
// are untouched.
func (s *CatalogService) Archive(ctx context.Context, id uuid.UUID) error {
	if _, err := s.liveRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAssessmentNotFound
		}
		return err
	}
	if err := s.liveRepo.UpdateStatus(ctx, id, model.LiveStatusArchived); err != nil {
		return fmt.Errorf("archive assessment: %w", err)
	}
	key := config.CacheKey.AssessmentPayloadKey(id.String())
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Str("assessment_id", id.String()).Msg("Payload cache evict failed")
	}
	return nil
}

func buildPayload(live *model.LiveAssessment, questions []model.Question) model.AssessmentPayload {
	forTaker := make([]model.QuestionForTaker, len(questions))
	for i := range questions {
		forTaker[i] = questions[i].ForTaker()
	}
	return model.AssessmentPayload{
		AssessmentID:   live.ID,
		Title:          live.Title,
		Family:         live.Family,
		DurationValue:  live.DurationValue,
		DurationUnit:   live.DurationUnit,
		PassingPercent: live.PassingPercent,
		Questions:      forTaker,
	}
}
