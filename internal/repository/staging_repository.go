package repository

import (
	"context"
	"time"

	"github.com/edustack/assess-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StagingRepository handles the pending-review assessment catalog.
type StagingRepository struct {
	pool *pgxpool.Pool
}

// NewStagingRepository creates a new StagingRepository.
func NewStagingRepository(pool *pgxpool.Pool) *StagingRepository {
	return &StagingRepository{pool: pool}
}

const stagingColumns = `id, title, description, subject_id, family, duration_value, duration_unit,
	passing_percent, author_id, status, reviewer_id, decision_reason, decided_at,
	promoted_live_id, created_at, updated_at`

func scanStaging(row pgx.Row) (*model.StagingAssessment, error) {
	a := &model.StagingAssessment{}
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.SubjectID, &a.Family,
		&a.DurationValue, &a.DurationUnit, &a.PassingPercent, &a.AuthorID, &a.Status,
		&a.ReviewerID, &a.DecisionReason, &a.DecidedAt, &a.PromotedLiveID,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateWithQuestions inserts a staging assessment and its question bank in
// one transaction so a half-written submission is never observable.
func (r *StagingRepository) CreateWithQuestions(ctx context.Context, a *model.StagingAssessment, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO staging_assessments
		   (title, description, subject_id, family, duration_value, duration_unit, passing_percent, author_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		a.Title, a.Description, a.SubjectID, a.Family, a.DurationValue, a.DurationUnit,
		a.PassingPercent, a.AuthorID, model.StagingStatusPending,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return err
	}
	a.Status = model.StagingStatusPending

	for i := range questions {
		q := &questions[i]
		q.AssessmentID = a.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO staging_questions
			   (assessment_id, order_index, qtype, prompt, options, correct_answer, points, explanation)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			q.AssessmentID, q.OrderIndex, q.Type, q.Prompt, q.Options, q.CorrectAnswer, q.Points, q.Explanation,
		).Scan(&q.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a staging assessment by id.
func (r *StagingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.StagingAssessment, error) {
	return scanStaging(r.pool.QueryRow(ctx,
		`SELECT `+stagingColumns+` FROM staging_assessments WHERE id = $1`, id))
}

// ListQuestions retrieves the question bank of a staging assessment,
// ordered by position. Model answers are included; this read shape is for
// authors and reviewers only.
func (r *StagingRepository) ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	return listQuestions(ctx, r.pool, "staging_questions", assessmentID)
}

// ListByAuthor retrieves a tutor's staging records, newest first.
func (r *StagingRepository) ListByAuthor(ctx context.Context, authorID int) ([]model.StagingAssessment, error) {
	return r.list(ctx,
		`SELECT `+stagingColumns+` FROM staging_assessments WHERE author_id = $1 ORDER BY created_at DESC`,
		authorID)
}

// ListPending retrieves all records awaiting review, oldest first.
func (r *StagingRepository) ListPending(ctx context.Context) ([]model.StagingAssessment, error) {
	return r.list(ctx,
		`SELECT `+stagingColumns+` FROM staging_assessments WHERE status = $1 ORDER BY created_at ASC`,
		model.StagingStatusPending)
}

func (r *StagingRepository) list(ctx context.Context, query string, args ...any) ([]model.StagingAssessment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StagingAssessment
	for rows.Next() {
		a, err := scanStaging(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// MarkRejected flips a pending record to rejected with the mandatory
// reason. The status predicate is the compare-and-swap that serializes
// concurrent review decisions: only one transition ever commits.
// Returns false if no pending record matched.
func (r *StagingRepository) MarkRejected(ctx context.Context, id uuid.UUID, reviewerID int, reason string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE staging_assessments
		 SET status = $1, reviewer_id = $2, decision_reason = $3, decided_at = $4, updated_at = NOW()
		 WHERE id = $5 AND status = $6`,
		model.StagingStatusRejected, reviewerID, reason, at, id, model.StagingStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkApprovedTx flips a pending record to approved inside the caller's
// promotion transaction, recording the promoted live id for idempotent
// re-approval. Returns false if no pending record matched, in which case
// the caller must roll back.
func (r *StagingRepository) MarkApprovedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reviewerID int, liveID uuid.UUID, at time.Time) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE staging_assessments
		 SET status = $1, reviewer_id = $2, decided_at = $3, promoted_live_id = $4, updated_at = NOW()
		 WHERE id = $5 AND status = $6`,
		model.StagingStatusApproved, reviewerID, at, liveID, id, model.StagingStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
