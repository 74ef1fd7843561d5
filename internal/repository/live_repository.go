package repository

import (
	"context"

	"github.com/edustack/assess-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LiveRepository handles the taker-visible assessment catalog. Live rows
// are only ever written through the Promotion Engine's transaction.
type LiveRepository struct {
	pool *pgxpool.Pool
}

// NewLiveRepository creates a new LiveRepository.
func NewLiveRepository(pool *pgxpool.Pool) *LiveRepository {
	return &LiveRepository{pool: pool}
}

const liveColumns = `id, staging_id, title, description, subject_id, family, duration_value,
	duration_unit, passing_percent, author_id, status, promoted_at`

func scanLive(row pgx.Row) (*model.LiveAssessment, error) {
	a := &model.LiveAssessment{}
	err := row.Scan(&a.ID, &a.StagingID, &a.Title, &a.Description, &a.SubjectID, &a.Family,
		&a.DurationValue, &a.DurationUnit, &a.PassingPercent, &a.AuthorID, &a.Status, &a.PromotedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// InsertTx writes a live assessment and the value-copied question set
// inside the promotion transaction. Question order is preserved; copies
// get fresh ids so later staging edits can never reach promoted content.
func (r *LiveRepository) InsertTx(ctx context.Context, tx pgx.Tx, a *model.LiveAssessment, questions []model.Question) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO live_assessments
		   (id, staging_id, title, description, subject_id, family, duration_value, duration_unit,
		    passing_percent, author_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING promoted_at`,
		a.ID, a.StagingID, a.Title, a.Description, a.SubjectID, a.Family, a.DurationValue,
		a.DurationUnit, a.PassingPercent, a.AuthorID, a.Status,
	).Scan(&a.PromotedAt)
	if err != nil {
		return err
	}

	for i := range questions {
		q := &questions[i]
		q.ID = uuid.New()
		q.AssessmentID = a.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO live_questions
			   (id, assessment_id, order_index, qtype, prompt, options, correct_answer, points, explanation)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			q.ID, q.AssessmentID, q.OrderIndex, q.Type, q.Prompt, q.Options, q.CorrectAnswer, q.Points, q.Explanation)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a live assessment by id.
func (r *LiveRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.LiveAssessment, error) {
	return scanLive(r.pool.QueryRow(ctx,
		`SELECT `+liveColumns+` FROM live_assessments WHERE id = $1`, id))
}

// ListQuestions retrieves the frozen question bank of a live assessment,
// ordered by position. Includes correct answers; callers serving takers
// must go through the redacted payload instead.
func (r *LiveRepository) ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	return listQuestions(ctx, r.pool, "live_questions", assessmentID)
}

// ListActive returns the catalog visible to takers, optionally filtered by
// family, newest promotions first.
func (r *LiveRepository) ListActive(ctx context.Context, family *model.Family) ([]model.LiveAssessment, error) {
	query := `SELECT ` + liveColumns + ` FROM live_assessments WHERE status = $1`
	args := []any{model.LiveStatusActive}
	if family != nil {
		args = append(args, *family)
		query += ` AND family = $2`
	}
	query += ` ORDER BY promoted_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LiveAssessment
	for rows.Next() {
		a, err := scanLive(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdateStatus moves a live assessment between draft, active and archived.
func (r *LiveRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.LiveStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE live_assessments SET status = $1 WHERE id = $2`, status, id)
	return err
}

// listQuestions is shared by the staging and live catalogs; the two tables
// carry the same shape.
func listQuestions(ctx context.Context, pool *pgxpool.Pool, table string, assessmentID uuid.UUID) ([]model.Question, error) {
	rows, err := pool.Query(ctx,
		`SELECT id, assessment_id, order_index, qtype, prompt, options, correct_answer, points, explanation
		 FROM `+table+` WHERE assessment_id = $1 ORDER BY order_index`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.AssessmentID, &q.OrderIndex, &q.Type, &q.Prompt,
			&q.Options, &q.CorrectAnswer, &q.Points, &q.Explanation); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
