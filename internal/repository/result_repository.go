package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/edustack/assess-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultRepository is the append-only result store. No update or delete is
// exposed; corrections require a new attempt.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

const resultColumns = `id, taker_id, assessment_id, score, total_points, percentage,
	correct_answers, total_questions, time_taken_seconds, started_at, completed_at,
	answers_snapshot, passed`

// Insert appends one result row. The id is assigned by the grading path,
// so a worker retry after a partial batch failure stays idempotent.
func (r *ResultRepository) Insert(ctx context.Context, res *model.Result) error {
	snapshot, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers snapshot: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO results (`+resultColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO NOTHING`,
		res.ID, res.TakerID, res.AssessmentID, res.Score, res.TotalPoints, res.Percentage,
		res.CorrectAnswers, res.TotalQuestions, res.TimeTakenSeconds, res.StartedAt,
		res.CompletedAt, snapshot, res.Passed)
	return err
}

// InsertBatch appends a batch of results with COPY. Duplicate ids abort
// the whole COPY; callers recover by retrying row-by-row with Insert,
// which tolerates duplicates.
func (r *ResultRepository) InsertBatch(ctx context.Context, batch []*model.Result) error {
	rows := make([][]any, 0, len(batch))
	for _, res := range batch {
		snapshot, err := json.Marshal(res.Answers)
		if err != nil {
			return fmt.Errorf("marshal answers snapshot: %w", err)
		}
		rows = append(rows, []any{
			res.ID, res.TakerID, res.AssessmentID, res.Score, res.TotalPoints, res.Percentage,
			res.CorrectAnswers, res.TotalQuestions, res.TimeTakenSeconds, res.StartedAt,
			res.CompletedAt, snapshot, res.Passed,
		})
	}

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"results"},
		[]string{"id", "taker_id", "assessment_id", "score", "total_points", "percentage",
			"correct_answers", "total_questions", "time_taken_seconds", "started_at",
			"completed_at", "answers_snapshot", "passed"},
		pgx.CopyFromRows(rows))
	return err
}

func scanResult(row pgx.Row) (*model.Result, error) {
	res := &model.Result{}
	var snapshot []byte
	err := row.Scan(&res.ID, &res.TakerID, &res.AssessmentID, &res.Score, &res.TotalPoints,
		&res.Percentage, &res.CorrectAnswers, &res.TotalQuestions, &res.TimeTakenSeconds,
		&res.StartedAt, &res.CompletedAt, &snapshot, &res.Passed)
	if err != nil {
		return nil, err
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &res.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers snapshot: %w", err)
		}
	}
	return res, nil
}

// ListByTaker returns a taker's result history, newest first.
func (r *ResultRepository) ListByTaker(ctx context.Context, takerID int) ([]model.Result, error) {
	return r.list(ctx,
		`SELECT `+resultColumns+` FROM results WHERE taker_id = $1 ORDER BY completed_at DESC`,
		takerID)
}

// ListByAssessment returns the leaderboard read shape: best percentage
// first, ties broken by most recent completion.
func (r *ResultRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Result, error) {
	return r.list(ctx,
		`SELECT `+resultColumns+` FROM results WHERE assessment_id = $1
		 ORDER BY percentage DESC, completed_at DESC`,
		assessmentID)
}

func (r *ResultRepository) list(ctx context.Context, query string, args ...any) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// Stats computes the aggregate statistics over all results of one
// assessment. An assessment with no results returns zeroes.
func (r *ResultRepository) Stats(ctx context.Context, assessmentID uuid.UUID) (*model.AssessmentStats, error) {
	s := &model.AssessmentStats{AssessmentID: assessmentID}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(percentage), 0),
		        COALESCE(MIN(percentage), 0),
		        COALESCE(MAX(percentage), 0),
		        COALESCE(AVG(time_taken_seconds), 0),
		        COUNT(*) FILTER (WHERE percentage >= 75)
		 FROM results WHERE assessment_id = $1`, assessmentID,
	).Scan(&s.AttemptCount, &s.AvgPercentage, &s.MinPercentage, &s.MaxPercentage,
		&s.AvgTimeSecs, &s.CountAbove75)
	if err != nil {
		return nil, err
	}
	return s, nil
}
