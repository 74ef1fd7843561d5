package repository

import (
	"context"

	"github.com/edustack/assess-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubjectRepository reads the subject catalog. Subjects are maintained by
// an external collaborator; this pipeline only attaches them for display.
type SubjectRepository struct {
	pool *pgxpool.Pool
}

// NewSubjectRepository creates a new SubjectRepository.
func NewSubjectRepository(pool *pgxpool.Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

// GetByID retrieves one subject.
func (r *SubjectRepository) GetByID(ctx context.Context, id int) (*model.Subject, error) {
	s := &model.Subject{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, code, created_at FROM subjects WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Code, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetAll retrieves the full subject catalog ordered by name.
func (r *SubjectRepository) GetAll(ctx context.Context) ([]model.Subject, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, code, created_at FROM subjects ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		var s model.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}
