package repository

import (
	"context"

	"github.com/edustack/assess-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository reads identity records used to issue role tokens.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetByUsername retrieves an account for credential checks.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	a := &model.Account{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, role, password_hash, created_at
		 FROM accounts WHERE username = $1`, username,
	).Scan(&a.ID, &a.Username, &a.Name, &a.Role, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an account by id.
func (r *AccountRepository) GetByID(ctx context.Context, id int) (*model.Account, error) {
	a := &model.Account{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, role, password_hash, created_at
		 FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Username, &a.Name, &a.Role, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts an account. Used by the bootstrap CLI, not the API.
func (r *AccountRepository) Create(ctx context.Context, a *model.Account) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO accounts (username, name, role, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		a.Username, a.Name, a.Role, a.PasswordHash,
	).Scan(&a.ID, &a.CreatedAt)
}
