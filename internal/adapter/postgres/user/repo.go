// Package user implements the user repository using PostgreSQL.
package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/scitelab/scite-backend/internal/adapter/postgres"
	"github.com/scitelab/scite-backend/internal/domain"
)

// Repo provides user persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new user repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const createSQL = `
INSERT INTO users (id, email, username, name, account_status, scites_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const getByIDSQL = `
SELECT id, email, username, name, account_status, scites_count, created_at, updated_at
FROM users WHERE id = $1`

const adjustScitesCountSQL = `
UPDATE users SET scites_count = scites_count + $2, updated_at = now()
WHERE id = $1`

const setAccountStatusSQL = `
UPDATE users SET account_status = $2, updated_at = now()
WHERE id = $1`

// Create inserts a new user. Duplicate email or username results in
// domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, u *domain.User) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := q.Exec(ctx, createSQL,
		u.ID, u.Email, u.Username, u.Name, string(u.AccountStatus), u.ScitesCount, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "user", u.ID.String())
	}

	return nil
}

// GetByID returns a user by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var u domain.User
	var status string
	err := q.QueryRow(ctx, getByIDSQL, id).Scan(
		&u.ID, &u.Email, &u.Username, &u.Name, &status, &u.ScitesCount, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, postgres.MapError(err, "user", id.String())
	}
	u.AccountStatus = domain.AccountStatus(status)

	return &u, nil
}

// AdjustScitesCount shifts the cached scite counter by delta. It must only
// be called in the same transaction as the scite row change it reflects.
// A shift below zero violates the table check constraint and surfaces as
// domain.ErrValidation, which indicates counter drift.
func (r *Repo) AdjustScitesCount(ctx context.Context, id uuid.UUID, delta int) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, adjustScitesCountSQL, id, delta)
	if err != nil {
		return postgres.MapError(err, "user", id.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SetAccountStatus updates the account status.
func (r *Repo) SetAccountStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error {
	if !status.Valid() {
		return domain.NewValidationError("account_status", fmt.Sprintf("unknown status %q", status))
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, setAccountStatusSQL, id, string(status))
	if err != nil {
		return postgres.MapError(err, "user", id.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
