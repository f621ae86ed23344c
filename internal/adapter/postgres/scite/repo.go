// Package scite implements persistence for scite facts using PostgreSQL.
// A scite is a (user, paper) pair; the table's primary key enforces the
// at-most-one-live-row invariant, so a concurrent duplicate insert loses
// cleanly instead of erroring.
package scite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/scitelab/scite-backend/internal/adapter/postgres"
)

// Repo provides scite persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new scite repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const insertSQL = `
INSERT INTO scites (user_id, paper_uid, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, paper_uid) DO NOTHING`

const deleteSQL = `
DELETE FROM scites WHERE user_id = $1 AND paper_uid = $2`

const existsSQL = `
SELECT EXISTS(SELECT 1 FROM scites WHERE user_id = $1 AND paper_uid = $2)`

const countByPaperSQL = `
SELECT count(*) FROM scites WHERE paper_uid = $1`

const countByUserSQL = `
SELECT count(*) FROM scites WHERE user_id = $1`

// Insert records a scite fact. It reports whether a row was actually
// inserted: false means the pair was already scited and nothing changed.
func (r *Repo) Insert(ctx context.Context, userID uuid.UUID, paperUID string, at time.Time) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, insertSQL, userID, paperUID, at)
	if err != nil {
		return false, postgres.MapError(err, "scite", paperUID)
	}

	return tag.RowsAffected() == 1, nil
}

// Delete removes a scite fact. It reports whether a row was actually
// removed: false means the pair was not scited and nothing changed.
func (r *Repo) Delete(ctx context.Context, userID uuid.UUID, paperUID string) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, deleteSQL, userID, paperUID)
	if err != nil {
		return false, postgres.MapError(err, "scite", paperUID)
	}

	return tag.RowsAffected() == 1, nil
}

// Exists reports whether the (user, paper) pair is currently scited.
func (r *Repo) Exists(ctx context.Context, userID uuid.UUID, paperUID string) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var exists bool
	if err := q.QueryRow(ctx, existsSQL, userID, paperUID).Scan(&exists); err != nil {
		return false, fmt.Errorf("scite exists: %w", err)
	}

	return exists, nil
}

// CountByPaper returns the number of scite rows for a paper. This is the
// source fact the paper's cached scites_count must always equal.
func (r *Repo) CountByPaper(ctx context.Context, paperUID string) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := q.QueryRow(ctx, countByPaperSQL, paperUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count scites by paper: %w", err)
	}

	return count, nil
}

// CountByUser returns the number of scite rows owned by a user.
func (r *Repo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := q.QueryRow(ctx, countByUserSQL, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count scites by user: %w", err)
	}

	return count, nil
}
