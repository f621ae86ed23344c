// Package comment implements the comment repository using PostgreSQL.
//
// The flag-flip statements are conditional UPDATEs: they only touch a row
// when the flag actually changes, and they RETURN the other flag so the
// caller learns in the same statement whether the comment's liveness
// changed. Counter adjustments derive strictly from that answer.
package comment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/scitelab/scite-backend/internal/adapter/postgres"
	"github.com/scitelab/scite-backend/internal/domain"
)

// Repo provides comment persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new comment repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const insertSQL = `
INSERT INTO comments (id, user_id, paper_uid, content, deleted, hidden, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const getByIDSQL = `
SELECT id, user_id, paper_uid, content, deleted, hidden, created_at, updated_at
FROM comments WHERE id = $1`

const markDeletedSQL = `
UPDATE comments SET deleted = true, updated_at = $2
WHERE id = $1 AND deleted = false
RETURNING paper_uid, hidden`

const markRestoredSQL = `
UPDATE comments SET deleted = false, updated_at = $2
WHERE id = $1 AND deleted = true
RETURNING paper_uid, hidden`

const setHiddenSQL = `
UPDATE comments SET hidden = $2, updated_at = $3
WHERE id = $1 AND hidden <> $2
RETURNING paper_uid, deleted`

const existsSQL = `
SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1)`

const listIDsByUserSQL = `
SELECT id FROM comments WHERE user_id = $1 ORDER BY created_at ASC`

const listLiveByPaperSQL = `
SELECT id, user_id, paper_uid, content, deleted, hidden, created_at, updated_at
FROM comments
WHERE paper_uid = $1 AND deleted = false AND hidden = false
ORDER BY created_at ASC`

const countLiveByPaperSQL = `
SELECT count(*) FROM comments
WHERE paper_uid = $1 AND deleted = false AND hidden = false`

// Insert stores a new comment.
func (r *Repo) Insert(ctx context.Context, c *domain.Comment) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := q.Exec(ctx, insertSQL,
		c.ID, c.UserID, c.PaperUID, c.Content, c.Deleted, c.Hidden, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "comment", c.ID.String())
	}

	return nil
}

// GetByID returns a comment by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var c domain.Comment
	err := q.QueryRow(ctx, getByIDSQL, id).Scan(
		&c.ID, &c.UserID, &c.PaperUID, &c.Content, &c.Deleted, &c.Hidden, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, postgres.MapError(err, "comment", id.String())
	}

	return &c, nil
}

// MarkDeleted sets the moderator soft-delete flag. It reports the owning
// paper and whether the comment went from live to not-live (only then may
// the paper's counter be decremented). Already-deleted comments are a
// no-op, not an error.
func (r *Repo) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) (paperUID string, becameNonLive bool, err error) {
	return r.flipFlag(ctx, markDeletedSQL, id, at)
}

// MarkRestored clears the moderator soft-delete flag. It reports the owning
// paper and whether the comment went from not-live to live (the hidden flag
// can still keep it non-live). Already-restored comments are a no-op.
func (r *Repo) MarkRestored(ctx context.Context, id uuid.UUID, at time.Time) (paperUID string, becameLive bool, err error) {
	return r.flipFlag(ctx, markRestoredSQL, id, at)
}

func (r *Repo) flipFlag(ctx context.Context, sql string, id uuid.UUID, at time.Time) (string, bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var paperUID string
	var hidden bool
	err := q.QueryRow(ctx, sql, id, at).Scan(&paperUID, &hidden)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the flag was already in the target state or the comment
		// does not exist; only the latter is an error.
		return "", false, r.noopOrNotFound(ctx, id)
	}
	if err != nil {
		return "", false, postgres.MapError(err, "comment", id.String())
	}

	return paperUID, !hidden, nil
}

// SetHidden flips the hidden flag to the given value. It reports the owning
// paper and whether liveness changed as a result (false when the comment is
// also soft-deleted, or when the flag was already in that state).
func (r *Repo) SetHidden(ctx context.Context, id uuid.UUID, hidden bool, at time.Time) (paperUID string, livenessChanged bool, err error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var deleted bool
	err = q.QueryRow(ctx, setHiddenSQL, id, hidden, at).Scan(&paperUID, &deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, r.noopOrNotFound(ctx, id)
	}
	if err != nil {
		return "", false, postgres.MapError(err, "comment", id.String())
	}

	return paperUID, !deleted, nil
}

// noopOrNotFound distinguishes "flag already in target state" (nil) from a
// missing comment (domain.ErrNotFound) after a conditional UPDATE matched
// no rows.
func (r *Repo) noopOrNotFound(ctx context.Context, id uuid.UUID) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var exists bool
	if err := q.QueryRow(ctx, existsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("comment exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListIDsByUser returns the ids of all of a user's comments, oldest first.
// Used by the bulk hide/unhide path, which processes each id in its own
// transaction.
func (r *Repo) ListIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, listIDsByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list comment ids by user: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan comment id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment ids: %w", err)
	}

	if ids == nil {
		ids = []uuid.UUID{}
	}

	return ids, nil
}

// ListLiveByPaper returns a paper's live comments, oldest first.
func (r *Repo) ListLiveByPaper(ctx context.Context, paperUID string) ([]domain.Comment, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var comments []domain.Comment
	if err := pgxscan.Select(ctx, q, &comments, listLiveByPaperSQL, paperUID); err != nil {
		return nil, fmt.Errorf("list live comments: %w", err)
	}

	if comments == nil {
		comments = []domain.Comment{}
	}

	return comments, nil
}

// CountLiveByPaper returns the number of live comments on a paper. This is
// the source fact the paper's cached comments_count must always equal.
func (r *Repo) CountLiveByPaper(ctx context.Context, paperUID string) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := q.QueryRow(ctx, countLiveByPaperSQL, paperUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count live comments: %w", err)
	}

	return count, nil
}
