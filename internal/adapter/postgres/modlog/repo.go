// Package modlog implements the moderation audit log repository using PostgreSQL.
package modlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/scitelab/scite-backend/internal/adapter/postgres"
)

// Entry is one recorded moderation action.
type Entry struct {
	ID        uuid.UUID
	ActorID   uuid.UUID
	Action    string
	CommentID uuid.UUID
	CreatedAt time.Time
}

// Actions recorded in the log.
const (
	ActionDelete  = "delete"
	ActionRestore = "restore"
	ActionHide    = "hide"
	ActionUnhide  = "unhide"
)

// Repo provides moderation-log persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new moderation-log repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const insertSQL = `
INSERT INTO moderation_log (id, actor_id, action, comment_id, created_at)
VALUES ($1, $2, $3, $4, $5)`

const listByCommentSQL = `
SELECT id, actor_id, action, comment_id, created_at
FROM moderation_log WHERE comment_id = $1
ORDER BY created_at ASC`

// Insert records a moderation action. Call in the same transaction as the
// action itself so the log never disagrees with the comment state.
func (r *Repo) Insert(ctx context.Context, e Entry) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, insertSQL, e.ID, e.ActorID, e.Action, e.CommentID, e.CreatedAt); err != nil {
		return postgres.MapError(err, "moderation_log", e.ID.String())
	}

	return nil
}

// ListByComment returns the moderation history of a comment, oldest first.
func (r *Repo) ListByComment(ctx context.Context, commentID uuid.UUID) ([]Entry, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, listByCommentSQL, commentID)
	if err != nil {
		return nil, fmt.Errorf("list moderation log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.CommentID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan moderation log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation log: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return entries, nil
}
