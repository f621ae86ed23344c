// Package feed implements the feed and subscription repository using PostgreSQL.
package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/scitelab/scite-backend/internal/adapter/postgres"
	"github.com/scitelab/scite-backend/internal/domain"
)

// Repo provides feed persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new feed repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const createSQL = `
INSERT INTO feeds (uid, name, last_paper_date)
VALUES ($1, $2, $3)`

const getByUIDSQL = `
SELECT uid, name, last_paper_date FROM feeds WHERE uid = $1`

const addPaperSQL = `
INSERT INTO feed_papers (feed_uid, paper_uid)
VALUES ($1, $2)
ON CONFLICT (feed_uid, paper_uid) DO NOTHING`

const touchLastPaperDateSQL = `
UPDATE feeds SET last_paper_date = $2
WHERE uid = $1 AND (last_paper_date IS NULL OR last_paper_date < $2)`

const subscribeSQL = `
INSERT INTO subscriptions (user_id, feed_uid, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, feed_uid) DO NOTHING`

const unsubscribeSQL = `
DELETE FROM subscriptions WHERE user_id = $1 AND feed_uid = $2`

// Create inserts a new feed. Duplicate uid results in domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, f *domain.Feed) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, createSQL, f.UID, f.Name, f.LastPaperDate); err != nil {
		return postgres.MapError(err, "feed", f.UID)
	}

	return nil
}

// GetByUID returns a feed by uid.
func (r *Repo) GetByUID(ctx context.Context, uid string) (*domain.Feed, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var f domain.Feed
	if err := q.QueryRow(ctx, getByUIDSQL, uid).Scan(&f.UID, &f.Name, &f.LastPaperDate); err != nil {
		return nil, postgres.MapError(err, "feed", uid)
	}

	return &f, nil
}

// AddPaper records a paper's membership in a feed and moves the feed's
// last-paper watermark forward when the paper is newer. Idempotent.
func (r *Repo) AddPaper(ctx context.Context, feedUID, paperUID string, pubdate time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, addPaperSQL, feedUID, paperUID); err != nil {
		return postgres.MapError(err, "feed", feedUID)
	}

	if _, err := q.Exec(ctx, touchLastPaperDateSQL, feedUID, pubdate); err != nil {
		return postgres.MapError(err, "feed", feedUID)
	}

	return nil
}

// Subscribe adds a user to a feed. Idempotent.
func (r *Repo) Subscribe(ctx context.Context, userID uuid.UUID, feedUID string, at time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, subscribeSQL, userID, feedUID, at); err != nil {
		return postgres.MapError(err, "subscription", feedUID)
	}

	return nil
}

// Unsubscribe removes a user from a feed. Reports whether a subscription
// actually existed.
func (r *Repo) Unsubscribe(ctx context.Context, userID uuid.UUID, feedUID string) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, unsubscribeSQL, userID, feedUID)
	if err != nil {
		return false, postgres.MapError(err, "subscription", feedUID)
	}

	return tag.RowsAffected() == 1, nil
}
