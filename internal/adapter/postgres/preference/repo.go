// Package preference implements the feed-preference repository using PostgreSQL.
package preference

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/scitelab/scite-backend/internal/adapter/postgres"
	"github.com/scitelab/scite-backend/internal/domain"
)

// Repo provides feed-preference persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new preference repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const insertIfAbsentSQL = `
INSERT INTO feed_preferences (id, user_id, feed_uid, last_visited, previous_last_visited)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (user_id, feed_uid) DO NOTHING`

const getForUpdateSQL = `
SELECT id, user_id, feed_uid, last_visited, previous_last_visited
FROM feed_preferences
WHERE user_id = $1 AND feed_uid IS NOT DISTINCT FROM $2
FOR UPDATE`

const updateWatermarksSQL = `
UPDATE feed_preferences
SET previous_last_visited = $2, last_visited = $3
WHERE id = $1`

// GetOrCreateForUpdate loads the preference row for (user, feed), creating
// it lazily with both watermarks set to now, so a first-ever visit yields
// an empty window instead of a flood of "new" content. The returned row is locked
// FOR UPDATE, so this must run inside a transaction; concurrent visits for
// the same pair serialize on the row lock.
func (r *Repo) GetOrCreateForUpdate(ctx context.Context, userID uuid.UUID, feedUID *string, now time.Time) (*domain.FeedPreference, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, insertIfAbsentSQL, uuid.New(), userID, feedUID, now); err != nil {
		return nil, postgres.MapError(err, "feed_preference", userID.String())
	}

	var p domain.FeedPreference
	err := q.QueryRow(ctx, getForUpdateSQL, userID, feedUID).Scan(
		&p.ID, &p.UserID, &p.FeedUID, &p.LastVisited, &p.PreviousLastVisited)
	if err != nil {
		return nil, postgres.MapError(err, "feed_preference", userID.String())
	}

	return &p, nil
}

// UpdateWatermarks persists both watermarks in one atomic write. The row's
// check constraint rejects previous > last, so a partial or reordered
// update can never be observed.
func (r *Repo) UpdateWatermarks(ctx context.Context, id uuid.UUID, previous, last time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, updateWatermarksSQL, id, previous, last)
	if err != nil {
		return postgres.MapError(err, "feed_preference", id.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("feed_preference %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
