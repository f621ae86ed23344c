// Package paper implements the paper and author repository using PostgreSQL.
// Fixed-shape statements are raw SQL constants; the window listing is built
// with squirrel because its WHERE clause depends on whether a feed is given.
package paper

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/scitelab/scite-backend/internal/adapter/postgres"
	"github.com/scitelab/scite-backend/internal/domain"
)

// Repo provides paper and author persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new paper repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const createSQL = `
INSERT INTO papers (uid, title, abstract, url, pubdate, updated_date,
                    scites_count, comments_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const getByUIDSQL = `
SELECT uid, title, abstract, url, pubdate, updated_date,
       scites_count, comments_count, created_at, updated_at
FROM papers WHERE uid = $1`

const adjustScitesCountSQL = `
UPDATE papers SET scites_count = scites_count + $2, updated_at = now()
WHERE uid = $1`

const adjustCommentsCountSQL = `
UPDATE papers SET comments_count = comments_count + $2, updated_at = now()
WHERE uid = $1`

const insertAuthorSQL = `
INSERT INTO authors (paper_uid, position, full_name, search_key)
VALUES ($1, $2, $3, $4)`

const deleteAuthorsSQL = `
DELETE FROM authors WHERE paper_uid = $1`

const listAuthorsSQL = `
SELECT id, paper_uid, position, full_name, search_key
FROM authors WHERE paper_uid = $1
ORDER BY position ASC`

const listAuthorsPageSQL = `
SELECT id, paper_uid, position, full_name, search_key
FROM authors WHERE id > $1
ORDER BY id ASC
LIMIT $2`

const updateAuthorSearchKeySQL = `
UPDATE authors SET search_key = $2 WHERE id = $1`

// ---------------------------------------------------------------------------
// Papers
// ---------------------------------------------------------------------------

// Create inserts a new paper. Duplicate uid results in domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, p *domain.Paper) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := q.Exec(ctx, createSQL,
		p.UID, p.Title, p.Abstract, p.URL, p.Pubdate, p.UpdatedDate,
		p.ScitesCount, p.CommentsCount, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "paper", p.UID)
	}

	return nil
}

// GetByUID returns a paper by archive uid.
func (r *Repo) GetByUID(ctx context.Context, uid string) (*domain.Paper, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var p domain.Paper
	err := q.QueryRow(ctx, getByUIDSQL, uid).Scan(
		&p.UID, &p.Title, &p.Abstract, &p.URL, &p.Pubdate, &p.UpdatedDate,
		&p.ScitesCount, &p.CommentsCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, postgres.MapError(err, "paper", uid)
	}

	return &p, nil
}

// AdjustScitesCount shifts the cached scite counter by delta. It must only
// be called in the same transaction as the scite row change it reflects.
func (r *Repo) AdjustScitesCount(ctx context.Context, uid string, delta int) error {
	return r.adjustCounter(ctx, adjustScitesCountSQL, uid, delta)
}

// AdjustCommentsCount shifts the cached live-comment counter by delta. It
// must only be called in the same transaction as the liveness transition it
// reflects.
func (r *Repo) AdjustCommentsCount(ctx context.Context, uid string, delta int) error {
	return r.adjustCounter(ctx, adjustCommentsCountSQL, uid, delta)
}

func (r *Repo) adjustCounter(ctx context.Context, sql, uid string, delta int) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, sql, uid, delta)
	if err != nil {
		return postgres.MapError(err, "paper", uid)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("paper %s: %w", uid, domain.ErrNotFound)
	}

	return nil
}

// ListWindow returns papers with pubdate inside [start, end], newest first.
// With a feed uid the listing is restricted to that feed's papers; without
// one it covers the home feed, i.e. every feed the user subscribes to.
func (r *Repo) ListWindow(ctx context.Context, userID uuid.UUID, feedUID *string, start, end time.Time) ([]domain.Paper, error) {
	builder := psql.
		Select("DISTINCT p.uid", "p.title", "p.abstract", "p.url", "p.pubdate", "p.updated_date",
			"p.scites_count", "p.comments_count", "p.created_at", "p.updated_at").
		From("papers p").
		Join("feed_papers fp ON fp.paper_uid = p.uid").
		Where(sq.GtOrEq{"p.pubdate": start}).
		Where(sq.LtOrEq{"p.pubdate": end}).
		OrderBy("p.pubdate DESC")

	if feedUID != nil {
		builder = builder.Where(sq.Eq{"fp.feed_uid": *feedUID})
	} else {
		builder = builder.
			Join("subscriptions s ON s.feed_uid = fp.feed_uid").
			Where(sq.Eq{"s.user_id": userID})
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build window query: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	var papers []domain.Paper
	if err := pgxscan.Select(ctx, q, &papers, sql, args...); err != nil {
		return nil, fmt.Errorf("list window papers: %w", err)
	}

	if papers == nil {
		papers = []domain.Paper{}
	}

	return papers, nil
}

// ---------------------------------------------------------------------------
// Authors
// ---------------------------------------------------------------------------

// InsertAuthors inserts the ordered author list for a paper in one batch.
func (r *Repo) InsertAuthors(ctx context.Context, paperUID string, authors []domain.Author) error {
	if len(authors) == 0 {
		return nil
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	batch := &pgx.Batch{}
	for _, a := range authors {
		batch.Queue(insertAuthorSQL, paperUID, a.Position, a.FullName, a.SearchKey)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for range authors {
		if _, err := results.Exec(); err != nil {
			return postgres.MapError(err, "author", paperUID)
		}
	}

	return nil
}

// ReplaceAuthors swaps a paper's author list for a new one. Call inside a
// transaction so readers never observe a paper without authors.
func (r *Repo) ReplaceAuthors(ctx context.Context, paperUID string, authors []domain.Author) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, deleteAuthorsSQL, paperUID); err != nil {
		return postgres.MapError(err, "author", paperUID)
	}

	return r.InsertAuthors(ctx, paperUID, authors)
}

// ListAuthors returns a paper's authors in position order.
func (r *Repo) ListAuthors(ctx context.Context, paperUID string) ([]domain.Author, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var authors []domain.Author
	if err := pgxscan.Select(ctx, q, &authors, listAuthorsSQL, paperUID); err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}

	if authors == nil {
		authors = []domain.Author{}
	}

	return authors, nil
}

// ListAuthorsPage returns up to limit author rows with id > afterID,
// ordered by id. Used by the search-key backfill to walk the whole table.
func (r *Repo) ListAuthorsPage(ctx context.Context, afterID int64, limit int) ([]domain.Author, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var authors []domain.Author
	if err := pgxscan.Select(ctx, q, &authors, listAuthorsPageSQL, afterID, limit); err != nil {
		return nil, fmt.Errorf("list authors page: %w", err)
	}

	if authors == nil {
		authors = []domain.Author{}
	}

	return authors, nil
}

// UpdateAuthorSearchKey rewrites a single author's derived search key.
func (r *Repo) UpdateAuthorSearchKey(ctx context.Context, authorID int64, key string) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, updateAuthorSearchKeySQL, authorID, key)
	if err != nil {
		return postgres.MapError(err, "author", fmt.Sprint(authorID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("author %d: %w", authorID, domain.ErrNotFound)
	}

	return nil
}
