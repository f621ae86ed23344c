package feed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scitelab/scite-backend/internal/adapter/postgres/feed"
	"github.com/scitelab/scite-backend/internal/adapter/postgres/testhelper"
	"github.com/scitelab/scite-backend/internal/domain"
)

// newRepo sets up a test DB and returns a ready Repo + pool.
func newRepo(t *testing.T) (*feed.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return feed.New(pool), pool
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func TestRepo_Create_And_GetByUID(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	in := &domain.Feed{UID: "t-feed." + uuid.New().String()[:8], Name: "Quantum Physics"}
	if err := repo.Create(ctx, in); err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	got, err := repo.GetByUID(ctx, in.UID)
	if err != nil {
		t.Fatalf("GetByUID: unexpected error: %v", err)
	}
	if got.Name != in.Name {
		t.Errorf("Name mismatch: got %q, want %q", got.Name, in.Name)
	}
	if got.LastPaperDate != nil {
		t.Errorf("LastPaperDate should start nil, got %v", got.LastPaperDate)
	}
}

func TestRepo_GetByUID_NotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	_, err := repo.GetByUID(context.Background(), "no-such-feed")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestRepo_AddPaper_AdvancesLastPaperDate(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	f := testhelper.SeedFeed(t, pool)

	older := now().Add(-48 * time.Hour)
	newer := now().Add(-24 * time.Hour)
	p1 := testhelper.SeedPaper(t, pool, newer)
	p2 := testhelper.SeedPaper(t, pool, older)

	if err := repo.AddPaper(ctx, f.UID, p1.UID, newer); err != nil {
		t.Fatalf("AddPaper: unexpected error: %v", err)
	}

	got, err := repo.GetByUID(ctx, f.UID)
	if err != nil {
		t.Fatalf("GetByUID: %v", err)
	}
	if got.LastPaperDate == nil || !got.LastPaperDate.Equal(newer) {
		t.Errorf("LastPaperDate: got %v, want %s", got.LastPaperDate, newer)
	}

	// An older paper must not move the watermark backwards.
	if err := repo.AddPaper(ctx, f.UID, p2.UID, older); err != nil {
		t.Fatalf("AddPaper older: %v", err)
	}
	got, err = repo.GetByUID(ctx, f.UID)
	if err != nil {
		t.Fatalf("GetByUID: %v", err)
	}
	if got.LastPaperDate == nil || !got.LastPaperDate.Equal(newer) {
		t.Errorf("LastPaperDate moved backwards: got %v, want %s", got.LastPaperDate, newer)
	}
}

func TestRepo_AddPaper_Idempotent(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	f := testhelper.SeedFeed(t, pool)
	p := testhelper.SeedPaper(t, pool, now())

	if err := repo.AddPaper(ctx, f.UID, p.UID, p.Pubdate); err != nil {
		t.Fatalf("first AddPaper: %v", err)
	}
	if err := repo.AddPaper(ctx, f.UID, p.UID, p.Pubdate); err != nil {
		t.Fatalf("second AddPaper should be a no-op, got: %v", err)
	}

	var count int
	err := pool.QueryRow(ctx,
		`SELECT count(*) FROM feed_papers WHERE feed_uid = $1 AND paper_uid = $2`,
		f.UID, p.UID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count feed_papers: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 membership row, got %d", count)
	}
}

func TestRepo_Subscribe_And_Unsubscribe(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	user := testhelper.SeedUser(t, pool)
	f := testhelper.SeedFeed(t, pool)

	if err := repo.Subscribe(ctx, user.ID, f.UID, now()); err != nil {
		t.Fatalf("Subscribe: unexpected error: %v", err)
	}
	// Idempotent.
	if err := repo.Subscribe(ctx, user.ID, f.UID, now()); err != nil {
		t.Fatalf("second Subscribe: %v", err)
	}

	removed, err := repo.Unsubscribe(ctx, user.ID, f.UID)
	if err != nil {
		t.Fatalf("Unsubscribe: unexpected error: %v", err)
	}
	if !removed {
		t.Error("expected removed=true")
	}

	removed, err = repo.Unsubscribe(ctx, user.ID, f.UID)
	if err != nil {
		t.Fatalf("second Unsubscribe: %v", err)
	}
	if removed {
		t.Error("expected removed=false when no subscription existed")
	}
}

func TestRepo_Subscribe_UnknownFeed(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	user := testhelper.SeedUser(t, pool)

	err := repo.Subscribe(context.Background(), user.ID, "no-such-feed", now())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound (FK violation), got: %v", err)
	}
}
