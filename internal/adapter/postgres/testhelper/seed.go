package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scitelab/scite-backend/internal/domain"
)

// UniqueSuffix returns a short unique string for generating non-conflicting test data.
func UniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser creates a user with default account status.
// Returns a filled domain.User.
func SeedUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()
	ctx := context.Background()

	suffix := UniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := domain.User{
		ID:            uuid.New(),
		Email:         "testuser-" + suffix + "@example.com",
		Username:      "testuser-" + suffix,
		Name:          "Test User " + suffix,
		AccountStatus: domain.StatusUser,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, email, username, name, account_status, scites_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.Username, user.Name, string(user.AccountStatus), user.ScitesCount, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser insert user: %v", err)
	}

	return user
}

// SeedFeed creates a feed with a unique uid. Returns a filled domain.Feed.
func SeedFeed(t *testing.T, pool *pgxpool.Pool) domain.Feed {
	t.Helper()
	ctx := context.Background()

	suffix := UniqueSuffix()
	feed := domain.Feed{
		UID:  "feed-" + suffix,
		Name: "Test Feed " + suffix,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO feeds (uid, name, last_paper_date) VALUES ($1, $2, $3)`,
		feed.UID, feed.Name, feed.LastPaperDate,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedFeed insert feed: %v", err)
	}

	return feed
}

// SeedPaper creates a paper with the given pubdate and a unique uid.
// Returns a filled domain.Paper with zero counters.
func SeedPaper(t *testing.T, pool *pgxpool.Pool, pubdate time.Time) domain.Paper {
	t.Helper()
	ctx := context.Background()

	suffix := UniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	paper := domain.Paper{
		UID:       "2400." + suffix,
		Title:     "Test Paper " + suffix,
		Abstract:  "Abstract " + suffix,
		URL:       "https://example.org/abs/" + suffix,
		Pubdate:   pubdate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO papers (uid, title, abstract, url, pubdate, updated_date,
		                     scites_count, comments_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		paper.UID, paper.Title, paper.Abstract, paper.URL, paper.Pubdate, paper.UpdatedDate,
		paper.ScitesCount, paper.CommentsCount, paper.CreatedAt, paper.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedPaper insert paper: %v", err)
	}

	return paper
}

// SeedPaperInFeed creates a paper and links it to the feed.
func SeedPaperInFeed(t *testing.T, pool *pgxpool.Pool, feedUID string, pubdate time.Time) domain.Paper {
	t.Helper()
	ctx := context.Background()

	paper := SeedPaper(t, pool, pubdate)

	_, err := pool.Exec(ctx,
		`INSERT INTO feed_papers (feed_uid, paper_uid) VALUES ($1, $2)`,
		feedUID, paper.UID,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedPaperInFeed link paper: %v", err)
	}

	return paper
}

// SeedComment creates a live comment by the user on the paper.
// Returns a filled domain.Comment.
func SeedComment(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, paperUID string) domain.Comment {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	c := domain.Comment{
		ID:        uuid.New(),
		UserID:    userID,
		PaperUID:  paperUID,
		Content:   "Test comment " + UniqueSuffix(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO comments (id, user_id, paper_uid, content, deleted, hidden, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.UserID, c.PaperUID, c.Content, c.Deleted, c.Hidden, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedComment insert comment: %v", err)
	}

	return c
}

// Subscribe subscribes the user to the feed.
func Subscribe(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, feedUID string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO subscriptions (user_id, feed_uid, created_at) VALUES ($1, $2, now())`,
		userID, feedUID,
	)
	if err != nil {
		t.Fatalf("testhelper: Subscribe insert subscription: %v", err)
	}
}
