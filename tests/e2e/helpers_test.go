//go:build e2e

package e2e_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scitelab/scite-backend/internal/adapter/postgres"
	commentrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/comment"
	feedrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/feed"
	modlogrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/modlog"
	paperrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/paper"
	prefrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/preference"
	sciterepo "github.com/scitelab/scite-backend/internal/adapter/postgres/scite"
	"github.com/scitelab/scite-backend/internal/adapter/postgres/testhelper"
	userrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/user"
	"github.com/scitelab/scite-backend/internal/search"
	"github.com/scitelab/scite-backend/internal/service/ingest"
	"github.com/scitelab/scite-backend/internal/service/interaction"
	"github.com/scitelab/scite-backend/internal/service/window"
)

// services bundles the full stack wired against a real database, the same
// way internal/app assembles it for the binaries.
type services struct {
	Pool *pgxpool.Pool

	Users    *userrepo.Repo
	Papers   *paperrepo.Repo
	Feeds    *feedrepo.Repo
	Comments *commentrepo.Repo
	Scites   *sciterepo.Repo
	ModLog   *modlogrepo.Repo

	Window      *window.Service
	Interaction *interaction.Service
	Ingest      *ingest.Service
}

func setupServices(t *testing.T) *services {
	t.Helper()

	pool := testhelper.SetupTestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	txm := postgres.NewTxManager(pool)

	users := userrepo.New(pool)
	papers := paperrepo.New(pool)
	feeds := feedrepo.New(pool)
	comments := commentrepo.New(pool)
	scites := sciterepo.New(pool)
	mlog := modlogrepo.New(pool)
	prefs := prefrepo.New(pool)

	return &services{
		Pool:     pool,
		Users:    users,
		Papers:   papers,
		Feeds:    feeds,
		Comments: comments,
		Scites:   scites,
		ModLog:   mlog,

		Window:      window.New(txm, prefs, papers, time.UTC, log),
		Interaction: interaction.New(txm, scites, comments, papers, users, mlog, log),
		Ingest:      ingest.New(txm, papers, feeds, search.NewLogIndexer(log), 100, log),
	}
}
