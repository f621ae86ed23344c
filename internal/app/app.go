package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scitelab/scite-backend/internal/adapter/postgres"
	commentrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/comment"
	feedrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/feed"
	modlogrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/modlog"
	paperrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/paper"
	prefrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/preference"
	sciterepo "github.com/scitelab/scite-backend/internal/adapter/postgres/scite"
	userrepo "github.com/scitelab/scite-backend/internal/adapter/postgres/user"
	"github.com/scitelab/scite-backend/internal/config"
	"github.com/scitelab/scite-backend/internal/search"
	"github.com/scitelab/scite-backend/internal/service/ingest"
	"github.com/scitelab/scite-backend/internal/service/interaction"
	"github.com/scitelab/scite-backend/internal/service/window"
)

// App wires the storage layer and the domain services. The transport layer
// (external to this core) is expected to build on top of the exposed
// services.
type App struct {
	Pool *pgxpool.Pool
	Log  *slog.Logger

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

// New connects to the database and assembles all services from cfg.
// Callers own the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	loc, err := cfg.Window.Location()
	if err != nil {
		pool.Close()
		return nil, err
	}

	txm := postgres.NewTxManager(pool)

	users := userrepo.New(pool)
	papers := paperrepo.New(pool)
	feeds := feedrepo.New(pool)
	comments := commentrepo.New(pool)
	scites := sciterepo.New(pool)
	mlog := modlogrepo.New(pool)
	prefs := prefrepo.New(pool)

	return &App{
		Pool:     pool,
		Log:      log,
		Users:    users,
		Papers:   papers,
		Feeds:    feeds,
		Comments: comments,
		Scites:   scites,
		ModLog:   mlog,

		Window:      window.New(txm, prefs, papers, loc, log),
		Interaction: interaction.New(txm, scites, comments, papers, users, mlog, log),
		Ingest: ingest.New(txm, papers, feeds, search.NewLogIndexer(log),
			cfg.Ingest.ReindexBatchSize, log),
	}, nil
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}
