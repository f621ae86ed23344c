// Command reindex-authors walks the author table and rewrites every search
// key that no longer matches the current derivation rules. Run it after the
// rules change; it is restartable and skips rows already holding the
// correct key. It is intended to be invoked by an operator or an external
// job, not as an in-process goroutine.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/scitelab/scite-backend/internal/app"
	"github.com/scitelab/scite-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("start application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	scanned, updated, err := a.Ingest.ReindexAuthors(ctx)
	if err != nil {
		logger.Error("reindex failed",
			slog.String("error", err.Error()),
			slog.Int("scanned", scanned),
			slog.Int("updated", updated),
		)
		os.Exit(1)
	}

	logger.Info("reindex completed",
		slog.Int("scanned", scanned),
		slog.Int("updated", updated),
	)
}
