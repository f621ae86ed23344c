// Command server assembles the storage layer and domain services and keeps
// them running until terminated. The request transport is mounted on top of
// the app container; without one the process is still useful as a health
// anchor for migrations and connectivity.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("start application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	logger.Info("application started",
		slog.String("version", app.BuildVersion()),
		slog.String("window_timezone", cfg.Window.Timezone),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	logger.Info("shutting down", slog.String("signal", sig.String()))
}
