package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dispatch-api/internal/config"
	"github.com/jwalitptl/dispatch-api/internal/repository/postgres"
	"github.com/jwalitptl/dispatch-api/internal/service/lifecycle"
	"github.com/jwalitptl/dispatch-api/pkg/logger"
	"github.com/jwalitptl/dispatch-api/pkg/metrics"
	"github.com/jwalitptl/dispatch-api/pkg/worker"
)

// The worker binary runs the expiry sweeper separately from the API so
// expiry keeps firing during API deploys.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	requestRepo := postgres.NewRequestRepository(db)
	lifecycleSvc := lifecycle.NewService(requestRepo)

	sweeper := worker.NewExpirySweeper(
		requestRepo,
		lifecycleSvc,
		worker.ExpirySweeperConfig{
			BatchSize:    cfg.Sweeper.BatchSize,
			PollInterval: cfg.Sweeper.PollInterval,
		},
		appLogger,
		metrics.NewMetrics("dispatch", "worker"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go sweeper.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down sweeper")
	cancel()
}
