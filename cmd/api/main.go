package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/dispatch-api/internal/config"
	"github.com/jwalitptl/dispatch-api/internal/email"
	acceptHandler "github.com/jwalitptl/dispatch-api/internal/handler/accept"
	healthHandler "github.com/jwalitptl/dispatch-api/internal/handler/health"
	requestHandler "github.com/jwalitptl/dispatch-api/internal/handler/request"
	"github.com/jwalitptl/dispatch-api/internal/middleware"
	"github.com/jwalitptl/dispatch-api/internal/repository/postgres"
	"github.com/jwalitptl/dispatch-api/internal/router"
	"github.com/jwalitptl/dispatch-api/internal/service/acceptance"
	"github.com/jwalitptl/dispatch-api/internal/service/audit"
	"github.com/jwalitptl/dispatch-api/internal/service/dispatch"
	"github.com/jwalitptl/dispatch-api/internal/service/lifecycle"
	"github.com/jwalitptl/dispatch-api/internal/service/matching"
	requestService "github.com/jwalitptl/dispatch-api/internal/service/request"
	"github.com/jwalitptl/dispatch-api/internal/videoroom"
	"github.com/jwalitptl/dispatch-api/internal/whatsapp"
	"github.com/jwalitptl/dispatch-api/pkg/logger"
	"github.com/jwalitptl/dispatch-api/pkg/messaging"
	redisBroker "github.com/jwalitptl/dispatch-api/pkg/messaging/redis"
	"github.com/jwalitptl/dispatch-api/pkg/metrics"
	"github.com/jwalitptl/dispatch-api/pkg/token"
)

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

	broker, err := redisBroker.NewRedisBroker(redisBroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("dispatch", "api")

	// Repositories
	requestRepo := postgres.NewRequestRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	attemptRepo := postgres.NewNotificationAttemptRepository(db)
	eventRepo := postgres.NewAcceptanceEventRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	// Outbound collaborators
	tokens := token.NewService(cfg.Token.Secret, cfg.Token.AcceptTTL)
	emailSvc := email.NewSMTPService(cfg.SMTP)
	whatsappClient := whatsapp.NewClient(cfg.WhatsApp)
	roomClient := videoroom.NewClient(cfg.VideoRoom)

	// Services
	auditSvc := audit.NewService(auditRepo)
	matcher := matching.NewService(doctorRepo, cfg.Dispatch.DoctorCacheTTL, cfg.Dispatch.DoctorCacheSweep)
	lifecycleSvc := lifecycle.NewService(requestRepo)

	channels := buildChannels(cfg, emailSvc, whatsappClient, broker)
	dispatcher := dispatch.NewService(attemptRepo, tokens, channels, cfg.Dispatch.ChannelTimeout, appLogger, m)

	requestSvc := requestService.NewService(requestRepo, matcher, lifecycleSvc, dispatcher, auditSvc, appLogger, cfg.Dispatch.DefaultExpiry)
	acceptor := acceptance.NewService(requestRepo, eventRepo, attemptRepo, matcher, roomClient, broker, auditSvc, appLogger, m)

	// Handlers
	var pinger healthHandler.BrokerPinger
	if p, ok := broker.(healthHandler.BrokerPinger); ok {
		pinger = p
	}
	reqHandler := requestHandler.NewHandler(requestSvc, acceptor)
	accHandler := acceptHandler.NewHandler(acceptor, tokens)
	hlthHandler := healthHandler.NewHandler(db, pinger)
	doctorAuth := middleware.NewDoctorAuth(cfg.Token.DoctorJWT)

	r := router.NewRouter(doctorAuth, reqHandler, accHandler, hlthHandler, router.RouterConfig{
		RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:     cfg.RateLimit.Burst,
		RateEnabled:   cfg.RateLimit.Enabled,
		MetricsPrefix: "dispatch_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Let in-flight post-acceptance actions finish before exit.
	acceptor.Wait()

	log.Info().Msg("server exited")
}

func buildChannels(cfg *config.Config, emailSvc email.Service, wa whatsapp.Client, broker messaging.Broker) []dispatch.Channel {
	var channels []dispatch.Channel
	for _, name := range cfg.Dispatch.Channels {
		switch name {
		case "email":
			channels = append(channels, dispatch.NewEmailChannel(emailSvc, cfg.Token.AcceptURL))
		case "whatsapp":
			channels = append(channels, dispatch.NewWhatsAppChannel(wa))
		case "dashboard":
			channels = append(channels, dispatch.NewDashboardChannel(broker))
		}
	}
	return channels
}
