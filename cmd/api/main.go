package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadp "zro-loans/internal/adapter/http"
	"zro-loans/internal/adapter/middleware"
	"zro-loans/internal/adapter/pubsub"
	"zro-loans/internal/adapter/repository/gormrepo"
	"zro-loans/internal/adapter/repository/redisrepo"
	"zro-loans/internal/adapter/ws"
	"zro-loans/internal/auth"
	"zro-loans/internal/config"
	"zro-loans/internal/domain/application"
	"zro-loans/internal/infrastructure/cache"
	"zro-loans/internal/infrastructure/db"
	"zro-loans/internal/infrastructure/logging"
	"zro-loans/internal/infrastructure/metrics"
	"zro-loans/internal/usecase/intake"
	"zro-loans/internal/usecase/review"
	"zro-loans/internal/usecase/status"
	"zro-loans/internal/usecase/wizard"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotenv(); err != nil {
		return err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closer := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	defer closer.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN(), db.ParseLogLevel(cfg.DBLogLvl))
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := gdb.AutoMigrate(&application.LoanApplication{}); err != nil {
		return err
	}

	rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	m := metrics.New()

	hub := ws.NewHub(m, log)
	go hub.Run(ctx)

	// every replica relays the shared channel to its own websocket clients
	publisher := pubsub.NewRedisPublisher(rdb, pubsub.DefaultChannel)
	subscriber := pubsub.NewRedisSubscriber(rdb, pubsub.DefaultChannel, log)
	go func() {
		if err := subscriber.Run(ctx, nil, hub.Broadcast); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("change feed subscriber stopped", "err", err)
		}
	}()

	repo := gormrepo.NewApplicationRepository(gdb)
	intakeUC := intake.NewUsecase(repo, publisher, log)
	statusUC := status.NewUsecase(repo, log)
	reviewUC := review.NewUsecase(repo, gormrepo.NewGormUoW(gdb), publisher, log)
	sessions := redisrepo.NewWizardSessionStore(rdb, time.Duration(cfg.WizardTTLSecs)*time.Second)
	wizardUC := wizard.NewUsecase(sessions, intakeUC, statusUC, log)

	e := httpadp.NewEcho(log, middleware.Metrics(m))
	httpadp.Register(e, httpadp.Routes{
		Health:       httpadp.NewHandler(),
		Intake:       httpadp.NewIntakeHandler(intakeUC, m),
		Status:       httpadp.NewStatusHandler(statusUC, m),
		Wizard:       httpadp.NewWizardHandler(wizardUC),
		Review:       httpadp.NewReviewHandler(reviewUC, m),
		Feed:         hub.ServeWS,
		Idempotency:  middleware.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second, log),
		RateLimit:    middleware.RateLimit(middleware.NewIPRateLimiter(cfg.GatewayRPS, cfg.GatewayBurst), log),
		RequireAdmin: middleware.RequireAdmin(auth.NewVerifier(cfg.JWTSecret)),
		Metrics:      m.Handler(),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.AppPort
		log.Info("listening", "addr", addr, "db_driver", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
