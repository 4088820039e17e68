package main // Entry point of the reservation server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/iliyamo/seat-reservation-engine/internal/broadcast"
	"github.com/iliyamo/seat-reservation-engine/internal/cache"
	"github.com/iliyamo/seat-reservation-engine/internal/config"
	"github.com/iliyamo/seat-reservation-engine/internal/database"
	"github.com/iliyamo/seat-reservation-engine/internal/handler"
	"github.com/iliyamo/seat-reservation-engine/internal/harness"
	"github.com/iliyamo/seat-reservation-engine/internal/logging"
	"github.com/iliyamo/seat-reservation-engine/internal/queue"
	"github.com/iliyamo/seat-reservation-engine/internal/repository"
	"github.com/iliyamo/seat-reservation-engine/internal/router"
	"github.com/iliyamo/seat-reservation-engine/internal/service"
	"github.com/iliyamo/seat-reservation-engine/internal/worker"
)

func main() {
	var (
		envFile   = pflag.String("env-file", ".env", "optional dotenv file")
		migrate   = pflag.Bool("migrate", true, "create missing tables on startup")
		seed      = pflag.Bool("seed", false, "create a demo event with a 10x10 seat grid when no events exist")
		consumer  = pflag.Bool("booking-consumer", true, "run the booking.confirmed log consumer")
		bookingLg = pflag.String("booking-log", "logs/booking.log", "file written by the booking consumer")
	)
	pflag.Parse()

	cfg := config.Load(*envFile)
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()
	if *migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable; holds expire through the sweep only, rate limit and cache disabled")
	} else {
		defer rdb.Close()
	}

	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)
	events := repository.NewEventRepo(db)
	runs := repository.NewTestRunRepo(db)

	if *seed {
		if err := seedDemo(ctx, events, seats, log); err != nil {
			log.WithError(err).Fatal("seeding failed")
		}
	}

	hub := broadcast.NewHub(log)
	var pub broadcast.Publisher = hub
	if sink, err := broadcast.DialAMQPSink(cfg.RabbitURL); err != nil {
		log.WithError(err).Warn("seat.events exchange unavailable; broadcasting to local sockets only")
	} else {
		defer sink.Close()
		pub = broadcast.Multi{hub, sink}
	}

	holds := cache.NewHoldCache(rdb)
	holdSvc := service.NewHoldService(seats, holds, pub, cfg.HoldTTL, log)
	reconciler := service.NewReconciler(seats, holds, pub, cfg.HoldTTL, cfg.RedisNotifyConfig, log)
	commitSvc := service.NewCommitService(seats, bookings, holds, pub, queue.NewPublisher(cfg.RabbitURL, log), cfg.PricePerSeatCents, log)
	tests := harness.New(runs, hub, cfg.TestRunTTL, 500*time.Millisecond, log)

	if holds.Available() {
		go func() {
			if err := reconciler.ListenExpirations(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("expiry listener stopped")
			}
		}()
	}
	go worker.NewPeriodic("hold-sweep", cfg.SweepInterval, func(ctx context.Context) error {
		_, err := reconciler.Sweep(ctx)
		return err
	}, log).Start(ctx)
	go worker.NewPeriodic("test-run-cleanup", cfg.TestRunCleanup, func(ctx context.Context) error {
		_, err := tests.CleanupExpired(ctx)
		return err
	}, log).Start(ctx)
	if *consumer {
		go queue.NewConsumer(cfg.RabbitURL, *bookingLg, log).Run(ctx)
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Seats:   handler.NewSeatHandler(holdSvc, commitSvc, log),
		Catalog: handler.NewCatalogHandler(events, seats, bookings),
		Webhook: handler.NewWebhookHandler(commitSvc, cfg.WebhookSecret, cfg.WebhookTolerance, log),
		Tests:   handler.NewTestHandler(tests, hub, log),
		Hub:     hub,
		Health:  handler.Health(db, rdb),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
		Log:       log,
	})
	if cfg.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET is empty; every payment callback will be rejected")
	}

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
