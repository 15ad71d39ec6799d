package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/time/rate"

	"github.com/talkbase/scheduling-api/internal/config"
	bookingHandler "github.com/talkbase/scheduling-api/internal/handler/booking"
	healthHandler "github.com/talkbase/scheduling-api/internal/handler/health"
	"github.com/talkbase/scheduling-api/internal/middleware"
	"github.com/talkbase/scheduling-api/internal/repository/postgres"
	"github.com/talkbase/scheduling-api/internal/router"
	bookingService "github.com/talkbase/scheduling-api/internal/service/booking"
	"github.com/talkbase/scheduling-api/internal/service/notification"
	"github.com/talkbase/scheduling-api/pkg/cache"
	"github.com/talkbase/scheduling-api/pkg/logger"
	"github.com/talkbase/scheduling-api/pkg/messaging/redis"
	"github.com/talkbase/scheduling-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Log.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("scheduling")
	scheduleRepo := postgres.NewScheduleRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db, m)

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog())
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	notifier := notification.NewService(broker, log, m)
	directory := cache.New(cfg.Booking.CacheTTL, cfg.Booking.CacheCleanup, cfg.Booking.CacheMaxEntries)

	bookingSvc := bookingService.NewService(
		scheduleRepo,
		appointmentRepo,
		notifier,
		directory,
		cfg.Booking.DefaultGranularity,
		log,
		m,
	)

	r := router.New(log, router.Config{
		RateLimit: rate.Limit(cfg.Server.RateLimit),
		RateBurst: cfg.Server.RateBurst,
		CORS:      middleware.DefaultCORSConfig(),
	},
		bookingHandler.NewHandler(bookingSvc),
		healthHandler.NewHandler(db),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
}
