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

	"github.com/talkbase/scheduling-api/internal/config"
	"github.com/talkbase/scheduling-api/internal/repository/postgres"
	"github.com/talkbase/scheduling-api/internal/service/notification"
	"github.com/talkbase/scheduling-api/internal/worker"
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

	m := metrics.NewMetrics("scheduling_worker")
	notifier := notification.NewService(broker, log, m)
	appointmentRepo := postgres.NewAppointmentRepository(db, m)

	reminder := worker.NewReminderWorker(appointmentRepo, notifier, cfg.Booking.ReminderInterval, log)
	dispatcher := worker.NewEmailDispatcher(broker, cfg.SMTP, log, m)

	startHealthServer(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	go func() {
		if err := dispatcher.Start(ctx); err != nil {
			log.Error(err, "email dispatcher stopped")
		}
	}()

	reminder.Start(ctx)
}

func startHealthServer(log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.Error(err, "health server failed")
		}
	}()
}
