// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/unclebandit/mailpulse-backend/internal/config"
	"github.com/unclebandit/mailpulse-backend/internal/db"
	"github.com/unclebandit/mailpulse-backend/internal/logger"
	"github.com/unclebandit/mailpulse-backend/internal/queue"
	"github.com/unclebandit/mailpulse-backend/internal/repository"
	"github.com/unclebandit/mailpulse-backend/internal/service"
	"github.com/unclebandit/mailpulse-backend/internal/transport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer zlog.Sync()

	conn, err := db.Connect(&cfg.Database)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	workerID := fmt.Sprintf("worker-%s", uuid.NewString())

	dispatcher := &service.Dispatcher{
		Jobs:        &repository.QueueJobRepository{DB: conn},
		Recipients:  &repository.RecipientRepository{DB: conn},
		Sender:      transport.NewHTTPSender(cfg.Transport.BaseURL, cfg.Transport.APIKey, cfg.Transport.Timeout),
		Logger:      zlog.With(zap.String("worker_id", workerID)),
		WorkerID:    workerID,
		BatchSize:   cfg.Worker.BatchSize,
		MaxAttempts: cfg.Worker.MaxAttempts,
		LockTimeout: cfg.Worker.LockTimeout,
		SendDelay:   cfg.Worker.SendDelay,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCycle := func() {
		if _, err := dispatcher.RunCycle(ctx); err != nil {
			zlog.Error("batch cycle failed", zap.Error(err))
		}
	}

	// Fixed-interval invocation plus the AMQP wake trigger: the wake lets a
	// fresh enqueue start a cycle without waiting out the interval.
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.Worker.Interval), runCycle); err != nil {
		zlog.Fatal("failed to schedule batch cycle", zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	if wake, err := queue.DialAMQP(cfg.AMQPURL); err != nil {
		zlog.Warn("amqp unavailable, running on interval only", zap.Error(err))
	} else {
		defer wake.Close()
		if err := wake.Subscribe(queue.WakeTopic, func([]byte) error {
			runCycle()
			return nil
		}); err != nil {
			zlog.Warn("wake subscription failed, running on interval only", zap.Error(err))
		}
	}

	zlog.Info("worker running",
		zap.String("worker_id", workerID),
		zap.Duration("interval", cfg.Worker.Interval),
	)

	<-ctx.Done()
	zlog.Info("worker shutting down")
}
