// cmd/scheduler/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/unclebandit/mailpulse-backend/internal/config"
	"github.com/unclebandit/mailpulse-backend/internal/db"
	"github.com/unclebandit/mailpulse-backend/internal/logger"
	"github.com/unclebandit/mailpulse-backend/internal/queue"
	"github.com/unclebandit/mailpulse-backend/internal/repository"
	"github.com/unclebandit/mailpulse-backend/internal/service"
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

	jobRepo := &repository.QueueJobRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	recipientRepo := &repository.RecipientRepository{DB: conn}
	automationRepo := &repository.AutomationRepository{DB: conn}
	warmingRepo := &repository.WarmingRepository{DB: conn}

	var wake queue.Queue
	if amqpQueue, err := queue.DialAMQP(cfg.AMQPURL); err != nil {
		zlog.Warn("amqp unavailable, dispatch wake disabled", zap.Error(err))
	} else {
		wake = amqpQueue
		defer amqpQueue.Close()
	}

	enqueuer := &service.Enqueuer{Jobs: jobRepo, Logger: zlog}
	limiter := &service.WarmingLimiter{Warming: warmingRepo, Logger: zlog}
	pipeline := &service.CampaignSender{
		Campaigns:  campaignRepo,
		Contacts:   contactRepo,
		Recipients: recipientRepo,
		Enqueuer:   enqueuer,
		Limiter:    limiter,
		Wake:       wake,
		Logger:     zlog,
	}

	scheduler := &service.CampaignScheduler{
		Campaigns: campaignRepo,
		Pipeline:  pipeline,
		Logger:    zlog,
	}
	engine := &service.AutomationEngine{
		Automations: automationRepo,
		Contacts:    contactRepo,
		Enqueuer:    enqueuer,
		Limiter:     limiter,
		Wake:        wake,
		Logger:      zlog,
	}

	c := cron.New()
	_, err = c.AddFunc(fmt.Sprintf("@every %s", cfg.SchedulerInterval), func() {
		if _, err := scheduler.RunCycle(); err != nil {
			zlog.Error("scheduler cycle failed", zap.Error(err))
		}
		if err := engine.RunCycle(); err != nil {
			zlog.Error("automation cycle failed", zap.Error(err))
		}
	})
	if err != nil {
		zlog.Fatal("failed to schedule cycles", zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	zlog.Info("scheduler running", zap.Duration("interval", cfg.SchedulerInterval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	zlog.Info("scheduler shutting down")
}
