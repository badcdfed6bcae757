// cmd/server/main.go
package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/unclebandit/mailpulse-backend/internal/config"
	"github.com/unclebandit/mailpulse-backend/internal/controller"
	"github.com/unclebandit/mailpulse-backend/internal/db"
	"github.com/unclebandit/mailpulse-backend/internal/handler"
	"github.com/unclebandit/mailpulse-backend/internal/logger"
	"github.com/unclebandit/mailpulse-backend/internal/queue"
	"github.com/unclebandit/mailpulse-backend/internal/repository"
	"github.com/unclebandit/mailpulse-backend/internal/service"
)

func main() {
	// Load .env
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
	warmingRepo := &repository.WarmingRepository{DB: conn}

	// The AMQP wake is optional for the API server: without it the worker
	// just picks jobs up on its next tick.
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

	emailController := &controller.EmailController{
		Enqueuer: enqueuer,
		Pipeline: pipeline,
		Wake:     wake,
		Logger:   zlog,
	}
	statsController := &controller.StatsController{
		Jobs:    jobRepo,
		Limiter: limiter,
		Logger:  zlog,
	}
	trackingHandler := &handler.TrackingHandler{
		Recipients: recipientRepo,
		Logger:     zlog,
	}

	r := chi.NewRouter()

	r.Post("/emails", emailController.EnqueueEmail)
	r.Post("/campaigns/{id}/send", emailController.SendCampaign)
	r.Get("/campaigns/{id}/stats", statsController.CampaignStats)
	r.Get("/warming/check", statsController.WarmingCheck)

	// Tracking endpoints
	r.Get("/track/open.gif", trackingHandler.TrackOpen)
	r.Get("/track/click", trackingHandler.TrackClick)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	zlog.Info("server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
