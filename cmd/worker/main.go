package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/config"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/mail"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/observability"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/queue/redisclient"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/queue/worker"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		QueueKey: cfg.MailQueueKey,
	})

	defer rdb.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rdb.Ping(ctx); err != nil {
		log.Error("redis connection failed", "err", err)
		os.Exit(1)
	}

	// the worker delivers; the API only enqueues
	var mailer mail.Mailer

	if cfg.MailDriver == "smtp" && cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		mailer = mail.NewLogMailer(log)
	}

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	w := worker.New(worker.Config{PollTimeout: 5 * time.Second}, rdb, mailer, prom, log)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("mail worker starting", "env", cfg.Env, "queue", cfg.MailQueueKey)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped", "err", err)
	}

	sctx, scancel := config.WithTimeout(5 * time.Second)
	defer scancel()

	_ = healthSrv.Shutdown(sctx)

	log.Info("worker shutdown complete")
}
