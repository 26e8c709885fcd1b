package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"staybook/internal/config"
	"staybook/internal/notification"
	"staybook/internal/pkg/logger"
)

// worker consumes booking confirmations from NATS and sends them by email.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding}).
		With(zap.String("service", cfg.App.Name+"-worker"))
	defer func() { _ = log.Sync() }()

	if cfg.NATS.URL == "" {
		log.Fatal("NATS_URL is required for the notification worker")
	}

	mailer, err := notification.NewMailerFromConfig(cfg.SMTP, log.Named("mail"))
	if err != nil {
		log.Fatal("smtp mailer", zap.Error(err))
	}

	conn, err := notification.Connect(cfg.NATS.URL, cfg.App.Name+"-worker", log)
	if err != nil {
		log.Fatal("connect nats", zap.Error(err))
	}

	w := notification.NewWorker(conn, cfg.NATS.Subject, cfg.NATS.QueueGroup, mailer, log, cfg.Notify.SendTimeout)
	if err := w.Start(); err != nil {
		log.Fatal("subscribe", zap.Error(err))
	}
	log.Info("notification worker started",
		zap.String("subject", cfg.NATS.Subject),
		zap.String("queue_group", cfg.NATS.QueueGroup),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := w.Stop(); err != nil {
		log.Error("drain subscription", zap.Error(err))
	}
	log.Info("notification worker stopped")
}
