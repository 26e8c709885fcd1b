package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/pkg/logger"
	"staybook/internal/repository"
)

// Periodic maintenance, meant to run from cron: confirmed stays whose
// check-out day has passed become completed, which lets guests attach them
// to reviews.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.Database.URL, database.Options{Log: log, Silent: true})
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := repository.NewBookingRepository(db).CompletePast(ctx, time.Now())
	if err != nil {
		log.Fatal("complete past bookings", zap.Error(err))
	}
	log.Info("cleanup completed", zap.Int64("bookings_completed", n))
}
