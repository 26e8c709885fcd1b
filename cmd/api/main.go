package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"staybook/internal/cache"
	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/external"
	"staybook/internal/metrics"
	"staybook/internal/notification"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/logger"
	"staybook/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding}).
		With(zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Env))
	defer func() { _ = log.Sync() }()

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.Database.URL, database.Options{Log: log})
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("database handle", zap.Error(err))
	}
	defer sqlDB.Close()

	ctx := context.Background()

	var listingCache *cache.ListingCache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("redis unavailable, listing cache disabled", zap.Error(err))
		} else {
			defer func(c *redis.Client) { _ = c.Close() }(rdb)
			listingCache = cache.NewListingCache(rdb, cfg.Cache.ListingTTL)
			log.Info("listing cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	queue := newQueue(cfg, log)
	defer func() {
		if err := queue.Close(); err != nil {
			log.Warn("close notification queue", zap.Error(err))
		}
	}()

	srv := server.New(server.Deps{
		Config:  cfg,
		DB:      db,
		StatsDB: sqlx.NewDb(sqlDB, database.DriverName(cfg.Database.URL)),
		JWT:     jwt.New(cfg.JWT.Secret, cfg.JWT.TTL),
		Gateway: external.NewChapaClient(external.ChapaConfig{
			BaseURL:   cfg.Chapa.BaseURL,
			SecretKey: cfg.Chapa.SecretKey,
			Timeout:   cfg.Chapa.Timeout,
		}),
		Notifier: queue,
		Cache:    listingCache,
		Metrics:  metrics.New("staybook"),
		Log:      log,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// newQueue publishes to NATS when it is configured and reachable, and falls
// back to in-process delivery otherwise.
func newQueue(cfg *config.Config, log *zap.Logger) notification.Queue {
	if cfg.NATS.URL != "" {
		conn, err := notification.Connect(cfg.NATS.URL, cfg.App.Name+"-api", log)
		if err == nil {
			log.Info("booking notifications via nats", zap.String("subject", cfg.NATS.Subject))
			return notification.NewNATSQueue(conn, cfg.NATS.Subject)
		}
		log.Warn("nats unavailable, delivering notifications in process", zap.Error(err))
	}

	return notification.NewLocalQueue(newMailer(cfg, log), log.Named("notify"), notification.LocalQueueConfig{
		Workers:     cfg.Notify.Workers,
		Buffer:      cfg.Notify.Buffer,
		SendTimeout: cfg.Notify.SendTimeout,
	})
}

func newMailer(cfg *config.Config, log *zap.Logger) notification.Mailer {
	m, err := notification.NewMailerFromConfig(cfg.SMTP, log.Named("mail"))
	if err != nil {
		log.Fatal("smtp mailer", zap.Error(err))
	}
	return m
}
