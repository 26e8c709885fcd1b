package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"staybook/internal/domain"
)

type Options struct {
	Log    *zap.Logger
	Silent bool
}

// Connect opens Postgres for postgres:// DSNs and SQLite (modernc driver)
// for anything else. SQLite connections get foreign keys switched on so the
// declared cascades behave the same on both engines, and transactions begin
// IMMEDIATE so concurrent writers queue on busy_timeout.
func Connect(dsn string, opts ...Options) (*gorm.DB, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	cfg := &gorm.Config{TranslateError: true}
	switch {
	case o.Silent:
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	case o.Log != nil:
		cfg.Logger = newGormLogger(o.Log)
	}

	if IsPostgres(dsn) {
		if o.Log != nil {
			o.Log.Info("connecting to PostgreSQL")
		}
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	dsn = withPragmas(dsn)
	if o.Log != nil {
		o.Log.Info("using SQLite", zap.String("dsn", dsn))
	}

	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
	if err != nil {
		return nil, err
	}

	// in-memory databases live per connection
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// DriverName is the database/sql driver name behind the DSN.
func DriverName(dsn string) string {
	if IsPostgres(dsn) {
		return "pgx"
	}
	return "sqlite"
}

func withPragmas(dsn string) string {
	for _, p := range []struct{ name, param string }{
		{"foreign_keys", "_pragma=foreign_keys(1)"},
		{"busy_timeout", "_pragma=busy_timeout(5000)"},
		{"_txlock", "_txlock=immediate"},
	} {
		if strings.Contains(dsn, p.name) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + p.param
	}
	return dsn
}

// Migrate creates or updates the schema for every persisted entity.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Listing{},
		&domain.Booking{},
		&domain.Review{},
		&domain.Payment{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
