package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret   = "change-me-jwt-secret"
	defaultChapaURL    = "https://api.chapa.co/v1"
	defaultCurrency    = "ETB"
	defaultNotifyTopic = "bookings.confirmation"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Chapa    ChapaConfig    `mapstructure:"chapa"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	NATS     NATSConfig     `mapstructure:"nats"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type AppConfig struct {
	Env     string `mapstructure:"env"`
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type HTTPConfig struct {
	Port               string        `mapstructure:"port"`
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type ChapaConfig struct {
	SecretKey string        `mapstructure:"secret_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type PaymentConfig struct {
	Currency    string `mapstructure:"currency"`
	CallbackURL string `mapstructure:"callback_url"`
	ReturnURL   string `mapstructure:"return_url"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	ListingTTL time.Duration `mapstructure:"listing_ttl"`
}

type NATSConfig struct {
	URL        string `mapstructure:"url"`
	Subject    string `mapstructure:"subject"`
	QueueGroup string `mapstructure:"queue_group"`
}

type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	From       string `mapstructure:"from"`
	Encryption string `mapstructure:"encryption"`
}

type NotifyConfig struct {
	Workers     int           `mapstructure:"workers"`
	Buffer      int           `mapstructure:"buffer"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

// Load reads configuration from an optional .env file, an optional YAML
// file and the environment, in increasing order of precedence. Keys map to
// environment variables by upper-casing and replacing dots with
// underscores, so chapa.secret_key is read from CHAPA_SECRET_KEY.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
		} else {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("http.cors_allowed_origins", "HTTP_CORS_ALLOWED_ORIGINS", "CORS_ALLOWED_ORIGINS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.App.Env = strings.ToLower(strings.TrimSpace(cfg.App.Env))

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.name", "staybook")
	v.SetDefault("app.version", "dev")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.cors_allowed_origins", "")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("database.url", "staybook.db")

	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")

	v.SetDefault("chapa.secret_key", "")
	v.SetDefault("chapa.base_url", defaultChapaURL)
	v.SetDefault("chapa.timeout", "30s")

	v.SetDefault("payment.currency", defaultCurrency)
	v.SetDefault("payment.callback_url", "http://localhost:8080/api/v1/payments/callback")
	v.SetDefault("payment.return_url", "http://localhost:8080/api/v1/payments/return")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.listing_ttl", "5m")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", defaultNotifyTopic)
	v.SetDefault("nats.queue_group", "staybook-mailers")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@staybook.local")
	v.SetDefault("smtp.encryption", "starttls")

	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.buffer", 100)
	v.SetDefault("notify.send_timeout", "30s")
}

func validateConfig(cfg *Config) error {
	if cfg.HTTP.Port == "" {
		return fmt.Errorf("HTTP_PORT must not be empty")
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.Chapa.Timeout <= 0 {
		return fmt.Errorf("CHAPA_TIMEOUT must be > 0")
	}
	if cfg.Cache.ListingTTL <= 0 {
		return fmt.Errorf("CACHE_LISTING_TTL must be > 0")
	}
	if cfg.Notify.Workers <= 0 || cfg.Notify.Buffer <= 0 {
		return fmt.Errorf("NOTIFY_WORKERS and NOTIFY_BUFFER must be > 0")
	}
	if len(cfg.Payment.Currency) != 3 {
		return fmt.Errorf("PAYMENT_CURRENCY must be a 3-letter code")
	}

	if isProdLike(cfg.App.Env) {
		if isEmptyOrDefault(cfg.JWT.Secret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if strings.TrimSpace(cfg.Chapa.SecretKey) == "" {
			return fmt.Errorf("in prod/release CHAPA_SECRET_KEY must be set")
		}
	}

	return nil
}

func (c *Config) IsProdLike() bool { return isProdLike(c.App.Env) }

// CORSOrigins splits the comma separated allow-list.
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.HTTP.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
