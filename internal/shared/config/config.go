package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv    string
	LogLevel  string
	Postgres  PostgresConfig
	Redis     RedisConfig
	Bot       BotConfig
	Storage   StorageConfig
	HTTP      HTTPConfig
	Retry     RetryConfig
	Payment   PaymentConfig
	TwoFactor TwoFactorConfig
	Metrics   MetricsConfig
}

type PostgresConfig struct {
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Bot update delivery modes.
const (
	BotModePolling = "polling"
	BotModeWebhook = "webhook"
)

type BotConfig struct {
	Token       string
	Username    string // Used to build referral share links
	Mode        string // "polling" or "webhook"
	WorkerCount int
	DedupeTTL   time.Duration
	AdminChatID int64 // 0 disables operator alerts
	Webhook     WebhookConfig
}

type WebhookConfig struct {
	URL        string
	ListenAddr string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

type HTTPConfig struct {
	ListenAddr string
	JWTSecret  string
	JWTTTL     time.Duration
	CookieName string
	ServiceKey string // Shared secret for the internal relay endpoints
}

type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// PaymentConfig is shown to customers once an order is confirmed.
type PaymentConfig struct {
	Currency     string
	Instructions string
}

type TwoFactorConfig struct {
	CodeTTL        time.Duration
	MaxCodes       int
	Window         time.Duration
	TrustedDevices bool
}

type MetricsConfig struct {
	Namespace string
}

var bindings = map[string]string{
	"app.env":                  "APP_ENV",
	"log.level":                "LOG_LEVEL",
	"postgres.url":             "DATABASE_URL",
	"redis.addr":               "REDIS_ADDR",
	"redis.password":           "REDIS_PASSWORD",
	"redis.db":                 "REDIS_DB",
	"bot.token":                "TELEGRAM_BOT_TOKEN",
	"bot.username":             "TELEGRAM_BOT_USERNAME",
	"bot.mode":                 "BOT_MODE",
	"bot.workers":              "BOT_WORKER_COUNT",
	"bot.dedupe_ttl":           "BOT_DEDUPE_TTL",
	"bot.admin_chat_id":        "BOT_ADMIN_CHAT_ID",
	"bot.webhook.url":          "BOT_WEBHOOK_URL",
	"bot.webhook.listen_addr":  "BOT_WEBHOOK_LISTEN_ADDR",
	"storage.endpoint":         "STORAGE_ENDPOINT",
	"storage.access_key":       "STORAGE_ACCESS_KEY",
	"storage.secret_key":       "STORAGE_SECRET_KEY",
	"storage.use_ssl":          "STORAGE_USE_SSL",
	"storage.region":           "STORAGE_REGION",
	"http.listen_addr":         "HTTP_LISTEN_ADDR",
	"http.jwt_secret":          "JWT_SECRET",
	"http.jwt_ttl":             "JWT_TTL",
	"http.cookie_name":         "HTTP_COOKIE_NAME",
	"http.service_key":         "SERVICE_KEY",
	"retry.max_attempts":       "RETRY_MAX_ATTEMPTS",
	"retry.initial_interval":   "RETRY_INITIAL_INTERVAL",
	"retry.max_interval":       "RETRY_MAX_INTERVAL",
	"payment.currency":         "PAYMENT_CURRENCY",
	"payment.instructions":     "PAYMENT_INSTRUCTIONS",
	"two_factor.code_ttl":      "TWO_FACTOR_CODE_TTL",
	"two_factor.max_codes":     "TWO_FACTOR_MAX_CODES",
	"two_factor.window":        "TWO_FACTOR_WINDOW",
	"two_factor.trust_devices": "TWO_FACTOR_TRUST_DEVICES",
	"metrics.namespace":        "METRICS_NAMESPACE",
}

// Load loads configuration from environment variables (and an optional .env file).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env is fine, we rely on the process environment.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}
	setDefaults(v)

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("bot.mode", BotModePolling)
	v.SetDefault("bot.workers", 8)
	v.SetDefault("bot.dedupe_ttl", "24h")
	v.SetDefault("bot.webhook.listen_addr", "127.0.0.1:8443")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("http.jwt_ttl", "168h")
	v.SetDefault("http.cookie_name", "auth_token")
	v.SetDefault("retry.max_attempts", 4)
	v.SetDefault("retry.initial_interval", "300ms")
	v.SetDefault("retry.max_interval", "5s")
	v.SetDefault("payment.currency", "€")
	v.SetDefault("payment.instructions", "Envoyez le montant dû puis une capture d'écran de votre paiement.")
	v.SetDefault("two_factor.code_ttl", "10m")
	v.SetDefault("two_factor.max_codes", 5)
	v.SetDefault("two_factor.window", "15m")
	v.SetDefault("two_factor.trust_devices", true)
	v.SetDefault("metrics.namespace", "flashgrade")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		AppEnv:   v.GetString("app.env"),
		LogLevel: v.GetString("log.level"),
		Postgres: PostgresConfig{URL: v.GetString("postgres.url")},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Bot: BotConfig{
			Token:       v.GetString("bot.token"),
			Username:    v.GetString("bot.username"),
			Mode:        v.GetString("bot.mode"),
			WorkerCount: v.GetInt("bot.workers"),
			DedupeTTL:   v.GetDuration("bot.dedupe_ttl"),
			AdminChatID: v.GetInt64("bot.admin_chat_id"),
			Webhook: WebhookConfig{
				URL:        v.GetString("bot.webhook.url"),
				ListenAddr: v.GetString("bot.webhook.listen_addr"),
			},
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			UseSSL:    v.GetBool("storage.use_ssl"),
			Region:    v.GetString("storage.region"),
		},
		HTTP: HTTPConfig{
			ListenAddr: v.GetString("http.listen_addr"),
			JWTSecret:  v.GetString("http.jwt_secret"),
			JWTTTL:     v.GetDuration("http.jwt_ttl"),
			CookieName: v.GetString("http.cookie_name"),
			ServiceKey: v.GetString("http.service_key"),
		},
		Retry: RetryConfig{
			MaxAttempts:     v.GetInt("retry.max_attempts"),
			InitialInterval: v.GetDuration("retry.initial_interval"),
			MaxInterval:     v.GetDuration("retry.max_interval"),
		},
		Payment: PaymentConfig{
			Currency:     v.GetString("payment.currency"),
			Instructions: v.GetString("payment.instructions"),
		},
		TwoFactor: TwoFactorConfig{
			CodeTTL:        v.GetDuration("two_factor.code_ttl"),
			MaxCodes:       v.GetInt("two_factor.max_codes"),
			Window:         v.GetDuration("two_factor.window"),
			TrustedDevices: v.GetBool("two_factor.trust_devices"),
		},
		Metrics: MetricsConfig{Namespace: v.GetString("metrics.namespace")},
	}
}

// IsDev reports whether human-readable logging should be used.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Bot.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is not set"))
	}
	if c.Postgres.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	if c.HTTP.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	switch c.Bot.Mode {
	case BotModePolling:
	case BotModeWebhook:
		if c.Bot.Webhook.URL == "" {
			errs = append(errs, errors.New("BOT_WEBHOOK_URL is required in webhook mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BOT_MODE %q", c.Bot.Mode))
	}
	if c.Bot.WorkerCount < 1 {
		errs = append(errs, errors.New("BOT_WORKER_COUNT must be at least 1"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("RETRY_MAX_ATTEMPTS must be at least 1"))
	}
	return errors.Join(errs...)
}
