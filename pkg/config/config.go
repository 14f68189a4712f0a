package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "RURALMART_APP_ENV"
	EnvPort      = "RURALMART_APP_PORT"
	EnvDBDSN     = "RURALMART_DB_DSN"
	EnvRedisURL  = "RURALMART_REDIS_URL"
	EnvJWTSecret = "RURALMART_JWT_SECRET"
	EnvJWTIssuer = "RURALMART_JWT_ISSUER"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Paystack      PaystackConfig
	Webhook       WebhookConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"RURALMART_APP_ENV" required:"true"`
	Port         string   `envconfig:"RURALMART_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"RURALMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"RURALMART_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"RURALMART_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RURALMART_DB_DSN"`
	Driver string `envconfig:"RURALMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RURALMART_DB_HOST"`
	LegacyPort     int    `envconfig:"RURALMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RURALMART_DB_USER"`
	LegacyPassword string `envconfig:"RURALMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"RURALMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"RURALMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RURALMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RURALMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RURALMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RURALMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RURALMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RURALMART_REDIS_ADDR"`
	Password     string        `envconfig:"RURALMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"RURALMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RURALMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RURALMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RURALMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RURALMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RURALMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RURALMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RURALMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RURALMART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RURALMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RURALMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RURALMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RURALMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RURALMART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"RURALMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"RURALMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"RURALMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"RURALMART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"RURALMART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"RURALMART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"RURALMART_PAYSTACK_SECRET_KEY"`
	BaseURL     string        `envconfig:"RURALMART_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string        `envconfig:"RURALMART_PAYSTACK_CALLBACK_URL"`
	Timeout     time.Duration `envconfig:"RURALMART_PAYSTACK_TIMEOUT" default:"15s"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"RURALMART_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RURALMART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.LegacyHost == "" || db.LegacyUser == "" || db.LegacyName == "" {
		return fmt.Errorf("database DSN or host/user/name settings are required")
	}

	dsn := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		dsn.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	} else {
		dsn.User = url.User(db.LegacyUser)
	}
	query := dsn.Query()
	query.Set("sslmode", db.LegacySSLMode)
	dsn.RawQuery = query.Encode()

	db.DSN = dsn.String()
	return nil
}
