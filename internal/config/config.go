package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"

	TTLStoreRedis  = "redis"
	TTLStoreMemory = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	HTTP         HTTPConfig         `envPrefix:"HTTP_"`
	Storage      StorageConfig      `envPrefix:"STORAGE_"`
	Postgres     PostgresConfig     `envPrefix:"POSTGRES_"`
	Mongo        MongoConfig        `envPrefix:"MONGO_"`
	Redis        RedisConfig        `envPrefix:"REDIS_"`
	Logger       LoggerConfig       `envPrefix:"LOG_"`
	Auth         AuthConfig         `envPrefix:"AUTH_"`
	Notification NotificationConfig `envPrefix:"NOTIFY_"`
	SMTP         SMTPConfig         `envPrefix:"SMTP_"`
	WhatsApp     WhatsAppConfig     `envPrefix:"WHATSAPP_"`
	Upload       UploadConfig       `envPrefix:"UPLOAD_"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name    string `env:"NAME" envDefault:"complaint-service"`
	Env     string `env:"ENV" envDefault:"development"`
	Host    string `env:"HOST" envDefault:"0.0.0.0"`
	Port    string `env:"PORT" envDefault:"5000"`
	Version string `env:"VERSION" envDefault:"dev"`
}

// HTTPConfig tunes request handling middleware.
type HTTPConfig struct {
	RequestTimeoutSeconds int           `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
	CORSOrigins           string        `env:"CORS_ORIGINS" envDefault:"*"`
	RateLimitMax          int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	RateLimitWindow       time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	BodyLimitMB           int           `env:"BODY_LIMIT_MB" envDefault:"30"`
}

// StorageConfig selects the complaint/user store and the TTL store.
type StorageConfig struct {
	Driver         string `env:"DRIVER" envDefault:"postgres"`
	TTLStoreDriver string `env:"TTL_DRIVER" envDefault:"redis"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"DSN"`
	MaxConns       int32  `env:"MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	MigrationsDir  string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	ConnMaxIdleSec int32  `env:"CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// MongoConfig holds document store connection values.
type MongoConfig struct {
	URI         string `env:"URI" envDefault:"mongodb://127.0.0.1:27017"`
	Database    string `env:"DATABASE" envDefault:"complaint_system"`
	MaxPoolSize uint64 `env:"MAX_POOL_SIZE" envDefault:"20"`
	MinPoolSize uint64 `env:"MIN_POOL_SIZE" envDefault:"2"`
	GridFSName  string `env:"GRIDFS_BUCKET" envDefault:"attachments"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"KEY_PREFIX" envDefault:"complaints:"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"30"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string        `env:"JWT_SECRET" envDefault:"dev-secret"`
	JWTIssuer             string        `env:"JWT_ISSUER" envDefault:"complain-app"`
	AccessTokenTTLMinutes int           `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"10080"`
	VerificationCodeTTL   time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"10m"`
	PasswordResetCodeTTL  time.Duration `env:"PASSWORD_RESET_CODE_TTL" envDefault:"10m"`
	BcryptCost            int           `env:"BCRYPT_COST" envDefault:"12"`
}

// NotificationConfig tunes the notification worker pool.
type NotificationConfig struct {
	ChannelTimeout time.Duration `env:"CHANNEL_TIMEOUT" envDefault:"10s"`
	Workers        int           `env:"WORKERS" envDefault:"4"`
	QueueSize      int           `env:"QUEUE_SIZE" envDefault:"256"`
}

// SMTPConfig holds email channel settings.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USER"`
	Password string `env:"PASS"`
	From     string `env:"FROM" envDefault:"Complaint Management System <noreply@example.com>"`
}

// WhatsAppConfig holds Cloud API settings.
type WhatsAppConfig struct {
	BaseURL       string `env:"API_URL" envDefault:"https://graph.facebook.com"`
	APIVersion    string `env:"API_VERSION" envDefault:"v18.0"`
	Token         string `env:"TOKEN"`
	PhoneNumberID string `env:"PHONE_NUMBER_ID"`
	VerifyToken   string `env:"VERIFY_TOKEN"`
}

// UploadConfig controls attachment storage.
type UploadConfig struct {
	Dir       string `env:"DIR" envDefault:"uploads"`
	PublicURL string `env:"PUBLIC_URL" envDefault:"/uploads"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMongo:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q", c.Storage.Driver)
	}

	c.Storage.TTLStoreDriver = strings.ToLower(strings.TrimSpace(c.Storage.TTLStoreDriver))
	switch c.Storage.TTLStoreDriver {
	case TTLStoreRedis, TTLStoreMemory:
	default:
		return fmt.Errorf("invalid STORAGE_TTL_DRIVER %q", c.Storage.TTLStoreDriver)
	}

	if c.App.IsProduction() && c.Auth.JWTSecret == "dev-secret" {
		return fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether diagnostics should be hidden from responses.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// RequestTimeout returns the configured request timeout duration.
func (h HTTPConfig) RequestTimeout() time.Duration {
	if h.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(h.RequestTimeoutSeconds) * time.Second
}

// Configured reports whether outbound Cloud API calls can be made.
func (w WhatsAppConfig) Configured() bool {
	return w.Token != "" && w.PhoneNumberID != ""
}

// Configured reports whether an SMTP relay is set.
func (s SMTPConfig) Configured() bool {
	return s.Host != ""
}
