package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	PaymentModeProduction = "production"
	PaymentModeSandbox    = "sandbox"
)

type Config struct {
	Port         string       `yaml:"port" env:"PORT" env-default:"8083"`
	Env          string       `yaml:"env" env:"APP_ENV" env-default:"development"`
	JWTSecret    string       `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Database     Database     `yaml:"database"`
	Redis        Redis        `yaml:"redis"`
	Kafka        Kafka        `yaml:"kafka"`
	PlaceService PlaceService `yaml:"place_service"`
	Gateway      Gateway      `yaml:"gateway"`
	Payment      Payment      `yaml:"payment"`
	Worker       Worker       `yaml:"worker"`
}

type Worker struct {
	MaxWorkers         int `yaml:"max_workers" env:"WORKER_MAX_WORKERS" env-default:"4"`
	SweepIntervalSecs  int `yaml:"sweep_interval_seconds" env:"WORKER_SWEEP_INTERVAL" env-default:"60"`
	PendingAgeMinutes  int `yaml:"pending_age_minutes" env:"WORKER_PENDING_AGE" env-default:"5"`
	BatchSize          int `yaml:"batch_size" env:"WORKER_BATCH_SIZE" env-default:"50"`
	MaxPendingAgeHours int `yaml:"max_pending_age_hours" env:"WORKER_MAX_PENDING_AGE" env-default:"24"`
}

type Database struct {
	User         string `yaml:"user" env:"DB_USER" env-required:"true"`
	Password     string `yaml:"password" env:"DB_PASSWORD" env-required:"true"`
	DatabaseName string `yaml:"database_name" env:"DB_NAME" env-required:"true"`
	Host         string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port         string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	SSLMode      string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`

	// Connection Pool Settings
	MaxOpenConns    int `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime_minutes" env:"DB_CONN_MAX_LIFETIME" env-default:"30"`
}

func (d *Database) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DatabaseName, d.SSLMode)
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

func (r *Redis) GetRedisURL() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type Kafka struct {
	Brokers      []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092" env-separator:","`
	PaymentTopic string   `yaml:"payment_topic" env:"KAFKA_PAYMENT_TOPIC" env-default:"payment-events"`
}

type PlaceService struct {
	BaseURL string `yaml:"base_url" env:"PLACE_SERVICE_URL" env-default:"http://place-service:8082"`

	// HTTP Connection Pool Settings
	MaxIdleConns        int `yaml:"max_idle_conns" env:"HTTP_MAX_IDLE_CONNS" env-default:"20"`
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" env:"HTTP_MAX_IDLE_CONNS_PER_HOST" env-default:"10"`
	MaxConnsPerHost     int `yaml:"max_conns_per_host" env:"HTTP_MAX_CONNS_PER_HOST" env-default:"20"`
	IdleConnTimeout     int `yaml:"idle_conn_timeout_seconds" env:"HTTP_IDLE_CONN_TIMEOUT" env-default:"90"`
	RequestTimeout      int `yaml:"request_timeout_seconds" env:"HTTP_REQUEST_TIMEOUT" env-default:"10"`
}

// Gateway holds the mobile wallet gateway credentials and limits.
type Gateway struct {
	BaseURL        string `yaml:"base_url" env:"WAAFI_BASE_URL" env-default:"https://api.waafipay.net/asm"`
	MerchantUID    string `yaml:"merchant_uid" env:"WAAFI_MERCHANT_UID"`
	APIUserID      string `yaml:"api_user_id" env:"WAAFI_API_USER_ID"`
	APIKey         string `yaml:"api_key" env:"WAAFI_API_KEY"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"WAAFI_TIMEOUT" env-default:"30"`
	Currency       string `yaml:"currency" env:"WAAFI_CURRENCY" env-default:"USD"`
	PaymentMethod  string `yaml:"payment_method" env:"WAAFI_PAYMENT_METHOD" env-default:"mwallet_account"`

	// HTTP Connection Pool Settings
	MaxIdleConns        int `yaml:"max_idle_conns" env:"WAAFI_MAX_IDLE_CONNS" env-default:"20"`
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" env:"WAAFI_MAX_IDLE_CONNS_PER_HOST" env-default:"10"`
	MaxConnsPerHost     int `yaml:"max_conns_per_host" env:"WAAFI_MAX_CONNS_PER_HOST" env-default:"20"`
	IdleConnTimeout     int `yaml:"idle_conn_timeout_seconds" env:"WAAFI_IDLE_CONN_TIMEOUT" env-default:"90"`
}

func (g *Gateway) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Payment holds the payment policy knobs.
type Payment struct {
	// Mode is "production" (charge the full amount) or "sandbox" (cap the
	// charge at SandboxAmount).
	Mode          string  `yaml:"mode" env:"PAYMENT_MODE" env-default:"production"`
	SandboxAmount float64 `yaml:"sandbox_amount" env:"PAYMENT_SANDBOX_AMOUNT" env-default:"0.01"`
	// FallbackEnabled confirms payments in demo mode when the gateway is
	// unreachable. Fallback payments are flagged for reconciliation.
	FallbackEnabled   bool    `yaml:"fallback_enabled" env:"PAYMENT_FALLBACK_ENABLED" env-default:"false"`
	MinPricePerPerson float64 `yaml:"min_price_per_person" env:"PAYMENT_MIN_PRICE_PER_PERSON" env-default:"0"`
	IdempotencyTTLHrs int     `yaml:"idempotency_ttl_hours" env:"PAYMENT_IDEMPOTENCY_TTL" env-default:"24"`
}

func (p *Payment) IdempotencyTTL() time.Duration {
	return time.Duration(p.IdempotencyTTLHrs) * time.Hour
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	switch c.Payment.Mode {
	case PaymentModeProduction, PaymentModeSandbox:
	default:
		return fmt.Errorf("payment.mode must be %q or %q, got %q", PaymentModeProduction, PaymentModeSandbox, c.Payment.Mode)
	}
	if c.Payment.Mode == PaymentModeSandbox && c.Payment.SandboxAmount <= 0 {
		return errors.New("payment.sandbox_amount must be positive in sandbox mode")
	}
	if c.Payment.MinPricePerPerson < 0 {
		return errors.New("payment.min_price_per_person cannot be negative")
	}
	if c.Gateway.TimeoutSeconds <= 0 {
		return errors.New("gateway.timeout_seconds must be positive")
	}
	return nil
}

func Initialise(configPath string, useEnv bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}

	if !useEnv && configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
			return cfg, cfg.validate()
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}

	return cfg, cfg.validate()
}
