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

type Config struct {
	Port      string   `yaml:"port" env:"PORT" env-default:"8082"`
	Env       string   `yaml:"env" env:"APP_ENV" env-default:"development"`
	JWTSecret string   `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Database  Database `yaml:"database"`
	Cache     Cache    `yaml:"cache"`
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

type Cache struct {
	PlacesTTLSeconds    int `yaml:"places_ttl_seconds" env:"CACHE_PLACES_TTL" env-default:"300"`
	FavoritesTTLSeconds int `yaml:"favorites_ttl_seconds" env:"CACHE_FAVORITES_TTL" env-default:"300"`
	DefaultTTLSeconds   int `yaml:"default_ttl_seconds" env:"CACHE_DEFAULT_TTL" env-default:"300"`
}

func (c *Cache) PlacesTTL() time.Duration {
	return time.Duration(c.PlacesTTLSeconds) * time.Second
}

func (c *Cache) FavoritesTTL() time.Duration {
	return time.Duration(c.FavoritesTTLSeconds) * time.Second
}

func (c *Cache) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

func (c *Config) validate() error {
	if c.Cache.PlacesTTLSeconds <= 0 || c.Cache.FavoritesTTLSeconds <= 0 || c.Cache.DefaultTTLSeconds <= 0 {
		return errors.New("cache ttl values must be positive")
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
