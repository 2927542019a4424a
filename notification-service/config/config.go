package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Port  string `yaml:"port" env:"PORT" env-default:"8084"`
	Env   string `yaml:"env" env:"APP_ENV" env-default:"development"`
	Kafka Kafka  `yaml:"kafka"`
	Email Email  `yaml:"email"`
}

type Kafka struct {
	Brokers       []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092" env-separator:","`
	PaymentTopic  string   `yaml:"payment_topic" env:"KAFKA_PAYMENT_TOPIC" env-default:"payment-events"`
	ConsumerGroup string   `yaml:"consumer_group" env:"KAFKA_CONSUMER_GROUP" env-default:"notification-service"`
}

type Email struct {
	FromEmail    string `yaml:"from_email" env:"FROM_EMAIL" env-default:"noreply@tourismbooking.so"`
	FromName     string `yaml:"from_name" env:"FROM_NAME" env-default:"Somali Tourism Booking"`
	SupportEmail string `yaml:"support_email" env:"SUPPORT_EMAIL" env-default:"support@tourismbooking.so"`
}

func (c *Config) validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}
	if c.Kafka.PaymentTopic == "" {
		return errors.New("kafka.payment_topic is required")
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

	// Fallback to environment variables
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}

	return cfg, cfg.validate()
}
