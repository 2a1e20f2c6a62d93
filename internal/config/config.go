// Package config loads the marketplace API configuration from an optional
// YAML file with environment-variable overrides. cmd mains for the smaller
// services read their handful of settings straight from the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string   `yaml:"port"`
	PostgresURL  string   `yaml:"postgres_url"`
	RedisAddr    string   `yaml:"redis_addr"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	Currency     string   `yaml:"currency"`
}

func defaults() Config {
	return Config{
		Port:      "8081",
		RedisAddr: "localhost:6379",
		Currency:  "MRU",
	}
}

// Load reads the file at path when it exists, then applies environment
// overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.PostgresURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CURRENCY"); v != "" {
		cfg.Currency = v
	}

	if cfg.PostgresURL == "" {
		return Config{}, fmt.Errorf("postgres_url is required (POSTGRES_URL)")
	}

	return cfg, nil
}
