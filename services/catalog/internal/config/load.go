package config

import (
	"log"

	"github.com/Skotchmaster/bookstore/pkg/config"
	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	SearchIndex string `envconfig:"SEARCH_INDEX" default:"books"`
	BookTopic   string `envconfig:"BOOK_TOPIC" default:"book_events"`
}

type ServiceConfig struct {
	config.Config
	Settings
}

func LoadSettings() (Settings, error) {
	var s Settings
	err := envconfig.Process("CATALOG", &s)
	return s, err
}

func Load() ServiceConfig {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "catalog"
	}

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")

	s, err := LoadSettings()
	if err != nil {
		log.Fatalf("catalog settings: %v", err)
	}
	return ServiceConfig{Config: cfg, Settings: s}
}
