package config

import (
	"log"

	"github.com/Skotchmaster/bookstore/pkg/config"
	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	MaxLineQuantity uint `envconfig:"MAX_LINE_QUANTITY" default:"99"`
}

type ServiceConfig struct {
	config.Config
	Settings
}

func LoadSettings() (Settings, error) {
	var s Settings
	err := envconfig.Process("CART", &s)
	return s, err
}

func Load() ServiceConfig {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "cart"
	}

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")

	s, err := LoadSettings()
	if err != nil {
		log.Fatalf("cart settings: %v", err)
	}
	return ServiceConfig{Config: cfg, Settings: s}
}
