package config

import (
	"log"

	"github.com/Skotchmaster/bookstore/pkg/config"
	"github.com/kelseyhightower/envconfig"
)

// Settings are the order service's own knobs, read from ORDER_* variables.
type Settings struct {
	Currency               string `envconfig:"CURRENCY" default:"NGN"`
	ProofDir               string `envconfig:"PROOF_DIR" default:"./data/proofs"`
	ProofMaxBytes          int64  `envconfig:"PROOF_MAX_BYTES" default:"5242880"`
	EmailTopic             string `envconfig:"EMAIL_TOPIC" default:"email_events"`
	FlutterwaveWebhookHash string `envconfig:"FLUTTERWAVE_WEBHOOK_HASH"`
}

type ServiceConfig struct {
	config.Config
	Settings
}

func LoadSettings() (Settings, error) {
	var s Settings
	err := envconfig.Process("ORDER", &s)
	return s, err
}

func Load() ServiceConfig {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "order"
	}

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")

	s, err := LoadSettings()
	if err != nil {
		log.Fatalf("order settings: %v", err)
	}
	return ServiceConfig{Config: cfg, Settings: s}
}
