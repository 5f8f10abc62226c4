package config

import (
	"log"

	"github.com/Skotchmaster/bookstore/pkg/config"
	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	CatalogURL string `envconfig:"CATALOG_URL" required:"true"`
	CartURL    string `envconfig:"CART_URL" required:"true"`
	OrderURL   string `envconfig:"ORDER_URL" required:"true"`

	// CSRFSecure marks the CSRF cookie Secure; turn on behind TLS.
	CSRFSecure bool `envconfig:"CSRF_SECURE" default:"false"`
}

type ServiceConfig struct {
	config.Config
	Settings
}

func LoadSettings() (Settings, error) {
	var s Settings
	err := envconfig.Process("GATEWAY", &s)
	return s, err
}

func Load() ServiceConfig {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "gateway"
	}

	s, err := LoadSettings()
	if err != nil {
		log.Fatalf("gateway settings: %v", err)
	}
	return ServiceConfig{Config: cfg, Settings: s}
}
