package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownGatewayType = errors.New("unknown gateway config type")

// GatewaySettings is implemented only by the config types in this package.
type GatewaySettings interface {
	GatewayType() string
	sealed()
}

type FlutterwaveConfig struct {
	PublicKey     string `json:"public_key"`
	SecretKey     string `json:"secret_key"`
	EncryptionKey string `json:"encryption_key"`
	WebhookHash   string `json:"webhook_hash"`
}

func (FlutterwaveConfig) GatewayType() string { return GatewayFlutterwave }
func (FlutterwaveConfig) sealed()             {}

type BankTransferConfig struct {
	ExpiryHours       int      `json:"expiry_hours"`
	MaxProofBytes     int64    `json:"max_proof_bytes"`
	AllowedProofTypes []string `json:"allowed_proof_types"`
	Instructions      string   `json:"instructions"`
}

func (BankTransferConfig) GatewayType() string { return GatewayBankTransfer }
func (BankTransferConfig) sealed()             {}

// GatewayConfig is stored as {"type": "...", "config": {...}}.
type GatewayConfig struct {
	Settings GatewaySettings
}

type gatewayEnvelope struct {
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config"`
}

func (g GatewayConfig) Flutterwave() (FlutterwaveConfig, bool) {
	c, ok := g.Settings.(FlutterwaveConfig)
	return c, ok
}

func (g GatewayConfig) BankTransfer() (BankTransferConfig, bool) {
	c, ok := g.Settings.(BankTransferConfig)
	return c, ok
}

func (g GatewayConfig) MarshalJSON() ([]byte, error) {
	if g.Settings == nil {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(g.Settings)
	if err != nil {
		return nil, err
	}
	return json.Marshal(gatewayEnvelope{Type: g.Settings.GatewayType(), Config: raw})
}

func (g *GatewayConfig) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		g.Settings = nil
		return nil
	}

	var env gatewayEnvelope
	if err := decodeStrict(data, &env); err != nil {
		return fmt.Errorf("gateway config: %w", err)
	}

	switch env.Type {
	case GatewayFlutterwave:
		var c FlutterwaveConfig
		if err := decodeStrict(env.Config, &c); err != nil {
			return fmt.Errorf("flutterwave config: %w", err)
		}
		g.Settings = c
	case GatewayBankTransfer:
		var c BankTransferConfig
		if err := decodeStrict(env.Config, &c); err != nil {
			return fmt.Errorf("bank transfer config: %w", err)
		}
		g.Settings = c
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGatewayType, env.Type)
	}
	return nil
}

func decodeStrict(data []byte, v any) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (g GatewayConfig) Value() (driver.Value, error) {
	b, err := g.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (g *GatewayConfig) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		g.Settings = nil
		return nil
	case []byte:
		return g.UnmarshalJSON(v)
	case string:
		return g.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("gateway config: unsupported scan type %T", src)
	}
}
