package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"gorm.io/gorm"
)

const (
	defaultTransferExpiryHours = 24
	defaultMaxProofBytes       = 5 << 20
)

var ErrWebhookSignature = fmt.Errorf("%w: webhook signature mismatch", ErrValidation)

// DefaultGateways returns the gateways seeded on first start. Every call
// builds new values.
func DefaultGateways() []models.PaymentGateway {
	return []models.PaymentGateway{
		{
			GatewayID:  models.GatewayFlutterwave,
			Name:       "Flutterwave",
			IsActive:   true,
			IsTestMode: true,
			SortOrder:  1,
			Config:     models.GatewayConfig{Settings: models.FlutterwaveConfig{}},
		},
		{
			GatewayID: models.GatewayBankTransfer,
			Name:      "Bank Transfer",
			IsActive:  true,
			SortOrder: 2,
			Config:    models.GatewayConfig{Settings: DefaultBankTransferConfig()},
		},
	}
}

func DefaultBankTransferConfig() models.BankTransferConfig {
	return models.BankTransferConfig{
		ExpiryHours:       defaultTransferExpiryHours,
		MaxProofBytes:     defaultMaxProofBytes,
		AllowedProofTypes: []string{"image/jpeg", "image/png", "application/pdf"},
		Instructions:      "Use the transaction reference as the transfer narration.",
	}
}

// bankTransferConfig falls back to defaults for a missing or partial config.
func (s *BankTransferService) bankTransferConfig(ctx context.Context) (models.BankTransferConfig, bool, error) {
	gw, err := s.Repo.GatewayByID(ctx, models.GatewayBankTransfer)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultBankTransferConfig(), true, nil
	}
	if err != nil {
		return models.BankTransferConfig{}, false, err
	}
	cfg, ok := gw.Config.BankTransfer()
	if !ok {
		return models.BankTransferConfig{}, false, fmt.Errorf("gateway %s: %w", gw.GatewayID, models.ErrUnknownGatewayType)
	}
	def := DefaultBankTransferConfig()
	if cfg.ExpiryHours <= 0 {
		cfg.ExpiryHours = def.ExpiryHours
	}
	if cfg.MaxProofBytes <= 0 {
		cfg.MaxProofBytes = def.MaxProofBytes
	}
	if len(cfg.AllowedProofTypes) == 0 {
		cfg.AllowedProofTypes = def.AllowedProofTypes
	}
	return cfg, gw.IsActive, nil
}

// FlutterwaveWebhook is the part of a Flutterwave callback this service reads.
type FlutterwaveWebhook struct {
	Event string `json:"event"`
	Data  struct {
		TxRef    string  `json:"tx_ref"`
		Status   string  `json:"status"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"data"`
}

// HandleFlutterwaveWebhook checks the verif-hash value against the
// configured secret hash, then confirms or fails the referenced transaction.
// fallbackHash is used when the gateway row carries none.
func (s *PaymentService) HandleFlutterwaveWebhook(ctx context.Context, signature, fallbackHash string, body []byte) (*PaymentOutcome, error) {
	expected := fallbackHash
	if gw, err := s.Repo.GatewayByID(ctx, models.GatewayFlutterwave); err == nil {
		if cfg, ok := gw.Config.Flutterwave(); ok && cfg.WebhookHash != "" {
			expected = cfg.WebhookHash
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return nil, ErrWebhookSignature
	}

	var hook FlutterwaveWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("%w: webhook body: %v", ErrValidation, err)
	}
	ref := strings.TrimSpace(hook.Data.TxRef)
	if ref == "" {
		return nil, fmt.Errorf("%w: data.tx_ref required", ErrValidation)
	}

	t, err := loadTransaction(ctx, s.Repo, ref)
	if err != nil {
		return nil, err
	}

	raw := json.RawMessage(body)
	if strings.EqualFold(hook.Data.Status, "successful") && Round2(hook.Data.Amount) >= Round2(t.Amount) {
		return s.ConfirmPayment(ctx, ref, raw, nil)
	}
	return s.FailPayment(ctx, ref, raw, nil)
}
