package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	t.Setenv("ORDER_CURRENCY", "")
	t.Setenv("ORDER_PROOF_MAX_BYTES", "")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "NGN", s.Currency)
	assert.Equal(t, int64(5242880), s.ProofMaxBytes)
	assert.Equal(t, "email_events", s.EmailTopic)
}

func TestLoadSettings_FromEnv(t *testing.T) {
	t.Setenv("ORDER_CURRENCY", "USD")
	t.Setenv("ORDER_PROOF_MAX_BYTES", "1024")
	t.Setenv("ORDER_FLUTTERWAVE_WEBHOOK_HASH", "secret")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "USD", s.Currency)
	assert.Equal(t, int64(1024), s.ProofMaxBytes)
	assert.Equal(t, "secret", s.FlutterwaveWebhookHash)
}

func TestLoadSettings_BadNumber(t *testing.T) {
	t.Setenv("ORDER_PROOF_MAX_BYTES", "lots")

	_, err := LoadSettings()
	require.Error(t, err)
}
