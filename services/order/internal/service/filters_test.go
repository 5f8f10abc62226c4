package service

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBankTransferFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   string
		admin   bool
		wantErr bool
		check   func(t *testing.T, f BankTransferFilter)
	}{
		{
			name:  "empty customer query is scoped to caller",
			query: "",
			check: func(t *testing.T, f BankTransferFilter) {
				require.NotNil(t, f.UserID)
				assert.Equal(t, uint(7), *f.UserID)
			},
		},
		{
			name:  "admin without user_id sees everyone",
			query: "status=pending",
			admin: true,
			check: func(t *testing.T, f BankTransferFilter) {
				assert.Nil(t, f.UserID)
				assert.Equal(t, "pending", f.Status)
			},
		},
		{
			name:  "admin user_id",
			query: "user_id=42&order_id=3&page=2&size=5",
			admin: true,
			check: func(t *testing.T, f BankTransferFilter) {
				require.NotNil(t, f.UserID)
				assert.Equal(t, uint(42), *f.UserID)
				assert.Equal(t, uint(3), f.OrderID)
				assert.Equal(t, 2, f.Page)
				assert.Equal(t, 5, f.Size)
			},
		},
		{name: "customer user_id rejected", query: "user_id=42", wantErr: true},
		{name: "unknown key", query: "amount=10", wantErr: true},
		{name: "repeated key", query: "status=pending&status=verified", admin: true, wantErr: true},
		{name: "bad status", query: "status=approved", wantErr: true},
		{name: "zero order id", query: "order_id=0", wantErr: true},
		{name: "negative page", query: "page=-1", wantErr: true},
		{name: "non numeric size", query: "size=ten", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			f, err := ParseBankTransferFilter(q, 7, tt.admin)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			tt.check(t, f)
		})
	}
}

func TestSanitizeNote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{in: "  left at the door  ", want: "left at the door"},
		{in: "<b>fragile</b> parcel", want: "fragile parcel"},
		{in: "<script>alert(1)</script>", want: ""},
		{in: "", want: ""},
		{in: `Refund & restock: customer's "duplicate" order`, want: `Refund & restock: customer's "duplicate" order`},
		{in: "<i>R&D</i> copy", want: "R&D copy"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeNote(tt.in), tt.in)
	}
}

func TestDefaultBankTransferConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultBankTransferConfig()
	assert.Equal(t, 24, cfg.ExpiryHours)
	assert.Equal(t, int64(5<<20), cfg.MaxProofBytes)
	assert.ElementsMatch(t, []string{"image/jpeg", "image/png", "application/pdf"}, cfg.AllowedProofTypes)

	a, b := DefaultGateways(), DefaultGateways()
	require.Len(t, a, 2)
	a[0].Name = "changed"
	assert.Equal(t, "Flutterwave", b[0].Name)
}
