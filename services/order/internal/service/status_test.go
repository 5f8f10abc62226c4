package service

import (
	"testing"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTransition_Grid(t *testing.T) {
	t.Parallel()

	legal := map[[2]string]bool{}
	for from, tos := range edges {
		for to := range tos {
			legal[[2]string{from, to}] = true
		}
	}

	for _, from := range statusOrder {
		for _, to := range statusOrder {
			_, err := CheckTransition(from, to, "reason given")
			if legal[[2]string{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, ErrIllegalTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestCheckTransition_TerminalStatesStayPut(t *testing.T) {
	t.Parallel()

	for _, to := range statusOrder {
		_, err := CheckTransition(models.OrderStatusRefunded, to, "x")
		assert.ErrorIs(t, err, ErrIllegalTransition, "refunded -> %s", to)
	}
}

func TestCheckTransition_Notes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    string
		to      string
		note    string
		wantErr error
	}{
		{name: "cancel needs reason", from: models.OrderStatusPending, to: models.OrderStatusCancelled, note: "  ", wantErr: ErrNoteRequired},
		{name: "cancel with reason", from: models.OrderStatusPending, to: models.OrderStatusCancelled, note: "customer asked"},
		{name: "american spelling", from: models.OrderStatusPending, to: "Canceled", note: "customer asked"},
		{name: "ship needs tracking note", from: models.OrderStatusProcessing, to: models.OrderStatusShipped, wantErr: ErrNoteRequired},
		{name: "refund needs reason", from: models.OrderStatusDelivered, to: models.OrderStatusRefunded, wantErr: ErrNoteRequired},
		{name: "confirm needs nothing", from: models.OrderStatusPending, to: models.OrderStatusConfirmed},
		{name: "unknown target", from: models.OrderStatusPending, to: "lost", wantErr: ErrIllegalTransition},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := CheckTransition(tt.from, tt.to, tt.note)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAllowedTransitions(t *testing.T) {
	t.Parallel()

	got := AllowedTransitions(models.OrderStatusShipped)
	require.Len(t, got, 2)
	assert.Equal(t, Transition{From: "shipped", To: "delivered"}, got[0])
	assert.Equal(t, Transition{From: "shipped", To: "cancelled", RequiresNote: true}, got[1])

	assert.Empty(t, AllowedTransitions(models.OrderStatusRefunded))
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTerminal("delivered"))
	assert.True(t, IsTerminal("canceled"))
	assert.True(t, IsTerminal("refunded"))
	assert.False(t, IsTerminal("shipped"))
	assert.False(t, IsTerminal("pending"))
}
