package service

import (
	"fmt"
	"strings"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
)

type Transition struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RequiresNote bool   `json:"requires_note"`
}

var statusOrder = []string{
	models.OrderStatusPending,
	models.OrderStatusConfirmed,
	models.OrderStatusPaymentProcessing,
	models.OrderStatusPaid,
	models.OrderStatusProcessing,
	models.OrderStatusShipped,
	models.OrderStatusDelivered,
	models.OrderStatusCancelled,
	models.OrderStatusRefunded,
	models.OrderStatusPaymentFailed,
}

// edges: from -> to -> requires note. Pairs that are absent are illegal.
var edges = map[string]map[string]bool{
	models.OrderStatusPending: {
		models.OrderStatusConfirmed:         false,
		models.OrderStatusPaymentProcessing: false,
		models.OrderStatusPaymentFailed:     false,
		models.OrderStatusCancelled:         true,
	},
	models.OrderStatusConfirmed: {
		models.OrderStatusPaymentProcessing: false,
		models.OrderStatusPaid:              false,
		models.OrderStatusProcessing:        false,
		models.OrderStatusCancelled:         true,
	},
	models.OrderStatusPaymentProcessing: {
		models.OrderStatusConfirmed:     false,
		models.OrderStatusPaid:          false,
		models.OrderStatusPaymentFailed: false,
		models.OrderStatusCancelled:     true,
	},
	models.OrderStatusPaymentFailed: {
		models.OrderStatusConfirmed:         false,
		models.OrderStatusPaymentProcessing: false,
		models.OrderStatusCancelled:         true,
	},
	models.OrderStatusPaid: {
		models.OrderStatusProcessing: false,
		models.OrderStatusCancelled:  true,
	},
	models.OrderStatusProcessing: {
		models.OrderStatusShipped:   true,
		models.OrderStatusDelivered: false,
		models.OrderStatusCancelled: true,
	},
	models.OrderStatusShipped: {
		models.OrderStatusDelivered: false,
		models.OrderStatusCancelled: true,
	},
	models.OrderStatusDelivered: {
		models.OrderStatusRefunded: true,
	},
	models.OrderStatusCancelled: {
		models.OrderStatusRefunded: true,
	},
}

// NormalizeStatus lower-cases the label and folds "canceled" into "cancelled".
func NormalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "canceled" {
		return models.OrderStatusCancelled
	}
	return s
}

func KnownStatus(s string) bool {
	for _, st := range statusOrder {
		if st == s {
			return true
		}
	}
	return false
}

func IsTerminal(s string) bool {
	switch NormalizeStatus(s) {
	case models.OrderStatusDelivered, models.OrderStatusCancelled, models.OrderStatusRefunded:
		return true
	}
	return false
}

// fulfills reports whether entering the status grants the order's books.
func fulfills(s string) bool {
	return s == models.OrderStatusPaid || s == models.OrderStatusDelivered
}

func AllowedTransitions(from string) []Transition {
	from = NormalizeStatus(from)
	out := []Transition{}
	for _, to := range statusOrder {
		if note, ok := edges[from][to]; ok {
			out = append(out, Transition{From: from, To: to, RequiresNote: note})
		}
	}
	return out
}

// CheckTransition validates a move without touching storage.
func CheckTransition(from, to, note string) (Transition, error) {
	from, to = NormalizeStatus(from), NormalizeStatus(to)
	if !KnownStatus(to) {
		return Transition{}, fmt.Errorf("%w: %s -> unknown status %q", ErrIllegalTransition, from, to)
	}
	requiresNote, ok := edges[from][to]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	if requiresNote && strings.TrimSpace(note) == "" {
		return Transition{}, fmt.Errorf("%w: %s -> %s needs a reason", ErrNoteRequired, from, to)
	}
	return Transition{From: from, To: to, RequiresNote: requiresNote}, nil
}
