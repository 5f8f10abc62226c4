package service

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
)

// BankTransferFilter is the only query shape ListBankTransfers accepts.
// A nil UserID lists every user's transfers.
type BankTransferFilter struct {
	UserID  *uint
	OrderID uint
	Status  string
	Page    int
	Size    int
}

var transferStatuses = []string{
	models.TransferPending,
	models.TransferVerified,
	models.TransferRejected,
	models.TransferExpired,
}

// ParseBankTransferFilter reads a filter from query parameters. Unknown or
// repeated keys are rejected. Non-admin callers are always scoped to
// themselves and may not pass user_id.
func ParseBankTransferFilter(q url.Values, callerID uint, admin bool) (BankTransferFilter, error) {
	var f BankTransferFilter

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		vals := q[k]
		if len(vals) != 1 {
			return f, fmt.Errorf("%w: filter %q given %d times", ErrValidation, k, len(vals))
		}
		v := vals[0]

		switch k {
		case "status":
			if !oneOf(v, transferStatuses) {
				return f, fmt.Errorf("%w: status must be one of %v", ErrValidation, transferStatuses)
			}
			f.Status = v
		case "order_id":
			id, err := parseID(v)
			if err != nil {
				return f, fmt.Errorf("%w: order_id: %v", ErrValidation, err)
			}
			f.OrderID = id
		case "user_id":
			if !admin {
				return f, fmt.Errorf("%w: user_id filter is admin only", ErrValidation)
			}
			id, err := parseID(v)
			if err != nil {
				return f, fmt.Errorf("%w: user_id: %v", ErrValidation, err)
			}
			f.UserID = &id
		case "page", "size":
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return f, fmt.Errorf("%w: %s must be a positive integer", ErrValidation, k)
			}
			if k == "page" {
				f.Page = n
			} else {
				f.Size = n
			}
		default:
			return f, fmt.Errorf("%w: unknown filter %q", ErrValidation, k)
		}
	}

	if !admin {
		id := callerID
		f.UserID = &id
	}
	return f, nil
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(n), nil
}
