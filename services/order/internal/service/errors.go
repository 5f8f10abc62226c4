package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation")    // 400
	ErrNotFound     = errors.New("not found")     // 404
	ErrConflict     = errors.New("conflict")      // 409
	ErrBusinessRule = errors.New("business rule") // 422
)

var (
	ErrOrderNotFound        = fmt.Errorf("order %w", ErrNotFound)
	ErrBookNotFound         = fmt.Errorf("book %w", ErrNotFound)
	ErrTransactionNotFound  = fmt.Errorf("payment transaction %w", ErrNotFound)
	ErrTransferNotFound     = fmt.Errorf("bank transfer %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	ErrGatewayNotFound      = fmt.Errorf("payment gateway %w", ErrNotFound)
	ErrNotInLibrary         = fmt.Errorf("library entry %w", ErrNotFound)

	ErrIllegalTransition = fmt.Errorf("%w: illegal status transition", ErrValidation)
	ErrNoteRequired      = fmt.Errorf("%w: note required", ErrValidation)
	ErrEmptyCart         = fmt.Errorf("%w: cart is empty", ErrValidation)

	ErrStockExceeded      = fmt.Errorf("%w: insufficient stock", ErrBusinessRule)
	ErrDiscountInvalid    = fmt.Errorf("%w: discount code invalid", ErrBusinessRule)
	ErrBankAccountMissing = fmt.Errorf("%w: no bank account configured", ErrBusinessRule)
	ErrGatewayInactive    = fmt.Errorf("%w: payment gateway inactive", ErrBusinessRule)
	ErrOrderNotPaid       = fmt.Errorf("%w: order not paid", ErrBusinessRule)

	ErrTransferNotPending = fmt.Errorf("%w: bank transfer is not pending", ErrConflict)
	ErrTransferSettled    = fmt.Errorf("%w: bank transfer payments are settled by transfer review", ErrConflict)
	ErrStaleOrder         = fmt.Errorf("%w: order changed concurrently", ErrConflict)
)

// StockExceededError names the book that could not be reserved.
type StockExceededError struct {
	BookID    uint
	Title     string
	Requested uint
	Available int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (book %d): requested %d, available %d",
		e.Title, e.BookID, e.Requested, e.Available)
}

func (e *StockExceededError) Is(target error) bool {
	return target == ErrStockExceeded || target == ErrBusinessRule
}
