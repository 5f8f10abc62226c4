package transport

import (
	"encoding/json"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
)

type CheckoutSummaryRequest struct {
	Country          string `json:"country"`
	ShippingMethodID *uint  `json:"shipping_method_id"`
	DiscountCode     string `json:"discount_code"`
}

type ValidateDiscountRequest struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
}

type ValidateDiscountResponse struct {
	Code           string  `json:"code"`
	Type           string  `json:"type"`
	DiscountAmount float64 `json:"discount_amount"`
}

type CreateOrderRequest struct {
	ShippingAddress  models.Address `json:"shipping_address"`
	BillingAddress   models.Address `json:"billing_address"`
	ShippingMethodID *uint          `json:"shipping_method_id"`
	DiscountCode     string         `json:"discount_code"`
	PaymentMethod    string         `json:"payment_method"`
}

type TransitionRequest struct {
	Status         string `json:"status"`
	Note           string `json:"note"`
	TrackingNumber string `json:"tracking_number"`
}

type NoteRequest struct {
	Note            string `json:"note"`
	CustomerVisible bool   `json:"customer_visible"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type ClearCartResponse struct {
	OrderID uint `json:"order_id"`
	Cleared bool `json:"cleared"`
}

type CreatePaymentRequest struct {
	OrderID       uint    `json:"order_id"`
	Gateway       string  `json:"gateway"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	TransactionID string  `json:"transaction_id"`
}

type UpdatePaymentStatusRequest struct {
	Status          string          `json:"status"`
	GatewayResponse json.RawMessage `json:"gateway_response"`
}

type UpdateOrderPaymentRequest struct {
	PaymentStatus string `json:"payment_status"`
	TransactionID string `json:"transaction_id"`
}

type CreateBankTransferRequest struct {
	OrderID       uint    `json:"order_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	BankAccountID *uint   `json:"bank_account_id"`
}

type ReviewBankTransferRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"admin_notes"`
}

type CleanupResponse struct {
	Expired int64 `json:"expired"`
}

type AssignBookRequest struct {
	UserID      uint   `json:"user_id"`
	BookID      uint   `json:"book_id"`
	Reason      string `json:"reason"`
	NotifyEmail string `json:"notify_email"`
}

type SyncLibraryResponse struct {
	OrderID uint  `json:"order_id"`
	Added   int64 `json:"added"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type ListResponse struct {
	Data any      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// PaymentGatewayResponse is the public view of a gateway; credentials stay server-side.
type PaymentGatewayResponse struct {
	GatewayID  string `json:"gateway_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	IsTestMode bool   `json:"is_test_mode"`
}
