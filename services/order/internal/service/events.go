package service

import "time"

const (
	TopicOrders        = "order_events"
	TopicPayments      = "payment_events"
	TopicBankTransfers = "bank_transfer_events"
	TopicLibrary       = "library_events"
	TopicCart          = "cart_events"
)

type OrderCreated struct {
	OrderID     uint      `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uint      `json:"user_id"`
	TotalAmount float64   `json:"total_amount"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

func (OrderCreated) EventType() string { return "order_created" }

type OrderStatusChanged struct {
	OrderID uint   `json:"order_id"`
	UserID  uint   `json:"user_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	ActorID *uint  `json:"actor_id,omitempty"`
}

func (OrderStatusChanged) EventType() string { return "order_status_changed" }

type PaymentUpdated struct {
	TransactionID string  `json:"transaction_id"`
	OrderID       uint    `json:"order_id"`
	Gateway       string  `json:"gateway"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
}

func (PaymentUpdated) EventType() string { return "payment_updated" }

type BankTransferChanged struct {
	TransferID uint   `json:"transfer_id"`
	OrderID    uint   `json:"order_id"`
	UserID     uint   `json:"user_id"`
	Reference  string `json:"reference"`
	Status     string `json:"status"`
	Kind       string `json:"kind"`
}

func (BankTransferChanged) EventType() string { return "bank_transfer_changed" }

type LibraryGranted struct {
	UserID     uint   `json:"user_id"`
	BookIDs    []uint `json:"book_ids"`
	AccessType string `json:"access_type"`
	OrderID    *uint  `json:"order_id,omitempty"`
}

func (LibraryGranted) EventType() string { return "library_granted" }

type LibraryRevoked struct {
	UserID uint `json:"user_id"`
	BookID uint `json:"book_id"`
}

func (LibraryRevoked) EventType() string { return "library_revoked" }

type CartCleared struct {
	UserID  uint  `json:"user_id"`
	OrderID uint  `json:"order_id"`
	Removed int64 `json:"removed"`
}

func (CartCleared) EventType() string { return "cart_cleared" }
