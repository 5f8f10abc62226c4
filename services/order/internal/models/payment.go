package models

import "time"

const (
	TxStatusPending   = "pending"
	TxStatusSuccess   = "success"
	TxStatusFailed    = "failed"
	TxStatusCancelled = "cancelled"
)

const (
	GatewayFlutterwave  = "flutterwave"
	GatewayBankTransfer = "bank_transfer"
)

type PaymentGateway struct {
	ID         uint          `gorm:"primaryKey"                  json:"id"`
	GatewayID  string        `gorm:"size:64;uniqueIndex;not null" json:"gateway_id"`
	Name       string        `gorm:"size:128;not null"           json:"name"`
	IsActive   bool          `gorm:"not null"                    json:"is_active"`
	IsTestMode bool          `gorm:"not null"                    json:"is_test_mode"`
	Config     GatewayConfig `gorm:"type:text;not null"          json:"config"`
	SortOrder  int           `gorm:"not null;default:0"          json:"sort_order"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (PaymentGateway) TableName() string { return "payment_gateways" }

type PaymentTransaction struct {
	ID              uint      `gorm:"primaryKey"                   json:"id"`
	TransactionID   string    `gorm:"size:100;uniqueIndex;not null" json:"transaction_id"`
	OrderID         uint      `gorm:"index;not null"               json:"order_id"`
	UserID          uint      `gorm:"index;not null"               json:"user_id"`
	GatewayType     string    `gorm:"size:64;not null"             json:"gateway_type"`
	Amount          float64   `gorm:"not null"                     json:"amount"`
	Currency        string    `gorm:"size:3;not null"              json:"currency"`
	Status          string    `gorm:"size:16;not null"             json:"status"`
	GatewayResponse string    `gorm:"type:text"                    json:"gateway_response,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }
