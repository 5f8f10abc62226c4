package models

import "time"

const (
	TransferPending  = "pending"
	TransferVerified = "verified"
	TransferRejected = "rejected"
	TransferExpired  = "expired"
)

const (
	NotifyInitiated     = "initiated"
	NotifyProofUploaded = "proof_uploaded"
	NotifyVerified      = "verified"
	NotifyRejected      = "rejected"
	NotifyExpired       = "expired"
)

type BankAccount struct {
	ID            uint      `gorm:"primaryKey"          json:"id"`
	BankName      string    `gorm:"size:128;not null"   json:"bank_name"`
	AccountNumber string    `gorm:"size:64;not null"    json:"account_number"`
	AccountName   string    `gorm:"size:255;not null"   json:"account_name"`
	IsDefault     bool      `gorm:"not null"            json:"is_default"`
	IsActive      bool      `gorm:"not null"            json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

func (BankAccount) TableName() string { return "bank_accounts" }

type BankTransfer struct {
	ID                   uint       `gorm:"primaryKey"                   json:"id"`
	OrderID              uint       `gorm:"index;not null"               json:"order_id"`
	UserID               uint       `gorm:"index;not null"               json:"user_id"`
	BankAccountID        uint       `gorm:"not null"                     json:"bank_account_id"`
	TransactionReference string     `gorm:"size:64;uniqueIndex;not null" json:"transaction_reference"`
	Amount               float64    `gorm:"not null"                     json:"amount"`
	Currency             string     `gorm:"size:3;not null"              json:"currency"`
	Status               string     `gorm:"size:16;index;not null"       json:"status"`
	ExpiresAt            time.Time  `gorm:"index;not null"               json:"expires_at"`
	AdminNotes           string     `gorm:"type:text"                    json:"admin_notes,omitempty"`
	VerifiedBy           *uint      `json:"verified_by,omitempty"`
	VerifiedAt           *time.Time `json:"verified_at,omitempty"`
	SweepID              string     `gorm:"size:36;index"                json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (BankTransfer) TableName() string { return "bank_transfers" }

type PaymentProof struct {
	ID             uint      `gorm:"primaryKey"             json:"id"`
	BankTransferID uint      `gorm:"uniqueIndex:idx_proof_transfer_checksum;not null" json:"bank_transfer_id"`
	FileName       string    `gorm:"size:255;not null"      json:"file_name"`
	FilePath       string    `gorm:"size:512;not null"      json:"-"`
	FileSize       int64     `gorm:"not null"               json:"file_size"`
	MimeType       string    `gorm:"size:128;not null"      json:"mime_type"`
	Checksum       string    `gorm:"size:64;uniqueIndex:idx_proof_transfer_checksum;not null" json:"checksum"`
	IsVerified     bool      `gorm:"not null"               json:"is_verified"`
	UploadedBy     uint      `gorm:"not null"               json:"uploaded_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func (PaymentProof) TableName() string { return "payment_proofs" }

type BankTransferNotification struct {
	ID             uint      `gorm:"primaryKey"          json:"id"`
	BankTransferID uint      `gorm:"index;not null"      json:"bank_transfer_id"`
	UserID         uint      `gorm:"index;not null"      json:"user_id"`
	Type           string    `gorm:"size:32;not null"    json:"type"`
	Title          string    `gorm:"size:255;not null"   json:"title"`
	Message        string    `gorm:"type:text;not null"  json:"message"`
	IsRead         bool      `gorm:"not null"            json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func (BankTransferNotification) TableName() string { return "bank_transfer_notifications" }
