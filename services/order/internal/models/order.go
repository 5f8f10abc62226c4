package models

import "time"

const (
	OrderStatusPending           = "pending"
	OrderStatusConfirmed         = "confirmed"
	OrderStatusPaymentProcessing = "payment_processing"
	OrderStatusPaid              = "paid"
	OrderStatusProcessing        = "processing"
	OrderStatusShipped           = "shipped"
	OrderStatusDelivered         = "delivered"
	OrderStatusCancelled         = "cancelled"
	OrderStatusRefunded          = "refunded"
	OrderStatusPaymentFailed     = "payment_failed"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

type Address struct {
	FullName   string `gorm:"size:255" json:"full_name"`
	Email      string `gorm:"size:255" json:"email"`
	Phone      string `gorm:"size:64"  json:"phone"`
	Line1      string `gorm:"size:255" json:"line1"`
	Line2      string `gorm:"size:255" json:"line2"`
	City       string `gorm:"size:128" json:"city"`
	State      string `gorm:"size:128" json:"state"`
	PostalCode string `gorm:"size:32"  json:"postal_code"`
	Country    string `gorm:"size:2"   json:"country"`
}

func (a Address) IsZero() bool {
	return a == Address{}
}

type Order struct {
	ID                   uint    `gorm:"primaryKey"                        json:"id"`
	OrderNumber          string  `gorm:"size:64;uniqueIndex;not null"      json:"order_number"`
	UserID               uint    `gorm:"index;not null"                    json:"user_id"`
	Status               string  `gorm:"size:32;index;not null"            json:"status"`
	PaymentStatus        string  `gorm:"size:32;not null"                  json:"payment_status"`
	PaymentMethod        string  `gorm:"size:64"                           json:"payment_method"`
	PaymentTransactionID string  `gorm:"size:100"                          json:"payment_transaction_id,omitempty"`
	Subtotal             float64 `gorm:"not null"                          json:"subtotal"`
	TaxAmount            float64 `gorm:"not null"                          json:"tax_amount"`
	ShippingAmount       float64 `gorm:"not null"                          json:"shipping_amount"`
	DiscountAmount       float64 `gorm:"not null"                          json:"discount_amount"`
	TotalAmount          float64 `gorm:"not null"                          json:"total_amount"`
	Currency             string  `gorm:"size:3;not null"                   json:"currency"`
	DiscountCode         string  `gorm:"size:64"                           json:"discount_code,omitempty"`
	ShippingMethod       string  `gorm:"size:128"                          json:"shipping_method,omitempty"`
	CartType             string  `gorm:"size:16"                           json:"cart_type"`
	TrackingNumber       string  `gorm:"size:128"                          json:"tracking_number,omitempty"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  Address `gorm:"embedded;embeddedPrefix:billing_"  json:"billing_address"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`

	PaidAt      *time.Time `json:"paid_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// ContactEmail is where order mail goes.
func (o Order) ContactEmail() string {
	if o.ShippingAddress.Email != "" {
		return o.ShippingAddress.Email
	}
	return o.BillingAddress.Email
}

type OrderItem struct {
	ID         uint      `gorm:"primaryKey"            json:"id"`
	OrderID    uint      `gorm:"index;not null"        json:"order_id"`
	BookID     uint      `gorm:"index;not null"        json:"book_id"`
	Title      string    `gorm:"size:255;not null"     json:"title"`
	AuthorName string    `gorm:"size:255"              json:"author_name"`
	Price      float64   `gorm:"not null"              json:"price"`
	Quantity   uint      `gorm:"not null;check:quantity>0" json:"quantity"`
	TotalPrice float64   `gorm:"not null"              json:"total_price"`
	Format     string    `gorm:"size:16;not null"      json:"format"`
	CreatedAt  time.Time `json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

type OrderStatusHistory struct {
	ID        uint      `gorm:"primaryKey"         json:"id"`
	OrderID   uint      `gorm:"index;not null"     json:"order_id"`
	Status    string    `gorm:"size:32;not null"   json:"status"`
	Notes     string    `gorm:"type:text"          json:"notes,omitempty"`
	CreatedBy *uint     `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }

type OrderNote struct {
	ID                uint      `gorm:"primaryKey"        json:"id"`
	OrderID           uint      `gorm:"index;not null"    json:"order_id"`
	Note              string    `gorm:"type:text;not null" json:"note"`
	IsCustomerVisible bool      `gorm:"not null"          json:"is_customer_visible"`
	CreatedBy         *uint     `json:"created_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func (OrderNote) TableName() string { return "order_notes" }
