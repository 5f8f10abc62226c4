package models

import "time"

const (
	FormatEbook    = "ebook"
	FormatPhysical = "physical"
	FormatBoth     = "both"
)

// Book is the subset of the catalog row the cart reads.
type Book struct {
	ID       uint    `gorm:"primaryKey"        json:"id"`
	Title    string  `gorm:"size:255;not null" json:"title"`
	Price    float64 `gorm:"not null;default:0" json:"price"`
	Format   string  `gorm:"size:16;not null"  json:"format"`
	IsActive bool    `gorm:"not null"          json:"is_active"`
}

func (Book) TableName() string { return "books" }

// Offers reports whether the book can be bought in format.
func (b Book) Offers(format string) bool {
	return b.Format == format || (b.Format == FormatBoth && (format == FormatEbook || format == FormatPhysical))
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey"                              json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_cart_user_book;not null" json:"user_id"`
	BookID    uint      `gorm:"uniqueIndex:idx_cart_user_book;not null" json:"book_id"`
	Quantity  uint      `gorm:"default:1;check:quantity>0"              json:"quantity"`
	Format    string    `gorm:"size:16;not null"                        json:"format"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// CartLine is a cart row priced with the book's current price.
type CartLine struct {
	BookID    uint    `json:"book_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  uint    `json:"quantity"`
	Format    string  `json:"format"`
	LineTotal float64 `json:"line_total"`
}
