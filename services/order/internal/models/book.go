package models

import "time"

const (
	FormatEbook    = "ebook"
	FormatPhysical = "physical"
	FormatBoth     = "both"
)

// Book is the order service's view of the catalog table. Stock columns are
// only written through conditional decrements.
type Book struct {
	ID                uint      `gorm:"primaryKey"                 json:"id"`
	Title             string    `gorm:"size:255;not null"          json:"title"`
	AuthorName        string    `gorm:"size:255"                   json:"author_name"`
	Price             float64   `gorm:"not null;default:0"         json:"price"`
	Format            string    `gorm:"size:16;not null"           json:"format"`
	StockQuantity     int       `gorm:"not null;default:0"         json:"stock_quantity"`
	LowStockThreshold int       `gorm:"not null;default:0"         json:"low_stock_threshold"`
	IsActive          bool      `gorm:"not null"                   json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Book) TableName() string { return "books" }

type CartItem struct {
	ID        uint      `gorm:"primaryKey"                                    json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_cart_user_book;not null"       json:"user_id"`
	BookID    uint      `gorm:"uniqueIndex:idx_cart_user_book;not null"       json:"book_id"`
	Quantity  uint      `gorm:"default:1;check:quantity>0"                    json:"quantity"`
	Format    string    `gorm:"size:16;not null"                              json:"format"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartItem) TableName() string { return "cart_items" }

// CartLine is a cart row joined with the live book row.
type CartLine struct {
	BookID            uint    `json:"book_id"`
	Title             string  `json:"title"`
	AuthorName        string  `json:"author_name"`
	Price             float64 `json:"price"`
	Quantity          uint    `json:"quantity"`
	Format            string  `json:"format"`
	StockQuantity     int     `json:"-"`
	LowStockThreshold int     `json:"-"`
}

func (l CartLine) Physical() bool {
	return l.Format == FormatPhysical
}

// ReservesStock reports whether checking out the line decrements stock.
// Only physical copies of books with a low-stock threshold are tracked.
func (l CartLine) ReservesStock() bool {
	return l.Physical() && l.LowStockThreshold > 0
}
