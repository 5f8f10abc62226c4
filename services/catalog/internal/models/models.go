package models

import "time"

const (
	FormatEbook    = "ebook"
	FormatPhysical = "physical"
	FormatBoth     = "both"
)

type Book struct {
	ID                uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Title             string    `gorm:"size:255;not null"         json:"title"`
	AuthorName        string    `gorm:"size:255"                  json:"author_name"`
	Description       string    `gorm:"type:text"                 json:"description"`
	ISBN              *string   `gorm:"size:32;uniqueIndex"       json:"isbn,omitempty"`
	Price             float64   `gorm:"not null;default:0"        json:"price"`
	Format            string    `gorm:"size:16;not null"          json:"format"`
	StockQuantity     int       `gorm:"not null;default:0"        json:"stock_quantity"`
	LowStockThreshold int       `gorm:"not null;default:0"        json:"low_stock_threshold"`
	IsActive          bool      `gorm:"not null"                  json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Book) TableName() string { return "books" }

// CascadeStep is the outcome of clearing one table that references a book.
type CascadeStep struct {
	Table   string `json:"table"`
	Deleted int64  `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

type CascadeReport struct {
	BookID  uint          `json:"book_id"`
	Deleted bool          `json:"deleted"`
	Steps   []CascadeStep `json:"steps"`
}

func (r CascadeReport) Failed() []CascadeStep {
	var out []CascadeStep
	for _, s := range r.Steps {
		if s.Error != "" {
			out = append(out, s)
		}
	}
	return out
}
