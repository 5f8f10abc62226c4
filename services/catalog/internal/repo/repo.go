package repo

import (
	"errors"
	"fmt"

	"github.com/Skotchmaster/bookstore/services/catalog/internal/models"
	"gorm.io/gorm"
)

// ErrCascadeIncomplete means at least one referencing table could not be
// cleared; the book and every other table were left as they were.
var ErrCascadeIncomplete = errors.New("book delete cascade incomplete")

// cascadeTables reference books.id and are cleared before the book row.
// order_items keep their own copy of the book and are never touched.
var cascadeTables = []string{"cart_items", "user_library_items", "book_assignments"}

type GormRepo struct {
	DB *gorm.DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Book{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
