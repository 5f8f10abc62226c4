package repo

import (
	"errors"
	"fmt"

	"github.com/Skotchmaster/bookstore/services/cart/internal/models"
	"gorm.io/gorm"
)

var ErrQuantityLimit = errors.New("line quantity limit exceeded")

type GormRepo struct {
	DB *gorm.DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Book{}, &models.CartItem{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
