package repo

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Book{},
		&models.CartItem{},
		&models.ShippingMethod{},
		&models.TaxRate{},
		&models.Discount{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.OrderNote{},
		&models.PaymentGateway{},
		&models.PaymentTransaction{},
		&models.BankAccount{},
		&models.BankTransfer{},
		&models.PaymentProof{},
		&models.BankTransferNotification{},
		&models.UserLibraryItem{},
		&models.BookAssignment{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SeedGateways inserts gateways that are not configured yet; existing rows
// are left as operators edited them.
func SeedGateways(ctx context.Context, db *gorm.DB, gateways []models.PaymentGateway) error {
	if len(gateways) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "gateway_id"}}, DoNothing: true}).
		Create(&gateways).Error
}
