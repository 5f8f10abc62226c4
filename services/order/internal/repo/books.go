package repo

import (
	"context"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"gorm.io/gorm"
)

func (r *GormRepo) BookByID(ctx context.Context, id uint) (*models.Book, error) {
	var b models.Book
	if err := r.DB.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// DecrementStock takes qty off the book only while enough stock remains.
func (r *GormRepo) DecrementStock(ctx context.Context, bookID uint, qty uint) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Book{}).
		Where("id = ? AND stock_quantity >= ?", bookID, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) CartLines(ctx context.Context, userID uint) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.DB.WithContext(ctx).
		Table("cart_items AS ci").
		Select(`ci.book_id, b.title, b.author_name, b.price, ci.quantity, ci.format,
			b.stock_quantity, b.low_stock_threshold`).
		Joins("JOIN books AS b ON b.id = ci.book_id").
		Where("ci.user_id = ?", userID).
		Order("ci.id").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *GormRepo) CartItems(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) ClearCart(ctx context.Context, userID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
