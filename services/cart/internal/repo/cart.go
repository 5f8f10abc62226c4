package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/bookstore/services/cart/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *GormRepo) BookByID(ctx context.Context, id uint) (*models.Book, error) {
	var b models.Book
	if err := r.DB.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormRepo) GetCart(ctx context.Context, userID uint) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.DB.WithContext(ctx).
		Table("cart_items AS ci").
		Select("ci.book_id, b.title, b.price, ci.quantity, ci.format, b.price * ci.quantity AS line_total").
		Joins("JOIN books b ON b.id = ci.book_id").
		Where("ci.user_id = ?", userID).
		Order("ci.created_at, ci.id").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// AddToCart increments an existing line or creates it. The format of the
// latest add wins. A resulting quantity above max fails with
// ErrQuantityLimit.
func (r *GormRepo) AddToCart(ctx context.Context, item *models.CartItem, max uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CartItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND book_id = ?", item.UserID, item.BookID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if max > 0 && item.Quantity > max {
				return ErrQuantityLimit
			}
			return tx.Create(item).Error
		}
		if err != nil {
			return err
		}

		if max > 0 && existing.Quantity+item.Quantity > max {
			return ErrQuantityLimit
		}
		if err := tx.Model(&existing).Updates(map[string]any{
			"quantity": gorm.Expr("quantity + ?", item.Quantity),
			"format":   item.Format,
		}).Error; err != nil {
			return err
		}
		return tx.First(item, existing.ID).Error
	})
}

// SetQuantity overwrites a line's quantity; zero deletes the line. It
// returns gorm.ErrRecordNotFound when the book is not in the cart.
func (r *GormRepo) SetQuantity(ctx context.Context, userID, bookID, qty uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND book_id = ?", userID, bookID).
			First(&item).Error; err != nil {
			return err
		}
		if qty == 0 {
			return tx.Delete(&item).Error
		}
		if err := tx.Model(&item).Update("quantity", qty).Error; err != nil {
			return err
		}
		return tx.First(&item, item.ID).Error
	})
	if err != nil {
		return nil, err
	}
	if qty == 0 {
		item.Quantity = 0
	}
	return &item, nil
}

func (r *GormRepo) DeleteOneFromCart(ctx context.Context, bookID, userID uint) (bool, *models.CartItem, error) {
	var item models.CartItem
	deleted := false

	if err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("book_id = ? AND user_id = ?", bookID, userID).First(&item).Error; err != nil {
			return err
		}
		if item.Quantity > 1 {
			if err := tx.Model(&item).Update("quantity", gorm.Expr("quantity - 1")).Error; err != nil {
				return err
			}
			return tx.Where("book_id = ? AND user_id = ?", bookID, userID).First(&item).Error
		}
		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	}); err != nil {
		return false, nil, err
	}
	return deleted, &item, nil
}

func (r *GormRepo) DeleteAllFromCart(ctx context.Context, userID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
