package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Skotchmaster/bookstore/pkg/logging"
	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"github.com/Skotchmaster/bookstore/services/order/internal/repo"
)

type CartService struct {
	Runtime
	Repo *repo.GormRepo
}

// ClearCartAfterPaymentSuccess empties the user's cart only once the order
// reads back as paid and confirmed. Any other state leaves the cart alone.
func (s *CartService) ClearCartAfterPaymentSuccess(ctx context.Context, userID, orderID uint) (bool, error) {
	var removed int64
	cleared := false
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
		}
		if o.PaymentStatus != models.PaymentStatusPaid || o.Status != models.OrderStatusConfirmed {
			logging.FromContext(ctx).Info("clear_cart_skipped",
				"order_id", orderID, "status", o.Status, "payment_status", o.PaymentStatus)
			return nil
		}
		removed, err = r.ClearCart(ctx, userID)
		if err != nil {
			return fmt.Errorf("clear cart of user %d: %w", userID, err)
		}
		cleared = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if cleared {
		s.publish(ctx, TopicCart, strconv.FormatUint(uint64(userID), 10), CartCleared{
			UserID:  userID,
			OrderID: orderID,
			Removed: removed,
		})
	}
	return cleared, nil
}

func (s *CartService) Items(ctx context.Context, userID uint) ([]models.CartItem, error) {
	return s.Repo.CartItems(ctx, userID)
}
