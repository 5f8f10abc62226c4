package repo

import (
	"context"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) OrderByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uint, limit, offset int) ([]models.Order, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateOrderStatus moves the order from one status to another; false means
// the order was no longer in status from.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uint, from, to string, extra map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) UpdateOrderFields(ctx context.Context, id uint, fields map[string]any) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) AppendHistory(ctx context.Context, h *models.OrderStatusHistory) error {
	return r.DB.WithContext(ctx).Create(h).Error
}

func (r *GormRepo) History(ctx context.Context, orderID uint) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormRepo) AddNote(ctx context.Context, n *models.OrderNote) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *GormRepo) Notes(ctx context.Context, orderID uint, customerOnly bool) ([]models.OrderNote, error) {
	q := r.DB.WithContext(ctx).Where("order_id = ?", orderID)
	if customerOnly {
		q = q.Where("is_customer_visible = ?", true)
	}
	var rows []models.OrderNote
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
