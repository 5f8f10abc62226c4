package repo

import (
	"context"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
)

func (r *GormRepo) GatewayByID(ctx context.Context, gatewayID string) (*models.PaymentGateway, error) {
	var g models.PaymentGateway
	if err := r.DB.WithContext(ctx).Where("gateway_id = ?", gatewayID).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GormRepo) ActiveGateways(ctx context.Context) ([]models.PaymentGateway, error) {
	var gws []models.PaymentGateway
	if err := r.DB.WithContext(ctx).Where("is_active = ?", true).Order("sort_order, id").Find(&gws).Error; err != nil {
		return nil, err
	}
	return gws, nil
}

func (r *GormRepo) CreatePaymentTransaction(ctx context.Context, tx *models.PaymentTransaction) error {
	return r.DB.WithContext(ctx).Create(tx).Error
}

func (r *GormRepo) PaymentTransactionByTxID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	if err := r.DB.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormRepo) UpdatePaymentTransaction(ctx context.Context, transactionID, status, response string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("transaction_id = ?", transactionID).
		Updates(map[string]any{"status": status, "gateway_response": response})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CancelPendingTransactions marks still-pending transactions with the given
// ids as cancelled.
func (r *GormRepo) CancelPendingTransactions(ctx context.Context, transactionIDs []string) (int64, error) {
	if len(transactionIDs) == 0 {
		return 0, nil
	}
	res := r.DB.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("transaction_id IN ? AND status = ?", transactionIDs, models.TxStatusPending).
		Update("status", models.TxStatusCancelled)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) PaymentsForOrder(ctx context.Context, orderID uint) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at, id").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}
