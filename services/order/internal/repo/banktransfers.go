package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
)

type BankTransferQuery struct {
	UserID  *uint
	OrderID uint
	Status  string
	Limit   int
	Offset  int
}

func (r *GormRepo) ActiveBankAccount(ctx context.Context, id uint) (*models.BankAccount, error) {
	var a models.BankAccount
	if err := r.DB.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) DefaultBankAccount(ctx context.Context) (*models.BankAccount, error) {
	var a models.BankAccount
	err := r.DB.WithContext(ctx).
		Where("is_default = ? AND is_active = ?", true, true).
		Order("id").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) ActiveBankAccounts(ctx context.Context) ([]models.BankAccount, error) {
	var accts []models.BankAccount
	if err := r.DB.WithContext(ctx).Where("is_active = ?", true).Order("is_default DESC, id").Find(&accts).Error; err != nil {
		return nil, err
	}
	return accts, nil
}

func (r *GormRepo) CreateBankTransfer(ctx context.Context, bt *models.BankTransfer) error {
	return r.DB.WithContext(ctx).Create(bt).Error
}

func (r *GormRepo) BankTransferByID(ctx context.Context, id uint) (*models.BankTransfer, error) {
	var bt models.BankTransfer
	if err := r.DB.WithContext(ctx).First(&bt, id).Error; err != nil {
		return nil, err
	}
	return &bt, nil
}

func (r *GormRepo) CountPendingTransfers(ctx context.Context, orderID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.BankTransfer{}).
		Where("order_id = ? AND status = ?", orderID, models.TransferPending).
		Count(&n).Error
	return n, err
}

// ReviewBankTransfer applies an admin decision to a transfer that is still pending.
func (r *GormRepo) ReviewBankTransfer(ctx context.Context, id uint, status string, adminID uint, notes string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.BankTransfer{}).
		Where("id = ? AND status = ?", id, models.TransferPending).
		Updates(map[string]any{
			"status":      status,
			"verified_by": adminID,
			"verified_at": at,
			"admin_notes": notes,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExpirePending flips every overdue pending transfer in one statement and
// tags the flipped rows with sweepID.
func (r *GormRepo) ExpirePending(ctx context.Context, now time.Time, sweepID string) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.BankTransfer{}).
		Where("status = ? AND expires_at < ?", models.TransferPending, now).
		Updates(map[string]any{"status": models.TransferExpired, "sweep_id": sweepID})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) TransfersBySweep(ctx context.Context, sweepID string) ([]models.BankTransfer, error) {
	var bts []models.BankTransfer
	if err := r.DB.WithContext(ctx).Where("sweep_id = ?", sweepID).Order("id").Find(&bts).Error; err != nil {
		return nil, err
	}
	return bts, nil
}

func (r *GormRepo) ListBankTransfers(ctx context.Context, q BankTransferQuery) ([]models.BankTransfer, int64, error) {
	db := r.DB.WithContext(ctx).Model(&models.BankTransfer{})
	if q.UserID != nil {
		db = db.Where("user_id = ?", *q.UserID)
	}
	if q.OrderID != 0 {
		db = db.Where("order_id = ?", q.OrderID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bts []models.BankTransfer
	if err := db.Order("created_at DESC, id DESC").Limit(q.Limit).Offset(q.Offset).Find(&bts).Error; err != nil {
		return nil, 0, err
	}
	return bts, total, nil
}

func (r *GormRepo) ProofByChecksum(ctx context.Context, transferID uint, checksum string) (*models.PaymentProof, error) {
	var p models.PaymentProof
	err := r.DB.WithContext(ctx).
		Where("bank_transfer_id = ? AND checksum = ?", transferID, checksum).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) CreateProof(ctx context.Context, p *models.PaymentProof) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) ListProofs(ctx context.Context, transferID uint) ([]models.PaymentProof, error) {
	var ps []models.PaymentProof
	if err := r.DB.WithContext(ctx).Where("bank_transfer_id = ?", transferID).Order("created_at, id").Find(&ps).Error; err != nil {
		return nil, err
	}
	return ps, nil
}

func (r *GormRepo) MarkProofsVerified(ctx context.Context, transferID uint) error {
	return r.DB.WithContext(ctx).Model(&models.PaymentProof{}).
		Where("bank_transfer_id = ?", transferID).
		Update("is_verified", true).Error
}

func (r *GormRepo) CreateNotifications(ctx context.Context, ns []models.BankTransferNotification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&ns).Error
}

func (r *GormRepo) Notifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.BankTransferNotification, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var ns []models.BankTransferNotification
	if err := q.Order("created_at DESC, id DESC").Find(&ns).Error; err != nil {
		return nil, err
	}
	return ns, nil
}

func (r *GormRepo) MarkNotificationRead(ctx context.Context, userID, id uint) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.BankTransferNotification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
