package repo

import (
	"context"
	"strings"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"gorm.io/gorm"
)

// ActiveTaxRate returns nil when the country has no active rate.
func (r *GormRepo) ActiveTaxRate(ctx context.Context, country string) (*models.TaxRate, error) {
	var rates []models.TaxRate
	err := r.DB.WithContext(ctx).
		Where("country = ? AND is_active = ?", strings.ToUpper(country), true).
		Order("id").
		Limit(1).
		Find(&rates).Error
	if err != nil || len(rates) == 0 {
		return nil, err
	}
	return &rates[0], nil
}

func (r *GormRepo) ActiveShippingMethod(ctx context.Context, id uint) (*models.ShippingMethod, error) {
	var m models.ShippingMethod
	if err := r.DB.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CheapestShippingMethod returns nil when no method is active.
func (r *GormRepo) CheapestShippingMethod(ctx context.Context) (*models.ShippingMethod, error) {
	var methods []models.ShippingMethod
	err := r.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("base_cost ASC, sort_order ASC, id ASC").
		Limit(1).
		Find(&methods).Error
	if err != nil || len(methods) == 0 {
		return nil, err
	}
	return &methods[0], nil
}

func (r *GormRepo) ActiveShippingMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	var methods []models.ShippingMethod
	if err := r.DB.WithContext(ctx).Where("is_active = ?", true).Order("sort_order, id").Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *GormRepo) DiscountByCode(ctx context.Context, code string) (*models.Discount, error) {
	var d models.Discount
	if err := r.DB.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// IncrementDiscountUsage bumps usage_count unless the limit is already reached.
func (r *GormRepo) IncrementDiscountUsage(ctx context.Context, id uint) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Discount{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", id).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
