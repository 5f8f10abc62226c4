package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"github.com/Skotchmaster/bookstore/services/order/internal/repo"
	"gorm.io/gorm"
)

const (
	CartTypeEbook    = "ebook"
	CartTypePhysical = "physical"
	CartTypeMixed    = "mixed"
)

const defaultCurrency = "NGN"

type CheckoutInput struct {
	Country          string
	ShippingMethodID *uint
	DiscountCode     string
}

type DeliveryWindow struct {
	MinDays int    `json:"min_days"`
	MaxDays int    `json:"max_days"`
	Label   string `json:"label"`
}

type CheckoutSummary struct {
	Lines             []models.CartLine `json:"lines"`
	CartType          string            `json:"cart_type"`
	Country           string            `json:"country,omitempty"`
	Currency          string            `json:"currency"`
	Subtotal          float64           `json:"subtotal"`
	TaxRate           float64           `json:"tax_rate"`
	TaxAmount         float64           `json:"tax_amount"`
	ShippingAmount    float64           `json:"shipping_amount"`
	DiscountAmount    float64           `json:"discount_amount"`
	TotalAmount       float64           `json:"total_amount"`
	ShippingMethodID  *uint             `json:"shipping_method_id,omitempty"`
	ShippingMethod    string            `json:"shipping_method,omitempty"`
	DiscountCode      string            `json:"discount_code,omitempty"`
	EstimatedDelivery *DeliveryWindow   `json:"estimated_delivery,omitempty"`
	PhysicalItems     uint              `json:"physical_items"`

	discount *models.Discount
}

type PricingService struct {
	Runtime
	Repo     *repo.GormRepo
	Currency string
}

func (s *PricingService) currency() string {
	if s.Currency == "" {
		return defaultCurrency
	}
	return s.Currency
}

// ClassifyCart reports ebook for a cart with no physical line.
func ClassifyCart(lines []models.CartLine) string {
	var physical, digital bool
	for _, l := range lines {
		if l.Physical() {
			physical = true
		} else {
			digital = true
		}
	}
	switch {
	case physical && digital:
		return CartTypeMixed
	case physical:
		return CartTypePhysical
	default:
		return CartTypeEbook
	}
}

func Subtotal(lines []models.CartLine) float64 {
	var sum float64
	for _, l := range lines {
		sum += Money(l.Price) * float64(l.Quantity)
	}
	return nonNegative(sum)
}

func ShippingCost(m models.ShippingMethod, subtotal float64, physicalItems uint) float64 {
	if m.FreeShippingThreshold != nil {
		if t := Money(*m.FreeShippingThreshold); t > 0 && Money(subtotal) >= t {
			return 0
		}
	}
	return nonNegative(Money(m.BaseCost) + Money(m.CostPerItem)*float64(physicalItems))
}

// DiscountAmount never exceeds the subtotal.
func DiscountAmount(d models.Discount, subtotal float64) float64 {
	subtotal = nonNegative(subtotal)

	var amount float64
	switch d.Type {
	case models.DiscountPercentage:
		amount = subtotal * Money(d.Value) / 100
		if d.MaxDiscountAmount != nil {
			if limit := Money(*d.MaxDiscountAmount); limit > 0 && amount > limit {
				amount = limit
			}
		}
	case models.DiscountFixed:
		amount = Money(d.Value)
	}

	if amount > subtotal {
		amount = subtotal
	}
	return nonNegative(amount)
}

// ComputeTotals prices a cart. It does no I/O.
func ComputeTotals(lines []models.CartLine, method *models.ShippingMethod, taxRatePercent float64, discount *models.Discount) CheckoutSummary {
	sum := CheckoutSummary{
		Lines:    lines,
		CartType: ClassifyCart(lines),
		Subtotal: Subtotal(lines),
	}
	for _, l := range lines {
		if l.Physical() {
			sum.PhysicalItems += l.Quantity
		}
	}

	if sum.CartType != CartTypeEbook && method != nil {
		id := method.ID
		sum.ShippingMethodID = &id
		sum.ShippingMethod = method.Name
		sum.ShippingAmount = ShippingCost(*method, sum.Subtotal, sum.PhysicalItems)
		sum.EstimatedDelivery = &DeliveryWindow{
			MinDays: method.EstimatedDaysMin,
			MaxDays: method.EstimatedDaysMax,
			Label:   fmt.Sprintf("%d-%d business days", method.EstimatedDaysMin, method.EstimatedDaysMax),
		}
	}

	rate := Money(taxRatePercent)
	if rate < 0 {
		rate = 0
	}
	sum.TaxRate = rate
	sum.TaxAmount = nonNegative(sum.Subtotal * rate / 100)

	if discount != nil {
		sum.DiscountAmount = DiscountAmount(*discount, sum.Subtotal)
		if sum.DiscountAmount > 0 {
			sum.DiscountCode = discount.Code
			sum.discount = discount
		}
	}

	sum.TotalAmount = nonNegative(sum.Subtotal + sum.TaxAmount + sum.ShippingAmount - sum.DiscountAmount)
	return sum
}

// CheckDiscount applies every eligibility rule of a code against a subtotal.
func CheckDiscount(d models.Discount, subtotal float64, now time.Time) error {
	switch {
	case !d.IsActive:
		return fmt.Errorf("%w: code %q is not active", ErrDiscountInvalid, d.Code)
	case d.Type != models.DiscountPercentage && d.Type != models.DiscountFixed:
		return fmt.Errorf("%w: code %q has unknown type %q", ErrDiscountInvalid, d.Code, d.Type)
	case d.ValidFrom != nil && now.Before(*d.ValidFrom):
		return fmt.Errorf("%w: code %q is not valid yet", ErrDiscountInvalid, d.Code)
	case d.ValidUntil != nil && now.After(*d.ValidUntil):
		return fmt.Errorf("%w: code %q has expired", ErrDiscountInvalid, d.Code)
	case d.UsageLimit != nil && d.UsageCount >= *d.UsageLimit:
		return fmt.Errorf("%w: code %q usage limit reached", ErrDiscountInvalid, d.Code)
	case Money(subtotal) < Money(d.MinOrderAmount):
		return fmt.Errorf("%w: code %q needs a minimum order of %.2f", ErrDiscountInvalid, d.Code, d.MinOrderAmount)
	}
	return nil
}

func (s *PricingService) ValidateDiscountCode(ctx context.Context, code string, subtotal float64) (*models.Discount, float64, error) {
	return s.validateDiscount(ctx, s.Repo, code, subtotal)
}

func (s *PricingService) validateDiscount(ctx context.Context, r *repo.GormRepo, code string, subtotal float64) (*models.Discount, float64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, 0, fmt.Errorf("%w: discount code required", ErrValidation)
	}

	d, err := r.DiscountByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, fmt.Errorf("%w: code %q does not exist", ErrDiscountInvalid, code)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load discount %q: %w", code, err)
	}

	if err := CheckDiscount(*d, subtotal, s.now()); err != nil {
		return nil, 0, err
	}
	return d, DiscountAmount(*d, subtotal), nil
}

func (s *PricingService) Summarize(ctx context.Context, userID uint, in CheckoutInput) (*CheckoutSummary, error) {
	return s.summarize(ctx, s.Repo, userID, in)
}

func (s *PricingService) ShippingMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	return s.Repo.ActiveShippingMethods(ctx)
}

func (s *PricingService) summarize(ctx context.Context, r *repo.GormRepo, userID uint, in CheckoutInput) (*CheckoutSummary, error) {
	country := strings.ToUpper(strings.TrimSpace(in.Country))
	if country == "" {
		return nil, fmt.Errorf("%w: country required", ErrValidation)
	}

	lines, err := r.CartLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart of user %d: %w", userID, err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	var taxPercent float64
	rate, err := r.ActiveTaxRate(ctx, country)
	if err != nil {
		return nil, fmt.Errorf("load tax rate for %s: %w", country, err)
	}
	if rate != nil {
		taxPercent = rate.Rate
	}

	var method *models.ShippingMethod
	if ClassifyCart(lines) != CartTypeEbook {
		if in.ShippingMethodID != nil {
			method, err = r.ActiveShippingMethod(ctx, *in.ShippingMethodID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: shipping method %d is not available", ErrValidation, *in.ShippingMethodID)
			}
		} else {
			method, err = r.CheapestShippingMethod(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("load shipping method: %w", err)
		}
	}

	var discount *models.Discount
	if strings.TrimSpace(in.DiscountCode) != "" {
		discount, _, err = s.validateDiscount(ctx, r, in.DiscountCode, Subtotal(lines))
		if err != nil {
			return nil, err
		}
	}

	sum := ComputeTotals(lines, method, taxPercent, discount)
	sum.Country = country
	sum.Currency = s.currency()
	return &sum, nil
}
