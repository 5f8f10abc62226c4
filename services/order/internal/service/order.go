package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	dbpkg "github.com/Skotchmaster/bookstore/pkg/db"
	"github.com/Skotchmaster/bookstore/pkg/logging"
	"github.com/Skotchmaster/bookstore/pkg/util"
	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"github.com/Skotchmaster/bookstore/services/order/internal/repo"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

const orderNumberAttempts = 5

type OrderService struct {
	Runtime
	Repo           *repo.GormRepo
	Pricing        *PricingService
	Library        *LibraryService
	NewOrderNumber func() string
}

// NewOrderNumber returns "ORD-" followed by a ULID: sortable by creation
// time, random in the low bits.
func NewOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}

type CreateOrderInput struct {
	ShippingAddress  models.Address
	BillingAddress   models.Address
	ShippingMethodID *uint
	DiscountCode     string
	PaymentMethod    string
}

type TransitionInput struct {
	To             string
	Note           string
	TrackingNumber string
	ActorID        *uint
}

type NoteInput struct {
	Note            string
	CustomerVisible bool
	ActorID         *uint
}

func (s *OrderService) orderNumber() string {
	if s.NewOrderNumber != nil {
		return s.NewOrderNumber()
	}
	return NewOrderNumber()
}

func normalizeAddress(a models.Address) models.Address {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Email = strings.TrimSpace(a.Email)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	return a
}

func loadOrder(ctx context.Context, r *repo.GormRepo, id uint) (*models.Order, error) {
	o, err := r.OrderByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	return o, nil
}

// CreateOrder turns the caller's cart into a pending order. Totals are
// recomputed from the live catalog and the cart itself is left in place.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, in CreateOrderInput) (*models.Order, error) {
	order, err := s.createOrder(ctx, userID, in)
	if err != nil {
		checkoutFailures.WithLabelValues(checkoutFailureReason(err)).Inc()
		return nil, err
	}

	ordersCreated.Inc()
	orderValue.Observe(order.TotalAmount)
	s.publish(ctx, TopicOrders, strconv.FormatUint(uint64(order.ID), 10), OrderCreated{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		CreatedAt:   order.CreatedAt,
	})
	s.email(ctx, order.ContactEmail(), EmailOrderConfirmation, map[string]string{
		"customer_name": order.ShippingAddress.FullName,
		"order_number":  order.OrderNumber,
		"total":         FormatMoney(order.TotalAmount, order.Currency),
		"item_count":    strconv.Itoa(len(order.Items)),
	})
	return order, nil
}

func checkoutFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrStockExceeded):
		return "stock"
	case errors.Is(err, ErrDiscountInvalid):
		return "discount"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBusinessRule):
		return "validation"
	default:
		return "internal"
	}
}

func (s *OrderService) createOrder(ctx context.Context, userID uint, in CreateOrderInput) (*models.Order, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user required", ErrValidation)
	}
	ship := normalizeAddress(in.ShippingAddress)
	bill := normalizeAddress(in.BillingAddress)
	if bill.IsZero() {
		bill = ship
	}
	if ship.Country == "" {
		return nil, fmt.Errorf("%w: shipping_address.country required", ErrValidation)
	}
	if ship.Email == "" && bill.Email == "" {
		return nil, fmt.Errorf("%w: contact email required", ErrValidation)
	}
	method := strings.TrimSpace(in.PaymentMethod)

	var order *models.Order
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		sum, err := s.Pricing.summarize(ctx, r, userID, CheckoutInput{
			Country:          ship.Country,
			ShippingMethodID: in.ShippingMethodID,
			DiscountCode:     in.DiscountCode,
		})
		if err != nil {
			return err
		}
		if sum.CartType != CartTypeEbook && (ship.FullName == "" || ship.Line1 == "" || ship.City == "") {
			return fmt.Errorf("%w: shipping_address needs full_name, line1 and city for physical items", ErrValidation)
		}

		if method != "" {
			gw, err := r.GatewayByID(ctx, method)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrGatewayNotFound, method)
			}
			if err != nil {
				return err
			}
			if !gw.IsActive {
				return fmt.Errorf("%w: %s", ErrGatewayInactive, method)
			}
		}

		items := make([]models.OrderItem, 0, len(sum.Lines))
		for _, l := range sum.Lines {
			if l.ReservesStock() {
				if err := reserveStock(ctx, r, l); err != nil {
					return err
				}
			}
			price := Round2(l.Price)
			items = append(items, models.OrderItem{
				BookID:     l.BookID,
				Title:      l.Title,
				AuthorName: l.AuthorName,
				Price:      price,
				Quantity:   l.Quantity,
				TotalPrice: Round2(price * float64(l.Quantity)),
				Format:     l.Format,
			})
		}

		o := &models.Order{
			UserID:          userID,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			PaymentMethod:   method,
			Subtotal:        sum.Subtotal,
			TaxAmount:       sum.TaxAmount,
			ShippingAmount:  sum.ShippingAmount,
			DiscountAmount:  sum.DiscountAmount,
			TotalAmount:     sum.TotalAmount,
			Currency:        sum.Currency,
			DiscountCode:    sum.DiscountCode,
			ShippingMethod:  sum.ShippingMethod,
			CartType:        sum.CartType,
			ShippingAddress: ship,
			BillingAddress:  bill,
			Items:           items,
		}
		if err := s.insertWithUniqueNumber(ctx, r, o); err != nil {
			return err
		}

		if sum.discount != nil && sum.DiscountAmount > 0 {
			ok, err := r.IncrementDiscountUsage(ctx, sum.discount.ID)
			if err != nil {
				return fmt.Errorf("increment usage of %q: %w", sum.DiscountCode, err)
			}
			if !ok {
				return fmt.Errorf("%w: code %q usage limit reached", ErrDiscountInvalid, sum.DiscountCode)
			}
		}

		uid := userID
		if err := r.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:   o.ID,
			Status:    models.OrderStatusPending,
			Notes:     "order created",
			CreatedBy: &uid,
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func reserveStock(ctx context.Context, r *repo.GormRepo, l models.CartLine) error {
	ok, err := r.DecrementStock(ctx, l.BookID, l.Quantity)
	if err != nil {
		return fmt.Errorf("decrement stock of book %d: %w", l.BookID, err)
	}
	if ok {
		return nil
	}
	available := l.StockQuantity
	if b, err := r.BookByID(ctx, l.BookID); err == nil {
		available = b.StockQuantity
	}
	return &StockExceededError{BookID: l.BookID, Title: l.Title, Requested: l.Quantity, Available: available}
}

// insertWithUniqueNumber retries inside a savepoint when the generated
// number is already taken.
func (s *OrderService) insertWithUniqueNumber(ctx context.Context, r *repo.GormRepo, o *models.Order) error {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		o.OrderNumber = s.orderNumber()
		err := r.Transaction(ctx, func(sp *repo.GormRepo) error {
			return sp.CreateOrder(ctx, o)
		})
		if err == nil {
			return nil
		}
		if !dbpkg.IsUniqueViolation(err) {
			return fmt.Errorf("insert order: %w", err)
		}
		logging.FromContext(ctx).Warn("order_number_collision", "order_number", o.OrderNumber, "attempt", attempt+1)
		o.ID = 0
		for i := range o.Items {
			o.Items[i].ID = 0
			o.Items[i].OrderID = 0
		}
	}
	return fmt.Errorf("%w: could not allocate a unique order number", ErrConflict)
}

func (s *OrderService) GetOrder(ctx context.Context, orderID, userID uint, admin bool) (*models.Order, error) {
	o, err := loadOrder(ctx, s.Repo, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
	}
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uint, page, size int) ([]models.Order, int64, error) {
	offset, limit := util.Calculate(page, size)
	return s.Repo.ListOrders(ctx, userID, limit, offset)
}

// TransitionStatus validates and applies one status change. The status
// update, its history row and any library grant commit together.
func (s *OrderService) TransitionStatus(ctx context.Context, orderID uint, in TransitionInput) (*models.Order, error) {
	var (
		order *models.Order
		from  string
		grant *libraryGrant
	)
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		from = o.Status
		order, grant, err = s.applyTransition(ctx, r, o, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, order, from, in)
	if grant != nil && s.Library != nil {
		s.Library.announce(ctx, *grant)
	}
	return order, nil
}

// CancelByCustomer lets the owner cancel an order that has not been paid.
func (s *OrderService) CancelByCustomer(ctx context.Context, orderID, userID uint, reason string) (*models.Order, error) {
	o, err := s.GetOrder(ctx, orderID, userID, false)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == models.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: paid orders are cancelled by support", ErrConflict)
	}
	switch o.Status {
	case models.OrderStatusPending, models.OrderStatusPaymentFailed, models.OrderStatusConfirmed:
	default:
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, models.OrderStatusCancelled)
	}
	uid := userID
	return s.TransitionStatus(ctx, orderID, TransitionInput{
		To:      models.OrderStatusCancelled,
		Note:    reason,
		ActorID: &uid,
	})
}

func (s *OrderService) applyTransition(ctx context.Context, r *repo.GormRepo, o *models.Order, in TransitionInput) (*models.Order, *libraryGrant, error) {
	t, err := CheckTransition(o.Status, in.To, in.Note)
	if err != nil {
		return nil, nil, err
	}
	note := SanitizeNote(in.Note)
	if t.RequiresNote && note == "" {
		return nil, nil, fmt.Errorf("%w: %s -> %s needs a reason", ErrNoteRequired, t.From, t.To)
	}

	now := s.now()
	extra := map[string]any{}
	switch t.To {
	case models.OrderStatusPaid:
		extra["paid_at"] = now
		extra["payment_status"] = models.PaymentStatusPaid
	case models.OrderStatusShipped:
		extra["shipped_at"] = now
		if tn := strings.TrimSpace(in.TrackingNumber); tn != "" {
			extra["tracking_number"] = tn
		}
	case models.OrderStatusDelivered:
		extra["delivered_at"] = now
	case models.OrderStatusCancelled:
		extra["cancelled_at"] = now
	case models.OrderStatusRefunded:
		if o.PaymentStatus == models.PaymentStatusPaid {
			extra["payment_status"] = models.PaymentStatusRefunded
		}
	}

	ok, err := r.UpdateOrderStatus(ctx, o.ID, t.From, t.To, extra)
	if err != nil {
		return nil, nil, fmt.Errorf("update status of order %d: %w", o.ID, err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: order %d", ErrStaleOrder, o.ID)
	}

	if err := r.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:   o.ID,
		Status:    t.To,
		Notes:     note,
		CreatedBy: in.ActorID,
		CreatedAt: now,
	}); err != nil {
		return nil, nil, fmt.Errorf("append history of order %d: %w", o.ID, err)
	}

	updated, err := loadOrder(ctx, r, o.ID)
	if err != nil {
		return nil, nil, err
	}

	var grant *libraryGrant
	if fulfills(t.To) && updated.PaymentStatus == models.PaymentStatusPaid && s.Library != nil {
		grant, err = s.Library.syncOrder(ctx, r, updated)
		if err != nil {
			return nil, nil, err
		}
	}
	return updated, grant, nil
}

func (s *OrderService) afterTransition(ctx context.Context, o *models.Order, from string, in TransitionInput) {
	orderTransitions.WithLabelValues(from, o.Status).Inc()
	s.publish(ctx, TopicOrders, strconv.FormatUint(uint64(o.ID), 10), OrderStatusChanged{
		OrderID: o.ID,
		UserID:  o.UserID,
		From:    from,
		To:      o.Status,
		ActorID: in.ActorID,
	})
	s.email(ctx, o.ContactEmail(), EmailOrderStatusChanged, map[string]string{
		"order_number":    o.OrderNumber,
		"status":          o.Status,
		"previous_status": from,
		"note":            SanitizeNote(in.Note),
		"tracking_number": o.TrackingNumber,
	})
}

func (s *OrderService) AddNote(ctx context.Context, orderID uint, in NoteInput) (*models.OrderNote, error) {
	note := SanitizeNote(in.Note)
	if note == "" {
		return nil, fmt.Errorf("%w: note required", ErrValidation)
	}
	if _, err := loadOrder(ctx, s.Repo, orderID); err != nil {
		return nil, err
	}
	n := &models.OrderNote{
		OrderID:           orderID,
		Note:              note,
		IsCustomerVisible: in.CustomerVisible,
		CreatedBy:         in.ActorID,
	}
	if err := s.Repo.AddNote(ctx, n); err != nil {
		return nil, fmt.Errorf("add note to order %d: %w", orderID, err)
	}
	return n, nil
}

func (s *OrderService) History(ctx context.Context, orderID uint) ([]models.OrderStatusHistory, error) {
	if _, err := loadOrder(ctx, s.Repo, orderID); err != nil {
		return nil, err
	}
	return s.Repo.History(ctx, orderID)
}

func (s *OrderService) Notes(ctx context.Context, orderID uint, customerOnly bool) ([]models.OrderNote, error) {
	if _, err := loadOrder(ctx, s.Repo, orderID); err != nil {
		return nil, err
	}
	return s.Repo.Notes(ctx, orderID, customerOnly)
}
