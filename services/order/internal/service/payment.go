package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	dbpkg "github.com/Skotchmaster/bookstore/pkg/db"
	"github.com/Skotchmaster/bookstore/pkg/logging"
	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"github.com/Skotchmaster/bookstore/services/order/internal/repo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentService struct {
	Runtime
	Repo    *repo.GormRepo
	Orders  *OrderService
	Library *LibraryService
	Cart    *CartService
}

type CreatePaymentInput struct {
	OrderID       uint
	Gateway       string
	UserID        uint
	Amount        float64
	Currency      string
	TransactionID string
}

// PaymentOutcome is what a resolved payment did to its order.
type PaymentOutcome struct {
	Transaction *models.PaymentTransaction `json:"transaction"`
	Order       *models.Order              `json:"order"`
	CartCleared bool                       `json:"cart_cleared"`
}

var (
	txStatuses    = []string{models.TxStatusSuccess, models.TxStatusFailed, models.TxStatusCancelled}
	orderPayments = []string{models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusFailed, models.PaymentStatusRefunded}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func NewTransactionID() string {
	return "TX-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func loadTransaction(ctx context.Context, r *repo.GormRepo, transactionID string) (*models.PaymentTransaction, error) {
	t, err := r.PaymentTransactionByTxID(ctx, transactionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction %s: %w", transactionID, err)
	}
	return t, nil
}

// CreatePaymentTransaction records the start of a payment attempt.
func (s *PaymentService) CreatePaymentTransaction(ctx context.Context, in CreatePaymentInput) (*models.PaymentTransaction, error) {
	gatewayID := strings.TrimSpace(in.Gateway)
	if in.OrderID == 0 || gatewayID == "" {
		return nil, fmt.Errorf("%w: order_id and gateway required", ErrValidation)
	}

	o, err := loadOrder(ctx, s.Repo, in.OrderID)
	if err != nil {
		return nil, err
	}
	if in.UserID != 0 && o.UserID != in.UserID {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, in.OrderID)
	}
	if o.PaymentStatus == models.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: order %s is already paid", ErrConflict, o.OrderNumber)
	}

	gw, err := s.Repo.GatewayByID(ctx, gatewayID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrGatewayNotFound, gatewayID)
	}
	if err != nil {
		return nil, err
	}
	if !gw.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrGatewayInactive, gatewayID)
	}

	amount := Round2(in.Amount)
	if amount == 0 {
		amount = o.TotalAmount
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = o.Currency
	}
	txID := strings.TrimSpace(in.TransactionID)
	if txID == "" {
		txID = NewTransactionID()
	}

	t := &models.PaymentTransaction{
		TransactionID: txID,
		OrderID:       o.ID,
		UserID:        o.UserID,
		GatewayType:   gw.GatewayID,
		Amount:        amount,
		Currency:      currency,
		Status:        models.TxStatusPending,
	}
	if err := s.Repo.CreatePaymentTransaction(ctx, t); err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: transaction %s already exists", ErrConflict, txID)
		}
		return nil, fmt.Errorf("create transaction for order %d: %w", o.ID, err)
	}
	if _, err := s.Repo.UpdateOrderFields(ctx, o.ID, map[string]any{
		"payment_method":         gw.GatewayID,
		"payment_transaction_id": txID,
	}); err != nil {
		return nil, fmt.Errorf("link transaction to order %d: %w", o.ID, err)
	}

	s.announcePayment(ctx, t)
	return t, nil
}

// gatewayOwned loads a transaction that callers outside the bank transfer
// review may settle directly.
func gatewayOwned(ctx context.Context, r *repo.GormRepo, transactionID string) error {
	t, err := loadTransaction(ctx, r, transactionID)
	if err != nil {
		return err
	}
	if t.GatewayType == models.GatewayBankTransfer {
		return fmt.Errorf("%w: %s", ErrTransferSettled, transactionID)
	}
	return nil
}

// UpdatePaymentStatus stores what the gateway reported. It does not touch
// the order; see UpdateOrderPaymentStatus.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, transactionID, status string, gatewayResponse json.RawMessage) (*models.PaymentTransaction, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !oneOf(status, txStatuses) {
		return nil, fmt.Errorf("%w: transaction status must be one of %v", ErrValidation, txStatuses)
	}

	var t *models.PaymentTransaction
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		if err := gatewayOwned(ctx, r, transactionID); err != nil {
			return err
		}
		var err error
		t, err = s.setTransactionStatus(ctx, r, transactionID, status, gatewayResponse)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announcePayment(ctx, t)
	return t, nil
}

func (s *PaymentService) setTransactionStatus(ctx context.Context, r *repo.GormRepo, transactionID, status string, response json.RawMessage) (*models.PaymentTransaction, error) {
	current, err := loadTransaction(ctx, r, transactionID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.TxStatusSuccess && status != models.TxStatusSuccess {
		return nil, fmt.Errorf("%w: transaction %s already succeeded", ErrConflict, transactionID)
	}
	if status == models.TxStatusSuccess && (current.Status == models.TxStatusFailed || current.Status == models.TxStatusCancelled) {
		return nil, fmt.Errorf("%w: transaction %s is already %s", ErrConflict, transactionID, current.Status)
	}
	if _, err := r.UpdatePaymentTransaction(ctx, transactionID, status, string(response)); err != nil {
		return nil, fmt.Errorf("update transaction %s: %w", transactionID, err)
	}
	return loadTransaction(ctx, r, transactionID)
}

// UpdateOrderPaymentStatus sets the order's own payment status, the only
// one fulfillment decisions look at.
func (s *PaymentService) UpdateOrderPaymentStatus(ctx context.Context, orderID uint, paymentStatus, transactionID string) (*models.Order, error) {
	paymentStatus = strings.ToLower(strings.TrimSpace(paymentStatus))
	if !oneOf(paymentStatus, orderPayments) {
		return nil, fmt.Errorf("%w: payment status must be one of %v", ErrValidation, orderPayments)
	}

	var o *models.Order
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		var err error
		o, err = s.setOrderPaymentStatus(ctx, r, orderID, paymentStatus, transactionID)
		return err
	})
	return o, err
}

func (s *PaymentService) setOrderPaymentStatus(ctx context.Context, r *repo.GormRepo, orderID uint, paymentStatus, transactionID string) (*models.Order, error) {
	o, err := loadOrder(ctx, r, orderID)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{"payment_status": paymentStatus}
	if transactionID = strings.TrimSpace(transactionID); transactionID != "" {
		fields["payment_transaction_id"] = transactionID
	}
	if paymentStatus == models.PaymentStatusPaid && o.PaidAt == nil {
		fields["paid_at"] = s.now()
	}
	if _, err := r.UpdateOrderFields(ctx, orderID, fields); err != nil {
		return nil, fmt.Errorf("update payment status of order %d: %w", orderID, err)
	}
	return loadOrder(ctx, r, orderID)
}

// ConfirmPayment resolves a transaction as successful and cascades: the
// order becomes paid and confirmed and its books are granted. Bank transfer
// transactions are settled only through UpdateBankTransferStatus.
func (s *PaymentService) ConfirmPayment(ctx context.Context, transactionID string, response json.RawMessage, actorID *uint) (*PaymentOutcome, error) {
	var (
		out   *PaymentOutcome
		from  string
		grant *libraryGrant
	)
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		if err := gatewayOwned(ctx, r, transactionID); err != nil {
			return err
		}
		var err error
		out, from, grant, err = s.confirmInTx(ctx, r, transactionID, response, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterConfirm(ctx, out, from, grant, actorID)
	return out, nil
}

func (s *PaymentService) confirmInTx(ctx context.Context, r *repo.GormRepo, transactionID string, response json.RawMessage, actorID *uint) (*PaymentOutcome, string, *libraryGrant, error) {
	t, err := s.setTransactionStatus(ctx, r, transactionID, models.TxStatusSuccess, response)
	if err != nil {
		return nil, "", nil, err
	}
	o, err := s.setOrderPaymentStatus(ctx, r, t.OrderID, models.PaymentStatusPaid, t.TransactionID)
	if err != nil {
		return nil, "", nil, err
	}

	from := o.Status
	var grant *libraryGrant
	if _, err := CheckTransition(o.Status, models.OrderStatusConfirmed, ""); err == nil {
		o, grant, err = s.Orders.applyTransition(ctx, r, o, TransitionInput{
			To:      models.OrderStatusConfirmed,
			Note:    "payment confirmed: " + t.TransactionID,
			ActorID: actorID,
		})
		if err != nil {
			return nil, "", nil, err
		}
	}

	if grant == nil && o.Status != models.OrderStatusCancelled && o.Status != models.OrderStatusRefunded {
		grant, err = s.Library.syncOrder(ctx, r, o)
		if err != nil {
			return nil, "", nil, err
		}
	}
	return &PaymentOutcome{Transaction: t, Order: o}, from, grant, nil
}

func (s *PaymentService) afterConfirm(ctx context.Context, out *PaymentOutcome, from string, grant *libraryGrant, actorID *uint) {
	s.announcePayment(ctx, out.Transaction)
	if from != out.Order.Status {
		s.Orders.afterTransition(ctx, out.Order, from, TransitionInput{To: out.Order.Status, ActorID: actorID})
	}
	if grant != nil {
		s.Library.announce(ctx, *grant)
	}
	s.email(ctx, out.Order.ContactEmail(), EmailPaymentConfirmed, map[string]string{
		"order_number":   out.Order.OrderNumber,
		"transaction_id": out.Transaction.TransactionID,
		"amount":         FormatMoney(out.Transaction.Amount, out.Transaction.Currency),
	})

	if s.Cart != nil {
		cleared, err := s.Cart.ClearCartAfterPaymentSuccess(ctx, out.Order.UserID, out.Order.ID)
		if err != nil {
			logging.FromContext(ctx).Warn("clear_cart_after_payment_error", "order_id", out.Order.ID, "error", err)
		}
		out.CartCleared = cleared
	}
}

// FailPayment resolves a transaction as failed. An order that another
// attempt already paid keeps its paid status.
func (s *PaymentService) FailPayment(ctx context.Context, transactionID string, response json.RawMessage, actorID *uint) (*PaymentOutcome, error) {
	var (
		out  *PaymentOutcome
		from string
	)
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		if err := gatewayOwned(ctx, r, transactionID); err != nil {
			return err
		}
		var err error
		out, from, err = s.failInTx(ctx, r, transactionID, models.TxStatusFailed, response, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.announcePayment(ctx, out.Transaction)
	if from != out.Order.Status {
		s.Orders.afterTransition(ctx, out.Order, from, TransitionInput{To: out.Order.Status, ActorID: actorID})
	}
	s.email(ctx, out.Order.ContactEmail(), EmailPaymentFailed, map[string]string{
		"order_number":   out.Order.OrderNumber,
		"transaction_id": out.Transaction.TransactionID,
	})
	return out, nil
}

func (s *PaymentService) failInTx(ctx context.Context, r *repo.GormRepo, transactionID, txStatus string, response json.RawMessage, actorID *uint) (*PaymentOutcome, string, error) {
	t, err := s.setTransactionStatus(ctx, r, transactionID, txStatus, response)
	if err != nil {
		return nil, "", err
	}
	o, err := loadOrder(ctx, r, t.OrderID)
	if err != nil {
		return nil, "", err
	}
	from := o.Status
	if o.PaymentStatus == models.PaymentStatusPaid {
		return &PaymentOutcome{Transaction: t, Order: o}, from, nil
	}

	if o, err = s.setOrderPaymentStatus(ctx, r, o.ID, models.PaymentStatusFailed, t.TransactionID); err != nil {
		return nil, "", err
	}
	if _, err := CheckTransition(o.Status, models.OrderStatusPaymentFailed, ""); err == nil {
		if o, _, err = s.Orders.applyTransition(ctx, r, o, TransitionInput{
			To:      models.OrderStatusPaymentFailed,
			Note:    "payment failed: " + t.TransactionID,
			ActorID: actorID,
		}); err != nil {
			return nil, "", err
		}
	}
	return &PaymentOutcome{Transaction: t, Order: o}, from, nil
}

// ActiveGateways lists the payment methods a customer can choose from.
func (s *PaymentService) ActiveGateways(ctx context.Context) ([]models.PaymentGateway, error) {
	return s.Repo.ActiveGateways(ctx)
}

func (s *PaymentService) PaymentsForOrder(ctx context.Context, orderID uint) ([]models.PaymentTransaction, error) {
	if _, err := loadOrder(ctx, s.Repo, orderID); err != nil {
		return nil, err
	}
	return s.Repo.PaymentsForOrder(ctx, orderID)
}

func (s *PaymentService) announcePayment(ctx context.Context, t *models.PaymentTransaction) {
	paymentUpdates.WithLabelValues(t.GatewayType, t.Status).Inc()
	s.publish(ctx, TopicPayments, strconv.FormatUint(uint64(t.OrderID), 10), PaymentUpdated{
		TransactionID: t.TransactionID,
		OrderID:       t.OrderID,
		Gateway:       t.GatewayType,
		Status:        t.Status,
		Amount:        t.Amount,
	})
}
