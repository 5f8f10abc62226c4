package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyWith(t *testing.T, f *fixture, orderID uint, status string) int {
	t.Helper()
	rows, err := f.svcs.Orders.History(context.Background(), orderID)
	require.NoError(t, err)
	n := 0
	for _, r := range rows {
		if r.Status == status {
			n++
		}
	}
	return n
}

func TestCreateOrder_NigerianEbook(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.addTaxRate(t, "NG", 7.5)
	o := f.ebookOrder(t, 11, 2000)

	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.Equal(t, models.PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, 2000.0, o.Subtotal)
	assert.Equal(t, 150.0, o.TaxAmount)
	assert.Equal(t, 0.0, o.ShippingAmount)
	assert.Equal(t, 2150.0, o.TotalAmount)
	assert.Equal(t, "NGN", o.Currency)
	assert.Equal(t, CartTypeEbook, o.CartType)
	assert.Regexp(t, `^ORD-[0-9A-Z]{26}$`, o.OrderNumber)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2000.0, o.Items[0].TotalPrice)
	assert.Equal(t, o.ShippingAddress, o.BillingAddress, "billing defaults to shipping")

	assert.Equal(t, int64(1), f.cartCount(t, 11), "placing an order keeps the cart")
	assert.Equal(t, 1, historyWith(t, f, o.ID, models.OrderStatusPending))
	assert.Contains(t, f.events.Topics(), TopicOrders)

	got, err := f.svcs.Orders.GetOrder(ctx, o.ID, 11, false)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)

	_, err = f.svcs.Orders.GetOrder(ctx, o.ID, 12, false)
	assert.ErrorIs(t, err, ErrOrderNotFound, "other users cannot see the order")

	_, err = f.svcs.Orders.GetOrder(ctx, o.ID, 12, true)
	assert.NoError(t, err)
}

func TestCreateOrder_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	b := f.addBook(t, models.Book{Title: "Purple Hibiscus", Price: 3000, Format: models.FormatPhysical})
	f.addShipping(t, models.ShippingMethod{Name: "Standard", BaseCost: 1500})
	f.addToCart(t, 21, b.ID, 1, models.FormatPhysical)

	tests := []struct {
		name    string
		in      CreateOrderInput
		wantErr error
	}{
		{name: "no country", in: CreateOrderInput{ShippingAddress: models.Address{Email: "a@b.c"}}, wantErr: ErrValidation},
		{name: "no email", in: CreateOrderInput{ShippingAddress: models.Address{Country: "NG", FullName: "A", Line1: "x", City: "y"}}, wantErr: ErrValidation},
		{name: "physical without street", in: CreateOrderInput{ShippingAddress: models.Address{Country: "NG", Email: "a@b.c"}}, wantErr: ErrValidation},
		{name: "unknown gateway", in: CreateOrderInput{ShippingAddress: shipTo("NG"), PaymentMethod: "paypal"}, wantErr: ErrGatewayNotFound},
	}

	for _, tt := range tests {
		_, err := f.svcs.Orders.CreateOrder(ctx, 21, tt.in)
		assert.ErrorIs(t, err, tt.wantErr, tt.name)
	}

	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svcs.Orders.CreateOrder(context.Background(), 31, CreateOrderInput{ShippingAddress: shipTo("NG")})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrder_StockIsAllOrNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.addShipping(t, models.ShippingMethod{Name: "Standard", BaseCost: 1500})
	b := f.addBook(t, models.Book{Title: "Arrow of God", Price: 2500, Format: models.FormatPhysical, StockQuantity: 1, LowStockThreshold: 1})
	f.addToCart(t, 41, b.ID, 2, models.FormatPhysical)

	_, err := f.svcs.Orders.CreateOrder(ctx, 41, CreateOrderInput{ShippingAddress: shipTo("NG")})
	require.Error(t, err)

	var stock *StockExceededError
	require.True(t, errors.As(err, &stock))
	assert.Equal(t, b.ID, stock.BookID)
	assert.Equal(t, uint(2), stock.Requested)
	assert.Equal(t, 1, stock.Available)
	assert.ErrorIs(t, err, ErrBusinessRule)

	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
	reloaded, err := f.repo.BookByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.StockQuantity)

	require.NoError(t, f.db.Model(&models.CartItem{}).Where("user_id = ?", 41).Update("quantity", 1).Error)
	o, err := f.svcs.Orders.CreateOrder(ctx, 41, CreateOrderInput{ShippingAddress: shipTo("NG")})
	require.NoError(t, err)
	assert.Equal(t, 4000.0, o.TotalAmount)

	reloaded, err = f.repo.BookByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.StockQuantity)
}

func TestCreateOrder_UntrackedStockIsNotDecremented(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.addShipping(t, models.ShippingMethod{Name: "Standard", BaseCost: 1500})
	b := f.addBook(t, models.Book{Title: "No Longer at Ease", Price: 2000, Format: models.FormatPhysical, StockQuantity: 0})
	f.addToCart(t, 42, b.ID, 3, models.FormatPhysical)

	_, err := f.svcs.Orders.CreateOrder(ctx, 42, CreateOrderInput{ShippingAddress: shipTo("NG")})
	require.NoError(t, err)
}

func TestCreateOrder_DiscountUsage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	limit := 1
	require.NoError(t, f.db.Create(&models.Discount{Code: "ONCE", Type: models.DiscountFixed, Value: 500, IsActive: true, UsageLimit: &limit}).Error)

	b := f.addBook(t, models.Book{Title: "Stay With Me", Price: 2000})
	f.addToCart(t, 51, b.ID, 1, models.FormatEbook)
	o, err := f.svcs.Orders.CreateOrder(ctx, 51, CreateOrderInput{ShippingAddress: shipTo("NG"), DiscountCode: "once"})
	require.NoError(t, err)
	assert.Equal(t, 500.0, o.DiscountAmount)
	assert.Equal(t, 1500.0, o.TotalAmount)
	assert.Equal(t, "ONCE", o.DiscountCode)

	f.addToCart(t, 52, b.ID, 1, models.FormatEbook)
	_, err = f.svcs.Orders.CreateOrder(ctx, 52, CreateOrderInput{ShippingAddress: shipTo("NG"), DiscountCode: "ONCE"})
	assert.ErrorIs(t, err, ErrDiscountInvalid)
}

func TestCreateOrder_RetriesOrderNumberCollision(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	numbers := []string{"ORD-FIXED", "ORD-FIXED", "ORD-SECOND"}
	f.svcs.Orders.NewOrderNumber = func() string {
		n := numbers[0]
		numbers = numbers[1:]
		return n
	}

	first := f.ebookOrder(t, 61, 1000)
	assert.Equal(t, "ORD-FIXED", first.OrderNumber)

	second := f.ebookOrder(t, 62, 1000)
	assert.Equal(t, "ORD-SECOND", second.OrderNumber)
	require.Len(t, second.Items, 1)

	got, err := f.svcs.Orders.GetOrder(ctx, second.ID, 62, false)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
}

func TestTransitionStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	admin := uint(900)

	o := f.ebookOrder(t, 71, 1000)

	_, err := f.svcs.Orders.TransitionStatus(ctx, o.ID, TransitionInput{To: models.OrderStatusDelivered, ActorID: &admin})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.svcs.Orders.TransitionStatus(ctx, o.ID, TransitionInput{To: models.OrderStatusCancelled, ActorID: &admin})
	assert.ErrorIs(t, err, ErrNoteRequired)

	_, err = f.svcs.Orders.TransitionStatus(ctx, o.ID, TransitionInput{To: models.OrderStatusCancelled, Note: "<b></b>", ActorID: &admin})
	assert.ErrorIs(t, err, ErrNoteRequired, "markup-only notes are empty")

	unchanged, err := f.svcs.Orders.GetOrder(ctx, o.ID, 0, true)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, unchanged.Status)
	assert.Zero(t, historyWith(t, f, o.ID, models.OrderStatusCancelled))

	cancelled, err := f.svcs.Orders.TransitionStatus(ctx, o.ID, TransitionInput{
		To:      models.OrderStatusCancelled,
		Note:    "customer <script>x</script>asked",
		ActorID: &admin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.True(t, cancelled.CancelledAt.Equal(testNow))

	assert.Equal(t, 1, historyWith(t, f, o.ID, models.OrderStatusCancelled))
	rows, err := f.svcs.Orders.History(ctx, o.ID)
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, "customer asked", last.Notes)
	require.NotNil(t, last.CreatedBy)
	assert.Equal(t, admin, *last.CreatedBy)
}

func TestTransitionStatus_PaidGrantsLibrary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	o := f.ebookOrder(t, 81, 1500)

	for _, to := range []string{models.OrderStatusConfirmed, models.OrderStatusPaid} {
		_, err := f.svcs.Orders.TransitionStatus(ctx, o.ID, TransitionInput{To: to})
		require.NoError(t, err, to)
	}

	paid, err := f.svcs.Orders.GetOrder(ctx, o.ID, 81, false)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, int64(1), f.libraryCount(t, 81))
	assert.Contains(t, f.events.Topics(), TopicLibrary)
}

func TestTransitionStatus_DeliveredNeedsPayment(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	walk := func(orderID uint, path ...string) {
		t.Helper()
		for _, to := range path {
			_, err := f.svcs.Orders.TransitionStatus(ctx, orderID, TransitionInput{To: to, Note: "handed to courier"})
			require.NoError(t, err, to)
		}
	}

	unpaid := f.ebookOrder(t, 85, 1200)
	walk(unpaid.ID, models.OrderStatusConfirmed, models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered)

	got, err := f.svcs.Orders.GetOrder(ctx, unpaid.ID, 85, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, got.Status)
	assert.Equal(t, models.PaymentStatusPending, got.PaymentStatus)
	assert.Zero(t, f.libraryCount(t, 85), "delivery alone grants nothing")

	_, err = f.svcs.Library.SyncOrderToLibrary(ctx, unpaid.ID, 85)
	assert.ErrorIs(t, err, ErrOrderNotPaid)

	paid := f.ebookOrder(t, 86, 1200)
	walk(paid.ID, models.OrderStatusConfirmed, models.OrderStatusPaid)
	require.Equal(t, int64(1), f.libraryCount(t, 86))
	walk(paid.ID, models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered)
	assert.Equal(t, int64(1), f.libraryCount(t, 86))
}

func TestTransitionStatus_ShippedRecordsTracking(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	o := f.ebookOrder(t, 82, 1500)
	for _, to := range []string{models.OrderStatusConfirmed, models.OrderStatusProcessing} {
		_, err := f.svcs.Orders.TransitionStatus(ctx, o.ID, TransitionInput{To: to})
		require.NoError(t, err, to)
	}

	shipped, err := f.svcs.Orders.TransitionStatus(ctx, o.ID, TransitionInput{
		To:             models.OrderStatusShipped,
		Note:           "handed to courier",
		TrackingNumber: "DHL-123",
	})
	require.NoError(t, err)
	assert.Equal(t, "DHL-123", shipped.TrackingNumber)
	assert.NotNil(t, shipped.ShippedAt)
}

func TestCancelByCustomer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	o := f.ebookOrder(t, 91, 1000)

	_, err := f.svcs.Orders.CancelByCustomer(ctx, o.ID, 92, "not mine")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svcs.Orders.CancelByCustomer(ctx, o.ID, 91, "")
	assert.ErrorIs(t, err, ErrNoteRequired)

	cancelled, err := f.svcs.Orders.CancelByCustomer(ctx, o.ID, 91, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
}

func TestNotes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	o := f.ebookOrder(t, 95, 1000)

	_, err := f.svcs.Orders.AddNote(ctx, o.ID, NoteInput{Note: "internal only"})
	require.NoError(t, err)
	_, err = f.svcs.Orders.AddNote(ctx, o.ID, NoteInput{Note: "your order is on its way", CustomerVisible: true})
	require.NoError(t, err)
	_, err = f.svcs.Orders.AddNote(ctx, o.ID, NoteInput{Note: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	all, err := f.svcs.Orders.Notes(ctx, o.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	visible, err := f.svcs.Orders.Notes(ctx, o.ID, true)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "your order is on its way", visible[0].Note)
}

func TestListOrders(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.ebookOrder(t, 97, 1000)
	f.ebookOrder(t, 97, 2000)
	f.ebookOrder(t, 98, 3000)

	orders, total, err := f.svcs.Orders.ListOrders(ctx, 97, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 1)
}
