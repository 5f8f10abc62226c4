package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/bookstore/pkg/events"
	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"github.com/Skotchmaster/bookstore/services/order/internal/repo"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type memProofs struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memProofs) Save(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[name] = data
	return "mem://" + name, nil
}

type fixture struct {
	db     *gorm.DB
	repo   *repo.GormRepo
	svcs   *Services
	events *events.Recorder
	proofs *memProofs
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repo.Migrate(db))
	require.NoError(t, repo.SeedGateways(context.Background(), db, DefaultGateways()))

	f := &fixture{
		db:     db,
		repo:   &repo.GormRepo{DB: db},
		events: &events.Recorder{},
		proofs: &memProofs{},
		now:    testNow,
	}
	rt := Runtime{Events: f.events, Clock: func() time.Time { return f.now }}
	f.svcs = NewServices(f.repo, rt, "NGN", f.proofs)
	return f
}

func (f *fixture) addBook(t *testing.T, b models.Book) models.Book {
	t.Helper()
	b.IsActive = true
	if b.Format == "" {
		b.Format = models.FormatEbook
	}
	require.NoError(t, f.db.Create(&b).Error)
	return b
}

func (f *fixture) addToCart(t *testing.T, userID, bookID uint, qty uint, format string) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.CartItem{
		UserID:   userID,
		BookID:   bookID,
		Quantity: qty,
		Format:   format,
	}).Error)
}

func (f *fixture) addTaxRate(t *testing.T, country string, rate float64) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.TaxRate{Country: country, Rate: rate, IsActive: true}).Error)
}

func (f *fixture) addShipping(t *testing.T, m models.ShippingMethod) models.ShippingMethod {
	t.Helper()
	m.IsActive = true
	require.NoError(t, f.db.Create(&m).Error)
	return m
}

func (f *fixture) addBankAccount(t *testing.T) models.BankAccount {
	t.Helper()
	a := models.BankAccount{
		BankName:      "First Bank",
		AccountNumber: "0123456789",
		AccountName:   "Bookstore Ltd",
		IsDefault:     true,
		IsActive:      true,
	}
	require.NoError(t, f.db.Create(&a).Error)
	return a
}

func (f *fixture) cartCount(t *testing.T, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func (f *fixture) libraryCount(t *testing.T, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.UserLibraryItem{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func shipTo(country string) models.Address {
	return models.Address{
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Line1:    "12 Marina Road",
		City:     "Lagos",
		Country:  country,
	}
}

// ebookOrder puts one ebook in the cart and checks it out.
func (f *fixture) ebookOrder(t *testing.T, userID uint, price float64) *models.Order {
	t.Helper()
	b := f.addBook(t, models.Book{Title: "Things Fall Apart", AuthorName: "Chinua Achebe", Price: price})
	f.addToCart(t, userID, b.ID, 1, models.FormatEbook)
	o, err := f.svcs.Orders.CreateOrder(context.Background(), userID, CreateOrderInput{ShippingAddress: shipTo("NG")})
	require.NoError(t, err)
	return o
}
