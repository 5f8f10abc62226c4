package service

import (
	"context"
	"testing"

	"github.com/Skotchmaster/bookstore/pkg/events"
	"github.com/Skotchmaster/bookstore/services/cart/internal/models"
	"github.com/Skotchmaster/bookstore/services/cart/internal/repo"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCartService(t *testing.T) (*CartService, *gorm.DB, *events.Recorder) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.Migrate(db))

	rec := &events.Recorder{}
	return &CartService{Repo: &repo.GormRepo{DB: db}, Events: rec, MaxLineQuantity: 5}, db, rec
}

func addBook(t *testing.T, db *gorm.DB, format string, price float64) models.Book {
	t.Helper()
	b := models.Book{Title: "Purple Hibiscus", Price: price, Format: format, IsActive: true}
	require.NoError(t, db.Create(&b).Error)
	return b
}

func TestAddToCart_IncrementsLine(t *testing.T) {
	t.Parallel()
	svc, db, rec := newCartService(t)
	ctx := context.Background()
	b := addBook(t, db, models.FormatPhysical, 1200)

	item, err := svc.AddToCart(ctx, AddInput{UserID: 1, BookID: b.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, uint(2), item.Quantity)
	assert.Equal(t, models.FormatPhysical, item.Format, "format defaults to the only one offered")

	item, err = svc.AddToCart(ctx, AddInput{UserID: 1, BookID: b.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, uint(3), item.Quantity)

	var rows int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "one line per (user, book)")

	lines, err := svc.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3600.0, lines[0].LineTotal)
	assert.Len(t, rec.Events(), 2)
}

func TestAddToCart_Validation(t *testing.T) {
	t.Parallel()
	svc, db, _ := newCartService(t)
	ctx := context.Background()

	ebook := addBook(t, db, models.FormatEbook, 500)
	both := addBook(t, db, models.FormatBoth, 900)
	hidden := models.Book{Title: "Withdrawn", Price: 100, Format: models.FormatEbook, IsActive: false}
	require.NoError(t, db.Create(&hidden).Error)

	tests := []struct {
		name string
		in   AddInput
		want error
	}{
		{name: "no book", in: AddInput{UserID: 1, Quantity: 1}, want: ErrValidation},
		{name: "zero quantity", in: AddInput{UserID: 1, BookID: ebook.ID}, want: ErrValidation},
		{name: "unknown book", in: AddInput{UserID: 1, BookID: 999, Quantity: 1}, want: ErrNotFound},
		{name: "inactive book", in: AddInput{UserID: 1, BookID: hidden.ID, Quantity: 1}, want: ErrNotFound},
		{name: "format not offered", in: AddInput{UserID: 1, BookID: ebook.ID, Quantity: 1, Format: "physical"}, want: ErrValidation},
		{name: "both needs a choice", in: AddInput{UserID: 1, BookID: both.ID, Quantity: 1}, want: ErrValidation},
		{name: "over the line limit", in: AddInput{UserID: 1, BookID: ebook.ID, Quantity: 6}, want: ErrValidation},
	}
	for _, tt := range tests {
		_, err := svc.AddToCart(ctx, tt.in)
		assert.ErrorIs(t, err, tt.want, tt.name)
	}

	item, err := svc.AddToCart(ctx, AddInput{UserID: 1, BookID: both.ID, Quantity: 1, Format: "Ebook"})
	require.NoError(t, err)
	assert.Equal(t, models.FormatEbook, item.Format)

	item, err = svc.AddToCart(ctx, AddInput{UserID: 1, BookID: both.ID, Quantity: 1, Format: "physical"})
	require.NoError(t, err)
	assert.Equal(t, models.FormatPhysical, item.Format, "latest format wins")
	assert.Equal(t, uint(2), item.Quantity)

	_, err = svc.AddToCart(ctx, AddInput{UserID: 1, BookID: both.ID, Quantity: 4, Format: "physical"})
	assert.ErrorIs(t, err, ErrValidation, "2 + 4 exceeds the limit of 5")
}

func TestSetQuantity(t *testing.T) {
	t.Parallel()
	svc, db, _ := newCartService(t)
	ctx := context.Background()
	b := addBook(t, db, models.FormatPhysical, 1000)

	_, err := svc.SetQuantity(ctx, 1, b.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddToCart(ctx, AddInput{UserID: 1, BookID: b.ID, Quantity: 1})
	require.NoError(t, err)

	item, err := svc.SetQuantity(ctx, 1, b.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, uint(4), item.Quantity)

	_, err = svc.SetQuantity(ctx, 1, b.ID, 9)
	assert.ErrorIs(t, err, ErrValidation)

	item, err = svc.SetQuantity(ctx, 1, b.ID, 0)
	require.NoError(t, err)
	assert.Zero(t, item.Quantity)

	lines, err := svc.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestDeleteOneAndClear(t *testing.T) {
	t.Parallel()
	svc, db, rec := newCartService(t)
	ctx := context.Background()
	a := addBook(t, db, models.FormatPhysical, 1000)
	b := addBook(t, db, models.FormatEbook, 700)

	_, err := svc.AddToCart(ctx, AddInput{UserID: 1, BookID: a.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, AddInput{UserID: 1, BookID: b.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, AddInput{UserID: 2, BookID: b.ID, Quantity: 1})
	require.NoError(t, err)

	deleted, item, err := svc.DeleteOneFromCart(ctx, a.ID, 1)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, uint(1), item.Quantity)

	deleted, _, err = svc.DeleteOneFromCart(ctx, a.ID, 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, _, err = svc.DeleteOneFromCart(ctx, a.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := svc.DeleteAllFromCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	other, err := svc.GetCart(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, other, 1, "another user's cart is untouched")

	n, err = svc.DeleteAllFromCart(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, n)

	last := rec.Events()[len(rec.Events())-1]
	assert.Equal(t, TopicCart, last.Topic)
	assert.IsType(t, CartCleared{}, last.Event)
}
