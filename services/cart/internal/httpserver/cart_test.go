package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	middleware "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/services/cart/internal/models"
	"github.com/Skotchmaster/bookstore/services/cart/internal/repo"
	"github.com/Skotchmaster/bookstore/services/cart/internal/service"
	"github.com/Skotchmaster/bookstore/services/cart/internal/transport"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newHandler(t *testing.T) (*CartHTTP, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.Migrate(db))
	return &CartHTTP{Svc: &service.CartService{Repo: &repo.GormRepo{DB: db}}}, db
}

func request(method, target, body string, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if userID != 0 {
		c.Set(middleware.CtxUserID, userID)
	}
	return c, rec
}

func code(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	return he.Code
}

func TestCartHandlers(t *testing.T) {
	t.Parallel()
	h, db := newHandler(t)
	b := models.Book{Title: "Americanah", Price: 2500.5, Format: models.FormatPhysical, IsActive: true}
	require.NoError(t, db.Create(&b).Error)

	c, _ := request(http.MethodGet, "/cart", "", 0)
	assert.Equal(t, http.StatusUnauthorized, code(t, h.GetCart(c)))

	c, _ = request(http.MethodPost, "/cart", `{"book_id":0,"quantity":1}`, 3)
	assert.Equal(t, http.StatusBadRequest, code(t, h.AddToCart(c)))

	c, _ = request(http.MethodPost, "/cart", `{"book_id":404,"quantity":1}`, 3)
	assert.Equal(t, http.StatusNotFound, code(t, h.AddToCart(c)))

	c, rec := request(http.MethodPost, "/cart", `{"book_id":1,"quantity":2}`, 3)
	require.NoError(t, h.AddToCart(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	c, rec = request(http.MethodGet, "/cart", "", 3)
	require.NoError(t, h.GetCart(c))
	var cart transport.CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Equal(t, uint(2), cart.ItemCount)
	assert.Equal(t, 5001.0, cart.Subtotal)

	c, _ = request(http.MethodPut, "/cart/items/1", `{}`, 3)
	c.SetParamNames("book_id")
	c.SetParamValues("1")
	assert.Equal(t, http.StatusBadRequest, code(t, h.SetQuantity(c)))

	c, rec = request(http.MethodDelete, "/cart/items/1", "", 3)
	c.SetParamNames("book_id")
	c.SetParamValues("1")
	require.NoError(t, h.DeleteOneFromCart(c))
	var one transport.DeleteOneFromCartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.False(t, one.Deleted)
	assert.Equal(t, uint(1), one.Quantity)

	c, rec = request(http.MethodPut, "/cart/items/1", `{"quantity":0}`, 3)
	c.SetParamNames("book_id")
	c.SetParamValues("1")
	require.NoError(t, h.SetQuantity(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = request(http.MethodDelete, "/cart", "", 3)
	require.NoError(t, h.DeleteAllFromCart(c))
	assert.JSONEq(t, `{"removed":0}`, rec.Body.String())
}
