package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	middleware "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/pkg/tokens"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/models"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/repo"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/service"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newHandler(t *testing.T) (*CatalogHTTP, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.Migrate(db))
	return &CatalogHTTP{Svc: &service.CatalogService{Repo: &repo.GormRepo{DB: db}}}, db
}

func request(method, target, body, role string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if role != "" {
		c.Set(middleware.CtxUserID, uint(1))
		c.Set(middleware.CtxRole, role)
	}
	return c, rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func code(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	return he.Code
}

func TestGetBook_InactiveHiddenFromCustomers(t *testing.T) {
	t.Parallel()
	h, db := newHandler(t)
	b := models.Book{Title: "Draft", Format: models.FormatEbook, IsActive: false}
	require.NoError(t, db.Create(&b).Error)
	require.NoError(t, db.Model(&b).Update("is_active", false).Error)

	c, _ := request(http.MethodGet, "/catalog/books/1", "", tokens.RoleUser)
	assert.Equal(t, http.StatusNotFound, code(t, h.GetBook(withID(c, "1"))))

	c, rec := request(http.MethodGet, "/catalog/admin/books/1", "", tokens.RoleAdmin)
	require.NoError(t, h.GetBook(withID(c, "1")))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, _ = request(http.MethodGet, "/catalog/books/x", "", "")
	assert.Equal(t, http.StatusBadRequest, code(t, h.GetBook(withID(c, "x"))))
}

func TestGetBooks_PagingMeta(t *testing.T) {
	t.Parallel()
	h, db := newHandler(t)
	for _, title := range []string{"A", "B", "C"} {
		require.NoError(t, db.Create(&models.Book{Title: title, Format: models.FormatEbook, IsActive: true}).Error)
	}

	c, rec := request(http.MethodGet, "/catalog/books?page=2&size=2", "", "")
	require.NoError(t, h.GetBooks(c))

	var body struct {
		Data []models.Book `json:"data"`
		Meta struct {
			Page       int   `json:"page"`
			Size       int   `json:"size"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
			HasPrev    bool  `json:"has_prev"`
			HasNext    bool  `json:"has_next"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, int64(3), body.Meta.Total)
	assert.Equal(t, int64(2), body.Meta.TotalPages)
	assert.True(t, body.Meta.HasPrev)
	assert.False(t, body.Meta.HasNext)
}

func TestSearchBooks_RequiresQuery(t *testing.T) {
	t.Parallel()
	h, _ := newHandler(t)

	c, _ := request(http.MethodGet, "/catalog/books/search", "", "")
	assert.Equal(t, http.StatusBadRequest, code(t, h.SearchBooks(c)))
}

func TestCreateBook_Handler(t *testing.T) {
	t.Parallel()
	h, _ := newHandler(t)

	c, rec := request(http.MethodPost, "/catalog/admin/books", `{"title":"Purple Hibiscus","price":2200,"format":"physical","isbn":"9781616202415"}`, tokens.RoleAdmin)
	require.NoError(t, h.CreateBook(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	c, _ = request(http.MethodPost, "/catalog/admin/books", `{"title":"Again","price":1,"format":"ebook","isbn":"9781616202415"}`, tokens.RoleAdmin)
	assert.Equal(t, http.StatusConflict, code(t, h.CreateBook(c)))

	c, _ = request(http.MethodPost, "/catalog/admin/books", `{"title":"Bad","format":"scroll"}`, tokens.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, code(t, h.CreateBook(c)))
}

func TestDeleteBook_Handler(t *testing.T) {
	t.Parallel()
	h, db := newHandler(t)
	require.NoError(t, db.Create(&models.Book{Title: "Gone", Format: models.FormatEbook, IsActive: true}).Error)
	require.NoError(t, db.Exec("CREATE TABLE cart_items (id INTEGER PRIMARY KEY, book_id INTEGER)").Error)
	require.NoError(t, db.Exec("INSERT INTO cart_items (book_id) VALUES (1)").Error)

	c, rec := request(http.MethodDelete, "/catalog/admin/books/1", "", tokens.RoleAdmin)
	require.NoError(t, h.DeleteBook(withID(c, "1")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code, "missing tables fail the cascade")

	var failed struct {
		Message string               `json:"message"`
		Report  models.CascadeReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	assert.False(t, failed.Report.Deleted)
	assert.Len(t, failed.Report.Failed(), 2)

	require.NoError(t, db.Exec("CREATE TABLE user_library_items (id INTEGER PRIMARY KEY, book_id INTEGER)").Error)
	require.NoError(t, db.Exec("CREATE TABLE book_assignments (id INTEGER PRIMARY KEY, book_id INTEGER)").Error)

	c, rec = request(http.MethodDelete, "/catalog/admin/books/1", "", tokens.RoleAdmin)
	require.NoError(t, h.DeleteBook(withID(c, "1")))
	assert.Equal(t, http.StatusOK, rec.Code)
	var report models.CascadeReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Deleted)
	assert.Equal(t, int64(1), report.Steps[0].Deleted)

	c, _ = request(http.MethodDelete, "/catalog/admin/books/1", "", tokens.RoleAdmin)
	assert.Equal(t, http.StatusNotFound, code(t, h.DeleteBook(withID(c, "1"))))
}

func TestReindex_WithoutIndex(t *testing.T) {
	t.Parallel()
	h, _ := newHandler(t)

	c, _ := request(http.MethodPost, "/catalog/admin/books/reindex", "", tokens.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, code(t, h.Reindex(c)))
}
