package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StripsPrefixAndForwards(t *testing.T) {
	t.Parallel()
	var gotPath, gotQuery, gotHost, gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHost = r.Header.Get("X-Forwarded-Host")
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, "ok")
	}))
	t.Cleanup(upstream.Close)

	h, err := New(upstream.URL, "/api/v1")
	require.NoError(t, err)

	e := echo.New()
	e.Any("/api/v1/*", h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/books?page=2", nil)
	req.Host = "shop.example.com"
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "/catalog/books", gotPath)
	assert.Equal(t, "page=2", gotQuery)
	assert.Equal(t, "shop.example.com", gotHost)
	assert.Equal(t, "Bearer abc", gotAuth)
}

func TestNew_UpstreamDown(t *testing.T) {
	t.Parallel()
	upstream := httptest.NewServer(http.NotFoundHandler())
	target := upstream.URL
	upstream.Close()

	h, err := New(target, "")
	require.NoError(t, err)

	e := echo.New()
	e.GET("/cart", h)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"message":"upstream unavailable"}`, rec.Body.String())
}

func TestNew_RejectsRelativeTarget(t *testing.T) {
	t.Parallel()
	_, err := New("catalog:8080", "")
	assert.Error(t, err)
}

func TestStrip(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/orders/1", strip("/api/v1/orders/1", "/api/v1"))
	assert.Equal(t, "/", strip("/api/v1", "/api/v1"))
	assert.Equal(t, "/health/live", strip("/health/live", "/api/v1"))
}
