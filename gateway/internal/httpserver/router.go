package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/bookstore/gateway/internal/proxy"
	"github.com/Skotchmaster/bookstore/pkg/middleware/metrics"
	"github.com/labstack/echo/v4"
)

const apiPrefix = "/api/v1"

type Deps struct {
	CatalogURL string
	CartURL    string
	OrderURL   string
}

// orderRoutes are the top-level paths owned by the order service.
var orderRoutes = []string{
	"/orders", "/payments", "/payment-gateways", "/bank-transfers", "/bank-accounts", "/notifications",
	"/library", "/checkout", "/discounts", "/shipping-methods", "/admin", "/webhooks",
}

// Register mounts the upstream services under /api/v1. Authentication is
// left to each service; tokens and cookies are forwarded untouched.
func Register(e *echo.Echo, d *Deps) error {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", metrics.Handler())

	catalogProxy, err := proxy.New(d.CatalogURL, apiPrefix)
	if err != nil {
		return err
	}
	cartProxy, err := proxy.New(d.CartURL, apiPrefix)
	if err != nil {
		return err
	}
	orderProxy, err := proxy.New(d.OrderURL, apiPrefix)
	if err != nil {
		return err
	}

	api := e.Group(apiPrefix)
	api.Any("/catalog/*", catalogProxy)
	api.Any("/cart", cartProxy)
	api.Any("/cart/*", cartProxy)
	for _, r := range orderRoutes {
		api.Any(r, orderProxy)
		api.Any(r+"/*", orderProxy)
	}
	return nil
}
