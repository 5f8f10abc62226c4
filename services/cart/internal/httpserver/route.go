package httpserver

import (
	"net/http"

	middleware "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/pkg/middleware/metrics"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	CartHandler *CartHTTP
	JWTSecret   []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", metrics.Handler())

	authMW := middleware.NewAuthMiddleware(d.JWTSecret)

	cart := e.Group("/cart")
	cart.Use(authMW.RequireAuth)

	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("", d.CartHandler.DeleteAllFromCart)
	cart.PUT("/items/:book_id", d.CartHandler.SetQuantity)
	cart.DELETE("/items/:book_id", d.CartHandler.DeleteOneFromCart)
}
