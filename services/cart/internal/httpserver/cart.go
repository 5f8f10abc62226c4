package httpserver

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/Skotchmaster/bookstore/pkg/logging"
	middleware "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/services/cart/internal/service"
	"github.com/Skotchmaster/bookstore/services/cart/internal/transport"
	"github.com/labstack/echo/v4"
)

type CartHTTP struct {
	Svc *service.CartService
}

func fail(l *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", 400, "reason", err.Error(), "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", 404, "reason", err.Error(), "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		l.Error(event, "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func bookParam(c echo.Context) (uint, error) {
	n, err := strconv.ParseUint(c.Param("book_id"), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("book_id must be a positive integer")
	}
	return uint(n), nil
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("get_cart_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	lines, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		return fail(l, "get_cart_failed", err)
	}

	resp := transport.CartResponse{Items: lines}
	for _, line := range lines {
		resp.ItemCount += line.Quantity
		resp.Subtotal += line.LineTotal
	}
	resp.Subtotal = math.Round(resp.Subtotal*100) / 100
	return c.JSON(http.StatusOK, resp)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("add_to_cart_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.AddToCart(ctx, service.AddInput{
		UserID:   userID,
		BookID:   req.BookID,
		Quantity: req.Quantity,
		Format:   req.Format,
	})
	if err != nil {
		return fail(l, "add_to_cart_failed", err)
	}

	l.Info("add_to_cart_success", "book_id", item.BookID, "quantity", item.Quantity)
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHTTP) SetQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.set_quantity")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("set_quantity_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	bookID, err := bookParam(c)
	if err != nil {
		l.Warn("set_quantity_failed", "status", 400, "reason", "bad book_id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req transport.SetQuantityRequest
	if err := c.Bind(&req); err != nil || req.Quantity == nil {
		l.Warn("set_quantity_failed", "status", 400, "reason", "quantity required", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "quantity required")
	}

	item, err := h.Svc.SetQuantity(ctx, userID, bookID, *req.Quantity)
	if err != nil {
		return fail(l, "set_quantity_failed", err)
	}
	if item.Quantity == 0 {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) DeleteOneFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.delete_one")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("delete_one_from_cart_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	bookID, err := bookParam(c)
	if err != nil {
		l.Warn("delete_one_from_cart_failed", "status", 400, "reason", "bad book_id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	deleted, item, err := h.Svc.DeleteOneFromCart(ctx, bookID, userID)
	if err != nil {
		return fail(l, "delete_one_from_cart_failed", err)
	}

	resp := transport.DeleteOneFromCartResponse{BookID: bookID, Deleted: deleted}
	if !deleted {
		resp.Quantity = item.Quantity
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *CartHTTP) DeleteAllFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.delete_all")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("delete_all_from_cart_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	n, err := h.Svc.DeleteAllFromCart(ctx, userID)
	if err != nil {
		return fail(l, "delete_all_from_cart_failed", err)
	}

	l.Info("delete_all_from_cart_success", "removed", n)
	return c.JSON(http.StatusOK, transport.ClearCartResponse{Removed: n})
}
