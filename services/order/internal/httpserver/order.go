package httpserver

import (
	"errors"
	"net/http"

	"github.com/Skotchmaster/bookstore/pkg/logging"
	middleware "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/services/order/internal/service"
	"github.com/Skotchmaster/bookstore/services/order/internal/transport"
	"github.com/labstack/echo/v4"
)

type OrderHTTP struct {
	Orders  *service.OrderService
	Pricing *service.PricingService
	Cart    *service.CartService
}

func (h *OrderHTTP) CheckoutSummary(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout_summary")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("checkout_summary_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CheckoutSummaryRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_summary_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	summary, err := h.Pricing.Summarize(ctx, userID, service.CheckoutInput{
		Country:          req.Country,
		ShippingMethodID: req.ShippingMethodID,
		DiscountCode:     req.DiscountCode,
	})
	if err != nil {
		return fail(l, "checkout_summary_failed", err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *OrderHTTP) ValidateDiscount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.validate_discount")

	var req transport.ValidateDiscountRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("validate_discount_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	d, amount, err := h.Pricing.ValidateDiscountCode(ctx, req.Code, req.Subtotal)
	if err != nil {
		return fail(l, "validate_discount_failed", err)
	}
	return c.JSON(http.StatusOK, transport.ValidateDiscountResponse{
		Code:           d.Code,
		Type:           d.Type,
		DiscountAmount: amount,
	})
}

func (h *OrderHTTP) ShippingMethods(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.shipping_methods")

	methods, err := h.Pricing.ShippingMethods(ctx)
	if err != nil {
		return fail(l, "shipping_methods_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": methods})
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("create_order_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Orders.CreateOrder(ctx, userID, service.CreateOrderInput{
		ShippingAddress:  req.ShippingAddress,
		BillingAddress:   req.BillingAddress,
		ShippingMethodID: req.ShippingMethodID,
		DiscountCode:     req.DiscountCode,
		PaymentMethod:    req.PaymentMethod,
	})
	if err != nil {
		var stock *service.StockExceededError
		if errors.As(err, &stock) {
			l.Warn("create_order_failed", "status", 422, "reason", "insufficient stock", "book_id", stock.BookID, "error", err)
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{
				"message":   err.Error(),
				"book_id":   stock.BookID,
				"requested": stock.Requested,
				"available": stock.Available,
			})
		}
		return fail(l, "create_order_failed", err)
	}

	l.Info("create_order_success", "order_id", order.ID, "order_number", order.OrderNumber)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("list_orders_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	page, size := pageParams(c)
	orders, total, err := h.Orders.ListOrders(ctx, userID, page, size)
	if err != nil {
		return fail(l, "list_orders_failed", err)
	}
	return c.JSON(http.StatusOK, list(orders, page, size, total))
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("get_order_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, _ := middleware.UserID(c)

	order, err := h.Orders.GetOrder(ctx, id, userID, middleware.IsAdmin(c))
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) History(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.history")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("order_history_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, _ := middleware.UserID(c)
	if _, err := h.Orders.GetOrder(ctx, id, userID, middleware.IsAdmin(c)); err != nil {
		return fail(l, "order_history_failed", err)
	}

	history, err := h.Orders.History(ctx, id)
	if err != nil {
		return fail(l, "order_history_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": history})
}

func (h *OrderHTTP) Notes(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.notes")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("order_notes_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, _ := middleware.UserID(c)
	admin := middleware.IsAdmin(c)
	if _, err := h.Orders.GetOrder(ctx, id, userID, admin); err != nil {
		return fail(l, "order_notes_failed", err)
	}

	notes, err := h.Orders.Notes(ctx, id, !admin)
	if err != nil {
		return fail(l, "order_notes_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": notes})
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("cancel_order_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("cancel_order_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CancelOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("cancel_order_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Orders.CancelByCustomer(ctx, id, userID, req.Reason)
	if err != nil {
		return fail(l, "cancel_order_failed", err)
	}
	l.Info("cancel_order_success", "order_id", id)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.clear_cart")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("clear_cart_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("clear_cart_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cleared, err := h.Cart.ClearCartAfterPaymentSuccess(ctx, userID, id)
	if err != nil {
		return fail(l, "clear_cart_failed", err)
	}
	return c.JSON(http.StatusOK, transport.ClearCartResponse{OrderID: id, Cleared: cleared})
}

func (h *OrderHTTP) TransitionStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.transition_status")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("transition_status_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req transport.TransitionRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("transition_status_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var actor *uint
	if adminID, err := middleware.UserID(c); err == nil {
		actor = ptr(adminID)
	}

	order, err := h.Orders.TransitionStatus(ctx, id, service.TransitionInput{
		To:             req.Status,
		Note:           req.Note,
		TrackingNumber: req.TrackingNumber,
		ActorID:        actor,
	})
	if err != nil {
		return fail(l, "transition_status_failed", err)
	}
	l.Info("transition_status_success", "order_id", id, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) AddNote(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.add_note")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("add_note_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req transport.NoteRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_note_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var actor *uint
	if adminID, err := middleware.UserID(c); err == nil {
		actor = ptr(adminID)
	}

	note, err := h.Orders.AddNote(ctx, id, service.NoteInput{
		Note:            req.Note,
		CustomerVisible: req.CustomerVisible,
		ActorID:         actor,
	})
	if err != nil {
		return fail(l, "add_note_failed", err)
	}
	return c.JSON(http.StatusCreated, note)
}

func (h *OrderHTTP) AllowedTransitions(c echo.Context) error {
	from := service.NormalizeStatus(c.QueryParam("from"))
	if !service.KnownStatus(from) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}
	return c.JSON(http.StatusOK, map[string]any{"from": from, "data": service.AllowedTransitions(from)})
}
