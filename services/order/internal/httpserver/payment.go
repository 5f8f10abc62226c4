package httpserver

import (
	"io"
	"net/http"

	"github.com/Skotchmaster/bookstore/pkg/logging"
	middleware "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/services/order/internal/service"
	"github.com/Skotchmaster/bookstore/services/order/internal/transport"
	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

type PaymentHTTP struct {
	Svc         *service.PaymentService
	Orders      *service.OrderService
	WebhookHash string
}

func (h *PaymentHTTP) CreatePayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.create_payment")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("create_payment_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_payment_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	tx, err := h.Svc.CreatePaymentTransaction(ctx, service.CreatePaymentInput{
		OrderID:       req.OrderID,
		Gateway:       req.Gateway,
		UserID:        userID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		return fail(l, "create_payment_failed", err)
	}
	l.Info("create_payment_success", "transaction_id", tx.TransactionID, "order_id", tx.OrderID)
	return c.JSON(http.StatusCreated, tx)
}

func (h *PaymentHTTP) PaymentGateways(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.gateways")

	gws, err := h.Svc.ActiveGateways(ctx)
	if err != nil {
		return fail(l, "payment_gateways_failed", err)
	}
	out := make([]transport.PaymentGatewayResponse, 0, len(gws))
	for _, g := range gws {
		resp := transport.PaymentGatewayResponse{GatewayID: g.GatewayID, Name: g.Name, IsTestMode: g.IsTestMode}
		if g.Config.Settings != nil {
			resp.Type = g.Config.Settings.GatewayType()
		}
		out = append(out, resp)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": out})
}

func (h *PaymentHTTP) OrderPayments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.order_payments")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("order_payments_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, _ := middleware.UserID(c)
	if _, err := h.Orders.GetOrder(ctx, id, userID, middleware.IsAdmin(c)); err != nil {
		return fail(l, "order_payments_failed", err)
	}

	txs, err := h.Svc.PaymentsForOrder(ctx, id)
	if err != nil {
		return fail(l, "order_payments_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": txs})
}

func (h *PaymentHTTP) UpdatePaymentStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.update_status")

	var req transport.UpdatePaymentStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_payment_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	tx, err := h.Svc.UpdatePaymentStatus(ctx, c.Param("txid"), req.Status, req.GatewayResponse)
	if err != nil {
		return fail(l, "update_payment_failed", err)
	}
	return c.JSON(http.StatusOK, tx)
}

func (h *PaymentHTTP) ConfirmPayment(c echo.Context) error {
	return h.resolve(c, true)
}

func (h *PaymentHTTP) FailPayment(c echo.Context) error {
	return h.resolve(c, false)
}

func (h *PaymentHTTP) resolve(c echo.Context, success bool) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.resolve", "success", success)

	var req transport.UpdatePaymentStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("resolve_payment_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var actor *uint
	if adminID, err := middleware.UserID(c); err == nil {
		actor = ptr(adminID)
	}

	var (
		out *service.PaymentOutcome
		err error
	)
	if success {
		out, err = h.Svc.ConfirmPayment(ctx, c.Param("txid"), req.GatewayResponse, actor)
	} else {
		out, err = h.Svc.FailPayment(ctx, c.Param("txid"), req.GatewayResponse, actor)
	}
	if err != nil {
		return fail(l, "resolve_payment_failed", err)
	}
	l.Info("resolve_payment_success", "transaction_id", out.Transaction.TransactionID, "order_status", out.Order.Status)
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHTTP) UpdateOrderPaymentStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.update_order_payment")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("update_order_payment_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req transport.UpdateOrderPaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_order_payment_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdateOrderPaymentStatus(ctx, id, req.PaymentStatus, req.TransactionID)
	if err != nil {
		return fail(l, "update_order_payment_failed", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *PaymentHTTP) FlutterwaveWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.flutterwave_webhook")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		l.Warn("webhook_failed", "status", 400, "reason", "unreadable body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	out, err := h.Svc.HandleFlutterwaveWebhook(ctx, c.Request().Header.Get("verif-hash"), h.WebhookHash, body)
	if err != nil {
		return fail(l, "webhook_failed", err)
	}
	l.Info("webhook_processed", "transaction_id", out.Transaction.TransactionID, "status", out.Transaction.Status)
	return c.NoContent(http.StatusOK)
}
