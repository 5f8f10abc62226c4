package httpserver

import (
	"net/http"

	middleware "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/pkg/middleware/metrics"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	OrderHandler        *OrderHTTP
	PaymentHandler      *PaymentHTTP
	BankTransferHandler *BankTransferHTTP
	LibraryHandler      *LibraryHTTP
	JWTSecret           []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", metrics.Handler())

	e.POST("/webhooks/flutterwave", d.PaymentHandler.FlutterwaveWebhook)

	authMW := middleware.NewAuthMiddleware(d.JWTSecret)

	user := e.Group("", authMW.RequireAuth)
	user.POST("/checkout/summary", d.OrderHandler.CheckoutSummary)
	user.POST("/discounts/validate", d.OrderHandler.ValidateDiscount)
	user.GET("/shipping-methods", d.OrderHandler.ShippingMethods)

	orders := user.Group("/orders")
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.GET("/:id/history", d.OrderHandler.History)
	orders.GET("/:id/notes", d.OrderHandler.Notes)
	orders.POST("/:id/cancel", d.OrderHandler.CancelOrder)
	orders.POST("/:id/clear-cart", d.OrderHandler.ClearCart)
	orders.POST("/:id/sync-library", d.LibraryHandler.SyncOrder)
	orders.GET("/:id/payments", d.PaymentHandler.OrderPayments)

	user.POST("/payments", d.PaymentHandler.CreatePayment)
	user.GET("/payment-gateways", d.PaymentHandler.PaymentGateways)

	transfers := user.Group("/bank-transfers")
	transfers.POST("", d.BankTransferHandler.CreateTransfer)
	transfers.GET("", d.BankTransferHandler.ListTransfers)
	transfers.GET("/:id", d.BankTransferHandler.GetTransfer)
	transfers.POST("/:id/proofs", d.BankTransferHandler.UploadProof)
	transfers.GET("/:id/proofs", d.BankTransferHandler.ListProofs)

	user.GET("/bank-accounts", d.BankTransferHandler.BankAccounts)
	user.GET("/bank-accounts/default", d.BankTransferHandler.DefaultBankAccount)
	user.GET("/notifications", d.BankTransferHandler.Notifications)
	user.POST("/notifications/:id/read", d.BankTransferHandler.MarkNotificationRead)

	user.GET("/library", d.LibraryHandler.MyLibrary)

	admin := e.Group("/admin", authMW.RequireAdmin)
	admin.GET("/orders/transitions", d.OrderHandler.AllowedTransitions)
	admin.PATCH("/orders/:id/status", d.OrderHandler.TransitionStatus)
	admin.POST("/orders/:id/notes", d.OrderHandler.AddNote)
	admin.PATCH("/orders/:id/payment-status", d.PaymentHandler.UpdateOrderPaymentStatus)
	admin.POST("/orders/:id/sync-library", d.LibraryHandler.SyncOrder)

	admin.PATCH("/payments/:txid", d.PaymentHandler.UpdatePaymentStatus)
	admin.POST("/payments/:txid/confirm", d.PaymentHandler.ConfirmPayment)
	admin.POST("/payments/:txid/fail", d.PaymentHandler.FailPayment)

	admin.GET("/bank-transfers", d.BankTransferHandler.ListTransfers)
	admin.PATCH("/bank-transfers/:id", d.BankTransferHandler.ReviewTransfer)
	admin.POST("/bank-transfers/cleanup", d.BankTransferHandler.CleanupExpired)

	admin.POST("/library/assign", d.LibraryHandler.AssignBook)
	admin.DELETE("/library/:user_id/:book_id", d.LibraryHandler.RemoveBook)
	admin.GET("/library/:user_id/verify", d.LibraryHandler.VerifyUser)
	admin.POST("/library/sync-assignments", d.LibraryHandler.SyncAssignments)
}
