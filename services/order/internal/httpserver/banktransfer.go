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

const defaultUploadLimit = 10 << 20

type BankTransferHTTP struct {
	Svc *service.BankTransferService
	// MaxUploadBytes bounds how much of a proof upload is read. The
	// gateway's own limit is enforced by the service.
	MaxUploadBytes int64
}

func (h *BankTransferHTTP) CreateTransfer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bank_transfer.create")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("create_transfer_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CreateBankTransferRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_transfer_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	details, err := h.Svc.CreateBankTransfer(ctx, service.CreateBankTransferInput{
		OrderID:       req.OrderID,
		UserID:        userID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		BankAccountID: req.BankAccountID,
	})
	if err != nil {
		return fail(l, "create_transfer_failed", err)
	}
	l.Info("create_transfer_success", "reference", details.Transfer.TransactionReference)
	return c.JSON(http.StatusCreated, details)
}

func (h *BankTransferHTTP) ListTransfers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bank_transfer.list")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("list_transfers_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	f, err := service.ParseBankTransferFilter(c.QueryParams(), userID, middleware.IsAdmin(c))
	if err != nil {
		return fail(l, "list_transfers_failed", err)
	}

	transfers, total, err := h.Svc.ListBankTransfers(ctx, f)
	if err != nil {
		return fail(l, "list_transfers_failed", err)
	}
	return c.JSON(http.StatusOK, list(transfers, f.Page, f.Size, total))
}

func (h *BankTransferHTTP) GetTransfer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bank_transfer.get")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("get_transfer_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, _ := middleware.UserID(c)

	details, err := h.Svc.GetBankTransfer(ctx, id, userID, middleware.IsAdmin(c))
	if err != nil {
		return fail(l, "get_transfer_failed", err)
	}
	return c.JSON(http.StatusOK, details)
}

func (h *BankTransferHTTP) UploadProof(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bank_transfer.upload_proof")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("upload_proof_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("upload_proof_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		l.Warn("upload_proof_failed", "status", 400, "reason", "file field required", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "file field required")
	}
	f, err := fh.Open()
	if err != nil {
		l.Error("upload_proof_failed", "status", 500, "reason", "cannot open upload", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot open upload")
	}
	defer f.Close()

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultUploadLimit
	}
	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		l.Error("upload_proof_failed", "status", 500, "reason", "cannot read upload", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read upload")
	}

	mime := fh.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(content)
	}

	proof, created, err := h.Svc.UploadProof(ctx, service.UploadProofInput{
		TransferID: id,
		UserID:     userID,
		FileName:   fh.Filename,
		MimeType:   mime,
		Content:    content,
	})
	if err != nil {
		return fail(l, "upload_proof_failed", err)
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	l.Info("upload_proof_success", "transfer_id", id, "created", created)
	return c.JSON(status, proof)
}

func (h *BankTransferHTTP) ListProofs(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bank_transfer.list_proofs")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("list_proofs_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, _ := middleware.UserID(c)

	proofs, err := h.Svc.ListProofs(ctx, id, userID, middleware.IsAdmin(c))
	if err != nil {
		return fail(l, "list_proofs_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": proofs})
}

func (h *BankTransferHTTP) ReviewTransfer(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bank_transfer.review")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("review_transfer_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	adminID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("review_transfer_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.ReviewBankTransferRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("review_transfer_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	bt, err := h.Svc.UpdateBankTransferStatus(ctx, id, service.ReviewInput{
		Status:     req.Status,
		AdminID:    adminID,
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		return fail(l, "review_transfer_failed", err)
	}
	l.Info("review_transfer_success", "transfer_id", id, "status", bt.Status)
	return c.JSON(http.StatusOK, bt)
}

func (h *BankTransferHTTP) CleanupExpired(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bank_transfer.cleanup")

	n, err := h.Svc.CleanupExpiredTransfers(ctx)
	if err != nil {
		return fail(l, "cleanup_transfers_failed", err)
	}
	l.Info("cleanup_transfers_success", "expired", n)
	return c.JSON(http.StatusOK, transport.CleanupResponse{Expired: n})
}

func (h *BankTransferHTTP) BankAccounts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bank_transfer.accounts")

	accounts, err := h.Svc.ActiveBankAccounts(ctx)
	if err != nil {
		return fail(l, "bank_accounts_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": accounts})
}

func (h *BankTransferHTTP) DefaultBankAccount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bank_transfer.default_account")

	account, err := h.Svc.DefaultBankAccount(ctx)
	if err != nil {
		return fail(l, "default_account_failed", err)
	}
	return c.JSON(http.StatusOK, account)
}

func (h *BankTransferHTTP) Notifications(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bank_transfer.notifications")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("notifications_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	items, err := h.Svc.Notifications(ctx, userID, c.QueryParam("unread") == "true")
	if err != nil {
		return fail(l, "notifications_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *BankTransferHTTP) MarkNotificationRead(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "bank_transfer.mark_read")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("mark_read_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("mark_read_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := h.Svc.MarkNotificationRead(ctx, userID, id); err != nil {
		return fail(l, "mark_read_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
