package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/bookstore/pkg/logging"
	middleware "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/services/order/internal/service"
	"github.com/Skotchmaster/bookstore/services/order/internal/transport"
	"github.com/labstack/echo/v4"
)

type LibraryHTTP struct {
	Svc *service.LibraryService
}

func (h *LibraryHTTP) MyLibrary(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "library.list")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("list_library_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	items, err := h.Svc.ListLibrary(ctx, userID)
	if err != nil {
		return fail(l, "list_library_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *LibraryHTTP) SyncOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "library.sync_order")

	id, err := paramID(c, "id")
	if err != nil {
		l.Warn("sync_order_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var owner uint
	if !middleware.IsAdmin(c) {
		if owner, err = middleware.UserID(c); err != nil {
			l.Warn("sync_order_failed", "status", 401, "reason", "unauthorized", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
	}

	added, err := h.Svc.SyncOrderToLibrary(ctx, id, owner)
	if err != nil {
		return fail(l, "sync_order_failed", err)
	}
	l.Info("sync_order_success", "order_id", id, "added", added)
	return c.JSON(http.StatusOK, transport.SyncLibraryResponse{OrderID: id, Added: added})
}

func (h *LibraryHTTP) AssignBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "library.assign")

	adminID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("assign_book_failed", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.AssignBookRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("assign_book_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	a, err := h.Svc.AssignBookToUser(ctx, service.AssignInput{
		UserID:  req.UserID,
		BookID:  req.BookID,
		AdminID:     adminID,
		Reason:      req.Reason,
		NotifyEmail: req.NotifyEmail,
	})
	if err != nil {
		return fail(l, "assign_book_failed", err)
	}
	l.Info("assign_book_success", "user_id", req.UserID, "book_id", req.BookID)
	return c.JSON(http.StatusOK, a)
}

func (h *LibraryHTTP) RemoveBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "library.remove")

	userID, err := paramID(c, "user_id")
	if err != nil {
		l.Warn("remove_book_failed", "status", 400, "reason", "bad user id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bookID, err := paramID(c, "book_id")
	if err != nil {
		l.Warn("remove_book_failed", "status", 400, "reason", "bad book id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var actor *uint
	if adminID, err := middleware.UserID(c); err == nil {
		actor = ptr(adminID)
	}

	if err := h.Svc.RemoveBookFromUser(ctx, userID, bookID, actor); err != nil {
		return fail(l, "remove_book_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *LibraryHTTP) VerifyUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "library.verify")

	userID, err := paramID(c, "user_id")
	if err != nil {
		l.Warn("verify_library_failed", "status", 400, "reason", "bad user id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	report, err := h.Svc.VerifyUserLibrary(ctx, userID, c.QueryParam("repair") == "true")
	if err != nil {
		return fail(l, "verify_library_failed", err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *LibraryHTTP) SyncAssignments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "library.sync_assignments")

	report, err := h.Svc.SyncAssignmentsToLibrary(ctx)
	if err != nil {
		return fail(l, "sync_assignments_failed", err)
	}
	l.Info("sync_assignments_success", "repaired", report.Repaired)
	return c.JSON(http.StatusOK, report)
}
