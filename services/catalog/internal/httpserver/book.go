package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Skotchmaster/bookstore/pkg/logging"
	middleware "github.com/Skotchmaster/bookstore/pkg/middleware/auth"
	"github.com/Skotchmaster/bookstore/pkg/util"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/repo"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/service"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/transport"
	"github.com/labstack/echo/v4"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func fail(l *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", 400, "reason", err.Error(), "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", 404, "reason", err.Error(), "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", 409, "reason", err.Error(), "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		l.Error(event, "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func bookID(c echo.Context) (uint, error) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("id is not a positive integer")
	}
	return uint(n), nil
}

func page(c echo.Context, data any, p, size int, total int64) error {
	offset, limit := util.Calculate(p, size)
	if p < 1 {
		p = 1
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": data,
		"meta": map[string]any{
			"page":        p,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    p > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *CatalogHTTP) GetBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_book")

	id, err := bookID(c)
	if err != nil {
		l.Warn("get_book_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.Svc.GetBook(ctx, id)
	if err != nil {
		return fail(l, "get_book_failed", err)
	}
	if !book.IsActive && !middleware.IsAdmin(c) {
		l.Warn("get_book_failed", "status", 404, "reason", "book inactive", "book_id", id)
		return echo.NewHTTPError(http.StatusNotFound, "book not found")
	}
	return c.JSON(http.StatusOK, book)
}

func (h *CatalogHTTP) GetBooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_books")

	p := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	activeOnly := !(middleware.IsAdmin(c) && c.QueryParam("all") == "true")

	total, items, err := h.Svc.GetBooks(ctx, p, size, activeOnly)
	if err != nil {
		return fail(l, "get_books_failed", err)
	}
	return page(c, items, p, size, total)
}

func (h *CatalogHTTP) SearchBooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search_books")

	p := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	total, items, err := h.Svc.SearchBooks(ctx, c.QueryParam("q"), p, size)
	if err != nil {
		return fail(l, "search_books_failed", err)
	}
	return page(c, items, p, size, total)
}

func (h *CatalogHTTP) CreateBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_book")

	var req transport.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_book_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	book, err := h.Svc.CreateBook(ctx, req)
	if err != nil {
		return fail(l, "create_book_failed", err)
	}

	l.Info("create_book_success", "book_id", book.ID)
	return c.JSON(http.StatusCreated, book)
}

func (h *CatalogHTTP) PatchBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.patch_book")

	id, err := bookID(c)
	if err != nil {
		l.Warn("patch_book_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req transport.PatchBookRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_book_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	book, err := h.Svc.PatchBook(ctx, id, req)
	if err != nil {
		return fail(l, "patch_book_failed", err)
	}

	l.Info("patch_book_success", "book_id", id)
	return c.JSON(http.StatusOK, book)
}

// DeleteBook answers with the cascade report. A failed cascade is a 500
// that still carries the report.
func (h *CatalogHTTP) DeleteBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_book")

	id, err := bookID(c)
	if err != nil {
		l.Warn("delete_book_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	report, err := h.Svc.DeleteBook(ctx, id)
	if errors.Is(err, repo.ErrCascadeIncomplete) {
		l.Error("delete_book_failed", "status", 500, "reason", "cascade incomplete", "failed", len(report.Failed()), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"message": err.Error(),
			"report":  report,
		})
	}
	if err != nil {
		return fail(l, "delete_book_failed", err)
	}

	l.Info("delete_book_success", "book_id", id)
	return c.JSON(http.StatusOK, report)
}

func (h *CatalogHTTP) Reindex(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.reindex")

	n, err := h.Svc.Reindex(ctx)
	if err != nil {
		return fail(l, "reindex_failed", err)
	}
	l.Info("reindex_success", "indexed", n)
	return c.JSON(http.StatusOK, transport.ReindexResponse{Indexed: n})
}
