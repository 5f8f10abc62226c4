package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Skotchmaster/bookstore/pkg/util"
	"github.com/Skotchmaster/bookstore/services/order/internal/service"
	"github.com/Skotchmaster/bookstore/services/order/internal/transport"
	"github.com/labstack/echo/v4"
)

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrWebhookSignature):
		return http.StatusUnauthorized, "invalid webhook signature"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrBusinessRule):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// fail logs err under event and turns it into the matching HTTP error.
func fail(l *slog.Logger, event string, err error) error {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "reason", msg, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg)
}

func paramID(c echo.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return uint(n), nil
}

func pageParams(c echo.Context) (page, size int) {
	page = util.ParseIntDefault(c.QueryParam("page"), 1)
	size = util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	if page < 1 {
		page = 1
	}
	_, size = util.Calculate(page, size)
	return page, size
}

func list(data any, page, size int, total int64) transport.ListResponse {
	if page < 1 {
		page = 1
	}
	offset, limit := util.Calculate(page, size)
	return transport.ListResponse{
		Data: data,
		Meta: transport.PageMeta{
			Page:       page,
			Size:       limit,
			Total:      total,
			TotalPages: (total + int64(limit) - 1) / int64(limit),
			HasPrev:    page > 1,
			HasNext:    int64(offset+limit) < total,
		},
	}
}

func ptr[T any](v T) *T { return &v }
