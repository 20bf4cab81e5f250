package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/middleware"
	"github.com/iliyamo/service-booking/internal/pagination"
	"github.com/iliyamo/service-booking/internal/service"
)

// requestTimeout bounds every service call made by a handler.
const requestTimeout = 5 * time.Second

// reqCtx derives a bounded context from the request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps a service error kind to an HTTP status.  ok is false for
// errors that are not part of the service contract.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, true
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, true
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden, true
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict, true
	}
	return 0, false
}

// writeError answers with the status of err's kind.  Anything outside the
// service contract is logged and reported as a generic 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	if status, ok := statusFor(err); ok {
		return c.JSON(status, errorBody{Error: err.Error()})
	}
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("request timed out", zap.String("route", c.Path()), zap.Error(err))
		return c.JSON(http.StatusGatewayTimeout, errorBody{Error: "request timed out"})
	}
	log.Error("unhandled error",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg})
}

func notFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorBody{Error: msg})
}

// principal returns the authenticated caller.  Routes that call it sit
// behind JWTAuth; ok is false only when that middleware is missing.
func principal(c echo.Context) (middleware.Principal, bool) {
	return middleware.PrincipalFrom(c)
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthenticated"})
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// bindParams reads page_number and page_size from the query string.
func bindParams(c echo.Context) (pagination.Params, error) {
	var p pagination.Params
	err := echo.QueryParamsBinder(c).
		Int("page_number", &p.PageNumber).
		Int("page_size", &p.PageSize).
		BindError()
	return p.Normalize(), err
}

// writePage sends the items of a page with its metadata in X-Pagination.
func writePage[T any](c echo.Context, page pagination.Page[T]) error {
	c.Response().Header().Set(pagination.HeaderName, page.Header())
	return c.JSON(http.StatusOK, page.Items)
}
