package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/pagination"
	"github.com/iliyamo/service-booking/internal/service"
)

// BookingService is the part of service.BookingService the HTTP layer uses.
type BookingService interface {
	CreateBooking(ctx context.Context, userID uint64, in service.BookingCreate) (*model.Booking, error)
	UpdateBooking(ctx context.Context, bookingID, userID uint64, in service.BookingReschedule) (*model.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID, userID uint64) (*model.BookingDetail, error)
	CancelBooking(ctx context.Context, bookingID, userID uint64, actingAsProvider bool) (bool, error)
	GetBooking(ctx context.Context, bookingID uint64) (*model.BookingDetail, error)
	ListBookingsForUser(ctx context.Context, userID uint64, params pagination.Params) (pagination.Page[model.BookingDetail], error)
	ListBookingsForProvider(ctx context.Context, userID uint64, params pagination.Params) (pagination.Page[model.BookingDetail], error)
	Availability(ctx context.Context, providerID, serviceOfferingID uint64, start time.Time) (*service.Availability, error)
}

// BookingHandler serves the booking endpoints.
type BookingHandler struct {
	Bookings BookingService
	Log      *zap.Logger
}

// NewBookingHandler panics if the service is nil.
func NewBookingHandler(bookings BookingService, log *zap.Logger) *BookingHandler {
	if bookings == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Bookings: bookings, Log: log}
}

// Create books a slot for the calling client.
func (h *BookingHandler) Create(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthenticated(c)
	}
	var req service.BookingCreate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.CreateBooking(ctx, p.UserID, req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/bookings/"+strconv.FormatUint(b.ID, 10))
	return c.JSON(http.StatusCreated, b)
}

// Reschedule moves one of the caller's bookings.
func (h *BookingHandler) Reschedule(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req service.BookingReschedule
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.UpdateBooking(ctx, id, p.UserID, req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if b == nil {
		return notFound(c, "booking not found")
	}
	return c.JSON(http.StatusOK, b)
}

// Confirm lets the booked provider accept a pending booking.
func (h *BookingHandler) Confirm(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Bookings.ConfirmBooking(ctx, id, p.UserID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if d == nil {
		return notFound(c, "booking not found")
	}
	return c.JSON(http.StatusOK, d)
}

// Cancel cancels a booking.  Providers cancel bookings made against
// their profile; everyone else cancels their own.
func (h *BookingHandler) Cancel(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	done, err := h.Bookings.CancelBooking(ctx, id, p.UserID, p.Role == model.RoleProvider)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if !done {
		return notFound(c, "booking not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// Get returns any booking with its names resolved.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Bookings.GetBooking(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// ListMine pages the caller's bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthenticated(c)
	}
	params, err := bindParams(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.Bookings.ListBookingsForUser(ctx, p.UserID, params)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return writePage(c, page)
}

// ProviderSchedule pages the bookings made against the caller's
// provider profile.
func (h *BookingHandler) ProviderSchedule(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthenticated(c)
	}
	params, err := bindParams(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.Bookings.ListBookingsForProvider(ctx, p.UserID, params)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return writePage(c, page)
}

// Availability reports the remaining capacity of a provider for one
// booking of a service at initial_date (RFC 3339).
func (h *BookingHandler) Availability(c echo.Context) error {
	providerID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid provider id")
	}
	var (
		serviceID uint64
		start     time.Time
	)
	err := echo.QueryParamsBinder(c).
		MustUint64("service_offering_id", &serviceID).
		MustTime("initial_date", &start, time.RFC3339).
		BindError()
	if err != nil || serviceID == 0 {
		return badRequest(c, "service_offering_id and initial_date (RFC 3339) are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Bookings.Availability(ctx, providerID, serviceID, start)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}
