package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/pagination"
	"github.com/iliyamo/service-booking/internal/ports"
	"github.com/iliyamo/service-booking/internal/queue"
)

// EventPublisher delivers booking events to the message broker.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}

// BookingCreate is the input of CreateBooking.
type BookingCreate struct {
	ServiceOfferingID uint64    `json:"service_offering_id"`
	ProviderID        uint64    `json:"provider_id"`
	InitialDate       time.Time `json:"initial_date"`
}

// BookingReschedule is the input of UpdateBooking.  Nil fields keep the
// booking's current value.
type BookingReschedule struct {
	ProviderID  *uint64    `json:"provider_id,omitempty"`
	InitialDate *time.Time `json:"initial_date,omitempty"`
}

// BookingService drives the booking state machine.  Every operation
// runs in one session that is committed once on success and rolled back
// otherwise.  Create and reschedule lock the target provider before
// counting conflicts, which serialises admissions per provider.
type BookingService struct {
	uow    ports.UnitOfWork
	events EventPublisher
	log    *zap.Logger
}

// NewBookingService wires a BookingService.  events may be nil, in which
// case no events are published.
func NewBookingService(uow ports.UnitOfWork, events EventPublisher, log *zap.Logger) (*BookingService, error) {
	if uow == nil {
		return nil, errors.New("booking service: unit of work is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingService{uow: uow, events: events, log: log}, nil
}

// CreateBooking admits a new PENDING booking for userID.  It fails with
// ErrSlotUnavailable when the provider already holds as many overlapping
// bookings as its capacity allows.
func (s *BookingService) CreateBooking(ctx context.Context, userID uint64, in BookingCreate) (*model.Booking, error) {
	if in.ProviderID == 0 {
		return nil, validationError("provider_id is required")
	}
	if in.ServiceOfferingID == 0 {
		return nil, validationError("service_offering_id is required")
	}
	if in.InitialDate.IsZero() {
		return nil, validationError("initial_date is required")
	}

	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	provider, err := sess.Providers().GetByIDForUpdate(ctx, in.ProviderID)
	if err != nil {
		return nil, storeError("lock provider", err, ErrProviderNotFound)
	}
	so, err := sess.ServiceOfferings().GetByID(ctx, in.ServiceOfferingID)
	if err != nil {
		return nil, storeError("load service offering", err, ErrServiceOfferingNotFound)
	}
	if _, err := sess.Users().GetByID(ctx, userID); err != nil {
		return nil, storeError("load user", err, ErrUserNotFound)
	}

	w, err := bookingWindow(in.InitialDate, so)
	if err != nil {
		return nil, err
	}
	if err := admit(ctx, sess, provider, w, nil); err != nil {
		return nil, err
	}

	b := &model.Booking{
		ServiceOfferingID: so.ID,
		ProviderID:        provider.ID,
		UserID:            userID,
		Status:            model.BookingPending,
		InitialDate:       w.Start,
		FinalDate:         w.End,
	}
	if err := sess.Bookings().Create(ctx, b); err != nil {
		return nil, storeError("create booking", err, nil)
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit booking", err, nil)
	}

	s.log.Info("booking created",
		zap.Uint64("booking_id", b.ID),
		zap.Uint64("provider_id", b.ProviderID),
		zap.Time("initial_date", b.InitialDate),
	)
	s.publish(ctx, queue.BookingCreated, *b, userID)
	return b, nil
}

// UpdateBooking reschedules a booking owned by userID, optionally onto
// another provider.  The booking goes back to PENDING whatever its prior
// state.  A booking the user does not own is reported as (nil, nil).
func (s *BookingService) UpdateBooking(ctx context.Context, bookingID, userID uint64, in BookingReschedule) (*model.Booking, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	b, err := sess.Bookings().GetByIDAndUser(ctx, bookingID, userID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("load booking", err, nil)
	}
	if b.Status.Terminal() {
		return nil, ErrBookingCompleted
	}

	so, err := sess.ServiceOfferings().GetByID(ctx, b.ServiceOfferingID)
	if err != nil {
		return nil, storeError("load service offering", err, ErrServiceOfferingNotFound)
	}
	providerID := b.ProviderID
	if in.ProviderID != nil {
		providerID = *in.ProviderID
	}
	start := b.InitialDate
	if in.InitialDate != nil {
		start = *in.InitialDate
	}

	provider, err := sess.Providers().GetByIDForUpdate(ctx, providerID)
	if err != nil {
		return nil, storeError("lock provider", err, ErrProviderNotFound)
	}
	w, err := bookingWindow(start, so)
	if err != nil {
		return nil, err
	}
	if err := admit(ctx, sess, provider, w, &b.ID); err != nil {
		return nil, err
	}

	b.ProviderID = provider.ID
	b.Status = model.BookingPending
	b.InitialDate = w.Start
	b.FinalDate = w.End
	if err := sess.Bookings().Update(ctx, b); err != nil {
		return nil, storeError("update booking", err, nil)
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit booking", err, nil)
	}

	s.log.Info("booking rescheduled",
		zap.Uint64("booking_id", b.ID),
		zap.Uint64("provider_id", b.ProviderID),
		zap.Time("initial_date", b.InitialDate),
	)
	s.publish(ctx, queue.BookingRescheduled, *b, userID)
	return b, nil
}

// ConfirmBooking moves a PENDING booking to CONFIRMED.  Only the user
// linked to the booking's provider may confirm it.  A missing booking
// is reported as (nil, nil).
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, userID uint64) (*model.BookingDetail, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	d, err := sess.Bookings().GetWithDetails(ctx, bookingID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("load booking", err, nil)
	}
	provider, err := sess.Providers().GetByUserID(ctx, userID)
	if err != nil {
		return nil, storeError("load provider profile", err, ErrNotAProvider)
	}
	if d.ProviderID != provider.ID {
		return nil, ErrNotBookingOwner
	}
	if d.Status != model.BookingPending {
		return nil, ErrCannotConfirm
	}

	d.Status = model.BookingConfirmed
	if err := sess.Bookings().Update(ctx, &d.Booking); err != nil {
		return nil, storeError("update booking", err, nil)
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit booking", err, nil)
	}

	s.log.Info("booking confirmed", zap.Uint64("booking_id", d.ID), zap.Uint64("provider_id", d.ProviderID))
	s.publish(ctx, queue.BookingConfirmed, d.Booking, userID)
	return d, nil
}

// CancelBooking cancels a booking.  A client may cancel its own
// bookings; when actingAsProvider is set the caller cancels a booking
// made against its provider profile instead.  It returns false when no
// such booking exists, so a foreign booking looks exactly like a
// missing one.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID uint64, actingAsProvider bool) (bool, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer sess.Rollback()

	var b *model.Booking
	if actingAsProvider {
		var provider *model.Provider
		provider, err = sess.Providers().GetByUserID(ctx, userID)
		if err != nil {
			return false, storeError("load provider profile", err, ErrNotAProvider)
		}
		b, err = sess.Bookings().GetByIDAndProvider(ctx, bookingID, provider.ID)
	} else {
		b, err = sess.Bookings().GetByIDAndUser(ctx, bookingID, userID)
	}
	if errors.Is(err, ports.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeError("load booking", err, nil)
	}
	if b.Status.Terminal() {
		return false, ErrBookingCompleted
	}

	b.Status = model.BookingCancelled
	if err := sess.Bookings().Update(ctx, b); err != nil {
		return false, storeError("update booking", err, nil)
	}
	if _, err := sess.Commit(); err != nil {
		return false, storeError("commit booking", err, nil)
	}

	s.log.Info("booking cancelled",
		zap.Uint64("booking_id", b.ID),
		zap.Uint64("actor_id", userID),
		zap.Bool("by_provider", actingAsProvider),
	)
	s.publish(ctx, queue.BookingCancelled, *b, userID)
	return true, nil
}

// GetBooking returns a booking with its provider, service and user names.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uint64) (*model.BookingDetail, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	d, err := sess.Bookings().GetWithDetails(ctx, bookingID)
	if err != nil {
		return nil, storeError("load booking", err, ErrBookingNotFound)
	}
	return d, nil
}

// ListBookingsForUser pages the bookings owned by userID.
func (s *BookingService) ListBookingsForUser(ctx context.Context, userID uint64, params pagination.Params) (pagination.Page[model.BookingDetail], error) {
	params = params.Normalize()
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return pagination.Page[model.BookingDetail]{}, err
	}
	defer sess.Rollback()

	items, total, err := sess.Bookings().ListByUser(ctx, userID, params)
	if err != nil {
		return pagination.Page[model.BookingDetail]{}, storeError("list bookings", err, nil)
	}
	return pagination.New(items, total, params), nil
}

// ListBookingsForProvider pages the bookings made against the provider
// profile linked to userID.
func (s *BookingService) ListBookingsForProvider(ctx context.Context, userID uint64, params pagination.Params) (pagination.Page[model.BookingDetail], error) {
	params = params.Normalize()
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return pagination.Page[model.BookingDetail]{}, err
	}
	defer sess.Rollback()

	provider, err := sess.Providers().GetByUserID(ctx, userID)
	if err != nil {
		return pagination.Page[model.BookingDetail]{}, storeError("load provider profile", err, ErrNotAProvider)
	}
	items, total, err := sess.Bookings().ListByProvider(ctx, provider.ID, params)
	if err != nil {
		return pagination.Page[model.BookingDetail]{}, storeError("list bookings", err, nil)
	}
	return pagination.New(items, total, params), nil
}

// publish sends an event for a committed transition.  Broker failures
// are logged and never reach the caller.
func (s *BookingService) publish(ctx context.Context, t queue.BookingEventType, b model.Booking, actorID uint64) {
	if s.events == nil {
		return
	}
	ev := queue.NewBookingEvent(t, b, actorID)
	if err := s.events.PublishBookingEvent(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("publish booking event failed",
			zap.String("event_id", ev.ID),
			zap.String("type", string(t)),
			zap.Uint64("booking_id", b.ID),
			zap.Error(err),
		)
	}
}
