package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/ports"
)

// ConflictingCount returns how many active bookings of the provider
// overlap w.  excludeID leaves one booking out of the count.  It has no
// side effects.
func ConflictingCount(ctx context.Context, bookings ports.BookingStore, providerID uint64, w model.Window, excludeID *uint64) (int, error) {
	n, err := bookings.CountConflicting(ctx, providerID, w, excludeID)
	if err != nil {
		return 0, storeError("count conflicting bookings", err, nil)
	}
	return n, nil
}

// admit decides whether one more booking fits in the provider's
// capacity over w.  The caller must hold the provider lock taken by
// GetByIDForUpdate in the same session, so the count cannot go stale
// before the write is committed.
func admit(ctx context.Context, s ports.Session, p *model.Provider, w model.Window, excludeID *uint64) error {
	n, err := ConflictingCount(ctx, s.Bookings(), p.ID, w, excludeID)
	if err != nil {
		return err
	}
	if n >= p.ConcurrentCapacity {
		return ErrSlotUnavailable
	}
	return nil
}

// Availability describes how much of a provider's capacity is left for
// one booking of a service starting at a given instant.
type Availability struct {
	ProviderID        uint64    `json:"provider_id"`
	ServiceOfferingID uint64    `json:"service_offering_id"`
	InitialDate       time.Time `json:"initial_date"`
	FinalDate         time.Time `json:"final_date"`
	Capacity          int       `json:"capacity"`
	Conflicting       int       `json:"conflicting"`
	Remaining         int       `json:"remaining"`
	Available         bool      `json:"available"`
}

// Availability checks a slot without reserving it.  The answer may be
// stale by the time the client books; CreateBooking re-checks under the
// provider lock.
func (s *BookingService) Availability(ctx context.Context, providerID, serviceOfferingID uint64, start time.Time) (*Availability, error) {
	if start.IsZero() {
		return nil, validationError("initial_date is required")
	}
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	p, err := sess.Providers().GetByID(ctx, providerID)
	if err != nil {
		return nil, storeError("load provider", err, ErrProviderNotFound)
	}
	so, err := sess.ServiceOfferings().GetByID(ctx, serviceOfferingID)
	if err != nil {
		return nil, storeError("load service offering", err, ErrServiceOfferingNotFound)
	}
	w, err := bookingWindow(start, so)
	if err != nil {
		return nil, err
	}
	n, err := ConflictingCount(ctx, sess.Bookings(), p.ID, w, nil)
	if err != nil {
		return nil, err
	}
	remaining := p.ConcurrentCapacity - n
	if remaining < 0 {
		remaining = 0
	}
	return &Availability{
		ProviderID:        p.ID,
		ServiceOfferingID: so.ID,
		InitialDate:       w.Start,
		FinalDate:         w.End,
		Capacity:          p.ConcurrentCapacity,
		Conflicting:       n,
		Remaining:         remaining,
		Available:         remaining > 0,
	}, nil
}

// bookingWindow computes the slot a booking of so starting at start
// occupies.
func bookingWindow(start time.Time, so *model.ServiceOffering) (model.Window, error) {
	w := model.NewWindow(start, so.Duration())
	if !w.Valid() {
		return model.Window{}, validationError("service offering %d has no duration", so.ID)
	}
	return w, nil
}

// storeError translates persistence errors.  A missing row becomes
// notFound when it is set; lock contention becomes ErrSlotUnavailable
// so a writer that lost a race sees the same error as one that read a
// full slot.
func storeError(op string, err error, notFound error) error {
	switch {
	case notFound != nil && errors.Is(err, ports.ErrNotFound):
		return notFound
	case errors.Is(err, ports.ErrLockConflict):
		return ErrSlotUnavailable
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
