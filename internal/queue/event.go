// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/service-booking/internal/model"
)

// BookingQueueName is the durable queue every booking event is routed to.
const BookingQueueName = "booking.events"

// BookingEventType names the transition that produced an event.
type BookingEventType string

const (
	BookingCreated     BookingEventType = "booking.created"
	BookingRescheduled BookingEventType = "booking.rescheduled"
	BookingConfirmed   BookingEventType = "booking.confirmed"
	BookingCancelled   BookingEventType = "booking.cancelled"
)

// BookingEvent is published after a booking transition has been
// committed.  It carries enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary
// database.
type BookingEvent struct {
	ID                string              `json:"id"`
	Type              BookingEventType    `json:"type"`
	BookingID         uint64              `json:"booking_id"`
	ProviderID        uint64              `json:"provider_id"`
	ServiceOfferingID uint64              `json:"service_offering_id"`
	UserID            uint64              `json:"user_id"`
	ActorID           uint64              `json:"actor_id"`
	Status            model.BookingStatus `json:"status"`
	InitialDate       time.Time           `json:"initial_date"`
	FinalDate         time.Time           `json:"final_date"`
	OccurredAt        time.Time           `json:"occurred_at"`
}

// NewBookingEvent snapshots b.  actorID is the user who triggered the
// transition; it differs from b.UserID when a provider acts.
func NewBookingEvent(t BookingEventType, b model.Booking, actorID uint64) BookingEvent {
	return BookingEvent{
		ID:                uuid.NewString(),
		Type:              t,
		BookingID:         b.ID,
		ProviderID:        b.ProviderID,
		ServiceOfferingID: b.ServiceOfferingID,
		UserID:            b.UserID,
		ActorID:           actorID,
		Status:            b.Status,
		InitialDate:       b.InitialDate.UTC(),
		FinalDate:         b.FinalDate.UTC(),
		OccurredAt:        time.Now().UTC(),
	}
}
