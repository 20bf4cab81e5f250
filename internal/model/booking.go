package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	// BookingCompleted is reserved for a future job that closes past
	// confirmed bookings.  No operation in this service sets it.
	BookingCompleted BookingStatus = "COMPLETED"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s BookingStatus) Terminal() bool { return s == BookingCompleted }

// Booking reserves a slice of a provider's capacity for one service,
// on behalf of one user, over [InitialDate, FinalDate).
//
// Fields:
//  ID                – primary key identifier.
//  ServiceOfferingID – service being booked.
//  ProviderID        – provider whose capacity is consumed.
//  UserID            – client who owns the booking.
//  Status            – lifecycle state.
//  InitialDate       – start of the slot (UTC).
//  FinalDate         – end of the slot (UTC), InitialDate + service hours.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Booking struct {
	ID                uint64        `json:"id"`                  // bookings.id
	ServiceOfferingID uint64        `json:"service_offering_id"` // bookings.service_offering_id
	ProviderID        uint64        `json:"provider_id"`         // bookings.provider_id
	UserID            uint64        `json:"user_id"`             // bookings.user_id
	Status            BookingStatus `json:"status"`              // bookings.status
	InitialDate       time.Time     `json:"initial_date"`        // bookings.initial_date
	FinalDate         time.Time     `json:"final_date"`          // bookings.final_date
	CreatedAt         time.Time     `json:"created_at"`          // bookings.created_at
	UpdatedAt         time.Time     `json:"updated_at"`          // bookings.updated_at
}

// BookingDetail is a booking joined with the names of the provider,
// service and user it references.  It is the read model returned by
// detail lookups and list endpoints.
type BookingDetail struct {
	Booking
	ProviderName        string `json:"provider_name"`
	ServiceOfferingName string `json:"service_offering_name"`
	UserName            string `json:"user_name"`
}
