package model

import "time"

// ServiceOffering is a bookable service with a fixed duration.  The
// duration drives the end time of every booking made for it.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique service name.
//  Description – optional description.
//  TotalHours  – duration of one booking, in whole hours.
//  Providers   – providers offering this service; only populated by
//                detail reads.
type ServiceOffering struct {
	ID          uint64     `json:"id"`                    // service_offerings.id
	Name        string     `json:"name"`                  // service_offerings.name
	Description *string    `json:"description,omitempty"` // service_offerings.description (nullable)
	TotalHours  int        `json:"total_hours"`           // service_offerings.total_hours
	Providers   []Provider `json:"providers,omitempty"`   // provider_services join
	CreatedAt   time.Time  `json:"created_at"`            // service_offerings.created_at
	UpdatedAt   time.Time  `json:"updated_at"`            // service_offerings.updated_at
}

// Duration returns the length of one booking of this service.
func (s ServiceOffering) Duration() time.Duration {
	return time.Duration(s.TotalHours) * time.Hour
}
