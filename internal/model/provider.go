package model

import "time"

// Provider represents a business or professional that offers one or
// more services and can be booked by clients.  A provider may be linked
// to a user account with the PROVIDER role; that account is used to
// confirm and cancel bookings made against the provider.
//
// Fields:
//  ID                 – primary key identifier.
//  Name               – unique display name.
//  Description        – optional free-text description.
//  LogoURL            – optional reference to a logo image.
//  ConcurrentCapacity – maximum number of bookings that may overlap at
//                       any instant.  Always at least 1.
//  UserID             – linked user account (nil when not user-linked).
//  Services           – offerings of this provider; only populated by
//                       detail reads.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Provider struct {
	ID                 uint64            `json:"id"`                    // providers.id
	Name               string            `json:"name"`                  // providers.name
	Description        *string           `json:"description,omitempty"` // providers.description (nullable)
	LogoURL            *string           `json:"logo_url,omitempty"`    // providers.logo_url (nullable)
	ConcurrentCapacity int               `json:"concurrent_capacity"`   // providers.concurrent_capacity
	UserID             *uint64           `json:"user_id,omitempty"`     // providers.user_id (nullable)
	Services           []ServiceOffering `json:"services,omitempty"`    // provider_services join
	CreatedAt          time.Time         `json:"created_at"`            // providers.created_at
	UpdatedAt          time.Time         `json:"updated_at"`            // providers.updated_at
}

// MinCapacity is the lowest concurrent capacity a provider may declare.
const MinCapacity = 1
