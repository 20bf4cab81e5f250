// Package ports declares the persistence contracts consumed by the
// service layer.  The MySQL implementation lives in package repository;
// tests substitute in-memory fakes.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/pagination"
)

var (
	// ErrNotFound is returned by stores when no row matches a lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique key.
	ErrDuplicate = errors.New("duplicate record")
	// ErrLockConflict is returned when the store aborted a statement
	// because of lock contention (deadlock or lock wait timeout).
	ErrLockConflict = errors.New("lock conflict")
	// ErrReferenced is returned when a delete is blocked by rows that
	// still reference the record.
	ErrReferenced = errors.New("record is referenced")
)

// ProviderStore persists providers.
type ProviderStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Provider, error)
	// GetByIDForUpdate reads the provider and holds an exclusive lock on
	// it until the session ends.  Admission decisions for a provider are
	// serialised through this lock.
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Provider, error)
	GetByUserID(ctx context.Context, userID uint64) (*model.Provider, error)
	GetByName(ctx context.Context, name string) (*model.Provider, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]model.Provider, error)
	List(ctx context.Context, params pagination.Params) ([]model.Provider, int, error)
	Create(ctx context.Context, p *model.Provider) error
	Update(ctx context.Context, p *model.Provider) error
	Delete(ctx context.Context, id uint64) error
}

// ServiceOfferingStore persists service offerings.
type ServiceOfferingStore interface {
	GetByID(ctx context.Context, id uint64) (*model.ServiceOffering, error)
	GetByName(ctx context.Context, name string) (*model.ServiceOffering, error)
	GetByIDs(ctx context.Context, ids []uint64) ([]model.ServiceOffering, error)
	List(ctx context.Context, params pagination.Params) ([]model.ServiceOffering, int, error)
	Create(ctx context.Context, s *model.ServiceOffering) error
	Update(ctx context.Context, s *model.ServiceOffering) error
	Delete(ctx context.Context, id uint64) error
}

// Link is one row of the provider/service many-to-many relation.
type Link struct {
	ProviderID        uint64
	ServiceOfferingID uint64
}

// LinkStore persists the provider/service association.
type LinkStore interface {
	ServiceIDs(ctx context.Context, providerID uint64) ([]uint64, error)
	ProviderIDs(ctx context.Context, serviceOfferingID uint64) ([]uint64, error)
	Add(ctx context.Context, links ...Link) error
	Remove(ctx context.Context, links ...Link) error
}

// UserStore persists user accounts.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
}

// BookingStore persists bookings.  Bookings are never deleted.
type BookingStore interface {
	// GetByIDAndUser returns the booking only when it is owned by userID.
	GetByIDAndUser(ctx context.Context, id, userID uint64) (*model.Booking, error)
	// GetByIDAndProvider returns the booking only when it was made
	// against providerID.
	GetByIDAndProvider(ctx context.Context, id, providerID uint64) (*model.Booking, error)
	GetWithDetails(ctx context.Context, id uint64) (*model.BookingDetail, error)
	// CountConflicting counts non-cancelled bookings of the provider whose
	// interval overlaps w, ignoring excludeID when it is set.
	CountConflicting(ctx context.Context, providerID uint64, w model.Window, excludeID *uint64) (int, error)
	ListByUser(ctx context.Context, userID uint64, params pagination.Params) ([]model.BookingDetail, int, error)
	ListByProvider(ctx context.Context, providerID uint64, params pagination.Params) ([]model.BookingDetail, int, error)
	Create(ctx context.Context, b *model.Booking) error
	Update(ctx context.Context, b *model.Booking) error
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
	// Validate returns the owner of an active, unexpired token.
	Validate(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// Session is one unit of work.  Every store it hands out shares the same
// transaction.  Commit is called at most once; Rollback after Commit is
// a no-op so callers can defer it unconditionally.
type Session interface {
	Providers() ProviderStore
	ServiceOfferings() ServiceOfferingStore
	Links() LinkStore
	Users() UserStore
	Bookings() BookingStore
	Tokens() TokenStore
	// Commit makes the staged changes durable and returns the number of
	// rows they touched.
	Commit() (int64, error)
	Rollback() error
}

// UnitOfWork opens sessions.
type UnitOfWork interface {
	Begin(ctx context.Context) (Session, error)
}
