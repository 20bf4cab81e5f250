package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/service-booking/internal/ports"
)

// UnitOfWork opens MySQL transactions and hands out repositories bound
// to them.
type UnitOfWork struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// sessionTxOptions is used for every session.  Admission counts
// bookings after it is granted the provider row lock; under READ
// COMMITTED that count sees every booking committed while the lock was
// awaited, whatever the session read before.
var sessionTxOptions = sql.TxOptions{Isolation: sql.LevelReadCommitted}

// NewUnitOfWork returns a unit of work over db.  It panics when db is
// nil because the application cannot serve any request without it.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	if db == nil {
		panic("repository: nil *sql.DB")
	}
	opts := sessionTxOptions
	return &UnitOfWork{db: db, opts: &opts}
}

// Begin starts a transaction.  The transaction is tied to ctx: when the
// request is cancelled the driver rolls it back.
func (u *UnitOfWork) Begin(ctx context.Context) (ports.Session, error) {
	tx, err := u.db.BeginTx(ctx, u.opts)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return newSession(tx), nil
}

// session implements ports.Session on one transaction.
type session struct {
	tx   *countingTx
	done bool

	providers *ProviderRepo
	services  *ServiceOfferingRepo
	links     *LinkRepo
	users     *UserRepo
	bookings  *BookingRepo
	tokens    *TokenRepo
}

func newSession(tx *sql.Tx) *session {
	ct := &countingTx{Tx: tx}
	return &session{
		tx:        ct,
		providers: NewProviderRepo(ct),
		services:  NewServiceOfferingRepo(ct),
		links:     NewLinkRepo(ct),
		users:     NewUserRepo(ct),
		bookings:  NewBookingRepo(ct),
		tokens:    NewTokenRepo(ct),
	}
}

func (s *session) Providers() ports.ProviderStore               { return s.providers }
func (s *session) ServiceOfferings() ports.ServiceOfferingStore { return s.services }
func (s *session) Links() ports.LinkStore                       { return s.links }
func (s *session) Users() ports.UserStore                       { return s.users }
func (s *session) Bookings() ports.BookingStore                 { return s.bookings }
func (s *session) Tokens() ports.TokenStore                     { return s.tokens }

// Commit commits the transaction and reports how many rows the session
// changed.  Lock conflicts raised at commit time surface as
// ErrLockConflict.
func (s *session) Commit() (int64, error) {
	if s.done {
		return 0, sql.ErrTxDone
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", classify(err))
	}
	return s.tx.changes.Load(), nil
}

// Rollback aborts the transaction.  It does nothing once the session
// has been committed or rolled back.
func (s *session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Rollback()
}
