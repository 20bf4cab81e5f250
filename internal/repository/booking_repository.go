package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/pagination"
)

// BookingRepo provides persistence for bookings.  Bookings are never
// deleted; cancellation is a status change.  All timestamps are stored
// in UTC.
type BookingRepo struct {
	db Querier
}

// NewBookingRepo returns a BookingRepo bound to a connection pool or a
// transaction.
func NewBookingRepo(db Querier) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = "id, service_offering_id, provider_id, user_id, status, initial_date, final_date, created_at, updated_at"

// bookingDetailSelect joins the names shown next to a booking.
const bookingDetailSelect = `SELECT b.id, b.service_offering_id, b.provider_id, b.user_id, b.status,
       b.initial_date, b.final_date, b.created_at, b.updated_at,
       p.name, s.name, u.name
FROM bookings b
JOIN providers p ON p.id = b.provider_id
JOIN service_offerings s ON s.id = b.service_offering_id
JOIN users u ON u.id = b.user_id`

func scanBooking(s scanner) (*model.Booking, error) {
	var b model.Booking
	if err := s.Scan(&b.ID, &b.ServiceOfferingID, &b.ProviderID, &b.UserID, &b.Status,
		&b.InitialDate, &b.FinalDate, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBookingDetail(s scanner) (*model.BookingDetail, error) {
	var d model.BookingDetail
	if err := s.Scan(&d.ID, &d.ServiceOfferingID, &d.ProviderID, &d.UserID, &d.Status,
		&d.InitialDate, &d.FinalDate, &d.CreatedAt, &d.UpdatedAt,
		&d.ProviderName, &d.ServiceOfferingName, &d.UserName); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByIDAndUser returns a booking only when it belongs to userID.
// Ownership is part of the WHERE clause so a foreign booking is
// indistinguishable from a missing one.
func (r *BookingRepo) GetByIDAndUser(ctx context.Context, id, userID uint64) (*model.Booking, error) {
	q := "SELECT " + bookingColumns + " FROM bookings WHERE id = ? AND user_id = ?"
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id, userID))
	if err != nil {
		return nil, classify(err)
	}
	return b, nil
}

// GetByIDAndProvider returns a booking only when it was made against
// providerID.
func (r *BookingRepo) GetByIDAndProvider(ctx context.Context, id, providerID uint64) (*model.Booking, error) {
	q := "SELECT " + bookingColumns + " FROM bookings WHERE id = ? AND provider_id = ?"
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id, providerID))
	if err != nil {
		return nil, classify(err)
	}
	return b, nil
}

// GetWithDetails loads a booking joined with its provider, service and
// user names.
func (r *BookingRepo) GetWithDetails(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	d, err := scanBookingDetail(r.db.QueryRowContext(ctx, bookingDetailSelect+" WHERE b.id = ?", id))
	if err != nil {
		return nil, classify(err)
	}
	return d, nil
}

// CountConflicting counts the provider's non-cancelled bookings whose
// interval [initial_date, final_date) overlaps w.  When excludeID is
// set that booking is left out so a reschedule never conflicts with its
// own previous slot.
func (r *BookingRepo) CountConflicting(ctx context.Context, providerID uint64, w model.Window, excludeID *uint64) (int, error) {
	q := `SELECT COUNT(*) FROM bookings
	      WHERE provider_id = ? AND status <> ? AND initial_date < ? AND final_date > ?`
	args := []any{providerID, model.BookingCancelled, w.End.UTC(), w.Start.UTC()}
	if excludeID != nil {
		q += " AND id <> ?"
		args = append(args, *excludeID)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// ListByUser pages the bookings owned by a user, most recent slot first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, params pagination.Params) ([]model.BookingDetail, int, error) {
	return r.list(ctx, "user_id", userID, params)
}

// ListByProvider pages the bookings made against a provider.
func (r *BookingRepo) ListByProvider(ctx context.Context, providerID uint64, params pagination.Params) ([]model.BookingDetail, int, error) {
	return r.list(ctx, "provider_id", providerID, params)
}

// list is shared by the listing methods.  column is never user input.
func (r *BookingRepo) list(ctx context.Context, column string, id uint64, params pagination.Params) ([]model.BookingDetail, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings WHERE "+column+" = ?", id).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", classify(err))
	}
	q := bookingDetailSelect + " WHERE b." + column + " = ? ORDER BY b.initial_date DESC, b.id DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, id, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	out := []model.BookingDetail{}
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Create inserts a booking and populates its ID and timestamps.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (service_offering_id, provider_id, user_id, status, initial_date, final_date)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.ServiceOfferingID, b.ProviderID, b.UserID, b.Status,
		b.InitialDate.UTC(), b.FinalDate.UTC())
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = "SELECT created_at, updated_at FROM bookings WHERE id = ?"
	return classify(r.db.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt))
}

// Update writes the provider, status and slot of a booking.  The
// service and owner of a booking never change.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings
	           SET provider_id = ?, status = ?, initial_date = ?, final_date = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, b.ProviderID, b.Status, b.InitialDate.UTC(), b.FinalDate.UTC(), b.ID)
	if err != nil {
		return classify(err)
	}
	return requireRow(res)
}
