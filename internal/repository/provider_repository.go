package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/pagination"
)

// ProviderRepo encapsulates all queries against the providers table.
type ProviderRepo struct {
	db Querier
}

// NewProviderRepo constructs a ProviderRepo on a connection pool or a
// transaction.
func NewProviderRepo(db Querier) *ProviderRepo { return &ProviderRepo{db: db} }

const providerColumns = "id, name, description, logo_url, concurrent_capacity, user_id, created_at, updated_at"

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProvider(s scanner) (*model.Provider, error) {
	var (
		p      model.Provider
		desc   sql.NullString
		logo   sql.NullString
		userID sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Name, &desc, &logo, &p.ConcurrentCapacity, &userID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = nullString(desc)
	p.LogoURL = nullString(logo)
	p.UserID = nullUint(userID)
	return &p, nil
}

func (r *ProviderRepo) getOne(ctx context.Context, q string, args ...any) (*model.Provider, error) {
	p, err := scanProvider(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

// GetByID fetches a provider by primary key.
func (r *ProviderRepo) GetByID(ctx context.Context, id uint64) (*model.Provider, error) {
	return r.getOne(ctx, "SELECT "+providerColumns+" FROM providers WHERE id = ?", id)
}

// GetByIDForUpdate fetches a provider and takes an exclusive row lock on
// it.  The lock is held until the surrounding transaction ends, so two
// admissions against the same provider cannot interleave their conflict
// check and their write.  Outside a transaction the lock is released as
// soon as the statement completes.
func (r *ProviderRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Provider, error) {
	return r.getOne(ctx, "SELECT "+providerColumns+" FROM providers WHERE id = ? FOR UPDATE", id)
}

// GetByUserID returns the provider profile linked to a user account.
func (r *ProviderRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Provider, error) {
	return r.getOne(ctx, "SELECT "+providerColumns+" FROM providers WHERE user_id = ? LIMIT 1", userID)
}

// GetByName returns the provider with the given name.
func (r *ProviderRepo) GetByName(ctx context.Context, name string) (*model.Provider, error) {
	return r.getOne(ctx, "SELECT "+providerColumns+" FROM providers WHERE name = ? LIMIT 1", name)
}

// GetByIDs returns the providers whose ids are listed, ordered by id.
// Unknown ids are skipped; callers compare lengths to detect them.
func (r *ProviderRepo) GetByIDs(ctx context.Context, ids []uint64) ([]model.Provider, error) {
	if len(ids) == 0 {
		return []model.Provider{}, nil
	}
	q := "SELECT " + providerColumns + " FROM providers WHERE id IN (" + placeholders(len(ids)) + ") ORDER BY id"
	return r.query(ctx, q, uintArgs(ids)...)
}

// List returns one page of providers ordered by id and the total count.
func (r *ProviderRepo) List(ctx context.Context, params pagination.Params) ([]model.Provider, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM providers").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count providers: %w", err)
	}
	out, err := r.query(ctx, "SELECT "+providerColumns+" FROM providers ORDER BY id LIMIT ? OFFSET ?",
		params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ProviderRepo) query(ctx context.Context, q string, args ...any) ([]model.Provider, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []model.Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a provider and populates its ID and timestamps.
func (r *ProviderRepo) Create(ctx context.Context, p *model.Provider) error {
	const q = `INSERT INTO providers (name, description, logo_url, concurrent_capacity, user_id)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.Name, p.Description, p.LogoURL, p.ConcurrentCapacity, p.UserID)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	// Read back defaults such as created_at.
	const sel = "SELECT created_at, updated_at FROM providers WHERE id = ?"
	return classify(r.db.QueryRowContext(ctx, sel, p.ID).Scan(&p.CreatedAt, &p.UpdatedAt))
}

// Update writes every mutable column of p.
func (r *ProviderRepo) Update(ctx context.Context, p *model.Provider) error {
	const q = `UPDATE providers
	           SET name = ?, description = ?, logo_url = ?, concurrent_capacity = ?, user_id = ?,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, p.Name, p.Description, p.LogoURL, p.ConcurrentCapacity, p.UserID, p.ID)
	if err != nil {
		return classify(err)
	}
	return requireRow(res)
}

// Delete removes a provider and its service links.  Bookings reference
// providers with a restricting foreign key, so a provider with bookings
// cannot be deleted.
func (r *ProviderRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM provider_services WHERE provider_id = ?", id); err != nil {
		return classify(err)
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM providers WHERE id = ?", id)
	if err != nil {
		return classify(err)
	}
	return requireRow(res)
}

// requireRow reports ErrNotFound when a write matched no row.  MySQL
// counts only changed rows by default, so the connection string sets
// clientFoundRows for updates that leave the row unchanged.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
