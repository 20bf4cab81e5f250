package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/pagination"
)

// ServiceOfferingRepo encapsulates all queries against the
// service_offerings table.
type ServiceOfferingRepo struct {
	db Querier
}

func NewServiceOfferingRepo(db Querier) *ServiceOfferingRepo { return &ServiceOfferingRepo{db: db} }

const serviceColumns = "id, name, description, total_hours, created_at, updated_at"

func scanService(s scanner) (*model.ServiceOffering, error) {
	var (
		so   model.ServiceOffering
		desc sql.NullString
	)
	if err := s.Scan(&so.ID, &so.Name, &desc, &so.TotalHours, &so.CreatedAt, &so.UpdatedAt); err != nil {
		return nil, err
	}
	so.Description = nullString(desc)
	return &so, nil
}

func (r *ServiceOfferingRepo) getOne(ctx context.Context, q string, args ...any) (*model.ServiceOffering, error) {
	so, err := scanService(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, classify(err)
	}
	return so, nil
}

func (r *ServiceOfferingRepo) GetByID(ctx context.Context, id uint64) (*model.ServiceOffering, error) {
	return r.getOne(ctx, "SELECT "+serviceColumns+" FROM service_offerings WHERE id = ?", id)
}

func (r *ServiceOfferingRepo) GetByName(ctx context.Context, name string) (*model.ServiceOffering, error) {
	return r.getOne(ctx, "SELECT "+serviceColumns+" FROM service_offerings WHERE name = ? LIMIT 1", name)
}

// GetByIDs returns the offerings whose ids are listed, ordered by id.
func (r *ServiceOfferingRepo) GetByIDs(ctx context.Context, ids []uint64) ([]model.ServiceOffering, error) {
	if len(ids) == 0 {
		return []model.ServiceOffering{}, nil
	}
	q := "SELECT " + serviceColumns + " FROM service_offerings WHERE id IN (" + placeholders(len(ids)) + ") ORDER BY id"
	return r.query(ctx, q, uintArgs(ids)...)
}

// List returns one page of offerings ordered by id and the total count.
func (r *ServiceOfferingRepo) List(ctx context.Context, params pagination.Params) ([]model.ServiceOffering, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM service_offerings").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count service offerings: %w", err)
	}
	out, err := r.query(ctx, "SELECT "+serviceColumns+" FROM service_offerings ORDER BY id LIMIT ? OFFSET ?",
		params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ServiceOfferingRepo) query(ctx context.Context, q string, args ...any) ([]model.ServiceOffering, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []model.ServiceOffering{}
	for rows.Next() {
		so, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *so)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts an offering and populates its ID and timestamps.
func (r *ServiceOfferingRepo) Create(ctx context.Context, so *model.ServiceOffering) error {
	const q = "INSERT INTO service_offerings (name, description, total_hours) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, so.Name, so.Description, so.TotalHours)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	so.ID = uint64(id)
	const sel = "SELECT created_at, updated_at FROM service_offerings WHERE id = ?"
	return classify(r.db.QueryRowContext(ctx, sel, so.ID).Scan(&so.CreatedAt, &so.UpdatedAt))
}

func (r *ServiceOfferingRepo) Update(ctx context.Context, so *model.ServiceOffering) error {
	const q = `UPDATE service_offerings
	           SET name = ?, description = ?, total_hours = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, so.Name, so.Description, so.TotalHours, so.ID)
	if err != nil {
		return classify(err)
	}
	return requireRow(res)
}

// Delete removes an offering and its provider links.
func (r *ServiceOfferingRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM provider_services WHERE service_offering_id = ?", id); err != nil {
		return classify(err)
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM service_offerings WHERE id = ?", id)
	if err != nil {
		return classify(err)
	}
	return requireRow(res)
}
