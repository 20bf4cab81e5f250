package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/service-booking/internal/ports"
)

// LinkRepo manages the provider_services join table.
type LinkRepo struct {
	db Querier
}

func NewLinkRepo(db Querier) *LinkRepo { return &LinkRepo{db: db} }

// ServiceIDs lists the offerings linked to a provider.
func (r *LinkRepo) ServiceIDs(ctx context.Context, providerID uint64) ([]uint64, error) {
	return r.ids(ctx, "SELECT service_offering_id FROM provider_services WHERE provider_id = ? ORDER BY service_offering_id", providerID)
}

// ProviderIDs lists the providers linked to an offering.
func (r *LinkRepo) ProviderIDs(ctx context.Context, serviceOfferingID uint64) ([]uint64, error) {
	return r.ids(ctx, "SELECT provider_id FROM provider_services WHERE service_offering_id = ? ORDER BY provider_id", serviceOfferingID)
}

func (r *LinkRepo) ids(ctx context.Context, q string, arg uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	out := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Add inserts links in a single statement.  Existing pairs are ignored.
func (r *LinkRepo) Add(ctx context.Context, links ...ports.Link) error {
	if len(links) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("INSERT IGNORE INTO provider_services (provider_id, service_offering_id) VALUES ")
	args := make([]any, 0, len(links)*2)
	for i, l := range links {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?)")
		args = append(args, l.ProviderID, l.ServiceOfferingID)
	}
	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return classify(err)
}

// Remove deletes links in a single statement.
func (r *LinkRepo) Remove(ctx context.Context, links ...ports.Link) error {
	if len(links) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("DELETE FROM provider_services WHERE (provider_id, service_offering_id) IN (")
	args := make([]any, 0, len(links)*2)
	for i, l := range links {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?)")
		args = append(args, l.ProviderID, l.ServiceOfferingID)
	}
	sb.WriteString(")")
	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return classify(err)
}
