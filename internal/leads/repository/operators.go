package repository

import (
	"context"
	"errors"

	"nurture_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ResolveOperatorID maps the gateway number an inbound message arrived on to
// the owning operator, falling back to the oldest operator account. Used when
// an unmatched inbound creates a placeholder lead that needs an owner.
func (r *Repository) ResolveOperatorID(ctx context.Context, gatewayNumber string) (uuid.UUID, error) {
	suffix := phone.Last10(gatewayNumber)
	if suffix != "" {
		var id uuid.UUID
		err := r.pool.QueryRow(ctx, `
			SELECT id FROM operators WHERE phone_suffix = $1
			ORDER BY created_at ASC LIMIT 1`, suffix).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, err
		}
	}

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM operators ORDER BY created_at ASC LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	return id, err
}
