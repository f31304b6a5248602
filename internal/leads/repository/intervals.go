package repository

import (
	"context"

	"nurture_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// FollowUpIntervals returns the operator's configured status -> days mapping.
// Statuses without a row fall back to the scheduler defaults; the core never
// writes this table.
func (r *Repository) FollowUpIntervals(ctx context.Context, operatorID uuid.UUID) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, days FROM follow_up_intervals WHERE operator_id = $1`, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intervals := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var days int
		if err := rows.Scan(&status, &days); err != nil {
			return nil, err
		}
		intervals[status] = days
	}
	return intervals, rows.Err()
}
