package repository

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/calls/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("call not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Call struct {
	ID              uuid.UUID
	LeadID          *uuid.UUID
	Direction       domain.Direction
	Status          domain.Status
	ExternalCallID  *string
	CallMode        domain.Mode
	FromNumber      string
	ToNumber        string
	StartedAt       *time.Time
	EndedAt         *time.Time
	DurationSeconds *int
	CreatedAt       time.Time
}

// Snapshot extracts the fields the transition rules operate on.
func (c Call) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Status:          c.Status,
		StartedAt:       c.StartedAt,
		EndedAt:         c.EndedAt,
		DurationSeconds: c.DurationSeconds,
	}
}

const callColumns = `id, lead_id, direction, status, external_call_id, call_mode,
	from_number, to_number, started_at, ended_at, duration_seconds, created_at`

func scanCall(row pgx.Row) (Call, error) {
	var c Call
	err := row.Scan(
		&c.ID, &c.LeadID, &c.Direction, &c.Status, &c.ExternalCallID, &c.CallMode,
		&c.FromNumber, &c.ToNumber, &c.StartedAt, &c.EndedAt, &c.DurationSeconds, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	return c, err
}

type CreateQueuedParams struct {
	LeadID     uuid.UUID
	CallMode   domain.Mode
	FromNumber string
	ToNumber   string
}

// CreateQueued inserts the local-first queued row, before the provider has
// assigned an external id.
func (r *Repository) CreateQueued(ctx context.Context, params CreateQueuedParams) (Call, error) {
	return scanCall(r.pool.QueryRow(ctx, `
		INSERT INTO calls (lead_id, direction, status, call_mode, from_number, to_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+callColumns,
		params.LeadID, domain.DirectionOutbound, domain.StatusQueued,
		params.CallMode, params.FromNumber, params.ToNumber,
	))
}

type CreateFromCallbackParams struct {
	LeadID          *uuid.UUID
	Direction       domain.Direction
	Status          domain.Status
	ExternalCallID  string
	FromNumber      string
	ToNumber        string
	StartedAt       *time.Time
	EndedAt         *time.Time
	DurationSeconds *int
}

// CreateFromCallback inserts the provider-first row for an external call id
// no local row claimed.
func (r *Repository) CreateFromCallback(ctx context.Context, params CreateFromCallbackParams) (Call, error) {
	return scanCall(r.pool.QueryRow(ctx, `
		INSERT INTO calls (lead_id, direction, status, external_call_id, call_mode,
			from_number, to_number, started_at, ended_at, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+callColumns,
		params.LeadID, params.Direction, params.Status, params.ExternalCallID,
		domain.ModeManual, params.FromNumber, params.ToNumber,
		params.StartedAt, params.EndedAt, params.DurationSeconds,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Call, error) {
	return scanCall(r.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE id = $1`, id))
}

func (r *Repository) GetByExternalID(ctx context.Context, externalCallID string) (Call, error) {
	return scanCall(r.pool.QueryRow(ctx, `
		SELECT `+callColumns+` FROM calls WHERE external_call_id = $1`, externalCallID))
}

// FindAdoptableOutbound returns the most recent outbound call to the number
// still waiting for its external id.
func (r *Repository) FindAdoptableOutbound(ctx context.Context, toNumber string) (Call, error) {
	return scanCall(r.pool.QueryRow(ctx, `
		SELECT `+callColumns+` FROM calls
		WHERE to_number = $1
		  AND direction = $2
		  AND status IN ($3, $4)
		  AND external_call_id IS NULL
		ORDER BY created_at DESC
		LIMIT 1`,
		toNumber, domain.DirectionOutbound, domain.StatusQueued, domain.StatusInitiated))
}

// FindRecentQueued is the status-callback fallback tier: a queued call to the
// number created after the cutoff.
func (r *Repository) FindRecentQueued(ctx context.Context, toNumber string, cutoff time.Time) (Call, error) {
	return scanCall(r.pool.QueryRow(ctx, `
		SELECT `+callColumns+` FROM calls
		WHERE to_number = $1
		  AND status = $2
		  AND external_call_id IS NULL
		  AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1`,
		toNumber, domain.StatusQueued, cutoff))
}

// AdoptExternalID claims an external call id for a local row. The guard on
// NULL keeps the at-most-one-owner invariant when two callbacks race.
func (r *Repository) AdoptExternalID(ctx context.Context, id uuid.UUID, externalCallID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calls SET external_call_id = $2
		WHERE id = $1 AND external_call_id IS NULL`, id, externalCallID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSnapshot persists the outcome of a transition rule application.
func (r *Repository) UpdateSnapshot(ctx context.Context, id uuid.UUID, s domain.Snapshot) (Call, error) {
	return scanCall(r.pool.QueryRow(ctx, `
		UPDATE calls SET status = $2, started_at = $3, ended_at = $4, duration_seconds = $5
		WHERE id = $1
		RETURNING `+callColumns,
		id, s.Status, s.StartedAt, s.EndedAt, s.DurationSeconds))
}

// SetLeadID attaches a lead resolved after creation.
func (r *Repository) SetLeadID(ctx context.Context, id, leadID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calls SET lead_id = $2 WHERE id = $1 AND lead_id IS NULL`, id, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Call, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+callColumns+` FROM calls
		WHERE lead_id = $1
		ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListStuck returns in-progress calls whose startedAt is older than the
// cutoff. A nil leadID scans all leads.
func (r *Repository) ListStuck(ctx context.Context, cutoff time.Time, leadID *uuid.UUID) ([]Call, error) {
	query := `
		SELECT ` + callColumns + ` FROM calls
		WHERE status = $1 AND started_at IS NOT NULL AND started_at < $2`
	args := []any{domain.StatusInProgress, cutoff}
	if leadID != nil {
		query += ` AND lead_id = $3`
		args = append(args, *leadID)
	}
	query += ` ORDER BY started_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Call, error) {
	calls := make([]Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
