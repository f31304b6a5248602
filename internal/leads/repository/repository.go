package repository

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/leads/domain"
	"nurture_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                     uuid.UUID
	OperatorID             uuid.UUID
	Name                   string
	Phone                  string
	PhoneSuffix            string
	Email                  *string
	Status                 domain.Status
	AIAssistantEnabled     bool
	MessageCount           int
	LastMessageAt          *time.Time
	NextScheduledMessageAt *time.Time
	Context                string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

type CreateLeadParams struct {
	OperatorID         uuid.UUID
	Name               string
	Phone              string
	Email              *string
	AIAssistantEnabled bool
	Context            string
}

const leadColumns = `id, operator_id, name, phone, phone_suffix, email, status,
	ai_assistant_enabled, message_count, last_message_at, next_scheduled_message_at,
	context, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.OperatorID, &l.Name, &l.Phone, &l.PhoneSuffix, &l.Email, &l.Status,
		&l.AIAssistantEnabled, &l.MessageCount, &l.LastMessageAt, &l.NextScheduledMessageAt,
		&l.Context, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	normalized := phone.NormalizeE164(params.Phone)
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (operator_id, name, phone, phone_suffix, email, status, ai_assistant_enabled, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+leadColumns,
		params.OperatorID, params.Name, normalized, phone.Last10(normalized),
		params.Email, domain.StatusNew, params.AIAssistantEnabled, params.Context,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

// GetByExactPhone is the first matching tier: the stored E.164 string.
func (r *Repository) GetByExactPhone(ctx context.Context, normalized string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE phone = $1
		ORDER BY created_at ASC LIMIT 1`, normalized))
}

// GetByPhoneSuffix is the second tier: indexed last-10-digit lookup, tolerant
// of country-code and formatting differences.
func (r *Repository) GetByPhoneSuffix(ctx context.Context, suffix string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE phone_suffix = $1
		ORDER BY created_at ASC LIMIT 1`, suffix))
}

// ListAll streams every lead for the final scan tier. Kept as the explicit
// last fallback of the matching contract; rows created before the suffix
// column was backfilled are still reachable through it.
func (r *Repository) ListAll(ctx context.Context) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (r *Repository) ListByOperator(ctx context.Context, operatorID uuid.UUID) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE operator_id = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC`, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// ListFollowUpDue returns leads whose next scheduled contact has elapsed and
// whose AI assistant is on.
func (r *Repository) ListFollowUpDue(ctx context.Context, now time.Time, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE next_scheduled_message_at IS NOT NULL
		  AND next_scheduled_message_at <= $1
		  AND ai_assistant_enabled = true
		ORDER BY next_scheduled_message_at ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id, status))
}

// RecordInbound bumps the message counters and applies the post-inbound
// status in a single statement, so concurrent events for the same lead read a
// consistent row.
func (r *Repository) RecordInbound(ctx context.Context, id uuid.UUID, status domain.Status, receivedAt time.Time) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $2, message_count = message_count + 1,
			last_message_at = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id, status, receivedAt))
}

func (r *Repository) SetNextScheduledMessageAt(ctx context.Context, id uuid.UUID, at *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET next_scheduled_message_at = $2, updated_at = now()
		WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAIAssistantEnabled toggles the assistant. Turning it off also clears any
// pending scheduled contact so no stale automated send survives the toggle.
func (r *Repository) SetAIAssistantEnabled(ctx context.Context, id uuid.UUID, enabled bool) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET ai_assistant_enabled = $2,
			next_scheduled_message_at = CASE WHEN $2 THEN next_scheduled_message_at ELSE NULL END,
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id, enabled))
}

func (r *Repository) UpdateContext(ctx context.Context, id uuid.UUID, context string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET context = $2, updated_at = now() WHERE id = $1`, id, context)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
