package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("message not found")

// Sender identifies who authored the message.
type Sender string

const (
	SenderLead  Sender = "lead"
	SenderAgent Sender = "agent"
)

// Direction of a message relative to this system.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Delivery statuses. Inbound messages are stored as delivered; outbound
// messages move scheduled -> queued -> sent -> delivered, or end in failed
// or undelivered. Delivered, failed and undelivered are terminal.
const (
	StatusScheduled   = "scheduled"
	StatusQueued      = "queued"
	StatusSent        = "sent"
	StatusDelivered   = "delivered"
	StatusFailed      = "failed"
	StatusUndelivered = "undelivered"
)

// Metadata carries structured annotations detected on a message.
type Metadata struct {
	AppointmentIntent    bool `json:"appointmentIntent,omitempty"`
	PropertySearchIntent bool `json:"propertySearchIntent,omitempty"`
	QualifyingSignal     bool `json:"qualifyingSignal,omitempty"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Message struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	OperatorID     uuid.UUID
	Sender         Sender
	Direction      Direction
	Body           string
	DeliveryStatus string
	IsAIGenerated  bool
	ExternalID     *string
	Metadata       Metadata
	ScheduledAt    *time.Time
	CreatedAt      time.Time
}

const messageColumns = `id, lead_id, operator_id, sender, direction, body,
	delivery_status, is_ai_generated, external_id, metadata, scheduled_at, created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(
		&m.ID, &m.LeadID, &m.OperatorID, &m.Sender, &m.Direction, &m.Body,
		&m.DeliveryStatus, &m.IsAIGenerated, &m.ExternalID, &m.Metadata,
		&m.ScheduledAt, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	return m, err
}

type InsertInboundParams struct {
	LeadID     uuid.UUID
	OperatorID uuid.UUID
	Body       string
	ExternalID string
	Metadata   Metadata
	ReceivedAt time.Time
}

// InsertInbound persists an inbound message with deliveryStatus=delivered.
// The unique constraint on external_id absorbs provider redeliveries; the
// second return value reports whether this call actually inserted the row.
func (r *Repository) InsertInbound(ctx context.Context, params InsertInboundParams) (Message, bool, error) {
	msg, err := scanMessage(r.pool.QueryRow(ctx, `
		INSERT INTO messages (lead_id, operator_id, sender, direction, body, delivery_status, external_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING `+messageColumns,
		params.LeadID, params.OperatorID, SenderLead, DirectionInbound, params.Body,
		StatusDelivered, params.ExternalID, params.Metadata, params.ReceivedAt,
	))
	if errors.Is(err, ErrNotFound) {
		// Conflict path: the row already exists from an earlier delivery.
		existing, getErr := r.GetByExternalID(ctx, params.ExternalID)
		if getErr != nil {
			return Message{}, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return Message{}, false, err
	}
	return msg, true, nil
}

type InsertOutboundParams struct {
	LeadID        uuid.UUID
	OperatorID    uuid.UUID
	Body          string
	Status        string
	ExternalID    *string
	IsAIGenerated bool
	Metadata      Metadata
	ScheduledAt   *time.Time
}

func (r *Repository) InsertOutbound(ctx context.Context, params InsertOutboundParams) (Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `
		INSERT INTO messages (lead_id, operator_id, sender, direction, body, delivery_status, external_id, is_ai_generated, metadata, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+messageColumns,
		params.LeadID, params.OperatorID, SenderAgent, DirectionOutbound, params.Body,
		params.Status, params.ExternalID, params.IsAIGenerated, params.Metadata, params.ScheduledAt,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
}

func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE external_id = $1`, externalID))
}

// ListByLead returns the lead's conversation in chronological order.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// LastN returns the most recent n messages for a lead, oldest first, as
// conversation context for reply generation.
func (r *Repository) LastN(ctx context.Context, leadID uuid.UUID, n int) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM messages
			WHERE lead_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent ORDER BY created_at ASC, id ASC`, leadID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// LatestInboundID returns the id of the lead's newest inbound message, used
// to drop replies superseded by a later message from the lead.
func (r *Repository) LatestInboundID(ctx context.Context, leadID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM messages
		WHERE lead_id = $1 AND direction = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, leadID, DirectionInbound).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	return id, err
}

func (r *Repository) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status string) (Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `
		UPDATE messages SET delivery_status = $2 WHERE id = $1
		RETURNING `+messageColumns, id, status))
}

// UpdateDeliveryStatusByExternalID applies a provider delivery-status
// callback. Terminal statuses never regress to earlier ones when callbacks
// arrive out of order.
func (r *Repository) UpdateDeliveryStatusByExternalID(ctx context.Context, externalID, status string) (Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `
		UPDATE messages SET delivery_status = $2
		WHERE external_id = $1
		  AND delivery_status NOT IN ($3, $4, $5)
		RETURNING `+messageColumns,
		externalID, status, StatusDelivered, StatusFailed, StatusUndelivered))
}

// SetExternalID records the provider message id once a send has been accepted.
func (r *Repository) SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET external_id = $2 WHERE id = $1`, id, externalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]Message, error) {
	messages := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
