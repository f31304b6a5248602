package inapp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID           uuid.UUID  `json:"id"`
	OperatorID   uuid.UUID  `json:"operatorId"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	ResourceID   *uuid.UUID `json:"resourceId,omitempty"`
	ResourceType *string    `json:"resourceType,omitempty"`
	Category     string     `json:"category"`
	IsRead       bool       `json:"isRead"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type CreateParams struct {
	OperatorID   uuid.UUID
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType *string
	Category     string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notificationColumns = `id, operator_id, title, content, resource_id,
	resource_type, category, is_read, created_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID, &n.OperatorID, &n.Title, &n.Content, &n.ResourceID,
		&n.ResourceType, &n.Category, &n.IsRead, &n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Notification{}, ErrNotFound
	}
	return n, err
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	category := p.Category
	if category == "" {
		category = "info"
	}
	return scanNotification(r.pool.QueryRow(ctx, `
		INSERT INTO notifications (operator_id, title, content, resource_id, resource_type, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+notificationColumns,
		p.OperatorID, p.Title, p.Content, p.ResourceID, p.ResourceType, category,
	))
}

func (r *Repository) List(ctx context.Context, operatorID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE operator_id = $1`, operatorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE operator_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, operatorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *Repository) CountUnread(ctx context.Context, operatorID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE operator_id = $1 AND is_read = FALSE`, operatorID).Scan(&count)
	return count, err
}

func (r *Repository) MarkRead(ctx context.Context, operatorID, notificationID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND operator_id = $2`, notificationID, operatorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, operatorID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = now()
		WHERE operator_id = $1 AND is_read = FALSE`, operatorID)
	return err
}
