// Package repository persists operator accounts for authentication.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no operator matches the lookup.
var ErrNotFound = errors.New("operator not found")

// Operator is an operator account row.
type Operator struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const operatorColumns = `id, name, email, phone, password_hash, created_at`

func (r *Repository) GetByEmail(ctx context.Context, email string) (Operator, error) {
	var op Operator
	err := r.pool.QueryRow(ctx, `
		SELECT `+operatorColumns+` FROM operators WHERE lower(email) = lower($1)`, email).
		Scan(&op.ID, &op.Name, &op.Email, &op.Phone, &op.PasswordHash, &op.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Operator{}, ErrNotFound
	}
	return op, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Operator, error) {
	var op Operator
	err := r.pool.QueryRow(ctx, `
		SELECT `+operatorColumns+` FROM operators WHERE id = $1`, id).
		Scan(&op.ID, &op.Name, &op.Email, &op.Phone, &op.PasswordHash, &op.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Operator{}, ErrNotFound
	}
	return op, err
}
