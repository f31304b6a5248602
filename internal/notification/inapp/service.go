// Package inapp stores and serves operator-facing in-app notifications.
package inapp

import (
	"context"

	"nurture_backend/platform/apperr"

	"github.com/google/uuid"
)

// bodyPreviewLen caps how much of a message body lands in a notification.
const bodyPreviewLen = 120

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// NotifyNewMessage records an in-app notification for an inbound message,
// with the body truncated to a preview.
func (s *Service) NotifyNewMessage(ctx context.Context, operatorID, leadID uuid.UUID, leadName, body string) (Notification, error) {
	resourceType := "lead"
	return s.repo.Create(ctx, CreateParams{
		OperatorID:   operatorID,
		Title:        "New message from " + leadName,
		Content:      TruncateBody(body),
		ResourceID:   &leadID,
		ResourceType: &resourceType,
		Category:     "message",
	})
}

// NotifyCallCompleted records an in-app notification for a finished call.
func (s *Service) NotifyCallCompleted(ctx context.Context, operatorID, callID uuid.UUID, status string) (Notification, error) {
	resourceType := "call"
	return s.repo.Create(ctx, CreateParams{
		OperatorID:   operatorID,
		Title:        "Call " + status,
		Content:      "A call finished with status " + status + ".",
		ResourceID:   &callID,
		ResourceType: &resourceType,
		Category:     "call",
	})
}

func (s *Service) List(ctx context.Context, operatorID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, operatorID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, operatorID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, operatorID)
}

func (s *Service) MarkRead(ctx context.Context, operatorID, notificationID uuid.UUID) error {
	err := s.repo.MarkRead(ctx, operatorID, notificationID)
	if err == ErrNotFound {
		return apperr.NotFound("notification not found")
	}
	return err
}

func (s *Service) MarkAllRead(ctx context.Context, operatorID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, operatorID)
}

// TruncateBody shortens a message body to its notification preview.
func TruncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= bodyPreviewLen {
		return body
	}
	return string(runes[:bodyPreviewLen]) + "..."
}
