// Package service implements operator-facing lead operations. Automatic
// transitions live in the inbound pipeline; everything here is an explicit
// operator decision and therefore always overrides computed state.
package service

import (
	"context"
	"errors"

	"nurture_backend/internal/events"
	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/keyedlock"

	"github.com/google/uuid"
)

// Store is the persistence capability the lead service needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	ListByOperator(ctx context.Context, operatorID uuid.UUID) ([]repository.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (repository.Lead, error)
	SetAIAssistantEnabled(ctx context.Context, id uuid.UUID, enabled bool) (repository.Lead, error)
	UpdateContext(ctx context.Context, id uuid.UUID, context string) error
}

// Service handles explicit lead mutations from the operator surface.
type Service struct {
	store    Store
	locks    *keyedlock.KeyedLock
	eventBus events.Bus
}

// New creates a lead service. The keyed lock must be the same instance used
// by the inbound pipeline so explicit updates serialize with pipeline events.
func New(store Store, locks *keyedlock.KeyedLock, eventBus events.Bus) *Service {
	return &Service{store: store, locks: locks, eventBus: eventBus}
}

// CreateParams describes an explicit lead add.
type CreateParams struct {
	OperatorID         uuid.UUID
	Name               string
	Phone              string
	Email              *string
	AIAssistantEnabled bool
	Context            string
}

// Create adds a lead explicitly.
func (s *Service) Create(ctx context.Context, params CreateParams) (repository.Lead, error) {
	lead, err := s.store.Create(ctx, repository.CreateLeadParams{
		OperatorID:         params.OperatorID,
		Name:               params.Name,
		Phone:              params.Phone,
		Email:              params.Email,
		AIAssistantEnabled: params.AIAssistantEnabled,
		Context:            params.Context,
	})
	if err != nil {
		return repository.Lead{}, err
	}

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		OperatorID: lead.OperatorID,
		Phone:      lead.Phone,
		Source:     "manual",
	})
	return lead, nil
}

// Get returns a lead owned by the operator.
func (s *Service) Get(ctx context.Context, operatorID, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, err
	}
	if lead.OperatorID != operatorID {
		return repository.Lead{}, apperr.Forbidden("lead belongs to another operator")
	}
	return lead, nil
}

// List returns the operator's leads, most recently contacted first.
func (s *Service) List(ctx context.Context, operatorID uuid.UUID) ([]repository.Lead, error) {
	return s.store.ListByOperator(ctx, operatorID)
}

// UpdateStatus applies an explicit status override. Backward moves are
// allowed here and only here.
func (s *Service) UpdateStatus(ctx context.Context, operatorID, leadID uuid.UUID, status domain.Status) (repository.Lead, error) {
	if !domain.Valid(status) {
		return repository.Lead{}, apperr.Validation("unknown lead status")
	}

	unlock := s.locks.Lock(leadID.String())
	defer unlock()

	if _, err := s.Get(ctx, operatorID, leadID); err != nil {
		return repository.Lead{}, err
	}
	return s.store.UpdateStatus(ctx, leadID, status)
}

// SetAIAssistant toggles the assistant flag. Disabling clears the pending
// scheduled contact; any already-enqueued reply re-checks the flag at fire
// time, so no send escapes the toggle.
func (s *Service) SetAIAssistant(ctx context.Context, operatorID, leadID uuid.UUID, enabled bool) (repository.Lead, error) {
	unlock := s.locks.Lock(leadID.String())
	defer unlock()

	if _, err := s.Get(ctx, operatorID, leadID); err != nil {
		return repository.Lead{}, err
	}
	return s.store.SetAIAssistantEnabled(ctx, leadID, enabled)
}

// UpdateContext replaces the operator-maintained notes fed to the reply
// agent as lead background.
func (s *Service) UpdateContext(ctx context.Context, operatorID, leadID uuid.UUID, context string) error {
	if _, err := s.Get(ctx, operatorID, leadID); err != nil {
		return err
	}
	return s.store.UpdateContext(ctx, leadID, context)
}

// MarkAppointmentSet advances a lead on an appointment-scheduled signal.
// Already-stronger statuses are left alone.
func (s *Service) MarkAppointmentSet(ctx context.Context, leadID uuid.UUID) error {
	unlock := s.locks.Lock(leadID.String())
	defer unlock()

	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.Status == domain.StatusConverted || lead.Status == domain.StatusAppointmentSet {
		return nil
	}
	_, err = s.store.UpdateStatus(ctx, leadID, domain.StatusAppointmentSet)
	return err
}
