// Package service orchestrates the inbound message pipeline and outbound
// delivery: lead resolution, status transition, persistence, notification,
// rescheduling, and the deferred AI reply.
package service

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/events"
	"nurture_backend/internal/leads/domain"
	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/internal/messaging/agent"
	"nurture_backend/internal/messaging/repository"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/config"
	"nurture_backend/platform/keyedlock"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
)

const agentRunTimeout = 30 * time.Second

// MessageStore is the persistence capability the pipeline needs.
type MessageStore interface {
	InsertInbound(ctx context.Context, params repository.InsertInboundParams) (repository.Message, bool, error)
	InsertOutbound(ctx context.Context, params repository.InsertOutboundParams) (repository.Message, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]repository.Message, error)
	LastN(ctx context.Context, leadID uuid.UUID, n int) ([]repository.Message, error)
	LatestInboundID(ctx context.Context, leadID uuid.UUID) (uuid.UUID, error)
	UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status string) (repository.Message, error)
	UpdateDeliveryStatusByExternalID(ctx context.Context, externalID, status string) (repository.Message, error)
	SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error
}

// LeadStore is the slice of the lead repository the pipeline needs.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
	Create(ctx context.Context, params leadrepo.CreateLeadParams) (leadrepo.Lead, error)
	RecordInbound(ctx context.Context, id uuid.UUID, status domain.Status, receivedAt time.Time) (leadrepo.Lead, error)
	ResolveOperatorID(ctx context.Context, gatewayNumber string) (uuid.UUID, error)
}

// LeadMatcher resolves a raw phone number to a known lead.
type LeadMatcher interface {
	Match(ctx context.Context, raw string) (leadrepo.Lead, bool, error)
}

// Rescheduler recomputes a lead's next contact time after pipeline events.
type Rescheduler interface {
	Reschedule(ctx context.Context, leadID, operatorID uuid.UUID, status domain.Status) (time.Time, error)
}

// Composer drafts AI replies. Nil when the AI stack is disabled.
type Composer interface {
	Compose(ctx context.Context, lead leadrepo.Lead, conversation []repository.Message) (agent.ReplyResult, error)
}

// Sender delivers outbound messages through the provider gateway.
type Sender interface {
	SendMessage(ctx context.Context, toNumber, body string) (string, error)
}

// ReplyScheduler enqueues the deferred AI reply task.
type ReplyScheduler interface {
	ScheduleAIReply(ctx context.Context, leadID, messageID uuid.UUID) error
}

type Service struct {
	messages  MessageStore
	leads     LeadStore
	matcher   LeadMatcher
	scheduler Rescheduler
	composer  Composer
	sender    Sender
	replies   ReplyScheduler
	locks     *keyedlock.KeyedLock
	eventBus  events.Bus
	cfg       config.EngagementConfig
	log       *logger.Logger
}

type Params struct {
	Messages  MessageStore
	Leads     LeadStore
	Matcher   LeadMatcher
	Scheduler Rescheduler
	Composer  Composer
	Sender    Sender
	Replies   ReplyScheduler
	Locks     *keyedlock.KeyedLock
	EventBus  events.Bus
	Config    config.EngagementConfig
	Logger    *logger.Logger
}

func New(p Params) *Service {
	return &Service{
		messages:  p.Messages,
		leads:     p.Leads,
		matcher:   p.Matcher,
		scheduler: p.Scheduler,
		composer:  p.Composer,
		sender:    p.Sender,
		replies:   p.Replies,
		locks:     p.Locks,
		eventBus:  p.EventBus,
		cfg:       p.Config,
		log:       p.Logger,
	}
}

// InboundMessage is a provider inbound-message callback, already validated.
type InboundMessage struct {
	From       string
	To         string
	Body       string
	ExternalID string
	ReceivedAt time.Time
}

// ProcessInbound runs the full inbound pipeline. Duplicate delivery of the
// same provider message id is a no-op after the lead has been resolved.
func (s *Service) ProcessInbound(ctx context.Context, inbound InboundMessage) error {
	lead, matched, err := s.matcher.Match(ctx, inbound.From)
	if err != nil {
		return err
	}
	if !matched {
		lead, err = s.createPlaceholderLead(ctx, inbound)
		if err != nil {
			return err
		}
	}

	unlock := s.locks.Lock(lead.ID.String())
	defer unlock()

	nextStatus := domain.NextOnInbound(lead.Status)
	qualifying, groups := domain.Qualify(inbound.Body)

	msg, inserted, err := s.messages.InsertInbound(ctx, repository.InsertInboundParams{
		LeadID:     lead.ID,
		OperatorID: lead.OperatorID,
		Body:       inbound.Body,
		ExternalID: inbound.ExternalID,
		Metadata:   repository.Metadata{QualifyingSignal: qualifying},
		ReceivedAt: inbound.ReceivedAt,
	})
	if err != nil {
		return err
	}
	if !inserted {
		s.log.Info("duplicate inbound message ignored",
			"leadId", lead.ID, "externalId", inbound.ExternalID)
		return nil
	}

	lead, err = s.leads.RecordInbound(ctx, lead.ID, nextStatus, inbound.ReceivedAt)
	if err != nil {
		return err
	}

	if qualifying {
		s.log.Info("qualifying signal detected",
			"leadId", lead.ID, "groups", groups)
	}

	s.eventBus.Publish(ctx, events.MessageReceived{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		OperatorID: lead.OperatorID,
		MessageID:  msg.ID,
		LeadName:   lead.Name,
		Body:       inbound.Body,
		Qualifying: qualifying,
	})

	if _, err := s.scheduler.Reschedule(ctx, lead.ID, lead.OperatorID, lead.Status); err != nil {
		s.log.Error("failed to reschedule after inbound", "error", err, "leadId", lead.ID)
	}

	if lead.AIAssistantEnabled && s.replies != nil {
		if err := s.replies.ScheduleAIReply(ctx, lead.ID, msg.ID); err != nil {
			// The reply is lost but the pipeline has done its work; the
			// follow-up scheduler will pick the lead back up.
			s.log.Error("failed to enqueue AI reply", "error", err, "leadId", lead.ID)
		}
	}
	return nil
}

func (s *Service) createPlaceholderLead(ctx context.Context, inbound InboundMessage) (leadrepo.Lead, error) {
	operatorID, err := s.leads.ResolveOperatorID(ctx, inbound.To)
	if err != nil {
		return leadrepo.Lead{}, apperr.Wrap(apperr.KindInternal, "no operator to own inbound lead", err)
	}

	lead, err := s.leads.Create(ctx, leadrepo.CreateLeadParams{
		OperatorID:         operatorID,
		Name:               "Unknown (" + inbound.From + ")",
		Phone:              inbound.From,
		AIAssistantEnabled: true,
	})
	if err != nil {
		return leadrepo.Lead{}, err
	}

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		OperatorID: lead.OperatorID,
		Phone:      lead.Phone,
		Source:     "inbound",
	})
	return lead, nil
}

// SendAIReply is the deferred reply task body. It re-checks everything that
// may have changed between enqueue and fire time: the assistant toggle and
// whether the triggering message is still the lead's latest inbound.
func (s *Service) SendAIReply(ctx context.Context, leadID, messageID uuid.UUID) error {
	if s.composer == nil {
		return nil
	}

	unlock := s.locks.Lock(leadID.String())
	defer unlock()

	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !lead.AIAssistantEnabled {
		s.log.Info("AI reply skipped: assistant disabled", "leadId", leadID)
		return nil
	}

	latest, err := s.messages.LatestInboundID(ctx, leadID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if latest != messageID {
		s.log.Info("AI reply skipped: superseded by newer inbound",
			"leadId", leadID, "messageId", messageID)
		return nil
	}

	conversation, err := s.messages.LastN(ctx, leadID, s.cfg.GetReplyContextSize())
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, agentRunTimeout)
	defer cancel()

	result, err := s.composer.Compose(runCtx, lead, conversation)
	if err != nil {
		return err
	}

	if _, err := s.deliverOutbound(ctx, lead, result.Reply, true, repository.Metadata{
		AppointmentIntent:    result.AppointmentIntent,
		PropertySearchIntent: result.PropertySearchIntent,
	}); err != nil {
		return err
	}

	if result.AppointmentIntent {
		s.eventBus.Publish(ctx, events.AppointmentScheduled{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
		})
	}
	return nil
}

// SendFollowUp composes and delivers a follow-up nudge to a due lead. Called
// by the worker's follow-up dispatch; the assistant flag is re-checked here
// because the scan and the send are not atomic.
func (s *Service) SendFollowUp(ctx context.Context, leadID uuid.UUID) error {
	if s.composer == nil {
		return nil
	}

	unlock := s.locks.Lock(leadID.String())
	defer unlock()

	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !lead.AIAssistantEnabled {
		return nil
	}

	conversation, err := s.messages.LastN(ctx, leadID, s.cfg.GetReplyContextSize())
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, agentRunTimeout)
	defer cancel()

	result, err := s.composer.Compose(runCtx, lead, conversation)
	if err != nil {
		return err
	}

	_, err = s.deliverOutbound(ctx, lead, result.Reply, true, repository.Metadata{})
	return err
}

// SendManual delivers an operator-written message.
func (s *Service) SendManual(ctx context.Context, operatorID, leadID uuid.UUID, body string) (repository.Message, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return repository.Message{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Message{}, err
	}
	if lead.OperatorID != operatorID {
		return repository.Message{}, apperr.Forbidden("lead belongs to another operator")
	}

	unlock := s.locks.Lock(leadID.String())
	defer unlock()

	return s.deliverOutbound(ctx, lead, body, false, repository.Metadata{})
}

// deliverOutbound persists the outbound message, attempts delivery, and
// reschedules the next contact. A failed send marks the message failed and
// never aborts the rest. Callers hold the per-lead lock.
func (s *Service) deliverOutbound(ctx context.Context, lead leadrepo.Lead, body string, aiGenerated bool, metadata repository.Metadata) (repository.Message, error) {
	msg, err := s.messages.InsertOutbound(ctx, repository.InsertOutboundParams{
		LeadID:        lead.ID,
		OperatorID:    lead.OperatorID,
		Body:          body,
		Status:        repository.StatusQueued,
		IsAIGenerated: aiGenerated,
		Metadata:      metadata,
	})
	if err != nil {
		return repository.Message{}, err
	}

	externalID, sendErr := s.sender.SendMessage(ctx, lead.Phone, body)
	if sendErr != nil {
		s.log.Error("outbound delivery failed", "error", sendErr, "leadId", lead.ID, "messageId", msg.ID)
		if msg, err = s.messages.UpdateDeliveryStatus(ctx, msg.ID, repository.StatusFailed); err != nil {
			return repository.Message{}, err
		}
	} else {
		if err := s.messages.SetExternalID(ctx, msg.ID, externalID); err != nil {
			return repository.Message{}, err
		}
		if msg, err = s.messages.UpdateDeliveryStatus(ctx, msg.ID, repository.StatusSent); err != nil {
			return repository.Message{}, err
		}
	}

	if _, err := s.scheduler.Reschedule(ctx, lead.ID, lead.OperatorID, lead.Status); err != nil {
		s.log.Error("failed to reschedule after outbound", "error", err, "leadId", lead.ID)
	}

	s.eventBus.Publish(ctx, events.MessageSent{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		OperatorID:    lead.OperatorID,
		MessageID:     msg.ID,
		Body:          body,
		Status:        msg.DeliveryStatus,
		IsAIGenerated: aiGenerated,
	})
	return msg, nil
}

// ProcessDeliveryStatus applies a provider delivery-status callback for an
// outbound message. Unknown external ids and already-terminal rows are
// no-ops.
func (s *Service) ProcessDeliveryStatus(ctx context.Context, externalID, status string) error {
	switch status {
	case repository.StatusQueued, repository.StatusSent, repository.StatusDelivered,
		repository.StatusFailed, repository.StatusUndelivered:
	default:
		return apperr.Validation("unknown delivery status: " + status)
	}

	msg, err := s.messages.UpdateDeliveryStatusByExternalID(ctx, externalID, status)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Info("delivery status for unknown or terminal message", "externalId", externalID, "status", status)
		return nil
	}
	if err != nil {
		return err
	}

	s.eventBus.Publish(ctx, events.MessageStatusUpdated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     msg.LeadID,
		OperatorID: msg.OperatorID,
		MessageID:  msg.ID,
		Status:     status,
	})
	return nil
}

// ListConversation returns a lead's messages for the operator surface.
func (s *Service) ListConversation(ctx context.Context, operatorID, leadID uuid.UUID) ([]repository.Message, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, err
	}
	if lead.OperatorID != operatorID {
		return nil, apperr.Forbidden("lead belongs to another operator")
	}
	return s.messages.ListByLead(ctx, leadID)
}
