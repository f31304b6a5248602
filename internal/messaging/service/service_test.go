package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nurture_backend/internal/events"
	"nurture_backend/internal/leads/domain"
	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/internal/messaging/agent"
	"nurture_backend/internal/messaging/repository"
	"nurture_backend/platform/keyedlock"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeMessageStore struct {
	duplicate      bool
	inbound        []repository.InsertInboundParams
	outbound       []repository.InsertOutboundParams
	messages       []repository.Message
	latestInbound  uuid.UUID
	statusUpdates  map[uuid.UUID]string
	externalIDs    map[uuid.UUID]string
	byExternal     map[string]repository.Message
	updateByExtErr error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{
		statusUpdates: make(map[uuid.UUID]string),
		externalIDs:   make(map[uuid.UUID]string),
		byExternal:    make(map[string]repository.Message),
	}
}

func (f *fakeMessageStore) InsertInbound(_ context.Context, params repository.InsertInboundParams) (repository.Message, bool, error) {
	if f.duplicate {
		return repository.Message{ID: uuid.New(), LeadID: params.LeadID}, false, nil
	}
	f.inbound = append(f.inbound, params)
	msg := repository.Message{
		ID:             uuid.New(),
		LeadID:         params.LeadID,
		OperatorID:     params.OperatorID,
		Direction:      repository.DirectionInbound,
		Body:           params.Body,
		DeliveryStatus: repository.StatusDelivered,
		Metadata:       params.Metadata,
	}
	f.latestInbound = msg.ID
	return msg, true, nil
}

func (f *fakeMessageStore) InsertOutbound(_ context.Context, params repository.InsertOutboundParams) (repository.Message, error) {
	f.outbound = append(f.outbound, params)
	return repository.Message{
		ID:             uuid.New(),
		LeadID:         params.LeadID,
		OperatorID:     params.OperatorID,
		Direction:      repository.DirectionOutbound,
		Body:           params.Body,
		DeliveryStatus: params.Status,
		IsAIGenerated:  params.IsAIGenerated,
		Metadata:       params.Metadata,
	}, nil
}

func (f *fakeMessageStore) ListByLead(_ context.Context, _ uuid.UUID) ([]repository.Message, error) {
	return f.messages, nil
}

func (f *fakeMessageStore) LastN(_ context.Context, _ uuid.UUID, _ int) ([]repository.Message, error) {
	return f.messages, nil
}

func (f *fakeMessageStore) LatestInboundID(_ context.Context, _ uuid.UUID) (uuid.UUID, error) {
	if f.latestInbound == uuid.Nil {
		return uuid.Nil, repository.ErrNotFound
	}
	return f.latestInbound, nil
}

func (f *fakeMessageStore) UpdateDeliveryStatus(_ context.Context, id uuid.UUID, status string) (repository.Message, error) {
	f.statusUpdates[id] = status
	return repository.Message{ID: id, DeliveryStatus: status}, nil
}

func (f *fakeMessageStore) UpdateDeliveryStatusByExternalID(_ context.Context, externalID, status string) (repository.Message, error) {
	if f.updateByExtErr != nil {
		return repository.Message{}, f.updateByExtErr
	}
	msg, ok := f.byExternal[externalID]
	if !ok {
		return repository.Message{}, repository.ErrNotFound
	}
	msg.DeliveryStatus = status
	f.byExternal[externalID] = msg
	return msg, nil
}

func (f *fakeMessageStore) SetExternalID(_ context.Context, id uuid.UUID, externalID string) error {
	f.externalIDs[id] = externalID
	return nil
}

type fakeLeadStore struct {
	leads          map[uuid.UUID]leadrepo.Lead
	created        []leadrepo.CreateLeadParams
	recorded       []domain.Status
	operatorID     uuid.UUID
	resolveErr     error
	recordedLeadID uuid.UUID
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{leads: make(map[uuid.UUID]leadrepo.Lead), operatorID: uuid.New()}
}

func (f *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (leadrepo.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return leadrepo.Lead{}, leadrepo.ErrNotFound
	}
	return lead, nil
}

func (f *fakeLeadStore) Create(_ context.Context, params leadrepo.CreateLeadParams) (leadrepo.Lead, error) {
	f.created = append(f.created, params)
	lead := leadrepo.Lead{
		ID:                 uuid.New(),
		OperatorID:         params.OperatorID,
		Name:               params.Name,
		Phone:              params.Phone,
		Status:             domain.StatusNew,
		AIAssistantEnabled: params.AIAssistantEnabled,
	}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeLeadStore) RecordInbound(_ context.Context, id uuid.UUID, status domain.Status, _ time.Time) (leadrepo.Lead, error) {
	f.recorded = append(f.recorded, status)
	f.recordedLeadID = id
	lead := f.leads[id]
	lead.Status = status
	lead.MessageCount++
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeLeadStore) ResolveOperatorID(_ context.Context, _ string) (uuid.UUID, error) {
	if f.resolveErr != nil {
		return uuid.Nil, f.resolveErr
	}
	return f.operatorID, nil
}

type fakeMatcher struct {
	lead    leadrepo.Lead
	matched bool
}

func (f *fakeMatcher) Match(_ context.Context, _ string) (leadrepo.Lead, bool, error) {
	return f.lead, f.matched, nil
}

type fakeRescheduler struct {
	calls []domain.Status
}

func (f *fakeRescheduler) Reschedule(_ context.Context, _, _ uuid.UUID, status domain.Status) (time.Time, error) {
	f.calls = append(f.calls, status)
	return time.Now().Add(48 * time.Hour), nil
}

type fakeComposer struct {
	result agent.ReplyResult
	err    error
	calls  int
}

func (f *fakeComposer) Compose(_ context.Context, _ leadrepo.Lead, _ []repository.Message) (agent.ReplyResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeSender struct {
	err   error
	calls int
}

func (f *fakeSender) SendMessage(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "ext-msg-1", nil
}

type fakeReplyScheduler struct {
	scheduled []uuid.UUID
}

func (f *fakeReplyScheduler) ScheduleAIReply(_ context.Context, _, messageID uuid.UUID) error {
	f.scheduled = append(f.scheduled, messageID)
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) byName(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type testConfig struct{}

func (testConfig) GetReplyDelayMin() time.Duration      { return 10 * time.Second }
func (testConfig) GetReplyDelayMax() time.Duration      { return 15 * time.Second }
func (testConfig) GetReplyContextSize() int             { return 20 }
func (testConfig) GetStuckCallThreshold() time.Duration { return 30 * time.Minute }

type fixture struct {
	svc       *Service
	messages  *fakeMessageStore
	leads     *fakeLeadStore
	matcher   *fakeMatcher
	scheduler *fakeRescheduler
	composer  *fakeComposer
	sender    *fakeSender
	replies   *fakeReplyScheduler
	bus       *recordingBus
}

func newFixture() *fixture {
	f := &fixture{
		messages:  newFakeMessageStore(),
		leads:     newFakeLeadStore(),
		matcher:   &fakeMatcher{},
		scheduler: &fakeRescheduler{},
		composer:  &fakeComposer{result: agent.ReplyResult{Reply: "Happy to help!"}},
		sender:    &fakeSender{},
		replies:   &fakeReplyScheduler{},
		bus:       &recordingBus{},
	}
	f.svc = New(Params{
		Messages:  f.messages,
		Leads:     f.leads,
		Matcher:   f.matcher,
		Scheduler: f.scheduler,
		Composer:  f.composer,
		Sender:    f.sender,
		Replies:   f.replies,
		Locks:     keyedlock.New(),
		EventBus:  f.bus,
		Config:    testConfig{},
		Logger:    logger.New("test"),
	})
	return f
}

func (f *fixture) seedLead(status domain.Status, aiEnabled bool) leadrepo.Lead {
	lead := leadrepo.Lead{
		ID:                 uuid.New(),
		OperatorID:         uuid.New(),
		Name:               "Jordan Reyes",
		Phone:              "+14155552671",
		Status:             status,
		AIAssistantEnabled: aiEnabled,
	}
	f.leads.leads[lead.ID] = lead
	f.matcher.lead = lead
	f.matcher.matched = true
	return lead
}

func TestProcessInboundQualifyingScenario(t *testing.T) {
	f := newFixture()
	lead := f.seedLead(domain.StatusNew, true)

	err := f.svc.ProcessInbound(context.Background(), InboundMessage{
		From:       "+14155552671",
		To:         "+14155550000",
		Body:       "What's the budget range for a 3 bedroom in the east side?",
		ExternalID: "prov-1",
		ReceivedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("ProcessInbound failed: %v", err)
	}

	if len(f.leads.recorded) != 1 || f.leads.recorded[0] != domain.StatusInConversation {
		t.Fatalf("expected transition to in_conversation, got %v", f.leads.recorded)
	}
	if len(f.messages.inbound) != 1 {
		t.Fatalf("expected 1 inbound message, got %d", len(f.messages.inbound))
	}
	if !f.messages.inbound[0].Metadata.QualifyingSignal {
		t.Fatal("expected qualifying signal on stored message")
	}

	received := f.bus.byName("message.received")
	if len(received) != 1 {
		t.Fatalf("expected 1 message.received event, got %d", len(received))
	}
	if !received[0].(events.MessageReceived).Qualifying {
		t.Fatal("expected qualifying flag on event")
	}

	if len(f.scheduler.calls) != 1 || f.scheduler.calls[0] != domain.StatusInConversation {
		t.Fatalf("expected reschedule with post-change status, got %v", f.scheduler.calls)
	}
	if len(f.replies.scheduled) != 1 {
		t.Fatalf("expected AI reply scheduled, got %d", len(f.replies.scheduled))
	}
	_ = lead
}

func TestProcessInboundDuplicateIsNoOp(t *testing.T) {
	f := newFixture()
	f.seedLead(domain.StatusInConversation, true)
	f.messages.duplicate = true

	err := f.svc.ProcessInbound(context.Background(), InboundMessage{
		From:       "+14155552671",
		Body:       "hello again",
		ExternalID: "prov-1",
		ReceivedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("ProcessInbound failed: %v", err)
	}

	if len(f.leads.recorded) != 0 {
		t.Fatal("duplicate must not touch the lead")
	}
	if len(f.bus.events) != 0 {
		t.Fatalf("duplicate must not publish events, got %d", len(f.bus.events))
	}
	if len(f.replies.scheduled) != 0 {
		t.Fatal("duplicate must not schedule a reply")
	}
}

func TestProcessInboundUnmatchedCreatesPlaceholderLead(t *testing.T) {
	f := newFixture()
	f.matcher.matched = false

	err := f.svc.ProcessInbound(context.Background(), InboundMessage{
		From:       "+14155552671",
		To:         "+14155550000",
		Body:       "hi, is this still available?",
		ExternalID: "prov-2",
		ReceivedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("ProcessInbound failed: %v", err)
	}

	if len(f.leads.created) != 1 {
		t.Fatalf("expected 1 lead created, got %d", len(f.leads.created))
	}
	if f.leads.created[0].Name != "Unknown (+14155552671)" {
		t.Fatalf("unexpected placeholder name: %q", f.leads.created[0].Name)
	}
	created := f.bus.byName("lead.created")
	if len(created) != 1 || created[0].(events.LeadCreated).Source != "inbound" {
		t.Fatalf("expected lead.created with source inbound, got %v", created)
	}
}

func TestProcessInboundAssistantOffSkipsReply(t *testing.T) {
	f := newFixture()
	f.seedLead(domain.StatusInConversation, false)

	err := f.svc.ProcessInbound(context.Background(), InboundMessage{
		From:       "+14155552671",
		Body:       "thanks",
		ExternalID: "prov-3",
		ReceivedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("ProcessInbound failed: %v", err)
	}
	if len(f.replies.scheduled) != 0 {
		t.Fatal("assistant off must not schedule a reply")
	}
	if len(f.scheduler.calls) != 1 {
		t.Fatal("rescheduling still runs with assistant off")
	}
}

func TestSendAIReplySkipsWhenAssistantDisabled(t *testing.T) {
	f := newFixture()
	lead := f.seedLead(domain.StatusInConversation, false)
	f.messages.latestInbound = uuid.New()

	if err := f.svc.SendAIReply(context.Background(), lead.ID, f.messages.latestInbound); err != nil {
		t.Fatalf("SendAIReply failed: %v", err)
	}
	if f.composer.calls != 0 {
		t.Fatal("composer must not run when assistant is disabled")
	}
	if len(f.messages.outbound) != 0 {
		t.Fatal("no message should be sent")
	}
}

func TestSendAIReplySkipsWhenSuperseded(t *testing.T) {
	f := newFixture()
	lead := f.seedLead(domain.StatusInConversation, true)
	f.messages.latestInbound = uuid.New()

	if err := f.svc.SendAIReply(context.Background(), lead.ID, uuid.New()); err != nil {
		t.Fatalf("SendAIReply failed: %v", err)
	}
	if f.composer.calls != 0 {
		t.Fatal("composer must not run for a superseded message")
	}
}

func TestSendAIReplyDeliversAndReschedules(t *testing.T) {
	f := newFixture()
	lead := f.seedLead(domain.StatusInConversation, true)
	trigger := uuid.New()
	f.messages.latestInbound = trigger

	if err := f.svc.SendAIReply(context.Background(), lead.ID, trigger); err != nil {
		t.Fatalf("SendAIReply failed: %v", err)
	}

	if len(f.messages.outbound) != 1 {
		t.Fatalf("expected 1 outbound message, got %d", len(f.messages.outbound))
	}
	if !f.messages.outbound[0].IsAIGenerated {
		t.Fatal("outbound must be marked AI generated")
	}
	if f.sender.calls != 1 {
		t.Fatalf("expected 1 send, got %d", f.sender.calls)
	}
	if len(f.scheduler.calls) != 1 {
		t.Fatal("expected reschedule after send")
	}
	sent := f.bus.byName("message.sent")
	if len(sent) != 1 || sent[0].(events.MessageSent).Status != repository.StatusSent {
		t.Fatalf("expected message.sent with status sent, got %v", sent)
	}
}

func TestSendAIReplyDeliveryFailureStillCompletes(t *testing.T) {
	f := newFixture()
	lead := f.seedLead(domain.StatusInConversation, true)
	trigger := uuid.New()
	f.messages.latestInbound = trigger
	f.sender.err = errors.New("gateway 502")

	if err := f.svc.SendAIReply(context.Background(), lead.ID, trigger); err != nil {
		t.Fatalf("SendAIReply must not fail on delivery error: %v", err)
	}

	if len(f.scheduler.calls) != 1 {
		t.Fatal("reschedule must still run after failed delivery")
	}
	sent := f.bus.byName("message.sent")
	if len(sent) != 1 || sent[0].(events.MessageSent).Status != repository.StatusFailed {
		t.Fatalf("expected message.sent with status failed, got %v", sent)
	}
}

func TestSendAIReplyAppointmentIntent(t *testing.T) {
	f := newFixture()
	lead := f.seedLead(domain.StatusQualified, true)
	trigger := uuid.New()
	f.messages.latestInbound = trigger
	f.composer.result = agent.ReplyResult{Reply: "How about Saturday at 2?", AppointmentIntent: true}

	if err := f.svc.SendAIReply(context.Background(), lead.ID, trigger); err != nil {
		t.Fatalf("SendAIReply failed: %v", err)
	}

	booked := f.bus.byName("appointment.scheduled")
	if len(booked) != 1 {
		t.Fatalf("expected appointment.scheduled event, got %d", len(booked))
	}
	if !f.messages.outbound[0].Metadata.AppointmentIntent {
		t.Fatal("appointment intent must be stored on the message metadata")
	}
}

func TestProcessDeliveryStatusUnknownExternalID(t *testing.T) {
	f := newFixture()

	if err := f.svc.ProcessDeliveryStatus(context.Background(), "missing", repository.StatusDelivered); err != nil {
		t.Fatalf("unknown external id must be a no-op, got: %v", err)
	}
	if len(f.bus.events) != 0 {
		t.Fatal("no event expected for unknown external id")
	}
}

func TestProcessDeliveryStatusPublishesUpdate(t *testing.T) {
	f := newFixture()
	msgID := uuid.New()
	leadID := uuid.New()
	f.messages.byExternal["ext-1"] = repository.Message{ID: msgID, LeadID: leadID, DeliveryStatus: repository.StatusSent}

	if err := f.svc.ProcessDeliveryStatus(context.Background(), "ext-1", repository.StatusDelivered); err != nil {
		t.Fatalf("ProcessDeliveryStatus failed: %v", err)
	}

	updated := f.bus.byName("message.status_updated")
	if len(updated) != 1 {
		t.Fatalf("expected 1 status update event, got %d", len(updated))
	}
	event := updated[0].(events.MessageStatusUpdated)
	if event.MessageID != msgID || event.Status != repository.StatusDelivered {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestProcessDeliveryStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture()
	if err := f.svc.ProcessDeliveryStatus(context.Background(), "ext-1", "exploded"); err == nil {
		t.Fatal("expected validation error for unknown status")
	}
}
