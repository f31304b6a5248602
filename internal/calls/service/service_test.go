package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nurture_backend/internal/calls/domain"
	"nurture_backend/internal/calls/repository"
	"nurture_backend/internal/events"
	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/platform/keyedlock"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeCallStore struct {
	calls      map[uuid.UUID]repository.Call
	recordings []repository.InsertRecordingParams
	archived   map[uuid.UUID]string
}

func newFakeCallStore() *fakeCallStore {
	return &fakeCallStore{
		calls:    make(map[uuid.UUID]repository.Call),
		archived: make(map[uuid.UUID]string),
	}
}

func (f *fakeCallStore) CreateQueued(_ context.Context, params repository.CreateQueuedParams) (repository.Call, error) {
	leadID := params.LeadID
	call := repository.Call{
		ID:         uuid.New(),
		LeadID:     &leadID,
		Direction:  domain.DirectionOutbound,
		Status:     domain.StatusQueued,
		CallMode:   params.CallMode,
		FromNumber: params.FromNumber,
		ToNumber:   params.ToNumber,
		CreatedAt:  time.Now(),
	}
	f.calls[call.ID] = call
	return call, nil
}

func (f *fakeCallStore) CreateFromCallback(_ context.Context, params repository.CreateFromCallbackParams) (repository.Call, error) {
	externalID := params.ExternalCallID
	call := repository.Call{
		ID:              uuid.New(),
		LeadID:          params.LeadID,
		Direction:       params.Direction,
		Status:          params.Status,
		ExternalCallID:  &externalID,
		CallMode:        domain.ModeManual,
		FromNumber:      params.FromNumber,
		ToNumber:        params.ToNumber,
		StartedAt:       params.StartedAt,
		EndedAt:         params.EndedAt,
		DurationSeconds: params.DurationSeconds,
		CreatedAt:       time.Now(),
	}
	f.calls[call.ID] = call
	return call, nil
}

func (f *fakeCallStore) GetByID(_ context.Context, id uuid.UUID) (repository.Call, error) {
	call, ok := f.calls[id]
	if !ok {
		return repository.Call{}, repository.ErrNotFound
	}
	return call, nil
}

func (f *fakeCallStore) GetByExternalID(_ context.Context, externalCallID string) (repository.Call, error) {
	for _, call := range f.calls {
		if call.ExternalCallID != nil && *call.ExternalCallID == externalCallID {
			return call, nil
		}
	}
	return repository.Call{}, repository.ErrNotFound
}

func (f *fakeCallStore) FindAdoptableOutbound(_ context.Context, toNumber string) (repository.Call, error) {
	var best repository.Call
	found := false
	for _, call := range f.calls {
		if call.ToNumber != toNumber || call.Direction != domain.DirectionOutbound || call.ExternalCallID != nil {
			continue
		}
		if call.Status != domain.StatusQueued && call.Status != domain.StatusInitiated {
			continue
		}
		if !found || call.CreatedAt.After(best.CreatedAt) {
			best = call
			found = true
		}
	}
	if !found {
		return repository.Call{}, repository.ErrNotFound
	}
	return best, nil
}

func (f *fakeCallStore) FindRecentQueued(_ context.Context, toNumber string, cutoff time.Time) (repository.Call, error) {
	for _, call := range f.calls {
		if call.ToNumber == toNumber && call.Status == domain.StatusQueued &&
			call.ExternalCallID == nil && call.CreatedAt.After(cutoff) {
			return call, nil
		}
	}
	return repository.Call{}, repository.ErrNotFound
}

func (f *fakeCallStore) AdoptExternalID(_ context.Context, id uuid.UUID, externalCallID string) error {
	call, ok := f.calls[id]
	if !ok || call.ExternalCallID != nil {
		return repository.ErrNotFound
	}
	call.ExternalCallID = &externalCallID
	f.calls[id] = call
	return nil
}

func (f *fakeCallStore) SetLeadID(_ context.Context, id, leadID uuid.UUID) error {
	call, ok := f.calls[id]
	if !ok || call.LeadID != nil {
		return repository.ErrNotFound
	}
	call.LeadID = &leadID
	f.calls[id] = call
	return nil
}

func (f *fakeCallStore) UpdateSnapshot(_ context.Context, id uuid.UUID, s domain.Snapshot) (repository.Call, error) {
	call, ok := f.calls[id]
	if !ok {
		return repository.Call{}, repository.ErrNotFound
	}
	call.Status = s.Status
	call.StartedAt = s.StartedAt
	call.EndedAt = s.EndedAt
	call.DurationSeconds = s.DurationSeconds
	f.calls[id] = call
	return call, nil
}

func (f *fakeCallStore) ListByLead(_ context.Context, leadID uuid.UUID) ([]repository.Call, error) {
	var out []repository.Call
	for _, call := range f.calls {
		if call.LeadID != nil && *call.LeadID == leadID {
			out = append(out, call)
		}
	}
	return out, nil
}

func (f *fakeCallStore) ListStuck(_ context.Context, cutoff time.Time, leadID *uuid.UUID) ([]repository.Call, error) {
	var out []repository.Call
	for _, call := range f.calls {
		if call.Status != domain.StatusInProgress || call.StartedAt == nil || !call.StartedAt.Before(cutoff) {
			continue
		}
		if leadID != nil && (call.LeadID == nil || *call.LeadID != *leadID) {
			continue
		}
		out = append(out, call)
	}
	return out, nil
}

func (f *fakeCallStore) InsertRecording(_ context.Context, params repository.InsertRecordingParams) (repository.Recording, error) {
	f.recordings = append(f.recordings, params)
	return repository.Recording{ID: uuid.New(), CallID: params.CallID, RecordingURL: params.RecordingURL}, nil
}

func (f *fakeCallStore) ListRecordingsByCall(_ context.Context, callID uuid.UUID) ([]repository.Recording, error) {
	out := make([]repository.Recording, 0)
	for _, params := range f.recordings {
		if params.CallID != callID {
			continue
		}
		out = append(out, repository.Recording{
			ID:              uuid.New(),
			CallID:          params.CallID,
			RecordingURL:    params.RecordingURL,
			DurationSeconds: params.DurationSeconds,
			Transcription:   params.Transcription,
			Summary:         params.Summary,
			InterestLevel:   params.InterestLevel,
			ActionItems:     params.ActionItems,
		})
	}
	return out, nil
}

func (f *fakeCallStore) SetArchivedURL(_ context.Context, id uuid.UUID, archivedURL string) error {
	f.archived[id] = archivedURL
	return nil
}

type fakeLeadStore struct {
	leads map[uuid.UUID]leadrepo.Lead
}

func (f *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (leadrepo.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return leadrepo.Lead{}, leadrepo.ErrNotFound
	}
	return lead, nil
}

type fakeMatcher struct {
	lead    leadrepo.Lead
	matched bool
}

func (f *fakeMatcher) Match(_ context.Context, _ string) (leadrepo.Lead, bool, error) {
	return f.lead, f.matched, nil
}

type fakeCaller struct {
	externalID string
	err        error
	calls      int
}

func (f *fakeCaller) PlaceCall(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.externalID, f.err
}

type fakeArchiver struct {
	url string
	err error
}

func (f *fakeArchiver) ArchiveRecording(_ context.Context, _ uuid.UUID, _ string) (string, error) {
	return f.url, f.err
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

func (b *recordingBus) completed() []events.CallCompleted {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.CallCompleted
	for _, e := range b.events {
		if c, ok := e.(events.CallCompleted); ok {
			out = append(out, c)
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
	svc     *Service
	store   *fakeCallStore
	leads   *fakeLeadStore
	matcher *fakeMatcher
	caller  *fakeCaller
	bus     *recordingBus
	now     time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store:   newFakeCallStore(),
		leads:   &fakeLeadStore{leads: make(map[uuid.UUID]leadrepo.Lead)},
		matcher: &fakeMatcher{},
		caller:  &fakeCaller{externalID: "CA-new"},
		bus:     &recordingBus{},
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = New(Params{
		Store:      f.store,
		Leads:      f.leads,
		Matcher:    f.matcher,
		Caller:     f.caller,
		Archiver:   &fakeArchiver{url: "minio://call-recordings/x.mp3"},
		Locks:      keyedlock.New(),
		EventBus:   f.bus,
		Config:     testConfig{},
		FromNumber: "+14155550000",
		Logger:     logger.New("test"),
	}).WithClock(func() time.Time { return f.now })
	return f
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// claimedCallStore simulates a concurrent callback winning the adoption race:
// every adoption attempt finds the candidate already claimed for another
// external id.
type claimedCallStore struct {
	*fakeCallStore
}

func (s *claimedCallStore) AdoptExternalID(_ context.Context, id uuid.UUID, _ string) error {
	other := "CA-claimed-concurrently"
	call := s.calls[id]
	call.ExternalCallID = &other
	s.calls[id] = call
	return repository.ErrNotFound
}

func TestStatusCallbackAdoptsQueuedRow(t *testing.T) {
	f := newFixture()
	leadID := uuid.New()
	queued, _ := f.store.CreateQueued(context.Background(), repository.CreateQueuedParams{
		LeadID:   leadID,
		CallMode: domain.ModeManual,
		ToNumber: "+14155552671",
	})

	err := f.svc.ProcessStatusCallback(context.Background(), StatusCallback{
		ExternalCallID: "CA-123",
		Status:         domain.StatusInitiated,
		To:             "+14155552671",
	})
	if err != nil {
		t.Fatalf("ProcessStatusCallback failed: %v", err)
	}

	if len(f.store.calls) != 1 {
		t.Fatalf("adoption must not create a duplicate row, have %d", len(f.store.calls))
	}
	updated := f.store.calls[queued.ID]
	if updated.ExternalCallID == nil || *updated.ExternalCallID != "CA-123" {
		t.Fatalf("external id not adopted: %v", updated.ExternalCallID)
	}
	if updated.Status != domain.StatusInitiated {
		t.Fatalf("status not applied: %s", updated.Status)
	}
}

func TestStatusCallbackUnknownIDCreatesOneRow(t *testing.T) {
	f := newFixture()

	err := f.svc.ProcessStatusCallback(context.Background(), StatusCallback{
		ExternalCallID: "CA-unknown",
		Status:         domain.StatusRinging,
		From:           "+14155550000",
		To:             "+14155552671",
	})
	if err != nil {
		t.Fatalf("ProcessStatusCallback failed: %v", err)
	}
	if len(f.store.calls) != 1 {
		t.Fatalf("expected exactly one created row, have %d", len(f.store.calls))
	}

	// Redelivery of the same callback matches the created row.
	if err := f.svc.ProcessStatusCallback(context.Background(), StatusCallback{
		ExternalCallID: "CA-unknown",
		Status:         domain.StatusRinging,
		To:             "+14155552671",
	}); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if len(f.store.calls) != 1 {
		t.Fatalf("redelivery created a duplicate, have %d", len(f.store.calls))
	}
}

func TestOutOfOrderTerminalPrecedence(t *testing.T) {
	f := newFixture()

	err := f.svc.ProcessStatusCallback(context.Background(), StatusCallback{
		ExternalCallID:  "CA-42",
		Status:          domain.StatusCompleted,
		To:              "+14155552671",
		DurationSeconds: intPtr(61),
	})
	if err != nil {
		t.Fatalf("completed callback failed: %v", err)
	}

	if err := f.svc.ProcessStatusCallback(context.Background(), StatusCallback{
		ExternalCallID: "CA-42",
		Status:         domain.StatusInProgress,
		To:             "+14155552671",
	}); err != nil {
		t.Fatalf("late in-progress callback failed: %v", err)
	}

	call, err := f.store.GetByExternalID(context.Background(), "CA-42")
	if err != nil {
		t.Fatalf("call not found: %v", err)
	}
	if call.Status != domain.StatusCompleted {
		t.Fatalf("terminal status regressed to %s", call.Status)
	}
	if call.DurationSeconds == nil || *call.DurationSeconds != 61 {
		t.Fatalf("completion fields lost: %v", call.DurationSeconds)
	}
	if len(f.bus.completed()) != 1 {
		t.Fatalf("expected exactly one completion event, got %d", len(f.bus.completed()))
	}
}

func TestRecordingDoesNotOverwriteCompletion(t *testing.T) {
	f := newFixture()

	if err := f.svc.ProcessStatusCallback(context.Background(), StatusCallback{
		ExternalCallID:  "CA-7",
		Status:          domain.StatusCompleted,
		To:              "+14155552671",
		DurationSeconds: intPtr(90),
	}); err != nil {
		t.Fatalf("status callback failed: %v", err)
	}
	before, _ := f.store.GetByExternalID(context.Background(), "CA-7")

	f.now = f.now.Add(time.Minute)
	if err := f.svc.ProcessRecordingCallback(context.Background(), RecordingCallback{
		ExternalCallID:  "CA-7",
		RecordingURL:    "https://provider/rec/7.mp3",
		DurationSeconds: intPtr(999),
	}); err != nil {
		t.Fatalf("recording callback failed: %v", err)
	}

	after, _ := f.store.GetByExternalID(context.Background(), "CA-7")
	if !after.EndedAt.Equal(*before.EndedAt) || *after.DurationSeconds != 90 {
		t.Fatal("recording overwrote completion fields set by the status callback")
	}
	if len(f.store.recordings) != 1 {
		t.Fatalf("recording row not stored, have %d", len(f.store.recordings))
	}
	if len(f.bus.completed()) != 1 {
		t.Fatal("recording on a terminal call must not publish a second completion")
	}
}

func TestRecordingClosesCallWithoutTerminalCallback(t *testing.T) {
	f := newFixture()

	if err := f.svc.ProcessStatusCallback(context.Background(), StatusCallback{
		ExternalCallID: "CA-9",
		Status:         domain.StatusInProgress,
		To:             "+14155552671",
	}); err != nil {
		t.Fatalf("status callback failed: %v", err)
	}

	f.now = f.now.Add(4 * time.Minute)
	if err := f.svc.ProcessRecordingCallback(context.Background(), RecordingCallback{
		ExternalCallID:  "CA-9",
		RecordingURL:    "https://provider/rec/9.mp3",
		DurationSeconds: intPtr(230),
	}); err != nil {
		t.Fatalf("recording callback failed: %v", err)
	}

	call, _ := f.store.GetByExternalID(context.Background(), "CA-9")
	if call.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", call.Status)
	}
	if call.EndedAt == nil || *call.DurationSeconds != 230 {
		t.Fatalf("completion fields not set: %v %v", call.EndedAt, call.DurationSeconds)
	}
	if len(f.bus.completed()) != 1 {
		t.Fatalf("expected one completion event, got %d", len(f.bus.completed()))
	}
}

func TestRecordingLostAdoptionRaceCreatesFreshRow(t *testing.T) {
	f := newFixture()
	store := &claimedCallStore{fakeCallStore: f.store}
	svc := New(Params{
		Store:      store,
		Leads:      f.leads,
		Matcher:    f.matcher,
		Caller:     f.caller,
		Locks:      keyedlock.New(),
		EventBus:   f.bus,
		Config:     testConfig{},
		FromNumber: "+14155550000",
		Logger:     logger.New("test"),
	}).WithClock(func() time.Time { return f.now })

	queued, _ := f.store.CreateQueued(context.Background(), repository.CreateQueuedParams{
		LeadID:   uuid.New(),
		CallMode: domain.ModeManual,
		ToNumber: "+14155552671",
	})

	if err := svc.ProcessRecordingCallback(context.Background(), RecordingCallback{
		ExternalCallID:  "CA-recording",
		RecordingURL:    "https://provider/rec/race.mp3",
		To:              "+14155552671",
		DurationSeconds: intPtr(45),
	}); err != nil {
		t.Fatalf("recording callback failed: %v", err)
	}

	// The candidate row belongs to the winning callback and must be untouched.
	victim := f.store.calls[queued.ID]
	if victim.Status != domain.StatusQueued {
		t.Fatalf("lost-race row was force-completed to %s", victim.Status)
	}
	for _, rec := range f.store.recordings {
		if rec.CallID == queued.ID {
			t.Fatal("recording attached to a row owned by another external id")
		}
	}

	fresh, err := f.store.GetByExternalID(context.Background(), "CA-recording")
	if err != nil {
		t.Fatalf("no fresh row created for the recording's external id: %v", err)
	}
	if fresh.Status != domain.StatusCompleted {
		t.Fatalf("fresh row not completed: %s", fresh.Status)
	}
	if len(f.store.recordings) != 1 || f.store.recordings[0].CallID != fresh.ID {
		t.Fatal("recording not stored on the fresh row")
	}
}

func TestRecordingStoresAnalysisFields(t *testing.T) {
	f := newFixture()

	if err := f.svc.ProcessRecordingCallback(context.Background(), RecordingCallback{
		ExternalCallID:  "CA-analyzed",
		RecordingURL:    "https://provider/rec/analyzed.mp3",
		To:              "+14155552671",
		DurationSeconds: intPtr(120),
		Transcription:   strPtr("full transcript"),
		Summary:         strPtr("asked about financing options"),
		InterestLevel:   strPtr("high"),
		ActionItems:     []string{"send pre-approval checklist"},
	}); err != nil {
		t.Fatalf("recording callback failed: %v", err)
	}

	if len(f.store.recordings) != 1 {
		t.Fatalf("recording row not stored, have %d", len(f.store.recordings))
	}
	rec := f.store.recordings[0]
	if rec.Summary == nil || *rec.Summary != "asked about financing options" {
		t.Fatalf("summary not persisted: %v", rec.Summary)
	}
	if rec.InterestLevel == nil || *rec.InterestLevel != "high" {
		t.Fatalf("interest level not persisted: %v", rec.InterestLevel)
	}
	if rec.Transcription == nil || len(rec.ActionItems) != 1 {
		t.Fatal("transcription or action items not persisted")
	}
}

func TestStatusCallbackAttachesLateResolvedLead(t *testing.T) {
	f := newFixture()

	// First callback arrives before the lead exists; the row has no lead.
	if err := f.svc.ProcessStatusCallback(context.Background(), StatusCallback{
		ExternalCallID: "CA-late",
		Status:         domain.StatusInProgress,
		To:             "+14155552671",
	}); err != nil {
		t.Fatalf("first callback failed: %v", err)
	}
	call, _ := f.store.GetByExternalID(context.Background(), "CA-late")
	if call.LeadID != nil {
		t.Fatal("unmatched callback must not carry a lead")
	}

	// The lead exists by the time the terminal callback lands.
	lead := leadrepo.Lead{ID: uuid.New(), OperatorID: uuid.New(), Phone: "+14155552671"}
	f.leads.leads[lead.ID] = lead
	f.matcher.lead = lead
	f.matcher.matched = true

	if err := f.svc.ProcessStatusCallback(context.Background(), StatusCallback{
		ExternalCallID:  "CA-late",
		Status:          domain.StatusCompleted,
		To:              "+14155552671",
		DurationSeconds: intPtr(30),
	}); err != nil {
		t.Fatalf("terminal callback failed: %v", err)
	}

	call, _ = f.store.GetByExternalID(context.Background(), "CA-late")
	if call.LeadID == nil || *call.LeadID != lead.ID {
		t.Fatal("late-resolved lead not attached to the call")
	}
	completed := f.bus.completed()
	if len(completed) != 1 || completed[0].OperatorID != lead.OperatorID {
		t.Fatal("completion event missing the attached lead's operator")
	}
}

func TestListRecordingsChecksOwnership(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	lead := leadrepo.Lead{ID: uuid.New(), OperatorID: owner, Phone: "+14155552671"}
	f.leads.leads[lead.ID] = lead
	f.matcher.lead = lead
	f.matcher.matched = true

	if err := f.svc.ProcessRecordingCallback(context.Background(), RecordingCallback{
		ExternalCallID: "CA-owned",
		RecordingURL:   "https://provider/rec/owned.mp3",
		To:             "+14155552671",
		InterestLevel:  strPtr("medium"),
	}); err != nil {
		t.Fatalf("recording callback failed: %v", err)
	}
	call, _ := f.store.GetByExternalID(context.Background(), "CA-owned")

	recordings, err := f.svc.ListRecordings(context.Background(), owner, lead.ID, call.ID)
	if err != nil {
		t.Fatalf("ListRecordings failed: %v", err)
	}
	if len(recordings) != 1 || recordings[0].InterestLevel == nil || *recordings[0].InterestLevel != "medium" {
		t.Fatalf("analysis fields not returned: %+v", recordings)
	}

	if _, err := f.svc.ListRecordings(context.Background(), uuid.New(), lead.ID, call.ID); err == nil {
		t.Fatal("expected forbidden for another operator")
	}
}

func TestRepairStuckThresholdBoundary(t *testing.T) {
	f := newFixture()

	started31 := f.now.Add(-31 * time.Minute)
	started29 := f.now.Add(-29 * time.Minute)

	stuck, _ := f.store.CreateFromCallback(context.Background(), repository.CreateFromCallbackParams{
		Direction:      domain.DirectionOutbound,
		Status:         domain.StatusInProgress,
		ExternalCallID: "CA-old",
		ToNumber:       "+14155552671",
		StartedAt:      &started31,
	})
	fresh, _ := f.store.CreateFromCallback(context.Background(), repository.CreateFromCallbackParams{
		Direction:      domain.DirectionOutbound,
		Status:         domain.StatusInProgress,
		ExternalCallID: "CA-fresh",
		ToNumber:       "+14155552672",
		StartedAt:      &started29,
	})

	repaired, err := f.svc.RepairStuck(context.Background(), nil)
	if err != nil {
		t.Fatalf("RepairStuck failed: %v", err)
	}
	if repaired != 1 {
		t.Fatalf("expected 1 repaired call, got %d", repaired)
	}

	if f.store.calls[stuck.ID].Status != domain.StatusFailed {
		t.Fatalf("31-minute call not failed: %s", f.store.calls[stuck.ID].Status)
	}
	if f.store.calls[stuck.ID].EndedAt == nil || !f.store.calls[stuck.ID].EndedAt.Equal(f.now) {
		t.Fatal("endedAt not set to now on repair")
	}
	if f.store.calls[fresh.ID].Status != domain.StatusInProgress {
		t.Fatalf("29-minute call must be untouched, got %s", f.store.calls[fresh.ID].Status)
	}
}

func TestPlaceCallFailureMarksFailed(t *testing.T) {
	f := newFixture()
	operatorID := uuid.New()
	lead := leadrepo.Lead{ID: uuid.New(), OperatorID: operatorID, Phone: "+14155552671"}
	f.leads.leads[lead.ID] = lead
	f.caller.err = errors.New("gateway unreachable")

	call, err := f.svc.PlaceCall(context.Background(), operatorID, lead.ID)
	if err != nil {
		t.Fatalf("PlaceCall must report the failure on the row, not as an error: %v", err)
	}
	if call.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", call.Status)
	}
}

func TestPlaceCallCreatesLocalFirstRow(t *testing.T) {
	f := newFixture()
	operatorID := uuid.New()
	lead := leadrepo.Lead{ID: uuid.New(), OperatorID: operatorID, Phone: "+14155552671"}
	f.leads.leads[lead.ID] = lead
	f.caller.externalID = "CA-sync"

	call, err := f.svc.PlaceCall(context.Background(), operatorID, lead.ID)
	if err != nil {
		t.Fatalf("PlaceCall failed: %v", err)
	}
	if call.ExternalCallID == nil || *call.ExternalCallID != "CA-sync" {
		t.Fatalf("synchronous external id not adopted: %v", call.ExternalCallID)
	}
	stored := f.store.calls[call.ID]
	if stored.ExternalCallID == nil || *stored.ExternalCallID != "CA-sync" {
		t.Fatal("adoption not persisted")
	}
}

func TestPlaceCallForbiddenForOtherOperator(t *testing.T) {
	f := newFixture()
	lead := leadrepo.Lead{ID: uuid.New(), OperatorID: uuid.New(), Phone: "+14155552671"}
	f.leads.leads[lead.ID] = lead

	if _, err := f.svc.PlaceCall(context.Background(), uuid.New(), lead.ID); err == nil {
		t.Fatal("expected forbidden error")
	}
	if len(f.store.calls) != 0 {
		t.Fatal("no row should be created on ownership failure")
	}
}
