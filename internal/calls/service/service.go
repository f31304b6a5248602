// Package service implements the call lifecycle reconciler: it absorbs
// asynchronous provider callbacks that may arrive out of order, duplicated,
// or for calls this system has not seen yet, and folds them onto call rows
// without ever violating the one-row-per-external-id invariant.
package service

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/calls/domain"
	"nurture_backend/internal/calls/repository"
	"nurture_backend/internal/events"
	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/config"
	"nurture_backend/platform/keyedlock"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/phone"

	"github.com/google/uuid"
)

// adoptionWindow bounds the queued-row fallback tier of callback matching.
const adoptionWindow = 5 * time.Minute

// CallStore is the persistence capability the reconciler needs.
type CallStore interface {
	CreateQueued(ctx context.Context, params repository.CreateQueuedParams) (repository.Call, error)
	CreateFromCallback(ctx context.Context, params repository.CreateFromCallbackParams) (repository.Call, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Call, error)
	GetByExternalID(ctx context.Context, externalCallID string) (repository.Call, error)
	FindAdoptableOutbound(ctx context.Context, toNumber string) (repository.Call, error)
	FindRecentQueued(ctx context.Context, toNumber string, cutoff time.Time) (repository.Call, error)
	AdoptExternalID(ctx context.Context, id uuid.UUID, externalCallID string) error
	SetLeadID(ctx context.Context, id, leadID uuid.UUID) error
	UpdateSnapshot(ctx context.Context, id uuid.UUID, s domain.Snapshot) (repository.Call, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]repository.Call, error)
	ListStuck(ctx context.Context, cutoff time.Time, leadID *uuid.UUID) ([]repository.Call, error)
	InsertRecording(ctx context.Context, params repository.InsertRecordingParams) (repository.Recording, error)
	ListRecordingsByCall(ctx context.Context, callID uuid.UUID) ([]repository.Recording, error)
	SetArchivedURL(ctx context.Context, id uuid.UUID, archivedURL string) error
}

// LeadStore is the slice of the lead repository call placement needs.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
}

// LeadMatcher resolves provider-first calls to a known lead.
type LeadMatcher interface {
	Match(ctx context.Context, raw string) (leadrepo.Lead, bool, error)
}

// Caller places outbound calls through the provider gateway.
type Caller interface {
	PlaceCall(ctx context.Context, toNumber string) (string, error)
}

// Archiver copies recording audio into object storage, best effort.
type Archiver interface {
	ArchiveRecording(ctx context.Context, callID uuid.UUID, recordingURL string) (string, error)
}

type Service struct {
	store      CallStore
	leads      LeadStore
	matcher    LeadMatcher
	caller     Caller
	archiver   Archiver
	locks      *keyedlock.KeyedLock
	eventBus   events.Bus
	cfg        config.EngagementConfig
	fromNumber string
	log        *logger.Logger
	now        func() time.Time
}

type Params struct {
	Store      CallStore
	Leads      LeadStore
	Matcher    LeadMatcher
	Caller     Caller
	Archiver   Archiver
	Locks      *keyedlock.KeyedLock
	EventBus   events.Bus
	Config     config.EngagementConfig
	FromNumber string
	Logger     *logger.Logger
}

func New(p Params) *Service {
	return &Service{
		store:      p.Store,
		leads:      p.Leads,
		matcher:    p.Matcher,
		caller:     p.Caller,
		archiver:   p.Archiver,
		locks:      p.Locks,
		eventBus:   p.EventBus,
		cfg:        p.Config,
		fromNumber: p.FromNumber,
		log:        p.Logger,
		now:        time.Now,
	}
}

// WithClock injects a clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// PlaceCall creates the local-first queued row, then asks the provider to
// dial. The row exists before the provider call so a fast status callback
// can adopt it instead of creating a duplicate.
func (s *Service) PlaceCall(ctx context.Context, operatorID, leadID uuid.UUID) (repository.Call, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return repository.Call{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Call{}, err
	}
	if lead.OperatorID != operatorID {
		return repository.Call{}, apperr.Forbidden("lead belongs to another operator")
	}

	call, err := s.store.CreateQueued(ctx, repository.CreateQueuedParams{
		LeadID:     leadID,
		CallMode:   domain.ModeManual,
		FromNumber: s.fromNumber,
		ToNumber:   lead.Phone,
	})
	if err != nil {
		return repository.Call{}, err
	}

	externalID, err := s.caller.PlaceCall(ctx, lead.Phone)
	if err != nil {
		s.log.Error("failed to place call", "error", err, "callId", call.ID, "leadId", leadID)
		snap, _ := domain.ApplyStatus(call.Snapshot(), domain.StatusFailed, nil, s.now())
		if call, err = s.store.UpdateSnapshot(ctx, call.ID, snap); err != nil {
			return repository.Call{}, err
		}
		return call, nil
	}

	if externalID != "" {
		if err := s.store.AdoptExternalID(ctx, call.ID, externalID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return repository.Call{}, err
		}
		call.ExternalCallID = &externalID
	}
	return call, nil
}

// StatusCallback is a provider call-status callback, already validated at
// the transport layer.
type StatusCallback struct {
	ExternalCallID  string
	Status          domain.Status
	From            string
	To              string
	Direction       domain.Direction
	DurationSeconds *int
}

// ProcessStatusCallback runs the matching algorithm and folds the status
// onto the matched or created row.
func (s *Service) ProcessStatusCallback(ctx context.Context, cb StatusCallback) error {
	if !domain.Valid(cb.Status) {
		return apperr.Validation("unknown call status: " + string(cb.Status))
	}
	if cb.Direction == "" {
		cb.Direction = domain.DirectionOutbound
	}
	cb.From = phone.NormalizeE164(cb.From)
	cb.To = phone.NormalizeE164(cb.To)

	unlock := s.locks.Lock("call:" + cb.ExternalCallID)
	defer unlock()

	call, matched, err := s.matchForStatus(ctx, cb)
	if err != nil {
		return err
	}
	if !matched {
		return s.createFromStatusCallback(ctx, cb)
	}

	call = s.attachLead(ctx, call, cb.Direction, cb.From, cb.To)

	snap, changed := domain.ApplyStatus(call.Snapshot(), cb.Status, cb.DurationSeconds, s.now())
	if !changed {
		return nil
	}

	updated, err := s.store.UpdateSnapshot(ctx, call.ID, snap)
	if err != nil {
		return err
	}
	if !call.Status.Terminal() && snap.Status.Terminal() {
		s.publishCompleted(ctx, updated)
	}
	return nil
}

// matchForStatus runs tiers 1-3: exact external id, adoptable outbound row,
// then recent queued row. Tiers 2 and 3 adopt the external id onto the row.
func (s *Service) matchForStatus(ctx context.Context, cb StatusCallback) (repository.Call, bool, error) {
	call, err := s.store.GetByExternalID(ctx, cb.ExternalCallID)
	if err == nil {
		return call, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return repository.Call{}, false, err
	}

	call, err = s.store.FindAdoptableOutbound(ctx, cb.To)
	if errors.Is(err, repository.ErrNotFound) {
		call, err = s.store.FindRecentQueued(ctx, cb.To, s.now().Add(-adoptionWindow))
	}
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Call{}, false, nil
	}
	if err != nil {
		return repository.Call{}, false, err
	}

	if err := s.store.AdoptExternalID(ctx, call.ID, cb.ExternalCallID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost the adoption race to a concurrent callback.
			return repository.Call{}, false, nil
		}
		return repository.Call{}, false, err
	}
	call.ExternalCallID = &cb.ExternalCallID
	s.log.Info("adopted external call id",
		"callId", call.ID, "externalCallId", cb.ExternalCallID)
	return call, true, nil
}

func (s *Service) createFromStatusCallback(ctx context.Context, cb StatusCallback) error {
	snap, _ := domain.ApplyStatus(domain.Snapshot{Status: domain.StatusQueued}, cb.Status, cb.DurationSeconds, s.now())

	call, err := s.store.CreateFromCallback(ctx, repository.CreateFromCallbackParams{
		LeadID:          s.resolveLead(ctx, cb.Direction, cb.From, cb.To),
		Direction:       cb.Direction,
		Status:          snap.Status,
		ExternalCallID:  cb.ExternalCallID,
		FromNumber:      cb.From,
		ToNumber:        cb.To,
		StartedAt:       snap.StartedAt,
		EndedAt:         snap.EndedAt,
		DurationSeconds: snap.DurationSeconds,
	})
	if err != nil {
		return err
	}

	s.log.Info("created call from provider callback",
		"callId", call.ID, "externalCallId", cb.ExternalCallID, "status", call.Status)
	if call.Status.Terminal() {
		s.publishCompleted(ctx, call)
	}
	return nil
}

// resolveLead matches the counterparty number to a known lead; nil when
// nothing matches.
func (s *Service) resolveLead(ctx context.Context, direction domain.Direction, from, to string) *uuid.UUID {
	counterparty := to
	if direction == domain.DirectionInbound {
		counterparty = from
	}
	lead, matched, err := s.matcher.Match(ctx, counterparty)
	if err != nil {
		s.log.Error("lead match failed for call callback", "error", err)
		return nil
	}
	if !matched {
		return nil
	}
	return &lead.ID
}

// attachLead resolves the counterparty for a row created before the lead was
// known. Best effort, the callback does not fail on it.
func (s *Service) attachLead(ctx context.Context, call repository.Call, direction domain.Direction, from, to string) repository.Call {
	if call.LeadID != nil {
		return call
	}
	leadID := s.resolveLead(ctx, direction, from, to)
	if leadID == nil {
		return call
	}
	if err := s.store.SetLeadID(ctx, call.ID, *leadID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("failed to attach lead to call", "error", err, "callId", call.ID)
		}
		return call
	}
	call.LeadID = leadID
	return call
}

// RecordingCallback is a provider recording-completed callback. The analysis
// fields are filled when the provider ran post-call analysis on the audio.
type RecordingCallback struct {
	ExternalCallID  string
	RecordingURL    string
	From            string
	To              string
	DurationSeconds *int
	Transcription   *string
	Summary         *string
	InterestLevel   *string
	ActionItems     []string
}

// ProcessRecordingCallback stores the recording and treats the event as a
// second completion signal for flows with no terminal status callback.
func (s *Service) ProcessRecordingCallback(ctx context.Context, cb RecordingCallback) error {
	cb.From = phone.NormalizeE164(cb.From)
	cb.To = phone.NormalizeE164(cb.To)

	unlock := s.locks.Lock("call:" + cb.ExternalCallID)
	defer unlock()

	call, err := s.store.GetByExternalID(ctx, cb.ExternalCallID)
	if errors.Is(err, repository.ErrNotFound) {
		call, err = s.store.FindAdoptableOutbound(ctx, cb.To)
		if err == nil {
			if adoptErr := s.store.AdoptExternalID(ctx, call.ID, cb.ExternalCallID); adoptErr != nil {
				if !errors.Is(adoptErr, repository.ErrNotFound) {
					return adoptErr
				}
				// Lost the adoption race to a concurrent callback; the
				// candidate row belongs to that callback's id now.
				err = repository.ErrNotFound
			}
		}
	}
	if errors.Is(err, repository.ErrNotFound) {
		snap, _ := domain.ApplyRecordingCompleted(domain.Snapshot{Status: domain.StatusQueued}, cb.DurationSeconds, s.now())
		call, err = s.store.CreateFromCallback(ctx, repository.CreateFromCallbackParams{
			LeadID:          s.resolveLead(ctx, domain.DirectionOutbound, cb.From, cb.To),
			Direction:       domain.DirectionOutbound,
			Status:          snap.Status,
			ExternalCallID:  cb.ExternalCallID,
			FromNumber:      cb.From,
			ToNumber:        cb.To,
			EndedAt:         snap.EndedAt,
			DurationSeconds: snap.DurationSeconds,
		})
		if err != nil {
			return err
		}
		s.storeRecording(ctx, call, cb)
		s.publishCompleted(ctx, call)
		return nil
	}
	if err != nil {
		return err
	}

	call = s.attachLead(ctx, call, domain.DirectionOutbound, cb.From, cb.To)

	wasTerminal := call.Status.Terminal()
	snap, changed := domain.ApplyRecordingCompleted(call.Snapshot(), cb.DurationSeconds, s.now())
	if changed {
		if call, err = s.store.UpdateSnapshot(ctx, call.ID, snap); err != nil {
			return err
		}
	}

	s.storeRecording(ctx, call, cb)
	if !wasTerminal {
		s.publishCompleted(ctx, call)
	}
	return nil
}

// storeRecording persists the recording row and archives the audio. Both are
// best effort from the provider's point of view, the callback has already
// been accepted.
func (s *Service) storeRecording(ctx context.Context, call repository.Call, cb RecordingCallback) {
	rec, err := s.store.InsertRecording(ctx, repository.InsertRecordingParams{
		CallID:          call.ID,
		RecordingURL:    cb.RecordingURL,
		DurationSeconds: cb.DurationSeconds,
		Transcription:   cb.Transcription,
		Summary:         cb.Summary,
		InterestLevel:   cb.InterestLevel,
		ActionItems:     cb.ActionItems,
	})
	if err != nil {
		s.log.Error("failed to store recording", "error", err, "callId", call.ID)
		return
	}

	if s.archiver == nil {
		return
	}
	archivedURL, err := s.archiver.ArchiveRecording(ctx, call.ID, cb.RecordingURL)
	if err != nil {
		s.log.Error("failed to archive recording", "error", err, "callId", call.ID)
		return
	}
	if err := s.store.SetArchivedURL(ctx, rec.ID, archivedURL); err != nil {
		s.log.Error("failed to persist archived url", "error", err, "recordingId", rec.ID)
	}
}

// RepairStuck force-fails in-progress calls whose startedAt is older than
// the configured threshold. A nil leadID repairs across all leads. Returns
// the number of repaired calls.
func (s *Service) RepairStuck(ctx context.Context, leadID *uuid.UUID) (int, error) {
	cutoff := s.now().Add(-s.cfg.GetStuckCallThreshold())
	stuck, err := s.store.ListStuck(ctx, cutoff, leadID)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, candidate := range stuck {
		if err := s.repairOne(ctx, candidate.ID, cutoff); err != nil {
			s.log.Error("failed to repair stuck call", "error", err, "callId", candidate.ID)
			continue
		}
		repaired++
	}
	return repaired, nil
}

func (s *Service) repairOne(ctx context.Context, callID uuid.UUID, cutoff time.Time) error {
	unlock := s.locks.Lock("call:" + callID.String())
	defer unlock()

	// Re-read under the lock: a terminal callback may have landed since the
	// scan.
	call, err := s.store.GetByID(ctx, callID)
	if err != nil {
		return err
	}
	if call.Status != domain.StatusInProgress || call.StartedAt == nil || !call.StartedAt.Before(cutoff) {
		return nil
	}

	snap, changed := domain.ApplyStatus(call.Snapshot(), domain.StatusFailed, nil, s.now())
	if !changed {
		return nil
	}
	updated, err := s.store.UpdateSnapshot(ctx, call.ID, snap)
	if err != nil {
		return err
	}

	s.log.Info("repaired stuck call", "callId", call.ID, "startedAt", call.StartedAt)
	s.publishCompleted(ctx, updated)
	return nil
}

// ListByLead returns a lead's calls for the operator surface.
func (s *Service) ListByLead(ctx context.Context, operatorID, leadID uuid.UUID) ([]repository.Call, error) {
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
	return s.store.ListByLead(ctx, leadID)
}

// ListRecordings returns a call's recordings with their analysis fields so
// the operator can review the conversation outcome.
func (s *Service) ListRecordings(ctx context.Context, operatorID, leadID, callID uuid.UUID) ([]repository.Recording, error) {
	call, err := s.store.GetByID(ctx, callID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("call not found")
	}
	if err != nil {
		return nil, err
	}
	if call.LeadID == nil || *call.LeadID != leadID {
		return nil, apperr.NotFound("call not found")
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.OperatorID != operatorID {
		return nil, apperr.Forbidden("lead belongs to another operator")
	}
	return s.store.ListRecordingsByCall(ctx, callID)
}

func (s *Service) publishCompleted(ctx context.Context, call repository.Call) {
	duration := 0
	if call.DurationSeconds != nil {
		duration = *call.DurationSeconds
	}

	var operatorID uuid.UUID
	if call.LeadID != nil {
		if lead, err := s.leads.GetByID(ctx, *call.LeadID); err == nil {
			operatorID = lead.OperatorID
		}
	}

	s.eventBus.Publish(ctx, events.CallCompleted{
		BaseEvent:       events.NewBaseEvent(),
		CallID:          call.ID,
		LeadID:          call.LeadID,
		OperatorID:      operatorID,
		Status:          string(call.Status),
		DurationSeconds: duration,
	})
}
