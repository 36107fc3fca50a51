package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"bidding/internal/audit"
	"bidding/internal/config"
	"bidding/internal/models"
	"bidding/internal/statemachine"
	"bidding/internal/storage"

	"github.com/google/uuid"
)

// BidStore is the durable repository for the Bid aggregate and its
// version snapshots. UpdateBid must only land when the stored version
// equals expectedVersion and must append the snapshot atomically with
// the aggregate write.
type BidStore interface {
	CreateBid(ctx context.Context, bid models.Bid) (models.Bid, error)
	GetBid(ctx context.Context, bidId string) (models.Bid, error)
	ListBids(ctx context.Context, filter models.BidFilter, limit, offset int) ([]models.Bid, error)
	UpdateBid(ctx context.Context, bid models.Bid, expectedVersion int) (models.Bid, error)
	DeleteBid(ctx context.Context, bidId string) error
	GetBidVersions(ctx context.Context, bidId string) ([]models.BidVersion, error)
	GetBidVersion(ctx context.Context, bidId string, version int) (models.BidVersion, error)
}

type ClarificationStore interface {
	CreateClarification(ctx context.Context, c models.Clarification) (models.Clarification, error)
	GetClarification(ctx context.Context, clarificationId string) (models.Clarification, error)
	ListClarifications(ctx context.Context, bidId string) ([]models.Clarification, error)
	HasPendingClarification(ctx context.Context, bidId string) (bool, error)
	AnswerClarification(ctx context.Context, clarificationId, response, tendererId string, answeredAt time.Time) (models.Clarification, error)
	ExpireClarifications(ctx context.Context, bidId string, now time.Time) (int, error)
}

type ComplianceStore interface {
	GetRequirements(ctx context.Context, tenderId string) ([]models.ComplianceRequirement, error)
	SaveComplianceResult(ctx context.Context, result models.ComplianceCheckResult) error
	GetComplianceResult(ctx context.Context, bidId string) (models.ComplianceCheckResult, error)
	FindResultByItem(ctx context.Context, itemId string) (models.ComplianceCheckResult, error)
}

type Store interface {
	BidStore
	ClarificationStore
	ComplianceStore
}

// Publisher emits this service's own domain events. Implementations
// must tolerate duplicate publications: a redelivered trigger may
// publish the same event twice and consumers dedupe on bid version.
type Publisher interface {
	Publish(ctx context.Context, event models.BidEvent) error
}

type Service struct {
	store Store
	pub   Publisher
	sink  audit.Sink
	docs  storage.DocumentStore
	cfg   *config.PolicyConfig
	log   *slog.Logger

	now func() time.Time
}

func NewService(store Store, pub Publisher, sink audit.Sink, docs storage.DocumentStore, cfg *config.PolicyConfig, log *slog.Logger) *Service {
	if sink == nil {
		sink = audit.Nop()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: store,
		pub:   pub,
		sink:  sink,
		docs:  docs,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

//// Bids

type CreateBidRequest struct {
	TenderId   string
	TendererId string
	Items      []models.BidItem
}

func (s *Service) CreateBid(ctx context.Context, req CreateBidRequest) (models.Bid, error) {
	if req.TenderId == "" || req.TendererId == "" {
		return models.Bid{}, fmt.Errorf("service.Service.CreateBid: tenderId and tendererId are required: %w", models.ErrNotFound)
	}

	bid := models.Bid{
		TenderId:   req.TenderId,
		TendererId: req.TendererId,
		Status:     models.BidDraft,
		Items:      req.Items,
	}
	bid.TotalPrice = bid.SumItems()

	bid, err := s.store.CreateBid(ctx, bid)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service.Service.CreateBid: %w", err)
	}

	s.sink.Record(ctx, audit.Entry{Action: "BID_CREATED", BidId: bid.Id, TenderId: bid.TenderId, Actor: bid.TendererId})
	s.publish(ctx, models.BidCreatedEvent, bid)

	return bid, nil
}

func (s *Service) GetBid(ctx context.Context, bidId string) (models.Bid, error) {
	bid, err := s.store.GetBid(ctx, bidId)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service.Service.GetBid: %w", err)
	}
	return bid, nil
}

func (s *Service) ListBids(ctx context.Context, filter models.BidFilter, limit, offset int) ([]models.Bid, error) {
	bids, err := s.store.ListBids(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("service.Service.ListBids: %w", err)
	}
	return bids, nil
}

// EditBid replaces the draft's line items. Bids stop being editable the
// moment they leave DRAFT.
func (s *Service) EditBid(ctx context.Context, bidId string, items []models.BidItem) (models.Bid, error) {
	bid, err := s.mutateBid(ctx, bidId, func(bid *models.Bid) error {
		if bid.Status != models.BidDraft {
			return models.ErrBidNotEditable
		}
		bid.Items = items
		bid.TotalPrice = bid.SumItems()
		return nil
	})
	if err != nil {
		return models.Bid{}, fmt.Errorf("service.Service.EditBid: %w", err)
	}
	return bid, nil
}

func (s *Service) DeleteBid(ctx context.Context, bidId string) error {
	bid, err := s.store.GetBid(ctx, bidId)
	if err != nil {
		return fmt.Errorf("service.Service.DeleteBid: %w", err)
	}
	if bid.Status != models.BidDraft {
		return fmt.Errorf("service.Service.DeleteBid: %w", models.ErrBidNotEditable)
	}

	err = s.store.DeleteBid(ctx, bidId)
	if err != nil {
		return fmt.Errorf("service.Service.DeleteBid: %w", err)
	}

	s.sink.Record(ctx, audit.Entry{Action: "BID_DELETED", BidId: bid.Id, TenderId: bid.TenderId})
	return nil
}

// SubmitBid moves a draft to SUBMITTED and records the submission time.
func (s *Service) SubmitBid(ctx context.Context, bidId string) (models.Bid, error) {
	return s.submit(ctx, bidId, "")
}

// SubmitBidWithSecurity submits a draft along with a reference to an
// already-stored bid security document.
func (s *Service) SubmitBidWithSecurity(ctx context.Context, bidId, securityRef string) (models.Bid, error) {
	return s.submit(ctx, bidId, securityRef)
}

func (s *Service) submit(ctx context.Context, bidId, securityRef string) (models.Bid, error) {
	bid, noop, err := s.ApplyTrigger(ctx, bidId, statemachine.TriggerSubmit, statemachine.Payload{}, func(bid *models.Bid) {
		at := s.now().UTC()
		bid.SubmittedAt = &at
		bid.TotalPrice = bid.SumItems()
		if securityRef != "" {
			bid.SecurityRef = securityRef
		}
	})
	if err != nil {
		return models.Bid{}, fmt.Errorf("service.Service.SubmitBid: %w", err)
	}

	if !noop {
		s.publish(ctx, models.BidSubmittedEvent, bid)
	}
	return bid, nil
}

// UpdateBidStatus is the synchronous status surface: the target status
// is mapped onto the trigger that produces it, so API writes obey the
// same transition table as event-driven ones.
func (s *Service) UpdateBidStatus(ctx context.Context, bidId string, status models.BidStatus) (models.Bid, error) {
	trigger, payload, ok := triggerFor(status)
	if !ok {
		return models.Bid{}, fmt.Errorf("service.Service.UpdateBidStatus: no trigger yields status %s: %w", status, models.ErrInvalidTransition)
	}

	bid, _, err := s.ApplyTrigger(ctx, bidId, trigger, payload, nil)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service.Service.UpdateBidStatus: %w", err)
	}
	return bid, nil
}

func triggerFor(status models.BidStatus) (statemachine.Trigger, statemachine.Payload, bool) {
	switch status {
	case models.BidSubmitted:
		return statemachine.TriggerSubmit, statemachine.Payload{}, true
	case models.BidNotSubmitted:
		return statemachine.TriggerTenderClosed, statemachine.Payload{}, true
	case models.BidCancelled:
		return statemachine.TriggerTenderCancelled, statemachine.Payload{}, true
	case models.BidUnderEvaluation:
		return statemachine.TriggerEvaluationStarted, statemachine.Payload{}, true
	case models.BidEvaluated:
		return statemachine.TriggerEvaluationCompleted, statemachine.Payload{EvaluationResult: models.EvaluationPass}, true
	case models.BidRejected:
		return statemachine.TriggerEvaluationCompleted, statemachine.Payload{EvaluationResult: models.EvaluationFail}, true
	case models.BidAwarded:
		return statemachine.TriggerBidAwarded, statemachine.Payload{}, true
	case models.BidContracted:
		return statemachine.TriggerContractCreated, statemachine.Payload{}, true
	case models.BidTerminated:
		return statemachine.TriggerContractTerminated, statemachine.Payload{}, true
	default:
		return "", statemachine.Payload{}, false
	}
}

func (s *Service) GetBidVersions(ctx context.Context, bidId string) ([]models.BidVersion, error) {
	versions, err := s.store.GetBidVersions(ctx, bidId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.GetBidVersions: %w", err)
	}
	return versions, nil
}

func (s *Service) GetBidVersion(ctx context.Context, bidId string, version int) (models.BidVersion, error) {
	v, err := s.store.GetBidVersion(ctx, bidId, version)
	if err != nil {
		return v, fmt.Errorf("service.Service.GetBidVersion: %w", err)
	}
	return v, nil
}

//// Documents

func (s *Service) AddDocument(ctx context.Context, bidId, name, kind string, content io.Reader) (models.Bid, error) {
	docId := uuid.NewString()
	size, err := s.docs.Store(ctx, docId, content)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service.Service.AddDocument: %w", err)
	}

	bid, err := s.mutateBid(ctx, bidId, func(bid *models.Bid) error {
		if bid.Status != models.BidDraft {
			return models.ErrBidNotEditable
		}
		bid.Documents = append(bid.Documents, models.DocumentRef{Id: docId, Name: name, Kind: kind, Size: size})
		return nil
	})
	if err != nil {
		s.docs.Delete(ctx, docId)
		return models.Bid{}, fmt.Errorf("service.Service.AddDocument: %w", err)
	}
	return bid, nil
}

func (s *Service) RemoveDocument(ctx context.Context, bidId, docId string) (models.Bid, error) {
	bid, err := s.mutateBid(ctx, bidId, func(bid *models.Bid) error {
		if bid.Status != models.BidDraft {
			return models.ErrBidNotEditable
		}
		for i, doc := range bid.Documents {
			if doc.Id == docId {
				bid.Documents = append(bid.Documents[:i], bid.Documents[i+1:]...)
				return nil
			}
		}
		return models.ErrNotFound
	})
	if err != nil {
		return models.Bid{}, fmt.Errorf("service.Service.RemoveDocument: %w", err)
	}

	if err := s.docs.Delete(ctx, docId); err != nil {
		s.log.Warn("orphaned document after removal", "bidId", bidId, "docId", docId, "error", err)
	}
	return bid, nil
}

//// Transitions

// ApplyTrigger runs one read-decide-write cycle against the transition
// table, retrying a bounded number of times when another writer won the
// optimistic race. The mutate hook, if any, adjusts non-status fields
// once the transition is accepted; it runs again on every retry since
// each retry re-reads the bid.
//
// The bool result mirrors statemachine.Apply's no-op: a duplicate
// trigger finds the bid already at the target status, writes nothing and
// appends no version.
func (s *Service) ApplyTrigger(ctx context.Context, bidId string, trigger statemachine.Trigger, payload statemachine.Payload, mutate func(*models.Bid)) (models.Bid, bool, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.WriteRetries; attempt++ {
		bid, err := s.store.GetBid(ctx, bidId)
		if err != nil {
			return models.Bid{}, false, err
		}

		next, noop, err := statemachine.Apply(bid.Status, trigger, payload)
		if err != nil {
			return bid, false, err
		}
		if noop {
			return bid, true, nil
		}

		previous := bid.Status
		bid.Status = next
		if mutate != nil {
			mutate(&bid)
		}

		updated, err := s.store.UpdateBid(ctx, bid, bid.Version)
		if errors.Is(err, models.ErrConcurrentModification) {
			lastErr = err
			s.log.Debug("optimistic write lost, retrying", "bidId", bidId, "trigger", trigger, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return bid, false, err
		}

		s.sink.Record(ctx, audit.Entry{
			Action:   "BID_STATUS_CHANGED",
			BidId:    updated.Id,
			TenderId: updated.TenderId,
			Detail:   fmt.Sprintf("%s -> %s (%s)", previous, updated.Status, trigger),
		})
		return updated, false, nil
	}
	return models.Bid{}, false, fmt.Errorf("service.Service.ApplyTrigger: retries exhausted: %w", lastErr)
}

// mutateBid is the read-decide-write cycle for non-transition mutations
// (draft edits, documents, compliance attachment). Same optimistic
// discipline, same retry bound, always appends a version.
func (s *Service) mutateBid(ctx context.Context, bidId string, mutate func(*models.Bid) error) (models.Bid, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.WriteRetries; attempt++ {
		bid, err := s.store.GetBid(ctx, bidId)
		if err != nil {
			return models.Bid{}, err
		}

		if err = mutate(&bid); err != nil {
			return models.Bid{}, err
		}

		updated, err := s.store.UpdateBid(ctx, bid, bid.Version)
		if errors.Is(err, models.ErrConcurrentModification) {
			lastErr = err
			continue
		}
		if err != nil {
			return models.Bid{}, err
		}
		return updated, nil
	}
	return models.Bid{}, fmt.Errorf("service.Service.mutateBid: retries exhausted: %w", lastErr)
}

func (s *Service) publish(ctx context.Context, eventType string, bid models.Bid) {
	if s.pub == nil {
		return
	}

	err := s.pub.Publish(ctx, models.BidEvent{
		EventId:     uuid.NewString(),
		EventType:   eventType,
		Timestamp:   s.now().UTC(),
		BidId:       bid.Id,
		TenderId:    bid.TenderId,
		TendererId:  bid.TendererId,
		BidVersion:  bid.Version,
		TotalPrice:  bid.TotalPrice,
		ItemCount:   len(bid.Items),
		SubmittedAt: bid.SubmittedAt,
	})
	if err != nil {
		s.log.Warn("bid event not published", "eventType", eventType, "bidId", bid.Id, "error", err)
	}
}
