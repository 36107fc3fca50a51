package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"bidding/internal/config"
	"bidding/internal/models"
	"bidding/internal/statemachine"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestCreateBid(t *testing.T) {
	svc, store, pub := newTestService(t)

	bid, err := svc.CreateBid(context.Background(), CreateBidRequest{
		TenderId:   "tender-1",
		TendererId: "acme",
		Items: []models.BidItem{
			{Description: "pipes", Quantity: 10, UnitPrice: decimal.NewFromInt(25)},
			{Description: "valves", Quantity: 4, UnitPrice: decimal.NewFromFloat(12.5)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if bid.Status != models.BidDraft {
		t.Errorf("Expected new bid to be DRAFT, got %s", bid.Status)
	}
	if bid.Version != 1 {
		t.Errorf("Expected new bid at version 1, got %d", bid.Version)
	}
	if !bid.TotalPrice.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected total price 300, got %s", bid.TotalPrice)
	}

	versions := store.versions[bid.Id]
	if len(versions) != 1 || versions[0].Version != 1 {
		t.Errorf("Expected a single version snapshot at 1, got %v", versions)
	}

	events := pub.drain()
	if len(events) != 1 || events[0].EventType != models.BidCreatedEvent {
		t.Errorf("Expected one BID_CREATED event, got %v", events)
	}
	if events[0].BidVersion != 1 {
		t.Errorf("Expected published event at bid version 1, got %d", events[0].BidVersion)
	}
}

func TestCreateBidDuplicateGuard(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := CreateBidRequest{TenderId: "tender-1", TendererId: "acme"}
	if _, err := svc.CreateBid(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	_, err := svc.CreateBid(context.Background(), req)
	if !errors.Is(err, models.ErrDuplicateBid) {
		t.Errorf("Expected ErrDuplicateBid for second active bid, got %v", err)
	}
}

func TestBidLifecycle(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()

	bid, err := svc.CreateBid(ctx, CreateBidRequest{
		TenderId:   "tender-1",
		TendererId: "acme",
		Items:      []models.BidItem{{Description: "pipes", Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	pub.drain()

	bid, err = svc.SubmitBid(ctx, bid.Id)
	if err != nil {
		t.Fatal(err)
	}
	if bid.Status != models.BidSubmitted || bid.Version != 2 {
		t.Fatalf("Expected SUBMITTED at version 2, got %s at %d", bid.Status, bid.Version)
	}
	if bid.SubmittedAt == nil {
		t.Error("Expected submission time to be recorded")
	}
	events := pub.drain()
	if len(events) != 1 || events[0].EventType != models.BidSubmittedEvent {
		t.Errorf("Expected one BID_SUBMITTED event, got %v", events)
	}

	steps := []struct {
		trigger statemachine.Trigger
		payload statemachine.Payload
		status  models.BidStatus
		version int
	}{
		{statemachine.TriggerEvaluationStarted, statemachine.Payload{}, models.BidUnderEvaluation, 3},
		{statemachine.TriggerEvaluationCompleted, statemachine.Payload{EvaluationResult: models.EvaluationPass}, models.BidEvaluated, 4},
		{statemachine.TriggerBidAwarded, statemachine.Payload{}, models.BidAwarded, 5},
		{statemachine.TriggerContractCreated, statemachine.Payload{}, models.BidContracted, 6},
	}
	for _, step := range steps {
		bid, noop, err := svc.ApplyTrigger(ctx, bid.Id, step.trigger, step.payload, nil)
		if err != nil {
			t.Fatalf("%s: %s", step.trigger, err)
		}
		if noop {
			t.Fatalf("%s: unexpected no-op", step.trigger)
		}
		if bid.Status != step.status || bid.Version != step.version {
			t.Fatalf("%s: expected %s at version %d, got %s at %d",
				step.trigger, step.status, step.version, bid.Status, bid.Version)
		}
	}

	versions, err := svc.GetBidVersions(ctx, bid.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 6 {
		t.Fatalf("Expected 6 version snapshots, got %d", len(versions))
	}
	for i, v := range versions {
		if v.Version != i+1 {
			t.Errorf("Expected gap-free version sequence, got %d at index %d", v.Version, i)
		}
	}
	if versions[0].Status != models.BidDraft || versions[5].Status != models.BidContracted {
		t.Errorf("Expected snapshots to span DRAFT..CONTRACTED, got %s..%s", versions[0].Status, versions[5].Status)
	}
	if versions[0].SubmittedAt != nil {
		t.Error("Expected the draft snapshot to have no submission time")
	}
	if versions[1].SubmittedAt == nil {
		t.Error("Expected the submission snapshot to carry the submission time")
	}

	if len(store.bids[bid.Id].Items) == 0 {
		t.Error("Expected items to survive the lifecycle")
	}
}

func TestDuplicateTriggerIsNoop(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	bid := submittedBid(t, svc)
	pub.drain()

	again, noop, err := svc.ApplyTrigger(ctx, bid.Id, statemachine.TriggerSubmit, statemachine.Payload{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !noop {
		t.Error("Expected duplicate submit to be a no-op")
	}
	if again.Version != bid.Version {
		t.Errorf("Expected no-op to leave version at %d, got %d", bid.Version, again.Version)
	}

	versions, err := svc.GetBidVersions(ctx, bid.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 {
		t.Errorf("Expected no extra snapshot after duplicate trigger, got %d", len(versions))
	}
	if events := pub.drain(); len(events) != 0 {
		t.Errorf("Expected no event for a duplicate submit, got %v", events)
	}
}

func TestInvalidTransition(t *testing.T) {
	svc, _, _ := newTestService(t)

	bid, err := svc.CreateBid(context.Background(), CreateBidRequest{TenderId: "tender-1", TendererId: "acme"})
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = svc.ApplyTrigger(context.Background(), bid.Id, statemachine.TriggerBidAwarded, statemachine.Payload{}, nil)
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition awarding a draft, got %v", err)
	}

	got, err := svc.GetBid(context.Background(), bid.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.BidDraft || got.Version != 1 {
		t.Errorf("Expected rejected trigger to leave the bid untouched, got %s at %d", got.Status, got.Version)
	}
}

func TestUpdateBidStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	bid := submittedBid(t, svc)

	updated, err := svc.UpdateBidStatus(ctx, bid.Id, models.BidUnderEvaluation)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.BidUnderEvaluation {
		t.Errorf("Expected UNDER_EVALUATION, got %s", updated.Status)
	}

	rejected, err := svc.UpdateBidStatus(ctx, bid.Id, models.BidRejected)
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status != models.BidRejected {
		t.Errorf("Expected REJECTED, got %s", rejected.Status)
	}

	_, err = svc.UpdateBidStatus(ctx, bid.Id, models.BidStatus("DRAFT"))
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for a status no trigger yields, got %v", err)
	}
}

func TestEditBidOnlyWhileDraft(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	bid, err := svc.CreateBid(ctx, CreateBidRequest{
		TenderId:   "tender-1",
		TendererId: "acme",
		Items:      []models.BidItem{{Description: "pipes", Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	edited, err := svc.EditBid(ctx, bid.Id, []models.BidItem{
		{Description: "pipes", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !edited.TotalPrice.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected recomputed total 200, got %s", edited.TotalPrice)
	}
	if edited.Version != 2 {
		t.Errorf("Expected edit to bump version to 2, got %d", edited.Version)
	}

	if _, err = svc.SubmitBid(ctx, bid.Id); err != nil {
		t.Fatal(err)
	}

	_, err = svc.EditBid(ctx, bid.Id, nil)
	if !errors.Is(err, models.ErrBidNotEditable) {
		t.Errorf("Expected ErrBidNotEditable after submission, got %v", err)
	}
}

func TestDeleteBidOnlyWhileDraft(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	bid, err := svc.CreateBid(ctx, CreateBidRequest{TenderId: "tender-1", TendererId: "acme"})
	if err != nil {
		t.Fatal(err)
	}
	if err = svc.DeleteBid(ctx, bid.Id); err != nil {
		t.Fatal(err)
	}
	if _, err = svc.GetBid(ctx, bid.Id); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected deleted bid to be gone, got %v", err)
	}

	bid = submittedBid(t, svc)
	err = svc.DeleteBid(ctx, bid.Id)
	if !errors.Is(err, models.ErrBidNotEditable) {
		t.Errorf("Expected ErrBidNotEditable deleting a submitted bid, got %v", err)
	}
}

func TestSubmitWithSecurity(t *testing.T) {
	svc, _, _ := newTestService(t)

	bid, err := svc.CreateBid(context.Background(), CreateBidRequest{TenderId: "tender-1", TendererId: "acme"})
	if err != nil {
		t.Fatal(err)
	}

	bid, err = svc.SubmitBidWithSecurity(context.Background(), bid.Id, "guarantee-77")
	if err != nil {
		t.Fatal(err)
	}
	if bid.SecurityRef != "guarantee-77" {
		t.Errorf("Expected security reference to be recorded, got %q", bid.SecurityRef)
	}

	// The submission snapshot reproduces what was submitted.
	v, err := svc.GetBidVersion(context.Background(), bid.Id, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v.SecurityRef != "guarantee-77" {
		t.Errorf("Expected snapshot to carry the security reference, got %q", v.SecurityRef)
	}
	if v.SubmittedAt == nil {
		t.Error("Expected snapshot to carry the submission time")
	}
}

func TestOptimisticRetryRecovers(t *testing.T) {
	svc, store, _ := newTestService(t)

	bid, err := svc.CreateBid(context.Background(), CreateBidRequest{TenderId: "tender-1", TendererId: "acme"})
	if err != nil {
		t.Fatal(err)
	}

	// One losing write: a concurrent writer bumps the version under us
	// once, then the retry's re-read succeeds.
	store.loseWrites(bid.Id, 1)

	submitted, err := svc.SubmitBid(context.Background(), bid.Id)
	if err != nil {
		t.Fatal(err)
	}
	if submitted.Status != models.BidSubmitted {
		t.Errorf("Expected SUBMITTED after retry, got %s", submitted.Status)
	}

	versions := store.versions[bid.Id]
	for i, v := range versions {
		if v.Version != i+1 {
			t.Fatalf("Expected gap-free versions after conflict, got %v", versions)
		}
	}
}

func TestOptimisticRetryExhausted(t *testing.T) {
	svc, store, _ := newTestService(t)

	bid, err := svc.CreateBid(context.Background(), CreateBidRequest{TenderId: "tender-1", TendererId: "acme"})
	if err != nil {
		t.Fatal(err)
	}

	store.loseWrites(bid.Id, svc.cfg.WriteRetries+2)

	_, err = svc.SubmitBid(context.Background(), bid.Id)
	if !errors.Is(err, models.ErrConcurrentModification) {
		t.Errorf("Expected surfaced ErrConcurrentModification after exhausting retries, got %v", err)
	}
}

func TestDocuments(t *testing.T) {
	svc, _, _ := newTestService(t)
	docs := svc.docs.(*memDocs)
	ctx := context.Background()

	bid, err := svc.CreateBid(ctx, CreateBidRequest{TenderId: "tender-1", TendererId: "acme"})
	if err != nil {
		t.Fatal(err)
	}

	bid, err = svc.AddDocument(ctx, bid.Id, "security.pdf", "BID_SECURITY", bytes.NewBufferString("content"))
	if err != nil {
		t.Fatal(err)
	}
	if len(bid.Documents) != 1 {
		t.Fatalf("Expected one document reference, got %d", len(bid.Documents))
	}
	doc := bid.Documents[0]
	if doc.Kind != "BID_SECURITY" || doc.Size != int64(len("content")) {
		t.Errorf("Unexpected document reference: %+v", doc)
	}
	if _, ok := docs.files[doc.Id]; !ok {
		t.Error("Expected document content to be stored")
	}

	bid, err = svc.RemoveDocument(ctx, bid.Id, doc.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(bid.Documents) != 0 {
		t.Errorf("Expected document reference to be removed, got %v", bid.Documents)
	}
	if _, ok := docs.files[doc.Id]; ok {
		t.Error("Expected document content to be deleted")
	}

	if _, err = svc.SubmitBid(ctx, bid.Id); err != nil {
		t.Fatal(err)
	}
	_, err = svc.AddDocument(ctx, bid.Id, "late.pdf", "BROCHURE", bytes.NewBufferString("late"))
	if !errors.Is(err, models.ErrBidNotEditable) {
		t.Errorf("Expected ErrBidNotEditable attaching to a submitted bid, got %v", err)
	}
	if len(docs.files) != 0 {
		t.Error("Expected rejected upload to be cleaned up")
	}
}

func TestListBidsFilters(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateBid(ctx, CreateBidRequest{TenderId: "tender-1", TendererId: fmt.Sprintf("firm-%d", i)})
		if err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.CreateBid(ctx, CreateBidRequest{TenderId: "tender-2", TendererId: "firm-0"}); err != nil {
		t.Fatal(err)
	}

	bids, err := svc.ListBids(ctx, models.BidFilter{TenderId: "tender-1"}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(bids) != 3 {
		t.Errorf("Expected 3 bids for tender-1, got %d", len(bids))
	}

	bids, err = svc.ListBids(ctx, models.BidFilter{TendererId: "firm-0"}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(bids) != 2 {
		t.Errorf("Expected 2 bids for firm-0, got %d", len(bids))
	}

	bids, err = svc.ListBids(ctx, models.BidFilter{TenderId: "tender-1"}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(bids) != 1 {
		t.Errorf("Expected 1 bid on the second page, got %d", len(bids))
	}
}

//// Service

func newTestService(t *testing.T) (*Service, *memStore, *capturePublisher) {
	t.Helper()

	store := newMemStore()
	pub := &capturePublisher{}
	cfg := &config.PolicyConfig{
		FanoutPageSize:             2,
		WriteRetries:               3,
		ClarificationDays:          5,
		ClarificationAllowMultiple: true,
	}

	svc := NewService(store, pub, nil, &memDocs{files: map[string][]byte{}}, cfg, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store, pub
}

func submittedBid(t *testing.T, svc *Service) models.Bid {
	t.Helper()

	bid, err := svc.CreateBid(context.Background(), CreateBidRequest{
		TenderId:   "tender-" + uuid.NewString(),
		TendererId: "acme",
		Items:      []models.BidItem{{Description: "pipes", Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	bid, err = svc.SubmitBid(context.Background(), bid.Id)
	if err != nil {
		t.Fatal(err)
	}
	return bid
}

type capturePublisher struct {
	mu     sync.Mutex
	events []models.BidEvent
}

func (p *capturePublisher) Publish(_ context.Context, event models.BidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) drain() []models.BidEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := p.events
	p.events = nil
	return events
}

type memDocs struct {
	files map[string][]byte
}

func (d *memDocs) Store(_ context.Context, name string, content io.Reader) (int64, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return 0, err
	}
	d.files[name] = data
	return int64(len(data)), nil
}

func (d *memDocs) Retrieve(_ context.Context, name string) (io.ReadCloser, error) {
	data, ok := d.files[name]
	if !ok {
		return nil, models.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (d *memDocs) Delete(_ context.Context, name string) error {
	delete(d.files, name)
	return nil
}

// memStore is an in-memory Store with the same observable semantics as
// the Postgres repository: version-guarded updates, append-only
// snapshots, one active bid per tenderer and tender.
type memStore struct {
	mu             sync.Mutex
	bids           map[string]models.Bid
	order          []string
	versions       map[string][]models.BidVersion
	clarifications map[string]models.Clarification
	requirements   map[string][]models.ComplianceRequirement
	results        map[string]models.ComplianceCheckResult

	// lostWrites[bidId] > 0 makes UpdateBid behave as if another writer
	// got there first: the stored version is bumped and the caller's
	// write fails with ErrConcurrentModification.
	lostWrites map[string]int
	// failWrites[bidId] makes UpdateBid fail hard with the given error.
	failWrites map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		bids:           map[string]models.Bid{},
		versions:       map[string][]models.BidVersion{},
		clarifications: map[string]models.Clarification{},
		requirements:   map[string][]models.ComplianceRequirement{},
		results:        map[string]models.ComplianceCheckResult{},
		lostWrites:     map[string]int{},
		failWrites:     map[string]error{},
	}
}

func (m *memStore) loseWrites(bidId string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lostWrites[bidId] = n
}

func (m *memStore) CreateBid(_ context.Context, bid models.Bid) (models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.bids {
		if existing.TenderId == bid.TenderId && existing.TendererId == bid.TendererId &&
			!models.TerminalBidStatus(existing.Status) {
			return models.Bid{}, models.ErrDuplicateBid
		}
	}

	bid.Id = uuid.NewString()
	bid.Version = 1
	bid.CreatedAt = time.Now().UTC()
	bid.UpdatedAt = bid.CreatedAt

	m.bids[bid.Id] = bid
	m.order = append(m.order, bid.Id)
	m.versions[bid.Id] = append(m.versions[bid.Id], bid.Snapshot())
	return bid, nil
}

func (m *memStore) GetBid(_ context.Context, bidId string) (models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bid, ok := m.bids[bidId]
	if !ok {
		return models.Bid{}, models.ErrNotFound
	}
	return bid, nil
}

func (m *memStore) ListBids(_ context.Context, filter models.BidFilter, limit, offset int) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.Bid
	for _, id := range m.order {
		bid, ok := m.bids[id]
		if !ok {
			continue
		}
		if filter.TenderId != "" && bid.TenderId != filter.TenderId {
			continue
		}
		if filter.TendererId != "" && bid.TendererId != filter.TendererId {
			continue
		}
		if len(filter.Statuses) > 0 {
			found := false
			for _, s := range filter.Statuses {
				if bid.Status == s {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		matched = append(matched, bid)
	}

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *memStore) UpdateBid(_ context.Context, bid models.Bid, expectedVersion int) (models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failWrites[bid.Id]; ok {
		return models.Bid{}, err
	}

	stored, ok := m.bids[bid.Id]
	if !ok {
		return models.Bid{}, models.ErrNotFound
	}

	if m.lostWrites[bid.Id] > 0 {
		m.lostWrites[bid.Id]--
		stored.Version++
		stored.UpdatedAt = time.Now().UTC()
		m.bids[bid.Id] = stored
		m.versions[bid.Id] = append(m.versions[bid.Id], stored.Snapshot())
		return models.Bid{}, models.ErrConcurrentModification
	}

	if stored.Version != expectedVersion {
		return models.Bid{}, models.ErrConcurrentModification
	}

	bid.Version = expectedVersion + 1
	bid.CreatedAt = stored.CreatedAt
	bid.UpdatedAt = time.Now().UTC()
	m.bids[bid.Id] = bid
	m.versions[bid.Id] = append(m.versions[bid.Id], bid.Snapshot())
	return bid, nil
}

func (m *memStore) DeleteBid(_ context.Context, bidId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bids[bidId]; !ok {
		return models.ErrNotFound
	}
	delete(m.bids, bidId)
	delete(m.results, bidId)
	return nil
}

func (m *memStore) GetBidVersions(_ context.Context, bidId string) ([]models.BidVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.versions[bidId]
	if len(versions) == 0 {
		return nil, models.ErrNotFound
	}
	sorted := make([]models.BidVersion, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return sorted, nil
}

func (m *memStore) GetBidVersion(_ context.Context, bidId string, version int) (models.BidVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range m.versions[bidId] {
		if v.Version == version {
			return v, nil
		}
	}
	return models.BidVersion{}, models.ErrNoVersion
}

func (m *memStore) CreateClarification(_ context.Context, c models.Clarification) (models.Clarification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.Id = uuid.NewString()
	m.clarifications[c.Id] = c
	return c, nil
}

func (m *memStore) GetClarification(_ context.Context, clarificationId string) (models.Clarification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clarifications[clarificationId]
	if !ok {
		return models.Clarification{}, models.ErrNotFound
	}
	return c, nil
}

func (m *memStore) ListClarifications(_ context.Context, bidId string) ([]models.Clarification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Clarification
	for _, c := range m.clarifications {
		if c.BidId == bidId {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (m *memStore) HasPendingClarification(_ context.Context, bidId string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.clarifications {
		if c.BidId == bidId && c.Status == models.ClarificationPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) AnswerClarification(_ context.Context, clarificationId, response, tendererId string, answeredAt time.Time) (models.Clarification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clarifications[clarificationId]
	if !ok {
		return models.Clarification{}, models.ErrNotFound
	}
	if c.Status != models.ClarificationPending {
		return models.Clarification{}, models.ErrExpiredOrInvalidState
	}

	c.Status = models.ClarificationAnswered
	c.Response = response
	c.TendererId = tendererId
	c.AnsweredAt = &answeredAt
	m.clarifications[clarificationId] = c
	return c, nil
}

func (m *memStore) ExpireClarifications(_ context.Context, bidId string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired := 0
	for id, c := range m.clarifications {
		if c.BidId == bidId && c.Status == models.ClarificationPending && now.After(c.Deadline) {
			c.Status = models.ClarificationExpired
			m.clarifications[id] = c
			expired++
		}
	}
	return expired, nil
}

func (m *memStore) GetRequirements(_ context.Context, tenderId string) ([]models.ComplianceRequirement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requirements[tenderId], nil
}

func (m *memStore) SaveComplianceResult(_ context.Context, result models.ComplianceCheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result.BidId] = result
	return nil
}

func (m *memStore) GetComplianceResult(_ context.Context, bidId string) (models.ComplianceCheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, ok := m.results[bidId]
	if !ok {
		return models.ComplianceCheckResult{}, models.ErrNotFound
	}
	return result, nil
}

func (m *memStore) FindResultByItem(_ context.Context, itemId string) (models.ComplianceCheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, result := range m.results {
		for _, item := range result.Items {
			if item.Id == itemId {
				return result, nil
			}
		}
	}
	return models.ComplianceCheckResult{}, models.ErrNotFound
}
