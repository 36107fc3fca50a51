package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bidding/internal/models"
	"bidding/internal/statemachine"

	"github.com/shopspring/decimal"
)

func TestCancelBidsForTender(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// Five bids in mixed states; page size is 2, so the fan-out pages
	// three times.
	draft1 := tenderBid(t, svc, "tender-1", "firm-1")
	draft2 := tenderBid(t, svc, "tender-1", "firm-2")
	submitted := tenderBid(t, svc, "tender-1", "firm-3", statemachine.TriggerSubmit)
	contracted := tenderBid(t, svc, "tender-1", "firm-4",
		statemachine.TriggerSubmit,
		statemachine.TriggerEvaluationStarted,
		statemachine.TriggerEvaluationCompleted,
		statemachine.TriggerBidAwarded,
		statemachine.TriggerContractCreated)
	cancelled := tenderBid(t, svc, "tender-1", "firm-5", statemachine.TriggerTenderCancelled)

	report, err := svc.CancelBidsForTender(ctx, "tender-1", "budget withdrawn")
	if err != nil {
		t.Fatal(err)
	}

	if report.Processed != 5 {
		t.Errorf("Expected 5 bids processed, got %d", report.Processed)
	}
	if report.Transitioned != 3 {
		t.Errorf("Expected 3 bids transitioned, got %d", report.Transitioned)
	}
	if report.Skipped != 2 {
		t.Errorf("Expected 2 bids skipped, got %d", report.Skipped)
	}
	if report.Failed != 0 || report.Err() != nil {
		t.Errorf("Expected no failures, got %d (%v)", report.Failed, report.Err())
	}

	for _, id := range []string{draft1, draft2, submitted, cancelled} {
		assertStatus(t, svc, id, models.BidCancelled)
	}
	assertStatus(t, svc, contracted, models.BidContracted)
}

func TestCloseBidsForTender(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	draft := tenderBid(t, svc, "tender-1", "firm-1")
	submitted := tenderBid(t, svc, "tender-1", "firm-2", statemachine.TriggerSubmit)

	report, err := svc.CloseBidsForTender(ctx, "tender-1")
	if err != nil {
		t.Fatal(err)
	}
	if report.Transitioned != 1 || report.Skipped != 1 {
		t.Errorf("Expected 1 transitioned and 1 skipped, got %d and %d", report.Transitioned, report.Skipped)
	}
	assertStatus(t, svc, draft, models.BidNotSubmitted)
	assertStatus(t, svc, submitted, models.BidSubmitted)

	// Redelivery of the same TENDER_CLOSED: everything is settled now,
	// nothing transitions again.
	report, err = svc.CloseBidsForTender(ctx, "tender-1")
	if err != nil {
		t.Fatal(err)
	}
	if report.Transitioned != 0 {
		t.Errorf("Expected idempotent re-run, got %d transitions", report.Transitioned)
	}
	if report.Skipped != 2 {
		t.Errorf("Expected 2 skipped on re-run, got %d", report.Skipped)
	}
}

func TestFanoutIsolatesFailures(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	healthy1 := tenderBid(t, svc, "tender-1", "firm-1")
	poisoned := tenderBid(t, svc, "tender-1", "firm-2")
	healthy2 := tenderBid(t, svc, "tender-1", "firm-3")

	store.failWrites[poisoned] = errors.New("disk full")

	report, err := svc.CancelBidsForTender(ctx, "tender-1", "test")
	if err != nil {
		t.Fatal(err)
	}

	if report.Transitioned != 2 {
		t.Errorf("Expected healthy bids to transition, got %d", report.Transitioned)
	}
	if report.Failed != 1 {
		t.Errorf("Expected 1 failed bid, got %d", report.Failed)
	}
	if report.Err() == nil || !strings.Contains(report.Err().Error(), poisoned) {
		t.Errorf("Expected collected error naming bid %s, got %v", poisoned, report.Err())
	}

	assertStatus(t, svc, healthy1, models.BidCancelled)
	assertStatus(t, svc, healthy2, models.BidCancelled)
	assertStatus(t, svc, poisoned, models.BidDraft)
}

//// Service

func tenderBid(t *testing.T, svc *Service, tenderId, tendererId string, triggers ...statemachine.Trigger) string {
	t.Helper()
	ctx := context.Background()

	bid, err := svc.CreateBid(ctx, CreateBidRequest{
		TenderId:   tenderId,
		TendererId: tendererId,
		Items:      []models.BidItem{{Description: "pipes", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, trigger := range triggers {
		payload := statemachine.Payload{}
		if trigger == statemachine.TriggerEvaluationCompleted {
			payload.EvaluationResult = models.EvaluationPass
		}
		if _, _, err = svc.ApplyTrigger(ctx, bid.Id, trigger, payload, nil); err != nil {
			t.Fatalf("%s: %s", trigger, err)
		}
	}
	return bid.Id
}

func assertStatus(t *testing.T, svc *Service, bidId string, want models.BidStatus) {
	t.Helper()

	bid, err := svc.GetBid(context.Background(), bidId)
	if err != nil {
		t.Fatal(err)
	}
	if bid.Status != want {
		t.Errorf("Expected bid %s to be %s, got %s", bidId, want, bid.Status)
	}
}
