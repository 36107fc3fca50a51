package service

import (
	"context"
	"errors"
	"fmt"

	"bidding/internal/models"
	"bidding/internal/statemachine"

	"github.com/hashicorp/go-multierror"
)

// FanoutReport summarizes a bulk transition over every bid of a tender.
// Failures are collected per bid, never allowed to abort the run.
type FanoutReport struct {
	TenderId     string
	Processed    int
	Transitioned int
	Skipped      int
	Failed       int
	Errors       *multierror.Error
}

// Err is nil when every bid either transitioned or was already settled.
func (r FanoutReport) Err() error {
	return r.Errors.ErrorOrNil()
}

// CloseBidsForTender marks still-draft bids NOT_SUBMITTED after the
// tender's submission deadline passed.
func (s *Service) CloseBidsForTender(ctx context.Context, tenderId string) (FanoutReport, error) {
	report, err := s.fanout(ctx, tenderId, statemachine.TriggerTenderClosed)
	if err != nil {
		return report, fmt.Errorf("service.Service.CloseBidsForTender: %w", err)
	}

	return report, nil
}

// CancelBidsForTender cancels every non-terminal bid of a cancelled
// tender.
func (s *Service) CancelBidsForTender(ctx context.Context, tenderId, reason string) (FanoutReport, error) {
	report, err := s.fanout(ctx, tenderId, statemachine.TriggerTenderCancelled)
	if err != nil {
		return report, fmt.Errorf("service.Service.CancelBidsForTender: %w", err)
	}

	s.log.Info("tender bids cancelled",
		"tenderId", tenderId, "reason", reason,
		"transitioned", report.Transitioned, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// fanout walks the tender's bids in fixed-size pages so memory stays
// bounded regardless of tender size, and applies the trigger to each bid
// independently.
//
// Per-bid outcomes: a transition counts as transitioned; a no-op or an
// invalid transition counts as skipped (the bid is already settled, or
// the trigger simply does not apply to its status); anything else counts
// as failed and is collected into the report. The page offset only moves
// forward, so a failure in a later page never re-works earlier pages.
func (s *Service) fanout(ctx context.Context, tenderId string, trigger statemachine.Trigger) (FanoutReport, error) {
	report := FanoutReport{TenderId: tenderId}
	filter := models.BidFilter{TenderId: tenderId}
	pageSize := s.cfg.FanoutPageSize

	for offset := 0; ; offset += pageSize {
		page, err := s.store.ListBids(ctx, filter, pageSize, offset)
		if err != nil {
			// A page read failure is a run failure: without the page
			// there is nothing to isolate per bid.
			return report, err
		}

		for _, bid := range page {
			report.Processed++

			_, noop, err := s.ApplyTrigger(ctx, bid.Id, trigger, statemachine.Payload{}, nil)
			switch {
			case err == nil && !noop:
				report.Transitioned++
			case err == nil:
				report.Skipped++
			case errors.Is(err, models.ErrInvalidTransition):
				report.Skipped++
			default:
				report.Failed++
				report.Errors = multierror.Append(report.Errors, fmt.Errorf("bid %s: %w", bid.Id, err))
			}
		}

		if len(page) < pageSize {
			return report, nil
		}
	}
}
