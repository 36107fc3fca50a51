package service

import (
	"context"
	"fmt"

	"bidding/internal/audit"
	"bidding/internal/models"
)

// clarifiable statuses: a question only makes sense once the bid is in
// front of evaluators.
func clarificationAllowed(status models.BidStatus) bool {
	return status == models.BidSubmitted || status == models.BidUnderEvaluation
}

func (s *Service) ListClarifications(ctx context.Context, bidId string) ([]models.Clarification, error) {
	if _, err := s.store.GetBid(ctx, bidId); err != nil {
		return nil, fmt.Errorf("service.Service.ListClarifications: %w", err)
	}

	clarifications, err := s.store.ListClarifications(ctx, bidId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.ListClarifications: %w", err)
	}
	return clarifications, nil
}

func (s *Service) RequestClarification(ctx context.Context, bidId, question, evaluatorId string, daysToRespond int) (models.Clarification, error) {
	bid, err := s.store.GetBid(ctx, bidId)
	if err != nil {
		return models.Clarification{}, fmt.Errorf("service.Service.RequestClarification: %w", err)
	}

	if !clarificationAllowed(bid.Status) {
		return models.Clarification{}, fmt.Errorf("service.Service.RequestClarification: bid is %s: %w", bid.Status, models.ErrClarificationDenied)
	}

	if !s.cfg.ClarificationAllowMultiple {
		pending, err := s.store.HasPendingClarification(ctx, bidId)
		if err != nil {
			return models.Clarification{}, fmt.Errorf("service.Service.RequestClarification: %w", err)
		}
		if pending {
			return models.Clarification{}, fmt.Errorf("service.Service.RequestClarification: %w", models.ErrClarificationPending)
		}
	}

	if daysToRespond <= 0 {
		daysToRespond = s.cfg.ClarificationDays
	}
	requestedAt := s.now().UTC()

	clarification, err := s.store.CreateClarification(ctx, models.Clarification{
		BidId:       bidId,
		Question:    question,
		EvaluatorId: evaluatorId,
		Status:      models.ClarificationPending,
		RequestedAt: requestedAt,
		Deadline:    requestedAt.AddDate(0, 0, daysToRespond),
	})
	if err != nil {
		return models.Clarification{}, fmt.Errorf("service.Service.RequestClarification: %w", err)
	}

	s.sink.Record(ctx, audit.Entry{Action: "CLARIFICATION_REQUESTED", BidId: bidId, TenderId: bid.TenderId, Actor: evaluatorId})
	return clarification, nil
}

// RespondToClarification records the tenderer's answer. A response after
// the deadline fails and leaves the clarification PENDING; only the
// explicit expiry sweep moves it to EXPIRED.
func (s *Service) RespondToClarification(ctx context.Context, clarificationId, response, tendererId string) (models.Clarification, error) {
	clarification, err := s.store.GetClarification(ctx, clarificationId)
	if err != nil {
		return models.Clarification{}, fmt.Errorf("service.Service.RespondToClarification: %w", err)
	}

	now := s.now().UTC()
	if clarification.Status != models.ClarificationPending || now.After(clarification.Deadline) {
		return models.Clarification{}, fmt.Errorf("service.Service.RespondToClarification: %w", models.ErrExpiredOrInvalidState)
	}

	answered, err := s.store.AnswerClarification(ctx, clarificationId, response, tendererId, now)
	if err != nil {
		return models.Clarification{}, fmt.Errorf("service.Service.RespondToClarification: %w", err)
	}

	s.sink.Record(ctx, audit.Entry{Action: "CLARIFICATION_ANSWERED", BidId: answered.BidId, Actor: tendererId})
	return answered, nil
}

// ExpireClarifications sweeps the bid's overdue PENDING clarifications.
// Expiry is only as timely as this sweep's invocation; there is no
// per-clarification timer.
func (s *Service) ExpireClarifications(ctx context.Context, bidId string) (int, error) {
	if _, err := s.store.GetBid(ctx, bidId); err != nil {
		return 0, fmt.Errorf("service.Service.ExpireClarifications: %w", err)
	}

	expired, err := s.store.ExpireClarifications(ctx, bidId, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("service.Service.ExpireClarifications: %w", err)
	}

	if expired > 0 {
		s.sink.Record(ctx, audit.Entry{Action: "CLARIFICATIONS_EXPIRED", BidId: bidId, Detail: fmt.Sprintf("%d expired", expired)})
	}
	return expired, nil
}
