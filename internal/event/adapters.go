package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"bidding/internal/models"
	"bidding/internal/service"
	"bidding/internal/statemachine"
)

// Orchestrator is the slice of the bid service the adapters drive.
type Orchestrator interface {
	CloseBidsForTender(ctx context.Context, tenderId string) (service.FanoutReport, error)
	CancelBidsForTender(ctx context.Context, tenderId, reason string) (service.FanoutReport, error)
	ApplyTrigger(ctx context.Context, bidId string, trigger statemachine.Trigger, payload statemachine.Payload, mutate func(*models.Bid)) (models.Bid, bool, error)
}

// NewTenderAdapter consumes tender-events. TENDER_CLOSED and
// TENDER_CANCELLED fan out over the tender's bids; the remaining
// subtypes are informational here and only committed.
func NewTenderAdapter(consumer Consumer, dead DeadLetter, orch Orchestrator, log *slog.Logger) *Adapter {
	a := &Adapter{topic: "tender-events", consumer: consumer, dead: dead, log: log}

	a.dispatch = func(ctx context.Context, msg Message) error {
		var event models.TenderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		if event.TenderId == "" {
			return fmt.Errorf("%w: tender event %s without tenderId", errMalformed, event.EventId)
		}

		log.Info("received tender event", "eventType", event.EventType, "tenderId", event.TenderId)

		switch event.EventType {
		case models.TenderPublished, models.TenderUpdated, models.TenderDeadlineExtended:
			return nil

		case models.TenderClosed:
			report, err := orch.CloseBidsForTender(ctx, event.TenderId)
			if err != nil {
				return err
			}
			return report.Err()

		case models.TenderCancelled:
			report, err := orch.CancelBidsForTender(ctx, event.TenderId, event.CancelReason)
			if err != nil {
				return err
			}
			return report.Err()

		default:
			log.Warn("unknown tender event type", "eventType", event.EventType, "tenderId", event.TenderId)
			return nil
		}
	}

	return a
}

// NewEvaluationAdapter consumes evaluation-events and moves single bids
// through the evaluation stages.
func NewEvaluationAdapter(consumer Consumer, dead DeadLetter, orch Orchestrator, log *slog.Logger) *Adapter {
	a := &Adapter{topic: "evaluation-events", consumer: consumer, dead: dead, log: log}

	a.dispatch = func(ctx context.Context, msg Message) error {
		var event models.EvaluationEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		if event.BidId == "" {
			return fmt.Errorf("%w: evaluation event %s without bidId", errMalformed, event.EventId)
		}

		log.Info("received evaluation event", "eventType", event.EventType, "bidId", event.BidId)

		switch event.EventType {
		case models.EvaluationStarted:
			return applyEvent(ctx, orch, event.BidId, statemachine.TriggerEvaluationStarted, statemachine.Payload{}, log)

		case models.EvaluationCompleted:
			payload := statemachine.Payload{EvaluationResult: event.Result}
			return applyEvent(ctx, orch, event.BidId, statemachine.TriggerEvaluationCompleted, payload, log)

		case models.BidAwardedEvent:
			return applyEvent(ctx, orch, event.BidId, statemachine.TriggerBidAwarded, statemachine.Payload{}, log)

		default:
			log.Warn("unknown evaluation event type", "eventType", event.EventType, "bidId", event.BidId)
			return nil
		}
	}

	return a
}

// NewContractAdapter consumes contract-events. CONTRACT_SIGNED has no
// bid-side transition; it is logged and committed.
func NewContractAdapter(consumer Consumer, dead DeadLetter, orch Orchestrator, log *slog.Logger) *Adapter {
	a := &Adapter{topic: "contract-events", consumer: consumer, dead: dead, log: log}

	a.dispatch = func(ctx context.Context, msg Message) error {
		var event models.ContractEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		if event.BidId == "" {
			return fmt.Errorf("%w: contract event %s without bidId", errMalformed, event.EventId)
		}

		log.Info("received contract event", "eventType", event.EventType, "bidId", event.BidId, "contractId", event.ContractId)

		switch event.EventType {
		case models.ContractCreated:
			return applyEvent(ctx, orch, event.BidId, statemachine.TriggerContractCreated, statemachine.Payload{}, log)

		case models.ContractSigned:
			return nil

		case models.ContractTerminated:
			return applyEvent(ctx, orch, event.BidId, statemachine.TriggerContractTerminated, statemachine.Payload{}, log)

		default:
			log.Warn("unknown contract event type", "eventType", event.EventType, "bidId", event.BidId)
			return nil
		}
	}

	return a
}

// applyEvent runs one bid transition for an inbound event. A no-op
// (duplicate delivery) is success. An invalid transition means the event
// arrived before its prerequisites were consumed on another topic; the
// error propagates so the position stays uncommitted and the broker
// redelivers until the lifecycle catches up.
func applyEvent(ctx context.Context, orch Orchestrator, bidId string, trigger statemachine.Trigger, payload statemachine.Payload, log *slog.Logger) error {
	_, noop, err := orch.ApplyTrigger(ctx, bidId, trigger, payload, nil)
	if err != nil {
		return err
	}
	if noop {
		log.Info("duplicate event, transition already applied", "bidId", bidId, "trigger", trigger)
	}
	return nil
}
