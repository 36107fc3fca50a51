// Package statemachine holds the bid lifecycle transition table. It is
// pure decision logic: no I/O, no clock, no locking. Persistence and
// concurrency control live in the service and repository layers.
package statemachine

import (
	"fmt"

	"bidding/internal/models"
)

// Trigger is a named cause of a status transition: a tenderer/evaluator
// API action or an inbound domain event.
type Trigger string

const (
	TriggerSubmit              Trigger = "SUBMIT"
	TriggerTenderClosed        Trigger = "TENDER_CLOSED"
	TriggerTenderCancelled     Trigger = "TENDER_CANCELLED"
	TriggerEvaluationStarted   Trigger = "EVALUATION_STARTED"
	TriggerEvaluationCompleted Trigger = "EVALUATION_COMPLETED"
	TriggerBidAwarded          Trigger = "BID_AWARDED"
	TriggerContractCreated     Trigger = "CONTRACT_CREATED"
	TriggerContractTerminated  Trigger = "CONTRACT_TERMINATED"
)

// Payload carries trigger-specific data. Only EVALUATION_COMPLETED
// consults it today.
type Payload struct {
	// EvaluationResult is PASS, FAIL or CONDITIONAL. Anything but PASS
	// rejects the bid.
	EvaluationResult string
}

type rule struct {
	from models.BidStatus
	to   models.BidStatus
}

// transitions is the lifecycle as data. Each trigger lists the statuses
// it may fire from and the status it yields. TENDER_CANCELLED is the one
// trigger accepted from any non-terminal status and is handled in Apply
// rather than enumerated here.
var transitions = map[Trigger][]rule{
	TriggerSubmit:             {{from: models.BidDraft, to: models.BidSubmitted}},
	TriggerTenderClosed:       {{from: models.BidDraft, to: models.BidNotSubmitted}},
	TriggerEvaluationStarted:  {{from: models.BidSubmitted, to: models.BidUnderEvaluation}},
	TriggerBidAwarded:         {{from: models.BidEvaluated, to: models.BidAwarded}},
	TriggerContractCreated:    {{from: models.BidAwarded, to: models.BidContracted}},
	TriggerContractTerminated: {{from: models.BidContracted, to: models.BidTerminated}},
}

// Apply computes the next status for a bid at the given status under the
// given trigger.
//
// The bool result reports a no-op: the bid is already at the trigger's
// target status, which happens on redelivery of an already-applied event
// and must be treated as success without a new version or side effects.
//
// A trigger that is neither applicable nor a no-op fails with
// models.ErrInvalidTransition and leaves the caller to decide whether
// that is a stale event or a client error.
func Apply(current models.BidStatus, trigger Trigger, payload Payload) (models.BidStatus, bool, error) {
	next, ok := target(current, trigger, payload)
	if !ok {
		if done, target := alreadyApplied(current, trigger, payload); done {
			return target, true, nil
		}
		return current, false, fmt.Errorf("statemachine.Apply: %s from %s: %w",
			trigger, current, models.ErrInvalidTransition)
	}
	return next, false, nil
}

func target(current models.BidStatus, trigger Trigger, payload Payload) (models.BidStatus, bool) {
	switch trigger {
	case TriggerTenderCancelled:
		if models.TerminalBidStatus(current) {
			return "", false
		}
		return models.BidCancelled, true

	case TriggerEvaluationCompleted:
		if current != models.BidUnderEvaluation {
			return "", false
		}
		if payload.EvaluationResult == models.EvaluationPass {
			return models.BidEvaluated, true
		}
		return models.BidRejected, true
	}

	for _, r := range transitions[trigger] {
		if r.from == current {
			return r.to, true
		}
	}
	return "", false
}

// alreadyApplied reports whether the bid's current status is exactly the
// status this trigger would have produced, i.e. the event is a duplicate.
func alreadyApplied(current models.BidStatus, trigger Trigger, payload Payload) (bool, models.BidStatus) {
	switch trigger {
	case TriggerTenderCancelled:
		return current == models.BidCancelled, models.BidCancelled

	case TriggerEvaluationCompleted:
		if payload.EvaluationResult == models.EvaluationPass {
			return current == models.BidEvaluated, models.BidEvaluated
		}
		return current == models.BidRejected, models.BidRejected
	}

	for _, r := range transitions[trigger] {
		if r.to == current {
			return true, current
		}
	}
	return false, current
}

// Triggers lists every known trigger, for exhaustive checks.
func Triggers() []Trigger {
	return []Trigger{
		TriggerSubmit,
		TriggerTenderClosed,
		TriggerTenderCancelled,
		TriggerEvaluationStarted,
		TriggerEvaluationCompleted,
		TriggerBidAwarded,
		TriggerContractCreated,
		TriggerContractTerminated,
	}
}
