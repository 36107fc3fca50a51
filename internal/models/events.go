package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inbound event types per topic. The three upstream topics are
// independent; no cross-topic ordering is guaranteed.
const (
	TenderPublished        = "TENDER_PUBLISHED"
	TenderUpdated          = "TENDER_UPDATED"
	TenderClosed           = "TENDER_CLOSED"
	TenderCancelled        = "TENDER_CANCELLED"
	TenderDeadlineExtended = "TENDER_DEADLINE_EXTENDED"

	EvaluationStarted   = "EVALUATION_STARTED"
	EvaluationCompleted = "EVALUATION_COMPLETED"
	BidAwardedEvent     = "BID_AWARDED"

	ContractCreated    = "CONTRACT_CREATED"
	ContractSigned     = "CONTRACT_SIGNED"
	ContractTerminated = "CONTRACT_TERMINATED"
)

const (
	EvaluationPass        = "PASS"
	EvaluationFail        = "FAIL"
	EvaluationConditional = "CONDITIONAL"
)

type TenderEvent struct {
	EventId            string     `json:"eventId"`
	EventType          string     `json:"eventType"`
	Timestamp          time.Time  `json:"timestamp"`
	TenderId           string     `json:"tenderId"`
	TenderReference    string     `json:"tenderReference,omitempty"`
	SubmissionDeadline *time.Time `json:"submissionDeadline,omitempty"`
	PreviousDeadline   *time.Time `json:"previousDeadline,omitempty"`
	CancelReason       string     `json:"cancelReason,omitempty"`
}

type EvaluationEvent struct {
	EventId     string    `json:"eventId"`
	EventType   string    `json:"eventType"`
	Timestamp   time.Time `json:"timestamp"`
	TenderId    string    `json:"tenderId,omitempty"`
	BidId       string    `json:"bidId"`
	EvaluatedBy string    `json:"evaluatedBy,omitempty"`
	Result      string    `json:"result,omitempty"`
	Score       float64   `json:"score,omitempty"`
	Comments    string    `json:"comments,omitempty"`
}

type ContractEvent struct {
	EventId    string    `json:"eventId"`
	EventType  string    `json:"eventType"`
	Timestamp  time.Time `json:"timestamp"`
	TenderId   string    `json:"tenderId,omitempty"`
	BidId      string    `json:"bidId"`
	ContractId string    `json:"contractId"`
}

// Outbound event types on the bid-events topic.
const (
	BidCreatedEvent   = "BID_CREATED"
	BidSubmittedEvent = "BID_SUBMITTED"
)

// BidEvent is what this service publishes. It carries the bid version so
// downstream consumers can deduplicate redeliveries.
type BidEvent struct {
	EventId     string          `json:"eventId"`
	EventType   string          `json:"eventType"`
	Timestamp   time.Time       `json:"timestamp"`
	BidId       string          `json:"bidId"`
	TenderId    string          `json:"tenderId"`
	TendererId  string          `json:"tendererId"`
	BidVersion  int             `json:"bidVersion"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	ItemCount   int             `json:"itemCount"`
	SubmittedAt *time.Time      `json:"submittedAt,omitempty"`
}
