package models

import "time"

type ClarificationStatus string

const (
	ClarificationPending  ClarificationStatus = "PENDING"
	ClarificationAnswered ClarificationStatus = "ANSWERED"
	ClarificationExpired  ClarificationStatus = "EXPIRED"
)

func ValidClarificationStatus(s ClarificationStatus) bool {
	switch s {
	case ClarificationPending, ClarificationAnswered, ClarificationExpired:
		return true
	default:
		return false
	}
}

// Clarification is a deadline-bound question/answer exchange on a bid.
// Records are append-only: a clarification moves PENDING -> ANSWERED or
// PENDING -> EXPIRED and is never deleted or reversed.
type Clarification struct {
	Id          string              `json:"id"`
	BidId       string              `json:"bidId"`
	Question    string              `json:"question"`
	Response    string              `json:"response,omitempty"`
	EvaluatorId string              `json:"evaluatorId"`
	TendererId  string              `json:"tendererId,omitempty"`
	Status      ClarificationStatus `json:"status"`
	RequestedAt time.Time           `json:"requestedAt"`
	Deadline    time.Time           `json:"deadline"`
	AnsweredAt  *time.Time          `json:"answeredAt,omitempty"`
}
