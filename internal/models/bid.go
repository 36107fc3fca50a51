package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BidStatus string

const (
	BidDraft           BidStatus = "DRAFT"
	BidSubmitted       BidStatus = "SUBMITTED"
	BidUnderEvaluation BidStatus = "UNDER_EVALUATION"
	BidEvaluated       BidStatus = "EVALUATED"
	BidRejected        BidStatus = "REJECTED"
	BidAwarded         BidStatus = "AWARDED"
	BidContracted      BidStatus = "CONTRACTED"
	BidNotSubmitted    BidStatus = "NOT_SUBMITTED"
	BidCancelled       BidStatus = "CANCELLED"
	BidTerminated      BidStatus = "TERMINATED"
)

func ValidBidStatus(s BidStatus) bool {
	switch s {
	case BidDraft, BidSubmitted, BidUnderEvaluation, BidEvaluated, BidRejected,
		BidAwarded, BidContracted, BidNotSubmitted, BidCancelled, BidTerminated:
		return true
	default:
		return false
	}
}

// TerminalBidStatus reports whether no further trigger may move a bid
// out of the given status.
func TerminalBidStatus(s BidStatus) bool {
	switch s {
	case BidNotSubmitted, BidRejected, BidCancelled, BidTerminated, BidContracted:
		return true
	default:
		return false
	}
}

type BidItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// DocumentRef points at a document held by the external document store.
// Only the reference lives on the bid; content is never inspected here.
type DocumentRef struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	Size int64  `json:"size"`
}

type Bid struct {
	Id               string                 `json:"id"`
	Version          int                    `json:"version"`
	TenderId         string                 `json:"tenderId"`
	TendererId       string                 `json:"tendererId"`
	Status           BidStatus              `json:"status"`
	Items            []BidItem              `json:"items"`
	Documents        []DocumentRef          `json:"documents"`
	TotalPrice       decimal.Decimal        `json:"totalPrice"`
	SecurityRef      string                 `json:"securityRef,omitempty"`
	ComplianceResult *ComplianceCheckResult `json:"complianceResult,omitempty"`
	SubmittedAt      *time.Time             `json:"submittedAt,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"-"`
}

// BidFilter is a set of independent clauses a bid listing must satisfy.
// Empty fields impose no constraint; the store ANDs the rest together.
type BidFilter struct {
	TenderId   string
	TendererId string
	Statuses   []BidStatus
}

// BidVersion is an immutable snapshot of a bid at a given version number.
// Snapshots are append-only and never deleted.
type BidVersion struct {
	BidId            string                 `json:"bidId"`
	Version          int                    `json:"version"`
	TenderId         string                 `json:"tenderId"`
	TendererId       string                 `json:"tendererId"`
	Status           BidStatus              `json:"status"`
	Items            []BidItem              `json:"items"`
	Documents        []DocumentRef          `json:"documents"`
	TotalPrice       decimal.Decimal        `json:"totalPrice"`
	SecurityRef      string                 `json:"securityRef,omitempty"`
	ComplianceResult *ComplianceCheckResult `json:"complianceResult,omitempty"`
	SubmittedAt      *time.Time             `json:"submittedAt,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
}

// Snapshot captures the bid's full current field set as a version
// record, so any version can reproduce exactly what was on the bid.
func (b Bid) Snapshot() BidVersion {
	return BidVersion{
		BidId:            b.Id,
		Version:          b.Version,
		TenderId:         b.TenderId,
		TendererId:       b.TendererId,
		Status:           b.Status,
		Items:            b.Items,
		Documents:        b.Documents,
		TotalPrice:       b.TotalPrice,
		SecurityRef:      b.SecurityRef,
		ComplianceResult: b.ComplianceResult,
		SubmittedAt:      b.SubmittedAt,
		CreatedAt:        b.UpdatedAt,
	}
}

// SumItems recomputes the total price from the line items.
func (b Bid) SumItems() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
