package models

import "time"

// ComplianceRequirement is a read-only rule from the tender's catalog
// that a bid must satisfy.
type ComplianceRequirement struct {
	Id          string `json:"id"`
	TenderId    string `json:"tenderId"`
	Description string `json:"description"`
	// DocumentKind names the document kind whose presence satisfies the
	// requirement; empty means the rule is satisfied by any line item.
	DocumentKind string `json:"documentKind,omitempty"`
	Mandatory    bool   `json:"mandatory"`
}

type ComplianceItem struct {
	Id            string `json:"id"`
	RequirementId string `json:"requirementId"`
	// Mandatory mirrors the requirement's flag so the overall verdict
	// can be recomputed without re-fetching the catalog.
	Mandatory bool   `json:"mandatory"`
	Compliant bool   `json:"compliant"`
	Comment   string `json:"comment,omitempty"`
}

// ComplianceCheckResult is the outcome of checking one bid against the
// requirement catalog. A recheck replaces the result wholesale.
type ComplianceCheckResult struct {
	BidId      string           `json:"bidId"`
	Items      []ComplianceItem `json:"items"`
	Compliant  bool             `json:"compliant"`
	VerifiedBy string           `json:"verifiedBy"`
	CheckedAt  time.Time        `json:"checkedAt"`
}

// VerifierAutomated marks results produced by the automated check, as
// opposed to a manual evaluator override.
const VerifierAutomated = "automated"
