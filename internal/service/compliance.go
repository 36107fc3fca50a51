package service

import (
	"context"
	"fmt"

	"bidding/internal/audit"
	"bidding/internal/models"

	"github.com/google/uuid"
)

// CheckBidCompliance evaluates the bid against the tender's requirement
// catalog and replaces any previous result wholesale. A requirement
// bound to a document kind passes when the bid carries a document of
// that kind; an unbound requirement passes when the bid has line items
// at all. The overall verdict is the conjunction of the mandatory
// requirements only.
func (s *Service) CheckBidCompliance(ctx context.Context, bidId string) (models.ComplianceCheckResult, error) {
	bid, err := s.store.GetBid(ctx, bidId)
	if err != nil {
		return models.ComplianceCheckResult{}, fmt.Errorf("service.Service.CheckBidCompliance: %w", err)
	}

	requirements, err := s.store.GetRequirements(ctx, bid.TenderId)
	if err != nil {
		return models.ComplianceCheckResult{}, fmt.Errorf("service.Service.CheckBidCompliance: %w", err)
	}

	result := models.ComplianceCheckResult{
		BidId:      bid.Id,
		Compliant:  true,
		VerifiedBy: models.VerifierAutomated,
		CheckedAt:  s.now().UTC(),
	}

	for _, req := range requirements {
		item := models.ComplianceItem{
			Id:            uuid.NewString(),
			RequirementId: req.Id,
			Mandatory:     req.Mandatory,
		}

		switch {
		case req.DocumentKind != "":
			item.Compliant = hasDocumentOfKind(bid, req.DocumentKind)
			if !item.Compliant {
				item.Comment = fmt.Sprintf("missing document of kind %q", req.DocumentKind)
			}
		default:
			item.Compliant = len(bid.Items) > 0
			if !item.Compliant {
				item.Comment = "bid has no line items"
			}
		}

		if req.Mandatory && !item.Compliant {
			result.Compliant = false
		}
		result.Items = append(result.Items, item)
	}

	err = s.saveComplianceResult(ctx, result)
	if err != nil {
		return models.ComplianceCheckResult{}, fmt.Errorf("service.Service.CheckBidCompliance: %w", err)
	}

	s.sink.Record(ctx, audit.Entry{
		Action:   "COMPLIANCE_CHECKED",
		BidId:    bid.Id,
		TenderId: bid.TenderId,
		Detail:   fmt.Sprintf("compliant=%v over %d requirements", result.Compliant, len(result.Items)),
	})
	return result, nil
}

// VerifyComplianceItem is the manual override: an evaluator confirms or
// overturns one automated item verdict. The whole result is re-saved
// with the evaluator as verifier; the overall verdict is recomputed
// under the same mandatory-only rule as the automated check.
func (s *Service) VerifyComplianceItem(ctx context.Context, itemId string, compliant bool, comment, evaluatorId string) (models.ComplianceCheckResult, error) {
	result, err := s.store.FindResultByItem(ctx, itemId)
	if err != nil {
		return models.ComplianceCheckResult{}, fmt.Errorf("service.Service.VerifyComplianceItem: %w", err)
	}

	found := false
	overall := true
	for i := range result.Items {
		if result.Items[i].Id == itemId {
			result.Items[i].Compliant = compliant
			result.Items[i].Comment = comment
			found = true
		}
		if result.Items[i].Mandatory && !result.Items[i].Compliant {
			overall = false
		}
	}
	if !found {
		return models.ComplianceCheckResult{}, fmt.Errorf("service.Service.VerifyComplianceItem: %w", models.ErrNotFound)
	}

	result.Compliant = overall
	result.VerifiedBy = evaluatorId
	result.CheckedAt = s.now().UTC()

	err = s.saveComplianceResult(ctx, result)
	if err != nil {
		return models.ComplianceCheckResult{}, fmt.Errorf("service.Service.VerifyComplianceItem: %w", err)
	}

	s.sink.Record(ctx, audit.Entry{Action: "COMPLIANCE_VERIFIED", BidId: result.BidId, Actor: evaluatorId})
	return result, nil
}

func (s *Service) GetComplianceRequirements(ctx context.Context, tenderId string) ([]models.ComplianceRequirement, error) {
	requirements, err := s.store.GetRequirements(ctx, tenderId)
	if err != nil {
		return nil, fmt.Errorf("service.Service.GetComplianceRequirements: %w", err)
	}
	return requirements, nil
}

// saveComplianceResult persists the result and mirrors it onto the bid
// as its latest compliance verdict, which appends a bid version like any
// other mutation.
func (s *Service) saveComplianceResult(ctx context.Context, result models.ComplianceCheckResult) error {
	err := s.store.SaveComplianceResult(ctx, result)
	if err != nil {
		return err
	}

	_, err = s.mutateBid(ctx, result.BidId, func(bid *models.Bid) error {
		r := result
		bid.ComplianceResult = &r
		return nil
	})
	return err
}

func hasDocumentOfKind(bid models.Bid, kind string) bool {
	for _, doc := range bid.Documents {
		if doc.Kind == kind {
			return true
		}
	}
	return false
}
