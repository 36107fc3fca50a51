package repository

import (
	"context"
	"database/sql"
	"fmt"

	"bidding/internal/models"
)

// The requirement catalog is owned by the Tender service; this side only
// reads it (and seeds it in tests).

func (repo *Repository) GetRequirements(ctx context.Context, tenderId string) ([]models.ComplianceRequirement, error) {
	query := `
	SELECT id, tender_id, description, document_kind, mandatory
	FROM compliance_requirements
	WHERE tender_id = $1
	ORDER BY id
	`

	rows, err := repo.db.QueryContext(ctx, query, tenderId)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.GetRequirements: %w", err)
	}
	defer rows.Close()

	var result []models.ComplianceRequirement
	var req models.ComplianceRequirement
	for rows.Next() {
		err = rows.Scan(&req.Id, &req.TenderId, &req.Description, &req.DocumentKind, &req.Mandatory)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.GetRequirements: rows scan error: %w", err)
		}
		result = append(result, req)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.GetRequirements: %w", rows.Err())
	}

	return result, nil
}

func (repo *Repository) AddRequirement(ctx context.Context, req models.ComplianceRequirement) (models.ComplianceRequirement, error) {
	query := `
	INSERT INTO compliance_requirements (tender_id, description, document_kind, mandatory)
	VALUES ($1, $2, $3, $4)
	RETURNING id
	`

	row := repo.db.QueryRowContext(ctx, query, req.TenderId, req.Description, req.DocumentKind, req.Mandatory)
	err := row.Scan(&req.Id)
	if err != nil {
		return req, fmt.Errorf("repository.Repository.AddRequirement: %w", err)
	}
	return req, nil
}

// SaveComplianceResult replaces the bid's result wholesale; a recheck
// never patches the previous result incrementally.
func (repo *Repository) SaveComplianceResult(ctx context.Context, result models.ComplianceCheckResult) error {
	query := `
	INSERT INTO compliance_results (bid_id, items, compliant, verified_by, checked_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (bid_id) DO UPDATE
	SET (items, compliant, verified_by, checked_at) = (EXCLUDED.items, EXCLUDED.compliant, EXCLUDED.verified_by, EXCLUDED.checked_at)
	`

	items, err := marshalJSON(result.Items)
	if err != nil {
		return fmt.Errorf("repository.Repository.SaveComplianceResult: %w", err)
	}

	_, err = repo.db.ExecContext(ctx, query, result.BidId, items, result.Compliant, result.VerifiedBy, result.CheckedAt)
	if err != nil {
		return fmt.Errorf("repository.Repository.SaveComplianceResult: %w", err)
	}
	return nil
}

func (repo *Repository) GetComplianceResult(ctx context.Context, bidId string) (models.ComplianceCheckResult, error) {
	query := `
	SELECT bid_id, items, compliant, verified_by, checked_at
	FROM compliance_results
	WHERE bid_id = $1
	`

	var result models.ComplianceCheckResult
	var items []byte
	row := repo.db.QueryRowContext(ctx, query, bidId)
	err := row.Scan(&result.BidId, &items, &result.Compliant, &result.VerifiedBy, &result.CheckedAt)
	if err != nil {
		return result, fmt.Errorf("repository.Repository.GetComplianceResult: %w", mapStoreErr(err))
	}

	if err = unmarshalJSON(items, &result.Items); err != nil {
		return result, fmt.Errorf("repository.Repository.GetComplianceResult: %w", err)
	}
	return result, nil
}

// FindResultByItem locates the check result containing the given
// compliance item, for manual verification by item id.
func (repo *Repository) FindResultByItem(ctx context.Context, itemId string) (models.ComplianceCheckResult, error) {
	query := `
	SELECT bid_id, items, compliant, verified_by, checked_at
	FROM compliance_results
	WHERE items @> $1::jsonb
	`

	var result models.ComplianceCheckResult
	var items []byte
	row := repo.db.QueryRowContext(ctx, query, fmt.Sprintf(`[{"id": %q}]`, itemId))
	err := row.Scan(&result.BidId, &items, &result.Compliant, &result.VerifiedBy, &result.CheckedAt)
	if err == sql.ErrNoRows {
		return result, fmt.Errorf("repository.Repository.FindResultByItem: %w", models.ErrNotFound)
	} else if err != nil {
		return result, fmt.Errorf("repository.Repository.FindResultByItem: %w", err)
	}

	if err = unmarshalJSON(items, &result.Items); err != nil {
		return result, fmt.Errorf("repository.Repository.FindResultByItem: %w", err)
	}
	return result, nil
}
