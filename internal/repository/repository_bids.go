package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"bidding/internal/models"

	"github.com/lib/pq"
)

func (repo *Repository) CreateBid(ctx context.Context, bid models.Bid) (models.Bid, error) {
	query := `
	INSERT INTO bids (version, tender_id, tenderer_id, status, items, documents, total_price, security_ref, created_at, updated_at)
	VALUES
		(1, $1, $2, 'DRAFT', $3, $4, $5, $6, DEFAULT, DEFAULT)
	RETURNING
		id, version, status, created_at, updated_at
	`

	items, err := marshalJSON(bid.Items)
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.CreateBid: %w", err)
	}
	documents, err := marshalJSON(bid.Documents)
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.CreateBid: %w", err)
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.CreateBid: failed to start transaction: %w", err)
	}

	row := tx.QueryRowContext(ctx, query, bid.TenderId, bid.TendererId, items, documents, bid.TotalPrice, bid.SecurityRef)
	err = row.Scan(&bid.Id, &bid.Version, &bid.Status, &bid.CreatedAt, &bid.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return bid, fmt.Errorf("repository.Repository.CreateBid: %w", wrapRollbackErr(tx, models.ErrDuplicateBid))
		}
		return bid, fmt.Errorf("repository.Repository.CreateBid: scan failed: %w", wrapRollbackErr(tx, err))
	}

	err = repo.addBidVersion(ctx, tx, bid)
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.CreateBid: %w", wrapRollbackErr(tx, err))
	}

	err = tx.Commit()
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.CreateBid: failed to commit transaction: %w", err)
	}

	return bid, nil
}

func (repo *Repository) prepBidsQuery(limit, offset int, filter models.BidFilter, UUID string) (query string, queryParams []interface{}) {
	query = `
	SELECT
		id, version, tender_id, tenderer_id, status, items, documents, total_price, security_ref, compliance, submitted_at, created_at, updated_at
	FROM bids
	$conditions$
	ORDER BY created_at, id
	LIMIT $1
	OFFSET $2
	`

	queryParams = make([]interface{}, 0, 6)
	conditions := make([]string, 0, 4)

	if limit <= 0 {
		queryParams = append(queryParams, nil)
	} else {
		queryParams = append(queryParams, limit)
	}
	queryParams = append(queryParams, offset)

	if len(filter.TenderId) > 0 {
		queryParams = append(queryParams, filter.TenderId)
		conditions = append(conditions, "tender_id = $$")
	}
	if len(filter.TendererId) > 0 {
		queryParams = append(queryParams, filter.TendererId)
		conditions = append(conditions, "tenderer_id = $$")
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		queryParams = append(queryParams, pq.Array(statuses))
		conditions = append(conditions, "status = ANY($$)")
	}
	if len(UUID) > 0 {
		queryParams = append(queryParams, UUID)
		conditions = append(conditions, "id = $$")
	}

	condStr := ""
	if len(conditions) > 0 {
		for i := 0; i < len(conditions); i++ {
			conditions[i] = strings.Replace(conditions[i], "$$", "$"+strconv.Itoa(i+3), -1)
		}
		condStr = "WHERE " + strings.Join(conditions, " AND ")
	}
	query = strings.Replace(query, "$conditions$", condStr, -1)

	return query, queryParams
}

func (repo *Repository) ListBids(ctx context.Context, filter models.BidFilter, limit, offset int) ([]models.Bid, error) {
	query, params := repo.prepBidsQuery(limit, offset, filter, "")

	rows, err := repo.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.ListBids: %w", err)
	}
	defer rows.Close()

	var result []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.ListBids: rows scan error: %w", err)
		}
		result = append(result, bid)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.ListBids: %w", rows.Err())
	}

	return result, nil
}

func (repo *Repository) GetBid(ctx context.Context, UUID string) (models.Bid, error) {
	query, params := repo.prepBidsQuery(1, 0, models.BidFilter{}, UUID)
	row := repo.db.QueryRowContext(ctx, query, params...)

	bid, err := scanBid(row)
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.GetBid: %w", mapStoreErr(err))
	}
	return bid, nil
}

// UpdateBid persists the bid's new field set and appends a version
// snapshot under an optimistic check: the write only lands if the stored
// version still equals expectedVersion. A lost race surfaces as
// models.ErrConcurrentModification and the caller must re-read before
// retrying.
func (repo *Repository) UpdateBid(ctx context.Context, bid models.Bid, expectedVersion int) (models.Bid, error) {
	query := `
	UPDATE bids
	SET (version, status, items, documents, total_price, security_ref, compliance, submitted_at, updated_at) =
		($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
	WHERE id = $9 AND version = $10
	RETURNING updated_at
	`

	items, err := marshalJSON(bid.Items)
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.UpdateBid: %w", err)
	}
	documents, err := marshalJSON(bid.Documents)
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.UpdateBid: %w", err)
	}
	compliance, err := marshalJSON(bid.ComplianceResult)
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.UpdateBid: %w", err)
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.UpdateBid: failed to start transaction: %w", err)
	}

	bid.Version = expectedVersion + 1
	row := tx.QueryRowContext(ctx, query,
		bid.Version, bid.Status, items, documents, bid.TotalPrice, bid.SecurityRef, compliance, bid.SubmittedAt,
		bid.Id, expectedVersion)

	err = row.Scan(&bid.UpdatedAt)
	if err == sql.ErrNoRows {
		return bid, fmt.Errorf("repository.Repository.UpdateBid: %w", wrapRollbackErr(tx, repo.versionConflict(ctx, bid.Id)))
	} else if err != nil {
		return bid, fmt.Errorf("repository.Repository.UpdateBid: %w", wrapRollbackErr(tx, err))
	}

	err = repo.addBidVersion(ctx, tx, bid)
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.UpdateBid: %w", wrapRollbackErr(tx, err))
	}

	err = tx.Commit()
	if err != nil {
		return bid, fmt.Errorf("repository.Repository.UpdateBid: failed to commit transaction: %w", err)
	}

	return bid, nil
}

// versionConflict distinguishes a lost optimistic race from a bid that
// was never there.
func (repo *Repository) versionConflict(ctx context.Context, UUID string) error {
	row := repo.db.QueryRowContext(ctx, "SELECT version FROM bids WHERE id = $1", UUID)
	var v int
	err := row.Scan(&v)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	} else if err != nil {
		return err
	}
	return models.ErrConcurrentModification
}

// DeleteBid removes the bid and its compliance result, which references
// it. A draft can own a result since the automated check has no status
// gate.
func (repo *Repository) DeleteBid(ctx context.Context, UUID string) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository.Repository.DeleteBid: failed to start transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM compliance_results WHERE bid_id = $1", UUID)
	if err != nil {
		return fmt.Errorf("repository.Repository.DeleteBid: %w", wrapRollbackErr(tx, err))
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM bids WHERE id = $1", UUID)
	if err != nil {
		return fmt.Errorf("repository.Repository.DeleteBid: %w", wrapRollbackErr(tx, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("repository.Repository.DeleteBid: %w", wrapRollbackErr(tx, models.ErrNotFound))
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("repository.Repository.DeleteBid: failed to commit transaction: %w", err)
	}
	return nil
}

//// Versions

func (repo *Repository) addBidVersion(ctx context.Context, tx *sql.Tx, bid models.Bid) error {
	query := `
	INSERT INTO bid_versions (bid_id, version, tender_id, tenderer_id, status, items, documents, total_price, security_ref, compliance, submitted_at, created_at)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP)
	`

	items, err := marshalJSON(bid.Items)
	if err != nil {
		return fmt.Errorf("repository.Repository.addBidVersion: %w", err)
	}
	documents, err := marshalJSON(bid.Documents)
	if err != nil {
		return fmt.Errorf("repository.Repository.addBidVersion: %w", err)
	}
	compliance, err := marshalJSON(bid.ComplianceResult)
	if err != nil {
		return fmt.Errorf("repository.Repository.addBidVersion: %w", err)
	}

	_, err = tx.ExecContext(ctx, query,
		bid.Id, bid.Version, bid.TenderId, bid.TendererId, bid.Status, items, documents, bid.TotalPrice,
		bid.SecurityRef, compliance, bid.SubmittedAt)
	if err != nil {
		return fmt.Errorf("repository.Repository.addBidVersion: %w", err)
	}

	return nil
}

func (repo *Repository) GetBidVersions(ctx context.Context, UUID string) ([]models.BidVersion, error) {
	query := `
	SELECT bid_id, version, tender_id, tenderer_id, status, items, documents, total_price, security_ref, compliance, submitted_at, created_at
	FROM bid_versions
	WHERE bid_id = $1
	ORDER BY version
	`

	rows, err := repo.db.QueryContext(ctx, query, UUID)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.GetBidVersions: %w", err)
	}
	defer rows.Close()

	var result []models.BidVersion
	for rows.Next() {
		version, err := scanBidVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.GetBidVersions: rows scan error: %w", err)
		}
		result = append(result, version)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.GetBidVersions: %w", rows.Err())
	}

	return result, nil
}

func (repo *Repository) GetBidVersion(ctx context.Context, UUID string, version int) (models.BidVersion, error) {
	query := `
	SELECT bid_id, version, tender_id, tenderer_id, status, items, documents, total_price, security_ref, compliance, submitted_at, created_at
	FROM bid_versions
	WHERE bid_id = $1 AND version = $2
	`

	row := repo.db.QueryRowContext(ctx, query, UUID, version)
	v, err := scanBidVersion(row)
	if err == sql.ErrNoRows {
		return v, fmt.Errorf("repository.Repository.GetBidVersion: %w", models.ErrNoVersion)
	} else if err != nil {
		return v, fmt.Errorf("repository.Repository.GetBidVersion: %w", err)
	}
	return v, nil
}

//// Service

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBid(row rowScanner) (models.Bid, error) {
	var bid models.Bid
	var items, documents, compliance []byte

	err := row.Scan(&bid.Id, &bid.Version, &bid.TenderId, &bid.TendererId, &bid.Status,
		&items, &documents, &bid.TotalPrice, &bid.SecurityRef, &compliance,
		&bid.SubmittedAt, &bid.CreatedAt, &bid.UpdatedAt)
	if err != nil {
		return bid, err
	}

	if err = unmarshalJSON(items, &bid.Items); err != nil {
		return bid, err
	}
	if err = unmarshalJSON(documents, &bid.Documents); err != nil {
		return bid, err
	}
	if err = unmarshalJSON(compliance, &bid.ComplianceResult); err != nil {
		return bid, err
	}
	return bid, nil
}

func scanBidVersion(row rowScanner) (models.BidVersion, error) {
	var v models.BidVersion
	var items, documents, compliance []byte

	err := row.Scan(&v.BidId, &v.Version, &v.TenderId, &v.TendererId, &v.Status,
		&items, &documents, &v.TotalPrice, &v.SecurityRef, &compliance,
		&v.SubmittedAt, &v.CreatedAt)
	if err != nil {
		return v, err
	}

	if err = unmarshalJSON(items, &v.Items); err != nil {
		return v, err
	}
	if err = unmarshalJSON(documents, &v.Documents); err != nil {
		return v, err
	}
	if err = unmarshalJSON(compliance, &v.ComplianceResult); err != nil {
		return v, err
	}
	return v, nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}
