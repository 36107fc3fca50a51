package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bidding/internal/models"
)

func (repo *Repository) CreateClarification(ctx context.Context, c models.Clarification) (models.Clarification, error) {
	query := `
	INSERT INTO clarifications (bid_id, question, evaluator_id, status, requested_at, deadline)
	VALUES
		($1, $2, $3, 'PENDING', $4, $5)
	RETURNING id
	`

	row := repo.db.QueryRowContext(ctx, query, c.BidId, c.Question, c.EvaluatorId, c.RequestedAt, c.Deadline)
	err := row.Scan(&c.Id)
	if err != nil {
		return c, fmt.Errorf("repository.Repository.CreateClarification: %w", err)
	}

	c.Status = models.ClarificationPending
	return c, nil
}

func (repo *Repository) GetClarification(ctx context.Context, UUID string) (models.Clarification, error) {
	query := `
	SELECT id, bid_id, question, response, evaluator_id, tenderer_id, status, requested_at, deadline, answered_at
	FROM clarifications
	WHERE id = $1
	`

	var c models.Clarification
	row := repo.db.QueryRowContext(ctx, query, UUID)
	err := row.Scan(&c.Id, &c.BidId, &c.Question, &c.Response, &c.EvaluatorId, &c.TendererId,
		&c.Status, &c.RequestedAt, &c.Deadline, &c.AnsweredAt)
	if err != nil {
		return c, fmt.Errorf("repository.Repository.GetClarification: %w", mapStoreErr(err))
	}
	return c, nil
}

func (repo *Repository) ListClarifications(ctx context.Context, bidId string) ([]models.Clarification, error) {
	query := `
	SELECT id, bid_id, question, response, evaluator_id, tenderer_id, status, requested_at, deadline, answered_at
	FROM clarifications
	WHERE bid_id = $1
	ORDER BY requested_at
	`

	rows, err := repo.db.QueryContext(ctx, query, bidId)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.ListClarifications: %w", err)
	}
	defer rows.Close()

	var result []models.Clarification
	var c models.Clarification
	for rows.Next() {
		err = rows.Scan(&c.Id, &c.BidId, &c.Question, &c.Response, &c.EvaluatorId, &c.TendererId,
			&c.Status, &c.RequestedAt, &c.Deadline, &c.AnsweredAt)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.ListClarifications: rows scan error: %w", err)
		}
		result = append(result, c)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("repository.Repository.ListClarifications: %w", rows.Err())
	}

	return result, nil
}

func (repo *Repository) HasPendingClarification(ctx context.Context, bidId string) (bool, error) {
	row := repo.db.QueryRowContext(ctx,
		"SELECT id FROM clarifications WHERE bid_id = $1 AND status = 'PENDING' LIMIT 1", bidId)
	var dummy string
	err := row.Scan(&dummy)

	switch {
	case err == nil:
		return true, nil
	case err == sql.ErrNoRows:
		return false, nil
	}
	return false, fmt.Errorf("repository.Repository.HasPendingClarification: %w", err)
}

// AnswerClarification records a response on a PENDING clarification. The
// status guard sits in the query itself so two concurrent answers cannot
// both land.
func (repo *Repository) AnswerClarification(ctx context.Context, UUID, response, tendererId string, answeredAt time.Time) (models.Clarification, error) {
	query := `
	UPDATE clarifications
	SET (response, tenderer_id, status, answered_at) = ($1, $2, 'ANSWERED', $3)
	WHERE id = $4 AND status = 'PENDING'
	RETURNING id, bid_id, question, response, evaluator_id, tenderer_id, status, requested_at, deadline, answered_at
	`

	var c models.Clarification
	row := repo.db.QueryRowContext(ctx, query, response, tendererId, answeredAt, UUID)
	err := row.Scan(&c.Id, &c.BidId, &c.Question, &c.Response, &c.EvaluatorId, &c.TendererId,
		&c.Status, &c.RequestedAt, &c.Deadline, &c.AnsweredAt)
	if err == sql.ErrNoRows {
		return c, fmt.Errorf("repository.Repository.AnswerClarification: %w", models.ErrExpiredOrInvalidState)
	} else if err != nil {
		return c, fmt.Errorf("repository.Repository.AnswerClarification: %w", err)
	}
	return c, nil
}

// ExpireClarifications sweeps the bid's PENDING clarifications whose
// deadline has elapsed. Answered or already-expired rows are untouched,
// so repeated sweeps are no-ops.
func (repo *Repository) ExpireClarifications(ctx context.Context, bidId string, now time.Time) (int, error) {
	query := `
	UPDATE clarifications
	SET status = 'EXPIRED'
	WHERE bid_id = $1 AND status = 'PENDING' AND deadline < $2
	`

	res, err := repo.db.ExecContext(ctx, query, bidId, now)
	if err != nil {
		return 0, fmt.Errorf("repository.Repository.ExpireClarifications: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("repository.Repository.ExpireClarifications: %w", err)
	}
	return int(n), nil
}
