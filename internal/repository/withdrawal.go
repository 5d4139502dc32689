package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tonfarm/farmledger/internal/models"
)

const withdrawalColumns = `
	id, user_id, amount::text, destination_address, status,
	created_at, processed_at, processed_by`

// InsertWithdrawalRequestParams creates the pending escrow record.
type InsertWithdrawalRequestParams struct {
	ID          uuid.UUID
	UserID      int64
	Amount      decimal.Decimal
	Destination string
}

// InsertWithdrawalRequest files a new request in the pending state.
func (q *Queries) InsertWithdrawalRequest(ctx context.Context, arg InsertWithdrawalRequestParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO withdrawal_requests (id, user_id, amount, destination_address, status, created_at)
		VALUES ($1, $2, $3::numeric, $4, 'pending', NOW())`,
		ToPgUUID(arg.ID), arg.UserID, arg.Amount.String(), arg.Destination)
	if err != nil {
		return fmt.Errorf("insert withdrawal request: %w", err)
	}
	return nil
}

// GetWithdrawalRequest loads one request by id.
func (q *Queries) GetWithdrawalRequest(ctx context.Context, id uuid.UUID) (models.WithdrawalRequest, error) {
	row := q.db.QueryRow(ctx, `SELECT`+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, ToPgUUID(id))
	return scanWithdrawal(row)
}

// GetWithdrawalRequestForUpdate locks the row for the remainder of the
// surrounding transaction.
func (q *Queries) GetWithdrawalRequestForUpdate(ctx context.Context, id uuid.UUID) (models.WithdrawalRequest, error) {
	row := q.db.QueryRow(ctx, `SELECT`+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, ToPgUUID(id))
	return scanWithdrawal(row)
}

// DecideWithdrawalParams finalizes a pending request.
type DecideWithdrawalParams struct {
	ID          uuid.UUID
	Status      string
	ProcessedBy int64
}

// DecideWithdrawal flips a request out of pending. The status guard in the
// WHERE clause is the optimistic-concurrency point: a request that was
// already decided matches no row, so two concurrent admin actions cannot
// both succeed.
func (q *Queries) DecideWithdrawal(ctx context.Context, arg DecideWithdrawalParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE withdrawal_requests
		SET status = $2, processed_at = NOW(), processed_by = $3
		WHERE id = $1 AND status = 'pending'`,
		ToPgUUID(arg.ID), arg.Status, arg.ProcessedBy)
	if err != nil {
		return 0, fmt.Errorf("decide withdrawal: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListWithdrawalsByStatus returns requests for the admin review surface,
// oldest first so the queue drains fairly.
func (q *Queries) ListWithdrawalsByStatus(ctx context.Context, status string, limit, offset int32) ([]models.WithdrawalRequest, error) {
	rows, err := q.db.Query(ctx, `
		SELECT`+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var out []models.WithdrawalRequest
	for rows.Next() {
		req, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// CountOpenWithdrawals returns how many requests a user has pending.
func (q *Queries) CountOpenWithdrawals(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM withdrawal_requests WHERE user_id = $1 AND status = 'pending'`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open withdrawals: %w", err)
	}
	return n, nil
}

func scanWithdrawal(row rowScanner) (models.WithdrawalRequest, error) {
	var (
		req    models.WithdrawalRequest
		pgID   pgtype.UUID
		amount string
	)
	if err := row.Scan(&pgID, &req.UserID, &amount, &req.Destination, &req.Status,
		&req.CreatedAt, &req.ProcessedAt, &req.ProcessedBy); err != nil {
		return models.WithdrawalRequest{}, err
	}
	req.ID = FromPgUUID(pgID)

	var err error
	if req.Amount, err = decFromText(amount); err != nil {
		return models.WithdrawalRequest{}, err
	}
	return req, nil
}
