package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tonfarm/farmledger/internal/models"
)

// EnsureUserBalance creates the zero balance row on first touch.
func (q *Queries) EnsureUserBalance(ctx context.Context, userID int64) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO user_balances (user_id, balance_uni, balance_ton, updated_at)
		VALUES ($1, 0, 0, NOW())
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("ensure user balance: %w", err)
	}
	return nil
}

// GetUserBalance loads the balance row for one user.
func (q *Queries) GetUserBalance(ctx context.Context, userID int64) (models.UserBalance, error) {
	var (
		b        models.UserBalance
		uni, ton string
	)
	err := q.db.QueryRow(ctx, `
		SELECT user_id, balance_uni::text, balance_ton::text, updated_at
		FROM user_balances WHERE user_id = $1`, userID,
	).Scan(&b.UserID, &uni, &ton, &b.UpdatedAt)
	if err != nil {
		return models.UserBalance{}, err
	}
	if b.BalanceUNI, err = decFromText(uni); err != nil {
		return models.UserBalance{}, err
	}
	if b.BalanceTON, err = decFromText(ton); err != nil {
		return models.UserBalance{}, err
	}
	return b, nil
}

// ListBalanceUserIDs pages through all known users in id order. Used by
// schedulers that visit every account.
func (q *Queries) ListBalanceUserIDs(ctx context.Context, limit, offset int32) ([]int64, error) {
	rows, err := q.db.Query(ctx, `
		SELECT user_id FROM user_balances
		ORDER BY user_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list balance user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ApplyBalanceDeltaParams carries signed per-currency deltas.
type ApplyBalanceDeltaParams struct {
	UserID   int64
	DeltaUNI decimal.Decimal
	DeltaTON decimal.Decimal
}

// ApplyBalanceDelta mutates both balance fields in one conditional statement.
// The WHERE guard makes the non-negative invariant atomic: a subtract that
// would drive either field below zero matches no row and nothing changes.
// Returns the new values; pgx.ErrNoRows means the guard (or the row) was
// not satisfied.
func (q *Queries) ApplyBalanceDelta(ctx context.Context, arg ApplyBalanceDeltaParams) (models.UserBalance, error) {
	var (
		b        models.UserBalance
		uni, ton string
	)
	err := q.db.QueryRow(ctx, `
		UPDATE user_balances
		SET balance_uni = balance_uni + $2::numeric,
		    balance_ton = balance_ton + $3::numeric,
		    updated_at  = NOW()
		WHERE user_id = $1
		  AND balance_uni + $2::numeric >= 0
		  AND balance_ton + $3::numeric >= 0
		RETURNING user_id, balance_uni::text, balance_ton::text, updated_at`,
		arg.UserID, arg.DeltaUNI.String(), arg.DeltaTON.String(),
	).Scan(&b.UserID, &uni, &ton, &b.UpdatedAt)
	if err != nil {
		return models.UserBalance{}, err
	}
	if b.BalanceUNI, err = decFromText(uni); err != nil {
		return models.UserBalance{}, err
	}
	if b.BalanceTON, err = decFromText(ton); err != nil {
		return models.UserBalance{}, err
	}
	return b, nil
}
