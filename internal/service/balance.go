package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/tonfarm/farmledger/internal/domain"
	"github.com/tonfarm/farmledger/internal/models"
	"github.com/tonfarm/farmledger/internal/observability"
	"github.com/tonfarm/farmledger/internal/repository"
)

// BalanceService is the only code path allowed to mutate user_balances.
// Every other component routes through it, so the non-negative invariant and
// the audit trail cannot be bypassed.
type BalanceService struct {
	store QueryStore
	audit *AuditService
}

func NewBalanceService(store QueryStore) *BalanceService {
	return &BalanceService{
		store: store,
		audit: NewAuditService(),
	}
}

// BalanceChange reports a mutation with both sides, for logging and
// optimistic UI updates.
type BalanceChange struct {
	Old models.UserBalance
	New models.UserBalance
}

// Add credits both currency fields by the given non-negative amounts.
func (s *BalanceService) Add(ctx context.Context, userID int64, amount domain.Amount, sourceTag string) (BalanceChange, error) {
	var change BalanceChange
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var txErr error
		change, txErr = s.AddInTx(ctx, qtx, userID, amount, sourceTag)
		return txErr
	})
	return change, err
}

// Subtract debits both currency fields. A subtract that would drive either
// field negative fails with ErrInsufficientFunds and mutates nothing.
func (s *BalanceService) Subtract(ctx context.Context, userID int64, amount domain.Amount, sourceTag string) (BalanceChange, error) {
	var change BalanceChange
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var txErr error
		change, txErr = s.SubtractInTx(ctx, qtx, userID, amount, sourceTag)
		return txErr
	})
	return change, err
}

// AddInTx credits inside the caller's transaction.
func (s *BalanceService) AddInTx(ctx context.Context, qtx *repository.Queries, userID int64, amount domain.Amount, sourceTag string) (BalanceChange, error) {
	return s.apply(ctx, qtx, userID, amount, false, sourceTag)
}

// SubtractInTx debits inside the caller's transaction.
func (s *BalanceService) SubtractInTx(ctx context.Context, qtx *repository.Queries, userID int64, amount domain.Amount, sourceTag string) (BalanceChange, error) {
	return s.apply(ctx, qtx, userID, amount, true, sourceTag)
}

func (s *BalanceService) apply(ctx context.Context, qtx *repository.Queries, userID int64, amount domain.Amount, subtract bool, sourceTag string) (BalanceChange, error) {
	if userID <= 0 {
		return BalanceChange{}, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if amount.IsZero() {
		return BalanceChange{}, fmt.Errorf("%w: zero balance mutation", ErrValidation)
	}
	if amount.IsNegative() {
		return BalanceChange{}, fmt.Errorf("%w: mutation amounts must be non-negative", ErrValidation)
	}

	if err := qtx.EnsureUserBalance(ctx, userID); err != nil {
		return BalanceChange{}, err
	}

	deltaUNI, deltaTON := amount.UNI, amount.TON
	if subtract {
		deltaUNI, deltaTON = deltaUNI.Neg(), deltaTON.Neg()
	}

	// Single conditional statement: the read-modify-write is atomic per user
	// and two concurrent mutations serialize on the row, so neither can
	// overwrite the other's effect.
	after, err := qtx.ApplyBalanceDelta(ctx, repository.ApplyBalanceDeltaParams{
		UserID:   userID,
		DeltaUNI: deltaUNI,
		DeltaTON: deltaTON,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			observability.IncrementInsufficientFunds(sourceTag)
			return BalanceChange{}, fmt.Errorf("%w: %s for user %d", ErrInsufficientFunds, amount.String(), userID)
		}
		return BalanceChange{}, fmt.Errorf("apply balance delta: %w", err)
	}

	before := after
	before.BalanceUNI = after.BalanceUNI.Sub(deltaUNI)
	before.BalanceTON = after.BalanceTON.Sub(deltaTON)

	op := "balance_add"
	if subtract {
		op = "balance_subtract"
	}
	if err := s.audit.Write(ctx, qtx, "user_balance", strconv.FormatInt(userID, 10), nil,
		op+":"+sourceTag, before.BalanceUNI.String()+"/"+before.BalanceTON.String(),
		after.BalanceUNI.String()+"/"+after.BalanceTON.String(), nil); err != nil {
		return BalanceChange{}, err
	}

	zap.L().Debug("balance mutated",
		zap.Int64("user_id", userID),
		zap.String("op", op),
		zap.String("source", sourceTag),
		zap.String("amount", amount.String()),
	)
	return BalanceChange{Old: before, New: after}, nil
}

// Get returns the current balance, creating the zero row on first touch.
func (s *BalanceService) Get(ctx context.Context, userID int64) (models.UserBalance, error) {
	queries := s.store.Queries()
	bal, err := queries.GetUserBalance(ctx, userID)
	if err == nil {
		return bal, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.UserBalance{}, fmt.Errorf("get user balance: %w", err)
	}
	if err := queries.EnsureUserBalance(ctx, userID); err != nil {
		return models.UserBalance{}, err
	}
	bal, err = queries.GetUserBalance(ctx, userID)
	if err != nil {
		return models.UserBalance{}, fmt.Errorf("get user balance: %w", err)
	}
	return bal, nil
}
