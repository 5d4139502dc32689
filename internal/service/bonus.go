package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tonfarm/farmledger/internal/domain"
)

// BonusService grants the periodic UNI login bonus to every known account.
// The repeatable duplicate check in the ledger makes a double-fired
// scheduler run a no-op, so granting is safe to retry.
type BonusService struct {
	store  QueryStore
	ledger *LedgerService
	amount decimal.Decimal
}

func NewBonusService(store QueryStore, ledger *LedgerService, amount decimal.Decimal) *BonusService {
	return &BonusService{store: store, ledger: ledger, amount: amount}
}

// GrantAll walks all accounts in batches and credits the daily bonus.
// Per-user failures are logged and skipped so one bad account cannot
// starve the rest of the run.
func (s *BonusService) GrantAll(ctx context.Context, batchSize int32) error {
	if s.amount.IsZero() {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	var offset int32
	var granted, skipped int
	for {
		ids, err := s.store.Queries().ListBalanceUserIDs(ctx, batchSize, offset)
		if err != nil {
			return fmt.Errorf("list users for bonus: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, userID := range ids {
			result, err := s.ledger.CreateEntry(ctx, CreateEntryParams{
				UserID:      userID,
				LogicalType: domain.TypeDailyBonus,
				Amount:      domain.NewUNI(s.amount),
			})
			if err != nil {
				zap.L().Warn("daily bonus grant failed",
					zap.Int64("user_id", userID),
					zap.Error(err))
				continue
			}
			if result.Duplicate {
				skipped++
				continue
			}
			granted++
		}
		offset += batchSize
	}

	zap.L().Info("daily bonus run complete",
		zap.Int("granted", granted),
		zap.Int("already_granted", skipped),
		zap.String("amount_uni", s.amount.String()))
	return nil
}
