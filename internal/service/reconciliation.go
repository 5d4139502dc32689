package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tonfarm/farmledger/internal/observability"
)

const reconciliationScanLimit = 1000

// ReconciliationService verifies the balance-consistency invariant: every
// stored balance must equal the signed sum of the user's completed ledger
// entries.
type ReconciliationService struct {
	store QueryStore
}

func NewReconciliationService(store QueryStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run scans for drifted balances. Drifts are reported, never auto-repaired:
// a drift means money was created or destroyed outside the ledger and a
// human has to look.
func (s *ReconciliationService) Run(ctx context.Context) error {
	drifts, err := s.store.Queries().ListBalanceDrifts(ctx, reconciliationScanLimit)
	if err != nil {
		return fmt.Errorf("scan balance drifts: %w", err)
	}

	if len(drifts) == 0 {
		zap.L().Info("ledger and balances reconciled")
		return nil
	}

	for _, d := range drifts {
		observability.IncrementLedgerImbalance()
		zap.L().Error("CRITICAL: balance drift detected",
			zap.Int64("user_id", d.UserID),
			zap.String("balance_uni", d.BalanceUNI.String()),
			zap.String("balance_ton", d.BalanceTON.String()),
			zap.String("ledger_uni", d.ExpectedUNI.String()),
			zap.String("ledger_ton", d.ExpectedTON.String()),
		)
	}
	return nil
}
