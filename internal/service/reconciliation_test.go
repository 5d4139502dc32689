package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tonfarm/farmledger/internal/domain"
	"github.com/tonfarm/farmledger/internal/repository"
)

func TestReconciliationCleanLedger(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	seedTON(t, svcs, 184, "10", "recon-hash-1")
	_, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeFarmingIncome,
		Amount:      domain.NewUNI(decimal.NewFromInt(30)),
	})
	require.NoError(t, err)
	_, err = svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeBoostPurchase,
		Amount:      domain.NewUNI(decimal.NewFromInt(12)),
	})
	require.NoError(t, err)

	queries := repository.New(db)
	drifts, err := queries.ListBalanceDrifts(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, drifts)

	recon := NewReconciliationService(svcs.store)
	require.NoError(t, recon.Run(ctx))
}

func TestReconciliationDetectsDrift(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	_, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeFarmingIncome,
		Amount:      domain.NewUNI(decimal.NewFromInt(30)),
	})
	require.NoError(t, err)

	// Corrupt the balance outside the ledger.
	_, err = db.Exec(ctx, `UPDATE user_balances SET balance_uni = balance_uni + 7 WHERE user_id = 184`)
	require.NoError(t, err)

	queries := repository.New(db)
	drifts, err := queries.ListBalanceDrifts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	require.Equal(t, int64(184), drifts[0].UserID)
	require.True(t, drifts[0].BalanceUNI.Equal(decimal.NewFromInt(37)))
	require.True(t, drifts[0].ExpectedUNI.Equal(decimal.NewFromInt(30)))

	// Run only reports; it must not repair.
	recon := NewReconciliationService(svcs.store)
	require.NoError(t, recon.Run(ctx))

	drifts, err = queries.ListBalanceDrifts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
}

func TestReconciliationIgnoresPendingEntries(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	_, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeFarmingIncome,
		Amount:      domain.NewUNI(decimal.NewFromInt(30)),
	})
	require.NoError(t, err)
	// Pending entries never moved a balance, so they must not count.
	_, err = svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeMissionReward,
		Amount:      domain.NewUNI(decimal.NewFromInt(99)),
		Status:      domain.EntryStatusPending,
	})
	require.NoError(t, err)

	queries := repository.New(db)
	drifts, err := queries.ListBalanceDrifts(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, drifts)
}
