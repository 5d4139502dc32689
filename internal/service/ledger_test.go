package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tonfarm/farmledger/internal/domain"
	"github.com/tonfarm/farmledger/internal/repository"
)

func TestCreateEntryValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	cases := []struct {
		name string
		p    CreateEntryParams
	}{
		{
			name: "missing_user",
			p:    CreateEntryParams{LogicalType: domain.TypeFarmingIncome, Amount: domain.NewUNI(decimal.NewFromInt(10))},
		},
		{
			name: "unknown_type",
			p:    CreateEntryParams{UserID: 184, LogicalType: "jackpot", Amount: domain.NewUNI(decimal.NewFromInt(10))},
		},
		{
			name: "zero_amount",
			p:    CreateEntryParams{UserID: 184, LogicalType: domain.TypeFarmingIncome},
		},
		{
			name: "negative_amount_on_credit_type",
			p:    CreateEntryParams{UserID: 184, LogicalType: domain.TypeFarmingIncome, Amount: domain.NewUNI(decimal.NewFromInt(-5))},
		},
		{
			name: "external_ref_on_internal_type",
			p: CreateEntryParams{
				UserID: 184, LogicalType: domain.TypeFarmingIncome,
				Amount: domain.NewUNI(decimal.NewFromInt(10)), ExternalRef: "somehash",
			},
		},
		{
			name: "missing_ref_on_deposit",
			p:    CreateEntryParams{UserID: 184, LogicalType: domain.TypeTonDeposit, Amount: domain.NewTON(decimal.NewFromInt(5))},
		},
		{
			name: "unknown_status",
			p: CreateEntryParams{
				UserID: 184, LogicalType: domain.TypeFarmingIncome,
				Amount: domain.NewUNI(decimal.NewFromInt(10)), Status: "archived",
			},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svcs.ledger.CreateEntry(ctx, tc.p)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestFarmingIncomeCreditsBalance(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	result, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeFarmingIncome,
		Amount:      domain.NewUNI(decimal.RequireFromString("12.5")),
	})
	require.NoError(t, err)
	require.False(t, result.Duplicate)
	require.NotZero(t, result.EntryID)
	require.NotNil(t, result.Balance)
	require.True(t, result.Balance.BalanceUNI.Equal(decimal.RequireFromString("12.5")))

	entry, err := svcs.ledger.GetEntry(ctx, result.EntryID)
	require.NoError(t, err)
	require.Equal(t, domain.StoredTypeIncome, entry.StoredType)
	require.Equal(t, domain.TypeFarmingIncome, entry.Metadata.OriginalType)
	require.Equal(t, "Farming income of 12.5 UNI", entry.Description)
}

func TestDepositCreditsExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	amount := domain.NewTON(decimal.RequireFromString("5"))
	first, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeTonDeposit,
		Amount:      amount,
		ExternalRef: "abc123hash_1712345678901_r7Yx",
	})
	require.NoError(t, err)
	require.NotNil(t, first.Balance)
	require.True(t, first.Balance.BalanceTON.Equal(decimal.RequireFromString("5")))

	// Same raw reference again.
	_, err = svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeTonDeposit,
		Amount:      amount,
		ExternalRef: "abc123hash_1712345678901_r7Yx",
	})
	require.ErrorIs(t, err, ErrDuplicateEntry)

	// A retry of the same on-chain transfer carries a fresh suffix but
	// normalizes to the same reference.
	_, err = svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeTonDeposit,
		Amount:      amount,
		ExternalRef: "abc123hash_1712345699999_Zz42",
	})
	require.ErrorIs(t, err, ErrDuplicateEntry)

	bal, err := svcs.balance.Get(ctx, 184)
	require.NoError(t, err)
	require.True(t, bal.BalanceTON.Equal(decimal.RequireFromString("5")))

	queries := repository.New(db)
	total, err := queries.CountUserEntries(ctx, repository.ListUserEntriesParams{UserID: 184})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	// The stored reference is the normalized form.
	entry, err := svcs.ledger.GetEntry(ctx, first.EntryID)
	require.NoError(t, err)
	require.Equal(t, "abc123hash", entry.Metadata.ExternalRef)
}

func TestDailyBonusWindowDedup(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	bonus := domain.NewUNI(decimal.NewFromInt(100))
	first, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      300,
		LogicalType: domain.TypeDailyBonus,
		Amount:      bonus,
	})
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	// Double-fired scheduler: same user, type and amount inside the window
	// resolves to the existing entry without error.
	second, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      300,
		LogicalType: domain.TypeDailyBonus,
		Amount:      bonus,
	})
	require.NoError(t, err)
	require.True(t, second.Duplicate)
	require.Equal(t, first.EntryID, second.EntryID)
	require.Nil(t, second.Balance)

	bal, err := svcs.balance.Get(ctx, 300)
	require.NoError(t, err)
	require.True(t, bal.BalanceUNI.Equal(decimal.NewFromInt(100)))

	// A different amount is a genuinely new event.
	third, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      300,
		LogicalType: domain.TypeDailyBonus,
		Amount:      domain.NewUNI(decimal.NewFromInt(150)),
	})
	require.NoError(t, err)
	require.False(t, third.Duplicate)
}

func TestPendingEntryLeavesBalanceAlone(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	result, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeMissionReward,
		Amount:      domain.NewUNI(decimal.NewFromInt(40)),
		Status:      domain.EntryStatusPending,
	})
	require.NoError(t, err)
	require.Nil(t, result.Balance)

	bal, err := svcs.balance.Get(ctx, 184)
	require.NoError(t, err)
	require.True(t, bal.BalanceUNI.IsZero())
}

func TestBoostPurchaseRollsBackOnInsufficientFunds(t *testing.T) {
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

	_, err = svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeBoostPurchase,
		Amount:      domain.NewUNI(decimal.NewFromInt(50)),
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// The failed purchase left no trace: one entry, untouched balance.
	queries := repository.New(db)
	total, err := queries.CountUserEntries(ctx, repository.ListUserEntriesParams{UserID: 184})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	bal, err := svcs.balance.Get(ctx, 184)
	require.NoError(t, err)
	require.True(t, bal.BalanceUNI.Equal(decimal.NewFromInt(30)))
}

func TestNegativeDebitStoredUnsigned(t *testing.T) {
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

	// Debit types accept a signed amount; the row lands unsigned.
	res, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeBoostPurchase,
		Amount:      domain.NewUNI(decimal.NewFromInt(-5)),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Balance)
	require.True(t, res.Balance.BalanceUNI.Equal(decimal.NewFromInt(25)))

	entry, err := svcs.ledger.GetEntry(ctx, res.EntryID)
	require.NoError(t, err)
	require.True(t, entry.AmountUNI.Equal(decimal.NewFromInt(5)), "got %s", entry.AmountUNI)
	require.Equal(t, domain.StoredTypeExpense, entry.StoredType)

	// The signed ledger sum matches the stored balance: 30 - 5 = 25.
	queries := repository.New(db)
	drifts, err := queries.ListBalanceDrifts(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, drifts)
}
