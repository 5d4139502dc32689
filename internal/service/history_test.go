package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tonfarm/farmledger/internal/domain"
)

func TestHistoryPagination(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	// 25 income entries with distinct amounts to dodge the repeatable check.
	for i := 1; i <= 25; i++ {
		_, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
			UserID:      184,
			LogicalType: domain.TypeFarmingIncome,
			Amount:      domain.NewUNI(decimal.NewFromInt(int64(i))),
		})
		require.NoError(t, err)
	}

	page, err := svcs.history.GetUserEntries(ctx, 184, 1, 10, HistoryFilters{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 10)
	require.Equal(t, int64(25), page.Total)
	require.Equal(t, int32(3), page.TotalPages)
	require.True(t, page.HasMore)
	// Newest first.
	require.True(t, page.Entries[0].AmountUNI.Equal(decimal.NewFromInt(25)))
	require.True(t, page.Entries[9].AmountUNI.Equal(decimal.NewFromInt(16)))

	last, err := svcs.history.GetUserEntries(ctx, 184, 3, 10, HistoryFilters{})
	require.NoError(t, err)
	require.Len(t, last.Entries, 5)
	require.False(t, last.HasMore)

	empty, err := svcs.history.GetUserEntries(ctx, 184, 4, 10, HistoryFilters{})
	require.NoError(t, err)
	require.Empty(t, empty.Entries)
	require.Equal(t, int64(25), empty.Total)
}

func TestHistoryDefaultsAndClamps(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	_, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeFarmingIncome,
		Amount:      domain.NewUNI(decimal.NewFromInt(1)),
	})
	require.NoError(t, err)

	// Page and limit fall back to sane defaults.
	page, err := svcs.history.GetUserEntries(ctx, 184, 0, 0, HistoryFilters{})
	require.NoError(t, err)
	require.Equal(t, int32(1), page.Page)
	require.Equal(t, int32(20), page.Limit)

	page, err = svcs.history.GetUserEntries(ctx, 184, 1, 1000, HistoryFilters{})
	require.NoError(t, err)
	require.Equal(t, int32(100), page.Limit)
}

func TestHistoryFilters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	_, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeFarmingIncome,
		Amount:      domain.NewUNI(decimal.NewFromInt(50)),
	})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := svcs.ledger.CreateEntry(ctx, CreateEntryParams{
			UserID:      184,
			LogicalType: domain.TypeTonDeposit,
			Amount:      domain.NewTON(decimal.NewFromInt(int64(i + 1))),
			ExternalRef: fmt.Sprintf("filter-hash-%d", i),
		})
		require.NoError(t, err)
	}
	_, err = svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      184,
		LogicalType: domain.TypeMissionReward,
		Amount:      domain.NewUNI(decimal.NewFromInt(10)),
		Status:      domain.EntryStatusPending,
	})
	require.NoError(t, err)

	// Another user's entries never leak in.
	_, err = svcs.ledger.CreateEntry(ctx, CreateEntryParams{
		UserID:      999,
		LogicalType: domain.TypeFarmingIncome,
		Amount:      domain.NewUNI(decimal.NewFromInt(5)),
	})
	require.NoError(t, err)

	all, err := svcs.history.GetUserEntries(ctx, 184, 1, 20, HistoryFilters{})
	require.NoError(t, err)
	require.Equal(t, int64(4), all.Total)

	// Currency derivation: UNI when amount_uni is non-zero, TON otherwise.
	uni, err := svcs.history.GetUserEntries(ctx, 184, 1, 20, HistoryFilters{Currency: "UNI"})
	require.NoError(t, err)
	require.Equal(t, int64(2), uni.Total)
	for _, e := range uni.Entries {
		require.Equal(t, "UNI", e.Currency())
	}

	ton, err := svcs.history.GetUserEntries(ctx, 184, 1, 20, HistoryFilters{Currency: "TON"})
	require.NoError(t, err)
	require.Equal(t, int64(2), ton.Total)

	deposits, err := svcs.history.GetUserEntries(ctx, 184, 1, 20, HistoryFilters{StoredType: domain.StoredTypeDeposit})
	require.NoError(t, err)
	require.Equal(t, int64(2), deposits.Total)

	pendingOnly, err := svcs.history.GetUserEntries(ctx, 184, 1, 20, HistoryFilters{Status: domain.EntryStatusPending})
	require.NoError(t, err)
	require.Equal(t, int64(1), pendingOnly.Total)

	_, err = svcs.history.GetUserEntries(ctx, 184, 1, 20, HistoryFilters{Currency: "BTC"})
	require.ErrorIs(t, err, ErrValidation)
}
