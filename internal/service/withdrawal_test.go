package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tonfarm/farmledger/internal/domain"
	"github.com/tonfarm/farmledger/internal/repository"
)

func seedTON(t *testing.T, svcs testServices, userID int64, amount string, ref string) {
	t.Helper()
	_, err := svcs.ledger.CreateEntry(context.Background(), CreateEntryParams{
		UserID:      userID,
		LogicalType: domain.TypeTonDeposit,
		Amount:      domain.NewTON(decimal.RequireFromString(amount)),
		ExternalRef: ref,
	})
	require.NoError(t, err)
}

func TestWithdrawalTransitions(t *testing.T) {
	require.True(t, CanTransitionWithdrawal(domain.WithdrawalStatusPending, domain.WithdrawalStatusApproved))
	require.True(t, CanTransitionWithdrawal(domain.WithdrawalStatusPending, domain.WithdrawalStatusRejected))
	require.False(t, CanTransitionWithdrawal(domain.WithdrawalStatusApproved, domain.WithdrawalStatusRejected))
	require.False(t, CanTransitionWithdrawal(domain.WithdrawalStatusRejected, domain.WithdrawalStatusApproved))
	require.False(t, CanTransitionWithdrawal(domain.WithdrawalStatusApproved, domain.WithdrawalStatusPending))
	require.False(t, CanTransitionWithdrawal("bogus", domain.WithdrawalStatusApproved))
}

func TestWithdrawalCreateEscrowsFunds(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	seedTON(t, svcs, 184, "10", "deposit-hash-1")

	req, err := svcs.withdrawals.Create(ctx, 184, decimal.RequireFromString("4"), "EQDestinationAddr")
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalStatusPending, req.Status)
	require.True(t, req.Amount.Equal(decimal.RequireFromString("4")))
	require.Nil(t, req.ProcessedAt)

	bal, err := svcs.balance.Get(ctx, 184)
	require.NoError(t, err)
	require.True(t, bal.BalanceTON.Equal(decimal.RequireFromString("6")))

	// The escrow debit is itself a ledger entry.
	queries := repository.New(db)
	total, err := queries.CountUserEntries(ctx, repository.ListUserEntriesParams{
		UserID:     184,
		StoredType: domain.StoredTypeWithdrawal,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
}

func TestWithdrawalCreateInsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	seedTON(t, svcs, 184, "3", "deposit-hash-2")

	_, err := svcs.withdrawals.Create(ctx, 184, decimal.RequireFromString("3.5"), "EQDestinationAddr")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing was filed and nothing was debited.
	list, err := svcs.withdrawals.ListByStatus(ctx, domain.WithdrawalStatusPending, 10, 0)
	require.NoError(t, err)
	require.Empty(t, list)

	bal, err := svcs.balance.Get(ctx, 184)
	require.NoError(t, err)
	require.True(t, bal.BalanceTON.Equal(decimal.RequireFromString("3")))
}

func TestWithdrawalSingleOpenRequest(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	seedTON(t, svcs, 184, "10", "deposit-hash-3")

	_, err := svcs.withdrawals.Create(ctx, 184, decimal.RequireFromString("2"), "EQDestinationAddr")
	require.NoError(t, err)

	_, err = svcs.withdrawals.Create(ctx, 184, decimal.RequireFromString("1"), "EQDestinationAddr")
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestWithdrawalApprove(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	seedTON(t, svcs, 184, "10", "deposit-hash-4")
	req, err := svcs.withdrawals.Create(ctx, 184, decimal.RequireFromString("4"), "EQDestinationAddr")
	require.NoError(t, err)

	approved, err := svcs.withdrawals.Approve(ctx, req.ID, 777)
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalStatusApproved, approved.Status)
	require.NotNil(t, approved.ProcessedAt)
	require.NotNil(t, approved.ProcessedBy)
	require.Equal(t, int64(777), *approved.ProcessedBy)

	// Approval does not touch the balance; the funds left at creation.
	bal, err := svcs.balance.Get(ctx, 184)
	require.NoError(t, err)
	require.True(t, bal.BalanceTON.Equal(decimal.RequireFromString("6")))

	// Terminal states reject further decisions.
	_, err = svcs.withdrawals.Approve(ctx, req.ID, 777)
	require.ErrorIs(t, err, ErrStateConflict)
	_, err = svcs.withdrawals.Reject(ctx, req.ID, 777)
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestWithdrawalRejectRefunds(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	seedTON(t, svcs, 184, "10", "deposit-hash-5")
	req, err := svcs.withdrawals.Create(ctx, 184, decimal.RequireFromString("4"), "EQDestinationAddr")
	require.NoError(t, err)

	rejected, err := svcs.withdrawals.Reject(ctx, req.ID, 777)
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalStatusRejected, rejected.Status)

	// The compensating credit restored the full balance.
	bal, err := svcs.balance.Get(ctx, 184)
	require.NoError(t, err)
	require.True(t, bal.BalanceTON.Equal(decimal.RequireFromString("10")))

	// Debit and refund both remain in the ledger; history is append-only.
	queries := repository.New(db)
	total, err := queries.CountUserEntries(ctx, repository.ListUserEntriesParams{UserID: 184})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	// Ledger and balance agree after the round trip.
	drifts, err := queries.ListBalanceDrifts(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, drifts)

	// Rejecting again is a state conflict, so the refund cannot double-fire.
	_, err = svcs.withdrawals.Reject(ctx, req.ID, 777)
	require.ErrorIs(t, err, ErrStateConflict)
	bal, err = svcs.balance.Get(ctx, 184)
	require.NoError(t, err)
	require.True(t, bal.BalanceTON.Equal(decimal.RequireFromString("10")))
}

func TestWithdrawalDecideUnknownRequest(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	_, err := svcs.withdrawals.Approve(ctx, uuid.New(), 777)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svcs.withdrawals.Get(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWithdrawalListByStatus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	seedTON(t, svcs, 184, "10", "deposit-hash-6")
	seedTON(t, svcs, 185, "10", "deposit-hash-7")

	first, err := svcs.withdrawals.Create(ctx, 184, decimal.RequireFromString("1"), "EQAddr1")
	require.NoError(t, err)
	second, err := svcs.withdrawals.Create(ctx, 185, decimal.RequireFromString("2"), "EQAddr2")
	require.NoError(t, err)

	pending, err := svcs.withdrawals.ListByStatus(ctx, domain.WithdrawalStatusPending, 10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// Oldest first so the queue drains fairly.
	require.Equal(t, first.ID, pending[0].ID)
	require.Equal(t, second.ID, pending[1].ID)

	_, err = svcs.withdrawals.Approve(ctx, first.ID, 777)
	require.NoError(t, err)

	pending, err = svcs.withdrawals.ListByStatus(ctx, domain.WithdrawalStatusPending, 10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second.ID, pending[0].ID)
}
