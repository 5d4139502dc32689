package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tonfarm/farmledger/internal/domain"
)

func TestBalanceAddAndSubtract(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	change, err := svcs.balance.Add(ctx, 184, domain.NewUNI(decimal.NewFromInt(100)), "test")
	require.NoError(t, err)
	require.True(t, change.Old.BalanceUNI.IsZero())
	require.True(t, change.New.BalanceUNI.Equal(decimal.NewFromInt(100)))

	change, err = svcs.balance.Subtract(ctx, 184, domain.NewUNI(decimal.NewFromInt(40)), "test")
	require.NoError(t, err)
	require.True(t, change.Old.BalanceUNI.Equal(decimal.NewFromInt(100)))
	require.True(t, change.New.BalanceUNI.Equal(decimal.NewFromInt(60)))

	bal, err := svcs.balance.Get(ctx, 184)
	require.NoError(t, err)
	require.True(t, bal.BalanceUNI.Equal(decimal.NewFromInt(60)))
	require.True(t, bal.BalanceTON.IsZero())
}

func TestBalanceMutationValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	_, err := svcs.balance.Add(ctx, 0, domain.NewUNI(decimal.NewFromInt(1)), "test")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svcs.balance.Add(ctx, 184, domain.Amount{}, "test")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svcs.balance.Add(ctx, 184, domain.NewUNI(decimal.NewFromInt(-5)), "test")
	require.ErrorIs(t, err, ErrValidation)
}

func TestSubtractNeverGoesNegative(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	_, err := svcs.balance.Add(ctx, 184, domain.NewTON(decimal.RequireFromString("2.5")), "test")
	require.NoError(t, err)

	_, err = svcs.balance.Subtract(ctx, 184, domain.NewTON(decimal.RequireFromString("2.6")), "test")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	bal, err := svcs.balance.Get(ctx, 184)
	require.NoError(t, err)
	require.True(t, bal.BalanceTON.Equal(decimal.RequireFromString("2.5")))

	// A subtract from a user with no balance row fails the same way.
	_, err = svcs.balance.Subtract(ctx, 999, domain.NewTON(decimal.NewFromInt(1)), "test")
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestConcurrentDebitsSerialize(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svcs := newTestServices(db)
	ctx := context.Background()

	_, err := svcs.balance.Add(ctx, 184, domain.NewUNI(decimal.NewFromInt(100)), "test")
	require.NoError(t, err)

	// 20 concurrent debits of 10 against a balance of 100: exactly 10 may
	// succeed, the rest must fail without driving the balance negative.
	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svcs.balance.Subtract(ctx, 184, domain.NewUNI(decimal.NewFromInt(10)), "test")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrInsufficientFunds)
		failed++
	}
	require.Equal(t, 10, succeeded)
	require.Equal(t, 10, failed)

	bal, err := svcs.balance.Get(ctx, 184)
	require.NoError(t, err)
	require.True(t, bal.BalanceUNI.IsZero())
}
