package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyEvent(t *testing.T) {
	cases := []struct {
		logical    string
		storedType string
		op         BalanceOp
		external   bool
		repeatable bool
	}{
		{TypeFarmingIncome, StoredTypeIncome, BalanceOpCredit, false, false},
		{TypeReferralIncome, StoredTypeIncome, BalanceOpCredit, false, false},
		{TypeMissionReward, StoredTypeIncome, BalanceOpCredit, false, false},
		{TypeDailyBonus, StoredTypeIncome, BalanceOpCredit, false, true},
		{TypeAirdropReward, StoredTypeIncome, BalanceOpCredit, false, false},
		{TypeTonDeposit, StoredTypeDeposit, BalanceOpCredit, true, false},
		{TypeBoostPurchase, StoredTypeExpense, BalanceOpDebit, false, false},
		{TypeTonWithdrawal, StoredTypeWithdrawal, BalanceOpDebit, false, false},
		{TypeWithdrawalRefund, StoredTypeIncome, BalanceOpCredit, false, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.logical, func(t *testing.T) {
			class, err := ClassifyEvent(tc.logical)
			require.NoError(t, err)
			require.Equal(t, tc.storedType, class.StoredType)
			require.Equal(t, tc.op, class.Op)
			require.Equal(t, tc.external, class.External)
			require.Equal(t, tc.repeatable, class.Repeatable)
			require.NotEmpty(t, class.DescriptionFmt)
		})
	}
}

func TestClassifyEventUnknown(t *testing.T) {
	_, err := ClassifyEvent("jackpot")
	require.Error(t, err)
	_, err = ClassifyEvent("")
	require.Error(t, err)
}

func TestKnownLogicalTypes(t *testing.T) {
	types := KnownLogicalTypes()
	require.Len(t, types, 9)
	require.Contains(t, types, TypeTonDeposit)
	require.Contains(t, types, TypeWithdrawalRefund)
}
