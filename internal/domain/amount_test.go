package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAmountCurrencyDerivation(t *testing.T) {
	uni := NewUNI(decimal.RequireFromString("12.5"))
	require.Equal(t, CurrencyUNI, uni.Currency())
	require.Equal(t, "12.5", uni.Value().String())
	require.Equal(t, "12.5 UNI", uni.String())

	ton := NewTON(decimal.RequireFromString("0.7"))
	require.Equal(t, CurrencyTON, ton.Currency())
	require.Equal(t, "0.7 TON", ton.String())

	// Zero amounts display as TON by the derivation rule; they are rejected
	// before ever being stored.
	require.Equal(t, CurrencyTON, Amount{}.Currency())
}

func TestAmountPredicates(t *testing.T) {
	require.True(t, Amount{}.IsZero())
	require.False(t, NewUNI(decimal.NewFromInt(1)).IsZero())
	require.True(t, NewUNI(decimal.NewFromInt(-1)).IsNegative())
	require.False(t, NewTON(decimal.NewFromInt(1)).IsNegative())

	abs := NewUNI(decimal.NewFromInt(-5)).Abs()
	require.True(t, abs.UNI.Equal(decimal.NewFromInt(5)))
}
