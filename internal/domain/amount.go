package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount pairs the two per-entry amount columns. In normal operation exactly
// one of them is non-zero; the displayed currency is derived from which.
type Amount struct {
	UNI decimal.Decimal
	TON decimal.Decimal
}

// NewUNI builds an Amount denominated in UNI.
func NewUNI(v decimal.Decimal) Amount {
	return Amount{UNI: v}
}

// NewTON builds an Amount denominated in TON.
func NewTON(v decimal.Decimal) Amount {
	return Amount{TON: v}
}

// IsZero reports whether both fields are zero. Zero-value entries carry no
// economic meaning and are rejected at validation.
func (a Amount) IsZero() bool {
	return a.UNI.IsZero() && a.TON.IsZero()
}

// IsNegative reports whether either field is negative.
func (a Amount) IsNegative() bool {
	return a.UNI.IsNegative() || a.TON.IsNegative()
}

// Currency derives the displayed currency: UNI if amount_uni is non-zero,
// TON otherwise.
func (a Amount) Currency() string {
	if !a.UNI.IsZero() {
		return CurrencyUNI
	}
	return CurrencyTON
}

// Value returns the amount in the derived currency.
func (a Amount) Value() decimal.Decimal {
	if !a.UNI.IsZero() {
		return a.UNI
	}
	return a.TON
}

// Abs returns the amount with both fields made non-negative.
func (a Amount) Abs() Amount {
	return Amount{UNI: a.UNI.Abs(), TON: a.TON.Abs()}
}

// String formats the amount in its derived currency.
func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Value().String(), a.Currency())
}
