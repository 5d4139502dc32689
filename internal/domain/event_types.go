package domain

import "fmt"

// Logical event types as callers understand them. The set is open: adding a
// type means adding a row to the classification table below.
const (
	TypeFarmingIncome    = "farming_income"
	TypeReferralIncome   = "referral_income"
	TypeMissionReward    = "mission_reward"
	TypeDailyBonus       = "daily_bonus"
	TypeAirdropReward    = "airdrop_reward"
	TypeTonDeposit       = "ton_deposit"
	TypeBoostPurchase    = "boost_purchase"
	TypeTonWithdrawal    = "ton_withdrawal"
	TypeWithdrawalRefund = "withdrawal_refund"
)

// EventClass describes how one logical type is persisted and applied.
type EventClass struct {
	StoredType string
	Op         BalanceOp
	// External marks blockchain-sourced types deduplicated by normalized
	// transaction reference instead of the time-window check.
	External bool
	// Repeatable marks scheduler-driven types subject to the time-window
	// duplicate check (a double-fired job must not double-credit).
	Repeatable bool
	// DescriptionFmt builds the default description; it receives the
	// formatted amount and currency.
	DescriptionFmt string
}

var eventClasses = map[string]EventClass{
	TypeFarmingIncome:    {StoredType: StoredTypeIncome, Op: BalanceOpCredit, DescriptionFmt: "Farming income of %s %s"},
	TypeReferralIncome:   {StoredType: StoredTypeIncome, Op: BalanceOpCredit, DescriptionFmt: "Referral reward of %s %s"},
	TypeMissionReward:    {StoredType: StoredTypeIncome, Op: BalanceOpCredit, DescriptionFmt: "Mission reward of %s %s"},
	TypeDailyBonus:       {StoredType: StoredTypeIncome, Op: BalanceOpCredit, Repeatable: true, DescriptionFmt: "Daily bonus of %s %s"},
	TypeAirdropReward:    {StoredType: StoredTypeIncome, Op: BalanceOpCredit, DescriptionFmt: "Airdrop reward of %s %s"},
	TypeTonDeposit:       {StoredType: StoredTypeDeposit, Op: BalanceOpCredit, External: true, DescriptionFmt: "TON deposit of %s %s"},
	TypeBoostPurchase:    {StoredType: StoredTypeExpense, Op: BalanceOpDebit, DescriptionFmt: "Boost purchase for %s %s"},
	TypeTonWithdrawal:    {StoredType: StoredTypeWithdrawal, Op: BalanceOpDebit, DescriptionFmt: "TON withdrawal of %s %s"},
	TypeWithdrawalRefund: {StoredType: StoredTypeIncome, Op: BalanceOpCredit, DescriptionFmt: "Refund of rejected withdrawal, %s %s"},
}

// ClassifyEvent resolves a logical type to its persistence class.
func ClassifyEvent(logicalType string) (EventClass, error) {
	class, ok := eventClasses[logicalType]
	if !ok {
		return EventClass{}, fmt.Errorf("unknown logical type: %q", logicalType)
	}
	return class, nil
}

// KnownLogicalTypes returns the registered logical types.
func KnownLogicalTypes() []string {
	out := make([]string, 0, len(eventClasses))
	for t := range eventClasses {
		out = append(out, t)
	}
	return out
}
