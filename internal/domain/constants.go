package domain

// Currencies held per user. UNI is the in-game farming currency, TON the
// on-chain one.
const (
	CurrencyUNI = "UNI"
	CurrencyTON = "TON"
)

// Stored entry types: the small canonical set every logical type maps onto.
const (
	StoredTypeIncome     = "income"
	StoredTypeExpense    = "expense"
	StoredTypeDeposit    = "deposit"
	StoredTypeWithdrawal = "withdrawal"
)

// Ledger entry statuses.
const (
	EntryStatusPending   = "pending"
	EntryStatusCompleted = "completed"
	EntryStatusFailed    = "failed"
	EntryStatusCancelled = "cancelled"
)

// Withdrawal request statuses.
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
)

// BalanceOp declares how a logical type affects the user balance.
// The operation is declared per type, never inferred from the amount sign.
type BalanceOp string

const (
	BalanceOpCredit BalanceOp = "credit"
	BalanceOpDebit  BalanceOp = "debit"
	BalanceOpNone   BalanceOp = "none"
)
