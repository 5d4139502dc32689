package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Metadata is the open bag attached to a ledger entry, with the two keys the
// core depends on promoted to fields. OriginalType preserves the caller's
// logical type so the lossy stored-type mapping stays reversible; ExternalRef
// holds the normalized blockchain reference for deduplication.
type Metadata struct {
	OriginalType string            `json:"original_type"`
	ExternalRef  string            `json:"tx_hash_unique,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// LedgerEntry is the immutable record of one economic event. Rows are never
// updated or deleted after insert.
type LedgerEntry struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	StoredType  string          `json:"type"`
	AmountUNI   decimal.Decimal `json:"amount_uni"`
	AmountTON   decimal.Decimal `json:"amount_ton"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	Metadata    Metadata        `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Currency derives the displayed currency: UNI if amount_uni is non-zero,
// TON otherwise.
func (e LedgerEntry) Currency() string {
	if !e.AmountUNI.IsZero() {
		return "UNI"
	}
	return "TON"
}

// UserBalance is the per-user balance record, owned exclusively by the
// balance service. Both fields are non-negative invariants.
type UserBalance struct {
	UserID     int64           `json:"user_id"`
	BalanceUNI decimal.Decimal `json:"balance_uni"`
	BalanceTON decimal.Decimal `json:"balance_ton"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// WithdrawalRequest is the escrowed withdrawal intent awaiting an admin
// decision. The amount is debited from the spendable TON balance the moment
// the request is filed.
type WithdrawalRequest struct {
	ID          uuid.UUID       `json:"id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination_address"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	ProcessedBy *int64          `json:"processed_by,omitempty"`
}
