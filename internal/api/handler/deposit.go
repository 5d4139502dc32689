package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tonfarm/farmledger/internal/domain"
	"github.com/tonfarm/farmledger/internal/service"
)

// DepositHandler confirms on-chain TON deposits reported by the payment
// watcher or the client after wallet confirmation.
type DepositHandler struct {
	ledger *service.LedgerService
}

func NewDepositHandler(ledger *service.LedgerService) *DepositHandler {
	return &DepositHandler{ledger: ledger}
}

// ConfirmDepositRequest is the body for POST /v1/deposits.
type ConfirmDepositRequest struct {
	Amount string `json:"amount"`
	TxHash string `json:"tx_hash"`
}

// ConfirmDeposit handles POST /v1/deposits. The tx hash is the dedup
// anchor: resubmitting the same on-chain transfer, with or without a
// client retry suffix, never credits twice.
func (h *DepositHandler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req ConfirmDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.TxHash == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-tx-hash", "tx_hash is required")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "amount must be a positive decimal")
		return
	}

	result, err := h.ledger.CreateEntry(r.Context(), service.CreateEntryParams{
		UserID:      actorID,
		LogicalType: domain.TypeTonDeposit,
		Amount:      domain.NewTON(amount),
		ExternalRef: req.TxHash,
	})
	if err != nil {
		zap.L().Warn("deposit confirmation failed",
			zap.Int64("user_id", actorID),
			zap.Error(err))
		respondServiceError(w, r, err, "deposit/confirm-failed")
		return
	}

	RespondJSON(w, http.StatusCreated, RecordEventResponse{
		EntryID:   result.EntryID,
		Duplicate: result.Duplicate,
		Balance:   result.Balance,
	})
}
