package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tonfarm/farmledger/internal/domain"
	"github.com/tonfarm/farmledger/internal/models"
	"github.com/tonfarm/farmledger/internal/service"
)

// LedgerHandler exposes event recording and entry lookup.
type LedgerHandler struct {
	ledger *service.LedgerService
}

func NewLedgerHandler(ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// RecordEventRequest is the body for POST /v1/ledger/entries.
type RecordEventRequest struct {
	UserID      int64             `json:"user_id,omitempty"`
	Type        string            `json:"type"`
	AmountUNI   string            `json:"amount_uni,omitempty"`
	AmountTON   string            `json:"amount_ton,omitempty"`
	Description string            `json:"description,omitempty"`
	TxHash      string            `json:"tx_hash,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// RecordEventResponse reports the outcome of an event submission.
type RecordEventResponse struct {
	EntryID   int64               `json:"entry_id"`
	Duplicate bool                `json:"duplicate"`
	Balance   *models.UserBalance `json:"balance,omitempty"`
}

// RecordEvent handles POST /v1/ledger/entries. Non-admin callers may only
// record events against their own account.
func (h *LedgerHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.Type == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-type", "type is required")
		return
	}

	userID := req.UserID
	if userID == 0 {
		userID = actorID
	}
	if userID != actorID && !isAdmin {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "cannot record events for another user")
		return
	}

	amount, err := parseAmount(req.AmountUNI, req.AmountTON)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", err.Error())
		return
	}

	result, err := h.ledger.CreateEntry(r.Context(), service.CreateEntryParams{
		UserID:      userID,
		LogicalType: req.Type,
		Amount:      amount,
		Description: req.Description,
		ExternalRef: req.TxHash,
		Extra:       req.Metadata,
	})
	if err != nil {
		zap.L().Warn("record event failed",
			zap.Int64("user_id", userID),
			zap.String("type", req.Type),
			zap.Error(err))
		respondServiceError(w, r, err, "ledger/record-failed")
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	RespondJSON(w, status, RecordEventResponse{
		EntryID:   result.EntryID,
		Duplicate: result.Duplicate,
		Balance:   result.Balance,
	})
}

// GetEntry handles GET /v1/ledger/entries/{id}. Owners see their own
// entries; admins see everything.
func (h *LedgerHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	entryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || entryID <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-entry-id", "Invalid entry ID")
		return
	}

	entry, err := h.ledger.GetEntry(r.Context(), entryID)
	if err != nil {
		respondServiceError(w, r, err, "ledger/get-failed")
		return
	}
	if entry.UserID != actorID && !isAdmin {
		RespondError(w, r, http.StatusNotFound, "resource/not-found", "entry not found")
		return
	}

	RespondJSON(w, http.StatusOK, entry)
}

func parseAmount(uniStr, tonStr string) (domain.Amount, error) {
	var amount domain.Amount
	if uniStr != "" {
		uni, err := decimal.NewFromString(uniStr)
		if err != nil {
			return amount, err
		}
		amount.UNI = uni
	}
	if tonStr != "" {
		ton, err := decimal.NewFromString(tonStr)
		if err != nil {
			return amount, err
		}
		amount.TON = ton
	}
	return amount, nil
}
