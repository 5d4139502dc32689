package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tonfarm/farmledger/internal/domain"
	"github.com/tonfarm/farmledger/internal/service"
)

// WithdrawalHandler covers the user-facing request flow and the admin
// decision endpoints.
type WithdrawalHandler struct {
	withdrawals *service.WithdrawalService
}

func NewWithdrawalHandler(withdrawals *service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

// CreateWithdrawalRequest is the body for POST /v1/withdrawals.
type CreateWithdrawalRequest struct {
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
}

// CreateWithdrawal handles POST /v1/withdrawals. The TON is debited
// immediately; a rejection later refunds it through a compensating entry.
func (h *WithdrawalHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req CreateWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "amount must be a positive decimal")
		return
	}
	if req.Destination == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-destination", "destination is required")
		return
	}

	request, err := h.withdrawals.Create(r.Context(), actorID, amount, req.Destination)
	if err != nil {
		zap.L().Warn("withdrawal create failed",
			zap.Int64("user_id", actorID),
			zap.Error(err))
		respondServiceError(w, r, err, "withdrawal/create-failed")
		return
	}

	RespondJSON(w, http.StatusCreated, request)
}

// GetWithdrawal handles GET /v1/withdrawals/{id}.
func (h *WithdrawalHandler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-withdrawal-id", "Invalid withdrawal ID")
		return
	}

	request, err := h.withdrawals.Get(r.Context(), requestID)
	if err != nil {
		respondServiceError(w, r, err, "withdrawal/get-failed")
		return
	}
	if request.UserID != actorID && !isAdmin {
		RespondError(w, r, http.StatusNotFound, "resource/not-found", "withdrawal not found")
		return
	}

	RespondJSON(w, http.StatusOK, request)
}

// ListWithdrawals handles GET /v1/admin/withdrawals?status=pending, the
// review queue, oldest first.
func (h *WithdrawalHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = domain.WithdrawalStatusPending
	}
	switch status {
	case domain.WithdrawalStatusPending, domain.WithdrawalStatusApproved, domain.WithdrawalStatusRejected:
	default:
		RespondError(w, r, http.StatusBadRequest, "request/invalid-status", "status must be pending, approved or rejected")
		return
	}

	limit := queryInt32(r, "limit", 0)
	offset := queryInt32(r, "offset", 0)

	requests, err := h.withdrawals.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		respondServiceError(w, r, err, "withdrawal/list-failed")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"withdrawals": requests,
		"status":      status,
	})
}

// ApproveWithdrawal handles POST /v1/admin/withdrawals/{id}/approve.
func (h *WithdrawalHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, domain.WithdrawalStatusApproved)
}

// RejectWithdrawal handles POST /v1/admin/withdrawals/{id}/reject.
func (h *WithdrawalHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, domain.WithdrawalStatusRejected)
}

func (h *WithdrawalHandler) decide(w http.ResponseWriter, r *http.Request, next string) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-withdrawal-id", "Invalid withdrawal ID")
		return
	}

	var request interface{}
	switch next {
	case domain.WithdrawalStatusApproved:
		request, err = h.withdrawals.Approve(r.Context(), requestID, actorID)
	case domain.WithdrawalStatusRejected:
		request, err = h.withdrawals.Reject(r.Context(), requestID, actorID)
	}
	if err != nil {
		zap.L().Warn("withdrawal decision failed",
			zap.String("request_id", requestID.String()),
			zap.String("decision", next),
			zap.Int64("admin_id", actorID),
			zap.Error(err))
		respondServiceError(w, r, err, "withdrawal/decision-failed")
		return
	}

	RespondJSON(w, http.StatusOK, request)
}

func queryInt32(r *http.Request, key string, def int32) int32 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 0 {
		return def
	}
	return int32(v)
}
