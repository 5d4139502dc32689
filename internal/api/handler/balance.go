package handler

import (
	"net/http"

	"github.com/tonfarm/farmledger/internal/service"
)

// BalanceHandler serves read-only balance lookups.
type BalanceHandler struct {
	balances *service.BalanceService
}

func NewBalanceHandler(balances *service.BalanceService) *BalanceHandler {
	return &BalanceHandler{balances: balances}
}

// GetMyBalance handles GET /v1/users/me/balance.
func (h *BalanceHandler) GetMyBalance(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	balance, err := h.balances.Get(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, r, err, "balance/get-failed")
		return
	}

	RespondJSON(w, http.StatusOK, balance)
}
