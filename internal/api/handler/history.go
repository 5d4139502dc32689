package handler

import (
	"net/http"

	"github.com/tonfarm/farmledger/internal/service"
)

// HistoryHandler serves the paginated transaction history.
type HistoryHandler struct {
	history *service.HistoryService
}

func NewHistoryHandler(history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// GetMyHistory handles GET /v1/users/me/history with optional page, limit,
// currency, type and status query parameters.
func (h *HistoryHandler) GetMyHistory(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	q := r.URL.Query()
	page := queryInt32(r, "page", 1)
	limit := queryInt32(r, "limit", 0)

	result, err := h.history.GetUserEntries(r.Context(), actorID, page, limit, service.HistoryFilters{
		Currency:   q.Get("currency"),
		StoredType: q.Get("type"),
		Status:     q.Get("status"),
	})
	if err != nil {
		respondServiceError(w, r, err, "history/list-failed")
		return
	}

	RespondJSON(w, http.StatusOK, result)
}
