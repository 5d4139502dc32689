package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tonfarm/farmledger/internal/api/middleware"
	"github.com/tonfarm/farmledger/internal/api/problem"
	"github.com/tonfarm/farmledger/internal/service"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

func requestActor(r *http.Request) (int64, bool, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID <= 0 {
		return 0, false, errors.New("missing user in auth context")
	}
	return userID, middleware.UserRoleFromContext(r.Context()) == middleware.RoleAdmin, nil
}

// respondServiceError translates the service error taxonomy into HTTP
// problem responses. Unknown errors fall through to a 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallbackSlug string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		RespondError(w, r, http.StatusBadRequest, "request/validation", err.Error())
	case errors.Is(err, service.ErrDuplicateEntry):
		RespondError(w, r, http.StatusConflict, "ledger/duplicate-entry", err.Error())
	case errors.Is(err, service.ErrInsufficientFunds):
		RespondError(w, r, http.StatusUnprocessableEntity, "balance/insufficient-funds", err.Error())
	case errors.Is(err, service.ErrStateConflict):
		RespondError(w, r, http.StatusConflict, "withdrawal/state-conflict", err.Error())
	case errors.Is(err, service.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, "resource/not-found", err.Error())
	default:
		if status, slug, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, slug, msg)
			return
		}
		RespondError(w, r, http.StatusInternalServerError, fallbackSlug, "internal error")
	}
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}
