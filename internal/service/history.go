package service

import (
	"context"
	"fmt"

	"github.com/tonfarm/farmledger/internal/domain"
	"github.com/tonfarm/farmledger/internal/models"
	"github.com/tonfarm/farmledger/internal/repository"
)

// HistoryService is the read-only view over the ledger. It performs no
// writes and carries no invariants beyond reflecting the ledger faithfully.
type HistoryService struct {
	store QueryStore
}

func NewHistoryService(store QueryStore) *HistoryService {
	return &HistoryService{store: store}
}

// HistoryFilters narrows a history read; zero values mean no filter.
type HistoryFilters struct {
	Currency   string
	StoredType string
	Status     string
}

// HistoryPage is one page of a user's ledger, newest first.
type HistoryPage struct {
	Entries    []models.LedgerEntry `json:"entries"`
	Total      int64                `json:"total"`
	Page       int32                `json:"page"`
	Limit      int32                `json:"limit"`
	TotalPages int32                `json:"total_pages"`
	HasMore    bool                 `json:"has_more"`
}

// GetUserEntries returns a filtered, offset-paginated slice of the ledger.
func (s *HistoryService) GetUserEntries(ctx context.Context, userID int64, page, limit int32, filters HistoryFilters) (HistoryPage, error) {
	if userID <= 0 {
		return HistoryPage{}, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	switch filters.Currency {
	case "", domain.CurrencyUNI, domain.CurrencyTON:
	default:
		return HistoryPage{}, fmt.Errorf("%w: unknown currency %q", ErrValidation, filters.Currency)
	}

	params := repository.ListUserEntriesParams{
		UserID:     userID,
		Currency:   filters.Currency,
		StoredType: filters.StoredType,
		Status:     filters.Status,
	}
	queries := s.store.Queries()

	total, err := queries.CountUserEntries(ctx, params)
	if err != nil {
		return HistoryPage{}, err
	}

	params.Limit = limit
	params.Offset = (page - 1) * limit
	entries, err := queries.ListUserEntries(ctx, params)
	if err != nil {
		return HistoryPage{}, err
	}

	totalPages := int32(0)
	if total > 0 {
		totalPages = int32((total + int64(limit) - 1) / int64(limit))
	}

	return HistoryPage{
		Entries:    entries,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasMore:    int64(page)*int64(limit) < total,
	}, nil
}
