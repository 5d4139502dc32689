package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/tonfarm/farmledger/internal/domain"
	"github.com/tonfarm/farmledger/internal/models"
	"github.com/tonfarm/farmledger/internal/repository"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint violation; the
// partial index on external_ref turns the dedup race loser into this error.
const pgUniqueViolation = "23505"

// LedgerService records economic events. It owns the write path end to end:
// validation, stored-type mapping, deduplication, the ledger insert and the
// lockstep balance mutation.
type LedgerService struct {
	store   QueryStore
	guard   *DedupGuard
	balance *BalanceService
	audit   *AuditService
}

// NewLedgerService wires the ledger write path. The balance service must be
// the same instance the rest of the process uses, so balance mutation stays
// behind a single owner.
func NewLedgerService(store QueryStore, guard *DedupGuard, balance *BalanceService) *LedgerService {
	return &LedgerService{
		store:   store,
		guard:   guard,
		balance: balance,
		audit:   NewAuditService(),
	}
}

// CreateEntryParams is the structured event callers submit.
type CreateEntryParams struct {
	UserID      int64
	LogicalType string
	Amount      domain.Amount
	// Status defaults to completed; only completed entries move balances
	// during reconciliation checks.
	Status      string
	Description string
	// ExternalRef is the raw blockchain reference, required for
	// externally-sourced types and rejected for all others.
	ExternalRef string
	Extra       map[string]string
}

// CreateEntryResult reports what happened. Duplicate is set when a
// repeatable event matched a prior entry; EntryID then references that
// entry and no new row or balance change was made.
type CreateEntryResult struct {
	EntryID   int64
	Duplicate bool
	// Balance carries the post-mutation balance for balance-affecting
	// types, nil otherwise.
	Balance *models.UserBalance
}

// CreateEntry validates, deduplicates and records one economic event,
// mutating the user balance in the same database transaction when the
// logical type is balance-affecting.
func (s *LedgerService) CreateEntry(ctx context.Context, p CreateEntryParams) (CreateEntryResult, error) {
	class, normalizedRef, err := s.prepare(&p)
	if err != nil {
		return CreateEntryResult{}, err
	}

	queries := s.store.Queries()

	// Fail-fast duplicate checks. The external-ref check is an optimization;
	// the unique index below is the source of truth under concurrency.
	if class.External {
		existingID, dup, err := s.guard.CheckExternalRef(ctx, queries, normalizedRef)
		if err != nil {
			return CreateEntryResult{}, fmt.Errorf("check external reference: %w", err)
		}
		if dup {
			return CreateEntryResult{}, fmt.Errorf("%w: reference already recorded as entry %d", ErrDuplicateEntry, existingID)
		}
	} else if class.Repeatable {
		existingID, dup, err := s.guard.CheckRepeatable(ctx, queries, p.UserID, p.LogicalType, p.Amount)
		if err != nil {
			return CreateEntryResult{}, fmt.Errorf("check repeatable duplicate: %w", err)
		}
		if dup {
			return CreateEntryResult{EntryID: existingID, Duplicate: true}, nil
		}
	}

	var result CreateEntryResult
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var txErr error
		result, txErr = s.createInTx(ctx, qtx, p, class, normalizedRef)
		return txErr
	})
	if err != nil {
		return CreateEntryResult{}, err
	}
	return result, nil
}

// CreateEntryInTx records an event inside the caller's open transaction. The
// withdrawal flow uses it so the escrow debit, the ledger row and the request
// record commit atomically.
func (s *LedgerService) CreateEntryInTx(ctx context.Context, qtx *repository.Queries, p CreateEntryParams) (CreateEntryResult, error) {
	class, normalizedRef, err := s.prepare(&p)
	if err != nil {
		return CreateEntryResult{}, err
	}
	return s.createInTx(ctx, qtx, p, class, normalizedRef)
}

// prepare validates the params, resolves the stored-type mapping and
// normalizes the external reference. It mutates p to fill defaults.
func (s *LedgerService) prepare(p *CreateEntryParams) (domain.EventClass, string, error) {
	if p.UserID <= 0 {
		return domain.EventClass{}, "", fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if p.LogicalType == "" {
		return domain.EventClass{}, "", fmt.Errorf("%w: logical_type is required", ErrValidation)
	}

	class, err := domain.ClassifyEvent(p.LogicalType)
	if err != nil {
		return domain.EventClass{}, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if p.Amount.IsZero() {
		return domain.EventClass{}, "", fmt.Errorf("%w: zero-value entry carries no economic meaning", ErrValidation)
	}
	if p.Amount.IsNegative() && class.Op != domain.BalanceOpDebit {
		return domain.EventClass{}, "", fmt.Errorf("%w: negative amount is only valid for debit types, got %s", ErrValidation, p.LogicalType)
	}
	if class.Op == domain.BalanceOpDebit {
		// Rows are stored unsigned; the stored type carries direction, so
		// the ledger sum reconciles in a single signed pass.
		p.Amount = p.Amount.Abs()
	}

	var normalizedRef string
	if class.External {
		normalizedRef = NormalizeExternalRef(p.ExternalRef)
		if normalizedRef == "" {
			return domain.EventClass{}, "", fmt.Errorf("%w: external reference is required for %s", ErrValidation, p.LogicalType)
		}
	} else if p.ExternalRef != "" {
		return domain.EventClass{}, "", fmt.Errorf("%w: external reference is not accepted for %s", ErrValidation, p.LogicalType)
	}

	if p.Status == "" {
		p.Status = domain.EntryStatusCompleted
	}
	switch p.Status {
	case domain.EntryStatusPending, domain.EntryStatusCompleted, domain.EntryStatusFailed, domain.EntryStatusCancelled:
	default:
		return domain.EventClass{}, "", fmt.Errorf("%w: unknown status %q", ErrValidation, p.Status)
	}

	if p.Description == "" {
		p.Description = fmt.Sprintf(class.DescriptionFmt, p.Amount.Value().String(), p.Amount.Currency())
	}
	return class, normalizedRef, nil
}

func (s *LedgerService) createInTx(ctx context.Context, qtx *repository.Queries, p CreateEntryParams, class domain.EventClass, normalizedRef string) (CreateEntryResult, error) {
	var refParam *string
	if normalizedRef != "" {
		refParam = &normalizedRef
	}

	entryID, err := qtx.InsertLedgerEntry(ctx, repository.InsertLedgerEntryParams{
		UserID:      p.UserID,
		StoredType:  class.StoredType,
		AmountUNI:   p.Amount.UNI,
		AmountTON:   p.Amount.TON,
		Status:      p.Status,
		Description: p.Description,
		ExternalRef: refParam,
		Metadata: models.Metadata{
			OriginalType: p.LogicalType,
			ExternalRef:  normalizedRef,
			Extra:        p.Extra,
		},
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// Race loser on the normalized-reference index.
			return CreateEntryResult{}, fmt.Errorf("%w: reference %s", ErrDuplicateEntry, normalizedRef)
		}
		return CreateEntryResult{}, fmt.Errorf("insert ledger entry: %w", err)
	}

	result := CreateEntryResult{EntryID: entryID}

	if class.Op == domain.BalanceOpNone || p.Status != domain.EntryStatusCompleted {
		return result, nil
	}

	// The balance op is declared by the classification table, never inferred
	// from the amount sign. prepare already normalized debits to unsigned.
	var change BalanceChange
	switch class.Op {
	case domain.BalanceOpCredit:
		change, err = s.balance.AddInTx(ctx, qtx, p.UserID, p.Amount, p.LogicalType)
	case domain.BalanceOpDebit:
		change, err = s.balance.SubtractInTx(ctx, qtx, p.UserID, p.Amount, p.LogicalType)
	}
	if err != nil {
		// The transaction rolls back, so the intent row is gone too. Log
		// against the would-be entry id for reconciliation before bailing.
		zap.L().Error("balance mutation failed for ledger entry",
			zap.Int64("entry_id", entryID),
			zap.Int64("user_id", p.UserID),
			zap.String("logical_type", p.LogicalType),
			zap.Error(err),
		)
		return CreateEntryResult{}, err
	}

	if err := s.audit.Write(ctx, qtx, "ledger_entry", strconv.FormatInt(entryID, 10), nil,
		"entry_created", "", p.Status, nil); err != nil {
		return CreateEntryResult{}, err
	}

	result.Balance = &change.New
	return result, nil
}

// GetEntry loads one ledger entry.
func (s *LedgerService) GetEntry(ctx context.Context, id int64) (models.LedgerEntry, error) {
	entry, err := s.store.Queries().GetLedgerEntry(ctx, id)
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("get ledger entry: %w", err)
	}
	return entry, nil
}
