package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/tonfarm/farmledger/internal/domain"
	"github.com/tonfarm/farmledger/internal/observability"
	"github.com/tonfarm/farmledger/internal/repository"
)

// DefaultDedupWindow bounds the repeatable-event duplicate check.
const DefaultDedupWindow = 5 * time.Minute

// Wallet clients append "_<13-digit unix millis>_<alphanumeric nonce>" to the
// transaction hash on every retry. Retries of one on-chain transaction must
// collapse to one normalized key.
var retrySuffixPattern = regexp.MustCompile(`_[0-9]{13}_[A-Za-z0-9]+$`)

// NormalizeExternalRef strips client retry suffixes from a raw blockchain
// reference. The suffix can stack when a retried request is itself retried,
// so stripping repeats until the reference is stable.
func NormalizeExternalRef(raw string) string {
	ref := strings.TrimSpace(raw)
	for {
		stripped := retrySuffixPattern.ReplaceAllString(ref, "")
		if stripped == ref {
			return ref
		}
		ref = stripped
	}
}

// DedupGuard decides whether a candidate ledger entry duplicates one already
// recorded. It is stateless; all evidence lives in the ledger itself.
type DedupGuard struct {
	window time.Duration
}

// NewDedupGuard creates a guard with the given time window for repeatable
// events. Non-positive windows fall back to the default.
func NewDedupGuard(window time.Duration) *DedupGuard {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &DedupGuard{window: window}
}

// CheckExternalRef looks for a prior entry with the same normalized
// reference. This application-level check fails fast; the unique index on
// the reference column remains the authoritative guard for races.
func (g *DedupGuard) CheckExternalRef(ctx context.Context, q *repository.Queries, normalizedRef string) (int64, bool, error) {
	id, err := q.GetEntryIDByExternalRef(ctx, normalizedRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

// CheckRepeatable looks for an entry with the same user, logical type and
// amounts inside the window. A match is a duplicate: scheduler-driven events
// (daily bonus) may double-fire and must not double-credit.
func (g *DedupGuard) CheckRepeatable(ctx context.Context, q *repository.Queries, userID int64, logicalType string, amount domain.Amount) (int64, bool, error) {
	id, err := q.FindRecentDuplicate(ctx, repository.FindRecentDuplicateParams{
		UserID:       userID,
		OriginalType: logicalType,
		AmountUNI:    amount.UNI,
		AmountTON:    amount.TON,
		Since:        time.Now().Add(-g.window),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}

	zap.L().Warn("duplicate repeatable event prevented",
		zap.Int64("user_id", userID),
		zap.String("logical_type", logicalType),
		zap.String("amount", amount.String()),
		zap.Int64("existing_entry_id", id),
	)
	observability.IncrementDuplicatePrevented(logicalType)
	return id, true, nil
}
