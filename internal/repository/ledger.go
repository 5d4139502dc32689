package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tonfarm/farmledger/internal/models"
)

const ledgerEntryColumns = `
	id, user_id, stored_type, amount_uni::text, amount_ton::text,
	status, description, metadata, created_at`

// InsertLedgerEntryParams holds the immutable fields of a new ledger row.
// ExternalRef is nil for events without a blockchain reference; the column
// carries a partial unique index so two concurrent inserts of the same
// normalized reference cannot both succeed.
type InsertLedgerEntryParams struct {
	UserID      int64
	StoredType  string
	AmountUNI   decimal.Decimal
	AmountTON   decimal.Decimal
	Status      string
	Description string
	ExternalRef *string
	Metadata    models.Metadata
}

// InsertLedgerEntry appends one row and returns its assigned id.
func (q *Queries) InsertLedgerEntry(ctx context.Context, arg InsertLedgerEntryParams) (int64, error) {
	meta, err := json.Marshal(arg.Metadata)
	if err != nil {
		return 0, fmt.Errorf("encode entry metadata: %w", err)
	}

	var id int64
	err = q.db.QueryRow(ctx, `
		INSERT INTO ledger_entries
			(user_id, stored_type, amount_uni, amount_ton, status, description, external_ref, metadata, created_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7, $8::jsonb, NOW())
		RETURNING id`,
		arg.UserID, arg.StoredType, arg.AmountUNI.String(), arg.AmountTON.String(),
		arg.Status, arg.Description, arg.ExternalRef, meta,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetLedgerEntry loads one row by id.
func (q *Queries) GetLedgerEntry(ctx context.Context, id int64) (models.LedgerEntry, error) {
	row := q.db.QueryRow(ctx, `SELECT`+ledgerEntryColumns+` FROM ledger_entries WHERE id = $1`, id)
	return scanLedgerEntry(row)
}

// GetEntryIDByExternalRef returns the id of the entry recorded for a
// normalized external reference, if any.
func (q *Queries) GetEntryIDByExternalRef(ctx context.Context, externalRef string) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx,
		`SELECT id FROM ledger_entries WHERE external_ref = $1`, externalRef,
	).Scan(&id)
	return id, err
}

// FindRecentDuplicateParams identifies a repeatable event: same user, same
// original logical type, same amounts, within the window.
type FindRecentDuplicateParams struct {
	UserID       int64
	OriginalType string
	AmountUNI    decimal.Decimal
	AmountTON    decimal.Decimal
	Since        time.Time
}

// FindRecentDuplicate returns the id of a matching prior entry inside the
// window. pgx.ErrNoRows means no duplicate.
func (q *Queries) FindRecentDuplicate(ctx context.Context, arg FindRecentDuplicateParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `
		SELECT id FROM ledger_entries
		WHERE user_id = $1
		  AND metadata->>'original_type' = $2
		  AND amount_uni = $3::numeric
		  AND amount_ton = $4::numeric
		  AND created_at >= $5
		ORDER BY created_at DESC
		LIMIT 1`,
		arg.UserID, arg.OriginalType, arg.AmountUNI.String(), arg.AmountTON.String(), arg.Since,
	).Scan(&id)
	return id, err
}

// ListUserEntriesParams drives the paginated history read. Filter fields are
// optional; empty string means no filter. Currency filtering follows the
// derivation rule: an entry displays as UNI when amount_uni is non-zero.
type ListUserEntriesParams struct {
	UserID     int64
	Currency   string
	StoredType string
	Status     string
	Limit      int32
	Offset     int32
}

func entryFilterClause(arg ListUserEntriesParams) (string, []any) {
	where := `WHERE user_id = $1`
	args := []any{arg.UserID}

	switch arg.Currency {
	case "UNI":
		where += ` AND amount_uni <> 0`
	case "TON":
		where += ` AND amount_uni = 0`
	}
	if arg.StoredType != "" {
		args = append(args, arg.StoredType)
		where += fmt.Sprintf(` AND stored_type = $%d`, len(args))
	}
	if arg.Status != "" {
		args = append(args, arg.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	return where, args
}

// ListUserEntries returns one page of a user's ledger, newest first.
func (q *Queries) ListUserEntries(ctx context.Context, arg ListUserEntriesParams) ([]models.LedgerEntry, error) {
	where, args := entryFilterClause(arg)
	args = append(args, arg.Limit, arg.Offset)
	sql := fmt.Sprintf(`SELECT %s FROM ledger_entries %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		ledgerEntryColumns, where, len(args)-1, len(args))

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountUserEntries returns the filtered total for pagination metadata.
func (q *Queries) CountUserEntries(ctx context.Context, arg ListUserEntriesParams) (int64, error) {
	where, args := entryFilterClause(arg)
	var total int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries `+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return total, nil
}

// BalanceDrift reports a user whose stored balance diverges from the signed
// sum of their completed ledger entries.
type BalanceDrift struct {
	UserID      int64
	BalanceUNI  decimal.Decimal
	BalanceTON  decimal.Decimal
	ExpectedUNI decimal.Decimal
	ExpectedTON decimal.Decimal
}

// ListBalanceDrifts compares balances against the ledger. Income and deposit
// rows count positive, expense and withdrawal rows negative; only completed
// entries move a balance.
func (q *Queries) ListBalanceDrifts(ctx context.Context, limit int32) ([]BalanceDrift, error) {
	rows, err := q.db.Query(ctx, `
		SELECT b.user_id, b.balance_uni::text, b.balance_ton::text,
		       COALESCE(l.net_uni, 0)::text, COALESCE(l.net_ton, 0)::text
		FROM user_balances b
		LEFT JOIN (
			SELECT user_id,
			       SUM(CASE WHEN stored_type IN ('income', 'deposit') THEN amount_uni ELSE -amount_uni END) AS net_uni,
			       SUM(CASE WHEN stored_type IN ('income', 'deposit') THEN amount_ton ELSE -amount_ton END) AS net_ton
			FROM ledger_entries
			WHERE status = 'completed'
			GROUP BY user_id
		) l ON l.user_id = b.user_id
		WHERE b.balance_uni <> COALESCE(l.net_uni, 0)
		   OR b.balance_ton <> COALESCE(l.net_ton, 0)
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list balance drifts: %w", err)
	}
	defer rows.Close()

	var drifts []BalanceDrift
	for rows.Next() {
		var d BalanceDrift
		var balUNI, balTON, expUNI, expTON string
		if err := rows.Scan(&d.UserID, &balUNI, &balTON, &expUNI, &expTON); err != nil {
			return nil, fmt.Errorf("scan balance drift: %w", err)
		}
		if d.BalanceUNI, err = decFromText(balUNI); err != nil {
			return nil, err
		}
		if d.BalanceTON, err = decFromText(balTON); err != nil {
			return nil, err
		}
		if d.ExpectedUNI, err = decFromText(expUNI); err != nil {
			return nil, err
		}
		if d.ExpectedTON, err = decFromText(expTON); err != nil {
			return nil, err
		}
		drifts = append(drifts, d)
	}
	return drifts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedgerEntry(row rowScanner) (models.LedgerEntry, error) {
	var (
		e        models.LedgerEntry
		uni, ton string
		meta     []byte
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.StoredType, &uni, &ton,
		&e.Status, &e.Description, &meta, &e.CreatedAt); err != nil {
		return models.LedgerEntry{}, err
	}

	var err error
	if e.AmountUNI, err = decFromText(uni); err != nil {
		return models.LedgerEntry{}, err
	}
	if e.AmountTON, err = decFromText(ton); err != nil {
		return models.LedgerEntry{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return models.LedgerEntry{}, fmt.Errorf("decode entry metadata: %w", err)
		}
	}
	return e, nil
}
