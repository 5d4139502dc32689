package repository

import (
	"context"
)

// IdempotencyKeyRow mirrors one row of the HTTP idempotency table.
type IdempotencyKeyRow struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	InProgress     bool
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
}

// GetIdempotencyKey loads a key record; pgx.ErrNoRows if absent.
func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKeyRow, error) {
	var row IdempotencyKeyRow
	err := q.db.QueryRow(ctx, `
		SELECT idempotency_key, request_hash, method, path, in_progress,
		       response_status, response_body, content_type
		FROM idempotency_keys WHERE idempotency_key = $1`, key,
	).Scan(&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path,
		&row.InProgress, &row.ResponseStatus, &row.ResponseBody, &row.ContentType)
	return row, err
}

// ReserveIdempotencyKeyParams claims a key for the first request to arrive.
type ReserveIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
}

// ReserveIdempotencyKey inserts the in-progress marker. ON CONFLICT DO
// NOTHING makes the insert race-safe; pgx.ErrNoRows signals that another
// request holds the key.
func (q *Queries) ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (string, error) {
	var key string
	err := q.db.QueryRow(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress, created_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING idempotency_key`,
		arg.IdempotencyKey, arg.RequestHash, arg.Method, arg.Path,
	).Scan(&key)
	return key, err
}

// FinalizeIdempotencyKeyParams stores the response captured for replay.
type FinalizeIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
}

// FinalizeIdempotencyKey records the response and clears the in-progress flag.
func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKeyRow, error) {
	var row IdempotencyKeyRow
	err := q.db.QueryRow(ctx, `
		UPDATE idempotency_keys
		SET in_progress = FALSE, response_status = $3, response_body = $4, content_type = $5
		WHERE idempotency_key = $1 AND request_hash = $2
		RETURNING idempotency_key, request_hash, method, path, in_progress,
		          response_status, response_body, content_type`,
		arg.IdempotencyKey, arg.RequestHash, arg.ResponseStatus, arg.ResponseBody, arg.ContentType,
	).Scan(&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path,
		&row.InProgress, &row.ResponseStatus, &row.ResponseBody, &row.ContentType)
	return row, err
}
