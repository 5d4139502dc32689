package repository

import (
	"context"
	"fmt"
)

// InsertAuditLogParams records one immutable state change for later review.
// EntityID is text so both numeric ledger ids and withdrawal UUIDs fit.
type InsertAuditLogParams struct {
	EntityType string
	EntityID   string
	ActorID    *int64
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   []byte
}

// InsertAuditLog appends one audit row.
func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, NOW())`,
		arg.EntityType, arg.EntityID, arg.ActorID, arg.Action, arg.PrevState, arg.NextState, arg.Metadata)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
