package service

import (
	"context"
	"fmt"

	"github.com/tonfarm/farmledger/internal/repository"
)

// AuditService writes immutable audit trail entries. Writes always happen
// inside the caller's transaction so an audited change and its audit row
// commit or roll back together.
type AuditService struct{}

func NewAuditService() *AuditService {
	return &AuditService{}
}

// Write stores a single immutable audit record.
func (s *AuditService) Write(ctx context.Context, qtx *repository.Queries, entityType, entityID string, actorID *int64, action, prevState, nextState string, metadata []byte) error {
	if err := qtx.InsertAuditLog(ctx, repository.InsertAuditLogParams{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		PrevState:  textParam(prevState),
		NextState:  textParam(nextState),
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func textParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
