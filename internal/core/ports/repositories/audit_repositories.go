package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// AuditReader defines read operations for audit event data
type AuditReader interface {
	// ListAuditEvents retrieves audit events for an entity, newest first.
	ListAuditEvents(ctx context.Context, companyID string, entityType string, entityID string, limit int, offset int) ([]domain.AuditEvent, error)
}

// AuditWriter defines write operations for audit event data
type AuditWriter interface {
	// SaveAuditEvent persists a single audit event.
	SaveAuditEvent(ctx context.Context, event domain.AuditEvent) error

	// SaveAuditEventInTx persists an audit event within a caller-owned
	// transaction so the event commits or rolls back with the change it
	// describes.
	SaveAuditEventInTx(ctx context.Context, tx pgx.Tx, event domain.AuditEvent) error
}

// AuditRepositoryFacade combines all audit-related repository interfaces
type AuditRepositoryFacade interface {
	AuditReader
	AuditWriter
}
