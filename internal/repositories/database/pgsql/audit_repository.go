package pgsql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
)

type PgxAuditRepository struct {
	BaseRepository
}

// newPgxAuditRepository creates a new repository for audit event data.
func newPgxAuditRepository(pool *pgxpool.Pool) portsrepo.AuditRepositoryFacade {
	return &PgxAuditRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxAuditRepository implements portsrepo.AuditRepositoryFacade
var _ portsrepo.AuditRepositoryFacade = (*PgxAuditRepository)(nil)

// newAuditEvent builds the event row written alongside a mutation.
func newAuditEvent(companyID, entityType, entityID, action, actorID string, occurredAt time.Time, details map[string]string) domain.AuditEvent {
	return domain.AuditEvent{
		EventID:    uuid.NewString(),
		CompanyID:  companyID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Details:    details,
		ActorID:    actorID,
		OccurredAt: occurredAt,
	}
}

const auditInsertQuery = `
	INSERT INTO audit_events (event_id, company_id, entity_type, entity_id, action, details, actor_id, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`

// SaveAuditEvent persists a single audit event outside any transaction.
func (r *PgxAuditRepository) SaveAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	_, err := r.Pool.Exec(ctx, auditInsertQuery,
		event.EventID,
		event.CompanyID,
		event.EntityType,
		event.EntityID,
		event.Action,
		event.Details,
		event.ActorID,
		event.OccurredAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert audit event "+event.EventID, err)
	}
	return nil
}

// SaveAuditEventInTx persists an audit event within a caller-owned transaction
// so the event commits or rolls back with the change it describes.
func (r *PgxAuditRepository) SaveAuditEventInTx(ctx context.Context, tx pgx.Tx, event domain.AuditEvent) error {
	_, err := tx.Exec(ctx, auditInsertQuery,
		event.EventID,
		event.CompanyID,
		event.EntityType,
		event.EntityID,
		event.Action,
		event.Details,
		event.ActorID,
		event.OccurredAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert audit event "+event.EventID, err)
	}
	return nil
}

// ListAuditEvents retrieves audit events for an entity, newest first.
func (r *PgxAuditRepository) ListAuditEvents(ctx context.Context, companyID string, entityType string, entityID string, limit int, offset int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT event_id, company_id, entity_type, entity_id, action, details, actor_id, occurred_at
		FROM audit_events
		WHERE company_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY occurred_at DESC, event_id DESC
		LIMIT $4 OFFSET $5;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, entityType, entityID, limit, offset)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query audit events for "+entityType+" "+entityID, err)
	}
	defer rows.Close()

	events := []domain.AuditEvent{}
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(
			&e.EventID,
			&e.CompanyID,
			&e.EntityType,
			&e.EntityID,
			&e.Action,
			&e.Details,
			&e.ActorID,
			&e.OccurredAt,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan audit event row", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating audit event rows", err)
	}

	return events, nil
}
