package services

import (
	"context"
	"fmt"
	"log/slog"

	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
	"github.com/openbooks/backoffice_app/internal/dto"
	"github.com/openbooks/backoffice_app/internal/middleware"
)

// auditService reads back the audit trail the repositories write.
type auditService struct {
	auditRepo portsrepo.AuditRepositoryFacade
}

// NewAuditService creates a new audit read service.
func NewAuditService(auditRepo portsrepo.AuditRepositoryFacade) *auditService {
	return &auditService{
		auditRepo: auditRepo,
	}
}

// ListAuditEvents retrieves the audit trail of one entity, newest first.
func (s *auditService) ListAuditEvents(ctx context.Context, companyID string, params dto.ListAuditEventsParams) (*dto.ListAuditEventsResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	events, err := s.auditRepo.ListAuditEvents(ctx, companyID, params.EntityType, params.EntityID, params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list audit events",
			slog.String("error", err.Error()),
			slog.String("entity_type", params.EntityType),
			slog.String("entity_id", params.EntityID),
		)
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}

	responses := make([]dto.AuditEventResponse, len(events))
	for i := range events {
		responses[i] = dto.ToAuditEventResponse(&events[i])
	}
	return &dto.ListAuditEventsResponse{Events: responses}, nil
}
