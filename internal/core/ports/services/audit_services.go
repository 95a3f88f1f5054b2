package services

import (
	"context"

	"github.com/openbooks/backoffice_app/internal/dto"
)

// AuditSvcFacade defines read access to the audit trail. Events are written
// by the repositories inside the transactions that mutate state; this facade
// only reads them back.
type AuditSvcFacade interface {
	// ListAuditEvents retrieves the audit trail of one entity, newest first.
	ListAuditEvents(ctx context.Context, companyID string, params dto.ListAuditEventsParams) (*dto.ListAuditEventsResponse, error)
}
