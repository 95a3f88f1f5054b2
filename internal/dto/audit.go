package dto

import (
	"time"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// ListAuditEventsParams defines query parameters for listing audit events.
type ListAuditEventsParams struct {
	EntityType string `form:"entityType" binding:"required,oneof=journal_entry recurring_template payment"`
	EntityID   string `form:"entityID" binding:"required"`
	Limit      int    `form:"limit,default=20"`
	Offset     int    `form:"offset,default=0"`
}

// AuditEventResponse defines the data returned for an audit event.
type AuditEventResponse struct {
	EventID    string            `json:"eventID"`
	CompanyID  string            `json:"companyID"`
	EntityType string            `json:"entityType"`
	EntityID   string            `json:"entityID"`
	Action     string            `json:"action"`
	Details    map[string]string `json:"details,omitempty"`
	ActorID    string            `json:"actorID"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// ToAuditEventResponse converts a domain.AuditEvent to AuditEventResponse DTO.
func ToAuditEventResponse(e *domain.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		EventID:    e.EventID,
		CompanyID:  e.CompanyID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		Details:    e.Details,
		ActorID:    e.ActorID,
		OccurredAt: e.OccurredAt,
	}
}

// ListAuditEventsResponse wraps the list of audit events.
type ListAuditEventsResponse struct {
	Events []AuditEventResponse `json:"events"`
}
