package domain

import "time"

// AuditEvent is the immutable record written alongside every mutation, in the
// same database transaction. An operation that cannot persist its audit event
// is not considered successful.
type AuditEvent struct {
	EventID    string            `json:"eventID"`
	CompanyID  string            `json:"companyID"`
	EntityType string            `json:"entityType"` // e.g. "journal_entry", "payment_allocation"
	EntityID   string            `json:"entityID"`
	Action     string            `json:"action"` // e.g. "journal.posted", "payment.allocated"
	Details    map[string]string `json:"details,omitempty"`
	ActorID    string            `json:"actorID"`
	OccurredAt time.Time         `json:"occurredAt"`
}
