package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID reference
}

// NewAuditFields stamps both created and last-updated fields with the same
// actor and time, for freshly created entities.
func NewAuditFields(userID string, now time.Time) AuditFields {
	return AuditFields{
		CreatedAt:     now,
		CreatedBy:     userID,
		LastUpdatedAt: now,
		LastUpdatedBy: userID,
	}
}

// Touch updates the last-updated audit fields.
func (a *AuditFields) Touch(userID string, now time.Time) {
	a.LastUpdatedAt = now
	a.LastUpdatedBy = userID
}
