package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the recurrence unit of a template schedule.
type Frequency string

const (
	Daily     Frequency = "DAILY"
	Weekly    Frequency = "WEEKLY"
	Monthly   Frequency = "MONTHLY"
	Quarterly Frequency = "QUARTERLY"
	Yearly    Frequency = "YEARLY"
)

// NextAfter returns the generation date one frequency step (times interval)
// after from. Interval values below 1 are treated as 1.
func (f Frequency) NextAfter(from time.Time, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch f {
	case Daily:
		return from.AddDate(0, 0, interval)
	case Weekly:
		return from.AddDate(0, 0, 7*interval)
	case Monthly:
		return from.AddDate(0, interval, 0)
	case Quarterly:
		return from.AddDate(0, 3*interval, 0)
	case Yearly:
		return from.AddDate(interval, 0, 0)
	default:
		return from.AddDate(0, interval, 0)
	}
}

// RecurringJournalTemplate is a reusable balanced line set that periodically
// materializes into new draft journal entries. Each generation advances
// NextGenerationDate exactly once.
type RecurringJournalTemplate struct {
	TemplateID         string     `json:"templateID"`
	CompanyID          string     `json:"companyID"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Frequency          Frequency  `json:"frequency"`
	Interval           int        `json:"interval"` // multiplier on frequency, >= 1
	StartDate          time.Time  `json:"startDate"`
	EndDate            *time.Time `json:"endDate,omitempty"`
	NextGenerationDate time.Time  `json:"nextGenerationDate"`
	IsActive           bool       `json:"isActive"`
	DeactivationReason string     `json:"deactivationReason,omitempty"`
	CurrencyCode       string     `json:"currencyCode"`
	EntryType          EntryType  `json:"entryType"`
	AuditFields
	Lines []TemplateLine `json:"lines,omitempty"`
}

// TemplateLine mirrors a journal line inside a template. The template's line
// set must balance at creation time, so generated entries balance by
// construction.
type TemplateLine struct {
	LineID      string          `json:"lineID"`
	TemplateID  string          `json:"templateID"`
	AccountID   string          `json:"accountID"`
	Side        LineSide        `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	AuditFields
}

// IsDue reports whether the template should generate as of the given time.
func (t *RecurringJournalTemplate) IsDue(asOf time.Time) bool {
	return t.IsActive && !t.NextGenerationDate.After(asOf)
}
