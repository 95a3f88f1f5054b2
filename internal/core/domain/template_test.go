package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrequencyNextAfter(t *testing.T) {
	from := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		frequency Frequency
		interval  int
		want      time.Time
	}{
		{"daily", Daily, 1, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"every third day", Daily, 3, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)},
		{"weekly", Weekly, 1, time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)},
		{"biweekly", Weekly, 2, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)},
		// Jan 31 + 1 month normalizes to Mar 3 (2026 is not a leap year)
		{"monthly end of month", Monthly, 1, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
		{"quarterly", Quarterly, 1, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"yearly", Yearly, 1, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)},
		{"zero interval treated as one", Monthly, 0, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.frequency.NextAfter(from, tc.interval)
			assert.True(t, got.Equal(tc.want), "got %s want %s", got, tc.want)
		})
	}
}

func TestTemplateIsDue(t *testing.T) {
	asOf := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	tmpl := RecurringJournalTemplate{IsActive: true, NextGenerationDate: asOf}
	assert.True(t, tmpl.IsDue(asOf), "due exactly at the generation date")

	tmpl.NextGenerationDate = asOf.AddDate(0, 0, -1)
	assert.True(t, tmpl.IsDue(asOf), "overdue template is due")

	tmpl.NextGenerationDate = asOf.AddDate(0, 0, 1)
	assert.False(t, tmpl.IsDue(asOf), "future template is not due")

	tmpl.NextGenerationDate = asOf
	tmpl.IsActive = false
	assert.False(t, tmpl.IsDue(asOf), "inactive template is never due")
}
