package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus indicates where a journal entry sits in its lifecycle.
type EntryStatus string

const (
	EntryDraft     EntryStatus = "DRAFT"
	EntrySubmitted EntryStatus = "SUBMITTED"
	EntryApproved  EntryStatus = "APPROVED"
	EntryPosted    EntryStatus = "POSTED"
	EntryVoided    EntryStatus = "VOIDED"
)

// entryTransitions is the closed transition table for journal entries.
// Reversal is not a status change on the original entry; it is recorded via
// ReversedByEntryID so a posted entry stays posted.
var entryTransitions = map[EntryStatus][]EntryStatus{
	EntryDraft:     {EntrySubmitted, EntryVoided},
	EntrySubmitted: {EntryApproved, EntryVoided},
	EntryApproved:  {EntryPosted, EntryVoided},
	EntryPosted:    {EntryVoided},
	EntryVoided:    {},
}

// CanTransitionTo reports whether the status permits moving to next.
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	for _, allowed := range entryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s EntryStatus) IsTerminal() bool {
	return len(entryTransitions[s]) == 0
}

// EntryType classifies the business event behind a journal entry.
type EntryType string

const (
	EntrySales      EntryType = "SALES"
	EntryPurchase   EntryType = "PURCHASE"
	EntryPayment    EntryType = "PAYMENT"
	EntryReceipt    EntryType = "RECEIPT"
	EntryAdjustment EntryType = "ADJUSTMENT"
	EntryClosing    EntryType = "CLOSING"
	EntryOpening    EntryType = "OPENING"
)

// LineSide indicates whether a journal line is a debit or a credit.
type LineSide string

const (
	Debit  LineSide = "DEBIT"
	Credit LineSide = "CREDIT"
)

// Opposite returns the mirror side, used when building reversal lines.
func (s LineSide) Opposite() LineSide {
	if s == Debit {
		return Credit
	}
	return Debit
}

// JournalEntry represents a single financial event composed of balanced
// debit/credit lines. An entry is never persisted unbalanced once it leaves
// draft, and a posted entry's lines never change; corrections happen through
// a reversal entry that mirrors every line.
type JournalEntry struct {
	EntryID      string      `json:"entryID"`
	CompanyID    string      `json:"companyID"`
	Description  string      `json:"description"`
	EntryDate    time.Time   `json:"entryDate"`
	EntryType    EntryType   `json:"entryType"`
	Status       EntryStatus `json:"status"`
	Reference    string      `json:"reference"`
	CurrencyCode string      `json:"currencyCode"`

	// ReversalOfEntryID links a reversal entry back to its original;
	// ReversedByEntryID is set on the original once reversed. At most one
	// reversal may ever point at a given entry.
	ReversalOfEntryID *string `json:"reversalOfEntryID,omitempty"`
	ReversedByEntryID *string `json:"reversedByEntryID,omitempty"`

	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy  string     `json:"approvedBy,omitempty"`
	PostedAt    *time.Time `json:"postedAt,omitempty"`
	PostedBy    string     `json:"postedBy,omitempty"`
	VoidedAt    *time.Time `json:"voidedAt,omitempty"`
	VoidedBy    string     `json:"voidedBy,omitempty"`
	VoidReason  string     `json:"voidReason,omitempty"`

	AuditFields
	Lines []JournalLine `json:"lines,omitempty"`
}

// JournalLine is a single debit or credit against one account. A line never
// exists without its parent entry.
type JournalLine struct {
	LineID      string          `json:"lineID"`
	EntryID     string          `json:"entryID"`
	AccountID   string          `json:"accountID"`
	Side        LineSide        `json:"side"`
	Amount      decimal.Decimal `json:"amount"` // always non-negative
	Description string          `json:"description"`
	AuditFields
}
