package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// CreateJournalLineRequest is one debit or credit line inside a create request.
type CreateJournalLineRequest struct {
	AccountID   string          `json:"accountID" binding:"required"`
	Side        domain.LineSide `json:"side" binding:"required,oneof=DEBIT CREDIT"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

// CreateJournalEntryRequest defines the data needed to create a new draft entry.
// The line set must balance: sum of debits equal to sum of credits.
type CreateJournalEntryRequest struct {
	Description  string                     `json:"description" binding:"required"`
	EntryDate    time.Time                  `json:"entryDate" binding:"required"`
	EntryType    domain.EntryType           `json:"entryType" binding:"required,oneof=SALES PURCHASE PAYMENT RECEIPT ADJUSTMENT CLOSING OPENING"`
	Reference    string                     `json:"reference"`
	CurrencyCode string                     `json:"currencyCode" binding:"required,len=3"`
	Lines        []CreateJournalLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// UpdateJournalEntryRequest defines the data allowed for updating a draft entry.
// Only drafts are editable; lines, when present, replace the existing set.
type UpdateJournalEntryRequest struct {
	Description *string                    `json:"description"`
	EntryDate   *time.Time                 `json:"entryDate"`
	Reference   *string                    `json:"reference"`
	Lines       []CreateJournalLineRequest `json:"lines" binding:"omitempty,min=2,dive"`
}

// VoidJournalEntryRequest carries the mandatory reason for voiding an entry.
type VoidJournalEntryRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReverseJournalEntryRequest optionally overrides the generated reversal description.
type ReverseJournalEntryRequest struct {
	Description string     `json:"description"`
	EntryDate   *time.Time `json:"entryDate"`
}

// JournalLineResponse defines the data returned for a journal line.
type JournalLineResponse struct {
	LineID      string          `json:"lineID"`
	EntryID     string          `json:"entryID"`
	AccountID   string          `json:"accountID"`
	Side        domain.LineSide `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// JournalEntryResponse defines the data returned for a journal entry.
type JournalEntryResponse struct {
	EntryID           string                `json:"entryID"`
	CompanyID         string                `json:"companyID"`
	Description       string                `json:"description"`
	EntryDate         time.Time             `json:"entryDate"`
	EntryType         domain.EntryType      `json:"entryType"`
	Status            domain.EntryStatus    `json:"status"`
	Reference         string                `json:"reference,omitempty"`
	CurrencyCode      string                `json:"currencyCode"`
	ReversalOfEntryID *string               `json:"reversalOfEntryID,omitempty"`
	ReversedByEntryID *string               `json:"reversedByEntryID,omitempty"`
	SubmittedAt       *time.Time            `json:"submittedAt,omitempty"`
	ApprovedAt        *time.Time            `json:"approvedAt,omitempty"`
	ApprovedBy        string                `json:"approvedBy,omitempty"`
	PostedAt          *time.Time            `json:"postedAt,omitempty"`
	PostedBy          string                `json:"postedBy,omitempty"`
	VoidedAt          *time.Time            `json:"voidedAt,omitempty"`
	VoidedBy          string                `json:"voidedBy,omitempty"`
	VoidReason        string                `json:"voidReason,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	CreatedBy         string                `json:"createdBy"`
	Lines             []JournalLineResponse `json:"lines,omitempty"`
}

// ToJournalLineResponse converts a domain.JournalLine to JournalLineResponse DTO.
func ToJournalLineResponse(line *domain.JournalLine) JournalLineResponse {
	return JournalLineResponse{
		LineID:      line.LineID,
		EntryID:     line.EntryID,
		AccountID:   line.AccountID,
		Side:        line.Side,
		Amount:      line.Amount,
		Description: line.Description,
	}
}

// ToJournalLineResponses converts a slice of domain.JournalLine to []JournalLineResponse.
func ToJournalLineResponses(lines []domain.JournalLine) []JournalLineResponse {
	responses := make([]JournalLineResponse, len(lines))
	for i, line := range lines {
		responses[i] = ToJournalLineResponse(&line)
	}
	return responses
}

// ToJournalEntryResponse converts a domain.JournalEntry to JournalEntryResponse DTO.
func ToJournalEntryResponse(entry *domain.JournalEntry) JournalEntryResponse {
	return JournalEntryResponse{
		EntryID:           entry.EntryID,
		CompanyID:         entry.CompanyID,
		Description:       entry.Description,
		EntryDate:         entry.EntryDate,
		EntryType:         entry.EntryType,
		Status:            entry.Status,
		Reference:         entry.Reference,
		CurrencyCode:      entry.CurrencyCode,
		ReversalOfEntryID: entry.ReversalOfEntryID,
		ReversedByEntryID: entry.ReversedByEntryID,
		SubmittedAt:       entry.SubmittedAt,
		ApprovedAt:        entry.ApprovedAt,
		ApprovedBy:        entry.ApprovedBy,
		PostedAt:          entry.PostedAt,
		PostedBy:          entry.PostedBy,
		VoidedAt:          entry.VoidedAt,
		VoidedBy:          entry.VoidedBy,
		VoidReason:        entry.VoidReason,
		CreatedAt:         entry.CreatedAt,
		CreatedBy:         entry.CreatedBy,
		Lines:             ToJournalLineResponses(entry.Lines),
	}
}

// ListJournalEntriesParams defines query parameters for listing journal entries.
type ListJournalEntriesParams struct {
	Limit            int     `form:"limit,default=20"`
	NextToken        *string `form:"nextToken"`
	IncludeReversals bool    `form:"includeReversals,default=true"`
}

// ListJournalEntriesResponse wraps a page of entries with the cursor for the next page.
type ListJournalEntriesResponse struct {
	Entries   []JournalEntryResponse `json:"entries"`
	NextToken *string                `json:"nextToken,omitempty"`
}

// ListAccountLinesParams defines query parameters for listing an account's posted lines.
type ListAccountLinesParams struct {
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"nextToken"`
}

// ListAccountLinesResponse wraps a page of lines with the cursor for the next page.
type ListAccountLinesResponse struct {
	Lines     []JournalLineResponse `json:"lines"`
	NextToken *string               `json:"nextToken,omitempty"`
}
