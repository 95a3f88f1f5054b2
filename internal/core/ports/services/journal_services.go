package services

import (
	"context"

	"github.com/openbooks/backoffice_app/internal/core/domain"
	"github.com/openbooks/backoffice_app/internal/dto"
)

// JournalReaderSvc defines read operations for journal entry data
type JournalReaderSvc interface {
	// GetEntryByID retrieves a specific journal entry with its lines.
	GetEntryByID(ctx context.Context, companyID string, entryID string) (*domain.JournalEntry, error)

	// ListEntries retrieves a paginated list of entries in a company.
	ListEntries(ctx context.Context, companyID string, params dto.ListJournalEntriesParams) (*dto.ListJournalEntriesResponse, error)

	// ListLinesByAccount retrieves the posted lines touching a specific account.
	ListLinesByAccount(ctx context.Context, companyID string, accountID string, params dto.ListAccountLinesParams) (*dto.ListAccountLinesResponse, error)
}

// JournalWriterSvc defines write operations for journal entry data
type JournalWriterSvc interface {
	// CreateEntry persists a new draft entry with its lines.
	CreateEntry(ctx context.Context, companyID string, req dto.CreateJournalEntryRequest, creatorUserID string) (*domain.JournalEntry, error)

	// UpdateEntry updates a draft entry's details and optionally replaces its lines.
	UpdateEntry(ctx context.Context, companyID string, entryID string, req dto.UpdateJournalEntryRequest, requestingUserID string) (*domain.JournalEntry, error)

	// SubmitEntry moves a draft entry to submitted.
	SubmitEntry(ctx context.Context, companyID string, entryID string, requestingUserID string) (*domain.JournalEntry, error)

	// ApproveEntry moves a submitted entry to approved.
	ApproveEntry(ctx context.Context, companyID string, entryID string, requestingUserID string) (*domain.JournalEntry, error)

	// PostEntry moves an approved entry to posted and applies its lines to
	// account balances.
	PostEntry(ctx context.Context, companyID string, entryID string, requestingUserID string) (*domain.JournalEntry, error)

	// VoidEntry voids an entry from any non-terminal status; voiding a posted
	// entry restores the account balances it moved.
	VoidEntry(ctx context.Context, companyID string, entryID string, req dto.VoidJournalEntryRequest, requestingUserID string) (*domain.JournalEntry, error)

	// ReverseEntry creates and posts the mirror entry for a posted entry.
	ReverseEntry(ctx context.Context, companyID string, entryID string, req dto.ReverseJournalEntryRequest, requestingUserID string) (*domain.JournalEntry, error)
}

// JournalSvcFacade combines all journal-related service interfaces
// This is a facade for clients that need access to all operations
type JournalSvcFacade interface {
	JournalReaderSvc
	JournalWriterSvc
}
