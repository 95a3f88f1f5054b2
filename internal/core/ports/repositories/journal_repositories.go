package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// EntryReader defines read operations for journal entry data
type EntryReader interface {
	// FindEntryByID retrieves a specific journal entry scoped to a company.
	FindEntryByID(ctx context.Context, companyID string, entryID string) (*domain.JournalEntry, error)

	// ListEntriesByCompany retrieves a paginated list of entries for a given company using token-based pagination.
	// It returns the entries, a token for the next page, and an error.
	ListEntriesByCompany(ctx context.Context, companyID string, limit int, nextToken *string, includeReversals bool) ([]domain.JournalEntry, *string, error)
}

// LineReader defines read operations for journal line data
type LineReader interface {
	// FindLinesByEntryID retrieves all lines associated with a single entry ID.
	FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalLine, error)

	// FindLinesByEntryIDs retrieves lines for multiple entry IDs, grouped by entry ID.
	FindLinesByEntryIDs(ctx context.Context, entryIDs []string) (map[string][]domain.JournalLine, error)

	// ListLinesByAccountID retrieves a paginated list of posted lines for a specific account using token-based pagination.
	ListLinesByAccountID(ctx context.Context, companyID string, accountID string, limit int, nextToken *string) ([]domain.JournalLine, *string, error)
}

// EntryWriter defines write operations for journal entry data
type EntryWriter interface {
	// SaveEntry persists a new draft entry and its lines.
	SaveEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine) error

	// UpdateEntry updates non-workflow fields of a draft entry (description, date, reference) and replaces its lines.
	UpdateEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine) error

	// UpdateEntryWorkflow moves an entry between workflow statuses. The update
	// is guarded on expectedStatus; a concurrent transition surfaces as
	// apperrors.ErrConflict.
	UpdateEntryWorkflow(ctx context.Context, entry domain.JournalEntry, expectedStatus domain.EntryStatus) error

	// PostEntry transitions an approved entry to posted and applies its
	// balance changes to the affected accounts, all within one transaction.
	// Accounts are locked for update and the status change is guarded on
	// the approved status.
	PostEntry(ctx context.Context, entry domain.JournalEntry, balanceChanges map[string]decimal.Decimal) error

	// VoidEntry marks an entry voided. For a posted entry, balanceChanges
	// carries the negated posting deltas to restore account balances in the
	// same transaction; for unposted entries it is nil.
	VoidEntry(ctx context.Context, entry domain.JournalEntry, expectedStatus domain.EntryStatus, balanceChanges map[string]decimal.Decimal) error

	// SaveReversal persists the mirror entry and its lines, links the
	// original entry to it, and applies the reversal's balance changes, all
	// within one transaction. The link update is guarded so an already
	// reversed original surfaces as apperrors.ErrDuplicateReversal.
	SaveReversal(ctx context.Context, reversal domain.JournalEntry, lines []domain.JournalLine, originalEntryID string, balanceChanges map[string]decimal.Decimal, updatedBy string, updatedAt time.Time) error
}

// JournalRepositoryFacade combines all journal-related repository interfaces
// This is a facade for clients that need access to all operations
type JournalRepositoryFacade interface {
	EntryReader
	LineReader
	EntryWriter
}

// JournalRepositoryWithTx extends JournalRepositoryFacade with transaction capabilities
type JournalRepositoryWithTx interface {
	JournalRepositoryFacade
	TransactionManager
}
