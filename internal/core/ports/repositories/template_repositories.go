package repositories

import (
	"context"
	"time"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// TemplateReader defines read operations for recurring template data
type TemplateReader interface {
	// FindTemplateByID retrieves a specific template scoped to a company.
	FindTemplateByID(ctx context.Context, companyID string, templateID string) (*domain.RecurringJournalTemplate, error)

	// ListTemplatesByCompany retrieves a paginated list of templates for a given company.
	ListTemplatesByCompany(ctx context.Context, companyID string, activeOnly bool, limit int, offset int) ([]domain.RecurringJournalTemplate, error)

	// FindDueTemplates retrieves active templates whose next generation date is at or before asOf.
	FindDueTemplates(ctx context.Context, companyID string, asOf time.Time, limit int) ([]domain.RecurringJournalTemplate, error)
}

// TemplateWriter defines write operations for recurring template data
type TemplateWriter interface {
	// SaveTemplate persists a new template and its lines.
	SaveTemplate(ctx context.Context, template domain.RecurringJournalTemplate) error

	// UpdateTemplate updates an existing template's details and replaces its lines.
	UpdateTemplate(ctx context.Context, template domain.RecurringJournalTemplate) error

	// DeactivateTemplate marks a single template inactive with a reason.
	DeactivateTemplate(ctx context.Context, companyID string, templateID string, reason string, userID string, now time.Time) error

	// DeactivateAllTemplates marks every active template of a company inactive
	// and returns how many were affected.
	DeactivateAllTemplates(ctx context.Context, companyID string, reason string, userID string, now time.Time) (int, error)

	// SaveGeneratedEntry persists a generated draft entry with its lines,
	// records the generation against the template, and advances the
	// template's next generation date, all within one transaction. The
	// advance is guarded on previousNextDate; a concurrent generation of the
	// same occurrence surfaces as apperrors.ErrConflict.
	SaveGeneratedEntry(ctx context.Context, template domain.RecurringJournalTemplate, entry domain.JournalEntry, lines []domain.JournalLine, previousNextDate time.Time) error
}

// TemplateRepositoryFacade combines all template-related repository interfaces
type TemplateRepositoryFacade interface {
	TemplateReader
	TemplateWriter
}

// TemplateRepositoryWithTx extends TemplateRepositoryFacade with transaction capabilities
type TemplateRepositoryWithTx interface {
	TemplateRepositoryFacade
	TransactionManager
}
