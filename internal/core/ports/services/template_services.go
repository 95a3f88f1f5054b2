package services

import (
	"context"

	"github.com/openbooks/backoffice_app/internal/core/domain"
	"github.com/openbooks/backoffice_app/internal/dto"
)

// TemplateReaderSvc defines read operations for recurring template data
type TemplateReaderSvc interface {
	// GetTemplateByID retrieves a specific template with its lines.
	GetTemplateByID(ctx context.Context, companyID string, templateID string) (*domain.RecurringJournalTemplate, error)

	// ListTemplates retrieves a paginated list of templates in a company.
	ListTemplates(ctx context.Context, companyID string, params dto.ListTemplatesParams) (*dto.ListTemplatesResponse, error)
}

// TemplateWriterSvc defines write operations for recurring template data
type TemplateWriterSvc interface {
	// CreateTemplate persists a new recurring template with its lines.
	CreateTemplate(ctx context.Context, companyID string, req dto.CreateTemplateRequest, creatorUserID string) (*domain.RecurringJournalTemplate, error)

	// UpdateTemplate updates a template's details and optionally replaces its lines.
	UpdateTemplate(ctx context.Context, companyID string, templateID string, req dto.UpdateTemplateRequest, requestingUserID string) (*domain.RecurringJournalTemplate, error)

	// DeactivateTemplate marks a single template inactive.
	DeactivateTemplate(ctx context.Context, companyID string, templateID string, req dto.DeactivateTemplateRequest, requestingUserID string) error

	// DeactivateAllTemplates marks every active template of a company inactive
	// and reports how many were affected.
	DeactivateAllTemplates(ctx context.Context, companyID string, req dto.DeactivateAllTemplatesRequest, requestingUserID string) (*dto.DeactivateAllTemplatesResponse, error)
}

// TemplateGeneratorSvc defines the generation operations of the scheduler
type TemplateGeneratorSvc interface {
	// GenerateFromTemplate generates the next occurrence of one template. A
	// template that is not due generates nothing unless the request forces it.
	GenerateFromTemplate(ctx context.Context, companyID string, templateID string, req dto.GenerateEntriesRequest, requestingUserID string) (*dto.GenerateEntriesResponse, error)

	// GenerateDueEntries generates the next occurrence of every due template
	// in the company. Each run advances each template exactly one step.
	GenerateDueEntries(ctx context.Context, companyID string, req dto.GenerateEntriesRequest, requestingUserID string) (*dto.GenerateEntriesResponse, error)
}

// TemplateSvcFacade combines all template-related service interfaces
type TemplateSvcFacade interface {
	TemplateReaderSvc
	TemplateWriterSvc
	TemplateGeneratorSvc
}
