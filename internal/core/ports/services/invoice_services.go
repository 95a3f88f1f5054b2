package services

import (
	"context"

	"github.com/openbooks/backoffice_app/internal/core/domain"
	"github.com/openbooks/backoffice_app/internal/dto"
)

// InvoiceReaderSvc defines read operations for invoice data
type InvoiceReaderSvc interface {
	// GetInvoiceByID retrieves a specific invoice.
	GetInvoiceByID(ctx context.Context, companyID string, invoiceID string) (*domain.Invoice, error)

	// ListInvoices retrieves a paginated list of invoices in a company.
	ListInvoices(ctx context.Context, companyID string, params dto.ListInvoicesParams) (*dto.ListInvoicesResponse, error)
}

// InvoiceWriterSvc defines write operations for invoice data
type InvoiceWriterSvc interface {
	// CreateInvoice registers a new receivable.
	CreateInvoice(ctx context.Context, companyID string, req dto.CreateInvoiceRequest, creatorUserID string) (*domain.Invoice, error)
}

// InvoiceSvcFacade combines all invoice-related service interfaces
type InvoiceSvcFacade interface {
	InvoiceReaderSvc
	InvoiceWriterSvc
}
