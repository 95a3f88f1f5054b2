package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
	portssvc "github.com/openbooks/backoffice_app/internal/core/ports/services"
	"github.com/openbooks/backoffice_app/internal/dto"
	"github.com/openbooks/backoffice_app/internal/middleware"
)

// invoiceService registers and reads the receivables the allocation engine
// settles against. Issuing and line-item management live elsewhere.
type invoiceService struct {
	invoiceRepo portsrepo.InvoiceRepositoryFacade
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(invoiceRepo portsrepo.InvoiceRepositoryFacade) portssvc.InvoiceSvcFacade {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
	}
}

// Ensure invoiceService implements the portssvc.InvoiceSvcFacade interface
var _ portssvc.InvoiceSvcFacade = (*invoiceService)(nil)

// CreateInvoice registers a new open receivable with its full amount due.
func (s *invoiceService) CreateInvoice(ctx context.Context, companyID string, req dto.CreateInvoiceRequest, creatorUserID string) (*domain.Invoice, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !req.TotalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: invoice total must be positive", apperrors.ErrValidation)
	}
	if req.DueDate.Before(req.IssueDate) {
		return nil, fmt.Errorf("%w: due date precedes issue date", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	invoice := domain.Invoice{
		InvoiceID:     uuid.NewString(),
		CompanyID:     companyID,
		CustomerID:    req.CustomerID,
		InvoiceNumber: req.InvoiceNumber,
		TotalAmount:   req.TotalAmount,
		PaidAmount:    decimal.Zero,
		BalanceDue:    req.TotalAmount,
		Status:        domain.InvoiceOpen,
		IssueDate:     req.IssueDate,
		DueDate:       req.DueDate,
		CurrencyCode:  req.CurrencyCode,
		AuditFields:   domain.NewAuditFields(creatorUserID, now),
	}

	if err := s.invoiceRepo.SaveInvoice(ctx, invoice); err != nil {
		logger.Error("Failed to save invoice", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	logger.Info("Invoice created successfully", slog.String("invoice_id", invoice.InvoiceID), slog.String("company_id", companyID))
	return &invoice, nil
}

// GetInvoiceByID retrieves a specific invoice scoped to the company.
func (s *invoiceService) GetInvoiceByID(ctx context.Context, companyID string, invoiceID string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, companyID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	return invoice, nil
}

// ListInvoices retrieves a paginated list of invoices for the company.
func (s *invoiceService) ListInvoices(ctx context.Context, companyID string, params dto.ListInvoicesParams) (*dto.ListInvoicesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	invoices, err := s.invoiceRepo.ListInvoicesByCompany(ctx, companyID, params.Status, limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list invoices from repository", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to retrieve invoices: %w", err)
	}

	return &dto.ListInvoicesResponse{
		Invoices: dto.ToListInvoiceResponse(invoices),
	}, nil
}
