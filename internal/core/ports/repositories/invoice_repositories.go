package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// InvoiceReader defines read operations for invoice data
type InvoiceReader interface {
	// FindInvoiceByID retrieves a specific invoice scoped to a company.
	FindInvoiceByID(ctx context.Context, companyID string, invoiceID string) (*domain.Invoice, error)

	// FindInvoicesByIDs retrieves multiple invoices by their IDs within a company.
	FindInvoicesByIDs(ctx context.Context, companyID string, invoiceIDs []string) (map[string]domain.Invoice, error)

	// ListInvoicesByCompany retrieves a paginated list of invoices, optionally filtered by status.
	ListInvoicesByCompany(ctx context.Context, companyID string, status *domain.InvoiceStatus, limit int, offset int) ([]domain.Invoice, error)

	// ListOpenInvoicesByCustomer retrieves a customer's invoices that still
	// carry a balance due, ordered by due date ascending then created_at.
	ListOpenInvoicesByCustomer(ctx context.Context, companyID string, customerID string) ([]domain.Invoice, error)
}

// InvoiceWriter defines write operations for invoice data
type InvoiceWriter interface {
	// SaveInvoice persists a new invoice.
	SaveInvoice(ctx context.Context, invoice domain.Invoice) error

	// UpdateInvoice updates an existing invoice's details.
	UpdateInvoice(ctx context.Context, invoice domain.Invoice) error
}

// InvoiceTransactionSupport defines operations used by allocation writes
// inside a caller-owned transaction.
type InvoiceTransactionSupport interface {
	// FindInvoicesByIDsForUpdate selects invoices and locks them for update within a transaction.
	FindInvoicesByIDsForUpdate(ctx context.Context, tx pgx.Tx, companyID string, invoiceIDs []string) (map[string]domain.Invoice, error)

	// UpdateInvoiceSettlementInTx rewrites an invoice's paid amount, balance
	// due and status within a given transaction.
	UpdateInvoiceSettlementInTx(ctx context.Context, tx pgx.Tx, invoice domain.Invoice) error
}

// InvoiceRepositoryFacade combines all invoice-related repository interfaces
type InvoiceRepositoryFacade interface {
	InvoiceReader
	InvoiceWriter
	InvoiceTransactionSupport
}

// InvoiceRepositoryWithTx extends InvoiceRepositoryFacade with transaction capabilities
type InvoiceRepositoryWithTx interface {
	InvoiceRepositoryFacade
	TransactionManager
}
