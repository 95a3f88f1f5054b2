package repositories

import (
	"context"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// PaymentReader defines read operations for payment data
type PaymentReader interface {
	// FindPaymentByID retrieves a specific payment scoped to a company.
	FindPaymentByID(ctx context.Context, companyID string, paymentID string) (*domain.Payment, error)

	// ListPaymentsByCompany retrieves a paginated list of payments for a given company.
	ListPaymentsByCompany(ctx context.Context, companyID string, limit int, offset int) ([]domain.Payment, error)
}

// AllocationReader defines read operations for payment allocation data
type AllocationReader interface {
	// FindAllocationByID retrieves a specific allocation scoped to a company.
	FindAllocationByID(ctx context.Context, companyID string, allocationID string) (*domain.PaymentAllocation, error)

	// FindAllocationsByPaymentID retrieves all allocations of a payment, newest first.
	FindAllocationsByPaymentID(ctx context.Context, companyID string, paymentID string) ([]domain.PaymentAllocation, error)

	// FindAllocationsByInvoiceID retrieves all allocations applied to an invoice.
	FindAllocationsByInvoiceID(ctx context.Context, companyID string, invoiceID string) ([]domain.PaymentAllocation, error)
}

// PaymentWriter defines write operations for payment and allocation data
type PaymentWriter interface {
	// SavePayment persists a new payment.
	SavePayment(ctx context.Context, payment domain.Payment) error

	// UpdatePayment updates an existing payment's details.
	UpdatePayment(ctx context.Context, payment domain.Payment) error

	// SaveAllocations persists new allocations and rewrites the payment and
	// affected invoices to their post-allocation state, all within one
	// transaction. The payment and invoice rows are locked for update and
	// the payment's allocated amount is revalidated against its pre-image;
	// a concurrent allocation surfaces as apperrors.ErrConflict.
	SaveAllocations(ctx context.Context, payment domain.Payment, allocations []domain.PaymentAllocation, invoices []domain.Invoice) error

	// ReverseAllocations marks allocations reversed and rewrites the payment
	// and affected invoices to their post-reversal state, all within one
	// transaction. Each allocation update is guarded on the active status;
	// an already reversed allocation surfaces as apperrors.ErrConflict.
	ReverseAllocations(ctx context.Context, payment domain.Payment, allocations []domain.PaymentAllocation, invoices []domain.Invoice) error
}

// PaymentRepositoryFacade combines all payment-related repository interfaces
type PaymentRepositoryFacade interface {
	PaymentReader
	AllocationReader
	PaymentWriter
}

// PaymentRepositoryWithTx extends PaymentRepositoryFacade with transaction capabilities
type PaymentRepositoryWithTx interface {
	PaymentRepositoryFacade
	TransactionManager
}
