package services

import (
	"context"

	"github.com/openbooks/backoffice_app/internal/core/domain"
	"github.com/openbooks/backoffice_app/internal/dto"
)

// PaymentReaderSvc defines read operations for payment data
type PaymentReaderSvc interface {
	// GetPaymentByID retrieves a specific payment.
	GetPaymentByID(ctx context.Context, companyID string, paymentID string) (*domain.Payment, error)

	// ListPayments retrieves a paginated list of payments in a company.
	ListPayments(ctx context.Context, companyID string, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error)

	// ListAllocationsByPayment retrieves a payment's allocations, newest first.
	ListAllocationsByPayment(ctx context.Context, companyID string, paymentID string) ([]domain.PaymentAllocation, error)
}

// PaymentWriterSvc defines write operations for payment data
type PaymentWriterSvc interface {
	// CreatePayment registers received cash.
	CreatePayment(ctx context.Context, companyID string, req dto.CreatePaymentRequest, creatorUserID string) (*domain.Payment, error)
}

// AllocatorSvc defines the allocation operations of the engine
type AllocatorSvc interface {
	// AllocatePayment applies explicit per-invoice amounts from a payment.
	AllocatePayment(ctx context.Context, companyID string, paymentID string, req dto.AllocatePaymentRequest, requestingUserID string) (*dto.AllocationResultResponse, error)

	// AutoAllocatePayment distributes a payment across open invoices using a
	// named strategy.
	AutoAllocatePayment(ctx context.Context, companyID string, paymentID string, req dto.AutoAllocatePaymentRequest, requestingUserID string) (*dto.AllocationResultResponse, error)
}

// AllocationReverserSvc defines the reversal operations of the engine
type AllocationReverserSvc interface {
	// ReverseAllocation unwinds a single active allocation, restoring the
	// invoice balance and freeing the payment funds.
	ReverseAllocation(ctx context.Context, companyID string, paymentID string, allocationID string, req dto.ReverseAllocationRequest, requestingUserID string) (*dto.AllocationResultResponse, error)

	// ReversePayment unwinds every active allocation of a payment, newest
	// first, and marks the payment reversed.
	ReversePayment(ctx context.Context, companyID string, paymentID string, req dto.ReversePaymentRequest, requestingUserID string) (*dto.AllocationResultResponse, error)
}

// PaymentSvcFacade combines all payment-related service interfaces
// This is a facade for clients that need access to all operations
type PaymentSvcFacade interface {
	PaymentReaderSvc
	PaymentWriterSvc
	AllocatorSvc
	AllocationReverserSvc
}
