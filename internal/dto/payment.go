package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// CreatePaymentRequest defines the data needed to register received cash.
type CreatePaymentRequest struct {
	CustomerID    string               `json:"customerID" binding:"required"`
	PaymentNumber string               `json:"paymentNumber"`
	Amount        decimal.Decimal      `json:"amount" binding:"required"`
	CurrencyCode  string               `json:"currencyCode" binding:"required,len=3"`
	Method        domain.PaymentMethod `json:"method" binding:"required,oneof=BANK_TRANSFER CARD CASH CHEQUE OTHER"`
	Reference     string               `json:"reference"`
	PaymentDate   time.Time            `json:"paymentDate" binding:"required"`
}

// PaymentResponse defines the data returned for a payment.
type PaymentResponse struct {
	PaymentID       string               `json:"paymentID"`
	CompanyID       string               `json:"companyID"`
	CustomerID      string               `json:"customerID"`
	PaymentNumber   string               `json:"paymentNumber"`
	Amount          decimal.Decimal      `json:"amount"`
	AllocatedAmount decimal.Decimal      `json:"allocatedAmount"`
	RemainingAmount decimal.Decimal      `json:"remainingAmount"`
	CurrencyCode    string               `json:"currencyCode"`
	Status          domain.PaymentStatus `json:"status"`
	Method          domain.PaymentMethod `json:"method"`
	Reference       string               `json:"reference,omitempty"`
	PaymentDate     time.Time            `json:"paymentDate"`
	CreatedAt       time.Time            `json:"createdAt"`
	CreatedBy       string               `json:"createdBy"`
}

// ToPaymentResponse converts a domain.Payment to PaymentResponse DTO.
func ToPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:       p.PaymentID,
		CompanyID:       p.CompanyID,
		CustomerID:      p.CustomerID,
		PaymentNumber:   p.PaymentNumber,
		Amount:          p.Amount,
		AllocatedAmount: p.AllocatedAmount,
		RemainingAmount: p.RemainingAmount(),
		CurrencyCode:    p.CurrencyCode,
		Status:          p.Status,
		Method:          p.Method,
		Reference:       p.Reference,
		PaymentDate:     p.PaymentDate,
		CreatedAt:       p.CreatedAt,
		CreatedBy:       p.CreatedBy,
	}
}

// ToListPaymentResponse converts a slice of domain.Payment to response DTOs.
func ToListPaymentResponse(payments []domain.Payment) []PaymentResponse {
	res := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		res[i] = ToPaymentResponse(&p)
	}
	return res
}

// ListPaymentsParams defines query parameters for listing payments.
type ListPaymentsParams struct {
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}

// ListPaymentsResponse wraps the list of payments.
type ListPaymentsResponse struct {
	Payments []PaymentResponse `json:"payments"`
}

// ManualAllocationInput is one explicit payment-to-invoice amount.
type ManualAllocationInput struct {
	InvoiceID      string          `json:"invoiceID" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// AllocatePaymentRequest defines a manual allocation of a payment across invoices.
type AllocatePaymentRequest struct {
	Allocations []ManualAllocationInput `json:"allocations" binding:"required,min=1,dive"`
	Notes       string                  `json:"notes"`
}

// AutoAllocatePaymentRequest defines a strategy-driven allocation of a payment.
// InvoiceIDs narrows the candidate set; when empty, every open invoice of the
// payment's customer is considered. Weights is required for percentage_based,
// Priorities for custom_priority.
type AutoAllocatePaymentRequest struct {
	Strategy   string                     `json:"strategy" binding:"required,oneof=fifo proportional overdue_first largest_first percentage_based custom_priority equal_distribution"`
	InvoiceIDs []string                   `json:"invoiceIDs"`
	Weights    map[string]decimal.Decimal `json:"weights,omitempty"`
	Priorities []string                   `json:"priorities,omitempty"`
	Notes      string                     `json:"notes"`
}

// ReverseAllocationRequest carries the mandatory reason for unwinding one allocation.
type ReverseAllocationRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReversePaymentRequest carries the mandatory reason for unwinding a payment.
// Amount, when set, limits the reversal: allocations are unwound newest first
// until that much cash is restored. When nil every active allocation is unwound.
type ReversePaymentRequest struct {
	Reason string           `json:"reason" binding:"required"`
	Amount *decimal.Decimal `json:"amount"`
}

// AllocationResponse defines the data returned for a payment allocation.
type AllocationResponse struct {
	AllocationID    string                  `json:"allocationID"`
	CompanyID       string                  `json:"companyID"`
	PaymentID       string                  `json:"paymentID"`
	InvoiceID       string                  `json:"invoiceID"`
	AllocatedAmount decimal.Decimal         `json:"allocatedAmount"`
	DiscountAmount  decimal.Decimal         `json:"discountAmount"`
	AllocationDate  time.Time               `json:"allocationDate"`
	Method          domain.AllocationMethod `json:"method"`
	Strategy        string                  `json:"strategy,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
	Status          domain.AllocationStatus `json:"status"`
	ReversedAt      *time.Time              `json:"reversedAt,omitempty"`
	ReversedBy      string                  `json:"reversedBy,omitempty"`
	ReversalReason  string                  `json:"reversalReason,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
	CreatedBy       string                  `json:"createdBy"`
}

// ToAllocationResponse converts a domain.PaymentAllocation to AllocationResponse DTO.
func ToAllocationResponse(a *domain.PaymentAllocation) AllocationResponse {
	return AllocationResponse{
		AllocationID:    a.AllocationID,
		CompanyID:       a.CompanyID,
		PaymentID:       a.PaymentID,
		InvoiceID:       a.InvoiceID,
		AllocatedAmount: a.AllocatedAmount,
		DiscountAmount:  a.DiscountAmount,
		AllocationDate:  a.AllocationDate,
		Method:          a.Method,
		Strategy:        a.Strategy,
		Notes:           a.Notes,
		Status:          a.Status,
		ReversedAt:      a.ReversedAt,
		ReversedBy:      a.ReversedBy,
		ReversalReason:  a.ReversalReason,
		CreatedAt:       a.CreatedAt,
		CreatedBy:       a.CreatedBy,
	}
}

// ToAllocationResponses converts a slice of allocations to response DTOs.
func ToAllocationResponses(allocations []domain.PaymentAllocation) []AllocationResponse {
	res := make([]AllocationResponse, len(allocations))
	for i, a := range allocations {
		res[i] = ToAllocationResponse(&a)
	}
	return res
}

// AllocationResultResponse reports the outcome of an allocation run: the rows
// written plus the payment's post-allocation amounts.
type AllocationResultResponse struct {
	Payment     PaymentResponse      `json:"payment"`
	Allocations []AllocationResponse `json:"allocations"`
}
