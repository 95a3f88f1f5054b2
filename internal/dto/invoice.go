package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// CreateInvoiceRequest defines the data needed to register a receivable.
type CreateInvoiceRequest struct {
	CustomerID    string          `json:"customerID" binding:"required"`
	InvoiceNumber string          `json:"invoiceNumber" binding:"required"`
	TotalAmount   decimal.Decimal `json:"totalAmount" binding:"required"`
	IssueDate     time.Time       `json:"issueDate" binding:"required"`
	DueDate       time.Time       `json:"dueDate" binding:"required"`
	CurrencyCode  string          `json:"currencyCode" binding:"required,len=3"`
}

// InvoiceResponse defines the data returned for an invoice.
type InvoiceResponse struct {
	InvoiceID     string               `json:"invoiceID"`
	CompanyID     string               `json:"companyID"`
	CustomerID    string               `json:"customerID"`
	InvoiceNumber string               `json:"invoiceNumber"`
	TotalAmount   decimal.Decimal      `json:"totalAmount"`
	PaidAmount    decimal.Decimal      `json:"paidAmount"`
	BalanceDue    decimal.Decimal      `json:"balanceDue"`
	Status        domain.InvoiceStatus `json:"status"`
	IssueDate     time.Time            `json:"issueDate"`
	DueDate       time.Time            `json:"dueDate"`
	CurrencyCode  string               `json:"currencyCode"`
	CreatedAt     time.Time            `json:"createdAt"`
	CreatedBy     string               `json:"createdBy"`
}

// ToInvoiceResponse converts a domain.Invoice to InvoiceResponse DTO.
func ToInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	return InvoiceResponse{
		InvoiceID:     inv.InvoiceID,
		CompanyID:     inv.CompanyID,
		CustomerID:    inv.CustomerID,
		InvoiceNumber: inv.InvoiceNumber,
		TotalAmount:   inv.TotalAmount,
		PaidAmount:    inv.PaidAmount,
		BalanceDue:    inv.BalanceDue,
		Status:        inv.Status,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		CurrencyCode:  inv.CurrencyCode,
		CreatedAt:     inv.CreatedAt,
		CreatedBy:     inv.CreatedBy,
	}
}

// ToListInvoiceResponse converts a slice of domain.Invoice to response DTOs.
func ToListInvoiceResponse(invoices []domain.Invoice) []InvoiceResponse {
	res := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		res[i] = ToInvoiceResponse(&inv)
	}
	return res
}

// ListInvoicesParams defines query parameters for listing invoices.
type ListInvoicesParams struct {
	Status *domain.InvoiceStatus `form:"status" binding:"omitempty,oneof=OPEN PARTIALLY_PAID PAID CANCELLED"`
	Limit  int                   `form:"limit,default=20"`
	Offset int                   `form:"offset,default=0"`
}

// ListInvoicesResponse wraps the list of invoices.
type ListInvoicesResponse struct {
	Invoices []InvoiceResponse `json:"invoices"`
}
