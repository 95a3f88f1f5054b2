package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus tracks the payment state of an invoice as seen by the
// allocation engine.
type InvoiceStatus string

const (
	InvoiceOpen          InvoiceStatus = "OPEN"
	InvoicePartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoicePaid          InvoiceStatus = "PAID"
	InvoiceCancelled     InvoiceStatus = "CANCELLED"
)

// Invoice is the receivable the allocation engine settles payments against.
// Issuing and line-item management belong to the invoicing collaborator; this
// engine reads TotalAmount/BalanceDue/DueDate and writes back PaidAmount,
// BalanceDue and Status. Invariant: BalanceDue == TotalAmount - PaidAmount.
type Invoice struct {
	InvoiceID     string          `json:"invoiceID"`
	CompanyID     string          `json:"companyID"`
	CustomerID    string          `json:"customerID"`
	InvoiceNumber string          `json:"invoiceNumber"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	BalanceDue    decimal.Decimal `json:"balanceDue"`
	Status        InvoiceStatus   `json:"status"`
	IssueDate     time.Time       `json:"issueDate"`
	DueDate       time.Time       `json:"dueDate"`
	CurrencyCode  string          `json:"currencyCode"`
	AuditFields
}

// IsOverdue reports whether the invoice's due date has passed as of now.
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.DueDate.Before(now) && i.BalanceDue.IsPositive()
}

// StatusForBalance derives the invoice status from its amounts.
func (i *Invoice) StatusForBalance() InvoiceStatus {
	switch {
	case i.Status == InvoiceCancelled:
		return InvoiceCancelled
	case !i.BalanceDue.IsPositive():
		return InvoicePaid
	case i.PaidAmount.IsPositive():
		return InvoicePartiallyPaid
	default:
		return InvoiceOpen
	}
}
