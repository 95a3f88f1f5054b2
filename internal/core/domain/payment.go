package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks a payment's lifecycle, independent of any invoice.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentCompleted         PaymentStatus = "COMPLETED"
	PaymentReversed          PaymentStatus = "REVERSED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// PaymentMethod is how the cash arrived.
type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCard         PaymentMethod = "CARD"
	MethodCash         PaymentMethod = "CASH"
	MethodCheque       PaymentMethod = "CHEQUE"
	MethodOther        PaymentMethod = "OTHER"
)

// Payment is customer cash to be distributed across open invoices.
// AllocatedAmount is the sum of active allocations and never exceeds Amount;
// the difference is tracked unallocated cash, never discarded.
type Payment struct {
	PaymentID       string          `json:"paymentID"`
	CompanyID       string          `json:"companyID"`
	CustomerID      string          `json:"customerID"`
	PaymentNumber   string          `json:"paymentNumber"`
	Amount          decimal.Decimal `json:"amount"`
	AllocatedAmount decimal.Decimal `json:"allocatedAmount"`
	CurrencyCode    string          `json:"currencyCode"`
	Status          PaymentStatus   `json:"status"`
	Method          PaymentMethod   `json:"method"`
	Reference       string          `json:"reference"`
	PaymentDate     time.Time       `json:"paymentDate"`
	AuditFields
}

// RemainingAmount is the unallocated portion of the payment.
func (p *Payment) RemainingAmount() decimal.Decimal {
	return p.Amount.Sub(p.AllocatedAmount)
}

// IsFullyAllocated reports whether no unallocated cash remains.
func (p *Payment) IsFullyAllocated() bool {
	return !p.RemainingAmount().IsPositive()
}

// AllocationStatus marks whether an allocation is live or unwound.
type AllocationStatus string

const (
	AllocationActive   AllocationStatus = "ACTIVE"
	AllocationReversed AllocationStatus = "REVERSED"
)

// AllocationMethod records how an allocation was produced.
type AllocationMethod string

const (
	AllocationManual    AllocationMethod = "MANUAL"
	AllocationAutomatic AllocationMethod = "AUTOMATIC"
)

// PaymentAllocation links one payment to one invoice. Reversal never deletes
// the row; it flips Status and stamps the reversal fields so the history
// stays auditable.
type PaymentAllocation struct {
	AllocationID    string           `json:"allocationID"`
	CompanyID       string           `json:"companyID"`
	PaymentID       string           `json:"paymentID"`
	InvoiceID       string           `json:"invoiceID"`
	AllocatedAmount decimal.Decimal  `json:"allocatedAmount"`
	DiscountAmount  decimal.Decimal  `json:"discountAmount"`
	AllocationDate  time.Time        `json:"allocationDate"`
	Method          AllocationMethod `json:"method"`
	Strategy        string           `json:"strategy,omitempty"` // empty for manual allocations
	Notes           string           `json:"notes,omitempty"`
	Status          AllocationStatus `json:"status"`
	ReversedAt      *time.Time       `json:"reversedAt,omitempty"`
	ReversedBy      string           `json:"reversedBy,omitempty"`
	ReversalReason  string           `json:"reversalReason,omitempty"`
	ReversedAmount  decimal.Decimal  `json:"reversedAmount"` // cash restored to the invoice on reversal
	AuditFields
}
