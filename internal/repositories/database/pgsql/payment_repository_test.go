package pgsql

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
)

func inv(id, paid, balance string) domain.Invoice {
	return domain.Invoice{
		InvoiceID:  id,
		PaidAmount: decimal.RequireFromString(paid),
		BalanceDue: decimal.RequireFromString(balance),
	}
}

func activeAllocation(invoiceID, amount, discount string) domain.PaymentAllocation {
	return domain.PaymentAllocation{
		InvoiceID:       invoiceID,
		AllocatedAmount: decimal.RequireFromString(amount),
		DiscountAmount:  decimal.RequireFromString(discount),
		Status:          domain.AllocationActive,
	}
}

func TestCheckInvoicePreImages_AllocationMatches(t *testing.T) {
	allocations := []domain.PaymentAllocation{activeAllocation("inv-1", "80", "0")}
	// Service read paid=0 balance=100 and computed paid=80 balance=20.
	updated := []domain.Invoice{inv("inv-1", "80", "20")}
	locked := map[string]domain.Invoice{"inv-1": inv("inv-1", "0", "100")}

	err := checkInvoicePreImages(updated, locked, allocationDeltas(allocations), false)

	require.NoError(t, err)
}

func TestCheckInvoicePreImages_ConcurrentAllocationConflicts(t *testing.T) {
	// Two payments each allocate 80 against the same invoice of 100. The
	// later transaction computed paid=80 balance=20 from a read taken before
	// the earlier one committed; the locked row already shows paid=80.
	// Writing the stale values would discard the earlier settlement.
	allocations := []domain.PaymentAllocation{activeAllocation("inv-1", "80", "0")}
	updated := []domain.Invoice{inv("inv-1", "80", "20")}
	locked := map[string]domain.Invoice{"inv-1": inv("inv-1", "80", "20")}

	err := checkInvoicePreImages(updated, locked, allocationDeltas(allocations), false)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCheckInvoicePreImages_DiscountCountedInPreImage(t *testing.T) {
	allocations := []domain.PaymentAllocation{activeAllocation("inv-1", "95", "5")}
	updated := []domain.Invoice{inv("inv-1", "95", "0")}
	locked := map[string]domain.Invoice{"inv-1": inv("inv-1", "0", "100")}

	err := checkInvoicePreImages(updated, locked, allocationDeltas(allocations), false)

	require.NoError(t, err)
}

func TestCheckInvoicePreImages_ReversalMatches(t *testing.T) {
	reversed := activeAllocation("inv-1", "300", "0")
	reversed.Status = domain.AllocationReversed
	reversed.ReversedAmount = decimal.RequireFromString("300")
	// Reversal computed paid=0 balance=300 from a row at paid=300 balance=0.
	updated := []domain.Invoice{inv("inv-1", "0", "300")}
	locked := map[string]domain.Invoice{"inv-1": inv("inv-1", "300", "0")}

	err := checkInvoicePreImages(updated, locked, reversalDeltas([]domain.PaymentAllocation{reversed}), true)

	require.NoError(t, err)
}

func TestCheckInvoicePreImages_ReversalAgainstDriftedRowConflicts(t *testing.T) {
	reversed := activeAllocation("inv-1", "300", "0")
	reversed.Status = domain.AllocationReversed
	reversed.ReversedAmount = decimal.RequireFromString("300")
	updated := []domain.Invoice{inv("inv-1", "0", "300")}
	// A concurrent reversal already restored 100 to the invoice in between.
	locked := map[string]domain.Invoice{"inv-1": inv("inv-1", "200", "100")}

	err := checkInvoicePreImages(updated, locked, reversalDeltas([]domain.PaymentAllocation{reversed}), true)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCheckInvoicePreImages_MissingLockedRow(t *testing.T) {
	updated := []domain.Invoice{inv("inv-1", "80", "20")}

	err := checkInvoicePreImages(updated, map[string]domain.Invoice{}, map[string]settlementDelta{}, false)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAllocationDeltas_SumsPerInvoice(t *testing.T) {
	allocations := []domain.PaymentAllocation{
		activeAllocation("inv-1", "50", "5"),
		activeAllocation("inv-1", "30", "0"),
		activeAllocation("inv-2", "20", "0"),
	}

	deltas := allocationDeltas(allocations)

	require.Len(t, deltas, 2)
	assert.True(t, deltas["inv-1"].cash.Equal(decimal.RequireFromString("80")))
	assert.True(t, deltas["inv-1"].discount.Equal(decimal.RequireFromString("5")))
	assert.True(t, deltas["inv-2"].cash.Equal(decimal.RequireFromString("20")))
}
