package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func openInvoice(id string, balance string, dueDate time.Time) domain.Invoice {
	bal := dec(balance)
	return domain.Invoice{
		InvoiceID:   id,
		Status:      domain.InvoiceOpen,
		TotalAmount: bal,
		BalanceDue:  bal,
		DueDate:     dueDate,
	}
}

func plannedTotal(planned []plannedAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, p := range planned {
		total = total.Add(p.amount)
	}
	return total
}

func TestPlanAllocationsFIFO(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	invoices := []domain.Invoice{
		openInvoice("inv-late", "1570", now.AddDate(0, 1, 0)),
		openInvoice("inv-early", "2160", now.AddDate(0, 0, -10)),
	}

	planned, err := planAllocations(StrategyFIFO, dec("2000"), invoices, strategyOptions{now: now})
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, "inv-early", planned[0].invoiceID)
	assert.True(t, planned[0].amount.Equal(dec("2000")))
}

func TestPlanAllocationsFIFOSpillsToNext(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	invoices := []domain.Invoice{
		openInvoice("a", "800", now.AddDate(0, 0, 1)),
		openInvoice("b", "900", now.AddDate(0, 0, 2)),
	}

	planned, err := planAllocations(StrategyFIFO, dec("1000"), invoices, strategyOptions{now: now})
	require.NoError(t, err)
	require.Len(t, planned, 2)
	assert.True(t, planned[0].amount.Equal(dec("800")))
	assert.True(t, planned[1].amount.Equal(dec("200")))
	assert.True(t, plannedTotal(planned).Equal(dec("1000")))
}

func TestPlanAllocationsProportional(t *testing.T) {
	now := time.Now().UTC()
	invoices := []domain.Invoice{
		openInvoice("small", "100", now),
		openInvoice("large", "300", now),
	}

	planned, err := planAllocations(StrategyProportional, dec("200"), invoices, strategyOptions{now: now})
	require.NoError(t, err)
	require.Len(t, planned, 2)
	assert.True(t, planned[0].amount.Equal(dec("50")), "got %s", planned[0].amount)
	assert.True(t, planned[1].amount.Equal(dec("150")), "got %s", planned[1].amount)
	assert.True(t, plannedTotal(planned).Equal(dec("200")))
}

func TestPlanAllocationsProportionalRemainderToLast(t *testing.T) {
	now := time.Now().UTC()
	invoices := []domain.Invoice{
		openInvoice("a", "100", now),
		openInvoice("b", "100", now),
		openInvoice("c", "100", now),
	}

	// 100/3 rounds per invoice; the last absorbs the rounding drift so the
	// planned total is exact.
	planned, err := planAllocations(StrategyProportional, dec("100"), invoices, strategyOptions{now: now})
	require.NoError(t, err)
	assert.True(t, plannedTotal(planned).Equal(dec("100")))
}

func TestPlanAllocationsProportionalFullSettlement(t *testing.T) {
	now := time.Now().UTC()
	invoices := []domain.Invoice{
		openInvoice("a", "100", now),
		openInvoice("b", "300", now),
	}

	planned, err := planAllocations(StrategyProportional, dec("500"), invoices, strategyOptions{now: now})
	require.NoError(t, err)
	require.Len(t, planned, 2)
	assert.True(t, planned[0].amount.Equal(dec("100")))
	assert.True(t, planned[1].amount.Equal(dec("300")))
}

func TestPlanAllocationsOverdueFirst(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	invoices := []domain.Invoice{
		openInvoice("current", "500", now.AddDate(0, 0, 10)),
		openInvoice("overdue", "500", now.AddDate(0, 0, -10)),
	}

	planned, err := planAllocations(StrategyOverdueFirst, dec("600"), invoices, strategyOptions{now: now})
	require.NoError(t, err)
	require.Len(t, planned, 2)
	assert.Equal(t, "overdue", planned[0].invoiceID)
	assert.True(t, planned[0].amount.Equal(dec("500")))
	assert.Equal(t, "current", planned[1].invoiceID)
	assert.True(t, planned[1].amount.Equal(dec("100")))
}

func TestPlanAllocationsLargestFirst(t *testing.T) {
	now := time.Now().UTC()
	invoices := []domain.Invoice{
		openInvoice("small", "100", now),
		openInvoice("large", "900", now),
		openInvoice("medium", "400", now),
	}

	planned, err := planAllocations(StrategyLargestFirst, dec("1000"), invoices, strategyOptions{now: now})
	require.NoError(t, err)
	require.Len(t, planned, 2)
	assert.Equal(t, "large", planned[0].invoiceID)
	assert.True(t, planned[0].amount.Equal(dec("900")))
	assert.Equal(t, "medium", planned[1].invoiceID)
	assert.True(t, planned[1].amount.Equal(dec("100")))
}

func TestPlanAllocationsPercentageBased(t *testing.T) {
	now := time.Now().UTC()
	invoices := []domain.Invoice{
		openInvoice("a", "500", now),
		openInvoice("b", "500", now),
		openInvoice("unweighted", "500", now),
	}
	weights := map[string]decimal.Decimal{
		"a": dec("0.6"),
		"b": dec("0.4"),
	}

	planned, err := planAllocations(StrategyPercentageBased, dec("1000"), invoices, strategyOptions{weights: weights, now: now})
	require.NoError(t, err)
	require.Len(t, planned, 2)
	assert.True(t, planned[0].amount.Equal(dec("500"))) // 600 capped at balance due
	assert.True(t, planned[1].amount.Equal(dec("400")))
}

func TestPlanAllocationsPercentageBasedInvalidWeights(t *testing.T) {
	now := time.Now().UTC()
	invoices := []domain.Invoice{openInvoice("a", "500", now)}
	weights := map[string]decimal.Decimal{
		"a": dec("0.7"),
		"b": dec("0.5"),
	}

	_, err := planAllocations(StrategyPercentageBased, dec("1000"), invoices, strategyOptions{weights: weights, now: now})
	assert.ErrorIs(t, err, apperrors.ErrInvalidWeights)

	_, err = planAllocations(StrategyPercentageBased, dec("1000"), invoices, strategyOptions{now: now})
	assert.ErrorIs(t, err, apperrors.ErrInvalidWeights)
}

func TestPlanAllocationsCustomPriority(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	invoices := []domain.Invoice{
		openInvoice("first-due", "300", now.AddDate(0, 0, -5)),
		openInvoice("preferred", "300", now.AddDate(0, 0, 30)),
	}

	planned, err := planAllocations(StrategyCustomPriority, dec("400"), invoices, strategyOptions{
		priorities: []string{"preferred", "first-due"},
		now:        now,
	})
	require.NoError(t, err)
	require.Len(t, planned, 2)
	assert.Equal(t, "preferred", planned[0].invoiceID)
	assert.True(t, planned[0].amount.Equal(dec("300")))
	assert.Equal(t, "first-due", planned[1].invoiceID)
	assert.True(t, planned[1].amount.Equal(dec("100")))
}

func TestPlanAllocationsCustomPriorityRequiresList(t *testing.T) {
	now := time.Now().UTC()
	invoices := []domain.Invoice{openInvoice("a", "100", now)}

	_, err := planAllocations(StrategyCustomPriority, dec("100"), invoices, strategyOptions{now: now})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPlanAllocationsEqualDistribution(t *testing.T) {
	now := time.Now().UTC()
	invoices := []domain.Invoice{
		openInvoice("a", "500", now),
		openInvoice("b", "500", now),
		openInvoice("c", "500", now),
	}

	planned, err := planAllocations(StrategyEqualDistribution, dec("100"), invoices, strategyOptions{now: now})
	require.NoError(t, err)
	require.Len(t, planned, 3)
	assert.True(t, planned[0].amount.Equal(dec("33.33")))
	assert.True(t, planned[1].amount.Equal(dec("33.33")))
	assert.True(t, planned[2].amount.Equal(dec("33.34")))
	assert.True(t, plannedTotal(planned).Equal(dec("100")))
}

func TestPlanAllocationsSkipsSettledAndCancelled(t *testing.T) {
	now := time.Now().UTC()
	paid := openInvoice("paid", "0", now)
	cancelled := openInvoice("cancelled", "200", now)
	cancelled.Status = domain.InvoiceCancelled
	open := openInvoice("open", "200", now)

	planned, err := planAllocations(StrategyFIFO, dec("300"), []domain.Invoice{paid, cancelled, open}, strategyOptions{now: now})
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, "open", planned[0].invoiceID)
	assert.True(t, planned[0].amount.Equal(dec("200")))
}

func TestPlanAllocationsNoFundsOrNoInvoices(t *testing.T) {
	now := time.Now().UTC()

	planned, err := planAllocations(StrategyFIFO, decimal.Zero, []domain.Invoice{openInvoice("a", "100", now)}, strategyOptions{now: now})
	require.NoError(t, err)
	assert.Empty(t, planned)

	planned, err = planAllocations(StrategyFIFO, dec("100"), nil, strategyOptions{now: now})
	require.NoError(t, err)
	assert.Empty(t, planned)
}

func TestPlanAllocationsUnknownStrategy(t *testing.T) {
	now := time.Now().UTC()
	_, err := planAllocations("round_robin", dec("100"), []domain.Invoice{openInvoice("a", "100", now)}, strategyOptions{now: now})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
