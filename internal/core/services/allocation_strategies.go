package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// Allocation strategy names accepted by auto-allocation.
const (
	StrategyFIFO              = "fifo"
	StrategyProportional      = "proportional"
	StrategyOverdueFirst      = "overdue_first"
	StrategyLargestFirst      = "largest_first"
	StrategyPercentageBased   = "percentage_based"
	StrategyCustomPriority    = "custom_priority"
	StrategyEqualDistribution = "equal_distribution"
)

// moneyPrecision is the number of decimal places kept by monetary rounding.
const moneyPrecision = 2

// strategyOptions carries the caller-supplied inputs some strategies need.
type strategyOptions struct {
	weights    map[string]decimal.Decimal // percentage_based
	priorities []string                   // custom_priority
	now        time.Time                  // overdue cutoff
}

// plannedAllocation is one computed payment-to-invoice amount before any
// persistence happens.
type plannedAllocation struct {
	invoiceID string
	amount    decimal.Decimal
}

// planAllocations distributes available funds across the candidate invoices
// per the named strategy. Invoices without a positive balance due are skipped,
// no invoice ever receives more than its balance due, and the planned total
// never exceeds available. Leftover funds simply stay unplanned.
func planAllocations(strategy string, available decimal.Decimal, invoices []domain.Invoice, opts strategyOptions) ([]plannedAllocation, error) {
	open := make([]domain.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Status != domain.InvoiceCancelled && inv.BalanceDue.IsPositive() {
			open = append(open, inv)
		}
	}
	if len(open) == 0 || !available.IsPositive() {
		return nil, nil
	}

	switch strategy {
	case StrategyFIFO:
		sortByDueDate(open)
		return allocateInOrder(available, open), nil

	case StrategyLargestFirst:
		sort.SliceStable(open, func(i, j int) bool {
			return open[i].BalanceDue.GreaterThan(open[j].BalanceDue)
		})
		return allocateInOrder(available, open), nil

	case StrategyOverdueFirst:
		overdue := make([]domain.Invoice, 0, len(open))
		current := make([]domain.Invoice, 0, len(open))
		for _, inv := range open {
			if inv.IsOverdue(opts.now) {
				overdue = append(overdue, inv)
			} else {
				current = append(current, inv)
			}
		}
		sortByDueDate(overdue)
		sortByDueDate(current)
		return allocateInOrder(available, append(overdue, current...)), nil

	case StrategyProportional:
		return allocateProportional(available, open), nil

	case StrategyPercentageBased:
		return allocatePercentage(available, open, opts.weights)

	case StrategyCustomPriority:
		if len(opts.priorities) == 0 {
			return nil, fmt.Errorf("%w: custom_priority requires a priority list", apperrors.ErrValidation)
		}
		byID := make(map[string]domain.Invoice, len(open))
		for _, inv := range open {
			byID[inv.InvoiceID] = inv
		}
		ordered := make([]domain.Invoice, 0, len(opts.priorities))
		for _, id := range opts.priorities {
			if inv, ok := byID[id]; ok {
				ordered = append(ordered, inv)
			}
		}
		return allocateInOrder(available, ordered), nil

	case StrategyEqualDistribution:
		return allocateEqual(available, open), nil

	default:
		return nil, fmt.Errorf("%w: unknown allocation strategy %q", apperrors.ErrValidation, strategy)
	}
}

// sortByDueDate orders invoices by ascending due date, oldest created first on ties.
func sortByDueDate(invoices []domain.Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		if !invoices[i].DueDate.Equal(invoices[j].DueDate) {
			return invoices[i].DueDate.Before(invoices[j].DueDate)
		}
		return invoices[i].CreatedAt.Before(invoices[j].CreatedAt)
	})
}

// allocateInOrder gives each invoice min(remaining, balance due) until the
// funds run out.
func allocateInOrder(available decimal.Decimal, invoices []domain.Invoice) []plannedAllocation {
	planned := make([]plannedAllocation, 0, len(invoices))
	remaining := available
	for _, inv := range invoices {
		if !remaining.IsPositive() {
			break
		}
		amount := decimal.Min(remaining, inv.BalanceDue)
		planned = append(planned, plannedAllocation{invoiceID: inv.InvoiceID, amount: amount})
		remaining = remaining.Sub(amount)
	}
	return planned
}

// allocateProportional sizes each allocation by the invoice's share of the
// total open balance. Rounding happens per invoice; the rounding remainder is
// assigned to the last invoice so the planned total matches exactly.
func allocateProportional(available decimal.Decimal, invoices []domain.Invoice) []plannedAllocation {
	totalOpen := decimal.Zero
	for _, inv := range invoices {
		totalOpen = totalOpen.Add(inv.BalanceDue)
	}
	if available.GreaterThanOrEqual(totalOpen) {
		// Everything can be settled in full
		return allocateInOrder(available, invoices)
	}

	planned := make([]plannedAllocation, 0, len(invoices))
	allocated := decimal.Zero
	for i, inv := range invoices {
		var amount decimal.Decimal
		if i == len(invoices)-1 {
			amount = decimal.Min(available.Sub(allocated), inv.BalanceDue)
		} else {
			share := available.Mul(inv.BalanceDue).Div(totalOpen).Round(moneyPrecision)
			amount = decimal.Min(share, inv.BalanceDue)
		}
		if !amount.IsPositive() {
			continue
		}
		planned = append(planned, plannedAllocation{invoiceID: inv.InvoiceID, amount: amount})
		allocated = allocated.Add(amount)
	}
	return planned
}

// allocatePercentage sizes allocations from caller-supplied weights. Invoices
// without a weight receive nothing. Weights must not sum above 1.0.
func allocatePercentage(available decimal.Decimal, invoices []domain.Invoice, weights map[string]decimal.Decimal) ([]plannedAllocation, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: percentage_based requires a weight map", apperrors.ErrInvalidWeights)
	}
	weightSum := decimal.Zero
	for _, w := range weights {
		if w.IsNegative() {
			return nil, fmt.Errorf("%w: negative weight", apperrors.ErrInvalidWeights)
		}
		weightSum = weightSum.Add(w)
	}
	if weightSum.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: weights sum to %s", apperrors.ErrInvalidWeights, weightSum.String())
	}

	planned := make([]plannedAllocation, 0, len(invoices))
	remaining := available
	for _, inv := range invoices {
		weight, ok := weights[inv.InvoiceID]
		if !ok || !remaining.IsPositive() {
			continue
		}
		amount := available.Mul(weight).Round(moneyPrecision)
		amount = decimal.Min(amount, inv.BalanceDue, remaining)
		if !amount.IsPositive() {
			continue
		}
		planned = append(planned, plannedAllocation{invoiceID: inv.InvoiceID, amount: amount})
		remaining = remaining.Sub(amount)
	}
	return planned, nil
}

// allocateEqual splits the funds evenly across the open invoices, remainder to
// the last one, each share capped at the invoice's balance due.
func allocateEqual(available decimal.Decimal, invoices []domain.Invoice) []plannedAllocation {
	share := available.Div(decimal.NewFromInt(int64(len(invoices)))).RoundDown(moneyPrecision)
	planned := make([]plannedAllocation, 0, len(invoices))
	allocated := decimal.Zero
	for i, inv := range invoices {
		amount := decimal.Min(share, inv.BalanceDue)
		if i == len(invoices)-1 {
			amount = decimal.Min(available.Sub(allocated), inv.BalanceDue)
		}
		if !amount.IsPositive() {
			continue
		}
		planned = append(planned, plannedAllocation{invoiceID: inv.InvoiceID, amount: amount})
		allocated = allocated.Add(amount)
	}
	return planned
}
