package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
	portssvc "github.com/openbooks/backoffice_app/internal/core/ports/services"
	"github.com/openbooks/backoffice_app/internal/dto"
	"github.com/openbooks/backoffice_app/internal/middleware"
)

// paymentService registers payments and runs the allocation engine: applying
// cash to invoices manually or by strategy, and unwinding those applications.
type paymentService struct {
	paymentRepo portsrepo.PaymentRepositoryFacade
	invoiceRepo portsrepo.InvoiceRepositoryFacade
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(paymentRepo portsrepo.PaymentRepositoryFacade, invoiceRepo portsrepo.InvoiceRepositoryFacade) portssvc.PaymentSvcFacade {
	return &paymentService{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
	}
}

// Ensure paymentService implements the portssvc.PaymentSvcFacade interface
var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

// CreatePayment registers received cash with nothing allocated yet.
func (s *paymentService) CreatePayment(ctx context.Context, companyID string, req dto.CreatePaymentRequest, creatorUserID string) (*domain.Payment, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	payment := domain.Payment{
		PaymentID:       uuid.NewString(),
		CompanyID:       companyID,
		CustomerID:      req.CustomerID,
		PaymentNumber:   req.PaymentNumber,
		Amount:          req.Amount,
		AllocatedAmount: decimal.Zero,
		CurrencyCode:    req.CurrencyCode,
		Status:          domain.PaymentPending,
		Method:          req.Method,
		Reference:       req.Reference,
		PaymentDate:     req.PaymentDate,
		AuditFields:     domain.NewAuditFields(creatorUserID, now),
	}

	if err := s.paymentRepo.SavePayment(ctx, payment); err != nil {
		logger.Error("Failed to save payment", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	logger.Info("Payment created", slog.String("payment_id", payment.PaymentID), slog.String("company_id", companyID))
	return &payment, nil
}

// GetPaymentByID retrieves a specific payment scoped to the company.
func (s *paymentService) GetPaymentByID(ctx context.Context, companyID string, paymentID string) (*domain.Payment, error) {
	payment, err := s.paymentRepo.FindPaymentByID(ctx, companyID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find payment %s: %w", paymentID, err)
	}
	return payment, nil
}

// ListPayments retrieves a paginated list of payments for the company.
func (s *paymentService) ListPayments(ctx context.Context, companyID string, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	payments, err := s.paymentRepo.ListPaymentsByCompany(ctx, companyID, limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list payments from repository", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to retrieve payments: %w", err)
	}

	return &dto.ListPaymentsResponse{
		Payments: dto.ToListPaymentResponse(payments),
	}, nil
}

// ListAllocationsByPayment retrieves a payment's allocations, newest first.
func (s *paymentService) ListAllocationsByPayment(ctx context.Context, companyID string, paymentID string) ([]domain.PaymentAllocation, error) {
	if _, err := s.paymentRepo.FindPaymentByID(ctx, companyID, paymentID); err != nil {
		return nil, err
	}
	return s.paymentRepo.FindAllocationsByPaymentID(ctx, companyID, paymentID)
}

// settleInvoice applies cash plus discount to a working copy of the invoice.
func settleInvoice(inv *domain.Invoice, cash, discount decimal.Decimal, userID string, now time.Time) {
	inv.PaidAmount = inv.PaidAmount.Add(cash)
	inv.BalanceDue = inv.BalanceDue.Sub(cash).Sub(discount)
	inv.Status = inv.StatusForBalance()
	inv.Touch(userID, now)
}

// AllocatePayment applies explicit per-invoice amounts from a payment.
// A fully allocated payment is a no-op that creates zero allocations.
func (s *paymentService) AllocatePayment(ctx context.Context, companyID string, paymentID string, req dto.AllocatePaymentRequest, requestingUserID string) (*dto.AllocationResultResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payment, err := s.paymentRepo.FindPaymentByID(ctx, companyID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentReversed || payment.Status == domain.PaymentRefunded {
		return nil, fmt.Errorf("%w: payment %s is %s", apperrors.ErrConflict, paymentID, payment.Status)
	}
	if payment.IsFullyAllocated() {
		logger.Info("Payment already fully allocated, nothing to do", slog.String("payment_id", paymentID))
		return &dto.AllocationResultResponse{Payment: dto.ToPaymentResponse(payment)}, nil
	}

	invoiceIDs := make([]string, len(req.Allocations))
	for i, alloc := range req.Allocations {
		invoiceIDs[i] = alloc.InvoiceID
	}
	invoices, err := s.invoiceRepo.FindInvoicesByIDs(ctx, companyID, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	now := time.Now().UTC()
	remaining := payment.RemainingAmount()
	allocations := make([]domain.PaymentAllocation, 0, len(req.Allocations))
	updatedInvoices := make([]domain.Invoice, 0, len(req.Allocations))

	for _, allocReq := range req.Allocations {
		inv, found := invoices[allocReq.InvoiceID]
		if !found {
			return nil, fmt.Errorf("%w: invoice %s", apperrors.ErrNotFound, allocReq.InvoiceID)
		}
		if inv.Status == domain.InvoiceCancelled {
			return nil, fmt.Errorf("%w: invoice %s is cancelled", apperrors.ErrValidation, allocReq.InvoiceID)
		}
		if !allocReq.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: allocation amount must be positive", apperrors.ErrValidation)
		}
		if allocReq.DiscountAmount.IsNegative() {
			return nil, fmt.Errorf("%w: discount amount cannot be negative", apperrors.ErrValidation)
		}
		if allocReq.Amount.Add(allocReq.DiscountAmount).GreaterThan(inv.BalanceDue) {
			return nil, fmt.Errorf("%w: requested %s against invoice %s with balance due %s",
				apperrors.ErrOverAllocation, allocReq.Amount.String(), inv.InvoiceID, inv.BalanceDue.String())
		}
		if allocReq.Amount.GreaterThan(remaining) {
			return nil, fmt.Errorf("%w: requested %s exceeds unallocated remainder %s",
				apperrors.ErrOverAllocation, allocReq.Amount.String(), remaining.String())
		}
		remaining = remaining.Sub(allocReq.Amount)

		settleInvoice(&inv, allocReq.Amount, allocReq.DiscountAmount, requestingUserID, now)
		invoices[allocReq.InvoiceID] = inv
		updatedInvoices = append(updatedInvoices, inv)

		allocations = append(allocations, domain.PaymentAllocation{
			AllocationID:    uuid.NewString(),
			CompanyID:       companyID,
			PaymentID:       paymentID,
			InvoiceID:       inv.InvoiceID,
			AllocatedAmount: allocReq.Amount,
			DiscountAmount:  allocReq.DiscountAmount,
			AllocationDate:  now,
			Method:          domain.AllocationManual,
			Notes:           req.Notes,
			Status:          domain.AllocationActive,
			ReversedAmount:  decimal.Zero,
			AuditFields:     domain.NewAuditFields(requestingUserID, now),
		})
	}

	s.applyAllocationTotals(payment, allocations, requestingUserID, now)

	if err := s.paymentRepo.SaveAllocations(ctx, *payment, allocations, dedupeInvoices(updatedInvoices)); err != nil {
		logger.Error("Failed to save allocations", slog.String("error", err.Error()), slog.String("payment_id", paymentID))
		return nil, err
	}

	logger.Info("Payment allocated manually", slog.String("payment_id", paymentID), slog.Int("allocation_count", len(allocations)))
	return &dto.AllocationResultResponse{
		Payment:     dto.ToPaymentResponse(payment),
		Allocations: dto.ToAllocationResponses(allocations),
	}, nil
}

// AutoAllocatePayment distributes a payment's unallocated funds across open
// invoices using a named strategy.
func (s *paymentService) AutoAllocatePayment(ctx context.Context, companyID string, paymentID string, req dto.AutoAllocatePaymentRequest, requestingUserID string) (*dto.AllocationResultResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payment, err := s.paymentRepo.FindPaymentByID(ctx, companyID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentReversed || payment.Status == domain.PaymentRefunded {
		return nil, fmt.Errorf("%w: payment %s is %s", apperrors.ErrConflict, paymentID, payment.Status)
	}
	if payment.IsFullyAllocated() {
		logger.Info("Payment already fully allocated, nothing to do", slog.String("payment_id", paymentID))
		return &dto.AllocationResultResponse{Payment: dto.ToPaymentResponse(payment)}, nil
	}

	var candidates []domain.Invoice
	if len(req.InvoiceIDs) > 0 {
		invoiceMap, err := s.invoiceRepo.FindInvoicesByIDs(ctx, companyID, req.InvoiceIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch invoices: %w", err)
		}
		for _, id := range req.InvoiceIDs {
			inv, found := invoiceMap[id]
			if !found {
				return nil, fmt.Errorf("%w: invoice %s", apperrors.ErrNotFound, id)
			}
			candidates = append(candidates, inv)
		}
	} else {
		candidates, err = s.invoiceRepo.ListOpenInvoicesByCustomer(ctx, companyID, payment.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("failed to list open invoices: %w", err)
		}
	}

	now := time.Now().UTC()
	planned, err := planAllocations(req.Strategy, payment.RemainingAmount(), candidates, strategyOptions{
		weights:    req.Weights,
		priorities: req.Priorities,
		now:        now,
	})
	if err != nil {
		return nil, err
	}
	if len(planned) == 0 {
		logger.Info("Strategy produced no allocations", slog.String("payment_id", paymentID), slog.String("strategy", req.Strategy))
		return &dto.AllocationResultResponse{Payment: dto.ToPaymentResponse(payment)}, nil
	}

	invoicesByID := make(map[string]domain.Invoice, len(candidates))
	for _, inv := range candidates {
		invoicesByID[inv.InvoiceID] = inv
	}

	allocations := make([]domain.PaymentAllocation, 0, len(planned))
	updatedInvoices := make([]domain.Invoice, 0, len(planned))
	for _, plan := range planned {
		inv := invoicesByID[plan.invoiceID]
		settleInvoice(&inv, plan.amount, decimal.Zero, requestingUserID, now)
		invoicesByID[plan.invoiceID] = inv
		updatedInvoices = append(updatedInvoices, inv)

		allocations = append(allocations, domain.PaymentAllocation{
			AllocationID:    uuid.NewString(),
			CompanyID:       companyID,
			PaymentID:       paymentID,
			InvoiceID:       plan.invoiceID,
			AllocatedAmount: plan.amount,
			DiscountAmount:  decimal.Zero,
			AllocationDate:  now,
			Method:          domain.AllocationAutomatic,
			Strategy:        req.Strategy,
			Notes:           req.Notes,
			Status:          domain.AllocationActive,
			ReversedAmount:  decimal.Zero,
			AuditFields:     domain.NewAuditFields(requestingUserID, now),
		})
	}

	s.applyAllocationTotals(payment, allocations, requestingUserID, now)

	if err := s.paymentRepo.SaveAllocations(ctx, *payment, allocations, updatedInvoices); err != nil {
		logger.Error("Failed to save allocations", slog.String("error", err.Error()), slog.String("payment_id", paymentID))
		return nil, err
	}

	logger.Info("Payment auto-allocated", slog.String("payment_id", paymentID), slog.String("strategy", req.Strategy), slog.Int("allocation_count", len(allocations)))
	return &dto.AllocationResultResponse{
		Payment:     dto.ToPaymentResponse(payment),
		Allocations: dto.ToAllocationResponses(allocations),
	}, nil
}

// applyAllocationTotals rolls the new allocations into the payment's totals.
func (s *paymentService) applyAllocationTotals(payment *domain.Payment, allocations []domain.PaymentAllocation, userID string, now time.Time) {
	for _, alloc := range allocations {
		payment.AllocatedAmount = payment.AllocatedAmount.Add(alloc.AllocatedAmount)
	}
	if payment.IsFullyAllocated() {
		payment.Status = domain.PaymentCompleted
	}
	payment.Touch(userID, now)
}

// ReverseAllocation unwinds a single active allocation: the allocation row is
// kept and marked reversed, the invoice balance is restored and the payment's
// funds are freed.
func (s *paymentService) ReverseAllocation(ctx context.Context, companyID string, paymentID string, allocationID string, req dto.ReverseAllocationRequest, requestingUserID string) (*dto.AllocationResultResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payment, err := s.paymentRepo.FindPaymentByID(ctx, companyID, paymentID)
	if err != nil {
		return nil, err
	}
	allocation, err := s.paymentRepo.FindAllocationByID(ctx, companyID, allocationID)
	if err != nil {
		return nil, err
	}
	if allocation.PaymentID != paymentID {
		return nil, fmt.Errorf("%w: allocation %s", apperrors.ErrNotFound, allocationID)
	}
	if allocation.Status != domain.AllocationActive {
		return nil, fmt.Errorf("%w: allocation %s is already reversed", apperrors.ErrConflict, allocationID)
	}

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, companyID, allocation.InvoiceID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reversed := s.reverseOne(payment, allocation, invoice, req.Reason, requestingUserID, now)

	if payment.Status == domain.PaymentCompleted && !payment.IsFullyAllocated() {
		payment.Status = domain.PaymentPending
	}
	payment.Touch(requestingUserID, now)

	if err := s.paymentRepo.ReverseAllocations(ctx, *payment, []domain.PaymentAllocation{*allocation}, []domain.Invoice{*invoice}); err != nil {
		logger.Error("Failed to reverse allocation", slog.String("error", err.Error()), slog.String("allocation_id", allocationID))
		return nil, err
	}

	logger.Info("Allocation reversed", slog.String("allocation_id", allocationID), slog.String("payment_id", paymentID), slog.String("restored_amount", reversed.String()))
	return &dto.AllocationResultResponse{
		Payment:     dto.ToPaymentResponse(payment),
		Allocations: dto.ToAllocationResponses([]domain.PaymentAllocation{*allocation}),
	}, nil
}

// ReversePayment unwinds a payment's active allocations newest first. With no
// amount limit every allocation is reversed and the payment is marked
// reversed; with a limit whole allocations are unwound until the next one no
// longer fits, and the payment ends refunded or partially refunded depending
// on how much of it the reversal covered. Allocations are never split: an
// invoice's paid amount always equals the sum of its active allocations.
func (s *paymentService) ReversePayment(ctx context.Context, companyID string, paymentID string, req dto.ReversePaymentRequest, requestingUserID string) (*dto.AllocationResultResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payment, err := s.paymentRepo.FindPaymentByID(ctx, companyID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentReversed || payment.Status == domain.PaymentRefunded {
		return nil, fmt.Errorf("%w: payment %s is already %s", apperrors.ErrConflict, paymentID, payment.Status)
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: reversal amount must be positive", apperrors.ErrValidation)
	}

	// Newest first, per FindAllocationsByPaymentID ordering
	allocations, err := s.paymentRepo.FindAllocationsByPaymentID(ctx, companyID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}

	now := time.Now().UTC()
	toReverse := make([]domain.PaymentAllocation, 0, len(allocations))
	invoiceUpdates := make(map[string]*domain.Invoice)
	reversedTotal := decimal.Zero

	budget := payment.AllocatedAmount
	if req.Amount != nil {
		budget = decimal.Min(*req.Amount, budget)
	}

	for i := range allocations {
		alloc := allocations[i]
		if alloc.Status != domain.AllocationActive {
			continue
		}
		if alloc.AllocatedAmount.GreaterThan(budget) {
			break
		}

		invoice, ok := invoiceUpdates[alloc.InvoiceID]
		if !ok {
			invoice, err = s.invoiceRepo.FindInvoiceByID(ctx, companyID, alloc.InvoiceID)
			if err != nil {
				return nil, err
			}
			invoiceUpdates[alloc.InvoiceID] = invoice
		}

		restored := s.reverseOne(payment, &alloc, invoice, req.Reason, requestingUserID, now)
		toReverse = append(toReverse, alloc)
		reversedTotal = reversedTotal.Add(restored)
		budget = budget.Sub(restored)
	}

	if req.Amount != nil && len(toReverse) == 0 {
		return nil, fmt.Errorf("%w: reversal amount %s does not cover the newest active allocation",
			apperrors.ErrValidation, req.Amount.String())
	}

	switch {
	case req.Amount == nil:
		payment.Status = domain.PaymentReversed
	case reversedTotal.GreaterThanOrEqual(payment.Amount):
		payment.Status = domain.PaymentRefunded
	default:
		payment.Status = domain.PaymentPartiallyRefunded
	}
	payment.Touch(requestingUserID, now)

	invoices := make([]domain.Invoice, 0, len(invoiceUpdates))
	for _, inv := range invoiceUpdates {
		invoices = append(invoices, *inv)
	}

	if err := s.paymentRepo.ReverseAllocations(ctx, *payment, toReverse, invoices); err != nil {
		logger.Error("Failed to reverse payment", slog.String("error", err.Error()), slog.String("payment_id", paymentID))
		return nil, err
	}

	logger.Info("Payment reversed", slog.String("payment_id", paymentID), slog.String("reversed_amount", reversedTotal.String()), slog.Int("allocation_count", len(toReverse)))
	return &dto.AllocationResultResponse{
		Payment:     dto.ToPaymentResponse(payment),
		Allocations: dto.ToAllocationResponses(toReverse),
	}, nil
}

// reverseOne applies the reversal of a whole allocation to the in-memory
// payment, allocation and invoice, returning the cash restored. The discount
// is restored together with the cash.
func (s *paymentService) reverseOne(payment *domain.Payment, allocation *domain.PaymentAllocation, invoice *domain.Invoice, reason, userID string, now time.Time) decimal.Decimal {
	restored := allocation.AllocatedAmount

	invoice.PaidAmount = invoice.PaidAmount.Sub(restored)
	invoice.BalanceDue = invoice.BalanceDue.Add(restored).Add(allocation.DiscountAmount)
	invoice.Status = invoice.StatusForBalance()
	invoice.Touch(userID, now)

	allocation.Status = domain.AllocationReversed
	allocation.ReversedAt = &now
	allocation.ReversedBy = userID
	allocation.ReversalReason = reason
	allocation.ReversedAmount = restored
	allocation.Touch(userID, now)

	payment.AllocatedAmount = payment.AllocatedAmount.Sub(restored)
	return restored
}

// dedupeInvoices keeps the last occurrence per invoice ID, preserving order of
// first appearance.
func dedupeInvoices(invoices []domain.Invoice) []domain.Invoice {
	index := make(map[string]int, len(invoices))
	result := make([]domain.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if i, ok := index[inv.InvoiceID]; ok {
			result[i] = inv
			continue
		}
		index[inv.InvoiceID] = len(result)
		result = append(result, inv)
	}
	return result
}
