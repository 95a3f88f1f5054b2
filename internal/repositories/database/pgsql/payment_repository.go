package pgsql

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
)

type PgxPaymentRepository struct {
	BaseRepository
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	auditRepo   portsrepo.AuditRepositoryFacade
}

// newPgxPaymentRepository creates a new repository for payment and allocation
// data. Invoice settlement rows are rewritten through the injected invoice
// repository inside the allocation transactions.
func newPgxPaymentRepository(pool *pgxpool.Pool, invoiceRepo portsrepo.InvoiceRepositoryFacade, auditRepo portsrepo.AuditRepositoryFacade) portsrepo.PaymentRepositoryWithTx {
	return &PgxPaymentRepository{
		BaseRepository: BaseRepository{Pool: pool},
		invoiceRepo:    invoiceRepo,
		auditRepo:      auditRepo,
	}
}

// Ensure PgxPaymentRepository implements portsrepo.PaymentRepositoryWithTx
var _ portsrepo.PaymentRepositoryWithTx = (*PgxPaymentRepository)(nil)

const paymentColumns = `
	payment_id, company_id, customer_id, payment_number, amount, allocated_amount,
	currency_code, status, method, reference, payment_date,
	created_at, created_by, last_updated_at, last_updated_by
`

const allocationColumns = `
	allocation_id, company_id, payment_id, invoice_id, allocated_amount, discount_amount,
	allocation_date, method, strategy, notes, status,
	reversed_at, reversed_by, reversal_reason, reversed_amount,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.PaymentID,
		&p.CompanyID,
		&p.CustomerID,
		&p.PaymentNumber,
		&p.Amount,
		&p.AllocatedAmount,
		&p.CurrencyCode,
		&p.Status,
		&p.Method,
		&p.Reference,
		&p.PaymentDate,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	return p, err
}

func scanAllocation(row pgx.Row) (domain.PaymentAllocation, error) {
	var a domain.PaymentAllocation
	err := row.Scan(
		&a.AllocationID,
		&a.CompanyID,
		&a.PaymentID,
		&a.InvoiceID,
		&a.AllocatedAmount,
		&a.DiscountAmount,
		&a.AllocationDate,
		&a.Method,
		&a.Strategy,
		&a.Notes,
		&a.Status,
		&a.ReversedAt,
		&a.ReversedBy,
		&a.ReversalReason,
		&a.ReversedAmount,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.LastUpdatedAt,
		&a.LastUpdatedBy,
	)
	return a, err
}

// SavePayment persists a new payment.
func (r *PgxPaymentRepository) SavePayment(ctx context.Context, payment domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.Pool.Exec(ctx, query,
		payment.PaymentID,
		payment.CompanyID,
		payment.CustomerID,
		payment.PaymentNumber,
		payment.Amount,
		payment.AllocatedAmount,
		payment.CurrencyCode,
		payment.Status,
		payment.Method,
		payment.Reference,
		payment.PaymentDate,
		payment.CreatedAt,
		payment.CreatedBy,
		payment.LastUpdatedAt,
		payment.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert payment "+payment.PaymentID, err)
	}
	return nil
}

// FindPaymentByID retrieves a specific payment scoped to a company.
func (r *PgxPaymentRepository) FindPaymentByID(ctx context.Context, companyID string, paymentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE company_id = $1 AND payment_id = $2;`
	payment, err := scanPayment(r.Pool.QueryRow(ctx, query, companyID, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find payment by ID "+paymentID, err)
	}
	return &payment, nil
}

// ListPaymentsByCompany retrieves a paginated list of payments, newest first.
func (r *PgxPaymentRepository) ListPaymentsByCompany(ctx context.Context, companyID string, limit int, offset int) ([]domain.Payment, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE company_id = $1
		ORDER BY payment_date DESC, created_at DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query payments for company "+companyID, err)
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan payment row", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating payment rows", err)
	}

	return payments, nil
}

// UpdatePayment updates an existing payment's details.
func (r *PgxPaymentRepository) UpdatePayment(ctx context.Context, payment domain.Payment) error {
	query := `
		UPDATE payments
		SET payment_number = $3,
		    reference = $4,
		    status = $5,
		    last_updated_at = $6,
		    last_updated_by = $7
		WHERE company_id = $1 AND payment_id = $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		payment.CompanyID,
		payment.PaymentID,
		payment.PaymentNumber,
		payment.Reference,
		payment.Status,
		payment.LastUpdatedAt,
		payment.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update payment "+payment.PaymentID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("payment " + payment.PaymentID + " not found for update")
	}
	return nil
}

// FindAllocationByID retrieves a specific allocation scoped to a company.
func (r *PgxPaymentRepository) FindAllocationByID(ctx context.Context, companyID string, allocationID string) (*domain.PaymentAllocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM payment_allocations WHERE company_id = $1 AND allocation_id = $2;`
	allocation, err := scanAllocation(r.Pool.QueryRow(ctx, query, companyID, allocationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find allocation by ID "+allocationID, err)
	}
	return &allocation, nil
}

// FindAllocationsByPaymentID retrieves all allocations of a payment, newest
// first. Payment reversal relies on this ordering to unwind recent
// allocations before older ones.
func (r *PgxPaymentRepository) FindAllocationsByPaymentID(ctx context.Context, companyID string, paymentID string) ([]domain.PaymentAllocation, error) {
	query := `
		SELECT ` + allocationColumns + `
		FROM payment_allocations
		WHERE company_id = $1 AND payment_id = $2
		ORDER BY allocation_date DESC, created_at DESC, allocation_id DESC;
	`
	return r.queryAllocations(ctx, query, companyID, paymentID)
}

// FindAllocationsByInvoiceID retrieves all allocations applied to an invoice.
func (r *PgxPaymentRepository) FindAllocationsByInvoiceID(ctx context.Context, companyID string, invoiceID string) ([]domain.PaymentAllocation, error) {
	query := `
		SELECT ` + allocationColumns + `
		FROM payment_allocations
		WHERE company_id = $1 AND invoice_id = $2
		ORDER BY allocation_date DESC, created_at DESC, allocation_id DESC;
	`
	return r.queryAllocations(ctx, query, companyID, invoiceID)
}

func (r *PgxPaymentRepository) queryAllocations(ctx context.Context, query string, args ...interface{}) ([]domain.PaymentAllocation, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query payment allocations", err)
	}
	defer rows.Close()

	allocations := []domain.PaymentAllocation{}
	for rows.Next() {
		allocation, err := scanAllocation(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan allocation row", err)
		}
		allocations = append(allocations, allocation)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating allocation rows", err)
	}

	return allocations, nil
}

// SaveAllocations persists new allocations and rewrites the payment and
// affected invoices to their post-allocation state, all within one
// transaction. The payment update is guarded on the allocated amount the
// service computed from, and the invoice rows are locked and checked against
// the same pre-image before being rewritten; either drifting surfaces as
// apperrors.ErrConflict.
func (r *PgxPaymentRepository) SaveAllocations(ctx context.Context, payment domain.Payment, allocations []domain.PaymentAllocation, invoices []domain.Invoice) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	newlyAllocated := decimal.Zero
	for _, alloc := range allocations {
		newlyAllocated = newlyAllocated.Add(alloc.AllocatedAmount)
	}
	expectedAllocated := payment.AllocatedAmount.Sub(newlyAllocated)

	paymentQuery := `
		UPDATE payments
		SET allocated_amount = $3,
		    status = $4,
		    last_updated_at = $5,
		    last_updated_by = $6
		WHERE company_id = $1 AND payment_id = $2
		  AND allocated_amount = $7
		  AND status NOT IN ('REVERSED', 'REFUNDED');
	`
	cmdTag, err := tx.Exec(ctx, paymentQuery,
		payment.CompanyID,
		payment.PaymentID,
		payment.AllocatedAmount,
		payment.Status,
		payment.LastUpdatedAt,
		payment.LastUpdatedBy,
		expectedAllocated,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update payment "+payment.PaymentID+" during allocation", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	invoiceIDs := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		invoiceIDs = append(invoiceIDs, inv.InvoiceID)
	}
	locked, err := r.invoiceRepo.FindInvoicesByIDsForUpdate(ctx, tx, payment.CompanyID, invoiceIDs)
	if err != nil {
		return err
	}
	if err := checkInvoicePreImages(invoices, locked, allocationDeltas(allocations), false); err != nil {
		return err
	}
	for _, inv := range invoices {
		if err := r.invoiceRepo.UpdateInvoiceSettlementInTx(ctx, tx, inv); err != nil {
			return err
		}
	}

	if err := insertAllocationsInTx(ctx, tx, allocations); err != nil {
		return err
	}

	event := newAuditEvent(payment.CompanyID, "payment", payment.PaymentID, "payment.allocated", payment.LastUpdatedBy, payment.LastUpdatedAt, map[string]string{
		"allocated_amount": newlyAllocated.String(),
	})
	if err := r.auditRepo.SaveAuditEventInTx(ctx, tx, event); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// ReverseAllocations marks allocations reversed and rewrites the payment and
// affected invoices to their post-reversal state, all within one transaction.
// Each allocation update is guarded on the active status, and the invoice rows
// are locked and checked against the pre-image the reversal was computed from;
// an already reversed allocation or a drifted invoice surfaces as
// apperrors.ErrConflict.
func (r *PgxPaymentRepository) ReverseAllocations(ctx context.Context, payment domain.Payment, allocations []domain.PaymentAllocation, invoices []domain.Invoice) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	allocationQuery := `
		UPDATE payment_allocations
		SET status = $3,
		    reversed_at = $4,
		    reversed_by = $5,
		    reversal_reason = $6,
		    reversed_amount = $7,
		    last_updated_at = $8,
		    last_updated_by = $9
		WHERE company_id = $1 AND allocation_id = $2 AND status = 'ACTIVE';
	`
	for _, alloc := range allocations {
		cmdTag, err := tx.Exec(ctx, allocationQuery,
			alloc.CompanyID,
			alloc.AllocationID,
			alloc.Status,
			alloc.ReversedAt,
			alloc.ReversedBy,
			alloc.ReversalReason,
			alloc.ReversedAmount,
			alloc.LastUpdatedAt,
			alloc.LastUpdatedBy,
		)
		if err != nil {
			return apperrors.NewAppError(500, "failed to reverse allocation "+alloc.AllocationID, err)
		}
		if cmdTag.RowsAffected() == 0 {
			return apperrors.ErrConflict
		}
	}

	invoiceIDs := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		invoiceIDs = append(invoiceIDs, inv.InvoiceID)
	}
	locked, err := r.invoiceRepo.FindInvoicesByIDsForUpdate(ctx, tx, payment.CompanyID, invoiceIDs)
	if err != nil {
		return err
	}
	if err := checkInvoicePreImages(invoices, locked, reversalDeltas(allocations), true); err != nil {
		return err
	}
	for _, inv := range invoices {
		if err := r.invoiceRepo.UpdateInvoiceSettlementInTx(ctx, tx, inv); err != nil {
			return err
		}
	}

	paymentQuery := `
		UPDATE payments
		SET allocated_amount = $3,
		    status = $4,
		    last_updated_at = $5,
		    last_updated_by = $6
		WHERE company_id = $1 AND payment_id = $2;
	`
	cmdTag, err := tx.Exec(ctx, paymentQuery,
		payment.CompanyID,
		payment.PaymentID,
		payment.AllocatedAmount,
		payment.Status,
		payment.LastUpdatedAt,
		payment.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update payment "+payment.PaymentID+" during reversal", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("payment " + payment.PaymentID + " not found for reversal update")
	}

	event := newAuditEvent(payment.CompanyID, "payment", payment.PaymentID, "payment.allocation_reversed", payment.LastUpdatedBy, payment.LastUpdatedAt, map[string]string{
		"reversed_count": strconv.Itoa(len(allocations)),
	})
	if err := r.auditRepo.SaveAuditEventInTx(ctx, tx, event); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// settlementDelta is the cash and discount an allocation set applies to one invoice.
type settlementDelta struct {
	cash     decimal.Decimal
	discount decimal.Decimal
}

// allocationDeltas sums, per invoice, the cash and discount a new allocation
// set settles.
func allocationDeltas(allocations []domain.PaymentAllocation) map[string]settlementDelta {
	deltas := make(map[string]settlementDelta, len(allocations))
	for _, alloc := range allocations {
		d := deltas[alloc.InvoiceID]
		d.cash = d.cash.Add(alloc.AllocatedAmount)
		d.discount = d.discount.Add(alloc.DiscountAmount)
		deltas[alloc.InvoiceID] = d
	}
	return deltas
}

// reversalDeltas sums, per invoice, the cash and discount a reversal restores.
func reversalDeltas(allocations []domain.PaymentAllocation) map[string]settlementDelta {
	deltas := make(map[string]settlementDelta, len(allocations))
	for _, alloc := range allocations {
		d := deltas[alloc.InvoiceID]
		d.cash = d.cash.Add(alloc.ReversedAmount)
		d.discount = d.discount.Add(alloc.DiscountAmount)
		deltas[alloc.InvoiceID] = d
	}
	return deltas
}

// checkInvoicePreImages verifies that each locked invoice row still matches
// the state the updated settlement values were derived from. A drifted row
// means another settlement committed after the service's read; overwriting it
// would silently discard that settlement, so the caller must abort with
// apperrors.ErrConflict and let the operation be retried against fresh state.
func checkInvoicePreImages(updated []domain.Invoice, locked map[string]domain.Invoice, deltas map[string]settlementDelta, reversal bool) error {
	for _, inv := range updated {
		row, found := locked[inv.InvoiceID]
		if !found {
			return apperrors.ErrNotFound
		}

		d := deltas[inv.InvoiceID]
		var prePaid, preBalance decimal.Decimal
		if reversal {
			prePaid = inv.PaidAmount.Add(d.cash)
			preBalance = inv.BalanceDue.Sub(d.cash).Sub(d.discount)
		} else {
			prePaid = inv.PaidAmount.Sub(d.cash)
			preBalance = inv.BalanceDue.Add(d.cash).Add(d.discount)
		}

		if !row.PaidAmount.Equal(prePaid) || !row.BalanceDue.Equal(preBalance) {
			return apperrors.ErrConflict
		}
	}
	return nil
}

// insertAllocationsInTx batch-inserts allocation rows within the given transaction.
func insertAllocationsInTx(ctx context.Context, tx pgx.Tx, allocations []domain.PaymentAllocation) error {
	query := `
		INSERT INTO payment_allocations (` + allocationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
	`
	batch := &pgx.Batch{}
	for _, alloc := range allocations {
		batch.Queue(query,
			alloc.AllocationID,
			alloc.CompanyID,
			alloc.PaymentID,
			alloc.InvoiceID,
			alloc.AllocatedAmount,
			alloc.DiscountAmount,
			alloc.AllocationDate,
			alloc.Method,
			alloc.Strategy,
			alloc.Notes,
			alloc.Status,
			alloc.ReversedAt,
			alloc.ReversedBy,
			alloc.ReversalReason,
			alloc.ReversedAmount,
			alloc.CreatedAt,
			alloc.CreatedBy,
			alloc.LastUpdatedAt,
			alloc.LastUpdatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to insert payment allocations", err)
	}
	return nil
}
