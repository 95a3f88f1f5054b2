package pgsql

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
)

type PgxInvoiceRepository struct {
	BaseRepository
}

// newPgxInvoiceRepository creates a new repository for invoice data.
func newPgxInvoiceRepository(pool *pgxpool.Pool) portsrepo.InvoiceRepositoryWithTx {
	return &PgxInvoiceRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxInvoiceRepository implements portsrepo.InvoiceRepositoryWithTx
var _ portsrepo.InvoiceRepositoryWithTx = (*PgxInvoiceRepository)(nil)

const invoiceColumns = `
	invoice_id, company_id, customer_id, invoice_number, total_amount, paid_amount,
	balance_due, status, issue_date, due_date, currency_code,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanInvoice(row pgx.Row) (domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(
		&inv.InvoiceID,
		&inv.CompanyID,
		&inv.CustomerID,
		&inv.InvoiceNumber,
		&inv.TotalAmount,
		&inv.PaidAmount,
		&inv.BalanceDue,
		&inv.Status,
		&inv.IssueDate,
		&inv.DueDate,
		&inv.CurrencyCode,
		&inv.CreatedAt,
		&inv.CreatedBy,
		&inv.LastUpdatedAt,
		&inv.LastUpdatedBy,
	)
	return inv, err
}

// SaveInvoice persists a new invoice.
func (r *PgxInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.Pool.Exec(ctx, query,
		invoice.InvoiceID,
		invoice.CompanyID,
		invoice.CustomerID,
		invoice.InvoiceNumber,
		invoice.TotalAmount,
		invoice.PaidAmount,
		invoice.BalanceDue,
		invoice.Status,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.CurrencyCode,
		invoice.CreatedAt,
		invoice.CreatedBy,
		invoice.LastUpdatedAt,
		invoice.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert invoice "+invoice.InvoiceID, err)
	}
	return nil
}

// FindInvoiceByID retrieves a specific invoice scoped to a company.
func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, companyID string, invoiceID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1 AND invoice_id = $2;`
	invoice, err := scanInvoice(r.Pool.QueryRow(ctx, query, companyID, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find invoice by ID "+invoiceID, err)
	}
	return &invoice, nil
}

// FindInvoicesByIDs retrieves multiple invoices by their IDs within a company.
func (r *PgxInvoiceRepository) FindInvoicesByIDs(ctx context.Context, companyID string, invoiceIDs []string) (map[string]domain.Invoice, error) {
	if len(invoiceIDs) == 0 {
		return map[string]domain.Invoice{}, nil
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1 AND invoice_id = ANY($2);`
	rows, err := r.Pool.Query(ctx, query, companyID, invoiceIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query invoices by IDs", err)
	}
	defer rows.Close()

	invoices := make(map[string]domain.Invoice, len(invoiceIDs))
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan invoice row", err)
		}
		invoices[invoice.InvoiceID] = invoice
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating invoice rows", err)
	}

	return invoices, nil
}

// ListInvoicesByCompany retrieves a paginated list of invoices, optionally filtered by status.
func (r *PgxInvoiceRepository) ListInvoicesByCompany(ctx context.Context, companyID string, status *domain.InvoiceStatus, limit int, offset int) ([]domain.Invoice, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1`
	args := []interface{}{companyID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY due_date, created_at LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2) + `;`
	args = append(args, limit, offset)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query invoices for company "+companyID, err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan invoice row", err)
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating invoice rows", err)
	}

	return invoices, nil
}

// ListOpenInvoicesByCustomer retrieves a customer's invoices that still carry
// a balance due, ordered by due date ascending then created_at. This ordering
// is what the fifo allocation strategy relies on.
func (r *PgxInvoiceRepository) ListOpenInvoicesByCustomer(ctx context.Context, companyID string, customerID string) ([]domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE company_id = $1 AND customer_id = $2
		  AND status IN ('OPEN', 'PARTIALLY_PAID')
		  AND balance_due > 0
		ORDER BY due_date, created_at;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, customerID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query open invoices for customer "+customerID, err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan open invoice row", err)
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating open invoice rows", err)
	}

	return invoices, nil
}

// UpdateInvoice updates an existing invoice's details.
func (r *PgxInvoiceRepository) UpdateInvoice(ctx context.Context, invoice domain.Invoice) error {
	query := `
		UPDATE invoices
		SET invoice_number = $3,
		    due_date = $4,
		    status = $5,
		    last_updated_at = $6,
		    last_updated_by = $7
		WHERE company_id = $1 AND invoice_id = $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		invoice.CompanyID,
		invoice.InvoiceID,
		invoice.InvoiceNumber,
		invoice.DueDate,
		invoice.Status,
		invoice.LastUpdatedAt,
		invoice.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update invoice "+invoice.InvoiceID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("invoice " + invoice.InvoiceID + " not found for update")
	}
	return nil
}

// FindInvoicesByIDsForUpdate selects invoices and locks them for update within a transaction.
func (r *PgxInvoiceRepository) FindInvoicesByIDsForUpdate(ctx context.Context, tx pgx.Tx, companyID string, invoiceIDs []string) (map[string]domain.Invoice, error) {
	if len(invoiceIDs) == 0 {
		return map[string]domain.Invoice{}, nil
	}

	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE company_id = $1 AND invoice_id = ANY($2)
		ORDER BY invoice_id
		FOR UPDATE;
	`
	rows, err := tx.Query(ctx, query, companyID, invoiceIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock invoices for update", err)
	}
	defer rows.Close()

	invoices := make(map[string]domain.Invoice, len(invoiceIDs))
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan locked invoice row", err)
		}
		invoices[invoice.InvoiceID] = invoice
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating locked invoice rows", err)
	}

	for _, id := range invoiceIDs {
		if _, found := invoices[id]; !found {
			return nil, apperrors.ErrNotFound
		}
	}

	return invoices, nil
}

// UpdateInvoiceSettlementInTx rewrites an invoice's paid amount, balance due
// and status within a given transaction.
func (r *PgxInvoiceRepository) UpdateInvoiceSettlementInTx(ctx context.Context, tx pgx.Tx, invoice domain.Invoice) error {
	query := `
		UPDATE invoices
		SET paid_amount = $3,
		    balance_due = $4,
		    status = $5,
		    last_updated_at = $6,
		    last_updated_by = $7
		WHERE company_id = $1 AND invoice_id = $2;
	`
	cmdTag, err := tx.Exec(ctx, query,
		invoice.CompanyID,
		invoice.InvoiceID,
		invoice.PaidAmount,
		invoice.BalanceDue,
		invoice.Status,
		invoice.LastUpdatedAt,
		invoice.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update settlement for invoice "+invoice.InvoiceID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("invoice " + invoice.InvoiceID + " not found for settlement update")
	}
	return nil
}
