package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	accountRepo := newPgxAccountRepository(dbPool)
	auditRepo := newPgxAuditRepository(dbPool)
	journalRepo := newPgxJournalRepository(dbPool, accountRepo, auditRepo)
	templateRepo := newPgxTemplateRepository(dbPool, auditRepo)
	invoiceRepo := newPgxInvoiceRepository(dbPool)
	paymentRepo := newPgxPaymentRepository(dbPool, invoiceRepo, auditRepo)

	return portsrepo.RepositoryProvider{
		AccountRepo:  accountRepo,
		JournalRepo:  journalRepo,
		TemplateRepo: templateRepo,
		InvoiceRepo:  invoiceRepo,
		PaymentRepo:  paymentRepo,
		AuditRepo:    auditRepo,
	}
}
