package services

import (
	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
	portssvc "github.com/openbooks/backoffice_app/internal/core/ports/services"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Account = NewAccountService(repos.AccountRepo)
	container.Journal = NewJournalService(repos.JournalRepo, repos.AccountRepo)
	container.Template = NewTemplateService(repos.TemplateRepo, repos.AccountRepo)
	container.Invoice = NewInvoiceService(repos.InvoiceRepo)
	container.Payment = NewPaymentService(repos.PaymentRepo, repos.InvoiceRepo)
	container.Audit = NewAuditService(repos.AuditRepo)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.AccountSvcFacade  = (*accountService)(nil)
	_ portssvc.JournalSvcFacade  = (*journalService)(nil)
	_ portssvc.TemplateSvcFacade = (*templateService)(nil)
	_ portssvc.InvoiceSvcFacade  = (*invoiceService)(nil)
	_ portssvc.PaymentSvcFacade  = (*paymentService)(nil)
	_ portssvc.AuditSvcFacade    = (*auditService)(nil)
)
