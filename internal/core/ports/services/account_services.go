package services

import (
	"context"

	"github.com/openbooks/backoffice_app/internal/core/domain"
	"github.com/openbooks/backoffice_app/internal/dto"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// GetAccountByID retrieves a specific account by its ID.
	GetAccountByID(ctx context.Context, companyID string, accountID string) (*domain.Account, error)

	// ListAccounts retrieves a paginated list of accounts in a company.
	ListAccounts(ctx context.Context, companyID string, params dto.ListAccountsParams) (*dto.ListAccountsResponse, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// CreateAccount persists a new account.
	CreateAccount(ctx context.Context, companyID string, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error)

	// UpdateAccount updates an existing account's details.
	UpdateAccount(ctx context.Context, companyID string, accountID string, req dto.UpdateAccountRequest, requestingUserID string) (*domain.Account, error)

	// DeactivateAccount marks an account as inactive.
	DeactivateAccount(ctx context.Context, companyID string, accountID string, requestingUserID string) error
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
