package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account scoped to a company.
	FindAccountByID(ctx context.Context, companyID string, accountID string) (*domain.Account, error)

	// FindAccountByCode retrieves an account by its company-unique code.
	FindAccountByCode(ctx context.Context, companyID string, code string) (*domain.Account, error)

	// FindAccountsByIDs retrieves multiple accounts by their IDs within a company.
	FindAccountsByIDs(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error)

	// ListAccounts retrieves a paginated list of accounts for a given company.
	ListAccounts(ctx context.Context, companyID string, limit int, offset int) ([]domain.Account, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateAccount updates an existing account's details.
	UpdateAccount(ctx context.Context, account domain.Account) error

	// DeactivateAccount marks an account as inactive.
	DeactivateAccount(ctx context.Context, companyID string, accountID string, userID string, now time.Time) error
}

// AccountTransactionSupport defines operations that support balance updates
// inside a caller-owned transaction.
type AccountTransactionSupport interface {
	// FindAccountsByIDsForUpdate selects accounts and locks them for update within a transaction.
	FindAccountsByIDsForUpdate(ctx context.Context, tx pgx.Tx, companyID string, accountIDs []string) (map[string]domain.Account, error)

	// UpdateAccountBalancesInTx applies balance deltas for multiple accounts within a given transaction.
	UpdateAccountBalancesInTx(ctx context.Context, tx pgx.Tx, balanceChanges map[string]decimal.Decimal, userID string, now time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
// This is a facade for clients that need access to all operations
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
	AccountTransactionSupport
}

// AccountRepositoryWithTx extends AccountRepositoryFacade with transaction capabilities
type AccountRepositoryWithTx interface {
	AccountRepositoryFacade
	TransactionManager
}
