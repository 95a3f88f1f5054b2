package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
)

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for chart-of-accounts data.
func newPgxAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepositoryWithTx {
	return &PgxAccountRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryWithTx
var _ portsrepo.AccountRepositoryWithTx = (*PgxAccountRepository)(nil)

const accountColumns = `
	account_id, company_id, code, name, account_type, normal_side, currency_code,
	description, is_active, balance, created_at, created_by, last_updated_at, last_updated_by
`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.AccountID,
		&a.CompanyID,
		&a.Code,
		&a.Name,
		&a.AccountType,
		&a.NormalSide,
		&a.CurrencyCode,
		&a.Description,
		&a.IsActive,
		&a.Balance,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.LastUpdatedAt,
		&a.LastUpdatedBy,
	)
	return a, err
}

// SaveAccount persists a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.Pool.Exec(ctx, query,
		account.AccountID,
		account.CompanyID,
		account.Code,
		account.Name,
		account.AccountType,
		account.NormalSide,
		account.CurrencyCode,
		account.Description,
		account.IsActive,
		account.Balance,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert account "+account.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves a specific account scoped to a company.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, companyID string, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE company_id = $1 AND account_id = $2;`
	account, err := scanAccount(r.Pool.QueryRow(ctx, query, companyID, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find account by ID "+accountID, err)
	}
	return &account, nil
}

// FindAccountByCode retrieves an account by its company-unique code.
func (r *PgxAccountRepository) FindAccountByCode(ctx context.Context, companyID string, code string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE company_id = $1 AND code = $2;`
	account, err := scanAccount(r.Pool.QueryRow(ctx, query, companyID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find account by code "+code, err)
	}
	return &account, nil
}

// FindAccountsByIDs retrieves multiple accounts by their IDs within a company.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE company_id = $1 AND account_id = ANY($2);`
	rows, err := r.Pool.Query(ctx, query, companyID, accountIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts by IDs", err)
	}
	defer rows.Close()

	accounts := make(map[string]domain.Account, len(accountIDs))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		accounts[account.AccountID] = account
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account rows", err)
	}

	return accounts, nil
}

// ListAccounts retrieves a paginated list of accounts for a given company.
func (r *PgxAccountRepository) ListAccounts(ctx context.Context, companyID string, limit int, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE company_id = $1
		ORDER BY code
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts for company "+companyID, err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account rows", err)
	}

	return accounts, nil
}

// UpdateAccount updates an existing account's details. Balance is never
// written here; it only moves through posting and reversal transactions.
func (r *PgxAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	query := `
		UPDATE accounts
		SET name = $3,
		    description = $4,
		    last_updated_at = $5,
		    last_updated_by = $6
		WHERE company_id = $1 AND account_id = $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		account.CompanyID,
		account.AccountID,
		account.Name,
		account.Description,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update account "+account.AccountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("account " + account.AccountID + " not found for update")
	}
	return nil
}

// DeactivateAccount marks an account as inactive.
func (r *PgxAccountRepository) DeactivateAccount(ctx context.Context, companyID string, accountID string, userID string, now time.Time) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE,
		    last_updated_at = $3,
		    last_updated_by = $4
		WHERE company_id = $1 AND account_id = $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, companyID, accountID, now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to deactivate account "+accountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("account " + accountID + " not found for deactivation")
	}
	return nil
}

// FindAccountsByIDsForUpdate selects accounts and locks them for update within a transaction.
func (r *PgxAccountRepository) FindAccountsByIDsForUpdate(ctx context.Context, tx pgx.Tx, companyID string, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE company_id = $1 AND account_id = ANY($2)
		ORDER BY account_id
		FOR UPDATE;
	`
	rows, err := tx.Query(ctx, query, companyID, accountIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock accounts for update", err)
	}
	defer rows.Close()

	accounts := make(map[string]domain.Account, len(accountIDs))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan locked account row", err)
		}
		accounts[account.AccountID] = account
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating locked account rows", err)
	}

	for _, id := range accountIDs {
		if _, found := accounts[id]; !found {
			return nil, apperrors.ErrNotFound
		}
	}

	return accounts, nil
}

// UpdateAccountBalancesInTx applies balance deltas for multiple accounts within a given transaction.
func (r *PgxAccountRepository) UpdateAccountBalancesInTx(ctx context.Context, tx pgx.Tx, balanceChanges map[string]decimal.Decimal, userID string, now time.Time) error {
	query := `
		UPDATE accounts
		SET balance = balance + $2,
		    last_updated_at = $3,
		    last_updated_by = $4
		WHERE account_id = $1;
	`
	batch := &pgx.Batch{}
	for accountID, delta := range balanceChanges {
		batch.Queue(query, accountID, delta, now, userID)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to apply account balance changes", err)
	}
	return nil
}
