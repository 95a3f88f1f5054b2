package services

import (
	"context"
	"errors"
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

// accountService provides chart-of-accounts operations.
type accountService struct {
	accountRepo portsrepo.AccountRepositoryFacade
}

// NewAccountService creates a new AccountService.
func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade) portssvc.AccountSvcFacade {
	return &accountService{
		accountRepo: accountRepo,
	}
}

// Ensure accountService implements the portssvc.AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// CreateAccount persists a new account with its normal balance derived from
// the account type.
func (s *accountService) CreateAccount(ctx context.Context, companyID string, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	// Account codes are unique per company
	existing, err := s.accountRepo.FindAccountByCode(ctx, companyID, req.Code)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		logger.Error("Failed to check account code uniqueness", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to check account code: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: account code %s already exists", apperrors.ErrDuplicate, req.Code)
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:    uuid.NewString(),
		CompanyID:    companyID,
		Code:         req.Code,
		Name:         req.Name,
		AccountType:  req.AccountType,
		NormalSide:   domain.NormalBalanceFor(req.AccountType),
		CurrencyCode: req.CurrencyCode,
		Description:  req.Description,
		IsActive:     true,
		Balance:      decimal.Zero,
		AuditFields:  domain.NewAuditFields(creatorUserID, now),
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		logger.Error("Failed to save account", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	logger.Info("Account created successfully", slog.String("account_id", account.AccountID), slog.String("company_id", companyID))
	return &account, nil
}

// GetAccountByID retrieves a specific account scoped to the company.
func (s *accountService) GetAccountByID(ctx context.Context, companyID string, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, companyID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	return account, nil
}

// ListAccounts retrieves a paginated list of accounts for the company.
func (s *accountService) ListAccounts(ctx context.Context, companyID string, params dto.ListAccountsParams) (*dto.ListAccountsResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	accounts, err := s.accountRepo.ListAccounts(ctx, companyID, limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list accounts from repository", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to retrieve accounts: %w", err)
	}

	return &dto.ListAccountsResponse{
		Accounts: dto.ToListAccountResponse(accounts),
	}, nil
}

// UpdateAccount updates an account's mutable details.
func (s *accountService) UpdateAccount(ctx context.Context, companyID string, accountID string, req dto.UpdateAccountRequest, requestingUserID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.accountRepo.FindAccountByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}

	updated := false
	if req.Name != nil {
		account.Name = *req.Name
		updated = true
	}
	if req.Description != nil {
		account.Description = *req.Description
		updated = true
	}

	if !updated {
		return account, nil
	}

	account.Touch(requestingUserID, time.Now().UTC())
	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		logger.Error("Failed to save account update", slog.String("error", err.Error()), slog.String("account_id", accountID))
		return nil, fmt.Errorf("failed to save account update: %w", err)
	}

	logger.Info("Account updated successfully", slog.String("account_id", accountID))
	return account, nil
}

// DeactivateAccount marks an account inactive. Accounts referenced by journal
// lines are never deleted, only deactivated.
func (s *accountService) DeactivateAccount(ctx context.Context, companyID string, accountID string, requestingUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.accountRepo.FindAccountByID(ctx, companyID, accountID); err != nil {
		return err
	}

	if err := s.accountRepo.DeactivateAccount(ctx, companyID, accountID, requestingUserID, time.Now().UTC()); err != nil {
		logger.Error("Failed to deactivate account", slog.String("error", err.Error()), slog.String("account_id", accountID))
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	logger.Info("Account deactivated", slog.String("account_id", accountID), slog.String("company_id", companyID))
	return nil
}
