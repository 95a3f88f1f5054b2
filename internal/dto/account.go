package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Code         string             `json:"code" binding:"required"`
	Name         string             `json:"name" binding:"required"`
	AccountType  domain.AccountType `json:"accountType" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	CurrencyCode string             `json:"currencyCode" binding:"required,len=3"`
	Description  string             `json:"description"` // Optional
}

// UpdateAccountRequest defines the data allowed for updating an account.
// Use pointers to distinguish between zero-value updates and fields not provided.
type UpdateAccountRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// AccountResponse defines the data returned for an account.
// Mirrors domain.Account.
type AccountResponse struct {
	AccountID     string             `json:"accountID"`
	CompanyID     string             `json:"companyID"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	AccountType   domain.AccountType `json:"accountType"`
	NormalSide    string             `json:"normalSide"`
	CurrencyCode  string             `json:"currencyCode"`
	Description   string             `json:"description"`
	IsActive      bool               `json:"isActive"`
	Balance       decimal.Decimal    `json:"balance"`
	CreatedAt     time.Time          `json:"createdAt"`
	CreatedBy     string             `json:"createdBy"`
	LastUpdatedAt time.Time          `json:"lastUpdatedAt"`
	LastUpdatedBy string             `json:"lastUpdatedBy"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     acc.AccountID,
		CompanyID:     acc.CompanyID,
		Code:          acc.Code,
		Name:          acc.Name,
		AccountType:   acc.AccountType,
		NormalSide:    string(acc.NormalSide),
		CurrencyCode:  acc.CurrencyCode,
		Description:   acc.Description,
		IsActive:      acc.IsActive,
		Balance:       acc.Balance,
		CreatedAt:     acc.CreatedAt,
		CreatedBy:     acc.CreatedBy,
		LastUpdatedAt: acc.LastUpdatedAt,
		LastUpdatedBy: acc.LastUpdatedBy,
	}
}

// ToListAccountResponse converts a slice of domain.Account to a slice of AccountResponse DTOs
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i, acc := range accounts {
		res[i] = ToAccountResponse(&acc)
	}
	return res
}

// ListAccountsParams defines query parameters for listing accounts.
type ListAccountsParams struct {
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}

// ListAccountsResponse wraps the list of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}
