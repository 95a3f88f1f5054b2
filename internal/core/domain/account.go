package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// NormalBalance indicates which side increases an account's balance.
type NormalBalance string

const (
	DebitNormal  NormalBalance = "DEBIT"
	CreditNormal NormalBalance = "CREDIT"
)

// NormalBalanceFor returns the conventional normal balance side for an
// account type: assets and expenses are debit-normal, the rest credit-normal.
func NormalBalanceFor(t AccountType) NormalBalance {
	switch t {
	case Asset, Expense:
		return DebitNormal
	default:
		return CreditNormal
	}
}

// Account represents a financial account within the ledger. Its balance is
// mutated only by posted journal lines or their reversal; accounts referenced
// by lines are deactivated, never deleted.
type Account struct {
	AccountID    string          `json:"accountID"`
	CompanyID    string          `json:"companyID"`
	Code         string          `json:"code"` // user-facing account code, unique per company
	Name         string          `json:"name"`
	AccountType  AccountType     `json:"accountType"`
	NormalSide   NormalBalance   `json:"normalSide"`
	CurrencyCode string          `json:"currencyCode"`
	Description  string          `json:"description"`
	IsActive     bool            `json:"isActive"`
	Balance      decimal.Decimal `json:"balance"` // persisted running balance
	AuditFields
}
