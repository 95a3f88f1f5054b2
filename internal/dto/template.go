package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/core/domain"
)

// CreateTemplateLineRequest is one debit or credit line inside a template create request.
type CreateTemplateLineRequest struct {
	AccountID   string          `json:"accountID" binding:"required"`
	Side        domain.LineSide `json:"side" binding:"required,oneof=DEBIT CREDIT"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

// CreateTemplateRequest defines the data needed to create a recurring template.
// The line set must balance, so every generated entry balances by construction.
type CreateTemplateRequest struct {
	Name         string                      `json:"name" binding:"required"`
	Description  string                      `json:"description"`
	Frequency    domain.Frequency            `json:"frequency" binding:"required,oneof=DAILY WEEKLY MONTHLY QUARTERLY YEARLY"`
	Interval     int                         `json:"interval" binding:"omitempty,min=1"`
	StartDate    time.Time                   `json:"startDate" binding:"required"`
	EndDate      *time.Time                  `json:"endDate"`
	CurrencyCode string                      `json:"currencyCode" binding:"required,len=3"`
	EntryType    domain.EntryType            `json:"entryType" binding:"required,oneof=SALES PURCHASE PAYMENT RECEIPT ADJUSTMENT CLOSING OPENING"`
	Lines        []CreateTemplateLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// UpdateTemplateRequest defines the data allowed for updating a template.
type UpdateTemplateRequest struct {
	Name        *string                     `json:"name"`
	Description *string                     `json:"description"`
	EndDate     *time.Time                  `json:"endDate"`
	Lines       []CreateTemplateLineRequest `json:"lines" binding:"omitempty,min=2,dive"`
}

// GenerateEntriesRequest controls a generation run. Force skips the due check
// for a single template and generates its next occurrence immediately.
type GenerateEntriesRequest struct {
	AsOf  *time.Time `json:"asOf"`
	Force bool       `json:"force"`
}

// DeactivateTemplateRequest carries the reason for deactivating a template.
type DeactivateTemplateRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// DeactivateAllTemplatesRequest carries the reason applied to every active template.
type DeactivateAllTemplatesRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// DeactivateAllTemplatesResponse reports how many templates were deactivated.
type DeactivateAllTemplatesResponse struct {
	DeactivatedCount int `json:"deactivatedCount"`
}

// TemplateLineResponse defines the data returned for a template line.
type TemplateLineResponse struct {
	LineID      string          `json:"lineID"`
	TemplateID  string          `json:"templateID"`
	AccountID   string          `json:"accountID"`
	Side        domain.LineSide `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// TemplateResponse defines the data returned for a recurring template.
type TemplateResponse struct {
	TemplateID         string                 `json:"templateID"`
	CompanyID          string                 `json:"companyID"`
	Name               string                 `json:"name"`
	Description        string                 `json:"description"`
	Frequency          domain.Frequency       `json:"frequency"`
	Interval           int                    `json:"interval"`
	StartDate          time.Time              `json:"startDate"`
	EndDate            *time.Time             `json:"endDate,omitempty"`
	NextGenerationDate time.Time              `json:"nextGenerationDate"`
	IsActive           bool                   `json:"isActive"`
	DeactivationReason string                 `json:"deactivationReason,omitempty"`
	CurrencyCode       string                 `json:"currencyCode"`
	EntryType          domain.EntryType       `json:"entryType"`
	CreatedAt          time.Time              `json:"createdAt"`
	CreatedBy          string                 `json:"createdBy"`
	Lines              []TemplateLineResponse `json:"lines,omitempty"`
}

// GeneratedEntryResponse reports one entry produced by a generation run.
type GeneratedEntryResponse struct {
	TemplateID         string    `json:"templateID"`
	EntryID            string    `json:"entryID"`
	GeneratedForDate   time.Time `json:"generatedForDate"`
	NextGenerationDate time.Time `json:"nextGenerationDate"`
}

// GenerateEntriesResponse wraps the entries produced by a generation run.
type GenerateEntriesResponse struct {
	Generated []GeneratedEntryResponse `json:"generated"`
}

// ToTemplateLineResponse converts a domain.TemplateLine to TemplateLineResponse DTO.
func ToTemplateLineResponse(line *domain.TemplateLine) TemplateLineResponse {
	return TemplateLineResponse{
		LineID:      line.LineID,
		TemplateID:  line.TemplateID,
		AccountID:   line.AccountID,
		Side:        line.Side,
		Amount:      line.Amount,
		Description: line.Description,
	}
}

// ToTemplateResponse converts a domain.RecurringJournalTemplate to TemplateResponse DTO.
func ToTemplateResponse(tmpl *domain.RecurringJournalTemplate) TemplateResponse {
	lines := make([]TemplateLineResponse, len(tmpl.Lines))
	for i, line := range tmpl.Lines {
		lines[i] = ToTemplateLineResponse(&line)
	}
	return TemplateResponse{
		TemplateID:         tmpl.TemplateID,
		CompanyID:          tmpl.CompanyID,
		Name:               tmpl.Name,
		Description:        tmpl.Description,
		Frequency:          tmpl.Frequency,
		Interval:           tmpl.Interval,
		StartDate:          tmpl.StartDate,
		EndDate:            tmpl.EndDate,
		NextGenerationDate: tmpl.NextGenerationDate,
		IsActive:           tmpl.IsActive,
		DeactivationReason: tmpl.DeactivationReason,
		CurrencyCode:       tmpl.CurrencyCode,
		EntryType:          tmpl.EntryType,
		CreatedAt:          tmpl.CreatedAt,
		CreatedBy:          tmpl.CreatedBy,
		Lines:              lines,
	}
}

// ToListTemplateResponse converts a slice of templates to response DTOs.
func ToListTemplateResponse(templates []domain.RecurringJournalTemplate) []TemplateResponse {
	res := make([]TemplateResponse, len(templates))
	for i, tmpl := range templates {
		res[i] = ToTemplateResponse(&tmpl)
	}
	return res
}

// ListTemplatesParams defines query parameters for listing templates.
type ListTemplatesParams struct {
	Limit      int  `form:"limit,default=20"`
	Offset     int  `form:"offset,default=0"`
	ActiveOnly bool `form:"activeOnly,default=false"`
}

// ListTemplatesResponse wraps the list of templates.
type ListTemplatesResponse struct {
	Templates []TemplateResponse `json:"templates"`
}
