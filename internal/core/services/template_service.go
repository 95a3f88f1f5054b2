package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
	portssvc "github.com/openbooks/backoffice_app/internal/core/ports/services"
	"github.com/openbooks/backoffice_app/internal/dto"
	"github.com/openbooks/backoffice_app/internal/middleware"
	"github.com/openbooks/backoffice_app/internal/utils/accounting"
)

// dueTemplatesBatchSize bounds how many templates one generation run picks up.
const dueTemplatesBatchSize = 100

// templateService manages recurring journal templates and materializes their
// occurrences into draft journal entries.
type templateService struct {
	templateRepo portsrepo.TemplateRepositoryFacade
	accountRepo  portsrepo.AccountRepositoryFacade
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(templateRepo portsrepo.TemplateRepositoryFacade, accountRepo portsrepo.AccountRepositoryFacade) portssvc.TemplateSvcFacade {
	return &templateService{
		templateRepo: templateRepo,
		accountRepo:  accountRepo,
	}
}

// Ensure templateService implements the portssvc.TemplateSvcFacade interface
var _ portssvc.TemplateSvcFacade = (*templateService)(nil)

// asJournalLines views template lines as journal lines for balance validation.
func asJournalLines(lines []domain.TemplateLine) []domain.JournalLine {
	out := make([]domain.JournalLine, len(lines))
	for i, line := range lines {
		out[i] = domain.JournalLine{
			AccountID: line.AccountID,
			Side:      line.Side,
			Amount:    line.Amount,
		}
	}
	return out
}

// validateTemplateAccounts checks that every referenced account exists in the
// company, is active and matches the template currency.
func (s *templateService) validateTemplateAccounts(ctx context.Context, companyID, currencyCode string, lines []domain.TemplateLine) error {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; !ok {
			seen[line.AccountID] = struct{}{}
			ids = append(ids, line.AccountID)
		}
	}

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, companyID, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch accounts: %w", err)
	}
	for _, id := range ids {
		acc, found := accounts[id]
		if !found {
			return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
		if !acc.IsActive {
			return fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, id)
		}
		if acc.CurrencyCode != currencyCode {
			return fmt.Errorf("%w: account %s is %s, template is %s", ErrCurrencyMismatch, id, acc.CurrencyCode, currencyCode)
		}
	}
	return nil
}

// CreateTemplate persists a new recurring template. The line set must balance
// so that every generated entry balances by construction.
func (s *templateService) CreateTemplate(ctx context.Context, companyID string, req dto.CreateTemplateRequest, creatorUserID string) (*domain.RecurringJournalTemplate, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	interval := req.Interval
	if interval < 1 {
		interval = 1
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: end date precedes start date", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	templateID := uuid.NewString()
	lines := make([]domain.TemplateLine, len(req.Lines))
	for i, lineReq := range req.Lines {
		lines[i] = domain.TemplateLine{
			LineID:      uuid.NewString(),
			TemplateID:  templateID,
			AccountID:   lineReq.AccountID,
			Side:        lineReq.Side,
			Amount:      lineReq.Amount,
			Description: lineReq.Description,
			AuditFields: domain.NewAuditFields(creatorUserID, now),
		}
	}

	if err := accounting.ValidateBalanced(asJournalLines(lines)); err != nil {
		return nil, err
	}
	if err := s.validateTemplateAccounts(ctx, companyID, req.CurrencyCode, lines); err != nil {
		return nil, err
	}

	template := domain.RecurringJournalTemplate{
		TemplateID:         templateID,
		CompanyID:          companyID,
		Name:               req.Name,
		Description:        req.Description,
		Frequency:          req.Frequency,
		Interval:           interval,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		NextGenerationDate: req.StartDate,
		IsActive:           true,
		CurrencyCode:       req.CurrencyCode,
		EntryType:          req.EntryType,
		AuditFields:        domain.NewAuditFields(creatorUserID, now),
		Lines:              lines,
	}

	if err := s.templateRepo.SaveTemplate(ctx, template); err != nil {
		logger.Error("Failed to save template", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	logger.Info("Recurring template created", slog.String("template_id", templateID), slog.String("company_id", companyID))
	return &template, nil
}

// GetTemplateByID retrieves a specific template with its lines.
func (s *templateService) GetTemplateByID(ctx context.Context, companyID string, templateID string) (*domain.RecurringJournalTemplate, error) {
	template, err := s.templateRepo.FindTemplateByID(ctx, companyID, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to find template %s: %w", templateID, err)
	}
	return template, nil
}

// ListTemplates retrieves a paginated list of templates for the company.
func (s *templateService) ListTemplates(ctx context.Context, companyID string, params dto.ListTemplatesParams) (*dto.ListTemplatesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	templates, err := s.templateRepo.ListTemplatesByCompany(ctx, companyID, params.ActiveOnly, limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list templates from repository", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to retrieve templates: %w", err)
	}

	return &dto.ListTemplatesResponse{
		Templates: dto.ToListTemplateResponse(templates),
	}, nil
}

// UpdateTemplate updates a template's details and optionally replaces its lines.
func (s *templateService) UpdateTemplate(ctx context.Context, companyID string, templateID string, req dto.UpdateTemplateRequest, requestingUserID string) (*domain.RecurringJournalTemplate, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	template, err := s.templateRepo.FindTemplateByID(ctx, companyID, templateID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if req.Name != nil {
		template.Name = *req.Name
	}
	if req.Description != nil {
		template.Description = *req.Description
	}
	if req.EndDate != nil {
		template.EndDate = req.EndDate
	}
	if req.Lines != nil {
		lines := make([]domain.TemplateLine, len(req.Lines))
		for i, lineReq := range req.Lines {
			lines[i] = domain.TemplateLine{
				LineID:      uuid.NewString(),
				TemplateID:  templateID,
				AccountID:   lineReq.AccountID,
				Side:        lineReq.Side,
				Amount:      lineReq.Amount,
				Description: lineReq.Description,
				AuditFields: domain.NewAuditFields(requestingUserID, now),
			}
		}
		if err := accounting.ValidateBalanced(asJournalLines(lines)); err != nil {
			return nil, err
		}
		if err := s.validateTemplateAccounts(ctx, companyID, template.CurrencyCode, lines); err != nil {
			return nil, err
		}
		template.Lines = lines
	}

	template.Touch(requestingUserID, now)
	if err := s.templateRepo.UpdateTemplate(ctx, *template); err != nil {
		logger.Error("Failed to save template update", slog.String("error", err.Error()), slog.String("template_id", templateID))
		return nil, fmt.Errorf("failed to save template update: %w", err)
	}

	logger.Info("Recurring template updated", slog.String("template_id", templateID))
	return template, nil
}

// DeactivateTemplate freezes a single template's schedule.
func (s *templateService) DeactivateTemplate(ctx context.Context, companyID string, templateID string, req dto.DeactivateTemplateRequest, requestingUserID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.templateRepo.FindTemplateByID(ctx, companyID, templateID); err != nil {
		return err
	}

	if err := s.templateRepo.DeactivateTemplate(ctx, companyID, templateID, req.Reason, requestingUserID, time.Now().UTC()); err != nil {
		logger.Error("Failed to deactivate template", slog.String("error", err.Error()), slog.String("template_id", templateID))
		return fmt.Errorf("failed to deactivate template: %w", err)
	}

	logger.Info("Recurring template deactivated", slog.String("template_id", templateID))
	return nil
}

// DeactivateAllTemplates freezes every active template in the company with one
// shared reason.
func (s *templateService) DeactivateAllTemplates(ctx context.Context, companyID string, req dto.DeactivateAllTemplatesRequest, requestingUserID string) (*dto.DeactivateAllTemplatesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	count, err := s.templateRepo.DeactivateAllTemplates(ctx, companyID, req.Reason, requestingUserID, time.Now().UTC())
	if err != nil {
		logger.Error("Failed to deactivate templates", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to deactivate templates: %w", err)
	}

	logger.Info("Recurring templates deactivated", slog.String("company_id", companyID), slog.Int("count", count))
	return &dto.DeactivateAllTemplatesResponse{DeactivatedCount: count}, nil
}

// GenerateFromTemplate generates the next occurrence of one template. A
// template that is not due is a no-op unless forced; forcing still advances
// the schedule exactly one step.
func (s *templateService) GenerateFromTemplate(ctx context.Context, companyID string, templateID string, req dto.GenerateEntriesRequest, requestingUserID string) (*dto.GenerateEntriesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	template, err := s.templateRepo.FindTemplateByID(ctx, companyID, templateID)
	if err != nil {
		return nil, err
	}

	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	if !template.IsDue(asOf) && !req.Force {
		logger.Info("Template not due, nothing generated", slog.String("template_id", templateID))
		return &dto.GenerateEntriesResponse{Generated: []dto.GeneratedEntryResponse{}}, nil
	}
	if !template.IsActive {
		return nil, fmt.Errorf("%w: template %s is inactive", apperrors.ErrScheduleNotDue, templateID)
	}
	if template.EndDate != nil && template.NextGenerationDate.After(*template.EndDate) {
		return nil, fmt.Errorf("%w: template %s schedule ended", apperrors.ErrScheduleNotDue, templateID)
	}

	result, err := s.generateOnce(ctx, template, requestingUserID)
	if err != nil {
		return nil, err
	}

	logger.Info("Entry generated from template", slog.String("template_id", templateID), slog.String("entry_id", result.EntryID))
	return &dto.GenerateEntriesResponse{Generated: []dto.GeneratedEntryResponse{*result}}, nil
}

// GenerateDueEntries generates the next occurrence of every due template in
// the company. A template another run already advanced is skipped silently.
func (s *templateService) GenerateDueEntries(ctx context.Context, companyID string, req dto.GenerateEntriesRequest, requestingUserID string) (*dto.GenerateEntriesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	due, err := s.templateRepo.FindDueTemplates(ctx, companyID, asOf, dueTemplatesBatchSize)
	if err != nil {
		logger.Error("Failed to find due templates", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to find due templates: %w", err)
	}

	generated := make([]dto.GeneratedEntryResponse, 0, len(due))
	for i := range due {
		template := due[i]
		if template.EndDate != nil && template.NextGenerationDate.After(*template.EndDate) {
			continue
		}
		result, err := s.generateOnce(ctx, &template, requestingUserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				logger.Warn("Template advanced concurrently, skipping", slog.String("template_id", template.TemplateID))
				continue
			}
			return nil, err
		}
		generated = append(generated, *result)
	}

	logger.Info("Generation run completed", slog.String("company_id", companyID), slog.Int("generated_count", len(generated)))
	return &dto.GenerateEntriesResponse{Generated: generated}, nil
}

// generateOnce materializes one occurrence: a draft entry copied from the
// template's lines, with the schedule advanced exactly one step in the same
// transaction.
func (s *templateService) generateOnce(ctx context.Context, template *domain.RecurringJournalTemplate, userID string) (*dto.GeneratedEntryResponse, error) {
	now := time.Now().UTC()
	generationDate := template.NextGenerationDate
	entryID := uuid.NewString()

	lines := make([]domain.JournalLine, len(template.Lines))
	for i, tmplLine := range template.Lines {
		lines[i] = domain.JournalLine{
			LineID:      uuid.NewString(),
			EntryID:     entryID,
			AccountID:   tmplLine.AccountID,
			Side:        tmplLine.Side,
			Amount:      tmplLine.Amount,
			Description: tmplLine.Description,
			AuditFields: domain.NewAuditFields(userID, now),
		}
	}
	if err := accounting.ValidateBalanced(lines); err != nil {
		return nil, fmt.Errorf("template %s line set no longer balances: %w", template.TemplateID, err)
	}

	entry := domain.JournalEntry{
		EntryID:      entryID,
		CompanyID:    template.CompanyID,
		Description:  fmt.Sprintf("Auto-generated: %s (%s)", template.Name, generationDate.Format("2006-01-02")),
		EntryDate:    generationDate,
		EntryType:    template.EntryType,
		Status:       domain.EntryDraft,
		Reference:    fmt.Sprintf("REC-%s-%s", template.TemplateID, generationDate.Format("2006-01-02")),
		CurrencyCode: template.CurrencyCode,
		AuditFields:  domain.NewAuditFields(userID, now),
	}

	previousNextDate := template.NextGenerationDate
	template.NextGenerationDate = template.Frequency.NextAfter(previousNextDate, template.Interval)
	template.Touch(userID, now)

	if err := s.templateRepo.SaveGeneratedEntry(ctx, *template, entry, lines, previousNextDate); err != nil {
		return nil, err
	}

	return &dto.GeneratedEntryResponse{
		TemplateID:         template.TemplateID,
		EntryID:            entryID,
		GeneratedForDate:   generationDate,
		NextGenerationDate: template.NextGenerationDate,
	}, nil
}
