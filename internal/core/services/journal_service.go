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
	"github.com/openbooks/backoffice_app/internal/utils/accounting"
)

var (
	ErrEntryMinAccounts   = errors.New("entry must affect at least two different accounts")
	ErrCurrencyMismatch   = errors.New("account currency does not match entry currency")
	ErrNotDraft           = errors.New("only draft entries can be edited")
	ErrDescriptionMissing = errors.New("entry description is required")
	ErrVoidReasonMissing  = errors.New("void reason is required")
)

// journalService drives the journal entry lifecycle: draft, submit, approve,
// post, void and reverse.
type journalService struct {
	journalRepo portsrepo.JournalRepositoryFacade
	accountRepo portsrepo.AccountRepositoryFacade
}

// NewJournalService creates a new JournalService.
func NewJournalService(journalRepo portsrepo.JournalRepositoryFacade, accountRepo portsrepo.AccountRepositoryFacade) portssvc.JournalSvcFacade {
	return &journalService{
		journalRepo: journalRepo,
		accountRepo: accountRepo,
	}
}

// Ensure journalService implements the portssvc.JournalSvcFacade interface
var _ portssvc.JournalSvcFacade = (*journalService)(nil)

// buildLines converts line requests into domain lines belonging to entryID.
func buildLines(reqs []dto.CreateJournalLineRequest, entryID, userID string, now time.Time) []domain.JournalLine {
	lines := make([]domain.JournalLine, len(reqs))
	for i, lineReq := range reqs {
		lines[i] = domain.JournalLine{
			LineID:      uuid.NewString(),
			EntryID:     entryID,
			AccountID:   lineReq.AccountID,
			Side:        lineReq.Side,
			Amount:      lineReq.Amount,
			Description: lineReq.Description,
			AuditFields: domain.NewAuditFields(userID, now),
		}
	}
	return lines
}

// validateLineAccounts fetches the referenced accounts and checks company
// scope, active flag and currency match. Returns the accounts keyed by ID.
func (s *journalService) validateLineAccounts(ctx context.Context, companyID, currencyCode string, lines []domain.JournalLine) (map[string]domain.Account, error) {
	accountIDs := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; !ok {
			seen[line.AccountID] = struct{}{}
			accountIDs = append(accountIDs, line.AccountID)
		}
	}
	if len(accountIDs) < 2 {
		return nil, ErrEntryMinAccounts
	}

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, companyID, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	for _, id := range accountIDs {
		acc, found := accounts[id]
		if !found {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
		if !acc.IsActive {
			return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, id)
		}
		if acc.CurrencyCode != currencyCode {
			return nil, fmt.Errorf("%w: account %s is %s, entry is %s", ErrCurrencyMismatch, id, acc.CurrencyCode, currencyCode)
		}
	}
	return accounts, nil
}

// balanceChangesFor computes per-account balance deltas for an entry's lines.
func balanceChangesFor(lines []domain.JournalLine, accounts map[string]domain.Account) (map[string]decimal.Decimal, error) {
	normals := make(map[string]domain.NormalBalance, len(accounts))
	for id, acc := range accounts {
		normals[id] = acc.NormalSide
	}
	return accounting.BalanceChanges(lines, normals)
}

// CreateEntry validates and persists a new draft entry with its lines.
func (s *journalService) CreateEntry(ctx context.Context, companyID string, req dto.CreateJournalEntryRequest, creatorUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Description == "" {
		return nil, ErrDescriptionMissing
	}

	now := time.Now().UTC()
	entryID := uuid.NewString()
	lines := buildLines(req.Lines, entryID, creatorUserID, now)

	if err := accounting.ValidateBalanced(lines); err != nil {
		return nil, err
	}
	if _, err := s.validateLineAccounts(ctx, companyID, req.CurrencyCode, lines); err != nil {
		return nil, err
	}

	entry := domain.JournalEntry{
		EntryID:      entryID,
		CompanyID:    companyID,
		Description:  req.Description,
		EntryDate:    req.EntryDate,
		EntryType:    req.EntryType,
		Status:       domain.EntryDraft,
		Reference:    req.Reference,
		CurrencyCode: req.CurrencyCode,
		AuditFields:  domain.NewAuditFields(creatorUserID, now),
	}

	if err := s.journalRepo.SaveEntry(ctx, entry, lines); err != nil {
		logger.Error("Failed to save journal entry", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}

	logger.Info("Journal entry created", slog.String("entry_id", entryID), slog.String("company_id", companyID))
	entry.Lines = lines
	return &entry, nil
}

// GetEntryByID retrieves an entry together with its lines.
func (s *journalService) GetEntryByID(ctx context.Context, companyID string, entryID string) (*domain.JournalEntry, error) {
	entry, err := s.journalRepo.FindEntryByID(ctx, companyID, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to find entry %s: %w", entryID, err)
	}

	lines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve lines for entry %s: %w", entryID, err)
	}
	entry.Lines = lines
	return entry, nil
}

// ListEntries retrieves a paginated list of entries for the company.
func (s *journalService) ListEntries(ctx context.Context, companyID string, params dto.ListJournalEntriesParams) (*dto.ListJournalEntriesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	entries, nextToken, err := s.journalRepo.ListEntriesByCompany(ctx, companyID, limit, params.NextToken, params.IncludeReversals)
	if err != nil {
		logger.Error("Failed to list entries from repository", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to retrieve entries: %w", err)
	}

	responses := make([]dto.JournalEntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = dto.ToJournalEntryResponse(&entry)
	}

	return &dto.ListJournalEntriesResponse{
		Entries:   responses,
		NextToken: nextToken,
	}, nil
}

// ListLinesByAccount retrieves the posted lines touching one account.
func (s *journalService) ListLinesByAccount(ctx context.Context, companyID string, accountID string, params dto.ListAccountLinesParams) (*dto.ListAccountLinesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.accountRepo.FindAccountByID(ctx, companyID, accountID); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	lines, nextToken, err := s.journalRepo.ListLinesByAccountID(ctx, companyID, accountID, limit, params.NextToken)
	if err != nil {
		logger.Error("Failed to list lines by account", slog.String("error", err.Error()), slog.String("account_id", accountID))
		return nil, fmt.Errorf("failed to retrieve lines: %w", err)
	}

	return &dto.ListAccountLinesResponse{
		Lines:     dto.ToJournalLineResponses(lines),
		NextToken: nextToken,
	}, nil
}

// UpdateEntry edits a draft entry. Any other status rejects the edit.
func (s *journalService) UpdateEntry(ctx context.Context, companyID string, entryID string, req dto.UpdateJournalEntryRequest, requestingUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry, err := s.journalRepo.FindEntryByID(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != domain.EntryDraft {
		return nil, fmt.Errorf("%w: entry status is %s", ErrNotDraft, entry.Status)
	}

	now := time.Now().UTC()
	if req.Description != nil {
		entry.Description = *req.Description
	}
	if req.EntryDate != nil {
		entry.EntryDate = *req.EntryDate
	}
	if req.Reference != nil {
		entry.Reference = *req.Reference
	}

	lines := entry.Lines
	if req.Lines != nil {
		lines = buildLines(req.Lines, entryID, requestingUserID, now)
		if err := accounting.ValidateBalanced(lines); err != nil {
			return nil, err
		}
		if _, err := s.validateLineAccounts(ctx, companyID, entry.CurrencyCode, lines); err != nil {
			return nil, err
		}
	} else if lines == nil {
		lines, err = s.journalRepo.FindLinesByEntryID(ctx, entryID)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve lines for entry %s: %w", entryID, err)
		}
	}

	entry.Touch(requestingUserID, now)
	if err := s.journalRepo.UpdateEntry(ctx, *entry, lines); err != nil {
		logger.Error("Failed to save entry update", slog.String("error", err.Error()), slog.String("entry_id", entryID))
		return nil, fmt.Errorf("failed to save entry update: %w", err)
	}

	logger.Info("Journal entry updated", slog.String("entry_id", entryID))
	entry.Lines = lines
	return entry, nil
}

// transition loads the entry, checks the status table and hands the stamped
// entry to the repository with the expected pre-status for guarding.
func (s *journalService) transition(ctx context.Context, companyID, entryID string, target domain.EntryStatus, stamp func(*domain.JournalEntry)) (*domain.JournalEntry, error) {
	entry, err := s.journalRepo.FindEntryByID(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}

	from := entry.Status
	if !from.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, from, target)
	}

	entry.Status = target
	stamp(entry)

	if err := s.journalRepo.UpdateEntryWorkflow(ctx, *entry, from); err != nil {
		return nil, err
	}
	return entry, nil
}

// SubmitEntry moves a draft to submitted. The balance is recomputed from the
// stored lines at this boundary rather than trusted from draft validation.
func (s *journalService) SubmitEntry(ctx context.Context, companyID string, entryID string, requestingUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry, err := s.journalRepo.FindEntryByID(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}

	from := entry.Status
	if !from.CanTransitionTo(domain.EntrySubmitted) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, from, domain.EntrySubmitted)
	}

	lines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve lines for entry %s: %w", entryID, err)
	}
	if err := accounting.ValidateBalanced(lines); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry.Status = domain.EntrySubmitted
	entry.SubmittedAt = &now
	entry.Touch(requestingUserID, now)

	if err := s.journalRepo.UpdateEntryWorkflow(ctx, *entry, from); err != nil {
		return nil, err
	}

	logger.Info("Journal entry submitted", slog.String("entry_id", entryID))
	return entry, nil
}

// ApproveEntry moves a submitted entry to approved.
func (s *journalService) ApproveEntry(ctx context.Context, companyID string, entryID string, requestingUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now().UTC()

	entry, err := s.transition(ctx, companyID, entryID, domain.EntryApproved, func(e *domain.JournalEntry) {
		e.ApprovedAt = &now
		e.ApprovedBy = requestingUserID
		e.Touch(requestingUserID, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Journal entry approved", slog.String("entry_id", entryID))
	return entry, nil
}

// PostEntry moves an approved entry to posted, applying its lines to account
// balances inside one repository transaction.
func (s *journalService) PostEntry(ctx context.Context, companyID string, entryID string, requestingUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry, err := s.journalRepo.FindEntryByID(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}
	if !entry.Status.CanTransitionTo(domain.EntryPosted) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, entry.Status, domain.EntryPosted)
	}

	lines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve lines for entry %s: %w", entryID, err)
	}

	// Re-check the invariant at the posting boundary
	if err := accounting.ValidateBalanced(lines); err != nil {
		return nil, err
	}
	accounts, err := s.validateLineAccounts(ctx, companyID, entry.CurrencyCode, lines)
	if err != nil {
		return nil, err
	}
	balanceChanges, err := balanceChangesFor(lines, accounts)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry.Status = domain.EntryPosted
	entry.PostedAt = &now
	entry.PostedBy = requestingUserID
	entry.Touch(requestingUserID, now)

	if err := s.journalRepo.PostEntry(ctx, *entry, balanceChanges); err != nil {
		logger.Error("Failed to post journal entry", slog.String("error", err.Error()), slog.String("entry_id", entryID))
		return nil, err
	}

	logger.Info("Journal entry posted", slog.String("entry_id", entryID), slog.String("company_id", companyID))
	entry.Lines = lines
	return entry, nil
}

// VoidEntry voids an entry from any non-terminal status. Voiding a posted
// entry restores the balances its posting moved, in the same transaction.
func (s *journalService) VoidEntry(ctx context.Context, companyID string, entryID string, req dto.VoidJournalEntryRequest, requestingUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Reason == "" {
		return nil, ErrVoidReasonMissing
	}

	entry, err := s.journalRepo.FindEntryByID(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}

	from := entry.Status
	if !from.CanTransitionTo(domain.EntryVoided) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, from, domain.EntryVoided)
	}
	if entry.ReversedByEntryID != nil {
		return nil, fmt.Errorf("%w: entry %s has been reversed", apperrors.ErrConflict, entryID)
	}

	var balanceChanges map[string]decimal.Decimal
	if from == domain.EntryPosted {
		lines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve lines for entry %s: %w", entryID, err)
		}
		accounts, err := s.accountRepo.FindAccountsByIDs(ctx, companyID, lineAccountIDs(lines))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch accounts: %w", err)
		}
		applied, err := balanceChangesFor(lines, accounts)
		if err != nil {
			return nil, err
		}
		balanceChanges = accounting.NegateChanges(applied)
	}

	now := time.Now().UTC()
	entry.Status = domain.EntryVoided
	entry.VoidedAt = &now
	entry.VoidedBy = requestingUserID
	entry.VoidReason = req.Reason
	entry.Touch(requestingUserID, now)

	if err := s.journalRepo.VoidEntry(ctx, *entry, from, balanceChanges); err != nil {
		logger.Error("Failed to void journal entry", slog.String("error", err.Error()), slog.String("entry_id", entryID))
		return nil, err
	}

	logger.Info("Journal entry voided", slog.String("entry_id", entryID), slog.String("from_status", string(from)))
	return entry, nil
}

// ReverseEntry creates the mirror entry for a posted entry and posts it. The
// original stays posted and is linked to its reversal; a second reversal of
// the same entry is rejected.
func (s *journalService) ReverseEntry(ctx context.Context, companyID string, entryID string, req dto.ReverseJournalEntryRequest, requestingUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.journalRepo.FindEntryByID(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}
	if original.Status != domain.EntryPosted {
		return nil, fmt.Errorf("%w: entry status is %s, expected POSTED", apperrors.ErrInvalidTransition, original.Status)
	}
	if original.ReversedByEntryID != nil {
		return nil, fmt.Errorf("%w: entry %s", apperrors.ErrDuplicateReversal, entryID)
	}
	if original.ReversalOfEntryID != nil {
		return nil, fmt.Errorf("%w: cannot reverse a reversal entry", apperrors.ErrConflict)
	}

	originalLines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve lines for entry %s: %w", entryID, err)
	}

	now := time.Now().UTC()
	reversalID := uuid.NewString()
	mirrored := accounting.MirrorLines(originalLines, reversalID, requestingUserID, now)

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, companyID, lineAccountIDs(mirrored))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	balanceChanges, err := balanceChangesFor(mirrored, accounts)
	if err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Reversal of: %s", original.Description)
	}
	entryDate := now
	if req.EntryDate != nil {
		entryDate = *req.EntryDate
	}

	reversal := domain.JournalEntry{
		EntryID:           reversalID,
		CompanyID:         companyID,
		Description:       description,
		EntryDate:         entryDate,
		EntryType:         original.EntryType,
		Status:            domain.EntryPosted,
		Reference:         "REV-" + original.Reference,
		CurrencyCode:      original.CurrencyCode,
		ReversalOfEntryID: &original.EntryID,
		PostedAt:          &now,
		PostedBy:          requestingUserID,
		AuditFields:       domain.NewAuditFields(requestingUserID, now),
	}

	if err := s.journalRepo.SaveReversal(ctx, reversal, mirrored, original.EntryID, balanceChanges, requestingUserID, now); err != nil {
		logger.Error("Failed to save reversal entry", slog.String("error", err.Error()), slog.String("original_entry_id", entryID))
		return nil, err
	}

	logger.Info("Journal entry reversed", slog.String("original_entry_id", entryID), slog.String("reversal_entry_id", reversalID))
	reversal.Lines = mirrored
	return &reversal, nil
}

// lineAccountIDs collects the distinct account IDs referenced by a line set.
func lineAccountIDs(lines []domain.JournalLine) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; !ok {
			seen[line.AccountID] = struct{}{}
			ids = append(ids, line.AccountID)
		}
	}
	return ids
}
