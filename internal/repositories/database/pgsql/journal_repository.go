package pgsql

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
	"github.com/openbooks/backoffice_app/internal/utils/pagination"
)

type PgxJournalRepository struct {
	BaseRepository
	accountRepo portsrepo.AccountRepositoryFacade
	auditRepo   portsrepo.AuditRepositoryFacade
}

// newPgxJournalRepository creates a new repository for journal entry and line data.
func newPgxJournalRepository(pool *pgxpool.Pool, accountRepo portsrepo.AccountRepositoryFacade, auditRepo portsrepo.AuditRepositoryFacade) portsrepo.JournalRepositoryWithTx {
	return &PgxJournalRepository{
		BaseRepository: BaseRepository{Pool: pool},
		accountRepo:    accountRepo,
		auditRepo:      auditRepo,
	}
}

// Ensure PgxJournalRepository implements portsrepo.JournalRepositoryWithTx
var _ portsrepo.JournalRepositoryWithTx = (*PgxJournalRepository)(nil)

const entryColumns = `
	entry_id, company_id, description, entry_date, entry_type, status, reference, currency_code,
	reversal_of_entry_id, reversed_by_entry_id,
	submitted_at, approved_at, approved_by, posted_at, posted_by, voided_at, voided_by, void_reason,
	created_at, created_by, last_updated_at, last_updated_by
`

const lineColumns = `
	line_id, entry_id, account_id, side, amount, description,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanEntry(row pgx.Row) (domain.JournalEntry, error) {
	var e domain.JournalEntry
	err := row.Scan(
		&e.EntryID,
		&e.CompanyID,
		&e.Description,
		&e.EntryDate,
		&e.EntryType,
		&e.Status,
		&e.Reference,
		&e.CurrencyCode,
		&e.ReversalOfEntryID,
		&e.ReversedByEntryID,
		&e.SubmittedAt,
		&e.ApprovedAt,
		&e.ApprovedBy,
		&e.PostedAt,
		&e.PostedBy,
		&e.VoidedAt,
		&e.VoidedBy,
		&e.VoidReason,
		&e.CreatedAt,
		&e.CreatedBy,
		&e.LastUpdatedAt,
		&e.LastUpdatedBy,
	)
	return e, err
}

func scanLine(row pgx.Row) (domain.JournalLine, error) {
	var l domain.JournalLine
	err := row.Scan(
		&l.LineID,
		&l.EntryID,
		&l.AccountID,
		&l.Side,
		&l.Amount,
		&l.Description,
		&l.CreatedAt,
		&l.CreatedBy,
		&l.LastUpdatedAt,
		&l.LastUpdatedBy,
	)
	return l, err
}

// insertEntryInTx inserts one journal entry row within the given transaction.
func (r *PgxJournalRepository) insertEntryInTx(ctx context.Context, tx pgx.Tx, entry domain.JournalEntry) error {
	query := `
		INSERT INTO journal_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	_, err := tx.Exec(ctx, query,
		entry.EntryID,
		entry.CompanyID,
		entry.Description,
		entry.EntryDate,
		entry.EntryType,
		entry.Status,
		entry.Reference,
		entry.CurrencyCode,
		entry.ReversalOfEntryID,
		entry.ReversedByEntryID,
		entry.SubmittedAt,
		entry.ApprovedAt,
		entry.ApprovedBy,
		entry.PostedAt,
		entry.PostedBy,
		entry.VoidedAt,
		entry.VoidedBy,
		entry.VoidReason,
		entry.CreatedAt,
		entry.CreatedBy,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert journal entry "+entry.EntryID, err)
	}
	return nil
}

// insertLinesInTx batch-inserts journal lines within the given transaction.
func insertLinesInTx(ctx context.Context, tx pgx.Tx, lines []domain.JournalLine) error {
	query := `
		INSERT INTO journal_lines (` + lineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(query,
			line.LineID,
			line.EntryID,
			line.AccountID,
			line.Side,
			line.Amount,
			line.Description,
			line.CreatedAt,
			line.CreatedBy,
			line.LastUpdatedAt,
			line.LastUpdatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to insert journal lines", err)
	}
	return nil
}

// SaveEntry persists a new draft entry and its lines.
func (r *PgxJournalRepository) SaveEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := r.insertEntryInTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := insertLinesInTx(ctx, tx, lines); err != nil {
		return err
	}
	if err := r.auditInTx(ctx, tx, entry.CompanyID, "journal_entry", entry.EntryID, "journal.created", entry.CreatedBy, entry.CreatedAt, nil); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// UpdateEntry rewrites a draft entry's details and replaces its lines. The
// update is guarded on the draft status so a concurrently submitted entry is
// never rewritten.
func (r *PgxJournalRepository) UpdateEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE journal_entries
		SET description = $3,
		    entry_date = $4,
		    reference = $5,
		    last_updated_at = $6,
		    last_updated_by = $7
		WHERE company_id = $1 AND entry_id = $2 AND status = 'DRAFT';
	`
	cmdTag, err := tx.Exec(ctx, query,
		entry.CompanyID,
		entry.EntryID,
		entry.Description,
		entry.EntryDate,
		entry.Reference,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update journal entry "+entry.EntryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	if _, err := tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id = $1;`, entry.EntryID); err != nil {
		return apperrors.NewAppError(500, "failed to delete journal lines for entry "+entry.EntryID, err)
	}
	if err := insertLinesInTx(ctx, tx, lines); err != nil {
		return err
	}
	if err := r.auditInTx(ctx, tx, entry.CompanyID, "journal_entry", entry.EntryID, "journal.updated", entry.LastUpdatedBy, entry.LastUpdatedAt, nil); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// updateWorkflowInTx rewrites an entry's workflow columns guarded on the
// expected current status. Zero affected rows means a concurrent transition.
func (r *PgxJournalRepository) updateWorkflowInTx(ctx context.Context, tx pgx.Tx, entry domain.JournalEntry, expectedStatus domain.EntryStatus) error {
	query := `
		UPDATE journal_entries
		SET status = $4,
		    submitted_at = $5,
		    approved_at = $6,
		    approved_by = $7,
		    posted_at = $8,
		    posted_by = $9,
		    voided_at = $10,
		    voided_by = $11,
		    void_reason = $12,
		    last_updated_at = $13,
		    last_updated_by = $14
		WHERE company_id = $1 AND entry_id = $2 AND status = $3;
	`
	cmdTag, err := tx.Exec(ctx, query,
		entry.CompanyID,
		entry.EntryID,
		expectedStatus,
		entry.Status,
		entry.SubmittedAt,
		entry.ApprovedAt,
		entry.ApprovedBy,
		entry.PostedAt,
		entry.PostedBy,
		entry.VoidedAt,
		entry.VoidedBy,
		entry.VoidReason,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update workflow for entry "+entry.EntryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

// UpdateEntryWorkflow moves an entry between workflow statuses.
func (r *PgxJournalRepository) UpdateEntryWorkflow(ctx context.Context, entry domain.JournalEntry, expectedStatus domain.EntryStatus) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := r.updateWorkflowInTx(ctx, tx, entry, expectedStatus); err != nil {
		return err
	}
	action := "journal." + string(entry.Status)
	if err := r.auditInTx(ctx, tx, entry.CompanyID, "journal_entry", entry.EntryID, action, entry.LastUpdatedBy, entry.LastUpdatedAt, nil); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// PostEntry transitions an approved entry to posted and applies its balance
// changes to the affected accounts, all within one transaction.
func (r *PgxJournalRepository) PostEntry(ctx context.Context, entry domain.JournalEntry, balanceChanges map[string]decimal.Decimal) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := r.updateWorkflowInTx(ctx, tx, entry, domain.EntryApproved); err != nil {
		return err
	}
	if err := r.applyBalanceChangesInTx(ctx, tx, entry.CompanyID, balanceChanges, entry.LastUpdatedBy, entry.LastUpdatedAt); err != nil {
		return err
	}
	if err := r.auditInTx(ctx, tx, entry.CompanyID, "journal_entry", entry.EntryID, "journal.posted", entry.LastUpdatedBy, entry.LastUpdatedAt, nil); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// VoidEntry marks an entry voided, restoring account balances when the entry
// had been posted.
func (r *PgxJournalRepository) VoidEntry(ctx context.Context, entry domain.JournalEntry, expectedStatus domain.EntryStatus, balanceChanges map[string]decimal.Decimal) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := r.updateWorkflowInTx(ctx, tx, entry, expectedStatus); err != nil {
		return err
	}
	if len(balanceChanges) > 0 {
		if err := r.applyBalanceChangesInTx(ctx, tx, entry.CompanyID, balanceChanges, entry.LastUpdatedBy, entry.LastUpdatedAt); err != nil {
			return err
		}
	}
	if err := r.auditInTx(ctx, tx, entry.CompanyID, "journal_entry", entry.EntryID, "journal.voided", entry.LastUpdatedBy, entry.LastUpdatedAt, map[string]string{"reason": entry.VoidReason}); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// SaveReversal persists the mirror entry with its lines, links the original to
// it, and applies the reversal's balance changes, all within one transaction.
// The link update is guarded so only one reversal ever attaches to an entry.
func (r *PgxJournalRepository) SaveReversal(ctx context.Context, reversal domain.JournalEntry, lines []domain.JournalLine, originalEntryID string, balanceChanges map[string]decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	linkQuery := `
		UPDATE journal_entries
		SET reversed_by_entry_id = $3,
		    last_updated_at = $4,
		    last_updated_by = $5
		WHERE company_id = $1 AND entry_id = $2 AND status = 'POSTED' AND reversed_by_entry_id IS NULL;
	`
	cmdTag, err := tx.Exec(ctx, linkQuery, reversal.CompanyID, originalEntryID, reversal.EntryID, updatedAt, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to link reversal for entry "+originalEntryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrDuplicateReversal
	}

	if err := r.insertEntryInTx(ctx, tx, reversal); err != nil {
		return err
	}
	if err := insertLinesInTx(ctx, tx, lines); err != nil {
		return err
	}
	if err := r.applyBalanceChangesInTx(ctx, tx, reversal.CompanyID, balanceChanges, updatedBy, updatedAt); err != nil {
		return err
	}
	if err := r.auditInTx(ctx, tx, reversal.CompanyID, "journal_entry", originalEntryID, "journal.reversed", updatedBy, updatedAt, map[string]string{"reversal_entry_id": reversal.EntryID}); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// applyBalanceChangesInTx locks the affected accounts and applies the deltas.
func (r *PgxJournalRepository) applyBalanceChangesInTx(ctx context.Context, tx pgx.Tx, companyID string, balanceChanges map[string]decimal.Decimal, userID string, now time.Time) error {
	accountIDs := make([]string, 0, len(balanceChanges))
	for accountID := range balanceChanges {
		accountIDs = append(accountIDs, accountID)
	}

	if _, err := r.accountRepo.FindAccountsByIDsForUpdate(ctx, tx, companyID, accountIDs); err != nil {
		return apperrors.NewAppError(500, "failed to lock accounts for balance update", err)
	}
	if err := r.accountRepo.UpdateAccountBalancesInTx(ctx, tx, balanceChanges, userID, now); err != nil {
		return apperrors.NewAppError(500, "failed to update account balances", err)
	}
	return nil
}

// auditInTx records an audit event inside the same transaction as the change
// it describes.
func (r *PgxJournalRepository) auditInTx(ctx context.Context, tx pgx.Tx, companyID, entityType, entityID, action, actorID string, occurredAt time.Time, details map[string]string) error {
	return r.auditRepo.SaveAuditEventInTx(ctx, tx, newAuditEvent(companyID, entityType, entityID, action, actorID, occurredAt, details))
}

// FindEntryByID retrieves a specific journal entry scoped to a company.
func (r *PgxJournalRepository) FindEntryByID(ctx context.Context, companyID string, entryID string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE company_id = $1 AND entry_id = $2;`
	entry, err := scanEntry(r.Pool.QueryRow(ctx, query, companyID, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find journal entry by ID "+entryID, err)
	}
	return &entry, nil
}

// ListEntriesByCompany retrieves a paginated list of entries using token-based
// pagination. With includeReversals false, reversal entries and their reversed
// originals are filtered out.
func (r *PgxJournalRepository) ListEntriesByCompany(ctx context.Context, companyID string, limit int, nextToken *string, includeReversals bool) ([]domain.JournalEntry, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra row to know whether a next page exists.
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + entryColumns + ` FROM journal_entries`
	filterClause := `WHERE company_id = $1`
	if !includeReversals {
		filterClause += ` AND reversal_of_entry_id IS NULL AND reversed_by_entry_id IS NULL`
	}
	orderByClause := `ORDER BY entry_date DESC, created_at DESC`

	var rows pgx.Rows
	var err error
	args := []interface{}{companyID}

	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}

		cursorClause := `AND (entry_date, created_at) < ($2, $3)`
		args = append(args, lastDate, lastCreatedAt)

		query := baseQuery + " " + filterClause + " " + cursorClause + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	} else {
		query := baseQuery + " " + filterClause + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	}

	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query journal entries for company "+companyID, err)
	}
	defer rows.Close()

	entries := make([]domain.JournalEntry, 0, fetchLimit)
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan journal entry row", scanErr)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating journal entry rows", err)
	}

	var nextTokenVal *string
	if len(entries) > limit {
		lastEntry := entries[limit-1]
		token := pagination.EncodeToken(lastEntry.EntryDate, lastEntry.CreatedAt)
		nextTokenVal = &token
		entries = entries[:limit]
	}

	return entries, nextTokenVal, nil
}

// FindLinesByEntryID retrieves all lines associated with a single entry.
func (r *PgxJournalRepository) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalLine, error) {
	query := `SELECT ` + lineColumns + ` FROM journal_lines WHERE entry_id = $1 ORDER BY created_at, line_id;`
	rows, err := r.Pool.Query(ctx, query, entryID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines for entry "+entryID, err)
	}
	defer rows.Close()

	lines := []domain.JournalLine{}
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan journal line row for entry "+entryID, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating journal line rows for entry "+entryID, err)
	}

	return lines, nil
}

// FindLinesByEntryIDs retrieves lines for multiple entries, grouped by entry ID.
func (r *PgxJournalRepository) FindLinesByEntryIDs(ctx context.Context, entryIDs []string) (map[string][]domain.JournalLine, error) {
	if len(entryIDs) == 0 {
		return map[string][]domain.JournalLine{}, nil
	}

	query := `SELECT ` + lineColumns + ` FROM journal_lines WHERE entry_id = ANY($1) ORDER BY entry_id, created_at, line_id;`
	rows, err := r.Pool.Query(ctx, query, entryIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines for entry IDs", err)
	}
	defer rows.Close()

	linesMap := make(map[string][]domain.JournalLine)
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan journal line row during batch fetch", err)
		}
		linesMap[line.EntryID] = append(linesMap[line.EntryID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating journal line rows during batch fetch", err)
	}

	// Entries with no lines still get an entry in the map
	for _, entryID := range entryIDs {
		if _, exists := linesMap[entryID]; !exists {
			linesMap[entryID] = []domain.JournalLine{}
		}
	}

	return linesMap, nil
}

// ListLinesByAccountID retrieves a paginated list of posted lines for one
// account using token-based pagination. Reversal entries are included; a
// ledger view must show both sides of a correction.
func (r *PgxJournalRepository) ListLinesByAccountID(ctx context.Context, companyID string, accountID string, limit int, nextToken *string) ([]domain.JournalLine, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	baseQuery := `
		SELECT l.line_id, l.entry_id, l.account_id, l.side, l.amount, l.description,
		       l.created_at, l.created_by, l.last_updated_at, l.last_updated_by, e.entry_date
		FROM journal_lines l
		JOIN journal_entries e ON l.entry_id = e.entry_id
		WHERE l.account_id = $1 AND e.company_id = $2 AND e.status = 'POSTED'
	`
	orderByClause := `ORDER BY e.entry_date DESC, l.created_at DESC`

	var rows pgx.Rows
	var err error
	args := []interface{}{accountID, companyID}

	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}

		cursorClause := `AND (e.entry_date, l.created_at) < ($3, $4)`
		args = append(args, lastDate, lastCreatedAt)

		query := baseQuery + " " + cursorClause + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	} else {
		query := baseQuery + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	}

	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query lines for account "+accountID, err)
	}
	defer rows.Close()

	type lineWithDate struct {
		line      domain.JournalLine
		entryDate time.Time
	}
	results := make([]lineWithDate, 0, fetchLimit)
	for rows.Next() {
		var item lineWithDate
		scanErr := rows.Scan(
			&item.line.LineID,
			&item.line.EntryID,
			&item.line.AccountID,
			&item.line.Side,
			&item.line.Amount,
			&item.line.Description,
			&item.line.CreatedAt,
			&item.line.CreatedBy,
			&item.line.LastUpdatedAt,
			&item.line.LastUpdatedBy,
			&item.entryDate,
		)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan journal line row for account "+accountID, scanErr)
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating journal line rows for account "+accountID, err)
	}

	var nextTokenVal *string
	if len(results) > limit {
		last := results[limit-1]
		token := pagination.EncodeToken(last.entryDate, last.line.CreatedAt)
		nextTokenVal = &token
		results = results[:limit]
	}

	lines := make([]domain.JournalLine, len(results))
	for i, item := range results {
		lines[i] = item.line
	}

	return lines, nextTokenVal, nil
}
