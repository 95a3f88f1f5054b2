package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
	portsrepo "github.com/openbooks/backoffice_app/internal/core/ports/repositories"
)

type PgxTemplateRepository struct {
	BaseRepository
	auditRepo portsrepo.AuditRepositoryFacade
}

// newPgxTemplateRepository creates a new repository for recurring template
// data. Generated entries go through the same insert helpers as manually
// created ones.
func newPgxTemplateRepository(pool *pgxpool.Pool, auditRepo portsrepo.AuditRepositoryFacade) portsrepo.TemplateRepositoryWithTx {
	return &PgxTemplateRepository{
		BaseRepository: BaseRepository{Pool: pool},
		auditRepo:      auditRepo,
	}
}

// Ensure PgxTemplateRepository implements portsrepo.TemplateRepositoryWithTx
var _ portsrepo.TemplateRepositoryWithTx = (*PgxTemplateRepository)(nil)

const templateColumns = `
	template_id, company_id, name, description, frequency, recurrence_interval,
	start_date, end_date, next_generation_date, is_active, deactivation_reason,
	currency_code, entry_type, created_at, created_by, last_updated_at, last_updated_by
`

const templateLineColumns = `
	line_id, template_id, account_id, side, amount, description,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanTemplate(row pgx.Row) (domain.RecurringJournalTemplate, error) {
	var t domain.RecurringJournalTemplate
	err := row.Scan(
		&t.TemplateID,
		&t.CompanyID,
		&t.Name,
		&t.Description,
		&t.Frequency,
		&t.Interval,
		&t.StartDate,
		&t.EndDate,
		&t.NextGenerationDate,
		&t.IsActive,
		&t.DeactivationReason,
		&t.CurrencyCode,
		&t.EntryType,
		&t.CreatedAt,
		&t.CreatedBy,
		&t.LastUpdatedAt,
		&t.LastUpdatedBy,
	)
	return t, err
}

// insertTemplateLinesInTx batch-inserts template lines within the given transaction.
func insertTemplateLinesInTx(ctx context.Context, tx pgx.Tx, lines []domain.TemplateLine) error {
	query := `
		INSERT INTO recurring_template_lines (` + templateLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(query,
			line.LineID,
			line.TemplateID,
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
		return apperrors.NewAppError(500, "failed to insert template lines", err)
	}
	return nil
}

// SaveTemplate persists a new template and its lines.
func (r *PgxTemplateRepository) SaveTemplate(ctx context.Context, template domain.RecurringJournalTemplate) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		INSERT INTO recurring_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err = tx.Exec(ctx, query,
		template.TemplateID,
		template.CompanyID,
		template.Name,
		template.Description,
		template.Frequency,
		template.Interval,
		template.StartDate,
		template.EndDate,
		template.NextGenerationDate,
		template.IsActive,
		template.DeactivationReason,
		template.CurrencyCode,
		template.EntryType,
		template.CreatedAt,
		template.CreatedBy,
		template.LastUpdatedAt,
		template.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert template "+template.TemplateID, err)
	}

	if err := insertTemplateLinesInTx(ctx, tx, template.Lines); err != nil {
		return err
	}
	if err := r.auditRepo.SaveAuditEventInTx(ctx, tx, newAuditEvent(template.CompanyID, "recurring_template", template.TemplateID, "template.created", template.CreatedBy, template.CreatedAt, nil)); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// FindTemplateByID retrieves a specific template with its lines.
func (r *PgxTemplateRepository) FindTemplateByID(ctx context.Context, companyID string, templateID string) (*domain.RecurringJournalTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_templates WHERE company_id = $1 AND template_id = $2;`
	template, err := scanTemplate(r.Pool.QueryRow(ctx, query, companyID, templateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find template by ID "+templateID, err)
	}

	lines, err := r.findTemplateLines(ctx, templateID)
	if err != nil {
		return nil, err
	}
	template.Lines = lines

	return &template, nil
}

func (r *PgxTemplateRepository) findTemplateLines(ctx context.Context, templateID string) ([]domain.TemplateLine, error) {
	query := `SELECT ` + templateLineColumns + ` FROM recurring_template_lines WHERE template_id = $1 ORDER BY created_at, line_id;`
	rows, err := r.Pool.Query(ctx, query, templateID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines for template "+templateID, err)
	}
	defer rows.Close()

	lines := []domain.TemplateLine{}
	for rows.Next() {
		var l domain.TemplateLine
		if err := rows.Scan(
			&l.LineID,
			&l.TemplateID,
			&l.AccountID,
			&l.Side,
			&l.Amount,
			&l.Description,
			&l.CreatedAt,
			&l.CreatedBy,
			&l.LastUpdatedAt,
			&l.LastUpdatedBy,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan template line row for template "+templateID, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating template line rows for template "+templateID, err)
	}

	return lines, nil
}

// ListTemplatesByCompany retrieves a paginated list of templates for a given company.
func (r *PgxTemplateRepository) ListTemplatesByCompany(ctx context.Context, companyID string, activeOnly bool, limit int, offset int) ([]domain.RecurringJournalTemplate, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + templateColumns + ` FROM recurring_templates WHERE company_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY name, template_id LIMIT $2 OFFSET $3;`

	rows, err := r.Pool.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query templates for company "+companyID, err)
	}
	defer rows.Close()

	templates := []domain.RecurringJournalTemplate{}
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan template row", err)
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating template rows", err)
	}

	return templates, nil
}

// FindDueTemplates retrieves active templates whose next generation date is at
// or before asOf, oldest due first.
func (r *PgxTemplateRepository) FindDueTemplates(ctx context.Context, companyID string, asOf time.Time, limit int) ([]domain.RecurringJournalTemplate, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + templateColumns + `
		FROM recurring_templates
		WHERE company_id = $1 AND is_active = TRUE AND next_generation_date <= $2
		ORDER BY next_generation_date, template_id
		LIMIT $3;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, asOf, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query due templates for company "+companyID, err)
	}
	defer rows.Close()

	templates := []domain.RecurringJournalTemplate{}
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan due template row", err)
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating due template rows", err)
	}

	// Attach lines; due batches are small enough to fetch per template.
	for i := range templates {
		lines, err := r.findTemplateLines(ctx, templates[i].TemplateID)
		if err != nil {
			return nil, err
		}
		templates[i].Lines = lines
	}

	return templates, nil
}

// UpdateTemplate updates a template's details and replaces its lines.
func (r *PgxTemplateRepository) UpdateTemplate(ctx context.Context, template domain.RecurringJournalTemplate) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE recurring_templates
		SET name = $3,
		    description = $4,
		    end_date = $5,
		    last_updated_at = $6,
		    last_updated_by = $7
		WHERE company_id = $1 AND template_id = $2;
	`
	cmdTag, err := tx.Exec(ctx, query,
		template.CompanyID,
		template.TemplateID,
		template.Name,
		template.Description,
		template.EndDate,
		template.LastUpdatedAt,
		template.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update template "+template.TemplateID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("template " + template.TemplateID + " not found for update")
	}

	if template.Lines != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM recurring_template_lines WHERE template_id = $1;`, template.TemplateID); err != nil {
			return apperrors.NewAppError(500, "failed to delete lines for template "+template.TemplateID, err)
		}
		if err := insertTemplateLinesInTx(ctx, tx, template.Lines); err != nil {
			return err
		}
	}

	if err := r.auditRepo.SaveAuditEventInTx(ctx, tx, newAuditEvent(template.CompanyID, "recurring_template", template.TemplateID, "template.updated", template.LastUpdatedBy, template.LastUpdatedAt, nil)); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// DeactivateTemplate marks a single template inactive with a reason.
func (r *PgxTemplateRepository) DeactivateTemplate(ctx context.Context, companyID string, templateID string, reason string, userID string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE recurring_templates
		SET is_active = FALSE,
		    deactivation_reason = $3,
		    last_updated_at = $4,
		    last_updated_by = $5
		WHERE company_id = $1 AND template_id = $2;
	`
	cmdTag, err := tx.Exec(ctx, query, companyID, templateID, reason, now, userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to deactivate template "+templateID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("template " + templateID + " not found for deactivation")
	}

	if err := r.auditRepo.SaveAuditEventInTx(ctx, tx, newAuditEvent(companyID, "recurring_template", templateID, "template.deactivated", userID, now, map[string]string{"reason": reason})); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// DeactivateAllTemplates marks every active template of a company inactive and
// returns how many were affected.
func (r *PgxTemplateRepository) DeactivateAllTemplates(ctx context.Context, companyID string, reason string, userID string, now time.Time) (int, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE recurring_templates
		SET is_active = FALSE,
		    deactivation_reason = $2,
		    last_updated_at = $3,
		    last_updated_by = $4
		WHERE company_id = $1 AND is_active = TRUE;
	`
	cmdTag, err := tx.Exec(ctx, query, companyID, reason, now, userID)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to deactivate templates for company "+companyID, err)
	}
	count := int(cmdTag.RowsAffected())

	if count > 0 {
		if err := r.auditRepo.SaveAuditEventInTx(ctx, tx, newAuditEvent(companyID, "recurring_template", companyID, "template.deactivated_all", userID, now, map[string]string{"reason": reason})); err != nil {
			return 0, err
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return 0, err
	}
	return count, nil
}

// SaveGeneratedEntry persists a generated draft entry with its lines, records
// the generation, and advances the template's schedule, all within one
// transaction. The advance is guarded on previousNextDate so two runs can
// never materialize the same occurrence twice.
func (r *PgxTemplateRepository) SaveGeneratedEntry(ctx context.Context, template domain.RecurringJournalTemplate, entry domain.JournalEntry, lines []domain.JournalLine, previousNextDate time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	advanceQuery := `
		UPDATE recurring_templates
		SET next_generation_date = $3,
		    last_updated_at = $4,
		    last_updated_by = $5
		WHERE company_id = $1 AND template_id = $2 AND is_active = TRUE AND next_generation_date = $6;
	`
	cmdTag, err := tx.Exec(ctx, advanceQuery,
		template.CompanyID,
		template.TemplateID,
		template.NextGenerationDate,
		template.LastUpdatedAt,
		template.LastUpdatedBy,
		previousNextDate,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to advance schedule for template "+template.TemplateID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	entryQuery := `
		INSERT INTO journal_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	_, err = tx.Exec(ctx, entryQuery,
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
		return apperrors.NewAppError(500, "failed to insert generated entry "+entry.EntryID, err)
	}

	if err := insertLinesInTx(ctx, tx, lines); err != nil {
		return err
	}

	generationQuery := `
		INSERT INTO template_generations (template_id, generation_date, entry_id, generated_at, generated_by)
		VALUES ($1, $2, $3, $4, $5);
	`
	if _, err := tx.Exec(ctx, generationQuery, template.TemplateID, previousNextDate, entry.EntryID, entry.CreatedAt, entry.CreatedBy); err != nil {
		return apperrors.NewAppError(500, "failed to record generation for template "+template.TemplateID, err)
	}

	if err := r.auditRepo.SaveAuditEventInTx(ctx, tx, newAuditEvent(template.CompanyID, "recurring_template", template.TemplateID, "template.generated", entry.CreatedBy, entry.CreatedAt, map[string]string{"entry_id": entry.EntryID})); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}
