package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	"github.com/openbooks/backoffice_app/internal/core/domain"
	portssvc "github.com/openbooks/backoffice_app/internal/core/ports/services"
	"github.com/openbooks/backoffice_app/internal/core/services"
	"github.com/openbooks/backoffice_app/internal/dto"
	"github.com/openbooks/backoffice_app/internal/middleware"
)

// journalHandler handles HTTP requests related to journal entries.
type journalHandler struct {
	journalService portssvc.JournalSvcFacade
}

// newJournalHandler creates a new journalHandler.
func newJournalHandler(journalService portssvc.JournalSvcFacade) *journalHandler {
	return &journalHandler{
		journalService: journalService,
	}
}

// registerJournalRoutes registers journal entry specific routes under a company.
func registerJournalRoutes(rg *gin.RouterGroup, journalService portssvc.JournalSvcFacade) {
	h := newJournalHandler(journalService)

	entries := rg.Group("/journal-entries")
	{
		entries.POST("", h.createEntry)
		entries.GET("", h.listEntries)
		entries.GET("/:entry_id", h.getEntry)
		entries.PUT("/:entry_id", h.updateEntry)
		entries.POST("/:entry_id/submit", h.submitEntry)
		entries.POST("/:entry_id/approve", h.approveEntry)
		entries.POST("/:entry_id/post", h.postEntry)
		entries.POST("/:entry_id/void", h.voidEntry)
		entries.POST("/:entry_id/reverse", h.reverseEntry)
	}
}

// respondEntryMutationError maps the errors a journal mutation can return onto HTTP statuses.
func respondEntryMutationError(c *gin.Context, logger *slog.Logger, err error, entryID string, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Journal entry not found", slog.String("entry_id", entryID))
		c.JSON(http.StatusNotFound, gin.H{"error": "Journal entry not found"})
	case errors.Is(err, apperrors.ErrInvalidTransition),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrDuplicateReversal),
		errors.Is(err, services.ErrNotDraft):
		logger.Warn("Entry status does not allow this operation", slog.String("entry_id", entryID), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnbalanced),
		errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, services.ErrCurrencyMismatch),
		errors.Is(err, services.ErrEntryMinAccounts),
		errors.Is(err, services.ErrVoidReasonMissing):
		logger.Warn("Validation error on journal mutation", slog.String("entry_id", entryID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()), slog.String("entry_id", entryID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// createEntry godoc
// @Summary Create a journal entry
// @Description Creates a new draft journal entry with its debit and credit lines. Debits must equal credits.
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   entry body dto.CreateJournalEntryRequest true "Entry and lines"
// @Success 201 {object} dto.JournalEntryResponse
// @Failure 400 {object} map[string]string "Invalid input or unbalanced lines"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Referenced account not found"
// @Failure 500 {object} map[string]string "Failed to create entry"
// @Security BearerAuth
// @Router /companies/{company_id}/journal-entries [post]
func (h *journalHandler) createEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.CreateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.journalService.CreateEntry(c.Request.Context(), companyID, req, creatorUserID)
	if err != nil {
		respondEntryMutationError(c, logger, err, "", "Failed to create entry")
		return
	}

	logger.Info("Journal entry created successfully", slog.String("entry_id", entry.EntryID))
	c.JSON(http.StatusCreated, dto.ToJournalEntryResponse(entry))
}

// getEntry godoc
// @Summary Get a journal entry
// @Description Retrieves a journal entry and its lines by ID.
// @Tags journal-entries
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   entry_id path string true "Entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 500 {object} map[string]string "Failed to retrieve entry"
// @Security BearerAuth
// @Router /companies/{company_id}/journal-entries/{entry_id} [get]
func (h *journalHandler) getEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	entryID := c.Param("entry_id")

	entry, err := h.journalService.GetEntryByID(c.Request.Context(), companyID, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Journal entry not found", slog.String("entry_id", entryID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Journal entry not found"})
			return
		}
		logger.Error("Failed to get entry from service", slog.String("error", err.Error()), slog.String("entry_id", entryID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve entry"})
		return
	}

	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// listEntries godoc
// @Summary List journal entries
// @Description Retrieves a page of journal entries ordered by entry date descending. Pagination uses an opaque cursor token.
// @Tags journal-entries
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Cursor from the previous page"
// @Param   includeReversals query bool false "Include reversal entries and reversed entries" default(true)
// @Success 200 {object} dto.ListJournalEntriesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list entries"
// @Security BearerAuth
// @Router /companies/{company_id}/journal-entries [get]
func (h *journalHandler) listEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var params dto.ListJournalEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListEntries", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.journalService.ListEntries(c.Request.Context(), companyID, params)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Invalid pagination token", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination token"})
			return
		}
		logger.Error("Failed to list entries from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list entries"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// updateEntry godoc
// @Summary Update a draft journal entry
// @Description Updates a draft entry's details and optionally replaces its lines. Only drafts are editable.
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   entry_id path string true "Entry ID"
// @Param   entry body dto.UpdateJournalEntryRequest true "Fields to update"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 400 {object} map[string]string "Invalid input or unbalanced lines"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry is not a draft"
// @Failure 500 {object} map[string]string "Failed to update entry"
// @Security BearerAuth
// @Router /companies/{company_id}/journal-entries/{entry_id} [put]
func (h *journalHandler) updateEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	entryID := c.Param("entry_id")

	var req dto.UpdateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.journalService.UpdateEntry(c.Request.Context(), companyID, entryID, req, requestingUserID)
	if err != nil {
		respondEntryMutationError(c, logger, err, entryID, "Failed to update entry")
		return
	}

	logger.Info("Journal entry updated successfully", slog.String("entry_id", entryID))
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// transition runs one of the body-less workflow transitions and renders the result.
func (h *journalHandler) transition(
	c *gin.Context,
	fn func(ctx context.Context, companyID string, entryID string, requestingUserID string) (*domain.JournalEntry, error),
	okMsg string,
	failMsg string,
) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	entryID := c.Param("entry_id")

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := fn(c.Request.Context(), companyID, entryID, requestingUserID)
	if err != nil {
		respondEntryMutationError(c, logger, err, entryID, failMsg)
		return
	}

	logger.Info(okMsg, slog.String("entry_id", entryID))
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// submitEntry godoc
// @Summary Submit a journal entry for approval
// @Description Moves a draft entry to SUBMITTED.
// @Tags journal-entries
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   entry_id path string true "Entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry status does not allow submission"
// @Failure 500 {object} map[string]string "Failed to submit entry"
// @Security BearerAuth
// @Router /companies/{company_id}/journal-entries/{entry_id}/submit [post]
func (h *journalHandler) submitEntry(c *gin.Context) {
	h.transition(c, h.journalService.SubmitEntry, "Journal entry submitted", "Failed to submit entry")
}

// approveEntry godoc
// @Summary Approve a submitted journal entry
// @Description Moves a submitted entry to APPROVED.
// @Tags journal-entries
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   entry_id path string true "Entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry status does not allow approval"
// @Failure 500 {object} map[string]string "Failed to approve entry"
// @Security BearerAuth
// @Router /companies/{company_id}/journal-entries/{entry_id}/approve [post]
func (h *journalHandler) approveEntry(c *gin.Context) {
	h.transition(c, h.journalService.ApproveEntry, "Journal entry approved", "Failed to approve entry")
}

// postEntry godoc
// @Summary Post an approved journal entry
// @Description Moves an approved entry to POSTED and applies its lines to account balances. Posted entries are immutable.
// @Tags journal-entries
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   entry_id path string true "Entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry status does not allow posting"
// @Failure 500 {object} map[string]string "Failed to post entry"
// @Security BearerAuth
// @Router /companies/{company_id}/journal-entries/{entry_id}/post [post]
func (h *journalHandler) postEntry(c *gin.Context) {
	h.transition(c, h.journalService.PostEntry, "Journal entry posted", "Failed to post entry")
}

// voidEntry godoc
// @Summary Void a journal entry
// @Description Voids an entry from any non-terminal status. Voiding a posted entry rolls back the balances it moved. A reason is required.
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   entry_id path string true "Entry ID"
// @Param   void body dto.VoidJournalEntryRequest true "Void reason"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 400 {object} map[string]string "Missing reason"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry status does not allow voiding"
// @Failure 500 {object} map[string]string "Failed to void entry"
// @Security BearerAuth
// @Router /companies/{company_id}/journal-entries/{entry_id}/void [post]
func (h *journalHandler) voidEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	entryID := c.Param("entry_id")

	var req dto.VoidJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for VoidEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.journalService.VoidEntry(c.Request.Context(), companyID, entryID, req, requestingUserID)
	if err != nil {
		respondEntryMutationError(c, logger, err, entryID, "Failed to void entry")
		return
	}

	logger.Info("Journal entry voided", slog.String("entry_id", entryID))
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// reverseEntry godoc
// @Summary Reverse a posted journal entry
// @Description Creates and posts a mirror entry whose lines swap debit and credit. A posted entry can be reversed at most once; the original stays POSTED.
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   entry_id path string true "Entry ID"
// @Param   reverse body dto.ReverseJournalEntryRequest false "Optional reversal overrides"
// @Success 201 {object} dto.JournalEntryResponse
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry not posted or already reversed"
// @Failure 500 {object} map[string]string "Failed to reverse entry"
// @Security BearerAuth
// @Router /companies/{company_id}/journal-entries/{entry_id}/reverse [post]
func (h *journalHandler) reverseEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	entryID := c.Param("entry_id")

	// Body is optional: an empty body reverses with the generated description.
	var req dto.ReverseJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("Failed to bind JSON for ReverseEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	reversal, err := h.journalService.ReverseEntry(c.Request.Context(), companyID, entryID, req, requestingUserID)
	if err != nil {
		respondEntryMutationError(c, logger, err, entryID, "Failed to reverse entry")
		return
	}

	logger.Info("Journal entry reversed", slog.String("entry_id", entryID), slog.String("reversal_entry_id", reversal.EntryID))
	c.JSON(http.StatusCreated, dto.ToJournalEntryResponse(reversal))
}
