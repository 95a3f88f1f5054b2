package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	portssvc "github.com/openbooks/backoffice_app/internal/core/ports/services"
	"github.com/openbooks/backoffice_app/internal/dto"
	"github.com/openbooks/backoffice_app/internal/middleware"
)

// ledgerHandler serves the per-account view of posted journal lines.
type ledgerHandler struct {
	journalService portssvc.JournalReaderSvc
}

func newLedgerHandler(journalService portssvc.JournalReaderSvc) *ledgerHandler {
	return &ledgerHandler{
		journalService: journalService,
	}
}

// registerLedgerRoutes registers the account ledger routes under a company.
func registerLedgerRoutes(rg *gin.RouterGroup, journalService portssvc.JournalReaderSvc) {
	h := newLedgerHandler(journalService)

	rg.GET("/accounts/:account_id/lines", h.listAccountLines)
}

// listAccountLines godoc
// @Summary List posted lines for an account
// @Description Retrieves the posted journal lines touching an account, newest entry first. Pagination uses an opaque cursor token.
// @Tags ledger
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   account_id path string true "Account ID"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Cursor from the previous page"
// @Success 200 {object} dto.ListAccountLinesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to list account lines"
// @Security BearerAuth
// @Router /companies/{company_id}/accounts/{account_id}/lines [get]
func (h *ledgerHandler) listAccountLines(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	accountID := c.Param("account_id")

	var params dto.ListAccountLinesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListAccountLines", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.journalService.ListLinesByAccount(c.Request.Context(), companyID, accountID, params)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Account not found for ledger listing", slog.String("account_id", accountID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Invalid pagination token", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination token"})
			return
		}
		logger.Error("Failed to list account lines from service", slog.String("error", err.Error()), slog.String("account_id", accountID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list account lines"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
