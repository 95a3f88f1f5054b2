package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/openbooks/backoffice_app/internal/core/ports/services"
	"github.com/openbooks/backoffice_app/internal/dto"
	"github.com/openbooks/backoffice_app/internal/middleware"
)

// auditHandler serves the audit trail of ledger entities.
type auditHandler struct {
	auditService portssvc.AuditSvcFacade
}

func newAuditHandler(auditService portssvc.AuditSvcFacade) *auditHandler {
	return &auditHandler{
		auditService: auditService,
	}
}

// registerAuditRoutes registers the audit trail routes under a company.
func registerAuditRoutes(rg *gin.RouterGroup, auditService portssvc.AuditSvcFacade) {
	h := newAuditHandler(auditService)

	rg.GET("/audit-events", h.listAuditEvents)
}

// listAuditEvents godoc
// @Summary List audit events for an entity
// @Description Retrieves the audit trail of a journal entry, recurring template or payment, newest first.
// @Tags audit
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   entityType query string true "Entity type" Enums(journal_entry, recurring_template, payment)
// @Param   entityID query string true "Entity ID"
// @Param   limit query int false "Page size" default(20)
// @Param   offset query int false "Offset" default(0)
// @Success 200 {object} dto.ListAuditEventsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list audit events"
// @Security BearerAuth
// @Router /companies/{company_id}/audit-events [get]
func (h *auditHandler) listAuditEvents(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var params dto.ListAuditEventsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListAuditEvents", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.auditService.ListAuditEvents(c.Request.Context(), companyID, params)
	if err != nil {
		logger.Error("Failed to list audit events from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list audit events"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
