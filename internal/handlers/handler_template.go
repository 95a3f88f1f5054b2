package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openbooks/backoffice_app/internal/apperrors"
	portssvc "github.com/openbooks/backoffice_app/internal/core/ports/services"
	"github.com/openbooks/backoffice_app/internal/dto"
	"github.com/openbooks/backoffice_app/internal/middleware"
)

// templateHandler handles HTTP requests related to recurring journal templates.
type templateHandler struct {
	templateService portssvc.TemplateSvcFacade
}

// newTemplateHandler creates a new templateHandler.
func newTemplateHandler(templateService portssvc.TemplateSvcFacade) *templateHandler {
	return &templateHandler{
		templateService: templateService,
	}
}

// registerTemplateRoutes registers recurring template routes under a company.
func registerTemplateRoutes(rg *gin.RouterGroup, templateService portssvc.TemplateSvcFacade) {
	h := newTemplateHandler(templateService)

	templates := rg.Group("/recurring-templates")
	{
		templates.POST("", h.createTemplate)
		templates.GET("", h.listTemplates)
		templates.GET("/:template_id", h.getTemplate)
		templates.PUT("/:template_id", h.updateTemplate)
		templates.DELETE("/:template_id", h.deactivateTemplate)
		templates.POST("/:template_id/generate", h.generateFromTemplate)
		templates.POST("/generate-due", h.generateDueEntries)
		templates.POST("/deactivate-all", h.deactivateAllTemplates)
	}
}

// createTemplate godoc
// @Summary Create a recurring template
// @Description Creates a recurring journal template. Template lines must balance, so every generated entry balances by construction.
// @Tags recurring-templates
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   template body dto.CreateTemplateRequest true "Template details and lines"
// @Success 201 {object} dto.TemplateResponse
// @Failure 400 {object} map[string]string "Invalid input or unbalanced lines"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Referenced account not found"
// @Failure 500 {object} map[string]string "Failed to create template"
// @Security BearerAuth
// @Router /companies/{company_id}/recurring-templates [post]
func (h *templateHandler) createTemplate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateTemplate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	tmpl, err := h.templateService.CreateTemplate(c.Request.Context(), companyID, req, creatorUserID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUnbalanced), errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Validation error creating template", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Referenced account not found", slog.String("error", err.Error()))
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to create template in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		}
		return
	}

	logger.Info("Recurring template created successfully", slog.String("template_id", tmpl.TemplateID))
	c.JSON(http.StatusCreated, dto.ToTemplateResponse(tmpl))
}

// getTemplate godoc
// @Summary Get a recurring template
// @Description Retrieves a recurring template and its lines by ID.
// @Tags recurring-templates
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   template_id path string true "Template ID"
// @Success 200 {object} dto.TemplateResponse
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 500 {object} map[string]string "Failed to retrieve template"
// @Security BearerAuth
// @Router /companies/{company_id}/recurring-templates/{template_id} [get]
func (h *templateHandler) getTemplate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	templateID := c.Param("template_id")

	tmpl, err := h.templateService.GetTemplateByID(c.Request.Context(), companyID, templateID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Template not found", slog.String("template_id", templateID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		logger.Error("Failed to get template from service", slog.String("error", err.Error()), slog.String("template_id", templateID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve template"})
		return
	}

	c.JSON(http.StatusOK, dto.ToTemplateResponse(tmpl))
}

// listTemplates godoc
// @Summary List recurring templates
// @Description Retrieves a paginated list of recurring templates, ordered by name.
// @Tags recurring-templates
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   limit query int false "Page size" default(20)
// @Param   offset query int false "Offset" default(0)
// @Param   activeOnly query bool false "Only active templates" default(false)
// @Success 200 {object} dto.ListTemplatesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list templates"
// @Security BearerAuth
// @Router /companies/{company_id}/recurring-templates [get]
func (h *templateHandler) listTemplates(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var params dto.ListTemplatesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListTemplates", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.templateService.ListTemplates(c.Request.Context(), companyID, params)
	if err != nil {
		logger.Error("Failed to list templates from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// updateTemplate godoc
// @Summary Update a recurring template
// @Description Updates a template's details and optionally replaces its lines. New lines must balance.
// @Tags recurring-templates
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   template_id path string true "Template ID"
// @Param   template body dto.UpdateTemplateRequest true "Fields to update"
// @Success 200 {object} dto.TemplateResponse
// @Failure 400 {object} map[string]string "Invalid input or unbalanced lines"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 500 {object} map[string]string "Failed to update template"
// @Security BearerAuth
// @Router /companies/{company_id}/recurring-templates/{template_id} [put]
func (h *templateHandler) updateTemplate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	templateID := c.Param("template_id")

	var req dto.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateTemplate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	tmpl, err := h.templateService.UpdateTemplate(c.Request.Context(), companyID, templateID, req, requestingUserID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Template not found for update", slog.String("template_id", templateID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		case errors.Is(err, apperrors.ErrUnbalanced), errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Validation error updating template", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to update template in service", slog.String("error", err.Error()), slog.String("template_id", templateID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template"})
		}
		return
	}

	logger.Info("Recurring template updated successfully", slog.String("template_id", templateID))
	c.JSON(http.StatusOK, dto.ToTemplateResponse(tmpl))
}

// deactivateTemplate godoc
// @Summary Deactivate a recurring template
// @Description Marks a template inactive so it stops generating entries. Generated history is kept. A reason is required.
// @Tags recurring-templates
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   template_id path string true "Template ID"
// @Param   deactivation body dto.DeactivateTemplateRequest true "Deactivation reason"
// @Success 204 "Template deactivated"
// @Failure 400 {object} map[string]string "Missing reason"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 500 {object} map[string]string "Failed to deactivate template"
// @Security BearerAuth
// @Router /companies/{company_id}/recurring-templates/{template_id} [delete]
func (h *templateHandler) deactivateTemplate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	templateID := c.Param("template_id")

	var req dto.DeactivateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for DeactivateTemplate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := h.templateService.DeactivateTemplate(c.Request.Context(), companyID, templateID, req, requestingUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Template not found for deactivation", slog.String("template_id", templateID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		} else {
			logger.Error("Failed to deactivate template in service", slog.String("error", err.Error()), slog.String("template_id", templateID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate template"})
		}
		return
	}

	logger.Info("Recurring template deactivated", slog.String("template_id", templateID))
	c.Status(http.StatusNoContent)
}

// deactivateAllTemplates godoc
// @Summary Deactivate every active template
// @Description Marks all active templates of the company inactive and reports how many were affected.
// @Tags recurring-templates
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   deactivation body dto.DeactivateAllTemplatesRequest true "Deactivation reason"
// @Success 200 {object} dto.DeactivateAllTemplatesResponse
// @Failure 400 {object} map[string]string "Missing reason"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to deactivate templates"
// @Security BearerAuth
// @Router /companies/{company_id}/recurring-templates/deactivate-all [post]
func (h *templateHandler) deactivateAllTemplates(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.DeactivateAllTemplatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for DeactivateAllTemplates", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.templateService.DeactivateAllTemplates(c.Request.Context(), companyID, req, requestingUserID)
	if err != nil {
		logger.Error("Failed to deactivate all templates in service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate templates"})
		return
	}

	logger.Info("All active templates deactivated", slog.Int("deactivated_count", resp.DeactivatedCount))
	c.JSON(http.StatusOK, resp)
}

// generateFromTemplate godoc
// @Summary Generate the next entry from one template
// @Description Generates the next occurrence of a template as a draft journal entry and advances the schedule one step. Force generates even when the template is not yet due.
// @Tags recurring-templates
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   template_id path string true "Template ID"
// @Param   generation body dto.GenerateEntriesRequest false "Generation options"
// @Success 200 {object} dto.GenerateEntriesResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 409 {object} map[string]string "Template inactive or schedule raced"
// @Failure 500 {object} map[string]string "Failed to generate entry"
// @Security BearerAuth
// @Router /companies/{company_id}/recurring-templates/{template_id}/generate [post]
func (h *templateHandler) generateFromTemplate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	templateID := c.Param("template_id")

	// Body is optional: an empty body generates only if the template is due.
	var req dto.GenerateEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("Failed to bind JSON for GenerateFromTemplate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.templateService.GenerateFromTemplate(c.Request.Context(), companyID, templateID, req, requestingUserID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Template not found for generation", slog.String("template_id", templateID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		case errors.Is(err, apperrors.ErrScheduleNotDue), errors.Is(err, apperrors.ErrConflict):
			logger.Warn("Template cannot generate", slog.String("template_id", templateID), slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to generate entry from template", slog.String("error", err.Error()), slog.String("template_id", templateID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate entry"})
		}
		return
	}

	logger.Info("Template generation run finished", slog.String("template_id", templateID), slog.Int("generated_count", len(resp.Generated)))
	c.JSON(http.StatusOK, resp)
}

// generateDueEntries godoc
// @Summary Generate entries for every due template
// @Description Runs the scheduler for the company: every active template whose next generation date has arrived produces one draft entry and advances one step.
// @Tags recurring-templates
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   generation body dto.GenerateEntriesRequest false "Generation options"
// @Success 200 {object} dto.GenerateEntriesResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to run generation"
// @Security BearerAuth
// @Router /companies/{company_id}/recurring-templates/generate-due [post]
func (h *templateHandler) generateDueEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.GenerateEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("Failed to bind JSON for GenerateDueEntries", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.templateService.GenerateDueEntries(c.Request.Context(), companyID, req, requestingUserID)
	if err != nil {
		logger.Error("Failed to run due generation", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run generation"})
		return
	}

	logger.Info("Due generation run finished", slog.Int("generated_count", len(resp.Generated)))
	c.JSON(http.StatusOK, resp)
}
