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

// invoiceHandler handles HTTP requests related to invoices.
type invoiceHandler struct {
	invoiceService portssvc.InvoiceSvcFacade
}

// newInvoiceHandler creates a new invoiceHandler.
func newInvoiceHandler(invoiceService portssvc.InvoiceSvcFacade) *invoiceHandler {
	return &invoiceHandler{
		invoiceService: invoiceService,
	}
}

// registerInvoiceRoutes registers invoice specific routes under a company.
func registerInvoiceRoutes(rg *gin.RouterGroup, invoiceService portssvc.InvoiceSvcFacade) {
	h := newInvoiceHandler(invoiceService)

	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.createInvoice)
		invoices.GET("", h.listInvoices)
		invoices.GET("/:invoice_id", h.getInvoice)
	}
}

// createInvoice godoc
// @Summary Create an invoice
// @Description Registers a new receivable. The invoice opens with its full amount due.
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   invoice body dto.CreateInvoiceRequest true "Invoice details"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to create invoice"
// @Security BearerAuth
// @Router /companies/{company_id}/invoices [post]
func (h *invoiceHandler) createInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), companyID, req, creatorUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error creating invoice", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to create invoice in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice"})
		}
		return
	}

	logger.Info("Invoice created successfully", slog.String("invoice_id", invoice.InvoiceID))
	c.JSON(http.StatusCreated, dto.ToInvoiceResponse(invoice))
}

// getInvoice godoc
// @Summary Get an invoice
// @Description Retrieves a single invoice by its ID.
// @Tags invoices
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   invoice_id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 500 {object} map[string]string "Failed to retrieve invoice"
// @Security BearerAuth
// @Router /companies/{company_id}/invoices/{invoice_id} [get]
func (h *invoiceHandler) getInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	invoiceID := c.Param("invoice_id")

	invoice, err := h.invoiceService.GetInvoiceByID(c.Request.Context(), companyID, invoiceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Invoice not found", slog.String("invoice_id", invoiceID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
			return
		}
		logger.Error("Failed to get invoice from service", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve invoice"})
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceResponse(invoice))
}

// listInvoices godoc
// @Summary List invoices
// @Description Retrieves a paginated list of invoices, optionally filtered by status, ordered by due date.
// @Tags invoices
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   status query string false "Filter by status" Enums(OPEN, PARTIALLY_PAID, PAID, CANCELLED)
// @Param   limit query int false "Page size" default(20)
// @Param   offset query int false "Offset" default(0)
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list invoices"
// @Security BearerAuth
// @Router /companies/{company_id}/invoices [get]
func (h *invoiceHandler) listInvoices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var params dto.ListInvoicesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListInvoices", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.invoiceService.ListInvoices(c.Request.Context(), companyID, params)
	if err != nil {
		logger.Error("Failed to list invoices from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list invoices"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
