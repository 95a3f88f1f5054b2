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

// paymentHandler handles HTTP requests related to payments and their allocations.
type paymentHandler struct {
	paymentService portssvc.PaymentSvcFacade
}

// newPaymentHandler creates a new paymentHandler.
func newPaymentHandler(paymentService portssvc.PaymentSvcFacade) *paymentHandler {
	return &paymentHandler{
		paymentService: paymentService,
	}
}

// registerPaymentRoutes registers payment and allocation routes under a company.
func registerPaymentRoutes(rg *gin.RouterGroup, paymentService portssvc.PaymentSvcFacade) {
	h := newPaymentHandler(paymentService)

	payments := rg.Group("/payments")
	{
		payments.POST("", h.createPayment)
		payments.GET("", h.listPayments)
		payments.GET("/:payment_id", h.getPayment)
		payments.GET("/:payment_id/allocations", h.listAllocations)
		payments.POST("/:payment_id/allocations", h.allocatePayment)
		payments.POST("/:payment_id/auto-allocate", h.autoAllocatePayment)
		payments.POST("/:payment_id/allocations/:allocation_id/reverse", h.reverseAllocation)
		payments.POST("/:payment_id/reverse", h.reversePayment)
	}
}

// respondAllocationError maps the errors the allocation engine can return onto HTTP statuses.
func respondAllocationError(c *gin.Context, logger *slog.Logger, err error, paymentID string, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found for allocation operation", slog.String("payment_id", paymentID), slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrOverAllocation),
		errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInvalidWeights):
		logger.Warn("Allocation rejected", slog.String("payment_id", paymentID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		logger.Warn("Payment state does not allow this operation", slog.String("payment_id", paymentID), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()), slog.String("payment_id", paymentID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// createPayment godoc
// @Summary Register a payment
// @Description Registers cash received from a customer. The payment starts PENDING with nothing allocated.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   payment body dto.CreatePaymentRequest true "Payment details"
// @Success 201 {object} dto.PaymentResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to register payment"
// @Security BearerAuth
// @Router /companies/{company_id}/payments [post]
func (h *paymentHandler) createPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreatePayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), companyID, req, creatorUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error registering payment", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to register payment in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register payment"})
		}
		return
	}

	logger.Info("Payment registered successfully", slog.String("payment_id", payment.PaymentID))
	c.JSON(http.StatusCreated, dto.ToPaymentResponse(payment))
}

// getPayment godoc
// @Summary Get a payment
// @Description Retrieves a single payment by its ID.
// @Tags payments
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   payment_id path string true "Payment ID"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} map[string]string "Payment not found"
// @Failure 500 {object} map[string]string "Failed to retrieve payment"
// @Security BearerAuth
// @Router /companies/{company_id}/payments/{payment_id} [get]
func (h *paymentHandler) getPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	paymentID := c.Param("payment_id")

	payment, err := h.paymentService.GetPaymentByID(c.Request.Context(), companyID, paymentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Payment not found", slog.String("payment_id", paymentID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		logger.Error("Failed to get payment from service", slog.String("error", err.Error()), slog.String("payment_id", paymentID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve payment"})
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// listPayments godoc
// @Summary List payments
// @Description Retrieves a paginated list of payments, newest payment date first.
// @Tags payments
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   limit query int false "Page size" default(20)
// @Param   offset query int false "Offset" default(0)
// @Success 200 {object} dto.ListPaymentsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list payments"
// @Security BearerAuth
// @Router /companies/{company_id}/payments [get]
func (h *paymentHandler) listPayments(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var params dto.ListPaymentsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListPayments", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.paymentService.ListPayments(c.Request.Context(), companyID, params)
	if err != nil {
		logger.Error("Failed to list payments from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list payments"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// listAllocations godoc
// @Summary List a payment's allocations
// @Description Retrieves all allocations of a payment, newest first, including reversed ones.
// @Tags payments
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   payment_id path string true "Payment ID"
// @Success 200 {array} dto.AllocationResponse
// @Failure 404 {object} map[string]string "Payment not found"
// @Failure 500 {object} map[string]string "Failed to list allocations"
// @Security BearerAuth
// @Router /companies/{company_id}/payments/{payment_id}/allocations [get]
func (h *paymentHandler) listAllocations(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	paymentID := c.Param("payment_id")

	allocations, err := h.paymentService.ListAllocationsByPayment(c.Request.Context(), companyID, paymentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Payment not found for allocation listing", slog.String("payment_id", paymentID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		logger.Error("Failed to list allocations from service", slog.String("error", err.Error()), slog.String("payment_id", paymentID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list allocations"})
		return
	}

	c.JSON(http.StatusOK, dto.ToAllocationResponses(allocations))
}

// allocatePayment godoc
// @Summary Allocate a payment manually
// @Description Applies explicit per-invoice amounts from a payment. Each amount is capped by the invoice balance due and the payment's unallocated remainder.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   payment_id path string true "Payment ID"
// @Param   allocation body dto.AllocatePaymentRequest true "Per-invoice amounts"
// @Success 200 {object} dto.AllocationResultResponse
// @Failure 400 {object} map[string]string "Invalid input or over-allocation"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Payment or invoice not found"
// @Failure 409 {object} map[string]string "Payment state does not allow allocation"
// @Failure 500 {object} map[string]string "Failed to allocate payment"
// @Security BearerAuth
// @Router /companies/{company_id}/payments/{payment_id}/allocations [post]
func (h *paymentHandler) allocatePayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	paymentID := c.Param("payment_id")

	var req dto.AllocatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AllocatePayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.paymentService.AllocatePayment(c.Request.Context(), companyID, paymentID, req, requestingUserID)
	if err != nil {
		respondAllocationError(c, logger, err, paymentID, "Failed to allocate payment")
		return
	}

	logger.Info("Payment allocated", slog.String("payment_id", paymentID), slog.Int("allocation_count", len(result.Allocations)))
	c.JSON(http.StatusOK, result)
}

// autoAllocatePayment godoc
// @Summary Allocate a payment by strategy
// @Description Distributes the payment's unallocated remainder across open invoices using a named strategy (fifo, proportional, overdue_first, largest_first, percentage_based, custom_priority, equal_distribution).
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   payment_id path string true "Payment ID"
// @Param   allocation body dto.AutoAllocatePaymentRequest true "Strategy and options"
// @Success 200 {object} dto.AllocationResultResponse
// @Failure 400 {object} map[string]string "Invalid strategy or weights"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Payment not found"
// @Failure 409 {object} map[string]string "Payment state does not allow allocation"
// @Failure 500 {object} map[string]string "Failed to allocate payment"
// @Security BearerAuth
// @Router /companies/{company_id}/payments/{payment_id}/auto-allocate [post]
func (h *paymentHandler) autoAllocatePayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	paymentID := c.Param("payment_id")

	var req dto.AutoAllocatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AutoAllocatePayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.paymentService.AutoAllocatePayment(c.Request.Context(), companyID, paymentID, req, requestingUserID)
	if err != nil {
		respondAllocationError(c, logger, err, paymentID, "Failed to allocate payment")
		return
	}

	logger.Info("Payment auto-allocated", slog.String("payment_id", paymentID), slog.String("strategy", req.Strategy), slog.Int("allocation_count", len(result.Allocations)))
	c.JSON(http.StatusOK, result)
}

// reverseAllocation godoc
// @Summary Reverse one allocation
// @Description Unwinds a single active allocation, restoring the invoice balance and freeing the payment funds. A reason is required.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   payment_id path string true "Payment ID"
// @Param   allocation_id path string true "Allocation ID"
// @Param   reversal body dto.ReverseAllocationRequest true "Reversal reason"
// @Success 200 {object} dto.AllocationResultResponse
// @Failure 400 {object} map[string]string "Missing reason"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Payment or allocation not found"
// @Failure 409 {object} map[string]string "Allocation already reversed"
// @Failure 500 {object} map[string]string "Failed to reverse allocation"
// @Security BearerAuth
// @Router /companies/{company_id}/payments/{payment_id}/allocations/{allocation_id}/reverse [post]
func (h *paymentHandler) reverseAllocation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	paymentID := c.Param("payment_id")
	allocationID := c.Param("allocation_id")

	var req dto.ReverseAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ReverseAllocation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.paymentService.ReverseAllocation(c.Request.Context(), companyID, paymentID, allocationID, req, requestingUserID)
	if err != nil {
		respondAllocationError(c, logger, err, paymentID, "Failed to reverse allocation")
		return
	}

	logger.Info("Allocation reversed", slog.String("payment_id", paymentID), slog.String("allocation_id", allocationID))
	c.JSON(http.StatusOK, result)
}

// reversePayment godoc
// @Summary Reverse a payment
// @Description Unwinds the payment's active allocations newest first. Without an amount every allocation is unwound and the payment becomes REVERSED; with an amount whole allocations are unwound until the next one no longer fits, and the payment ends REFUNDED or PARTIALLY_REFUNDED.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   payment_id path string true "Payment ID"
// @Param   reversal body dto.ReversePaymentRequest true "Reversal reason and optional amount"
// @Success 200 {object} dto.AllocationResultResponse
// @Failure 400 {object} map[string]string "Missing reason or invalid amount"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Payment not found"
// @Failure 409 {object} map[string]string "Payment already reversed"
// @Failure 500 {object} map[string]string "Failed to reverse payment"
// @Security BearerAuth
// @Router /companies/{company_id}/payments/{payment_id}/reverse [post]
func (h *paymentHandler) reversePayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	paymentID := c.Param("payment_id")

	var req dto.ReversePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ReversePayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.paymentService.ReversePayment(c.Request.Context(), companyID, paymentID, req, requestingUserID)
	if err != nil {
		respondAllocationError(c, logger, err, paymentID, "Failed to reverse payment")
		return
	}

	logger.Info("Payment reversed", slog.String("payment_id", paymentID))
	c.JSON(http.StatusOK, result)
}
