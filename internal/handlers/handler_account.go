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

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(accountService portssvc.AccountSvcFacade) *accountHandler {
	return &accountHandler{
		accountService: accountService,
	}
}

// registerAccountRoutes registers account specific routes under a company.
func registerAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade) {
	h := newAccountHandler(accountService)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:account_id", h.getAccount)
		accounts.PUT("/:account_id", h.updateAccount)
		accounts.DELETE("/:account_id", h.deactivateAccount)
	}
}

// createAccount godoc
// @Summary Create a new account
// @Description Creates a new account in the company's chart of accounts. The normal balance side is derived from the account type.
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   account body dto.CreateAccountRequest true "Account details"
// @Success 201 {object} dto.AccountResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Account code already in use"
// @Failure 500 {object} map[string]string "Failed to create account"
// @Security BearerAuth
// @Router /companies/{company_id}/accounts [post]
func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), companyID, req, creatorUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			logger.Warn("Account code already in use", slog.String("code", req.Code))
			c.JSON(http.StatusConflict, gin.H{"error": "Account code already in use"})
		} else if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error creating account", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to create account in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		}
		return
	}

	logger.Info("Account created successfully", slog.String("account_id", account.AccountID))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

// getAccount godoc
// @Summary Get an account
// @Description Retrieves a single account by its ID.
// @Tags accounts
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   account_id path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to retrieve account"
// @Security BearerAuth
// @Router /companies/{company_id}/accounts/{account_id} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	accountID := c.Param("account_id")

	account, err := h.accountService.GetAccountByID(c.Request.Context(), companyID, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Account not found", slog.String("account_id", accountID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		logger.Error("Failed to get account from service", slog.String("error", err.Error()), slog.String("account_id", accountID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve account"})
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// listAccounts godoc
// @Summary List accounts
// @Description Retrieves a paginated list of accounts in the company, ordered by code.
// @Tags accounts
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   limit query int false "Page size" default(20)
// @Param   offset query int false "Offset" default(0)
// @Success 200 {object} dto.ListAccountsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list accounts"
// @Security BearerAuth
// @Router /companies/{company_id}/accounts [get]
func (h *accountHandler) listAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")

	var params dto.ListAccountsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListAccounts", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.accountService.ListAccounts(c.Request.Context(), companyID, params)
	if err != nil {
		logger.Error("Failed to list accounts from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list accounts"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// updateAccount godoc
// @Summary Update an account
// @Description Updates an account's name and description.
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   account_id path string true "Account ID"
// @Param   account body dto.UpdateAccountRequest true "Fields to update"
// @Success 200 {object} dto.AccountResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to update account"
// @Security BearerAuth
// @Router /companies/{company_id}/accounts/{account_id} [put]
func (h *accountHandler) updateAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	accountID := c.Param("account_id")

	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	account, err := h.accountService.UpdateAccount(c.Request.Context(), companyID, accountID, req, requestingUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Account not found for update", slog.String("account_id", accountID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		} else {
			logger.Error("Failed to update account in service", slog.String("error", err.Error()), slog.String("account_id", accountID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update account"})
		}
		return
	}

	logger.Info("Account updated successfully", slog.String("account_id", accountID))
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// deactivateAccount godoc
// @Summary Deactivate an account
// @Description Marks an account inactive. Inactive accounts reject new journal lines but keep their history.
// @Tags accounts
// @Produce  json
// @Param   company_id path string true "Company ID"
// @Param   account_id path string true "Account ID"
// @Success 204 "Account deactivated"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to deactivate account"
// @Security BearerAuth
// @Router /companies/{company_id}/accounts/{account_id} [delete]
func (h *accountHandler) deactivateAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("company_id")
	accountID := c.Param("account_id")

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := h.accountService.DeactivateAccount(c.Request.Context(), companyID, accountID, requestingUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Account not found for deactivation", slog.String("account_id", accountID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		} else {
			logger.Error("Failed to deactivate account in service", slog.String("error", err.Error()), slog.String("account_id", accountID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate account"})
		}
		return
	}

	logger.Info("Account deactivated successfully", slog.String("account_id", accountID))
	c.Status(http.StatusNoContent)
}
