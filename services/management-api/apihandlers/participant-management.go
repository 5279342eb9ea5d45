package apihandlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	mw "github.com/case-framework/enrollment-backend/pkg/apihelpers/middlewares"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
)

func (h *HttpEndpoints) AddParticipantManagementAPI(rg *gin.RouterGroup) {
	participantsGroup := rg.Group("/participants")

	participantsGroup.Use(mw.GetAndValidateManagementUserJWT(h.tokenSignKey))
	participantsGroup.Use(mw.IsInstanceIDInJWTAllowed(h.allowedInstanceIDs))
	participantsGroup.Use(mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN, userTypes.ROLE_RESEARCHER))
	{
		participantsGroup.GET("", h.getParticipants)
		participantsGroup.GET("/:accountID", h.getParticipant)
		participantsGroup.PUT("/:accountID/status", mw.RequirePayload(), mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN), h.updateParticipantStatus)
	}
}

// getParticipants lists the accounts the caller's substudy scope covers.
// Accounts outside the scope are not part of the result or the total.
func (h *HttpEndpoints) getParticipants(c *gin.Context) {
	token := managementToken(c)

	scope, err := h.substudyScopeForToken(token)
	if err != nil {
		slog.Error("failed to resolve substudy scope", slog.String("instanceID", token.InstanceID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	accounts, total, err := h.userDBConn.GetScopedAccounts(token.InstanceID, scope, page, limit)
	if err != nil {
		slog.Error("failed to fetch participants", slog.String("instanceID", token.InstanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	for i := range accounts {
		accounts[i] = scrubAccount(accounts[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"participants": accounts,
		"total":        total,
		"page":         page,
		"limit":        limit,
	})
}

// getParticipant returns the account only when it is in the caller's scope,
// out of scope accounts read as missing.
func (h *HttpEndpoints) getParticipant(c *gin.Context) {
	token := managementToken(c)
	accountID := c.Param("accountID")

	scope, err := h.substudyScopeForToken(token)
	if err != nil {
		slog.Error("failed to resolve substudy scope", slog.String("instanceID", token.InstanceID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	account, err := h.userDBConn.GetScopedAccountByID(token.InstanceID, accountID, scope)
	if err != nil {
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, scrubAccount(account))
}

type UpdateParticipantStatusReq struct {
	Status string `json:"status"`
}

func (h *HttpEndpoints) updateParticipantStatus(c *gin.Context) {
	token := managementToken(c)
	accountID := c.Param("accountID")

	var req UpdateParticipantStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != userTypes.ACCOUNT_STATUS_ENABLED && req.Status != userTypes.ACCOUNT_STATUS_DISABLED {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	scope, err := h.substudyScopeForToken(token)
	if err != nil {
		slog.Error("failed to resolve substudy scope", slog.String("instanceID", token.InstanceID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if _, err := h.userDBConn.GetScopedAccountByID(token.InstanceID, accountID, scope); err != nil {
		writeAppError(c, err)
		return
	}

	if err := h.userDBConn.UpdateAccountStatus(token.InstanceID, accountID, req.Status); err != nil {
		slog.Warn("failed to update participant status", slog.String("instanceID", token.InstanceID), slog.String("accountID", accountID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	slog.Info("participant status updated", slog.String("instanceID", token.InstanceID), slog.String("accountID", accountID), slog.String("status", req.Status))
	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}
