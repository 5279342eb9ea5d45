package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/case-framework/enrollment-backend/pkg/apihelpers/middlewares"
	jwthandling "github.com/case-framework/enrollment-backend/pkg/jwt-handling"
	usermanagement "github.com/case-framework/enrollment-backend/pkg/user-management"
)

func (h *HttpEndpoints) AddParticipantUserAPI(rg *gin.RouterGroup) {
	userGroup := rg.Group("/user")
	{
		userGroup.POST("/identifiers", mw.RequirePayload(), h.updateIdentifiers)
	}

	authedUserGroup := rg.Group("/user")
	authedUserGroup.Use(mw.GetAndValidateParticipantUserJWT(h.tokenSignKey))
	{
		authedUserGroup.GET("", h.getMyAccount)
		authedUserGroup.DELETE("", h.deleteMyAccount)
	}
}

type UpdateIdentifiersReq struct {
	InstanceID string                          `json:"instanceId"`
	Credential usermanagement.SignInCredential `json:"credential"`
	Update     usermanagement.IdentifierUpdate `json:"update"`
}

// updateIdentifiers re-authenticates with the supplied credential and binds
// at most one identifier field. Binding an already set field succeeds
// without changing it.
func (h *HttpEndpoints) updateIdentifiers(c *gin.Context) {
	var req UpdateIdentifiersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.isInstanceAllowed(req.InstanceID) {
		slog.Error("instance not allowed", slog.String("instanceID", req.InstanceID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid instance id"})
		return
	}

	account, err := h.identity.UpdateIdentifiers(req.InstanceID, req.Credential, req.Update)
	if err != nil {
		slog.Warn("identifier update failed", slog.String("instanceID", req.InstanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	account.Password = ""
	account.FailedLoginAttempts = nil
	c.JSON(http.StatusOK, gin.H{
		"account":    account,
		"substudies": account.EffectiveSubstudies(),
	})
}

func (h *HttpEndpoints) getMyAccount(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ParticipantUserClaims)

	account, err := h.userDBConn.GetAccountByID(token.InstanceID, token.Subject)
	if err != nil {
		slog.Warn("account not found for token", slog.String("instanceID", token.InstanceID), slog.String("accountID", token.Subject))
		writeAppError(c, err)
		return
	}

	account.Password = ""
	account.FailedLoginAttempts = nil
	c.JSON(http.StatusOK, gin.H{
		"account":    account,
		"substudies": account.EffectiveSubstudies(),
	})
}

func (h *HttpEndpoints) deleteMyAccount(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ParticipantUserClaims)

	err := h.identity.DeleteAccount(token.InstanceID, token.Subject, func(substudyID string, identifier string) error {
		return h.registry.Release(token.InstanceID, substudyID, identifier)
	})
	if err != nil {
		slog.Error("account deletion failed", slog.String("instanceID", token.InstanceID), slog.String("accountID", token.Subject), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	slog.Info("account deleted", slog.String("instanceID", token.InstanceID), slog.String("accountID", token.Subject))
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
