package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/case-framework/enrollment-backend/pkg/apihelpers/middlewares"
	jwthandling "github.com/case-framework/enrollment-backend/pkg/jwt-handling"
	"github.com/case-framework/enrollment-backend/pkg/user-management/pwhash"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
	"github.com/case-framework/enrollment-backend/pkg/utils"
)

const (
	loginFailedAttemptWindow = 5 * 60 // to count the login failures, seconds
	allowedPasswordAttempts  = 10
)

func (h *HttpEndpoints) AddManagementAuthAPI(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/login", mw.RequirePayload(), h.login)
		authGroup.GET("/token/validate", mw.GetAndValidateManagementUserJWT(h.tokenSignKey), h.validateToken)
	}
}

type LoginReq struct {
	InstanceID string `json:"instanceId"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type TokenResponse struct {
	AccessToken   string   `json:"accessToken"`
	ExpiresIn     int64    `json:"expiresIn"`
	IsAdmin       bool     `json:"isAdmin"`
	Roles         []string `json:"roles,omitempty"`
	OrgID         string   `json:"orgId,omitempty"`
	SubstudyScope []string `json:"substudyScope,omitempty"`
}

func (h *HttpEndpoints) login(c *gin.Context) {
	var req LoginReq
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

	account, err := h.userDBConn.GetAccountByEmail(req.InstanceID, utils.SanitizeEmail(req.Email))
	if err != nil {
		slog.Warn("login attempt with unknown email", slog.String("instanceID", req.InstanceID))
		randomWait(1, 3)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	accountID := account.ID.Hex()

	if utils.HasMoreAttemptsRecently(account.FailedLoginAttempts, allowedPasswordAttempts, loginFailedAttemptWindow) {
		slog.Warn("login attempt with too many failed attempts", slog.String("instanceID", req.InstanceID), slog.String("accountID", accountID))
		if err := h.userDBConn.SaveFailedLoginAttempt(req.InstanceID, accountID); err != nil {
			slog.Error("failed to save failed login attempt", slog.String("error", err.Error()))
		}
		randomWait(1, 3)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	match, err := pwhash.ComparePasswordWithHash(account.Password, req.Password)
	if err != nil || !match {
		slog.Warn("login attempt with wrong password", slog.String("instanceID", req.InstanceID), slog.String("accountID", accountID))
		if err := h.userDBConn.SaveFailedLoginAttempt(req.InstanceID, accountID); err != nil {
			slog.Error("failed to save failed login attempt", slog.String("error", err.Error()))
		}
		randomWait(1, 3)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if account.Status != userTypes.ACCOUNT_STATUS_ENABLED {
		slog.Warn("login attempt for disabled account", slog.String("instanceID", req.InstanceID), slog.String("accountID", accountID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if len(account.Roles) < 1 {
		slog.Warn("login attempt without management role", slog.String("instanceID", req.InstanceID), slog.String("accountID", accountID))
		randomWait(1, 3)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := h.userDBConn.ResetFailedLoginAttempts(req.InstanceID, accountID); err != nil {
		slog.Error("failed to reset failed login attempts", slog.String("error", err.Error()))
	}
	if err := h.userDBConn.UpdateLoginTime(req.InstanceID, accountID); err != nil {
		slog.Error("failed to update login time", slog.String("error", err.Error()))
	}

	isAdmin := account.HasRole(userTypes.ROLE_SUPERADMIN)

	substudyScope := []string{}
	if account.OrgID != "" {
		substudies, err := h.studyDBConn.GetSubstudiesByOrg(req.InstanceID, account.OrgID)
		if err != nil {
			slog.Error("failed to resolve substudy scope", slog.String("instanceID", req.InstanceID), slog.String("orgID", account.OrgID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		for _, substudy := range substudies {
			substudyScope = append(substudyScope, substudy.Key)
		}
	}

	token, err := jwthandling.GenerateNewManagementUserToken(
		h.tokenExpiresIn,
		accountID,
		req.InstanceID,
		isAdmin,
		account.Roles,
		account.OrgID,
		substudyScope,
		h.tokenSignKey,
	)
	if err != nil {
		slog.Error("failed to generate token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:   token,
		ExpiresIn:     int64(h.tokenExpiresIn.Seconds()),
		IsAdmin:       isAdmin,
		Roles:         account.Roles,
		OrgID:         account.OrgID,
		SubstudyScope: substudyScope,
	})
}

func (h *HttpEndpoints) validateToken(c *gin.Context) {
	token := managementToken(c)
	c.JSON(http.StatusOK, gin.H{
		"accountId":  token.ID,
		"instanceId": token.InstanceID,
		"isAdmin":    token.IsAdmin,
		"roles":      token.Roles,
		"expiresAt":  token.ExpiresAt.Unix(),
	})
}
