package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/case-framework/enrollment-backend/pkg/apihelpers/middlewares"
	jwthandling "github.com/case-framework/enrollment-backend/pkg/jwt-handling"
	usermanagement "github.com/case-framework/enrollment-backend/pkg/user-management"
	"github.com/case-framework/enrollment-backend/pkg/user-management/pwhash"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
	"github.com/case-framework/enrollment-backend/pkg/utils"
)

const (
	loginFailedAttemptWindow = 5 * 60 // to count the login failures, seconds
	allowedPasswordAttempts  = 10

	minPasswordLength = 12
)

func (h *HttpEndpoints) AddParticipantAuthAPI(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/signup", mw.RequirePayload(), h.signup)
		authGroup.POST("/login", mw.RequirePayload(), h.login)
		authGroup.GET("/token/validate", mw.GetAndValidateParticipantUserJWT(h.tokenSignKey), h.validateToken)
	}
}

type SignupReq struct {
	InstanceID string `json:"instanceId"`
	usermanagement.SignUpRequest
	StudyKey string `json:"studyKey,omitempty"`
}

type LoginReq struct {
	InstanceID string `json:"instanceId"`
	usermanagement.SignInCredential
	StudyKey string `json:"studyKey,omitempty"`
}

type TokenResponse struct {
	AccessToken string            `json:"accessToken"`
	ExpiresIn   int64             `json:"expiresIn"`
	Account     userTypes.Account `json:"account"`
	Substudies  []string          `json:"substudies,omitempty"`
}

func (h *HttpEndpoints) signup(c *gin.Context) {
	var req SignupReq
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

	if len(req.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too weak"})
		return
	}

	passwordHash, err := pwhash.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	account, err := h.identity.SignUp(
		req.InstanceID,
		req.SignUpRequest,
		passwordHash,
		func(substudyID string, identifier string, accountID string) error {
			_, assignErr := h.registry.Assign(req.InstanceID, substudyID, identifier, accountID)
			return assignErr
		},
		func(accountID string, phone string) error {
			return h.consents.ClaimIntent(req.InstanceID, accountID, phone, req.StudyKey)
		},
	)
	if err != nil {
		slog.Warn("signup failed", slog.String("instanceID", req.InstanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	h.respondWithToken(c, req.InstanceID, account, req.StudyKey)
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

	var account userTypes.Account
	var err error
	switch {
	case req.Email != "":
		account, err = h.userDBConn.GetAccountByEmail(req.InstanceID, utils.SanitizeEmail(req.Email))
	case req.ExternalID != "":
		account, err = h.userDBConn.GetAccountByExternalID(req.InstanceID, req.SubstudyID, req.ExternalID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}
	if err != nil {
		slog.Warn("login attempt with unknown identifier", slog.String("instanceID", req.InstanceID))
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

	if err := h.userDBConn.ResetFailedLoginAttempts(req.InstanceID, accountID); err != nil {
		slog.Error("failed to reset failed login attempts", slog.String("error", err.Error()))
	}
	if err := h.userDBConn.UpdateLoginTime(req.InstanceID, accountID); err != nil {
		slog.Error("failed to update login time", slog.String("error", err.Error()))
	}

	h.respondWithToken(c, req.InstanceID, account, req.StudyKey)
}

func (h *HttpEndpoints) respondWithToken(c *gin.Context, instanceID string, account userTypes.Account, studyKey string) {
	accountID := account.ID.Hex()

	fullyConsented := false
	if studyKey != "" {
		ctx := h.criteriaContextFromRequest(c, &account)
		var err error
		fullyConsented, err = h.consents.IsFullyConsented(instanceID, accountID, studyKey, ctx)
		if err != nil {
			slog.Error("could not compute consent state", slog.String("instanceID", instanceID), slog.String("accountID", accountID), slog.String("error", err.Error()))
		}
	}

	token, err := jwthandling.GenerateNewParticipantUserToken(
		h.tokenExpiresIn,
		accountID,
		instanceID,
		fullyConsented,
		nil,
		h.tokenSignKey,
	)
	if err != nil {
		slog.Error("failed to generate token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	account.Password = ""
	account.FailedLoginAttempts = nil
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(h.tokenExpiresIn.Seconds()),
		Account:     account,
		Substudies:  account.EffectiveSubstudies(),
	})
}

func (h *HttpEndpoints) validateToken(c *gin.Context) {
	tokenValue, ok := c.Get("validatedToken")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validatedToken not found in context"})
		return
	}
	token := tokenValue.(*jwthandling.ParticipantUserClaims)
	c.JSON(http.StatusOK, gin.H{
		"accountId":  token.Subject,
		"instanceId": token.InstanceID,
		"expiresAt":  token.ExpiresAt.Unix(),
	})
}
