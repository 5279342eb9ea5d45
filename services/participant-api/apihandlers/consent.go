package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/case-framework/enrollment-backend/pkg/apihelpers/middlewares"
	"github.com/case-framework/enrollment-backend/pkg/consent"
	jwthandling "github.com/case-framework/enrollment-backend/pkg/jwt-handling"
	"github.com/case-framework/enrollment-backend/pkg/utils"
)

func (h *HttpEndpoints) AddConsentAPI(rg *gin.RouterGroup) {
	consentGroup := rg.Group("/studies/:studyKey")
	{
		consentGroup.POST("/intent", mw.RequirePayload(), h.registerIntent)
	}

	authedConsentGroup := rg.Group("/studies/:studyKey")
	authedConsentGroup.Use(mw.GetAndValidateParticipantUserJWT(h.tokenSignKey))
	{
		authedConsentGroup.GET("/consent-statuses", h.getConsentStatuses)
		authedConsentGroup.POST("/subpopulations/:subpopulationGUID/sign", mw.RequirePayload(), h.signConsent)
	}
}

func (h *HttpEndpoints) getConsentStatuses(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ParticipantUserClaims)
	studyKey := c.Param("studyKey")

	account, err := h.userDBConn.GetAccountByID(token.InstanceID, token.Subject)
	if err != nil {
		writeAppError(c, err)
		return
	}

	ctx := h.criteriaContextFromRequest(c, &account)
	statuses, err := h.consents.GetConsentStatuses(token.InstanceID, token.Subject, studyKey, ctx)
	if err != nil {
		slog.Error("could not compute consent statuses", slog.String("instanceID", token.InstanceID), slog.String("accountID", token.Subject), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	fullyConsented, err := h.consents.IsFullyConsented(token.InstanceID, token.Subject, studyKey, ctx)
	if err != nil {
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":       statuses,
		"fullyConsented": fullyConsented,
	})
}

func (h *HttpEndpoints) signConsent(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ParticipantUserClaims)
	subpopulationGUID := c.Param("subpopulationGUID")

	var req consent.SignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.userDBConn.GetAccountByID(token.InstanceID, token.Subject)
	if err != nil {
		writeAppError(c, err)
		return
	}

	ctx := h.criteriaContextFromRequest(c, &account)
	signature, err := h.consents.SignConsent(token.InstanceID, token.Subject, subpopulationGUID, req, ctx)
	if err != nil {
		slog.Warn("consent signing failed", slog.String("instanceID", token.InstanceID), slog.String("accountID", token.Subject), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, signature)
}

type IntentReq struct {
	InstanceID        string `json:"instanceId"`
	Phone             string `json:"phone"`
	SubpopulationGUID string `json:"subpopulationGuid"`
	Name              string `json:"name"`
	Birthdate         string `json:"birthdate"`
	Scope             string `json:"scope"`
}

// registerIntent stores a pre-account consent signature keyed by phone
// number. It is consumed exactly once when a matching account signs up.
func (h *HttpEndpoints) registerIntent(c *gin.Context) {
	studyKey := c.Param("studyKey")

	var req IntentReq
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

	phone := utils.SanitizePhoneNumber(req.Phone)
	if !utils.CheckPhoneFormat(phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}

	subpopulation, err := h.studyDBConn.GetSubpopulationByGUID(req.InstanceID, req.SubpopulationGUID)
	if err != nil || subpopulation.StudyKey != studyKey {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	_, err = h.studyDBConn.SaveIntent(req.InstanceID, consent.Intent{
		Phone:             phone,
		StudyKey:          studyKey,
		SubpopulationGUID: req.SubpopulationGUID,
		Version:           subpopulation.PublishedVersion,
		Name:              req.Name,
		Birthdate:         req.Birthdate,
		Scope:             req.Scope,
	})
	if err != nil {
		slog.Warn("could not save intent", slog.String("instanceID", req.InstanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "intent registered"})
}
