package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/case-framework/enrollment-backend/pkg/apihelpers/middlewares"
	"github.com/case-framework/enrollment-backend/pkg/consent"
	"github.com/case-framework/enrollment-backend/pkg/criteria"
	studyDB "github.com/case-framework/enrollment-backend/pkg/db/study"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
)

func (h *HttpEndpoints) AddStudyManagementAPI(rg *gin.RouterGroup) {
	studyGroup := rg.Group("/studies/:studyKey")

	studyGroup.Use(mw.GetAndValidateManagementUserJWT(h.tokenSignKey))
	studyGroup.Use(mw.IsInstanceIDInJWTAllowed(h.allowedInstanceIDs))

	subpopulationsGroup := studyGroup.Group("/subpopulations")
	{
		subpopulationsGroup.GET("", h.getSubpopulations)
		subpopulationsGroup.POST("", mw.RequirePayload(), mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN), h.createSubpopulation)
		subpopulationsGroup.POST("/:subpopulationGUID/publish", mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN), h.publishConsentVersion)
		subpopulationsGroup.DELETE("/:subpopulationGUID", mw.IsAdminUser(), h.deleteSubpopulation)
	}

	appConfigsGroup := studyGroup.Group("/app-configs")
	{
		appConfigsGroup.GET("", h.getAppConfigs)
		appConfigsGroup.POST("", mw.RequirePayload(), mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN, userTypes.ROLE_DEVELOPER), h.createAppConfig)
		appConfigsGroup.PUT("/:appConfigGUID", mw.RequirePayload(), mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN, userTypes.ROLE_DEVELOPER), h.updateAppConfig)
		appConfigsGroup.DELETE("/:appConfigGUID", mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN, userTypes.ROLE_DEVELOPER), h.deleteAppConfig)
	}
}

func (h *HttpEndpoints) getSubpopulations(c *gin.Context) {
	token := managementToken(c)
	studyKey := c.Param("studyKey")

	subpopulations, err := h.studyDBConn.GetSubpopulationsForStudy(token.InstanceID, studyKey)
	if err != nil {
		slog.Error("failed to fetch subpopulations", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subpopulations": subpopulations})
}

type CreateSubpopulationReq struct {
	Name     string            `json:"name"`
	Criteria criteria.Criteria `json:"criteria"`
	Required bool              `json:"required"`
}

func (h *HttpEndpoints) createSubpopulation(c *gin.Context) {
	token := managementToken(c)
	studyKey := c.Param("studyKey")

	var req CreateSubpopulationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}
	if err := req.Criteria.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subpopulation, err := h.studyDBConn.CreateSubpopulation(token.InstanceID, consent.Subpopulation{
		StudyKey: studyKey,
		Name:     req.Name,
		Criteria: req.Criteria,
		Required: req.Required,
	})
	if err != nil {
		slog.Warn("failed to create subpopulation", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, subpopulation)
}

// publishConsentVersion bumps the published consent version of the
// subpopulation. Existing signatures are untouched, their state turns
// obsolete the next time it is evaluated.
func (h *HttpEndpoints) publishConsentVersion(c *gin.Context) {
	token := managementToken(c)
	studyKey := c.Param("studyKey")
	guid := c.Param("subpopulationGUID")

	subpopulation, err := h.studyDBConn.GetSubpopulationByGUID(token.InstanceID, guid)
	if err != nil || subpopulation.StudyKey != studyKey {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	version, err := h.studyDBConn.PublishNewConsentVersion(token.InstanceID, guid)
	if err != nil {
		slog.Warn("failed to publish consent version", slog.String("instanceID", token.InstanceID), slog.String("subpopulationGUID", guid), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	slog.Info("new consent version published", slog.String("instanceID", token.InstanceID), slog.String("subpopulationGUID", guid), slog.Int64("version", version))
	c.JSON(http.StatusOK, gin.H{"publishedVersion": version})
}

func (h *HttpEndpoints) deleteSubpopulation(c *gin.Context) {
	token := managementToken(c)
	studyKey := c.Param("studyKey")
	guid := c.Param("subpopulationGUID")

	subpopulation, err := h.studyDBConn.GetSubpopulationByGUID(token.InstanceID, guid)
	if err != nil || subpopulation.StudyKey != studyKey {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if err := h.studyDBConn.DeleteSubpopulation(token.InstanceID, guid); err != nil {
		slog.Warn("failed to delete subpopulation", slog.String("instanceID", token.InstanceID), slog.String("subpopulationGUID", guid), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "subpopulation deleted"})
}

func (h *HttpEndpoints) getAppConfigs(c *gin.Context) {
	token := managementToken(c)
	studyKey := c.Param("studyKey")

	appConfigs, err := h.studyDBConn.GetAppConfigsForStudy(token.InstanceID, studyKey)
	if err != nil {
		slog.Error("failed to fetch app configs", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appConfigs": appConfigs})
}

type AppConfigReq struct {
	Label    string                 `json:"label"`
	Criteria *criteria.Criteria     `json:"criteria,omitempty"`
	Config   map[string]interface{} `json:"config"`
}

func (h *HttpEndpoints) createAppConfig(c *gin.Context) {
	token := managementToken(c)
	studyKey := c.Param("studyKey")

	var req AppConfigReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Criteria != nil {
		if err := req.Criteria.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	appConfig, err := h.studyDBConn.CreateAppConfig(token.InstanceID, studyDB.AppConfig{
		StudyKey: studyKey,
		Label:    req.Label,
		Criteria: req.Criteria,
		Config:   req.Config,
	})
	if err != nil {
		slog.Warn("failed to create app config", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, appConfig)
}

func (h *HttpEndpoints) updateAppConfig(c *gin.Context) {
	token := managementToken(c)
	studyKey := c.Param("studyKey")
	guid := c.Param("appConfigGUID")

	var req AppConfigReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Criteria != nil {
		if err := req.Criteria.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	current, err := h.studyDBConn.GetAppConfigByGUID(token.InstanceID, guid)
	if err != nil || current.StudyKey != studyKey {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if err := h.studyDBConn.UpdateAppConfig(token.InstanceID, guid, req.Label, req.Criteria, req.Config); err != nil {
		slog.Warn("failed to update app config", slog.String("instanceID", token.InstanceID), slog.String("appConfigGUID", guid), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "app config updated"})
}

func (h *HttpEndpoints) deleteAppConfig(c *gin.Context) {
	token := managementToken(c)
	studyKey := c.Param("studyKey")
	guid := c.Param("appConfigGUID")

	current, err := h.studyDBConn.GetAppConfigByGUID(token.InstanceID, guid)
	if err != nil || current.StudyKey != studyKey {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if err := h.studyDBConn.DeleteAppConfig(token.InstanceID, guid); err != nil {
		slog.Warn("failed to delete app config", slog.String("instanceID", token.InstanceID), slog.String("appConfigGUID", guid), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "app config deleted"})
}
