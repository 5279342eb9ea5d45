package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/case-framework/enrollment-backend/pkg/criteria"
	studyDB "github.com/case-framework/enrollment-backend/pkg/db/study"
)

func (h *HttpEndpoints) AddAppConfigAPI(rg *gin.RouterGroup) {
	configGroup := rg.Group("/studies/:studyKey")
	{
		configGroup.GET("/app-config", h.getAppConfig)
		configGroup.GET("/app-configs", h.getRankedAppConfigs)
	}
}

func (h *HttpEndpoints) appConfigCandidates(instanceID string, studyKey string) ([]studyDB.AppConfig, []criteria.Selectable, error) {
	appConfigs, err := h.studyDBConn.GetAppConfigsForStudy(instanceID, studyKey)
	if err != nil {
		return nil, nil, err
	}

	candidates := make([]criteria.Selectable, 0, len(appConfigs))
	for i, appConfig := range appConfigs {
		var crit criteria.Criteria
		if appConfig.Criteria != nil {
			crit = *appConfig.Criteria
		}
		candidates = append(candidates, criteria.Selectable{
			Index:     i,
			GUID:      appConfig.GUID,
			CreatedAt: appConfig.CreatedAt,
			Criteria:  crit,
		})
	}
	return appConfigs, candidates, nil
}

// getAppConfig resolves the single best matching app config for the request
// context: earliest created matching config, GUID as tie break.
func (h *HttpEndpoints) getAppConfig(c *gin.Context) {
	instanceID := c.Query("instanceId")
	if !h.isInstanceAllowed(instanceID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid instance id"})
		return
	}
	studyKey := c.Param("studyKey")

	appConfigs, candidates, err := h.appConfigCandidates(instanceID, studyKey)
	if err != nil {
		slog.Error("could not load app configs", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	ctx := h.criteriaContextFromRequest(c, nil)
	index, ok := criteria.SelectFirstMatching(candidates, ctx)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusOK, appConfigs[index])
}

// getRankedAppConfigs lists the matching app configs ordered by how well
// their language fits the Accept-Language preferences.
func (h *HttpEndpoints) getRankedAppConfigs(c *gin.Context) {
	instanceID := c.Query("instanceId")
	if !h.isInstanceAllowed(instanceID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid instance id"})
		return
	}
	studyKey := c.Param("studyKey")

	appConfigs, candidates, err := h.appConfigCandidates(instanceID, studyKey)
	if err != nil {
		slog.Error("could not load app configs", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	ctx := h.criteriaContextFromRequest(c, nil)
	ranked := criteria.RankByLanguage(candidates, ctx)

	result := make([]studyDB.AppConfig, 0, len(ranked))
	for _, index := range ranked {
		result = append(result, appConfigs[index])
	}
	c.JSON(http.StatusOK, gin.H{"appConfigs": result})
}
