package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/case-framework/enrollment-backend/pkg/apihelpers"
	mw "github.com/case-framework/enrollment-backend/pkg/apihelpers/middlewares"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
)

func (h *HttpEndpoints) AddIDRegistryAPI(rg *gin.RouterGroup) {
	idGroup := rg.Group("/external-identifiers")

	idGroup.Use(mw.GetAndValidateManagementUserJWT(h.tokenSignKey))
	idGroup.Use(mw.IsInstanceIDInJWTAllowed(h.allowedInstanceIDs))
	{
		idGroup.GET("", mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN, userTypes.ROLE_RESEARCHER), h.listExternalIdentifiers)
		idGroup.POST("", mw.RequirePayload(), mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN), h.createExternalIdentifier)
		idGroup.POST("/assign", mw.RequirePayload(), mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN), h.assignExternalIdentifier)
		idGroup.POST("/release", mw.RequirePayload(), mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN), h.releaseExternalIdentifier)
		idGroup.DELETE("", mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN), h.deleteExternalIdentifier)
	}

	// service to service provisioning, authenticated by API key
	serviceGroup := rg.Group("/service")
	serviceGroup.Use(mw.HasValidAPIKey(h.apiKeys))
	{
		serviceGroup.POST("/external-identifiers/bulk", mw.RequirePayload(), h.bulkCreateExternalIdentifiers)
	}
}

func (h *HttpEndpoints) listExternalIdentifiers(c *gin.Context) {
	token := managementToken(c)

	query, err := apihelpers.ParseCursorQueryFromCtx(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination params"})
		return
	}

	var assignedFilter *bool
	switch c.Query("assigned") {
	case "true":
		v := true
		assignedFilter = &v
	case "false":
		v := false
		assignedFilter = &v
	case "":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assigned filter"})
		return
	}

	// non admin users only see identifiers of substudies in their token scope
	var scope []string
	if !token.IsAdmin {
		scope = token.SubstudyScope
		if scope == nil {
			scope = []string{}
		}
	}

	page, err := h.registry.List(
		token.InstanceID,
		c.Query("prefix"),
		c.Query("substudyId"),
		assignedFilter,
		scope,
		query.PageSize,
		query.Cursor,
	)
	if err != nil {
		slog.Warn("failed to list external identifiers", slog.String("instanceID", token.InstanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

type CreateExternalIdentifierReq struct {
	Identifier string `json:"identifier"`
	SubstudyID string `json:"substudyId"`
}

func (h *HttpEndpoints) createExternalIdentifier(c *gin.Context) {
	token := managementToken(c)

	var req CreateExternalIdentifierReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	extID, err := h.registry.Create(token.InstanceID, req.Identifier, req.SubstudyID)
	if err != nil {
		slog.Warn("failed to create external identifier", slog.String("instanceID", token.InstanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, extID)
}

type AssignExternalIdentifierReq struct {
	Identifier string `json:"identifier"`
	SubstudyID string `json:"substudyId"`
	AccountID  string `json:"accountId"`
}

func (h *HttpEndpoints) assignExternalIdentifier(c *gin.Context) {
	token := managementToken(c)

	var req AssignExternalIdentifierReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AccountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account id"})
		return
	}

	extID, err := h.registry.Assign(token.InstanceID, req.SubstudyID, req.Identifier, req.AccountID)
	if err != nil {
		slog.Warn("failed to assign external identifier", slog.String("instanceID", token.InstanceID), slog.String("accountID", req.AccountID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, extID)
}

type ReleaseExternalIdentifierReq struct {
	Identifier string `json:"identifier"`
	SubstudyID string `json:"substudyId"`
}

func (h *HttpEndpoints) releaseExternalIdentifier(c *gin.Context) {
	token := managementToken(c)

	var req ReleaseExternalIdentifierReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.registry.Release(token.InstanceID, req.SubstudyID, req.Identifier); err != nil {
		slog.Warn("failed to release external identifier", slog.String("instanceID", token.InstanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "identifier released"})
}

func (h *HttpEndpoints) deleteExternalIdentifier(c *gin.Context) {
	token := managementToken(c)

	identifier := c.Query("identifier")
	substudyID := c.Query("substudyId")
	if identifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing identifier"})
		return
	}
	force := c.Query("force") == "true"

	if err := h.registry.Delete(token.InstanceID, substudyID, identifier, force); err != nil {
		slog.Warn("failed to delete external identifier", slog.String("instanceID", token.InstanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "identifier deleted"})
}

type BulkCreateExternalIdentifiersReq struct {
	InstanceID  string   `json:"instanceId"`
	SubstudyID  string   `json:"substudyId"`
	Identifiers []string `json:"identifiers"`
}

// bulkCreateExternalIdentifiers provisions a batch of identifiers in one
// call. Failures are reported per identifier so a partially applied batch
// can be retried.
func (h *HttpEndpoints) bulkCreateExternalIdentifiers(c *gin.Context) {
	var req BulkCreateExternalIdentifiersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.isInstanceAllowed(req.InstanceID) {
		slog.Error("instance not allowed", slog.String("instanceID", req.InstanceID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid instance id"})
		return
	}
	if len(req.Identifiers) < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no identifiers in request"})
		return
	}

	created := 0
	failed := map[string]string{}
	for _, identifier := range req.Identifiers {
		if _, err := h.registry.Create(req.InstanceID, identifier, req.SubstudyID); err != nil {
			failed[identifier] = err.Error()
			continue
		}
		created++
	}

	if len(failed) > 0 {
		slog.Warn("bulk identifier provisioning finished with failures", slog.String("instanceID", req.InstanceID), slog.Int("created", created), slog.Int("failed", len(failed)))
	}

	c.JSON(http.StatusOK, gin.H{
		"created": created,
		"failed":  failed,
	})
}
