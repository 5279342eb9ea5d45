package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/case-framework/enrollment-backend/pkg/apihelpers/middlewares"
	studyDB "github.com/case-framework/enrollment-backend/pkg/db/study"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
)

func (h *HttpEndpoints) AddOrganizationManagementAPI(rg *gin.RouterGroup) {
	orgsGroup := rg.Group("/organizations")

	orgsGroup.Use(mw.GetAndValidateManagementUserJWT(h.tokenSignKey))
	orgsGroup.Use(mw.IsInstanceIDInJWTAllowed(h.allowedInstanceIDs))
	{
		orgsGroup.GET("", mw.IsAdminUser(), h.getOrganizations)
		orgsGroup.POST("", mw.RequirePayload(), mw.IsAdminUser(), h.createOrganization)
	}

	orgGroup := orgsGroup.Group("/:orgID")
	{
		orgGroup.GET("", mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN, userTypes.ROLE_RESEARCHER), h.getOrganization)
		orgGroup.DELETE("", mw.IsAdminUser(), h.deleteOrganization)

		orgGroup.POST("/members", mw.RequirePayload(), mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN), h.addOrganizationMember)
		orgGroup.DELETE("/members/:accountID", mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN), h.removeOrganizationMember)

		orgGroup.GET("/substudies", mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN, userTypes.ROLE_RESEARCHER), h.getSubstudiesForOrg)
		orgGroup.POST("/substudies", mw.RequirePayload(), mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN), h.createSubstudy)
	}

	substudiesGroup := rg.Group("/substudies")
	substudiesGroup.Use(mw.GetAndValidateManagementUserJWT(h.tokenSignKey))
	substudiesGroup.Use(mw.IsInstanceIDInJWTAllowed(h.allowedInstanceIDs))
	{
		substudiesGroup.GET("/:substudyKey", h.getSubstudy)
		substudiesGroup.DELETE("/:substudyKey", mw.IsAdminUser(), h.deleteSubstudy)
	}
}

type CreateOrganizationReq struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

func (h *HttpEndpoints) createOrganization(c *gin.Context) {
	token := managementToken(c)

	var req CreateOrganizationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" || req.Identifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	org, err := h.studyDBConn.CreateOrganization(token.InstanceID, studyDB.Organization{
		Name:       req.Name,
		Identifier: req.Identifier,
	})
	if err != nil {
		slog.Warn("failed to create organization", slog.String("instanceID", token.InstanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

func (h *HttpEndpoints) getOrganizations(c *gin.Context) {
	token := managementToken(c)

	orgs, err := h.studyDBConn.GetOrganizations(token.InstanceID)
	if err != nil {
		slog.Error("failed to fetch organizations", slog.String("instanceID", token.InstanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"organizations": orgs})
}

func (h *HttpEndpoints) getOrganization(c *gin.Context) {
	token := managementToken(c)
	orgID := c.Param("orgID")

	if !canAccessOrg(token, orgID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	org, err := h.studyDBConn.GetOrganization(token.InstanceID, orgID)
	if err != nil {
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// deleteOrganization removes an organization that has no members left.
// Deleting one with members fails so accounts are never orphaned silently.
func (h *HttpEndpoints) deleteOrganization(c *gin.Context) {
	token := managementToken(c)
	orgID := c.Param("orgID")

	if err := h.orgs.DeleteOrganization(token.InstanceID, orgID); err != nil {
		slog.Warn("failed to delete organization", slog.String("instanceID", token.InstanceID), slog.String("orgID", orgID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	slog.Info("organization deleted", slog.String("instanceID", token.InstanceID), slog.String("orgID", orgID))
	c.JSON(http.StatusOK, gin.H{"message": "organization deleted"})
}

type OrgMemberReq struct {
	AccountID string `json:"accountId"`
}

func (h *HttpEndpoints) addOrganizationMember(c *gin.Context) {
	token := managementToken(c)
	orgID := c.Param("orgID")

	if !canAccessOrg(token, orgID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var req OrgMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AccountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account id"})
		return
	}

	if _, err := h.userDBConn.GetAccountByID(token.InstanceID, req.AccountID); err != nil {
		writeAppError(c, err)
		return
	}

	if err := h.studyDBConn.AddOrganizationMember(token.InstanceID, orgID, req.AccountID); err != nil {
		slog.Warn("failed to add organization member", slog.String("instanceID", token.InstanceID), slog.String("orgID", orgID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member added"})
}

func (h *HttpEndpoints) removeOrganizationMember(c *gin.Context) {
	token := managementToken(c)
	orgID := c.Param("orgID")
	accountID := c.Param("accountID")

	if !canAccessOrg(token, orgID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if err := h.orgs.RemoveMember(token.InstanceID, orgID, accountID); err != nil {
		slog.Warn("failed to remove organization member", slog.String("instanceID", token.InstanceID), slog.String("orgID", orgID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

type CreateSubstudyReq struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	StudyKey string `json:"studyKey"`
}

func (h *HttpEndpoints) createSubstudy(c *gin.Context) {
	token := managementToken(c)
	orgID := c.Param("orgID")

	if !canAccessOrg(token, orgID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var req CreateSubstudyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Key == "" || req.StudyKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	if _, err := h.studyDBConn.GetOrganization(token.InstanceID, orgID); err != nil {
		writeAppError(c, err)
		return
	}

	substudy, err := h.studyDBConn.CreateSubstudy(token.InstanceID, studyDB.Substudy{
		Key:      req.Key,
		OrgID:    orgID,
		Name:     req.Name,
		StudyKey: req.StudyKey,
	})
	if err != nil {
		slog.Warn("failed to create substudy", slog.String("instanceID", token.InstanceID), slog.String("orgID", orgID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, substudy)
}

func (h *HttpEndpoints) getSubstudiesForOrg(c *gin.Context) {
	token := managementToken(c)
	orgID := c.Param("orgID")

	if !canAccessOrg(token, orgID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	substudies, err := h.studyDBConn.GetSubstudiesByOrg(token.InstanceID, orgID)
	if err != nil {
		slog.Error("failed to fetch substudies", slog.String("instanceID", token.InstanceID), slog.String("orgID", orgID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"substudies": substudies})
}

func (h *HttpEndpoints) getSubstudy(c *gin.Context) {
	token := managementToken(c)

	substudy, err := h.studyDBConn.GetSubstudyByKey(token.InstanceID, c.Param("substudyKey"))
	if err != nil {
		writeAppError(c, err)
		return
	}

	if !canAccessOrg(token, substudy.OrgID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusOK, substudy)
}

func (h *HttpEndpoints) deleteSubstudy(c *gin.Context) {
	token := managementToken(c)
	key := c.Param("substudyKey")

	if err := h.studyDBConn.DeleteSubstudy(token.InstanceID, key); err != nil {
		slog.Warn("failed to delete substudy", slog.String("instanceID", token.InstanceID), slog.String("substudyKey", key), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	slog.Info("substudy deleted", slog.String("instanceID", token.InstanceID), slog.String("substudyKey", key))
	c.JSON(http.StatusOK, gin.H{"message": "substudy deleted"})
}
