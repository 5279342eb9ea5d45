package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/case-framework/enrollment-backend/pkg/apihelpers/middlewares"
	"github.com/case-framework/enrollment-backend/pkg/notifications"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
)

func (h *HttpEndpoints) AddMessagingAPI(rg *gin.RouterGroup) {
	templatesGroup := rg.Group("/message-templates")

	templatesGroup.Use(mw.GetAndValidateManagementUserJWT(h.tokenSignKey))
	templatesGroup.Use(mw.IsInstanceIDInJWTAllowed(h.allowedInstanceIDs))
	templatesGroup.Use(mw.HasAnyRole(userTypes.ROLE_ORG_ADMIN, userTypes.ROLE_DEVELOPER))
	{
		templatesGroup.GET("", h.getMessageTemplates)
		templatesGroup.GET("/:templateGUID", h.getMessageTemplate)
		templatesGroup.POST("", mw.RequirePayload(), h.saveMessageTemplate)
		templatesGroup.DELETE("/:templateGUID", h.deleteMessageTemplate)
	}
}

func (h *HttpEndpoints) getMessageTemplates(c *gin.Context) {
	token := managementToken(c)

	templates, err := h.messagingDBConn.GetAllMessageTemplates(token.InstanceID)
	if err != nil {
		slog.Error("failed to fetch message templates", slog.String("instanceID", token.InstanceID), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (h *HttpEndpoints) getMessageTemplate(c *gin.Context) {
	token := managementToken(c)

	template, err := h.messagingDBConn.GetMessageTemplateByGUID(token.InstanceID, c.Param("templateGUID"))
	if err != nil {
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

func (h *HttpEndpoints) saveMessageTemplate(c *gin.Context) {
	token := managementToken(c)

	var template notifications.MessageTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if template.MessageType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing message type"})
		return
	}
	if template.Criteria != nil {
		if err := template.Criteria.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	saved, err := h.messagingDBConn.SaveMessageTemplate(token.InstanceID, template)
	if err != nil {
		slog.Warn("failed to save message template", slog.String("instanceID", token.InstanceID), slog.String("messageType", template.MessageType), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, saved)
}

func (h *HttpEndpoints) deleteMessageTemplate(c *gin.Context) {
	token := managementToken(c)
	guid := c.Param("templateGUID")

	if err := h.messagingDBConn.DeleteMessageTemplate(token.InstanceID, guid); err != nil {
		slog.Warn("failed to delete message template", slog.String("instanceID", token.InstanceID), slog.String("templateGUID", guid), slog.String("error", err.Error()))
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "template deleted"})
}
