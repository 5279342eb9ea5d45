package apihandlers

import (
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/case-framework/enrollment-backend/pkg/apihelpers"
	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	"github.com/case-framework/enrollment-backend/pkg/criteria"
	userTypes "github.com/case-framework/enrollment-backend/pkg/user-management/types"
)

func (h *HttpEndpoints) isInstanceAllowed(instanceID string) bool {
	for _, id := range h.allowedInstanceIDs {
		if id == instanceID {
			return true
		}
	}
	return false
}

func randomWait(minTimeSec int, maxTimeSec int) {
	time.Sleep(time.Duration(rand.Intn(maxTimeSec-minTimeSec)+minTimeSec) * time.Second)
}

// criteriaContextFromRequest collects the matching context for the request:
// data groups from the account, languages from the Accept-Language header
// (account preferences as fallback), app and OS infos from query params.
func (h *HttpEndpoints) criteriaContextFromRequest(c *gin.Context, account *userTypes.Account) criteria.Context {
	ctx := criteria.Context{
		OSName:     c.Query("os"),
		AppVersion: c.Query("appVersion"),
	}
	ctx.Languages = apihelpers.ParseAcceptLanguages(c)
	if account != nil {
		ctx.DataGroups = account.DataGroups
		if len(ctx.Languages) == 0 {
			ctx.Languages = account.PreferredLanguages
		}
	}
	return ctx
}

// writeAppError maps the sentinel error taxonomy to HTTP statuses. The
// response body stays generic, details go to the logs only.
func writeAppError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(status, gin.H{"error": "not found"})
	case errors.Is(err, apperrors.ErrAlreadyExists):
		c.JSON(status, gin.H{"error": "already exists"})
	case errors.Is(err, apperrors.ErrInvalidEntity):
		c.JSON(status, gin.H{"error": "invalid request"})
	case errors.Is(err, apperrors.ErrConstraintViolation):
		c.JSON(status, gin.H{"error": "operation not allowed in current state"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(status, gin.H{"error": "unauthorized"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
