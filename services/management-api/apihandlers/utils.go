package apihandlers

import (
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	jwthandling "github.com/case-framework/enrollment-backend/pkg/jwt-handling"
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

func managementToken(c *gin.Context) *jwthandling.ManagementUserClaims {
	return c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)
}

// substudyScopeForToken resolves the substudies the caller may see
// participant data for. Admins see every substudy of the instance, other
// management users only the scope baked into their token.
func (h *HttpEndpoints) substudyScopeForToken(token *jwthandling.ManagementUserClaims) ([]string, error) {
	if !token.IsAdmin {
		return token.SubstudyScope, nil
	}

	substudies, err := h.studyDBConn.GetSubstudies(token.InstanceID)
	if err != nil {
		return nil, err
	}
	scope := make([]string, 0, len(substudies))
	for _, substudy := range substudies {
		scope = append(scope, substudy.Key)
	}
	return scope, nil
}

// canAccessOrg limits org level operations to admins and members of the org
// itself.
func canAccessOrg(token *jwthandling.ManagementUserClaims, orgID string) bool {
	if token.IsAdmin {
		return true
	}
	return token.OrgID != "" && token.OrgID == orgID
}

func scrubAccount(account userTypes.Account) userTypes.Account {
	account.Password = ""
	account.FailedLoginAttempts = nil
	return account
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
