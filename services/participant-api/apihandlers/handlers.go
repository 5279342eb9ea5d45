package apihandlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/case-framework/enrollment-backend/pkg/consent"
	idregistry "github.com/case-framework/enrollment-backend/pkg/id-registry"
	usermanagement "github.com/case-framework/enrollment-backend/pkg/user-management"

	userDB "github.com/case-framework/enrollment-backend/pkg/db/participant-user"
	studyDB "github.com/case-framework/enrollment-backend/pkg/db/study"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type HttpEndpoints struct {
	tokenSignKey       string
	tokenExpiresIn     time.Duration
	allowedInstanceIDs []string
	userDBConn         *userDB.ParticipantUserDBService
	studyDBConn        *studyDB.StudyDBService
	identity           *usermanagement.IdentityResolver
	registry           *idregistry.Service
	consents           *consent.Engine
}

func NewHTTPHandler(
	tokenSignKey string,
	tokenExpiresIn time.Duration,
	allowedInstanceIDs []string,
	userDBConn *userDB.ParticipantUserDBService,
	studyDBConn *studyDB.StudyDBService,
	identity *usermanagement.IdentityResolver,
	registry *idregistry.Service,
	consents *consent.Engine,
) *HttpEndpoints {
	return &HttpEndpoints{
		tokenSignKey:       tokenSignKey,
		tokenExpiresIn:     tokenExpiresIn,
		allowedInstanceIDs: allowedInstanceIDs,
		userDBConn:         userDBConn,
		studyDBConn:        studyDBConn,
		identity:           identity,
		registry:           registry,
		consents:           consents,
	}
}
