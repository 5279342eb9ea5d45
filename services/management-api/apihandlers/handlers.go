package apihandlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	idregistry "github.com/case-framework/enrollment-backend/pkg/id-registry"
	orgmanagement "github.com/case-framework/enrollment-backend/pkg/org-management"

	messagingDB "github.com/case-framework/enrollment-backend/pkg/db/messaging"
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
	apiKeys            []string
	userDBConn         *userDB.ParticipantUserDBService
	studyDBConn        *studyDB.StudyDBService
	messagingDBConn    *messagingDB.MessagingDBService
	registry           *idregistry.Service
	orgs               *orgmanagement.Service
}

func NewHTTPHandler(
	tokenSignKey string,
	tokenExpiresIn time.Duration,
	allowedInstanceIDs []string,
	apiKeys []string,
	userDBConn *userDB.ParticipantUserDBService,
	studyDBConn *studyDB.StudyDBService,
	messagingDBConn *messagingDB.MessagingDBService,
	registry *idregistry.Service,
) *HttpEndpoints {
	return &HttpEndpoints{
		tokenSignKey:       tokenSignKey,
		tokenExpiresIn:     tokenExpiresIn,
		allowedInstanceIDs: allowedInstanceIDs,
		apiKeys:            apiKeys,
		userDBConn:         userDBConn,
		studyDBConn:        studyDBConn,
		messagingDBConn:    messagingDBConn,
		registry:           registry,
		orgs:               orgmanagement.NewService(studyDBConn),
	}
}
