package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/case-framework/enrollment-backend/pkg/apihelpers"
	"github.com/case-framework/enrollment-backend/pkg/consent"
	idregistry "github.com/case-framework/enrollment-backend/pkg/id-registry"
	"github.com/case-framework/enrollment-backend/pkg/notifications"
	usermanagement "github.com/case-framework/enrollment-backend/pkg/user-management"
	"github.com/case-framework/enrollment-backend/services/participant-api/apihandlers"
)

var conf ParticipantApiConfig

func main() {
	notificationSender := notifications.NewSender(
		messagingDBService,
		loadMessagingBridgeClientConfig(),
	)

	authenticator := usermanagement.NewPasswordAuthenticator(participantUserDBService)
	identity := usermanagement.NewIdentityResolver(participantUserDBService, authenticator, notificationSender)
	registry := idregistry.NewService(
		participantUserDBService,
		studyDBService,
		participantUserDBService,
		conf.IDRegistryConfig.SubstudyValidation,
	)
	consentEngine := consent.NewEngine(studyDBService)

	// Start webserver
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.GinConfig.AllowOrigins,
		AllowMethods:     []string{"POST", "GET", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length", "Accept-Language"},
		ExposeHeaders:    []string{"Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	v1Root := router.Group("/v1")

	v1APIHandlers := apihandlers.NewHTTPHandler(
		conf.UserManagementConfig.ParticipantUserJWTConfig.SignKey,
		conf.UserManagementConfig.ParticipantUserJWTConfig.ExpiresIn,
		conf.AllowedInstanceIDs,
		participantUserDBService,
		studyDBService,
		identity,
		registry,
		consentEngine,
	)
	v1APIHandlers.AddParticipantAuthAPI(v1Root)
	v1APIHandlers.AddParticipantUserAPI(v1Root)
	v1APIHandlers.AddConsentAPI(v1Root)
	v1APIHandlers.AddAppConfigAPI(v1Root)

	if conf.GinConfig.DebugMode {
		apihelpers.WriteRoutesToFile(router, "participant-api-routes.txt")
	}

	// Start the server
	slog.Info("Starting Participant API on port " + conf.GinConfig.Port)
	if !conf.GinConfig.MTLS.Use {
		err := router.Run(":" + conf.GinConfig.Port)
		if err != nil {
			slog.Error("Exited Participant API", slog.String("error", err.Error()))
			return
		}
	} else {
		// Create tls config for mutual TLS
		tlsConfig, err := apihelpers.LoadTLSConfig(conf.GinConfig.MTLS.CertificatePaths)
		if err != nil {
			slog.Error("Error loading TLS config.", slog.String("error", err.Error()))
			return
		}

		server := &http.Server{
			Addr:      ":" + conf.GinConfig.Port,
			Handler:   router,
			TLSConfig: tlsConfig,
		}

		err = server.ListenAndServeTLS(conf.GinConfig.MTLS.CertificatePaths.ServerCertPath, conf.GinConfig.MTLS.CertificatePaths.ServerKeyPath)
		if err != nil {
			slog.Error("Exited Participant API", slog.String("error", err.Error()))
			return
		}
	}
}
