package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/itlsolutions/webmail/api/handlers"
	"github.com/itlsolutions/webmail/api/middleware"
	"github.com/itlsolutions/webmail/config"
	"github.com/itlsolutions/webmail/internal/tracing"
	"github.com/itlsolutions/webmail/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services, appConfig *config.AppConfig) {
	if s == nil {
		panic("Services cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(s)

	r.GET("/health", handlers.HealthCheck)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-WEBMAIL-API-KEY",
		ValidAPIKey: appConfig.APIKey,
	})

	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.TracingMiddleware())
	{
		emails := api.Group("/emails")
		{
			emails.GET("", apiHandlers.Emails.List())
			emails.POST("", apiHandlers.Emails.Send())
			emails.GET("/unread-count", apiHandlers.Emails.UnreadCount())
			emails.GET("/:id", apiHandlers.Emails.Get())
			emails.GET("/:id/thread", apiHandlers.Emails.Thread())
			emails.POST("/:id/reply", apiHandlers.Emails.Reply())
			emails.POST("/:id/forward", apiHandlers.Emails.Forward())
			emails.PUT("/:id/read", apiHandlers.Emails.SetRead())
			emails.PUT("/:id/star", apiHandlers.Emails.SetStarred())
			emails.DELETE("/:id", apiHandlers.Emails.Delete())
		}

		attachments := api.Group("/attachments")
		{
			attachments.GET("/:id", apiHandlers.Emails.DownloadAttachment())
		}

		sync := api.Group("/sync")
		{
			sync.POST("", apiHandlers.Emails.Sync(appConfig.SyncFolders))
			sync.POST("/:folder", apiHandlers.Emails.Sync(appConfig.SyncFolders))
		}

		notifications := api.Group("/notifications")
		{
			notifications.POST("/contact", apiHandlers.Notifications.Contact())
			notifications.POST("/chat", apiHandlers.Notifications.Chat())
		}
	}
}
