package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailbridge/api/handlers"
	"github.com/customeros/mailbridge/api/middleware"
	"github.com/customeros/mailbridge/internal/repository"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/services"
)

const AppSource = "mailbridge-api"

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Status(s.IMAPService, s.Sandbox))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  middleware.APIKeyHeader,
		ValidAPIKey: apikey,
	})

	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.CustomContextMiddleware(AppSource))
	api.Use(middleware.TracingMiddleware())
	{
		emails := api.Group("/emails")
		{
			emails.POST("", handlers.SubmitEmail(s.Submitter))
			emails.POST("/verify", handlers.VerifyEmail(s.Bridge, s.BridgeAccount))
		}

		api.GET("/accounts/:id", handlers.GetAccount(s.Sandbox))
		api.GET("/outcomes/:hash", handlers.GetOutcomes(s.Sandbox))
		api.GET("/keyring", handlers.ListKeyring(s.Keyring))

		mailboxes := api.Group("/mailboxes")
		{
			mailboxes.GET("", handlers.ListMailboxes(s.IMAPService))
			mailboxes.POST("", handlers.AddMailbox(s.IMAPService, repos.MailboxRepository))
		}
	}
}
