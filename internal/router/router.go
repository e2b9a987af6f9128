package router

import (
	"time"

	"github.com/docutrack/docutrack/internal/handlers"
	"github.com/docutrack/docutrack/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(h *handlers.Handlers, allowedOrigins []string) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	requireUser := middleware.AuthMiddleware(h.Signer(), h.Store())

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/ws", requireUser, h.WebSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.CreateUser)
			auth.POST("/login", h.LoginUser)
			auth.POST("/logout", h.LogoutUser)
			auth.GET("/me", requireUser, h.Me)
		}

		events := api.Group("/events", requireUser)
		{
			events.GET("", h.ListEvents)
			events.POST("", h.CreateEvent)
			events.PATCH("/:event_id", h.UpdateEvent)
			events.DELETE("/:event_id", h.DeleteEvent)

			events.GET("/:event_id/documents", h.ListDocuments)
			events.POST("/:event_id/documents", h.CreateDocument)
			events.PATCH("/:event_id/documents/:document_id", h.UpdateDocument)
			events.PUT("/:event_id/documents/:document_id/status", h.SetDocumentStatus)
			events.PUT("/:event_id/documents/:document_id/completion", h.SetDocumentCompletion)
			events.DELETE("/:event_id/documents/:document_id", h.DeleteDocument)
		}

		rules := api.Group("/notification-rules", requireUser)
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.DELETE("/:rule_id", h.DeleteRule)
		}
	}

	return r
}
