package api

import (
	"github.com/gin-gonic/gin"

	"github.com/dtremaine/clauseflow/internal/config"
)

// NewRouter assembles the HTTP routes and middleware chain.
func NewRouter(cfg *config.Config, wf *WorkflowHandler, auth *AuthHandler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.Use(Recovery())
	r.Use(RequestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", auth.Login)

	protected := v1.Group("")
	protected.Use(AuthMiddleware(&cfg.Auth))
	{
		protected.POST("/contracts", wf.Ingest)
		protected.POST("/contracts/upload", wf.Upload)
		protected.GET("/contracts/:id", wf.GetState)
		protected.POST("/contracts/:id/approval", wf.SubmitApproval)
		protected.POST("/contracts/:id/meeting", wf.SubmitMeetingDate)
	}

	return r
}
