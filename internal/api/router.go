// Package api exposes the engine over a JSON HTTP API.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pacekeeper/internal/auth"
	"pacekeeper/internal/repository"
	"pacekeeper/internal/service"
)

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Engine *service.EngineService
	Tasks  *service.TaskService
	Users  *repository.UserRepository
	Issuer *auth.Issuer
	Log    *zap.SugaredLogger
	Now    func() time.Time
	// DevTokens enables the unauthenticated token endpoint.
	DevTokens bool
}

func NewRouter(d Deps) *gin.Engine {
	h := NewHandler(d)

	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware(), requestLogger(h.log))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	public := r.Group("/api/v1")
	if d.DevTokens {
		public.POST("/auth/dev-token", h.DevToken)
	}

	private := r.Group("/api/v1")
	private.Use(authMiddleware(d.Issuer))
	{
		private.GET("/today", h.Today)
		private.GET("/shadow", h.Shadow)
		private.GET("/progress", h.Progress)
		private.GET("/streaks/life", h.LifeStreak)
		private.POST("/streaks/life/revive", h.ReviveLife)
		private.POST("/goals", h.CreateGoal)
		private.GET("/goals/:id/streak", h.GoalStreak)
		private.POST("/goals/:id/streak/revive", h.ReviveGoal)
		private.POST("/tasks", h.CreateTask)
		private.DELETE("/tasks/:id", h.DeleteTask)
		private.POST("/tasks/:id/complete", h.CompleteTask)
		private.POST("/tasks/:id/overrides", h.AddOverride)
		private.PUT("/me/timezone", h.SetTimezone)
	}
	return r
}
