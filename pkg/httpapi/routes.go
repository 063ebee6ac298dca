package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the engine with every route registered.
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), GinZap(logger))
	RegisterRoutes(r, h)
	return r
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		api.GET("/tasks", h.ListTasks)
		api.POST("/tasks", h.CreateTask)
		api.DELETE("/tasks", h.ClearTasks)
		api.GET("/tasks/completed", h.ListCompleted)
		api.PATCH("/tasks/:id", h.EditTask)
		api.DELETE("/tasks/:id", h.DeleteTask)
		api.POST("/tasks/:id/complete", h.CompleteTask)
		api.POST("/tasks/:id/move", h.MoveTask)

		api.POST("/recalculate", h.Recalculate)
		api.GET("/stats", h.Stats)
		api.GET("/insights", h.Insights)
		api.GET("/notifications", h.Notifications)

		api.GET("/alerts", h.Alerts)
		api.POST("/alerts/dismiss", h.DismissAlert)
		api.POST("/alerts/snooze", h.SnoozeAlert)

		api.GET("/sync", h.SyncStatus)
		api.POST("/sync", h.SyncNow)
		api.POST("/sync/focus", h.Focus)
	}
}
