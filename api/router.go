package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/tubequeue/api/handlers"
	"github.com/yourusername/tubequeue/api/middleware"
	"github.com/yourusername/tubequeue/internal/app"
	"go.uber.org/zap"
)

// SetupRouter builds the HTTP API around the task manager and scheduler
func SetupRouter(
	manager *app.TaskManager,
	scheduler *app.Scheduler,
	log *zap.Logger,
	logsDir string,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(manager, scheduler)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		taskHandler := handlers.NewTaskHandler(manager, scheduler, log)
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", taskHandler.AddTask)
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/stats", taskHandler.GetStats)
			tasks.POST("/selection", taskHandler.ConfirmSelection)
			tasks.POST("/pause-all", taskHandler.PauseAll)
			tasks.POST("/resume-all", taskHandler.ResumeAll)
			tasks.POST("/clear", taskHandler.ClearAll)
			tasks.POST("/clear-completed", taskHandler.ClearCompleted)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.POST("/:id/pause", taskHandler.PauseTask)
			tasks.POST("/:id/resume", taskHandler.ResumeTask)
			tasks.POST("/:id/retry", taskHandler.RetryTask)
			tasks.POST("/:id/cancel", taskHandler.CancelTask)
			tasks.DELETE("/:id", taskHandler.RemoveTask)
		}

		logHandler := handlers.NewLogHandler(logsDir)
		wsHandler := handlers.NewLogWebSocketHandler(logsDir, log)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/stream", wsHandler.HandleWebSocket)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}
	}

	return router
}
