package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/tubequeue/internal/app"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	manager   *app.TaskManager
	scheduler *app.Scheduler
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(manager *app.TaskManager, scheduler *app.Scheduler) *HealthHandler {
	return &HealthHandler{
		manager:   manager,
		scheduler: scheduler,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Queue   struct {
		Running bool `json:"running"`
		Paused  bool `json:"paused"`
	} `json:"queue"`
}

// Health handles GET /health. The scheduler idles when no work exists, so
// running=false is a normal state, not a failure.
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	response.Queue.Running = h.scheduler.IsRunning()
	response.Queue.Paused = h.manager.GlobalPause()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
