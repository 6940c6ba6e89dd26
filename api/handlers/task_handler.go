package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/app"
	"github.com/yourusername/tubequeue/internal/domain"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	manager   *app.TaskManager
	scheduler *app.Scheduler
	logger    *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(manager *app.TaskManager, scheduler *app.Scheduler, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		manager:   manager,
		scheduler: scheduler,
		logger:    logger,
	}
}

// AddTaskRequest represents a request to add a task
type AddTaskRequest struct {
	URL           string `json:"url" binding:"required"`
	CallbackURL   string `json:"callbackUrl,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// AddTask handles POST /api/v1/tasks
func (h *TaskHandler) AddTask(c *gin.Context) {
	var req AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.manager.AddTask(c.Request.Context(), req.URL, app.AddOptions{
		CallbackTarget: req.CallbackURL,
		CorrelationID:  req.CorrelationID,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidURL), errors.Is(err, domain.ErrUnsupportedDomain):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrDuplicateURL):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to add task", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, task)
}

// ListTasks handles GET /api/v1/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks := h.manager.ListTasks()

	if status := c.Query("status"); status != "" {
		filtered := make([]*domain.Task, 0, len(tasks))
		for _, t := range tasks {
			if string(t.Status) == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":  tasks,
		"paused": h.manager.GlobalPause(),
	})
}

// GetTask handles GET /api/v1/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := h.manager.GetTask(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// GetStats handles GET /api/v1/tasks/stats
func (h *TaskHandler) GetStats(c *gin.Context) {
	stats, err := h.manager.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PauseTask handles POST /api/v1/tasks/:id/pause
func (h *TaskHandler) PauseTask(c *gin.Context) {
	if err := h.manager.PauseTask(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task paused"})
}

// ResumeTask handles POST /api/v1/tasks/:id/resume
func (h *TaskHandler) ResumeTask(c *gin.Context) {
	if err := h.manager.ResumeTask(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.scheduler.Kick(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "task resumed"})
}

// RetryTask handles POST /api/v1/tasks/:id/retry
func (h *TaskHandler) RetryTask(c *gin.Context) {
	if err := h.manager.RetryTask(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.scheduler.Kick(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "task queued for retry"})
}

// CancelTask handles POST /api/v1/tasks/:id/cancel
func (h *TaskHandler) CancelTask(c *gin.Context) {
	if err := h.manager.CancelTask(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task cancelled"})
}

// RemoveTask handles DELETE /api/v1/tasks/:id
func (h *TaskHandler) RemoveTask(c *gin.Context) {
	if err := h.manager.RemoveTask(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task removed"})
}

// SelectionRequest carries the user's subtitle and audio choices for one or
// more tasks awaiting selection
type SelectionRequest struct {
	TaskIDs       []string `json:"taskIds" binding:"required"`
	SubtitleLangs []string `json:"subtitleLangs,omitempty"`
	AudioLang     string   `json:"audioLang,omitempty"`
}

// ConfirmSelection handles POST /api/v1/tasks/selection
func (h *TaskHandler) ConfirmSelection(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.manager.ConfirmSelection(req.TaskIDs, domain.StringList(req.SubtitleLangs), req.AudioLang)
	h.scheduler.Kick(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "selection confirmed"})
}

// PauseAll handles POST /api/v1/tasks/pause-all
func (h *TaskHandler) PauseAll(c *gin.Context) {
	h.manager.PauseAll()
	c.JSON(http.StatusOK, gin.H{"message": "all tasks paused"})
}

// ResumeAll handles POST /api/v1/tasks/resume-all
func (h *TaskHandler) ResumeAll(c *gin.Context) {
	h.manager.ResumeAll()
	h.scheduler.Kick(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "all tasks resumed"})
}

// ClearCompleted handles POST /api/v1/tasks/clear-completed
func (h *TaskHandler) ClearCompleted(c *gin.Context) {
	h.manager.ClearCompleted()
	c.JSON(http.StatusOK, gin.H{"message": "completed tasks cleared"})
}

// ClearAll handles POST /api/v1/tasks/clear
func (h *TaskHandler) ClearAll(c *gin.Context) {
	h.manager.ClearAll()
	c.JSON(http.StatusOK, gin.H{"message": "all tasks cleared"})
}
