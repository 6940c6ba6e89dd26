package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/domain"
)

// HTTPCallbackNotifier posts completion details back to the caller that
// registered a callback target with the task. Delivery is best effort.
type HTTPCallbackNotifier struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPCallbackNotifier creates a callback notifier
func NewHTTPCallbackNotifier(logger *zap.Logger) *HTTPCallbackNotifier {
	return &HTTPCallbackNotifier{
		client: &http.Client{Timeout: 20 * time.Second},
		logger: logger,
	}
}

type callbackPayload struct {
	CorrelationID string `json:"correlationId,omitempty"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Duration      int64  `json:"duration,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	OutputPath    string `json:"outputPath"`
}

// NotifyCompleted posts the task's completion payload to its callback target
func (n *HTTPCallbackNotifier) NotifyCompleted(task *domain.Task) {
	if task.CallbackTarget == "" {
		return
	}

	payload := callbackPayload{
		CorrelationID: task.CorrelationID,
		URL:           task.URL,
		Title:         task.Title,
		Duration:      task.Duration,
		Thumbnail:     task.Thumbnail,
		OutputPath:    task.OutputPath,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("Failed to encode callback payload",
			zap.String("id", task.ID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, task.CallbackTarget, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("Failed to build callback request",
			zap.String("id", task.ID),
			zap.String("target", task.CallbackTarget),
			zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("Callback delivery failed",
			zap.String("id", task.ID),
			zap.String("target", task.CallbackTarget),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("Callback rejected",
			zap.String("id", task.ID),
			zap.String("target", task.CallbackTarget),
			zap.Int("status", resp.StatusCode))
	}
}
