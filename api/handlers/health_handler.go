package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// QueueStatus is the part of the queue manager the health endpoints read
type QueueStatus interface {
	IsRunning() bool
	GetStats() (*domain.RunStats, error)
}

// HealthHandler reports queue backlog and the data root being served
type HealthHandler struct {
	queue QueueStatus
	data  domain.DataConfig
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(queue QueueStatus, data domain.DataConfig) *HealthHandler {
	return &HealthHandler{queue: queue, data: data}
}

// QueueHealth summarizes the run backlog
type QueueHealth struct {
	Running    bool  `json:"running"`
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Failed     int64 `json:"failed"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Version    string      `json:"version"`
	RootDir    string      `json:"root_dir"`
	Convention string      `json:"convention"`
	Queue      QueueHealth `json:"queue"`
	Error      string      `json:"error,omitempty"`
}

func (h *HealthHandler) report() HealthResponse {
	resp := HealthResponse{
		Status:     "ok",
		Version:    Version,
		RootDir:    h.data.RootDir,
		Convention: h.data.Convention,
		Queue:      QueueHealth{Running: h.queue.IsRunning()},
	}

	stats, err := h.queue.GetStats()
	if err != nil {
		resp.Status = "degraded"
		resp.Error = err.Error()
		return resp
	}
	resp.Queue.Queued = stats.Queued
	resp.Queue.Processing = stats.Processing
	resp.Queue.Failed = stats.Failed
	return resp
}

// Health handles GET /health. A run store that cannot be read is reported
// as degraded without failing the liveness check.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.report())
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	resp := h.report()
	switch {
	case !resp.Queue.Running:
		resp.Status = "not ready"
		resp.Error = "queue manager not running"
	case resp.Status != "ok":
		resp.Status = "not ready"
	default:
		resp.Status = "ready"
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusServiceUnavailable, resp)
}
