package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/dataset-fetch-go/internal/app"
	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

// Planner computes a fetch plan without side effects
type Planner interface {
	Plan(req domain.FetchRequest) (domain.Plan, error)
}

// RunHandler handles fetch run HTTP requests
type RunHandler struct {
	queueMgr *app.QueueManager
	runMgr   *app.RunManager
	planner  Planner
	defaults domain.DataConfig
	logger   *zap.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(
	queueMgr *app.QueueManager,
	runMgr *app.RunManager,
	planner Planner,
	defaults domain.DataConfig,
	logger *zap.Logger,
) *RunHandler {
	return &RunHandler{
		queueMgr: queueMgr,
		runMgr:   runMgr,
		planner:  planner,
		defaults: defaults,
		logger:   logger,
	}
}

// FetchRequestBody is the JSON body for enqueueing or planning a fetch.
// Omitted fields fall back to the server's data configuration.
type FetchRequestBody struct {
	URL              string `json:"url" binding:"required"`
	RootDir          string `json:"root_dir,omitempty"`
	WorkingDir       string `json:"working_dir,omitempty"`
	Convention       string `json:"convention,omitempty"`
	ReplaceDownload  *bool  `json:"replace_download,omitempty"`
	ReplaceExtracted *bool  `json:"replace_extracted,omitempty"`
}

func (h *RunHandler) toRequest(body FetchRequestBody) domain.FetchRequest {
	req := domain.FetchRequest{
		URL:              body.URL,
		RootDir:          body.RootDir,
		WorkingDir:       body.WorkingDir,
		Convention:       domain.Convention(body.Convention),
		ReplaceDownload:  h.defaults.ReplaceDownload,
		ReplaceExtracted: h.defaults.ReplaceExtracted,
	}
	if req.RootDir == "" {
		req.RootDir = h.defaults.RootDir
	}
	if req.Convention == "" {
		req.Convention = domain.Convention(h.defaults.Convention)
	}
	if body.ReplaceDownload != nil {
		req.ReplaceDownload = *body.ReplaceDownload
	}
	if body.ReplaceExtracted != nil {
		req.ReplaceExtracted = *body.ReplaceExtracted
	}
	return req
}

// AddRun handles POST /api/v1/runs
func (h *RunHandler) AddRun(c *gin.Context) {
	var body FetchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.queueMgr.AddRun(h.toRequest(body))
	if err != nil {
		h.writeError(c, "Failed to add run", err)
		return
	}

	c.JSON(http.StatusCreated, run)
}

// Plan handles POST /api/v1/plan
func (h *RunHandler) Plan(c *gin.Context) {
	var body FetchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.planner.Plan(h.toRequest(body))
	if err != nil {
		h.writeError(c, "Failed to plan fetch", err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.queueMgr.GetRun(c.Param("id"))
	if err != nil {
		h.writeError(c, "Failed to get run", err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if rootDir := c.Query("root_dir"); rootDir != "" {
		filters["root_dir"] = rootDir
	}

	runs, err := h.queueMgr.ListRuns(filters)
	if err != nil {
		h.writeError(c, "Failed to list runs", err)
		return
	}

	c.JSON(http.StatusOK, runs)
}

// GetStats handles GET /api/v1/runs/stats
func (h *RunHandler) GetStats(c *gin.Context) {
	stats, err := h.queueMgr.GetStats()
	if err != nil {
		h.writeError(c, "Failed to get stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CancelRun handles POST /api/v1/runs/:id/cancel
func (h *RunHandler) CancelRun(c *gin.Context) {
	if err := h.runMgr.CancelRun(c.Param("id")); err != nil {
		h.writeError(c, "Failed to cancel run", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "run cancelled"})
}

// RetryRun handles POST /api/v1/runs/:id/retry
func (h *RunHandler) RetryRun(c *gin.Context) {
	if err := h.runMgr.RetryRun(c.Param("id")); err != nil {
		h.writeError(c, "Failed to retry run", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "run queued for retry"})
}

// DeleteRun handles DELETE /api/v1/runs/:id
func (h *RunHandler) DeleteRun(c *gin.Context) {
	if err := h.runMgr.DeleteRun(c.Param("id")); err != nil {
		h.writeError(c, "Failed to delete run", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "run deleted"})
}

func (h *RunHandler) writeError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrUnsupportedArchiveType):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRunState):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(msg, zap.String("id", c.Param("id")), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
