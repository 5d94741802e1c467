package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/dataset-fetch-go/api/handlers"
	"github.com/yourusername/dataset-fetch-go/api/middleware"
	"github.com/yourusername/dataset-fetch-go/internal/app"
	"github.com/yourusername/dataset-fetch-go/internal/domain"
	"github.com/yourusername/dataset-fetch-go/pkg/logger"
)

// RouterDeps bundles everything the HTTP layer talks to
type RouterDeps struct {
	QueueMgr    *app.QueueManager
	RunMgr      *app.RunManager
	Planner     handlers.Planner
	Data        domain.DataConfig
	Logger      *zap.Logger
	MultiLogger *logger.MultiLogger // optional
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger, deps.MultiLogger))

	healthHandler := handlers.NewHealthHandler(deps.QueueMgr, deps.Data)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		runHandler := handlers.NewRunHandler(deps.QueueMgr, deps.RunMgr, deps.Planner, deps.Data, deps.Logger)
		v1.POST("/plan", runHandler.Plan)

		runs := v1.Group("/runs")
		{
			runs.POST("", runHandler.AddRun)
			runs.GET("", runHandler.ListRuns)
			runs.GET("/stats", runHandler.GetStats)
			runs.GET("/:id", runHandler.GetRun)
			runs.POST("/:id/cancel", runHandler.CancelRun)
			runs.POST("/:id/retry", runHandler.RetryRun)
			runs.DELETE("/:id", runHandler.DeleteRun)
		}

		logsDir := deps.Data.LogsPath()
		if deps.MultiLogger != nil {
			logsDir = deps.MultiLogger.GetLogsDir()
		}
		logHandler := handlers.NewLogHandler(logsDir)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "not found"})
	})

	return router
}
