package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

type stubQueue struct {
	running bool
	stats   domain.RunStats
	err     error
}

func (s *stubQueue) IsRunning() bool { return s.running }

func (s *stubQueue) GetStats() (*domain.RunStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	stats := s.stats
	return &stats, nil
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	data := domain.DataConfig{RootDir: "/srv/data", Convention: string(domain.ConventionDataset)}
	backlog := domain.RunStats{Total: 7, Queued: 3, Processing: 1, Completed: 2, Failed: 1}

	tests := []struct {
		name        string
		queue       *stubQueue
		path        string
		wantCode    int
		wantStatus  string
		wantQueue   QueueHealth
		wantErrText string
	}{
		{
			name:       "health reports backlog",
			queue:      &stubQueue{running: true, stats: backlog},
			path:       "/health",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantQueue:  QueueHealth{Running: true, Queued: 3, Processing: 1, Failed: 1},
		},
		{
			name:        "health with unreadable store",
			queue:       &stubQueue{running: true, err: errors.New("database is locked")},
			path:        "/health",
			wantCode:    http.StatusOK,
			wantStatus:  "degraded",
			wantQueue:   QueueHealth{Running: true},
			wantErrText: "database is locked",
		},
		{
			name:       "ready",
			queue:      &stubQueue{running: true, stats: backlog},
			path:       "/ready",
			wantCode:   http.StatusOK,
			wantStatus: "ready",
			wantQueue:  QueueHealth{Running: true, Queued: 3, Processing: 1, Failed: 1},
		},
		{
			name:        "not ready when queue stopped",
			queue:       &stubQueue{stats: backlog},
			path:        "/ready",
			wantCode:    http.StatusServiceUnavailable,
			wantStatus:  "not ready",
			wantQueue:   QueueHealth{Queued: 3, Processing: 1, Failed: 1},
			wantErrText: "queue manager not running",
		},
		{
			name:        "not ready with unreadable store",
			queue:       &stubQueue{running: true, err: errors.New("database is locked")},
			path:        "/ready",
			wantCode:    http.StatusServiceUnavailable,
			wantStatus:  "not ready",
			wantQueue:   QueueHealth{Running: true},
			wantErrText: "database is locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.queue, data)
			router := gin.New()
			router.GET("/health", h.Health)
			router.GET("/ready", h.Ready)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, w.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, Version, resp.Version)
			assert.Equal(t, "/srv/data", resp.RootDir)
			assert.Equal(t, "dataset", resp.Convention)
			assert.Equal(t, tt.wantQueue, resp.Queue)
			assert.Equal(t, tt.wantErrText, resp.Error)
		})
	}
}
