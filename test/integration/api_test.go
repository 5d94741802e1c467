//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/dataset-fetch-go/api"
	"github.com/yourusername/dataset-fetch-go/internal/app"
	"github.com/yourusername/dataset-fetch-go/internal/domain"
	"github.com/yourusername/dataset-fetch-go/internal/infrastructure"
	"github.com/yourusername/dataset-fetch-go/pkg/logger"
)

func setupTestServer(t *testing.T, rootDir string) *httptest.Server {
	t.Helper()

	repo, err := infrastructure.NewSQLiteRunRepository(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	data := domain.DefaultConfig().Data
	data.RootDir = rootDir
	data.Convention = string(domain.ConventionDataset)

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "info", LogsDir: data.LogsPath()})
	require.NoError(t, err)
	t.Cleanup(func() { multiLog.Close() })

	fetcher := newFetcher()
	runMgr := app.NewRunManager(repo, fetcher, nil, zap.NewNop())
	queueMgr := app.NewQueueManager(repo, runMgr, &domain.QueueConfig{CheckInterval: 20 * time.Millisecond}, multiLog)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, queueMgr.Start(ctx))
	t.Cleanup(func() {
		cancel()
		queueMgr.Stop()
	})

	router := api.SetupRouter(api.RouterDeps{
		QueueMgr:    queueMgr,
		RunMgr:      runMgr,
		Planner:     fetcher,
		Data:        data,
		Logger:      zap.NewNop(),
		MultiLogger: multiLog,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func getRun(t *testing.T, baseURL, id string) domain.FetchRun {
	t.Helper()
	resp, err := http.Get(baseURL + "/api/v1/runs/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()

	var run domain.FetchRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	return run
}

func TestAPI_QueuedRunCompletes(t *testing.T) {
	files := newFileServer(t, map[string][]byte{
		"/ISIC2018_Task3_Training_GroundTruth.zip": zipArchive(t, map[string]string{
			"ISIC2018_Task3_Training_GroundTruth/labels.csv": "image,MEL\n",
		}),
	})
	root := filepath.Join(t.TempDir(), "data")
	srv := setupTestServer(t, root)

	resp := postJSON(t, srv.URL+"/api/v1/runs", map[string]interface{}{
		"url":         files.URL + "/ISIC2018_Task3_Training_GroundTruth.zip",
		"working_dir": "isic2018",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created domain.FetchRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	require.Eventually(t, func() bool {
		return getRun(t, srv.URL, created.ID).Status == domain.StatusCompleted
	}, 5*time.Second, 50*time.Millisecond)

	run := getRun(t, srv.URL, created.ID)
	assert.Equal(t, filepath.Join(root, "isic2018", "training_groundtruth"), run.ExtractionDir)
	assert.True(t, run.Downloaded)
	assert.True(t, run.Extracted)
	assert.FileExists(t, filepath.Join(run.ExtractionDir, "labels.csv"))

	// the event is written after the status update
	assert.Eventually(t, func() bool {
		logs, err := http.Get(srv.URL + "/api/v1/logs/run/search?q=run_completed")
		if err != nil {
			return false
		}
		defer logs.Body.Close()
		var body struct {
			Count int `json:"count"`
		}
		return json.NewDecoder(logs.Body).Decode(&body) == nil && body.Count == 1
	}, 2*time.Second, 50*time.Millisecond)
}

func TestAPI_FailedRunCanBeRetried(t *testing.T) {
	files := newFileServer(t, nil)
	srv := setupTestServer(t, filepath.Join(t.TempDir(), "data"))

	resp := postJSON(t, srv.URL+"/api/v1/runs", map[string]interface{}{
		"url":        files.URL + "/missing.zip",
		"convention": "generic",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created domain.FetchRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	require.Eventually(t, func() bool {
		return getRun(t, srv.URL, created.ID).Status == domain.StatusFailed
	}, 5*time.Second, 50*time.Millisecond)
	assert.Contains(t, getRun(t, srv.URL, created.ID).ErrorMessage, "404")

	retry, err := http.Post(srv.URL+"/api/v1/runs/"+created.ID+"/retry", "application/json", nil)
	require.NoError(t, err)
	retry.Body.Close()
	assert.Equal(t, http.StatusOK, retry.StatusCode)
}

func TestAPI_PlanHasNoSideEffects(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	srv := setupTestServer(t, root)

	resp := postJSON(t, srv.URL+"/api/v1/plan", map[string]interface{}{
		"url": "https://example.com/ISIC2018_Task3_Validation_Input.zip",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var plan domain.Plan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plan))
	assert.Equal(t, filepath.Join(root, "downloads", "ISIC2018_Task3_Validation_Input.zip"), plan.DownloadPath)
	assert.True(t, plan.ShouldDownload)
	assert.NoFileExists(t, plan.DownloadPath)
}
