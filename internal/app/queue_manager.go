package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
	"github.com/yourusername/dataset-fetch-go/pkg/logger"
)

// QueueNotifier is told about queue-level events
type QueueNotifier interface {
	NotifyRunQueued(run *domain.FetchRun)
	NotifyQueueEmpty()
}

// QueueManager feeds queued runs to the RunManager one at a time
type QueueManager struct {
	repo        domain.RunRepository
	runMgr      *RunManager
	config      *domain.QueueConfig
	multiLogger *logger.MultiLogger
	notifier    QueueNotifier
	mu          sync.RWMutex
	running     bool
	stopChan    chan struct{}
	workerWg    sync.WaitGroup
}

// NewQueueManager creates a new queue manager
func NewQueueManager(
	repo domain.RunRepository,
	runMgr *RunManager,
	config *domain.QueueConfig,
	multiLogger *logger.MultiLogger,
) *QueueManager {
	return &QueueManager{
		repo:        repo,
		runMgr:      runMgr,
		config:      config,
		multiLogger: multiLogger,
		stopChan:    make(chan struct{}),
	}
}

// SetNotifier sets the queue event notifier. Call before Start.
func (qm *QueueManager) SetNotifier(n QueueNotifier) {
	qm.notifier = n
}

// Start starts the queue processor. Runs left in processing by a previous
// process are requeued first.
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.stopChan = make(chan struct{})
	qm.mu.Unlock()

	if n, err := qm.repo.ResetProcessing(); err != nil {
		qm.logError("Failed to requeue interrupted runs", zap.Error(err))
	} else if n > 0 {
		qm.logEvent("runs_requeued", zap.Int64("count", n))
	}

	qm.logEvent("queue_started")

	qm.workerWg.Add(1)
	go qm.processQueue(ctx)

	return nil
}

// Stop stops the queue processor and waits for the current run to finish
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	qm.mu.Unlock()

	qm.logEvent("queue_stopped")
	close(qm.stopChan)
	qm.workerWg.Wait()

	return nil
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// AddRun queues a fetch for req. A run already queued or processing for an
// identical request is returned instead of a duplicate.
func (qm *QueueManager) AddRun(req domain.FetchRequest) (*domain.FetchRun, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := qm.repo.FindActive(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing runs: %w", err)
	}
	if existing != nil {
		qm.logEvent("run_duplicate",
			zap.String("id", existing.ID),
			zap.String("url", req.URL),
			zap.String("status", string(existing.Status)))
		return existing, nil
	}

	run := domain.NewFetchRun(req)
	if err := qm.repo.Create(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	qm.logEvent("run_added",
		zap.String("id", run.ID),
		zap.String("url", run.URL),
		zap.String("root_dir", run.RootDir),
		zap.String("convention", string(run.Convention)))

	if qm.notifier != nil {
		qm.notifier.NotifyRunQueued(run)
	}

	return run, nil
}

// GetRun retrieves a run by ID
func (qm *QueueManager) GetRun(id string) (*domain.FetchRun, error) {
	return qm.repo.FindByID(id)
}

// ListRuns lists all runs with optional filters
func (qm *QueueManager) ListRuns(filters map[string]interface{}) ([]*domain.FetchRun, error) {
	return qm.repo.FindAll(filters)
}

// GetStats returns queue statistics
func (qm *QueueManager) GetStats() (*domain.RunStats, error) {
	return qm.repo.GetStats()
}

func (qm *QueueManager) processQueue(ctx context.Context) {
	defer qm.workerWg.Done()

	ticker := time.NewTicker(qm.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			qm.logEvent("queue_processor_stopped", zap.String("reason", "context_cancelled"))
			return
		case <-qm.stopChan:
			qm.logEvent("queue_processor_stopped", zap.String("reason", "stop_signal"))
			return
		case <-ticker.C:
			qm.drain(ctx)
		}
	}
}

// drain processes pending runs serially until the queue is empty or the
// processor is asked to stop.
func (qm *QueueManager) drain(ctx context.Context) {
	pending, err := qm.repo.FindPending()
	if err != nil {
		qm.logError("Failed to fetch pending runs", zap.Error(err))
		return
	}

	processed := 0
	for _, run := range pending {
		select {
		case <-ctx.Done():
			return
		case <-qm.stopChan:
			return
		default:
		}

		// the run may have been cancelled since the batch was read
		current, err := qm.repo.FindByID(run.ID)
		if err != nil || !current.IsPending() {
			continue
		}

		qm.logEvent("run_started", zap.String("id", current.ID), zap.String("url", current.URL))
		processed++

		if err := qm.runMgr.ProcessRun(ctx, current); err != nil {
			qm.logEvent("run_failed", zap.String("id", current.ID), zap.Error(err))
			qm.logError("Failed to process run", zap.String("id", current.ID), zap.Error(err))
			continue
		}

		qm.logEvent("run_completed",
			zap.String("id", current.ID),
			zap.String("extraction_dir", current.ExtractionDir),
			zap.String("working_dir", current.ResolvedWorkDir))
	}

	if processed > 0 {
		qm.logEvent("queue_empty", zap.Int("processed", processed))
		if qm.notifier != nil {
			qm.notifier.NotifyQueueEmpty()
		}
	}
}

func (qm *QueueManager) logEvent(event string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogRunEvent(event, fields...)
	}
}

func (qm *QueueManager) logError(msg string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogAppError(msg, fields...)
	}
}
