package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

// RunFetcher performs one fetch invocation
type RunFetcher interface {
	Fetch(ctx context.Context, req domain.FetchRequest, progress domain.ProgressFunc) (*domain.FetchResult, error)
}

// RunNotifier is told about run lifecycle changes
type RunNotifier interface {
	NotifyRunStarted(run *domain.FetchRun)
	NotifyRunCompleted(run *domain.FetchRun)
	NotifyRunFailed(run *domain.FetchRun, err error)
}

// RunManager executes fetch runs and records their outcome
type RunManager struct {
	repo     domain.RunRepository
	fetcher  RunFetcher
	notifier RunNotifier
	logger   *zap.Logger
	sem      chan struct{} // one run at a time
}

// NewRunManager creates a new run manager. notifier may be nil.
func NewRunManager(
	repo domain.RunRepository,
	fetcher RunFetcher,
	notifier RunNotifier,
	logger *zap.Logger,
) *RunManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunManager{
		repo:     repo,
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logger,
		sem:      make(chan struct{}, 1),
	}
}

// ProcessRun executes a single run. Failures are recorded on the run and
// returned; there is no automatic retry.
func (rm *RunManager) ProcessRun(ctx context.Context, run *domain.FetchRun) error {
	return rm.ProcessRunWithProgress(ctx, run, nil)
}

// ProcessRunWithProgress is ProcessRun with a caller-supplied progress sink.
// A nil progress falls back to periodic debug logging.
func (rm *RunManager) ProcessRunWithProgress(ctx context.Context, run *domain.FetchRun, progress domain.ProgressFunc) error {
	if progress == nil {
		progress = rm.progressLogger(run)
	}

	select {
	case rm.sem <- struct{}{}:
		defer func() { <-rm.sem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	rm.logger.Info("Processing run",
		zap.String("id", run.ID),
		zap.String("url", run.URL),
		zap.String("root_dir", run.RootDir),
		zap.String("convention", string(run.Convention)))

	run.MarkProcessing()
	if err := rm.repo.Update(run); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	if rm.notifier != nil {
		rm.notifier.NotifyRunStarted(run)
	}

	result, err := rm.fetcher.Fetch(ctx, run.Request(), progress)
	if err != nil {
		run.MarkFailed(err)
		if uerr := rm.repo.Update(run); uerr != nil {
			rm.logger.Error("Failed to update run status", zap.String("id", run.ID), zap.Error(uerr))
		}

		rm.logger.Error("Run failed",
			zap.String("id", run.ID),
			zap.String("url", run.URL),
			zap.Error(err))

		if rm.notifier != nil {
			rm.notifier.NotifyRunFailed(run, err)
		}
		return err
	}

	run.MarkCompleted(result)
	if err := rm.repo.Update(run); err != nil {
		rm.logger.Error("Failed to update run status", zap.String("id", run.ID), zap.Error(err))
	}

	rm.logger.Info("Run completed",
		zap.String("id", run.ID),
		zap.Stringer("extraction_dir", result.Extraction),
		zap.String("working_dir", result.WorkingDir),
		zap.Bool("downloaded", result.Downloaded),
		zap.Bool("extracted", result.Extracted))

	if rm.notifier != nil {
		rm.notifier.NotifyRunCompleted(run)
	}
	return nil
}

// progressLogger reports transfer progress at debug level, at most every few seconds
func (rm *RunManager) progressLogger(run *domain.FetchRun) domain.ProgressFunc {
	var last time.Time
	return func(transferred, total int64) {
		if time.Since(last) < 5*time.Second {
			return
		}
		last = time.Now()
		rm.logger.Debug("Run progress",
			zap.String("id", run.ID),
			zap.Int64("transferred", transferred),
			zap.Int64("total", total))
	}
}

// CancelRun cancels a queued run
func (rm *RunManager) CancelRun(id string) error {
	run, err := rm.repo.FindByID(id)
	if err != nil {
		return err
	}

	if !run.IsPending() {
		return fmt.Errorf("%w: cannot cancel %s run", domain.ErrInvalidRunState, run.Status)
	}

	run.Status = domain.StatusCancelled
	run.UpdatedAt = time.Now()

	if err := rm.repo.Update(run); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rm.logger.Info("Run cancelled", zap.String("id", id))
	return nil
}

// RetryRun requeues a failed or cancelled run
func (rm *RunManager) RetryRun(id string) error {
	run, err := rm.repo.FindByID(id)
	if err != nil {
		return err
	}

	switch run.Status {
	case domain.StatusFailed, domain.StatusCancelled:
	case domain.StatusQueued:
		return fmt.Errorf("%w: run is already queued", domain.ErrInvalidRunState)
	case domain.StatusProcessing:
		return fmt.Errorf("%w: run is currently processing", domain.ErrInvalidRunState)
	default:
		return fmt.Errorf("%w: run is already %s", domain.ErrInvalidRunState, run.Status)
	}

	run.Requeue()
	if err := rm.repo.Update(run); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rm.logger.Info("Run queued for retry", zap.String("id", id))
	return nil
}

// DeleteRun removes a run that is not currently processing
func (rm *RunManager) DeleteRun(id string) error {
	run, err := rm.repo.FindByID(id)
	if err != nil {
		return err
	}

	if run.IsProcessing() {
		return fmt.Errorf("%w: cannot delete a processing run", domain.ErrInvalidRunState)
	}

	if err := rm.repo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rm.logger.Info("Run deleted", zap.String("id", id))
	return nil
}
