package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

// Fetcher downloads a dataset file and unpacks it into its working directory.
// It owns every destructive filesystem mutation under the fetch root.
type Fetcher struct {
	fs        afero.Fs
	transport domain.Transport
	extractor domain.Extractor
	locker    domain.Locker
	layout    domain.Layout
	logger    *zap.Logger
}

// NewFetcher creates a new fetcher. locker may be nil.
func NewFetcher(
	fs afero.Fs,
	transport domain.Transport,
	extractor domain.Extractor,
	locker domain.Locker,
	layout domain.Layout,
	logger *zap.Logger,
) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		fs:        fs,
		transport: transport,
		extractor: extractor,
		locker:    locker,
		layout:    layout,
		logger:    logger,
	}
}

// Plan reports what Fetch would do for req without changing anything
func (f *Fetcher) Plan(req domain.FetchRequest) (domain.Plan, error) {
	return domain.PlanFetch(f.fs, req, f.layout)
}

// Fetch runs the full download-and-extract operation for req
func (f *Fetcher) Fetch(ctx context.Context, req domain.FetchRequest, progress domain.ProgressFunc) (*domain.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if f.locker != nil {
		unlock, err := f.locker.Lock(req.RootDir)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := unlock(); err != nil {
				f.logger.Warn("Failed to release root lock", zap.String("root_dir", req.RootDir), zap.Error(err))
			}
		}()
	}

	plan, err := f.Plan(req)
	if err != nil {
		return nil, err
	}

	log := f.logger.With(zap.String("url", req.URL), zap.String("filename", plan.Filename))
	log.Info("Planned fetch",
		zap.String("download_path", plan.DownloadPath),
		zap.String("working_dir", plan.WorkingDir),
		zap.Stringer("extraction_dir", plan.Extraction),
		zap.Bool("can_extract", plan.CanExtract),
		zap.Bool("should_download", plan.ShouldDownload))

	if err := f.fs.RemoveAll(plan.TempDir); err != nil {
		return nil, domain.FSError("remove temp dir", plan.TempDir, err)
	}

	result := &domain.FetchResult{
		Extraction:   plan.Extraction,
		WorkingDir:   plan.WorkingDir,
		DownloadPath: plan.DownloadPath,
		PlacedPath:   plan.PlacedPath,
	}

	if plan.ShouldDownload {
		if dir, ok := plan.Extraction.Dir(); ok {
			if err := f.removeDir(dir); err != nil {
				return nil, err
			}
		}

		log.Info("Downloading", zap.String("dest", plan.DownloadPath))
		n, err := f.transport.Fetch(ctx, req.URL, plan.DownloadPath, progress)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
		}
		result.Downloaded = true
		result.BytesTransferred = n
		log.Info("Download finished", zap.Int64("bytes", n))
	} else {
		log.Info("Skipping download")
	}

	switch {
	case plan.CanExtract:
		if err := f.extract(ctx, plan, log); err != nil {
			return nil, err
		}
		result.Extracted = true
	case plan.Extraction.IsNone() && plan.Kind != domain.KindNone:
		log.Info("Archive has no extraction target, keeping it in downloads", zap.String("path", plan.DownloadPath))
	case plan.Extraction.IsNone():
		moved, err := f.place(plan, req.ReplaceDownload)
		if err != nil {
			return nil, err
		}
		result.Moved = moved
		if moved {
			log.Info("Placed file in working directory", zap.String("path", plan.PlacedPath))
		}
	default:
		log.Info("Skipping extraction, target directory is populated")
	}

	return result, nil
}

func (f *Fetcher) extract(ctx context.Context, plan domain.Plan, log *zap.Logger) error {
	finalDir, _ := plan.Extraction.Dir()

	switch plan.Kind {
	case domain.KindZip, domain.KindTar, domain.KindTarGz:
	case domain.KindGzip:
		return &domain.OpError{
			Op:   "extract",
			Kind: domain.KindUnhandledCompression,
			Path: plan.DownloadPath,
			Err:  domain.ErrUnhandledCompression,
		}
	default:
		return &domain.OpError{
			Op:   "extract",
			Kind: domain.KindUnsupportedArchive,
			Path: plan.DownloadPath,
			Err:  domain.ErrUnsupportedArchiveType,
		}
	}

	if err := f.fs.MkdirAll(plan.TempDir, 0755); err != nil {
		return domain.FSError("mkdir", plan.TempDir, err)
	}

	log.Info("Extracting", zap.String("archive", plan.DownloadPath), zap.String("kind", string(plan.Kind)))
	top, err := f.extractor.Extract(ctx, plan.DownloadPath, plan.TempDir, plan.Kind)
	if err != nil {
		return fmt.Errorf("extract %s: %w", plan.DownloadPath, err)
	}

	if err := f.removeDir(finalDir); err != nil {
		return err
	}
	if err := f.fs.MkdirAll(filepath.Dir(finalDir), 0755); err != nil {
		return domain.FSError("mkdir", filepath.Dir(finalDir), err)
	}

	src := filepath.Join(plan.TempDir, top)
	if err := f.fs.Rename(src, finalDir); err != nil {
		return domain.FSError("rename", src, err)
	}

	log.Info("Extraction finished", zap.String("top_level", top), zap.String("dest", finalDir))
	return nil
}

// place moves a non-archive download into the working directory. An existing
// placed file is kept unless replace is set.
func (f *Fetcher) place(plan domain.Plan, replace bool) (bool, error) {
	if plan.Kind != domain.KindNone || plan.PlacedPath == "" {
		return false, nil
	}

	downloaded, err := afero.Exists(f.fs, plan.DownloadPath)
	if err != nil {
		return false, domain.FSError("stat", plan.DownloadPath, err)
	}
	if !downloaded {
		return false, nil
	}

	placed, err := afero.Exists(f.fs, plan.PlacedPath)
	if err != nil {
		return false, domain.FSError("stat", plan.PlacedPath, err)
	}
	if placed && !replace {
		return false, nil
	}

	if err := f.fs.MkdirAll(plan.WorkingDir, 0755); err != nil {
		return false, domain.FSError("mkdir", plan.WorkingDir, err)
	}
	if err := f.fs.Rename(plan.DownloadPath, plan.PlacedPath); err != nil {
		return false, domain.FSError("rename", plan.DownloadPath, err)
	}
	return true, nil
}

func (f *Fetcher) removeDir(dir string) error {
	isDir, err := afero.DirExists(f.fs, dir)
	if err != nil {
		return domain.FSError("stat", dir, err)
	}
	if !isDir {
		return nil
	}
	f.logger.Debug("Removing directory", zap.String("path", dir))
	if err := f.fs.RemoveAll(dir); err != nil {
		return domain.FSError("remove", dir, err)
	}
	return nil
}
