package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/dataset-fetch-go/internal/app"
	"github.com/yourusername/dataset-fetch-go/internal/domain"
	"github.com/yourusername/dataset-fetch-go/internal/infrastructure"
	"github.com/yourusername/dataset-fetch-go/pkg/logger"
)

const defaultSourceURL = "https://isic-challenge-data.s3.amazonaws.com/2018/ISIC2018_Task3_Training_LesionGroupings.csv"

// getOptions holds the flags of the get command
type getOptions struct {
	DataDir             string `json:"data_dir"`
	SrcURL              string `json:"src_url"`
	WorkingDir          string `json:"working_dir"`
	ReplaceDownload     bool   `json:"replace_download"`
	ReplaceUnzipContent bool   `json:"replace_unzip_content"`
	Dataset             bool   `json:"dataset"`
	DryRun              bool   `json:"dry_run"`
	NoHistory           bool   `json:"no_history"`
	NoProgress          bool   `json:"no_progress"`
	Verbose             bool   `json:"verbose"`
}

var getOpts getOptions

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Download a dataset file and unpack it",
	Long: `Download a file into <data-dir>/downloads and unpack it into the working directory.

Existing downloads and populated extraction directories are left alone unless
--replace-download or --replace-unzip-content is given.`,
	Example: `  dsfetch get -d data -s https://isic-challenge-data.s3.amazonaws.com/2018/ISIC2018_Task3_Training_Input.zip
  dsfetch get -d data -w isic2018 -i -s https://isic-challenge-data.s3.amazonaws.com/2018/ISIC2018_Task3_Training_GroundTruth.zip
  dsfetch get -d data -w isic2018 -i -s https://isic-challenge-data.s3.amazonaws.com/2018/ISIC2018_Task3_Training_LesionGroupings.csv
  dsfetch get -d data -i --replace-download -s https://isic-challenge-data.s3.amazonaws.com/2018/ISIC2018_Task3_Training_LesionGroupings.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		return runGet(cmd, config, getOpts)
	},
}

func init() {
	f := getCmd.Flags()
	f.StringVarP(&getOpts.DataDir, "data-dir", "d", "", "Root target data directory (default from config)")
	f.StringVarP(&getOpts.SrcURL, "src-url", "s", defaultSourceURL, "Source URL for download")
	f.StringVarP(&getOpts.WorkingDir, "working-dir", "w", "", "Target directory for extraction, relative to the data dir")
	f.BoolVar(&getOpts.ReplaceDownload, "replace-download", false, "Overwrite an existing download file")
	f.BoolVar(&getOpts.ReplaceUnzipContent, "replace-unzip-content", false, "Replace existing extraction folder content")
	f.BoolVarP(&getOpts.Dataset, "dataset", "i", false, "Follow dataset naming conventions for the extraction folder")
	f.BoolVar(&getOpts.DryRun, "dry-run", false, "Print the plan without changing anything")
	f.BoolVar(&getOpts.NoHistory, "no-history", false, "Do not record this run in the history database")
	f.BoolVar(&getOpts.NoProgress, "no-progress", false, "Hide the progress bar")
	f.BoolVarP(&getOpts.Verbose, "verbose", "v", false, "Log each step to stderr")
}

// buildRequest applies the flags over the configured defaults
func buildRequest(opts getOptions, data domain.DataConfig) domain.FetchRequest {
	req := domain.FetchRequest{
		URL:              opts.SrcURL,
		RootDir:          data.RootDir,
		WorkingDir:       opts.WorkingDir,
		ReplaceDownload:  opts.ReplaceDownload || data.ReplaceDownload,
		ReplaceExtracted: opts.ReplaceUnzipContent || data.ReplaceExtracted,
		Convention:       domain.Convention(data.Convention),
	}
	if opts.DataDir != "" {
		req.RootDir = opts.DataDir
	}
	if opts.Dataset {
		req.Convention = domain.ConventionDataset
	}
	return req
}

func runGet(cmd *cobra.Command, config *domain.Config, opts getOptions) error {
	req := buildRequest(opts, config.Data)
	if err := req.Validate(); err != nil {
		return err
	}

	log := zap.NewNop()
	if opts.Verbose {
		var err error
		log, err = logger.New(logger.Config{Level: "debug", Format: "console", OutputPath: "stderr"})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer log.Sync()
	}

	fs := afero.NewOsFs()
	fetcher := app.NewFetcher(
		fs,
		infrastructure.NewHTTPTransport(fs, &config.Transport),
		infrastructure.NewArchiveExtractor(fs),
		infrastructure.NewRootLock(),
		config.Data.Layout(),
		log,
	)

	out := cmd.OutOrStdout()

	if opts.DryRun {
		plan, err := fetcher.Plan(req)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	argsPath := filepath.Join(filepath.Dir(filepath.Clean(req.RootDir)), commandArgsFile)
	if err := saveCommandArgs(fs, argsPath, os.Args, opts); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bar *pb.ProgressBar
	var progress domain.ProgressFunc
	if !opts.NoProgress {
		bar = pb.New64(0)
		bar.Set(pb.Bytes, true)
		bar.SetWriter(cmd.ErrOrStderr())
		progress = func(transferred, total int64) {
			if !bar.IsStarted() {
				bar.Start()
			}
			if total > 0 {
				bar.SetTotal(total)
			}
			bar.SetCurrent(transferred)
		}
	}

	result, err := fetchWithHistory(ctx, config, fetcher, req, progress, opts.NoHistory, log)
	if bar != nil && bar.IsStarted() {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	printResult(cmd, result)
	return nil
}

// fetchWithHistory runs the fetch directly, or through a RunManager backed by
// the history database when history is enabled.
func fetchWithHistory(
	ctx context.Context,
	config *domain.Config,
	fetcher *app.Fetcher,
	req domain.FetchRequest,
	progress domain.ProgressFunc,
	noHistory bool,
	log *zap.Logger,
) (*domain.FetchResult, error) {
	if noHistory || !config.Queue.History {
		return fetcher.Fetch(ctx, req, progress)
	}

	repo, err := openHistory(config)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	runMgr := app.NewRunManager(repo, fetcher, notifier, log)

	run := domain.NewFetchRun(req)
	if err := repo.Create(run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	if err := runMgr.ProcessRunWithProgress(ctx, run, progress); err != nil {
		return nil, err
	}
	return run.Result(), nil
}

func openHistory(config *domain.Config) (*infrastructure.SQLiteRunRepository, error) {
	if err := os.MkdirAll(filepath.Dir(config.Queue.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	repo, err := infrastructure.NewSQLiteRunRepository(config.Queue.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return repo, nil
}

func printResult(cmd *cobra.Command, result *domain.FetchResult) {
	out := cmd.OutOrStdout()

	if result.Downloaded {
		fmt.Fprintf(out, "Downloaded:     %s (%s)\n", result.DownloadPath, humanize.Bytes(uint64(result.BytesTransferred)))
	} else {
		fmt.Fprintf(out, "Download:       %s (kept)\n", result.DownloadPath)
	}

	if dir, ok := result.Extraction.Dir(); ok {
		state := "kept"
		if result.Extracted {
			state = "extracted"
		}
		fmt.Fprintf(out, "Extraction dir: %s (%s)\n", dir, state)
	} else if result.PlacedPath != "" {
		state := "kept"
		if result.Moved {
			state = "moved"
		}
		fmt.Fprintf(out, "File:           %s (%s)\n", result.PlacedPath, state)
	}

	fmt.Fprintf(out, "Working dir:    %s\n", result.WorkingDir)
}
