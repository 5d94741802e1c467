package domain

import (
	"path/filepath"

	"github.com/spf13/afero"
)

// Layout names the fixed subdirectories under a fetch root
type Layout struct {
	DownloadsDir string `json:"downloads_dir"`
	TempDir      string `json:"temp_dir"`
}

// DefaultLayout returns the root/downloads + root/temp layout
func DefaultLayout() Layout {
	return Layout{DownloadsDir: "downloads", TempDir: "temp"}
}

// Plan is the side-effect-free outcome of inspecting the filesystem for a request
type Plan struct {
	Filename       string           `json:"filename"`
	DownloadPath   string           `json:"download_path"`
	WorkingDir     string           `json:"working_dir"`
	TempDir        string           `json:"temp_dir"`
	Extraction     ExtractionTarget `json:"extraction_dir"`
	Kind           ArchiveKind      `json:"archive_kind,omitempty"`
	PlacedPath     string           `json:"placed_path,omitempty"` // plain files only
	CanExtract     bool             `json:"can_extract"`
	ShouldDownload bool             `json:"should_download"`
}

// CanDownload reports whether a download may write to targetPath.
// A missing file is always writable; an existing one only when replace is set.
func CanDownload(fs afero.Fs, targetPath string, replace bool) bool {
	if !isFile(fs, targetPath) {
		return true
	}
	return replace
}

// CanExtract reports whether extraction into target may proceed.
// A populated directory is only replaced when replace is set; an unreadable
// directory counts as populated.
func CanExtract(fs afero.Fs, target ExtractionTarget, replace bool) bool {
	dir, ok := target.Dir()
	if !ok {
		return false
	}

	isDir, err := afero.DirExists(fs, dir)
	if err != nil || !isDir {
		return true
	}

	empty, err := afero.IsEmpty(fs, dir)
	if err != nil || !empty {
		return replace
	}
	return true
}

// ShouldDownload refuses downloads whose archive could not be extracted
// afterwards, then defers to CanDownload.
func ShouldDownload(fs afero.Fs, targetPath string, replace, canExtract bool, target ExtractionTarget) bool {
	precheck := target.IsNone() || canExtract
	if !precheck {
		return false
	}
	return CanDownload(fs, targetPath, replace)
}

// PlanFetch derives every path and decision for req. It only reads the filesystem.
func PlanFetch(fs afero.Fs, req FetchRequest, layout Layout) (Plan, error) {
	if err := req.Validate(); err != nil {
		return Plan{}, err
	}

	filename, err := FilenameFromURL(req.URL)
	if err != nil {
		return Plan{}, err
	}

	workingDir := req.RootDir
	if req.WorkingDir != "" {
		workingDir = filepath.Join(req.RootDir, req.WorkingDir)
	}

	extraction, err := DeriveExtractionTarget(workingDir, filename, req.Convention)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Filename:     filename,
		DownloadPath: filepath.Join(req.RootDir, layout.DownloadsDir, filename),
		WorkingDir:   workingDir,
		TempDir:      filepath.Join(req.RootDir, layout.TempDir),
		Extraction:   extraction,
		Kind:         DetectArchiveKind(filename),
	}
	plan.CanExtract = CanExtract(fs, extraction, req.ReplaceExtracted)
	plan.ShouldDownload = ShouldDownload(fs, plan.DownloadPath, req.ReplaceDownload, plan.CanExtract, extraction)

	// Archives without an extraction target stay in the downloads dir.
	if extraction.IsNone() && plan.Kind == KindNone {
		plan.PlacedPath = filepath.Join(workingDir, filename)
		// A plain file already moved into place counts as downloaded.
		if plan.ShouldDownload && !CanDownload(fs, plan.PlacedPath, req.ReplaceDownload) {
			plan.ShouldDownload = false
		}
	}

	return plan, nil
}

func isFile(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
