package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the current status of a fetch run
type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
	StatusCancelled  RunStatus = "cancelled"
)

// FetchRun records one invocation of the fetch operation
type FetchRun struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	URL              string     `json:"url" gorm:"not null;index"`
	RootDir          string     `json:"root_dir" gorm:"not null"`
	WorkingDir       string     `json:"working_dir,omitempty"`
	Convention       Convention `json:"convention" gorm:"not null"`
	ReplaceDownload  bool       `json:"replace_download"`
	ReplaceExtracted bool       `json:"replace_extracted"`
	Status           RunStatus  `json:"status" gorm:"not null;index"`
	ExtractionDir    string     `json:"extraction_dir,omitempty"`
	ResolvedWorkDir  string     `json:"resolved_working_dir,omitempty"`
	DownloadPath     string     `json:"download_path,omitempty"`
	PlacedPath       string     `json:"placed_path,omitempty"`
	Downloaded       bool       `json:"downloaded"`
	Extracted        bool       `json:"extracted"`
	Moved            bool       `json:"moved"`
	BytesTransferred int64      `json:"bytes_transferred"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// NewFetchRun creates a queued run for req
func NewFetchRun(req FetchRequest) *FetchRun {
	now := time.Now()
	return &FetchRun{
		ID:               uuid.New().String(),
		URL:              req.URL,
		RootDir:          req.RootDir,
		WorkingDir:       req.WorkingDir,
		Convention:       req.Convention,
		ReplaceDownload:  req.ReplaceDownload,
		ReplaceExtracted: req.ReplaceExtracted,
		Status:           StatusQueued,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Request rebuilds the request this run was created from
func (r *FetchRun) Request() FetchRequest {
	return FetchRequest{
		URL:              r.URL,
		RootDir:          r.RootDir,
		WorkingDir:       r.WorkingDir,
		ReplaceDownload:  r.ReplaceDownload,
		ReplaceExtracted: r.ReplaceExtracted,
		Convention:       r.Convention,
	}
}

// MarkProcessing marks the run as processing
func (r *FetchRun) MarkProcessing() {
	r.Status = StatusProcessing
	now := time.Now()
	r.StartedAt = &now
	r.UpdatedAt = now
}

// MarkCompleted marks the run as completed and copies the result
func (r *FetchRun) MarkCompleted(result *FetchResult) {
	r.Status = StatusCompleted
	r.ErrorMessage = ""
	if result != nil {
		if dir, ok := result.Extraction.Dir(); ok {
			r.ExtractionDir = dir
		}
		r.ResolvedWorkDir = result.WorkingDir
		r.DownloadPath = result.DownloadPath
		r.PlacedPath = result.PlacedPath
		r.Downloaded = result.Downloaded
		r.Extracted = result.Extracted
		r.Moved = result.Moved
		r.BytesTransferred = result.BytesTransferred
	}
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// Result rebuilds the outcome recorded by MarkCompleted
func (r *FetchRun) Result() *FetchResult {
	extraction := NoExtraction()
	if r.ExtractionDir != "" {
		extraction = ExtractTo(r.ExtractionDir)
	}
	return &FetchResult{
		Extraction:       extraction,
		WorkingDir:       r.ResolvedWorkDir,
		DownloadPath:     r.DownloadPath,
		PlacedPath:       r.PlacedPath,
		Downloaded:       r.Downloaded,
		Extracted:        r.Extracted,
		Moved:            r.Moved,
		BytesTransferred: r.BytesTransferred,
	}
}

// MarkFailed marks the run as failed
func (r *FetchRun) MarkFailed(err error) {
	r.Status = StatusFailed
	r.ErrorMessage = err.Error()
	r.UpdatedAt = time.Now()
}

// Requeue resets a finished run so the queue picks it up again
func (r *FetchRun) Requeue() {
	r.Status = StatusQueued
	r.ErrorMessage = ""
	r.StartedAt = nil
	r.CompletedAt = nil
	r.UpdatedAt = time.Now()
}

// IsTerminal checks if the run is in a terminal state
func (r *FetchRun) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusCancelled
}

// IsPending checks if the run is waiting in the queue
func (r *FetchRun) IsPending() bool {
	return r.Status == StatusQueued
}

// IsProcessing checks if the run is currently processing
func (r *FetchRun) IsProcessing() bool {
	return r.Status == StatusProcessing
}

// FetchResult is what the orchestrator reports back for one invocation
type FetchResult struct {
	Extraction       ExtractionTarget `json:"extraction_dir"`
	WorkingDir       string           `json:"working_dir"`
	DownloadPath     string           `json:"download_path"`
	PlacedPath       string           `json:"placed_path,omitempty"`
	Downloaded       bool             `json:"downloaded"`
	Extracted        bool             `json:"extracted"`
	Moved            bool             `json:"moved"`
	BytesTransferred int64            `json:"bytes_transferred"`
}
