package domain

// RunRepository defines the interface for fetch run persistence
type RunRepository interface {
	// Create creates a new run
	Create(run *FetchRun) error

	// Update updates an existing run
	Update(run *FetchRun) error

	// Delete deletes a run by ID
	Delete(id string) error

	// FindByID finds a run by ID
	FindByID(id string) (*FetchRun, error)

	// FindPending finds all queued runs ordered by creation time
	FindPending() ([]*FetchRun, error)

	// FindActive returns the newest queued or processing run created from an
	// identical request, or nil if there is none
	FindActive(req FetchRequest) (*FetchRun, error)

	// ResetProcessing requeues runs left in processing by an interrupted process
	ResetProcessing() (int64, error)

	// FindAll finds all runs with optional filters
	FindAll(filters map[string]interface{}) ([]*FetchRun, error)

	// GetStats returns run statistics
	GetStats() (*RunStats, error)
}

// RunStats represents run statistics
type RunStats struct {
	Total      int64 `json:"total"`
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
}
