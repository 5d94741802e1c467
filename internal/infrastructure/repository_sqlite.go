package infrastructure

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

// SQLiteRunRepository implements RunRepository using SQLite
type SQLiteRunRepository struct {
	db *gorm.DB
}

// NewSQLiteRunRepository creates a new SQLite repository
func NewSQLiteRunRepository(dbPath string) (*SQLiteRunRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.FetchRun{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRunRepository{db: db}, nil
}

// Create creates a new run
func (r *SQLiteRunRepository) Create(run *domain.FetchRun) error {
	return r.db.Create(run).Error
}

// Update updates an existing run
func (r *SQLiteRunRepository) Update(run *domain.FetchRun) error {
	return r.db.Save(run).Error
}

// Delete deletes a run by ID
func (r *SQLiteRunRepository) Delete(id string) error {
	return r.db.Delete(&domain.FetchRun{}, "id = ?", id).Error
}

// FindByID finds a run by ID
func (r *SQLiteRunRepository) FindByID(id string) (*domain.FetchRun, error) {
	var run domain.FetchRun
	err := r.db.First(&run, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &run, nil
}

// FindPending finds all queued runs ordered by creation time
func (r *SQLiteRunRepository) FindPending() ([]*domain.FetchRun, error) {
	var runs []*domain.FetchRun
	err := r.db.Where("status = ?", domain.StatusQueued).
		Order("created_at ASC").
		Find(&runs).Error
	return runs, err
}

// FindActive returns the newest queued or processing run created from req.
// Zero-valued fields are matched too, so conditions are spelled out.
func (r *SQLiteRunRepository) FindActive(req domain.FetchRequest) (*domain.FetchRun, error) {
	var run domain.FetchRun
	err := r.db.
		Where("url = ? AND root_dir = ? AND working_dir = ?", req.URL, req.RootDir, req.WorkingDir).
		Where("convention = ? AND replace_download = ? AND replace_extracted = ?",
			req.Convention, req.ReplaceDownload, req.ReplaceExtracted).
		Where("status IN ?", []domain.RunStatus{domain.StatusQueued, domain.StatusProcessing}).
		Order("created_at DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// allowed filter columns for FindAll
var runFilterColumns = map[string]bool{
	"status":     true,
	"url":        true,
	"root_dir":   true,
	"convention": true,
}

// FindAll finds all runs with optional filters
func (r *SQLiteRunRepository) FindAll(filters map[string]interface{}) ([]*domain.FetchRun, error) {
	var runs []*domain.FetchRun
	query := r.db

	for key, value := range filters {
		if !runFilterColumns[key] {
			return nil, fmt.Errorf("unknown filter %q", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&runs).Error
	return runs, err
}

// GetStats returns run statistics
func (r *SQLiteRunRepository) GetStats() (*domain.RunStats, error) {
	stats := &domain.RunStats{}

	if err := r.db.Model(&domain.FetchRun{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.RunStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.FetchRun{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusQueued:
			stats.Queued = sc.Count
		case domain.StatusProcessing:
			stats.Processing = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		case domain.StatusCancelled:
			stats.Cancelled = sc.Count
		}
	}

	return stats, nil
}

// ResetProcessing requeues runs left in processing by an interrupted process
func (r *SQLiteRunRepository) ResetProcessing() (int64, error) {
	res := r.db.Model(&domain.FetchRun{}).
		Where("status = ?", domain.StatusProcessing).
		Updates(map[string]interface{}{"status": domain.StatusQueued, "started_at": nil})
	return res.RowsAffected, res.Error
}

// Close closes the database connection
func (r *SQLiteRunRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
