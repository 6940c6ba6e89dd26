package infrastructure

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/tubequeue/internal/domain"
)

// SQLiteTaskRepository implements TaskRepository using SQLite
type SQLiteTaskRepository struct {
	db *gorm.DB
}

// NewSQLiteTaskRepository opens (or creates) the task database at dbPath
func NewSQLiteTaskRepository(dbPath string) (*SQLiteTaskRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Task{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteTaskRepository{db: db}, nil
}

// Save inserts or updates a single task
func (r *SQLiteTaskRepository) Save(task *domain.Task) error {
	return r.db.Save(task).Error
}

// SaveAll persists a batch of tasks in one transaction
func (r *SQLiteTaskRepository) SaveAll(tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, t := range tasks {
			if err := tx.Save(t).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a task by ID
func (r *SQLiteTaskRepository) Delete(id string) error {
	return r.db.Delete(&domain.Task{}, "id = ?", id).Error
}

// DeleteByStatus removes every task in the given statuses
func (r *SQLiteTaskRepository) DeleteByStatus(statuses ...domain.TaskStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	return r.db.Delete(&domain.Task{}, "status IN ?", statuses).Error
}

// Clear removes all tasks
func (r *SQLiteTaskRepository) Clear() error {
	return r.db.Exec("DELETE FROM tasks").Error
}

// LoadAll returns every stored task in insertion order. Tasks interrupted
// mid-download by a crash or shutdown come back as pending with progress
// reset, ready to be picked up again.
func (r *SQLiteTaskRepository) LoadAll() ([]*domain.Task, error) {
	var tasks []*domain.Task
	if err := r.db.Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}

	var interrupted []*domain.Task
	for _, t := range tasks {
		if t.Status == domain.StatusDownloading {
			t.Status = domain.StatusPending
			t.Progress = 0
			interrupted = append(interrupted, t)
		}
	}
	if len(interrupted) > 0 {
		if err := r.SaveAll(interrupted); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// GetStats returns per-status task counts
func (r *SQLiteTaskRepository) GetStats() (*domain.TaskStats, error) {
	stats := &domain.TaskStats{}

	if err := r.db.Model(&domain.Task{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.TaskStatus
		Count  int64
	}{}
	if err := r.db.Model(&domain.Task{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusPending:
			stats.Pending = sc.Count
		case domain.StatusFetchingInfo:
			stats.FetchingInfo = sc.Count
		case domain.StatusWaitingSelection:
			stats.WaitingSelection = sc.Count
		case domain.StatusScheduled:
			stats.Scheduled = sc.Count
		case domain.StatusLive:
			stats.Live = sc.Count
		case domain.StatusPostLive:
			stats.PostLive = sc.Count
		case domain.StatusDownloading:
			stats.Downloading = sc.Count
		case domain.StatusPaused:
			stats.Paused = sc.Count
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

// Close closes the database connection
func (r *SQLiteTaskRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
