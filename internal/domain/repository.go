package domain

// TaskRepository is the persistence gateway for the task list. The in-memory
// list owned by the task manager is the source of truth; the repository is
// written through on every mutation and read wholesale at startup.
type TaskRepository interface {
	// Save inserts or updates a single task
	Save(task *Task) error

	// SaveAll writes the whole task list
	SaveAll(tasks []*Task) error

	// Delete removes a task by ID
	Delete(id string) error

	// DeleteByStatus removes all tasks in the given statuses
	DeleteByStatus(statuses ...TaskStatus) error

	// Clear removes every task
	Clear() error

	// LoadAll reads the persisted task list in insertion order. Tasks found
	// mid-download are returned reset to pending with zero progress, since a
	// subprocess cannot have survived a restart.
	LoadAll() ([]*Task, error)

	// GetStats returns per-status counts
	GetStats() (*TaskStats, error)
}

// TaskStats holds per-status task counts
type TaskStats struct {
	Total            int64 `json:"total"`
	Pending          int64 `json:"pending"`
	FetchingInfo     int64 `json:"fetching_info"`
	WaitingSelection int64 `json:"waiting_selection"`
	Scheduled        int64 `json:"scheduled"`
	Live             int64 `json:"live"`
	PostLive         int64 `json:"post_live"`
	Downloading      int64 `json:"downloading"`
	Paused           int64 `json:"paused"`
	Completed        int64 `json:"completed"`
	Failed           int64 `json:"failed"`
	Cancelled        int64 `json:"cancelled"`
}
