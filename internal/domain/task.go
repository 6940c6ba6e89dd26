package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a download task
type TaskStatus string

const (
	StatusPending          TaskStatus = "pending"
	StatusFetchingInfo     TaskStatus = "fetching_info"
	StatusWaitingSelection TaskStatus = "waiting_selection"
	StatusScheduled        TaskStatus = "scheduled"  // premiere not yet live
	StatusLive             TaskStatus = "live"       // premiere currently streaming
	StatusPostLive         TaskStatus = "post_live"  // stream ended, platform still processing
	StatusDownloading      TaskStatus = "downloading"
	StatusPaused           TaskStatus = "paused"
	StatusCompleted        TaskStatus = "completed"
	StatusFailed           TaskStatus = "failed"
	StatusCancelled        TaskStatus = "cancelled"
)

// IsActive reports whether the task still needs scheduler attention
func (s TaskStatus) IsActive() bool {
	return s == StatusPending || s == StatusFetchingInfo || s == StatusDownloading
}

// IsStopped reports whether the task is halted but recoverable via retry/resume
func (s TaskStatus) IsStopped() bool {
	return s == StatusPaused || s == StatusFailed || s == StatusCancelled ||
		s == StatusScheduled || s == StatusPostLive
}

// IsTerminal reports whether the task finished its normal flow
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted
}

// Task represents one download attempt: a single video or one playlist member
type Task struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	URL          string     `json:"url" gorm:"not null"`
	Title        string     `json:"title"`
	Thumbnail    string     `json:"thumbnail,omitempty"`
	Status       TaskStatus `json:"status" gorm:"not null;index"`
	Progress     float64    `json:"progress"`
	ErrorDetail  string     `json:"error_detail,omitempty"`
	OutputPath   string     `json:"output_path,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	PremiereDate *time.Time `json:"premiere_date,omitempty"`
	LiveEndTime  *time.Time `json:"live_end_time,omitempty"`
	Duration     int64      `json:"duration_seconds,omitempty"`

	// Track lists resolved from metadata, ignored once a selection is made
	SubtitleTracks TrackList `json:"subtitle_tracks,omitempty" gorm:"type:text;serializer:json"`
	AudioTracks    TrackList `json:"audio_tracks,omitempty" gorm:"type:text;serializer:json"`

	// User selections applied to the downloader invocation
	SubtitleLangs StringList `json:"subtitle_langs,omitempty" gorm:"type:text;serializer:json"`
	AudioLang     string     `json:"audio_lang,omitempty"`

	// Opaque pass-through values for the external callback integration
	CallbackTarget string `json:"callback_target,omitempty"`
	CorrelationID  string `json:"correlation_id,omitempty"`
}

// NewTask creates a task for a freshly accepted URL. Metadata resolution
// happens asynchronously, so the task starts with placeholder display fields.
func NewTask(url string) *Task {
	now := time.Now()
	return &Task{
		ID:        uuid.New().String(),
		URL:       url,
		Title:     url,
		Status:    StatusFetchingInfo,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Equal compares tasks by identity. ID is the sole equality criterion.
func (t *Task) Equal(other *Task) bool {
	return other != nil && t.ID == other.ID
}

// MarkQueued moves the task to pending, clearing any previous run's residue
func (t *Task) MarkQueued() {
	t.Status = StatusPending
	t.Progress = 0
	t.ErrorDetail = ""
	t.UpdatedAt = time.Now()
}

// MarkDownloading moves the task into the downloading state
func (t *Task) MarkDownloading() {
	t.Status = StatusDownloading
	t.Progress = 0
	t.UpdatedAt = time.Now()
}

// MarkPaused halts the task; progress resets so a resume starts cleanly
func (t *Task) MarkPaused() {
	t.Status = StatusPaused
	t.Progress = 0
	t.UpdatedAt = time.Now()
}

// MarkCompleted records the terminal success state with its output path
func (t *Task) MarkCompleted(outputPath string) {
	t.Status = StatusCompleted
	t.Progress = 1.0
	t.OutputPath = outputPath
	t.ErrorDetail = ""
	now := time.Now()
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// MarkFailed records a failure with human-readable detail
func (t *Task) MarkFailed(err error) {
	t.Status = StatusFailed
	t.Progress = 0
	t.OutputPath = ""
	if err != nil {
		t.ErrorDetail = err.Error()
	}
	t.UpdatedAt = time.Now()
}

// MarkCancelled records a user-initiated cancellation (not an error)
func (t *Task) MarkCancelled() {
	t.Status = StatusCancelled
	t.Progress = 0
	t.UpdatedAt = time.Now()
}

// MarkScheduled parks the task until a premiere goes live
func (t *Task) MarkScheduled(premiereAt time.Time) {
	t.Status = StatusScheduled
	t.Progress = 0
	t.ErrorDetail = ""
	t.PremiereDate = &premiereAt
	t.UpdatedAt = time.Now()
}

// MarkLive flags the task as a premiere currently in progress
func (t *Task) MarkLive(expectedEnd *time.Time) {
	t.Status = StatusLive
	t.LiveEndTime = expectedEnd
	t.UpdatedAt = time.Now()
}

// MarkPostLive parks the task while the platform processes a finished stream.
// Requires manual retry; the scheduler never admits this state.
func (t *Task) MarkPostLive() {
	t.Status = StatusPostLive
	t.Progress = 0
	t.UpdatedAt = time.Now()
}

// MarkWaitingSelection holds the task until the user picks media options
func (t *Task) MarkWaitingSelection(subs, audio TrackList) {
	t.Status = StatusWaitingSelection
	t.SubtitleTracks = subs
	t.AudioTracks = audio
	t.UpdatedAt = time.Now()
}

// SetProgress clamps and records a fractional progress value
func (t *Task) SetProgress(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	t.Progress = p
	t.UpdatedAt = time.Now()
}

// NeedsSelection reports whether resolved tracks warrant a user choice:
// at least one supported subtitle track, or two or more supported audio
// tracks to pick between.
func NeedsSelection(subs, audio TrackList) bool {
	return len(subs.Supported()) >= 1 || len(audio.Supported()) >= 2
}
