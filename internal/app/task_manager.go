package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/domain"
	"github.com/yourusername/tubequeue/pkg/logger"
)

// TaskManager owns the authoritative task list. Every status mutation goes
// through its mutex, so there is exactly one logical writer for task state;
// subprocess and resolver goroutines marshal their results back through
// manager methods instead of touching tasks directly.
type TaskManager struct {
	repo        domain.TaskRepository
	resolver    domain.MetadataResolver
	scraper     domain.TitleScraper
	runner      domain.Runner
	notifier    domain.Notifier
	callback    domain.CallbackNotifier
	config      *domain.Config
	multiLogger *logger.MultiLogger

	mu             sync.Mutex
	tasks          []*domain.Task // insertion order
	byID           map[string]*domain.Task
	globalPause    bool
	completedCount int64

	// wake pokes the scheduler when a task becomes pending
	wake func()
}

// NewTaskManager creates a task manager
func NewTaskManager(
	repo domain.TaskRepository,
	resolver domain.MetadataResolver,
	runner domain.Runner,
	notifier domain.Notifier,
	callback domain.CallbackNotifier,
	config *domain.Config,
	multiLogger *logger.MultiLogger,
) *TaskManager {
	return &TaskManager{
		repo:        repo,
		resolver:    resolver,
		runner:      runner,
		notifier:    notifier,
		callback:    callback,
		config:      config,
		multiLogger: multiLogger,
		byID:        make(map[string]*domain.Task),
		wake:        func() {},
	}
}

// SetTitleScraper installs the fallback page-scrape collaborator
func (tm *TaskManager) SetTitleScraper(s domain.TitleScraper) {
	tm.scraper = s
}

// SetWake installs the scheduler poke invoked when a task becomes pending
func (tm *TaskManager) SetWake(wake func()) {
	if wake != nil {
		tm.wake = wake
	}
}

// Restore loads the persisted task list. Tasks interrupted mid-download come
// back as pending; tasks interrupted mid-resolution get resolution
// re-triggered so nothing is left stuck after a restart.
func (tm *TaskManager) Restore(ctx context.Context) error {
	tasks, err := tm.repo.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	var refetch []*domain.Task
	tm.mu.Lock()
	for _, t := range tasks {
		tm.tasks = append(tm.tasks, t)
		tm.byID[t.ID] = t
		if t.Status == domain.StatusFetchingInfo {
			refetch = append(refetch, t)
		}
	}
	hasPending := tm.countLocked(domain.StatusPending) > 0
	tm.mu.Unlock()

	for _, t := range refetch {
		go tm.resolveTask(ctx, t.ID, t.URL)
	}
	if hasPending {
		tm.wake()
	}
	return nil
}

// AddOptions carries the optional pass-through fields of an inbound
// external-app request
type AddOptions struct {
	CallbackTarget string
	CorrelationID  string
}

// AddTask validates and accepts a URL. The returned task is immediately
// visible in fetching_info while metadata resolves in the background.
// Playlist URLs produce a placeholder that fans out into member tasks once
// the playlist resolves.
func (tm *TaskManager) AddTask(ctx context.Context, url string, opts AddOptions) (*domain.Task, error) {
	if err := domain.ValidateURL(url); err != nil {
		return nil, err
	}

	tm.mu.Lock()
	for _, t := range tm.tasks {
		if t.URL == url {
			tm.mu.Unlock()
			return nil, domain.ErrDuplicateURL
		}
	}

	task := domain.NewTask(url)
	task.CallbackTarget = opts.CallbackTarget
	task.CorrelationID = opts.CorrelationID
	if id := domain.ExtractVideoID(url); id != "" {
		task.Thumbnail = domain.ThumbnailURL(id)
	}
	tm.tasks = append(tm.tasks, task)
	tm.byID[task.ID] = task
	snapshot := *task
	tm.mu.Unlock()

	tm.persist(&snapshot)
	tm.logEvent("task_added", zap.String("id", task.ID), zap.String("url", url))

	if domain.IsPlaylistURL(url) {
		go tm.resolvePlaylist(ctx, task.ID, url)
	} else {
		go tm.resolveTask(ctx, task.ID, url)
	}
	return &snapshot, nil
}

// GetTask returns a copy of a task by ID. Callers serialize tasks outside
// the lock while progress callbacks keep writing, so live pointers never
// leave the manager.
func (tm *TaskManager) GetTask(id string) (*domain.Task, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	t, ok := tm.byID[id]
	if !ok {
		return nil, false
	}
	snapshot := *t
	return &snapshot, true
}

// ListTasks returns copies of the task list in insertion order
func (tm *TaskManager) ListTasks() []*domain.Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	out := make([]*domain.Task, len(tm.tasks))
	for i, t := range tm.tasks {
		snapshot := *t
		out[i] = &snapshot
	}
	return out
}

// GetStats returns per-status task counts
func (tm *TaskManager) GetStats() (*domain.TaskStats, error) {
	return tm.repo.GetStats()
}

// GlobalPause reports whether the global pause flag is set
func (tm *TaskManager) GlobalPause() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.globalPause
}

// resolveTask fetches metadata for a single video and routes the task into
// its post-resolution state. A resolution failure is not fatal: the user
// supplied a valid URL, so the task still queues with placeholder display
// fields.
func (tm *TaskManager) resolveTask(ctx context.Context, id, url string) {
	info, err := tm.resolver.FetchVideoInfo(ctx, url, tm.config.Resolver.ExtraArgs)
	if err != nil {
		if at := domain.ParsePremiereDelay(err.Error(), time.Now()); at != nil {
			title := tm.scrapeTitle(ctx, url)
			if tm.mutateIfResolving(id, func(t *domain.Task) {
				if title != "" {
					t.Title = title
				}
				t.MarkScheduled(*at)
			}) {
				tm.logEvent("task_scheduled", zap.String("id", id), zap.Time("premiere", *at))
			}
			return
		}
		tm.logError("Metadata resolution failed", zap.String("id", id), zap.Error(err))
		tm.queueTask(id)
		return
	}

	tm.mutateIfResolving(id, func(t *domain.Task) {
		if info.Title != "" {
			t.Title = info.Title
		}
		if info.Thumbnail != "" {
			t.Thumbnail = info.Thumbnail
		}
		t.Duration = info.Duration
	})

	switch info.LiveStatus {
	case domain.LiveStatusLive:
		end := expectedLiveEnd(info)
		tm.mutateIfResolving(id, func(t *domain.Task) { t.MarkLive(end) })
		return
	case domain.LiveStatusPostLive:
		// Recording not ready yet; holding state, manual retry only
		tm.mutateIfResolving(id, func(t *domain.Task) { t.MarkPostLive() })
		return
	case domain.LiveStatusUpcoming:
		if info.ReleaseTimestamp > 0 {
			at := time.Unix(info.ReleaseTimestamp, 0)
			tm.mutateIfResolving(id, func(t *domain.Task) { t.MarkScheduled(at) })
			return
		}
	}

	opts, err := tm.resolver.FetchMediaOptions(ctx, url, tm.config.Resolver.ExtraArgs)
	if err != nil {
		tm.logError("Media options fetch failed", zap.String("id", id), zap.Error(err))
		tm.queueTask(id)
		return
	}

	if domain.NeedsSelection(opts.SubtitleTracks, opts.AudioTracks) {
		tm.mutateIfResolving(id, func(t *domain.Task) {
			t.MarkWaitingSelection(opts.SubtitleTracks.Supported(), opts.AudioTracks.Supported())
		})
		return
	}
	tm.queueTask(id)
}

// resolvePlaylist expands a playlist placeholder into one task per member.
// Each member resolves independently, but track selection is offered once
// for the union of the group's supported languages.
func (tm *TaskManager) resolvePlaylist(ctx context.Context, placeholderID, url string) {
	entries, err := tm.resolver.FetchPlaylistInfo(ctx, url, tm.config.Resolver.ExtraArgs)
	if err != nil || len(entries) == 0 {
		// Fall back to treating the placeholder as a single download
		if err != nil {
			tm.logError("Playlist resolution failed", zap.String("id", placeholderID), zap.Error(err))
		}
		tm.queueTask(placeholderID)
		return
	}

	var members []*domain.Task
	tm.mu.Lock()
	placeholder, ok := tm.byID[placeholderID]
	if !ok || placeholder.Status != domain.StatusFetchingInfo {
		// Cancelled or otherwise moved by the user while the playlist
		// resolved; the user's action wins
		tm.mu.Unlock()
		return
	}
	callbackTarget := placeholder.CallbackTarget
	correlationID := placeholder.CorrelationID
	tm.removeLocked(placeholderID)
	for _, e := range entries {
		if tm.hasURLLocked(e.URL) {
			continue
		}
		t := domain.NewTask(e.URL)
		if e.Title != "" {
			t.Title = e.Title
		}
		if e.Thumbnail != "" {
			t.Thumbnail = e.Thumbnail
		} else if id := domain.ExtractVideoID(e.URL); id != "" {
			t.Thumbnail = domain.ThumbnailURL(id)
		}
		t.CallbackTarget = callbackTarget
		t.CorrelationID = correlationID
		tm.tasks = append(tm.tasks, t)
		tm.byID[t.ID] = t
		members = append(members, t)
	}
	tm.mu.Unlock()

	tm.repo.Delete(placeholderID)
	for _, t := range members {
		tm.persist(t)
	}
	tm.logEvent("playlist_expanded",
		zap.String("placeholder_id", placeholderID),
		zap.Int("members", len(members)))

	// Resolve every member, then gate the whole batch on one selection
	var (
		wg       sync.WaitGroup
		trackMu  sync.Mutex
		allSubs  domain.TrackList
		allAudio domain.TrackList
	)
	for _, t := range members {
		wg.Add(1)
		go func(t *domain.Task) {
			defer wg.Done()
			info, err := tm.resolver.FetchVideoInfo(ctx, t.URL, tm.config.Resolver.ExtraArgs)
			if err == nil {
				tm.mutateIfResolving(t.ID, func(task *domain.Task) {
					if info.Title != "" {
						task.Title = info.Title
					}
					if info.Thumbnail != "" {
						task.Thumbnail = info.Thumbnail
					}
					task.Duration = info.Duration
				})
			}
			opts, err := tm.resolver.FetchMediaOptions(ctx, t.URL, tm.config.Resolver.ExtraArgs)
			if err != nil {
				return
			}
			trackMu.Lock()
			allSubs = domain.MergeTracks(allSubs, opts.SubtitleTracks)
			allAudio = domain.MergeTracks(allAudio, opts.AudioTracks)
			trackMu.Unlock()
		}(t)
	}
	wg.Wait()

	if domain.NeedsSelection(allSubs, allAudio) {
		subs, audio := allSubs.Supported(), allAudio.Supported()
		for _, t := range members {
			tm.mutateIfResolving(t.ID, func(task *domain.Task) {
				task.MarkWaitingSelection(subs, audio)
			})
		}
		return
	}
	for _, t := range members {
		tm.queueTask(t.ID)
	}
}

// ConfirmSelection applies the user's track choices to the given tasks and
// queues them. Empty selections are a valid "skip". Tasks not waiting for a
// selection are left untouched.
func (tm *TaskManager) ConfirmSelection(ids []string, subtitleLangs domain.StringList, audioLang string) {
	queued := false
	for _, id := range ids {
		changed := tm.mutate(id, func(t *domain.Task) {
			if t.Status != domain.StatusWaitingSelection {
				return
			}
			t.SubtitleLangs = subtitleLangs
			t.AudioLang = audioLang
			t.SubtitleTracks = nil
			t.AudioTracks = nil
			if tm.globalPause {
				t.MarkPaused()
			} else {
				t.MarkQueued()
				queued = true
			}
		})
		if changed {
			tm.logEvent("selection_confirmed", zap.String("id", id),
				zap.Strings("subtitles", subtitleLangs), zap.String("audio", audioLang))
		}
	}
	if queued {
		tm.wake()
	}
}

// queueTask moves a freshly resolved task to pending, or paused when the
// global pause flag is already set (new tasks must respect an active pause).
// A task the user moved out of fetching_info during resolution is left alone:
// cancelled never silently re-enters pending.
func (tm *TaskManager) queueTask(id string) {
	queued := false
	tm.mutateIfResolving(id, func(t *domain.Task) {
		if tm.globalPause {
			t.MarkPaused()
		} else {
			t.MarkQueued()
			queued = true
		}
	})
	if queued {
		tm.wake()
	}
}

// PauseTask pauses one task, terminating its subprocess if downloading.
// Pausing an already-paused task is a no-op.
func (tm *TaskManager) PauseTask(id string) error {
	tm.mu.Lock()
	t, ok := tm.byID[id]
	if !ok {
		tm.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	wasDownloading := t.Status == domain.StatusDownloading
	if t.Status == domain.StatusPending || wasDownloading {
		t.MarkPaused()
	}
	snapshot := *t
	tm.mu.Unlock()

	if wasDownloading {
		tm.runner.Cancel(id)
	}
	tm.persist(&snapshot)
	return nil
}

// ResumeTask resumes a paused task. Resuming while the global pause flag is
// set clears the flag, otherwise the scheduler would immediately re-pause
// the task. Resuming a pending task is a no-op.
func (tm *TaskManager) ResumeTask(id string) error {
	tm.mu.Lock()
	t, ok := tm.byID[id]
	if !ok {
		tm.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	if t.Status != domain.StatusPaused {
		tm.mu.Unlock()
		return nil
	}
	t.MarkQueued()
	tm.globalPause = false
	snapshot := *t
	tm.mu.Unlock()

	tm.persist(&snapshot)
	tm.wake()
	return nil
}

// RetryTask re-queues a stopped task. failed, cancelled and scheduled tasks
// go straight back to pending with progress and error reset; a post_live
// task re-runs metadata resolution since the platform may have finished
// processing the recording.
func (tm *TaskManager) RetryTask(ctx context.Context, id string) error {
	tm.mu.Lock()
	t, ok := tm.byID[id]
	if !ok {
		tm.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	status := t.Status
	switch status {
	case domain.StatusFailed, domain.StatusCancelled, domain.StatusScheduled:
		t.PremiereDate = nil
		t.MarkQueued()
	case domain.StatusPostLive:
		t.Status = domain.StatusFetchingInfo
		t.Progress = 0
		t.ErrorDetail = ""
	default:
		tm.mu.Unlock()
		return fmt.Errorf("task is not retryable in state %s", status)
	}
	url := t.URL
	snapshot := *t
	tm.mu.Unlock()

	tm.persist(&snapshot)
	if status == domain.StatusPostLive {
		go tm.resolveTask(ctx, id, url)
	} else {
		tm.wake()
	}
	return nil
}

// CancelTask cancels a task, terminating its subprocess if one is running.
// Safe to call regardless of current state.
func (tm *TaskManager) CancelTask(id string) error {
	tm.mu.Lock()
	t, ok := tm.byID[id]
	if !ok {
		tm.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	wasDownloading := t.Status == domain.StatusDownloading
	if !t.Status.IsTerminal() && t.Status != domain.StatusCancelled {
		t.MarkCancelled()
	}
	snapshot := *t
	tm.mu.Unlock()

	if wasDownloading {
		tm.runner.Cancel(id)
	}
	tm.persist(&snapshot)
	tm.logEvent("task_cancelled", zap.String("id", id))
	return nil
}

// RemoveTask deletes a task from the list, cancelling its subprocess first
func (tm *TaskManager) RemoveTask(id string) error {
	tm.mu.Lock()
	t, ok := tm.byID[id]
	if !ok {
		tm.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	wasDownloading := t.Status == domain.StatusDownloading
	tm.removeLocked(id)
	tm.mu.Unlock()

	if wasDownloading {
		tm.runner.Cancel(id)
	}
	if err := tm.repo.Delete(id); err != nil {
		tm.logError("Failed to delete task", zap.String("id", id), zap.Error(err))
	}
	tm.logEvent("task_removed", zap.String("id", id))
	return nil
}

// ClearCompleted removes every completed task
func (tm *TaskManager) ClearCompleted() {
	tm.mu.Lock()
	kept := tm.tasks[:0]
	for _, t := range tm.tasks {
		if t.Status == domain.StatusCompleted {
			delete(tm.byID, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	tm.tasks = kept
	tm.mu.Unlock()

	if err := tm.repo.DeleteByStatus(domain.StatusCompleted); err != nil {
		tm.logError("Failed to clear completed tasks", zap.Error(err))
	}
}

// ClearAll removes every task, cancelling any live subprocesses
func (tm *TaskManager) ClearAll() {
	tm.mu.Lock()
	var downloading []string
	for _, t := range tm.tasks {
		if t.Status == domain.StatusDownloading {
			downloading = append(downloading, t.ID)
		}
	}
	tm.tasks = nil
	tm.byID = make(map[string]*domain.Task)
	tm.mu.Unlock()

	for _, id := range downloading {
		tm.runner.Cancel(id)
	}
	if err := tm.repo.Clear(); err != nil {
		tm.logError("Failed to clear tasks", zap.Error(err))
	}
}

// PauseAll sets the global pause flag, terminates every running download and
// parks every pending task. Terminal tasks are unaffected.
func (tm *TaskManager) PauseAll() {
	tm.mu.Lock()
	tm.globalPause = true
	var cancel []string
	var changed []domain.Task
	for _, t := range tm.tasks {
		switch t.Status {
		case domain.StatusDownloading:
			cancel = append(cancel, t.ID)
			t.MarkPaused()
			changed = append(changed, *t)
		case domain.StatusPending:
			t.MarkPaused()
			changed = append(changed, *t)
		}
	}
	tm.mu.Unlock()

	for _, id := range cancel {
		tm.runner.Cancel(id)
	}
	for i := range changed {
		tm.persist(&changed[i])
	}
	tm.logEvent("pause_all", zap.Int("affected", len(changed)))
}

// ResumeAll clears the global pause flag and re-queues every paused task.
// Failed tasks get a second chance on a bulk resume, with errors cleared.
func (tm *TaskManager) ResumeAll() {
	tm.mu.Lock()
	tm.globalPause = false
	var changed []domain.Task
	for _, t := range tm.tasks {
		if t.Status == domain.StatusPaused || t.Status == domain.StatusFailed {
			t.MarkQueued()
			changed = append(changed, *t)
		}
	}
	tm.mu.Unlock()

	for i := range changed {
		tm.persist(&changed[i])
	}
	tm.logEvent("resume_all", zap.Int("affected", len(changed)))
	if len(changed) > 0 {
		tm.wake()
	}
}

// StartNextPending admits the oldest pending task: marks it downloading and
// launches its subprocess. Returns false when nothing is admissible (no
// pending task, or global pause active). Called by the scheduler only.
func (tm *TaskManager) StartNextPending(ctx context.Context) bool {
	tm.mu.Lock()
	if tm.globalPause {
		tm.mu.Unlock()
		return false
	}
	var next *domain.Task
	for _, t := range tm.tasks {
		if t.Status == domain.StatusPending {
			next = t
			break
		}
	}
	if next == nil {
		tm.mu.Unlock()
		return false
	}
	next.MarkDownloading()
	snapshot := *next
	tm.mu.Unlock()

	tm.persist(&snapshot)
	tm.logEvent("download_started", zap.String("id", snapshot.ID), zap.String("url", snapshot.URL))
	go tm.runTask(ctx, snapshot.ID)
	return true
}

// runTask drives one subprocess to completion and applies the outcome.
// All failures are converted into task-state transitions; nothing escapes
// to the scheduler.
func (tm *TaskManager) runTask(ctx context.Context, id string) {
	tm.mu.Lock()
	t, ok := tm.byID[id]
	if !ok || t.Status != domain.StatusDownloading {
		tm.mu.Unlock()
		return
	}
	snapshot := *t
	tm.mu.Unlock()

	outputPath, err := tm.runner.Run(ctx, &snapshot, tm.onProgress)
	tm.finishTask(id, outputPath, err)
}

// onProgress marshals a subprocess progress sample back onto the task.
// Persisted only when the integer percent moves, to keep write volume sane.
func (tm *TaskManager) onProgress(id string, fraction float64) {
	var persist *domain.Task
	tm.mu.Lock()
	if t, ok := tm.byID[id]; ok && t.Status == domain.StatusDownloading {
		if int(t.Progress*100) != int(fraction*100) {
			persist = t
		}
		t.SetProgress(fraction)
	}
	tm.mu.Unlock()
	if persist != nil {
		tm.persist(persist)
	}
}

// finishTask applies a subprocess outcome. If the user already moved the
// task out of downloading (pause/cancel), the outcome is discarded.
func (tm *TaskManager) finishTask(id, outputPath string, runErr error) {
	tm.mu.Lock()
	t, ok := tm.byID[id]
	if !ok || t.Status != domain.StatusDownloading {
		tm.mu.Unlock()
		return
	}

	var completed, failed, scheduled bool
	if runErr != nil {
		// A premiere gate can race the metadata check and surface here
		if at := domain.ParsePremiereDelay(runErr.Error(), time.Now()); at != nil {
			t.MarkScheduled(*at)
			scheduled = true
		} else {
			t.MarkFailed(runErr)
			failed = true
		}
	} else {
		t.MarkCompleted(outputPath)
		tm.completedCount++
		completed = true
	}
	snapshot := *t
	autoRemove := completed && tm.config.Download.AutoRemoveCompleted
	if autoRemove {
		tm.removeLocked(id)
	}
	tm.mu.Unlock()

	switch {
	case completed:
		tm.logEvent("download_completed", zap.String("id", id), zap.String("output", outputPath))
		tm.notifier.NotifyTaskCompleted(&snapshot)
		if snapshot.CallbackTarget != "" {
			tm.callback.NotifyCompleted(&snapshot)
		}
	case scheduled:
		tm.logEvent("task_scheduled", zap.String("id", id))
	case failed:
		tm.logEvent("download_failed", zap.String("id", id), zap.Error(runErr))
		tm.notifier.NotifyTaskFailed(&snapshot)
	}

	if autoRemove {
		if err := tm.repo.Delete(id); err != nil {
			tm.logError("Failed to delete task", zap.String("id", id), zap.Error(err))
		}
		return
	}
	tm.persist(&snapshot)
}

// Counts returns the pending and downloading task counts
func (tm *TaskManager) Counts() (pending, downloading int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.countLocked(domain.StatusPending), tm.countLocked(domain.StatusDownloading)
}

// CompletedTotal returns the number of downloads completed since startup
func (tm *TaskManager) CompletedTotal() int64 {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.completedCount
}

// NotifyAllCompleted forwards the end-of-drain notification
func (tm *TaskManager) NotifyAllCompleted(count int) {
	tm.notifier.NotifyAllCompleted(count)
}

func (tm *TaskManager) countLocked(status domain.TaskStatus) int {
	n := 0
	for _, t := range tm.tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

func (tm *TaskManager) hasURLLocked(url string) bool {
	for _, t := range tm.tasks {
		if t.URL == url {
			return true
		}
	}
	return false
}

func (tm *TaskManager) removeLocked(id string) {
	delete(tm.byID, id)
	for i, t := range tm.tasks {
		if t.ID == id {
			tm.tasks = append(tm.tasks[:i], tm.tasks[i+1:]...)
			break
		}
	}
}

// mutate applies fn to a task under the single-writer lock and persists the
// result. Returns false when the task no longer exists.
func (tm *TaskManager) mutate(id string, fn func(*domain.Task)) bool {
	tm.mu.Lock()
	t, ok := tm.byID[id]
	if !ok {
		tm.mu.Unlock()
		return false
	}
	fn(t)
	snapshot := *t
	tm.mu.Unlock()

	tm.persist(&snapshot)
	return true
}

// mutateIfResolving applies fn only while the task is still in fetching_info.
// Resolution runs concurrently with user actions; if the user cancelled,
// removed or retried the task in the meantime, the late resolver result is
// discarded so it cannot resurrect the task.
func (tm *TaskManager) mutateIfResolving(id string, fn func(*domain.Task)) bool {
	tm.mu.Lock()
	t, ok := tm.byID[id]
	if !ok || t.Status != domain.StatusFetchingInfo {
		tm.mu.Unlock()
		return false
	}
	fn(t)
	snapshot := *t
	tm.mu.Unlock()

	tm.persist(&snapshot)
	return true
}

// persist writes one task through to the repository. Persistence failures
// are logged and swallowed; the in-memory list stays authoritative until the
// next successful write.
func (tm *TaskManager) persist(t *domain.Task) {
	if err := tm.repo.Save(t); err != nil {
		tm.logError("Failed to persist task", zap.String("id", t.ID), zap.Error(err))
	}
}

// expectedLiveEnd estimates when a live premiere finishes, when the start
// time and video duration are both known
func expectedLiveEnd(info *domain.VideoInfo) *time.Time {
	if info.ReleaseTimestamp <= 0 || info.Duration <= 0 {
		return nil
	}
	end := time.Unix(info.ReleaseTimestamp, 0).Add(time.Duration(info.Duration) * time.Second)
	return &end
}

func (tm *TaskManager) scrapeTitle(ctx context.Context, url string) string {
	if tm.scraper == nil {
		return ""
	}
	title, err := tm.scraper.ScrapeTitle(ctx, url)
	if err != nil {
		return ""
	}
	return title
}

func (tm *TaskManager) logEvent(event string, fields ...zap.Field) {
	if tm.multiLogger != nil {
		tm.multiLogger.LogTaskEvent(event, fields...)
	}
}

func (tm *TaskManager) logError(msg string, fields ...zap.Field) {
	if tm.multiLogger != nil {
		tm.multiLogger.LogAppError(msg, fields...)
	}
}
