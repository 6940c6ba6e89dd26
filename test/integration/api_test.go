//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/api"
	"github.com/yourusername/tubequeue/internal/app"
	"github.com/yourusername/tubequeue/internal/domain"
	"github.com/yourusername/tubequeue/internal/infrastructure"
)

// fakeResolver resolves every URL instantly with canned metadata
type fakeResolver struct {
	mediaOptions *domain.MediaOptions
	playlist     []domain.PlaylistEntry
}

func (f *fakeResolver) FetchVideoInfo(ctx context.Context, url string, extraArgs []string) (*domain.VideoInfo, error) {
	return &domain.VideoInfo{Title: "Integration Video", LiveStatus: domain.LiveStatusNone}, nil
}

func (f *fakeResolver) FetchMediaOptions(ctx context.Context, url string, extraArgs []string) (*domain.MediaOptions, error) {
	if f.mediaOptions != nil {
		return f.mediaOptions, nil
	}
	return &domain.MediaOptions{}, nil
}

func (f *fakeResolver) FetchPlaylistInfo(ctx context.Context, url string, extraArgs []string) ([]domain.PlaylistEntry, error) {
	return f.playlist, nil
}

// fakeRunner completes every download immediately with a synthetic path
type fakeRunner struct {
	mu   sync.Mutex
	runs []string
	err  error
}

func (f *fakeRunner) Run(ctx context.Context, task *domain.Task, progress domain.ProgressFunc) (string, error) {
	f.mu.Lock()
	f.runs = append(f.runs, task.URL)
	runErr := f.err
	f.mu.Unlock()
	if progress != nil {
		progress(task.ID, 0.5)
	}
	if runErr != nil {
		return "", runErr
	}
	return "/downloads/" + task.ID + ".mp4", nil
}

func (f *fakeRunner) Cancel(taskID string) {}

type noopNotifier struct{}

func (noopNotifier) NotifyTaskCompleted(*domain.Task) {}
func (noopNotifier) NotifyTaskFailed(*domain.Task)    {}
func (noopNotifier) NotifyAllCompleted(int)           {}

type recordingCallback struct {
	mu    sync.Mutex
	tasks []*domain.Task
}

func (r *recordingCallback) NotifyCompleted(task *domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *task
	r.tasks = append(r.tasks, &copied)
}

type testEnv struct {
	server    *httptest.Server
	manager   *app.TaskManager
	scheduler *app.Scheduler
	resolver  *fakeResolver
	runner    *fakeRunner
	callback  *recordingCallback
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	repo, err := infrastructure.NewSQLiteTaskRepository(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	config := domain.DefaultConfig()
	config.Queue.CheckInterval = 10 * time.Millisecond
	config.Download.LaunchDelay = 0

	env := &testEnv{
		resolver: &fakeResolver{},
		runner:   &fakeRunner{},
		callback: &recordingCallback{},
	}

	env.manager = app.NewTaskManager(repo, env.resolver, env.runner, noopNotifier{}, env.callback, config, nil)
	env.scheduler = app.NewScheduler(env.manager, config, nil)
	env.manager.SetWake(func() { env.scheduler.Kick(context.Background()) })
	t.Cleanup(env.scheduler.Stop)

	router := api.SetupRouter(env.manager, env.scheduler, zap.NewNop(), t.TempDir())
	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestAPI_HealthAndReady(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(env.server.URL + "/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_AddTask(t *testing.T) {
	env := setupTestServer(t)

	resp := postJSON(t, env.server.URL+"/api/v1/tasks", map[string]string{
		"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var task domain.Task
	decodeJSON(t, resp, &task)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, domain.StatusFetchingInfo, task.Status)
}

func TestAPI_AddTask_Validation(t *testing.T) {
	env := setupTestServer(t)

	resp := postJSON(t, env.server.URL+"/api/v1/tasks", map[string]string{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, env.server.URL+"/api/v1/tasks", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, env.server.URL+"/api/v1/tasks", map[string]string{"url": "https://vimeo.com/1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_AddTask_Duplicate(t *testing.T) {
	env := setupTestServer(t)
	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	resp := postJSON(t, env.server.URL+"/api/v1/tasks", map[string]string{"url": url})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, env.server.URL+"/api/v1/tasks", map[string]string{"url": url})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_ListTasks(t *testing.T) {
	env := setupTestServer(t)

	resp := postJSON(t, env.server.URL+"/api/v1/tasks", map[string]string{
		"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(env.server.URL + "/api/v1/tasks")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Tasks  []domain.Task `json:"tasks"`
		Paused bool          `json:"paused"`
	}
	decodeJSON(t, resp, &list)
	assert.Len(t, list.Tasks, 1)
	assert.False(t, list.Paused)
}

func TestAPI_GetTask_NotFound(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Get(env.server.URL + "/api/v1/tasks/nonexistent")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_Stats(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Get(env.server.URL + "/api/v1/tasks/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats domain.TaskStats
	decodeJSON(t, resp, &stats)
	assert.Zero(t, stats.Total)
}

func TestAPI_PauseAllResumeAll(t *testing.T) {
	env := setupTestServer(t)

	resp := postJSON(t, env.server.URL+"/api/v1/tasks/pause-all", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.True(t, env.manager.GlobalPause())

	resp = postJSON(t, env.server.URL+"/api/v1/tasks/resume-all", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.False(t, env.manager.GlobalPause())
}

func TestAPI_LogCategories(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Get(env.server.URL + "/api/v1/logs/categories")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Categories []string `json:"categories"`
	}
	decodeJSON(t, resp, &body)
	assert.Contains(t, body.Categories, "queue")
	assert.Contains(t, body.Categories, "task")
	assert.Contains(t, body.Categories, "error")
}

func TestAPI_Logs_UnknownCategory(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Get(env.server.URL + "/api/v1/logs/bogus")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
