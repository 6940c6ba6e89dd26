//go:build integration
// +build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tubequeue/internal/domain"
)

func waitForTaskStatus(t *testing.T, env *testEnv, id string, want domain.TaskStatus) *domain.Task {
	t.Helper()
	var got *domain.Task
	require.Eventually(t, func() bool {
		task, ok := env.manager.GetTask(id)
		if ok && task.Status == want {
			got = task
			return true
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "task %s never reached %s", id, want)
	return got
}

func addTaskViaAPI(t *testing.T, env *testEnv, body map[string]string) domain.Task {
	t.Helper()
	resp := postJSON(t, env.server.URL+"/api/v1/tasks", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var task domain.Task
	decodeJSON(t, resp, &task)
	return task
}

func TestDownloadFlow_AddToCompleted(t *testing.T) {
	env := setupTestServer(t)

	task := addTaskViaAPI(t, env, map[string]string{
		"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	})

	// Resolution queues the task, the wake hook kicks the scheduler, the
	// fake runner completes instantly
	done := waitForTaskStatus(t, env, task.ID, domain.StatusCompleted)
	assert.Equal(t, "Integration Video", done.Title)
	assert.Equal(t, "/downloads/"+task.ID+".mp4", done.OutputPath)
	assert.Equal(t, 1.0, done.Progress)
}

func TestDownloadFlow_SelectionGate(t *testing.T) {
	env := setupTestServer(t)
	env.resolver.mediaOptions = &domain.MediaOptions{
		SubtitleTracks: domain.TrackList{
			{LangCode: "en", Name: "English"},
			{LangCode: "ja", Name: "Japanese"},
		},
	}

	task := addTaskViaAPI(t, env, map[string]string{
		"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	})
	waiting := waitForTaskStatus(t, env, task.ID, domain.StatusWaitingSelection)
	assert.Len(t, waiting.SubtitleTracks, 2)

	resp := postJSON(t, env.server.URL+"/api/v1/tasks/selection", map[string]any{
		"taskIds":       []string{task.ID},
		"subtitleLangs": []string{"en"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	done := waitForTaskStatus(t, env, task.ID, domain.StatusCompleted)
	assert.Equal(t, domain.StringList{"en"}, done.SubtitleLangs)
}

func TestDownloadFlow_FailureAndRetry(t *testing.T) {
	env := setupTestServer(t)
	env.runner.err = assert.AnError

	task := addTaskViaAPI(t, env, map[string]string{
		"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	})
	failed := waitForTaskStatus(t, env, task.ID, domain.StatusFailed)
	assert.NotEmpty(t, failed.ErrorDetail)

	env.runner.mu.Lock()
	env.runner.err = nil
	env.runner.mu.Unlock()

	resp := postJSON(t, env.server.URL+"/api/v1/tasks/"+task.ID+"/retry", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	done := waitForTaskStatus(t, env, task.ID, domain.StatusCompleted)
	assert.Empty(t, done.ErrorDetail)
}

func TestDownloadFlow_PlaylistFanOut(t *testing.T) {
	env := setupTestServer(t)
	env.resolver.playlist = []domain.PlaylistEntry{
		{URL: "https://www.youtube.com/watch?v=aaaaaaaaaaa", Title: "Part 1"},
		{URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb", Title: "Part 2"},
	}

	addTaskViaAPI(t, env, map[string]string{
		"url": "https://www.youtube.com/playlist?list=PLtest",
	})

	require.Eventually(t, func() bool {
		tasks := env.manager.ListTasks()
		if len(tasks) != 2 {
			return false
		}
		for _, task := range tasks {
			if task.Status != domain.StatusCompleted {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	env.runner.mu.Lock()
	defer env.runner.mu.Unlock()
	assert.Len(t, env.runner.runs, 2)
}

func TestDownloadFlow_CallbackDelivery(t *testing.T) {
	env := setupTestServer(t)

	task := addTaskViaAPI(t, env, map[string]string{
		"url":           "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"callbackUrl":   "http://localhost:9999/done",
		"correlationId": "batch-7",
	})
	waitForTaskStatus(t, env, task.ID, domain.StatusCompleted)

	require.Eventually(t, func() bool {
		env.callback.mu.Lock()
		defer env.callback.mu.Unlock()
		return len(env.callback.tasks) == 1
	}, 2*time.Second, 10*time.Millisecond)

	env.callback.mu.Lock()
	defer env.callback.mu.Unlock()
	assert.Equal(t, "batch-7", env.callback.tasks[0].CorrelationID)
	assert.Equal(t, "http://localhost:9999/done", env.callback.tasks[0].CallbackTarget)
}

func TestDownloadFlow_CancelPending(t *testing.T) {
	env := setupTestServer(t)
	env.manager.PauseAll()

	task := addTaskViaAPI(t, env, map[string]string{
		"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	})
	waitForTaskStatus(t, env, task.ID, domain.StatusPaused)

	resp := postJSON(t, env.server.URL+"/api/v1/tasks/"+task.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	waitForTaskStatus(t, env, task.ID, domain.StatusCancelled)
}
