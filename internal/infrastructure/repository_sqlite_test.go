package infrastructure

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tubequeue/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteTaskRepository {
	t.Helper()
	repo, err := NewSQLiteTaskRepository(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepo_SaveAndLoad(t *testing.T) {
	repo := newTestRepo(t)

	task := domain.NewTask("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	task.Title = "Test Video"
	task.Status = domain.StatusPending
	require.NoError(t, repo.Save(task))

	tasks, err := repo.LoadAll()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
	assert.Equal(t, "Test Video", tasks[0].Title)
	assert.Equal(t, domain.StatusPending, tasks[0].Status)
}

func TestSQLiteRepo_SaveUpdatesExisting(t *testing.T) {
	repo := newTestRepo(t)

	task := domain.NewTask("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, repo.Save(task))

	task.MarkCompleted("/downloads/out.mp4")
	require.NoError(t, repo.Save(task))

	tasks, err := repo.LoadAll()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.StatusCompleted, tasks[0].Status)
	assert.Equal(t, "/downloads/out.mp4", tasks[0].OutputPath)
}

func TestSQLiteRepo_LoadAll_InsertionOrder(t *testing.T) {
	repo := newTestRepo(t)

	urls := []string{
		"https://www.youtube.com/watch?v=aaaaaaaaaaa",
		"https://www.youtube.com/watch?v=bbbbbbbbbbb",
		"https://www.youtube.com/watch?v=ccccccccccc",
	}
	base := time.Now().Add(-time.Minute)
	for i, u := range urls {
		task := domain.NewTask(u)
		task.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Save(task))
	}

	tasks, err := repo.LoadAll()
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for i, u := range urls {
		assert.Equal(t, u, tasks[i].URL)
	}
}

func TestSQLiteRepo_LoadAll_ResetsInterruptedDownloads(t *testing.T) {
	repo := newTestRepo(t)

	task := domain.NewTask("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	task.Status = domain.StatusDownloading
	task.Progress = 0.75
	require.NoError(t, repo.Save(task))

	tasks, err := repo.LoadAll()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.StatusPending, tasks[0].Status)
	assert.Zero(t, tasks[0].Progress)

	// The reset is written through, not just applied in memory
	again, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, again[0].Status)
}

func TestSQLiteRepo_Delete(t *testing.T) {
	repo := newTestRepo(t)

	task := domain.NewTask("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, repo.Save(task))
	require.NoError(t, repo.Delete(task.ID))

	tasks, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSQLiteRepo_DeleteByStatus(t *testing.T) {
	repo := newTestRepo(t)

	completed := domain.NewTask("https://www.youtube.com/watch?v=aaaaaaaaaaa")
	completed.Status = domain.StatusCompleted
	failed := domain.NewTask("https://www.youtube.com/watch?v=bbbbbbbbbbb")
	failed.Status = domain.StatusFailed
	pending := domain.NewTask("https://www.youtube.com/watch?v=ccccccccccc")
	pending.Status = domain.StatusPending
	require.NoError(t, repo.SaveAll([]*domain.Task{completed, failed, pending}))

	require.NoError(t, repo.DeleteByStatus(domain.StatusCompleted, domain.StatusFailed))

	tasks, err := repo.LoadAll()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, pending.ID, tasks[0].ID)
}

func TestSQLiteRepo_Clear(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveAll([]*domain.Task{
		domain.NewTask("https://www.youtube.com/watch?v=aaaaaaaaaaa"),
		domain.NewTask("https://www.youtube.com/watch?v=bbbbbbbbbbb"),
	}))
	require.NoError(t, repo.Clear())

	tasks, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSQLiteRepo_GetStats(t *testing.T) {
	repo := newTestRepo(t)

	statuses := []domain.TaskStatus{
		domain.StatusPending,
		domain.StatusPending,
		domain.StatusCompleted,
		domain.StatusFailed,
		domain.StatusPaused,
	}
	ids := []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc", "ddddddddddd", "eeeeeeeeeee"}
	for i, s := range statuses {
		task := domain.NewTask("https://www.youtube.com/watch?v=" + ids[i])
		task.Status = s
		require.NoError(t, repo.Save(task))
	}

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Paused)
	assert.Zero(t, stats.Downloading)
}

func TestSQLiteRepo_PersistsSelectionFields(t *testing.T) {
	repo := newTestRepo(t)

	task := domain.NewTask("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	task.Status = domain.StatusWaitingSelection
	task.SubtitleTracks = domain.TrackList{{LangCode: "en", Name: "English"}}
	task.SubtitleLangs = domain.StringList{"en", "ja"}
	task.AudioLang = "ja"
	require.NoError(t, repo.Save(task))

	tasks, err := repo.LoadAll()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.StringList{"en", "ja"}, tasks[0].SubtitleLangs)
	assert.Equal(t, "ja", tasks[0].AudioLang)
	require.Len(t, tasks[0].SubtitleTracks, 1)
	assert.Equal(t, "en", tasks[0].SubtitleTracks[0].LangCode)
}
