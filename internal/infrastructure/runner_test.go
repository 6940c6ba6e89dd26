package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tubequeue/internal/domain"
)

func TestExpandTemplate(t *testing.T) {
	argv := ExpandTemplate("yt-dlp -f best {url}", "https://example.com/v")
	assert.Equal(t, []string{"yt-dlp", "-f", "best", "https://example.com/v"}, argv)
}

func TestExpandTemplate_EmbeddedPlaceholder(t *testing.T) {
	argv := ExpandTemplate("tool --referer={url} {url}", "https://example.com/v")
	assert.Equal(t, []string{"tool", "--referer=https://example.com/v", "https://example.com/v"}, argv)
}

func TestExpandTemplate_Empty(t *testing.T) {
	assert.Empty(t, ExpandTemplate("   ", "https://example.com/v"))
}

func TestApplyAudioPreference_RewritesBestaudio(t *testing.T) {
	argv := []string{"yt-dlp", "-f", "bestvideo+bestaudio/best", "URL"}
	out := ApplyAudioPreference(argv, "ja")

	assert.Equal(t, "bestvideo+bestaudio[language^=ja]/bestvideo+bestaudio/best", out[2])
	// Input untouched
	assert.Equal(t, "bestvideo+bestaudio/best", argv[2])
}

func TestApplyAudioPreference_SelectorWithoutBestaudio(t *testing.T) {
	argv := []string{"yt-dlp", "--format", "best", "URL"}
	out := ApplyAudioPreference(argv, "ko")

	assert.Equal(t, "bestvideo+bestaudio[language^=ko]/best", out[2])
}

func TestApplyAudioPreference_NoFormatFlag(t *testing.T) {
	argv := []string{"yt-dlp", "URL"}
	assert.Equal(t, argv, ApplyAudioPreference(argv, "en"))
}

func TestEnsureOutputFlags(t *testing.T) {
	argv := EnsureOutputFlags([]string{"yt-dlp", "URL"}, "/downloads")

	assert.Contains(t, argv, "-P")
	assert.Contains(t, argv, "/downloads")
	assert.Contains(t, argv, "-o")
	assert.Contains(t, argv, "--newline")
	assert.Contains(t, argv, "--print")
	assert.Contains(t, argv, "after_move:[FinalPath] %(filepath)s")
}

func TestEnsureOutputFlags_RespectsExisting(t *testing.T) {
	argv := []string{"yt-dlp", "-P", "/elsewhere", "-o", "custom.%(ext)s", "URL"}
	out := EnsureOutputFlags(argv, "/downloads")

	assert.NotContains(t, out, "/downloads")
	count := 0
	for _, a := range out {
		if a == "-o" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAppendSubtitleFlags(t *testing.T) {
	out := AppendSubtitleFlags([]string{"yt-dlp", "URL"}, domain.StringList{"en", "zh-TW"})

	assert.Contains(t, out, "--write-subs")
	assert.Contains(t, out, "en,zh-TW")
	assert.Contains(t, out, "--convert-subs")
	assert.Contains(t, out, "srt")
}

func TestOutputParser_Progress(t *testing.T) {
	p := newOutputParser()

	pct, ok := p.ParseLine("[download]  42.3% of 120.00MiB at 5.00MiB/s ETA 00:14", false)
	require.True(t, ok)
	assert.InDelta(t, 0.423, pct, 0.0001)

	pct, ok = p.ParseLine("[download] 100% of 120.00MiB in 00:24", false)
	require.True(t, ok)
	assert.Equal(t, 1.0, pct)
}

func TestOutputParser_NonProgressLines(t *testing.T) {
	p := newOutputParser()

	_, ok := p.ParseLine("[youtube] dQw4w9WgXcQ: Downloading webpage", false)
	assert.False(t, ok)

	_, ok = p.ParseLine("[download] Destination: video.f137.mp4", false)
	assert.False(t, ok)

	_, _, dests := p.snapshot()
	assert.Equal(t, []string{"video.f137.mp4"}, dests)
}

func TestOutputParser_FinalPathWins(t *testing.T) {
	p := newOutputParser()
	p.ParseLine("[download] Destination: video.f137.mp4", false)
	p.ParseLine(`[Merger] Merging formats into "video.mp4"`, false)
	p.ParseLine("[FinalPath] /downloads/video.mp4", false)

	finalPath, mergePath, dests := p.snapshot()
	assert.Equal(t, "/downloads/video.mp4", finalPath)
	assert.Equal(t, "video.mp4", mergePath)
	assert.Len(t, dests, 1)
}

func TestOutputParser_StderrError(t *testing.T) {
	p := newOutputParser()
	p.ParseLine("WARNING: something minor", true)
	p.ParseLine("ERROR: Video unavailable", true)

	assert.Equal(t, "ERROR: Video unavailable", p.LastError())
	// Stdout ERROR text is not treated as an error line
	p2 := newOutputParser()
	p2.ParseLine("ERROR: not really", false)
	assert.Empty(t, p2.LastError())
}

func touchFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestSurvivingMediaFiles(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, filepath.Join(dir, "video.f137.mp4"))
	touchFile(t, filepath.Join(dir, "audio.f140.m4a"))
	touchFile(t, filepath.Join(dir, "video.en.srt"))

	dests := []string{
		"video.f137.mp4",
		"audio.f140.m4a",
		"audio.f140.m4a", // duplicate line, counted once
		"video.en.srt",
		"gone.f299.mp4", // reported but already deleted
	}
	out := survivingMediaFiles(dests, dir)

	require.Len(t, out, 2)
	assert.Contains(t, out, filepath.Join(dir, "video.f137.mp4"))
	assert.Contains(t, out, filepath.Join(dir, "audio.f140.m4a"))
}

func TestResolveOutput_MergeFailureDeletesFragments(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, filepath.Join(dir, "video.f137.mp4"))
	touchFile(t, filepath.Join(dir, "audio.f140.m4a"))

	r := &ProcessRunner{config: &domain.DownloadConfig{OutputDir: dir}}
	p := newOutputParser()
	p.ParseLine("[download] Destination: video.f137.mp4", false)
	p.ParseLine("[download] Destination: audio.f140.m4a", false)

	_, err := r.resolveOutput(p, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merging audio and video failed")
	assert.NoFileExists(t, filepath.Join(dir, "video.f137.mp4"))
	assert.NoFileExists(t, filepath.Join(dir, "audio.f140.m4a"))
}

func TestResolveOutput_SingleSurvivor(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, filepath.Join(dir, "video.mp4"))

	r := &ProcessRunner{config: &domain.DownloadConfig{OutputDir: dir}}
	p := newOutputParser()
	p.ParseLine("[download] Destination: video.mp4", false)

	path, err := r.resolveOutput(p, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "video.mp4"), path)
}

func TestResolveOutput_FinalPathPriority(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, filepath.Join(dir, "merged.mp4"))

	r := &ProcessRunner{config: &domain.DownloadConfig{OutputDir: dir}}
	p := newOutputParser()
	p.ParseLine("[FinalPath] merged.mp4", false)

	path, err := r.resolveOutput(p, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "merged.mp4"), path)
}

func TestResolveOutput_SkipsSubtitleDestinations(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, filepath.Join(dir, "video.en.srt"))
	touchFile(t, filepath.Join(dir, "video.mp4"))

	r := &ProcessRunner{config: &domain.DownloadConfig{OutputDir: dir}}
	p := newOutputParser()
	p.ParseLine("[download] Destination: video.en.srt", false)

	// The subtitle is the only reported destination; the output must come
	// from the recent scan, never the subtitle itself
	path, err := r.resolveOutput(p, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "video.mp4"), path)
}

func TestResolveOutput_FallbackToRecentScan(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, filepath.Join(dir, "fresh.mkv"))

	r := &ProcessRunner{config: &domain.DownloadConfig{OutputDir: dir}}
	path, err := r.resolveOutput(newOutputParser(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fresh.mkv"), path)
}

func TestResolveOutput_NothingFound(t *testing.T) {
	dir := t.TempDir()
	r := &ProcessRunner{config: &domain.DownloadConfig{OutputDir: dir}}

	_, err := r.resolveOutput(newOutputParser(), dir)
	assert.Error(t, err)
}

func TestFindRecentMediaFile(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "old.mp4")
	touchFile(t, oldFile)
	stale := time.Now().Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))
	touchFile(t, filepath.Join(dir, "new.mp4"))
	touchFile(t, filepath.Join(dir, "sub.en.srt"))
	touchFile(t, filepath.Join(dir, "notes.txt"))

	assert.Equal(t, filepath.Join(dir, "new.mp4"), findRecentMediaFile(dir, time.Now()))
}

func TestFindRecentMediaFile_EmptyDir(t *testing.T) {
	assert.Empty(t, findRecentMediaFile(t.TempDir(), time.Now()))
}
