package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/yourusername/tubequeue/internal/domain"
)

// YtdlpResolver resolves video metadata through the downloader's JSON info
// mode. Every call shells out; callers bound it with a context.
type YtdlpResolver struct {
	binary  string
	timeout time.Duration
}

// NewYtdlpResolver creates a resolver around the given downloader binary
func NewYtdlpResolver(binary string, timeout time.Duration) *YtdlpResolver {
	if binary == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &YtdlpResolver{binary: binary, timeout: timeout}
}

// videoInfoJSON is the subset of the info-mode output the core consumes
type videoInfoJSON struct {
	Title            string                       `json:"title"`
	Thumbnail        string                       `json:"thumbnail"`
	Duration         float64                      `json:"duration"`
	LiveStatus       string                       `json:"live_status"`
	ReleaseTimestamp int64                        `json:"release_timestamp"`
	Subtitles        map[string][]subtitleVariant `json:"subtitles"`
	Formats          []formatJSON                 `json:"formats"`
	Entries          []playlistEntryJSON          `json:"entries"`
}

type subtitleVariant struct {
	Name string `json:"name"`
}

type formatJSON struct {
	Language   string `json:"language"`
	FormatNote string `json:"format_note"`
	Vcodec     string `json:"vcodec"`
	Acodec     string `json:"acodec"`
}

type playlistEntryJSON struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

// FetchVideoInfo resolves title, thumbnail, duration and live state
func (r *YtdlpResolver) FetchVideoInfo(ctx context.Context, url string, extraArgs []string) (*domain.VideoInfo, error) {
	info, err := r.fetchInfo(ctx, url, extraArgs, false)
	if err != nil {
		return nil, err
	}

	status := domain.LiveStatus(info.LiveStatus)
	switch status {
	case domain.LiveStatusUpcoming, domain.LiveStatusLive, domain.LiveStatusPostLive, domain.LiveStatusWasLive:
	default:
		status = domain.LiveStatusNone
	}

	return &domain.VideoInfo{
		Title:            info.Title,
		Thumbnail:        info.Thumbnail,
		Duration:         int64(info.Duration),
		LiveStatus:       status,
		ReleaseTimestamp: info.ReleaseTimestamp,
	}, nil
}

// FetchMediaOptions lists the subtitle and audio tracks the video offers
func (r *YtdlpResolver) FetchMediaOptions(ctx context.Context, url string, extraArgs []string) (*domain.MediaOptions, error) {
	info, err := r.fetchInfo(ctx, url, extraArgs, false)
	if err != nil {
		return nil, err
	}

	opts := &domain.MediaOptions{}
	for lang, variants := range info.Subtitles {
		name := lang
		if len(variants) > 0 && variants[0].Name != "" {
			name = variants[0].Name
		}
		opts.SubtitleTracks = append(opts.SubtitleTracks, domain.Track{LangCode: lang, Name: name})
	}

	seen := make(map[string]struct{})
	for _, f := range info.Formats {
		// Audio-only formats carry the track language; video formats do not
		if f.Acodec == "" || f.Acodec == "none" {
			continue
		}
		if f.Vcodec != "" && f.Vcodec != "none" {
			continue
		}
		if f.Language == "" {
			continue
		}
		if _, dup := seen[f.Language]; dup {
			continue
		}
		seen[f.Language] = struct{}{}
		name := f.FormatNote
		if name == "" {
			name = f.Language
		}
		opts.AudioTracks = append(opts.AudioTracks, domain.Track{LangCode: f.Language, Name: name})
	}

	return opts, nil
}

// FetchPlaylistInfo lists playlist members without resolving each one
func (r *YtdlpResolver) FetchPlaylistInfo(ctx context.Context, url string, extraArgs []string) ([]domain.PlaylistEntry, error) {
	info, err := r.fetchInfo(ctx, url, extraArgs, true)
	if err != nil {
		return nil, err
	}
	if len(info.Entries) == 0 {
		return nil, fmt.Errorf("playlist contains no entries")
	}

	entries := make([]domain.PlaylistEntry, 0, len(info.Entries))
	for _, e := range info.Entries {
		memberURL := e.URL
		if memberURL == "" && e.ID != "" {
			memberURL = "https://www.youtube.com/watch?v=" + e.ID
		}
		if memberURL == "" {
			continue
		}
		thumb := ""
		if len(e.Thumbnails) > 0 {
			thumb = e.Thumbnails[len(e.Thumbnails)-1].URL
		} else if id := domain.ExtractVideoID(memberURL); id != "" {
			thumb = domain.ThumbnailURL(id)
		}
		entries = append(entries, domain.PlaylistEntry{
			URL:       memberURL,
			Title:     e.Title,
			Thumbnail: thumb,
		})
	}
	return entries, nil
}

func (r *YtdlpResolver) fetchInfo(ctx context.Context, url string, extraArgs []string, flatPlaylist bool) (*videoInfoJSON, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{"-J", "--no-download"}
	if flatPlaylist {
		args = append(args, "--flat-playlist")
	} else {
		args = append(args, "--no-playlist")
	}
	args = append(args, extraArgs...)
	args = append(args, url)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Env = augmentedEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("metadata fetch timed out: %w", ctx.Err())
		}
		// The tool's own diagnostic is more useful than the exit status:
		// premiere countdowns and region locks surface here.
		if msg := extractErrorMessage(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s", msg)
		}
		return nil, fmt.Errorf("metadata fetch failed: %w", err)
	}

	var info videoInfoJSON
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata output: %w", err)
	}
	return &info, nil
}

// extractErrorMessage pulls the last ERROR line from the tool's stderr
func extractErrorMessage(stderr string) string {
	var last string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			last = strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	return last
}
