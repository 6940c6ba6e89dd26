package domain

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Validation failures form a small closed set so callers can map them to
// distinct user-facing rejections.
var (
	ErrInvalidURL        = errors.New("malformed URL")
	ErrUnsupportedDomain = errors.New("unsupported domain")
	ErrDuplicateURL      = errors.New("URL already in task list")
)

var allowedHosts = map[string]struct{}{
	"youtube.com":       {},
	"www.youtube.com":   {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
	"youtu.be":          {},
}

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidateURL checks URL shape and domain before a task is ever created.
// Duplicate detection is the task manager's responsibility.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	if _, ok := allowedHosts[strings.ToLower(u.Host)]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedDomain, u.Host)
	}
	return nil
}

// IsPlaylistURL classifies a URL by shape only, no network call. The queue
// branches on this synchronously when a URL is accepted.
func IsPlaylistURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if strings.HasPrefix(u.Path, "/playlist") {
		return true
	}
	// watch?v=...&list=... counts as a playlist request
	return u.Query().Get("list") != ""
}

// ExtractVideoID pulls the 11-character video id out of a watch or share
// URL. Returns "" when the URL carries no recognizable id. Used only to
// pre-populate a thumbnail guess before metadata resolves.
func ExtractVideoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	var id string
	switch {
	case host == "youtu.be":
		id = strings.TrimPrefix(u.Path, "/")
	case strings.HasPrefix(u.Path, "/shorts/"):
		id = strings.TrimPrefix(u.Path, "/shorts/")
	case strings.HasPrefix(u.Path, "/live/"):
		id = strings.TrimPrefix(u.Path, "/live/")
	default:
		id = u.Query().Get("v")
	}
	if idx := strings.IndexAny(id, "/?&"); idx >= 0 {
		id = id[:idx]
	}
	if !videoIDRe.MatchString(id) {
		return ""
	}
	return id
}

// ThumbnailURL returns the well-known thumbnail location for a video id
func ThumbnailURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID)
}
