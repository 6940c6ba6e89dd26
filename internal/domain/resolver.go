package domain

import "context"

// LiveStatus mirrors the extractor's live_status classification
type LiveStatus string

const (
	LiveStatusNone     LiveStatus = "not_live"
	LiveStatusUpcoming LiveStatus = "is_upcoming"
	LiveStatusLive     LiveStatus = "is_live"
	LiveStatusPostLive LiveStatus = "post_live" // ended, platform still processing
	LiveStatusWasLive  LiveStatus = "was_live"
)

// VideoInfo is the descriptive metadata resolved for a single video
type VideoInfo struct {
	Title            string
	Thumbnail        string
	Duration         int64 // seconds, 0 if unknown
	LiveStatus       LiveStatus
	ReleaseTimestamp int64 // unix seconds, 0 if unknown
}

// MediaOptions lists the selectable tracks a video offers
type MediaOptions struct {
	SubtitleTracks TrackList
	AudioTracks    TrackList
}

// PlaylistEntry is one member of a resolved playlist, titles best effort
type PlaylistEntry struct {
	URL       string
	Title     string
	Thumbnail string
}

// MetadataResolver fetches descriptive metadata through the external tool's
// info mode. All calls hit the network and can fail independently; URL-shape
// classification lives in this package (IsPlaylistURL, ExtractVideoID) so it
// never awaits I/O.
type MetadataResolver interface {
	FetchVideoInfo(ctx context.Context, url string, extraArgs []string) (*VideoInfo, error)
	FetchMediaOptions(ctx context.Context, url string, extraArgs []string) (*MediaOptions, error)
	FetchPlaylistInfo(ctx context.Context, url string, extraArgs []string) ([]PlaylistEntry, error)
}

// TitleScraper is the fallback page-scrape used when the structured resolver
// cannot supply a title (e.g. for a not-yet-premiered video)
type TitleScraper interface {
	ScrapeTitle(ctx context.Context, url string) (string, error)
}

// CookieProvider exports browser cookies to a plain cookie file the
// subprocess can read. The binary cookie-jar parsing behind it is an
// external collaborator; the core only consumes the resulting path.
type CookieProvider interface {
	ExportCookies(browser string) (string, error)
}

// ProgressFunc receives fractional progress updates from a running download
type ProgressFunc func(taskID string, fraction float64)

// Runner supervises one external downloader invocation per task. Run blocks
// until the subprocess exits and returns the validated output path. Cancel
// signals the task's live subprocess and is safe to call at any time.
type Runner interface {
	Run(ctx context.Context, task *Task, progress ProgressFunc) (string, error)
	Cancel(taskID string)
}

// Notifier delivers best-effort user-facing notifications. Failures are
// logged by implementations and never propagate.
type Notifier interface {
	NotifyTaskCompleted(task *Task)
	NotifyTaskFailed(task *Task)
	NotifyAllCompleted(count int)
}

// CallbackNotifier posts completion details back to the external caller that
// supplied a callback target. Fire and forget.
type CallbackNotifier interface {
	NotifyCompleted(task *Task)
}
