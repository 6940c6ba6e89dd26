package infrastructure

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// cookieMaxAge is how long an exported cookie file stays fresh before the
// next request re-exports it
const cookieMaxAge = 10 * time.Minute

// BrowserCookieExporter exports browser cookies to a Netscape-format file
// by running the downloader binary in cookie-dump mode. The download
// subprocess later reads the file with --cookies, which keeps browser
// profile access in one place.
type BrowserCookieExporter struct {
	binary   string
	cacheDir string

	mu       sync.Mutex
	exported map[string]time.Time // browser -> last export
}

// NewBrowserCookieExporter creates an exporter caching files under cacheDir
func NewBrowserCookieExporter(binary, cacheDir string) *BrowserCookieExporter {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &BrowserCookieExporter{
		binary:   binary,
		cacheDir: cacheDir,
		exported: make(map[string]time.Time),
	}
}

// ExportCookies dumps the named browser's cookies and returns the file path.
// Recent exports are reused so back-to-back downloads do not re-read the
// browser profile.
func (e *BrowserCookieExporter) ExportCookies(browser string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	path := filepath.Join(e.cacheDir, fmt.Sprintf("cookies-%s.txt", browser))
	if last, ok := e.exported[browser]; ok && time.Since(last) < cookieMaxAge {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if err := os.MkdirAll(e.cacheDir, 0700); err != nil {
		return "", err
	}

	cmd := exec.Command(e.binary,
		"--cookies-from-browser", browser,
		"--cookies", path,
		"--skip-download",
		"--no-warnings",
		"--quiet",
		"--simulate",
		"https://www.youtube.com")
	cmd.Env = augmentedEnv()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		// The export can still have written a usable file before an
		// unrelated simulate failure
		if _, statErr := os.Stat(path); statErr != nil {
			return "", fmt.Errorf("cookie export failed: %s", firstLine(stderr.String()))
		}
	}
	if err := os.Chmod(path, 0600); err != nil {
		return "", err
	}

	e.exported[browser] = time.Now()
	return path, nil
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}
