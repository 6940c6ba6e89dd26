package infrastructure

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	ogTitleRe   = regexp.MustCompile(`<meta\s+property="og:title"\s+content="([^"]+)"`)
	pageTitleRe = regexp.MustCompile(`<title>([^<]+)</title>`)
)

// PageTitleScraper fetches the watch page and reads the og:title meta tag.
// Used when the structured resolver has no title to give, which happens for
// videos that have not premiered yet.
type PageTitleScraper struct {
	client *http.Client
}

// NewPageTitleScraper creates a scraper with a bounded HTTP client
func NewPageTitleScraper() *PageTitleScraper {
	return &PageTitleScraper{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// ScrapeTitle returns the page's og:title, falling back to the <title> tag
func (s *PageTitleScraper) ScrapeTitle(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page fetch returned status %d", resp.StatusCode)
	}

	// Titles appear in the first kilobytes of the page head
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return "", err
	}

	if m := ogTitleRe.FindSubmatch(body); m != nil {
		return html.UnescapeString(string(m[1])), nil
	}
	if m := pageTitleRe.FindSubmatch(body); m != nil {
		title := html.UnescapeString(string(m[1]))
		title = strings.TrimSuffix(title, " - YouTube")
		if title != "" {
			return title, nil
		}
	}
	return "", fmt.Errorf("no title found in page")
}
