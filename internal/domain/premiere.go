package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// premiereRe matches the countdown message yt-dlp emits for a video that has
// not premiered yet, e.g. "Premieres in 81 minutes".
var premiereRe = regexp.MustCompile(`(?i)premieres in (\d+) (minute|hour|day)s?`)

var unitSeconds = map[string]int64{
	"minute": 60,
	"hour":   3600,
	"day":    86400,
}

// ParsePremiereDelay extracts a concrete premiere time from an extractor
// error message. Returns nil if the message is not a premiere countdown;
// unknown units (weeks, months) are deliberately not parsed.
func ParsePremiereDelay(msg string, now time.Time) *time.Time {
	m := premiereRe.FindStringSubmatch(msg)
	if m == nil {
		return nil
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil
	}
	secs, ok := unitSeconds[strings.ToLower(m[2])]
	if !ok {
		return nil
	}
	at := now.Add(time.Duration(n*secs) * time.Second)
	return &at
}
