package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePremiereDelay(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		msg  string
		want time.Duration
	}{
		{"minutes", "ERROR: [youtube] abc: Premieres in 81 minutes", 81 * time.Minute},
		{"single minute", "Premieres in 1 minute", time.Minute},
		{"hours", "This live event will begin soon. Premieres in 2 hours", 2 * time.Hour},
		{"days", "Premieres in 3 days", 72 * time.Hour},
		{"case insensitive", "premieres in 5 MINUTES", 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := ParsePremiereDelay(tt.msg, now)
			require.NotNil(t, at)
			assert.Equal(t, now.Add(tt.want), *at)
		})
	}
}

func TestParsePremiereDelay_NotACountdown(t *testing.T) {
	now := time.Now()

	assert.Nil(t, ParsePremiereDelay("ERROR: Video unavailable", now))
	assert.Nil(t, ParsePremiereDelay("", now))
	// Weeks are not a recognized unit
	assert.Nil(t, ParsePremiereDelay("Premieres in 2 weeks", now))
}
