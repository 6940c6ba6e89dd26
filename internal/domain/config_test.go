package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8090, config.Server.Port)
	assert.Equal(t, 3, config.Download.ConcurrentLimit)
	assert.Equal(t, 500*time.Millisecond, config.Download.LaunchDelay)
	assert.Contains(t, config.Download.CommandTemplate, "{url}")
	assert.Equal(t, 300*time.Millisecond, config.Queue.CheckInterval)
	assert.False(t, config.Queue.AutoExitOnEmpty)
	assert.Equal(t, "yt-dlp", config.Resolver.Binary)
	assert.True(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestDefaultConfig_TemplateStartsWithBinary(t *testing.T) {
	fields := strings.Fields(DefaultConfig().Download.CommandTemplate)

	assert.NotEmpty(t, fields)
	assert.Equal(t, "yt-dlp", fields[0])
}

func TestClampConcurrency(t *testing.T) {
	assert.Equal(t, MinConcurrency, ClampConcurrency(0))
	assert.Equal(t, MinConcurrency, ClampConcurrency(-3))
	assert.Equal(t, 1, ClampConcurrency(1))
	assert.Equal(t, 3, ClampConcurrency(3))
	assert.Equal(t, MaxConcurrency, ClampConcurrency(5))
	assert.Equal(t, MaxConcurrency, ClampConcurrency(99))
}
