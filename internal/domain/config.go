package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Resolver     ResolverConfig     `mapstructure:"resolver"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Concurrency limits accepted from configuration; out-of-range values clamp
const (
	MinConcurrency = 1
	MaxConcurrency = 5
)

// ClampConcurrency forces a configured limit into the accepted range
func ClampConcurrency(n int) int {
	if n < MinConcurrency {
		return MinConcurrency
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}

// DownloadConfig contains download-related configuration.
// CommandTemplate is the full downloader invocation with a literal {url}
// placeholder; the first token is the executable.
type DownloadConfig struct {
	OutputDir           string        `mapstructure:"output_dir"`
	LogsDir             string        `mapstructure:"logs_dir"`
	CommandTemplate     string        `mapstructure:"command_template"`
	ConcurrentLimit     int           `mapstructure:"concurrent_limit"`
	LaunchDelay         time.Duration `mapstructure:"launch_delay"`
	AutoRemoveCompleted bool          `mapstructure:"auto_remove_completed"`
}

// QueueConfig contains queue-related configuration
type QueueConfig struct {
	DatabasePath    string        `mapstructure:"database_path"`
	CheckInterval   time.Duration `mapstructure:"check_interval"`
	AutoExitOnEmpty bool          `mapstructure:"auto_exit_on_empty"`
	EmptyWaitTime   time.Duration `mapstructure:"empty_wait_time"`
}

// ResolverConfig controls the metadata resolution subprocess
type ResolverConfig struct {
	Binary    string        `mapstructure:"binary"`
	Timeout   time.Duration `mapstructure:"timeout"`
	ExtraArgs []string      `mapstructure:"extra_args"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Download: DownloadConfig{
			OutputDir:           "$HOME/Downloads/tubequeue",
			LogsDir:             "$HOME/Downloads/tubequeue/logs",
			CommandTemplate:     "yt-dlp -f bestvideo[ext=mp4]+bestaudio[ext=m4a]/best {url}",
			ConcurrentLimit:     3,
			LaunchDelay:         500 * time.Millisecond,
			AutoRemoveCompleted: false,
		},
		Queue: QueueConfig{
			DatabasePath:    "$HOME/Downloads/tubequeue/config/tasks.db",
			CheckInterval:   300 * time.Millisecond,
			AutoExitOnEmpty: false,
			EmptyWaitTime:   5 * time.Minute,
		},
		Resolver: ResolverConfig{
			Binary:  "yt-dlp",
			Timeout: 60 * time.Second,
		},
		Notification: NotificationConfig{
			Enabled: true,
			Method:  "osascript",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
