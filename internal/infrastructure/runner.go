package infrastructure

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/domain"
	"github.com/yourusername/tubequeue/pkg/logger"
)

// finalPathMarker prefixes the machine-parseable output-path line we ask the
// downloader to print once post-processing has finished. Parsing this line
// beats guessing the file location from progress output.
const finalPathMarker = "[FinalPath]"

// recentFileWindow bounds the last-resort output-directory scan
const recentFileWindow = 60 * time.Second

var (
	progressRe  = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)
	destRe      = regexp.MustCompile(`\[download\] Destination:\s+(.+)`)
	mergeRe     = regexp.MustCompile(`\[Merger\] Merging formats into "(.+)"`)
	finalPathRe = regexp.MustCompile(regexp.QuoteMeta(finalPathMarker) + `\s+(.+)`)
)

// extraPathDirs are appended to PATH so auxiliary tools (ffmpeg and friends)
// installed by a package manager are found even when the daemon was launched
// without a shell environment.
var extraPathDirs = []string{
	"/opt/homebrew/bin",
	"/usr/local/bin",
	"/opt/local/bin",
}

// ProcessRunner supervises one external downloader subprocess per task.
// Live subprocess handles are kept in a table keyed by task id and removed
// on every exit path, so cancellation never races a forgotten process.
type ProcessRunner struct {
	config      *domain.DownloadConfig
	cookies     domain.CookieProvider
	logsDir     string
	multiLogger *logger.MultiLogger

	mu    sync.Mutex
	procs map[string]*exec.Cmd
}

// NewProcessRunner creates a process runner
func NewProcessRunner(config *domain.DownloadConfig, cookies domain.CookieProvider, logsDir string, multiLogger *logger.MultiLogger) *ProcessRunner {
	return &ProcessRunner{
		config:      config,
		cookies:     cookies,
		logsDir:     logsDir,
		multiLogger: multiLogger,
		procs:       make(map[string]*exec.Cmd),
	}
}

// Run executes the downloader for one task, streaming its output until exit.
// Returns the validated output path on success.
func (r *ProcessRunner) Run(ctx context.Context, task *domain.Task, progress domain.ProgressFunc) (string, error) {
	outputDir := r.config.OutputDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	argv, err := r.buildCommand(task)
	if err != nil {
		return "", err
	}

	downloadLog, err := r.openLogFile()
	if err != nil {
		return "", fmt.Errorf("failed to open download log: %w", err)
	}
	defer downloadLog.Close()
	r.writeLogHeader(downloadLog, task.ID, ShellEscapeCommand(argv[0], argv[1:]...))

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = outputDir
	cmd.Env = augmentedEnv()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start downloader: %w", err)
	}

	r.mu.Lock()
	r.procs[task.ID] = cmd
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.procs, task.ID)
		r.mu.Unlock()
	}()

	// Terminate the subprocess if the surrounding context dies while it runs
	procDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.Cancel(task.ID)
		case <-procDone:
		}
	}()

	// Both pipes must be drained continuously: subprocess output can exceed
	// the pipe buffer and deadlock an unread stream.
	parser := newOutputParser()
	var scanWg sync.WaitGroup
	scanWg.Add(2)
	go func() {
		defer scanWg.Done()
		r.scanStream(stdout, parser, task.ID, downloadLog, false, progress)
	}()
	go func() {
		defer scanWg.Done()
		r.scanStream(stderr, parser, task.ID, downloadLog, true, progress)
	}()
	scanWg.Wait()

	waitErr := cmd.Wait()
	close(procDone)

	if ctx.Err() != nil {
		r.writeLogFooter(downloadLog, false, "cancelled")
		return "", ctx.Err()
	}

	if waitErr != nil {
		detail := parser.LastError()
		if detail == "" {
			detail = fmt.Sprintf("downloader exited abnormally: %v", waitErr)
		}
		r.writeLogFooter(downloadLog, false, detail)
		return "", fmt.Errorf("%s", detail)
	}

	outputPath, err := r.resolveOutput(parser, outputDir)
	if err != nil {
		r.writeLogFooter(downloadLog, false, err.Error())
		return "", err
	}

	r.writeLogFooter(downloadLog, true, fmt.Sprintf("Downloaded: %s", outputPath))
	return outputPath, nil
}

// Cancel signals the task's subprocess to terminate and drops its handle.
// Safe to call when no process is running; never waits for process death.
func (r *ProcessRunner) Cancel(taskID string) {
	r.mu.Lock()
	cmd, ok := r.procs[taskID]
	delete(r.procs, taskID)
	r.mu.Unlock()

	if !ok || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already exited; nothing to do
		return
	}
	if r.multiLogger != nil {
		r.multiLogger.LogQueueEvent("subprocess_terminated", zap.String("id", taskID))
	}
}

// buildCommand expands the user's command template into the final argv
func (r *ProcessRunner) buildCommand(task *domain.Task) ([]string, error) {
	argv := ExpandTemplate(r.config.CommandTemplate, task.URL)
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command template")
	}

	argv = r.replaceBrowserCookies(argv)
	if task.AudioLang != "" {
		argv = ApplyAudioPreference(argv, task.AudioLang)
	}
	argv = EnsureOutputFlags(argv, r.config.OutputDir)
	if len(task.SubtitleLangs) > 0 {
		argv = AppendSubtitleFlags(argv, task.SubtitleLangs)
	}
	return argv, nil
}

// ExpandTemplate splits the command template on whitespace and substitutes
// the URL placeholder. exec.Command passes args directly to the process, so
// no shell quoting is involved.
func ExpandTemplate(template, url string) []string {
	fields := strings.Fields(template)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "{url}" {
			out = append(out, url)
		} else {
			out = append(out, strings.ReplaceAll(f, "{url}", url))
		}
	}
	return out
}

// replaceBrowserCookies swaps a --cookies-from-browser directive for a
// pre-exported cookie file. The subprocess does not inherit the host
// application's file-system entitlements, so it cannot read browser
// profiles itself.
func (r *ProcessRunner) replaceBrowserCookies(argv []string) []string {
	for i, a := range argv {
		if a != "--cookies-from-browser" || i+1 >= len(argv) {
			continue
		}
		browser := argv[i+1]
		rest := argv[i+2:]
		if r.cookies == nil {
			return append(argv[:i:i], rest...)
		}
		path, err := r.cookies.ExportCookies(browser)
		if err != nil || path == "" {
			if r.multiLogger != nil {
				r.multiLogger.LogAppError("Cookie export failed, dropping directive",
					zap.String("browser", browser), zap.Error(err))
			}
			return append(argv[:i:i], rest...)
		}
		out := append(argv[:i:i], "--cookies", path)
		return append(out, rest...)
	}
	return argv
}

// ApplyAudioPreference rewrites the format selector to prefer the chosen
// audio language, keeping the original selector as fallback so an
// unavailable language never hard-fails the download.
func ApplyAudioPreference(argv []string, lang string) []string {
	for i, a := range argv {
		if (a != "-f" && a != "--format") || i+1 >= len(argv) {
			continue
		}
		sel := argv[i+1]
		preferred := strings.ReplaceAll(sel, "bestaudio", "bestaudio[language^="+lang+"]")
		if preferred == sel {
			preferred = fmt.Sprintf("bestvideo+bestaudio[language^=%s]", lang)
		}
		out := make([]string, len(argv))
		copy(out, argv)
		out[i+1] = preferred + "/" + sel
		return out
	}
	return argv
}

// EnsureOutputFlags appends the output location, the newline-flushing flag
// and the final-path print directive when the template does not already
// carry them, so the final file location is recoverable deterministically.
func EnsureOutputFlags(argv []string, outputDir string) []string {
	if !hasFlag(argv, "-P", "--paths") {
		argv = append(argv, "-P", outputDir)
	}
	if !hasFlag(argv, "-o", "--output") {
		argv = append(argv, "-o", "%(title)s.%(ext)s")
	}
	if !hasFlag(argv, "--newline") {
		argv = append(argv, "--newline")
	}
	if !hasFlag(argv, "--print") {
		argv = append(argv, "--print", "after_move:"+finalPathMarker+" %(filepath)s")
	}
	return argv
}

// AppendSubtitleFlags requests exactly the selected subtitle languages in a
// single common format
func AppendSubtitleFlags(argv []string, langs domain.StringList) []string {
	return append(argv,
		"--write-subs",
		"--sub-langs", strings.Join(langs, ","),
		"--convert-subs", "srt")
}

func hasFlag(argv []string, names ...string) bool {
	for _, a := range argv {
		for _, n := range names {
			if a == n {
				return true
			}
		}
	}
	return false
}

func augmentedEnv() []string {
	env := os.Environ()
	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			env[i] = kv + string(os.PathListSeparator) + strings.Join(extraPathDirs, string(os.PathListSeparator))
			return env
		}
	}
	return append(env, "PATH="+strings.Join(extraPathDirs, string(os.PathListSeparator)))
}

// scanStream reads one pipe line by line, feeding the shared parser.
// Progress lines are parsed but not logged; everything else goes to the
// download log tagged by task id.
func (r *ProcessRunner) scanStream(pipe io.Reader, parser *outputParser, taskID string, log *os.File, isStderr bool, progress domain.ProgressFunc) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if pct, ok := parser.ParseLine(line, isStderr); ok {
			if progress != nil {
				progress(taskID, pct)
			}
			continue
		}
		if line != "" && log != nil {
			fmt.Fprintf(log, "[%s] %s\n", taskID, line)
		}
	}
}

// outputParser accumulates what the line stream reveals about the download:
// progress, candidate output paths and the last error seen.
type outputParser struct {
	mu           sync.Mutex
	finalPath    string   // from the print directive, highest priority
	mergePath    string   // from the Merging-formats line
	destinations []string // every Destination line, for merge-failure detection
	lastError    string
}

func newOutputParser() *outputParser {
	return &outputParser{}
}

// ParseLine inspects one output line. The bool result reports whether the
// line was a progress line (and should be suppressed from logs); the float
// is the parsed fraction when it was.
func (p *outputParser) ParseLine(line string, isStderr bool) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m := progressRe.FindStringSubmatch(line); m != nil {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return pct / 100.0, true
		}
		return 0, true
	}
	if m := finalPathRe.FindStringSubmatch(line); m != nil {
		p.finalPath = strings.TrimSpace(m[1])
		return 0, false
	}
	if m := destRe.FindStringSubmatch(line); m != nil {
		p.destinations = append(p.destinations, strings.TrimSpace(m[1]))
		return 0, false
	}
	if m := mergeRe.FindStringSubmatch(line); m != nil {
		p.mergePath = strings.TrimSpace(m[1])
		return 0, false
	}
	if isStderr && strings.Contains(line, "ERROR") {
		p.lastError = strings.TrimSpace(line)
	}
	return 0, false
}

func (p *outputParser) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastError
}

func (p *outputParser) snapshot() (finalPath, mergePath string, destinations []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finalPath, p.mergePath, append([]string(nil), p.destinations...)
}

// resolveOutput decides the authoritative output path after a clean exit,
// or detects a failed audio/video merge.
func (r *ProcessRunner) resolveOutput(parser *outputParser, outputDir string) (string, error) {
	finalPath, mergePath, destinations := parser.snapshot()

	// The tool deletes the separate streams after a successful merge, so
	// more than one surviving media destination means the merge never ran.
	// The count is scoped to this task's own reported destinations, so
	// concurrent downloads in the same directory do not cross-contaminate.
	survivors := survivingMediaFiles(destinations, outputDir)
	if len(survivors) > 1 {
		for _, f := range survivors {
			os.Remove(f)
		}
		return "", fmt.Errorf("merging audio and video failed, verify ffmpeg is installed")
	}

	candidates := []string{finalPath, mergePath}
	if len(survivors) == 1 {
		candidates = append(candidates, survivors[0])
	}
	for _, last := range lastDestinations(destinations) {
		candidates = append(candidates, last)
	}
	for _, c := range candidates {
		// Subtitle destinations are reported too but never the download
		if c == "" || isSubtitleFile(c) {
			continue
		}
		abs := c
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(outputDir, abs)
		}
		if fileExists(abs) {
			return abs, nil
		}
	}

	// Structured parsing failed; fall back to the newest media file written
	// to the output directory moments ago.
	if path := findRecentMediaFile(outputDir, time.Now()); path != "" {
		return path, nil
	}
	return "", fmt.Errorf("unable to determine downloaded file path")
}

// survivingMediaFiles returns the distinct non-subtitle media destinations
// that still exist on disk
func survivingMediaFiles(destinations []string, outputDir string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range destinations {
		abs := d
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(outputDir, abs)
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		if isMediaFile(abs) && !isSubtitleFile(abs) && fileExists(abs) {
			out = append(out, abs)
		}
	}
	return out
}

func lastDestinations(destinations []string) []string {
	if len(destinations) == 0 {
		return nil
	}
	// Most recent first
	out := make([]string, 0, len(destinations))
	for i := len(destinations) - 1; i >= 0; i-- {
		out = append(out, destinations[i])
	}
	return out
}

// findRecentMediaFile scans the output directory for the most recently
// modified media file inside the recency window
func findRecentMediaFile(dir string, now time.Time) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTime time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !isMediaFile(path) || isSubtitleFile(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > recentFileWindow {
			continue
		}
		if info.ModTime().After(bestTime) {
			best = path
			bestTime = info.ModTime()
		}
	}
	return best
}

var mediaExts = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".webm": {}, ".mov": {}, ".avi": {}, ".m4v": {},
	".flv": {}, ".m4a": {}, ".mp3": {}, ".opus": {}, ".ogg": {}, ".wav": {},
}

var subtitleExts = map[string]struct{}{
	".srt": {}, ".vtt": {}, ".ass": {}, ".lrc": {},
}

func isMediaFile(path string) bool {
	_, ok := mediaExts[strings.ToLower(filepath.Ext(path))]
	return ok
}

func isSubtitleFile(path string) bool {
	// Subtitle files carry a language tag before the extension
	_, ok := subtitleExts[strings.ToLower(filepath.Ext(path))]
	return ok
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// openLogFile opens the per-day download output log. All forwarded
// subprocess output for the day lands in one file.
func (r *ProcessRunner) openLogFile() (*os.File, error) {
	if err := os.MkdirAll(r.logsDir, 0755); err != nil {
		return nil, err
	}
	dateStr := time.Now().Format("20060102")
	path := filepath.Join(r.logsDir, "download-"+dateStr+".log")
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func (r *ProcessRunner) writeLogHeader(file *os.File, taskID, cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	file.WriteString(fmt.Sprintf("\n=== [%s] Task: %s ===\n", timestamp, taskID))
	file.WriteString(fmt.Sprintf("$ %s\n", cmdLine))
}

func (r *ProcessRunner) writeLogFooter(file *os.File, success bool, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	file.WriteString(fmt.Sprintf("[%s] %s: %s\n", timestamp, status, message))
	file.WriteString("=== END ===\n\n")
}
