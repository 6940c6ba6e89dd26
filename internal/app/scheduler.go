package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/domain"
	"github.com/yourusername/tubequeue/pkg/logger"
)

// Scheduler admits pending tasks into concurrent downloads up to the
// configured limit. The admission loop runs only while there is work: it is
// started by Kick whenever a task becomes pending and exits once a poll
// finds zero pending and zero downloading tasks. Polling with a bounded
// sleep is a deliberate simplification over an event-driven wake-up.
type Scheduler struct {
	tm          *TaskManager
	config      *domain.Config
	multiLogger *logger.MultiLogger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	workerWg sync.WaitGroup
	exitChan chan struct{}
}

// NewScheduler creates a scheduler
func NewScheduler(tm *TaskManager, config *domain.Config, multiLogger *logger.MultiLogger) *Scheduler {
	return &Scheduler{
		tm:          tm,
		config:      config,
		multiLogger: multiLogger,
		exitChan:    make(chan struct{}, 1),
	}
}

// Kick starts the admission loop if it is not already running. Safe to call
// at any time; a running loop absorbs the kick because it re-checks for work
// after every sleep.
func (s *Scheduler) Kick(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	stopChan := s.stopChan
	s.mu.Unlock()

	if s.multiLogger != nil {
		s.multiLogger.LogQueueEvent("scheduler_started")
	}

	s.workerWg.Add(1)
	go s.processQueue(ctx, stopChan)
}

// Stop halts the admission loop if running and waits for it to exit
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ch := s.stopChan
	s.mu.Unlock()

	close(ch)
	s.workerWg.Wait()
}

// IsRunning returns whether the admission loop is active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// WaitForExit returns a channel signaled once per drained queue when
// auto-exit is enabled
func (s *Scheduler) WaitForExit() <-chan struct{} {
	return s.exitChan
}

// processQueue is one run of the admission loop. It polls at the configured
// interval, admits up to the free slots per pass with a small launch stagger
// between consecutive admissions, and exits when a poll finds no work left.
func (s *Scheduler) processQueue(ctx context.Context, stopChan chan struct{}) {
	defer s.workerWg.Done()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.config.Queue.CheckInterval)
	defer ticker.Stop()

	completedBase := s.tm.CompletedTotal()

	for {
		select {
		case <-ctx.Done():
			if s.multiLogger != nil {
				s.multiLogger.LogQueueEvent("scheduler_stopped",
					zap.String("reason", "context_cancelled"))
			}
			return
		case <-stopChan:
			if s.multiLogger != nil {
				s.multiLogger.LogQueueEvent("scheduler_stopped",
					zap.String("reason", "stop_signal"))
			}
			return
		case <-ticker.C:
			pending, downloading := s.tm.Counts()

			if pending == 0 && downloading == 0 {
				// The drain side effects can block (desktop notifier runs a
				// subprocess); a Kick arriving meanwhile sees running==true
				// and is absorbed, so the exit decision must re-check for
				// work under the lock before flipping the flag.
				s.drained(completedBase)
				if s.exitIfIdle() {
					return
				}
				completedBase = s.tm.CompletedTotal()
				continue
			}

			limit := domain.ClampConcurrency(s.config.Download.ConcurrentLimit)
			slots := limit - downloading
			if slots <= 0 {
				continue
			}

			// Admit oldest-first; stagger launches inside a pass so we do
			// not burst requests against the remote service. No delay
			// before the first launch.
			for i := 0; i < slots; i++ {
				if i > 0 && s.config.Download.LaunchDelay > 0 {
					select {
					case <-time.After(s.config.Download.LaunchDelay):
					case <-stopChan:
						return
					case <-ctx.Done():
						return
					}
				}
				if !s.tm.StartNextPending(ctx) {
					break
				}
			}
		}
	}
}

// exitIfIdle clears the running flag and reports true when the queue is
// still empty. Checking the counts while holding s.mu closes the window
// against Kick: a task marked pending before a Kick is either visible to
// this check, or its Kick runs after the flag flip and restarts the loop.
func (s *Scheduler) exitIfIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, downloading := s.tm.Counts()
	if pending > 0 || downloading > 0 {
		return false
	}
	s.running = false
	return true
}

// drained fires the end-of-queue side effects exactly once per full drain
func (s *Scheduler) drained(completedBase int64) {
	completed := s.tm.CompletedTotal() - completedBase
	if s.multiLogger != nil {
		s.multiLogger.LogQueueEvent("queue_drained", zap.Int64("completed", completed))
	}
	if completed > 0 {
		s.tm.NotifyAllCompleted(int(completed))
	}
	if s.config.Queue.AutoExitOnEmpty {
		select {
		case s.exitChan <- struct{}{}:
		default:
		}
	}
}
