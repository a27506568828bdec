package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// CleanupTask is one periodic housekeeping job. Run returns how many items it removed.
type CleanupTask struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// CleanupManager periodically runs housekeeping tasks such as purging expired
// revoked tokens and dropping abandoned consoles.
type CleanupManager struct {
	clock    quartz.Clock
	logger   *slog.Logger
	interval time.Duration
	tasks    []CleanupTask
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewCleanupManager(clock quartz.Clock, logger *slog.Logger, interval time.Duration, tasks ...CleanupTask) *CleanupManager {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &CleanupManager{
		clock:    clock,
		logger:   logger,
		interval: interval,
		tasks:    tasks,
		stopCh:   make(chan struct{}),
	}
}

// Start runs every task immediately and then once per interval until Stop
// is called or ctx is cancelled. It blocks.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := cm.clock.NewTicker(cm.interval, "cleanup")
	defer ticker.Stop()

	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce executes every task; a failing task does not stop the others.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	for _, task := range cm.tasks {
		cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		removed, err := task.Run(cleanupCtx)
		cancel()

		if err != nil {
			cm.logger.Error("cleanup task failed", slog.String("task", task.Name), slog.Any("error", err))
			continue
		}
		if removed > 0 {
			cm.logger.Info("cleanup task completed", slog.String("task", task.Name), slog.Int64("removed", removed))
		}
	}
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
