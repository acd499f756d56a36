package manager

import (
	"context"
	"time"

	"todo-list/internal/logger"
)

// Run вызывает Advance по таймеру, пока не отменён ctx.
// Нужен поверхностям без собственного цикла кадров (HTTP, Telegram).
func (tm *TaskManager) Run(ctx context.Context, interval time.Duration) {
	if tm.timeline == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := tm.Advance(now); len(removed) > 0 {
				logger.Debug(ctx, "Задачи удалены после анимации", "ids", removed)
			}
		}
	}
}
