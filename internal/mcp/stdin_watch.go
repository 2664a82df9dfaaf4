package mcp

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// ParentPollInterval is how often WatchStdin checks the parent process.
var ParentPollInterval = 2 * time.Second

// WatchStdin calls cancelFn once the parent process that launched the stdio
// server goes away, so an editor restart does not leave cukerail serve
// processes behind. It never reads stdin: the stdio transport owns it.
//
// The goroutine exits when ctx is canceled or parent death is detected.
func WatchStdin(ctx context.Context, logger *slog.Logger, cancelFn context.CancelFunc) {
	if logger == nil {
		logger = slog.Default()
	}
	ppid := os.Getppid()
	interval := ParentPollInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if os.Getppid() != ppid {
					logger.Warn("parent process exited, shutting down", slog.Int("ppid", ppid))
					cancelFn()
					return
				}
			}
		}
	}()
}
