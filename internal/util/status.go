package util

import (
	"context"
	"time"

	"github.com/pterm/pterm"
)

// StartStatusReporter launches a goroutine that logs snapshot() every
// interval, skipping lines identical to the previous one. It stops when ctx
// is cancelled.
func StartStatusReporter(ctx context.Context, interval time.Duration, snapshot func() string) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var prev string
		for {
			select {
			case <-ticker.C:
				line := snapshot()
				if line == prev {
					continue
				}
				pterm.DefaultLogger.Info(line)
				prev = line

			case <-ctx.Done():
				return
			}
		}
	}()
}
