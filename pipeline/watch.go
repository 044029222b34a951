package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// fatalPoll bounds how long a recorded reinitialization failure can go
// unnoticed, independent of the logging interval.
const fatalPoll = 250 * time.Millisecond

// Watch samples p until ctx is done. Every interval it logs one line per
// channel whose failure counter moved; an interval of zero disables those
// lines. When the buffer-size handler has recorded a failure, onFatal is
// called once with it and Watch returns.
func Watch(ctx context.Context, p *Processor, interval time.Duration, logger *slog.Logger, onFatal func(error)) {
	poll := fatalPoll
	if interval > 0 && interval < poll {
		poll = interval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	last := p.Snapshot()
	lastLog := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := p.InitErr(); err != nil {
				logger.Error("reinitialization failed, stopping", "error", err)
				if onFatal != nil {
					onFatal(err)
				}
				return
			}
			if interval <= 0 || now.Sub(lastLog) < interval {
				continue
			}
			lastLog = now

			cur := p.Snapshot()
			for i, n := range cur.Failures {
				if delta := n - last.Failures[i]; delta > 0 {
					logger.Warn("process errors",
						"channel", i+1,
						"count", delta,
						"total", n,
						"block_size", cur.BlockSize)
				}
			}
			if cur.Reinits != last.Reinits {
				logger.Info("block size changed", "block_size", cur.BlockSize, "reinits", cur.Reinits)
			}
			last = cur
		}
	}
}
