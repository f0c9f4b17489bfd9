package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is a recurring background task. A failed run is logged and the next
// tick tries again; errors never stop the loop.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Runner drives jobs on independent tickers until the context is canceled.
type Runner struct {
	Logger *slog.Logger

	wg sync.WaitGroup
}

func (r *Runner) Start(ctx context.Context, jobs ...Job) {
	for _, job := range jobs {
		if job.Run == nil || job.Every <= 0 {
			continue
		}
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
}

// Wait blocks until all job loops have exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()
	ticker := time.NewTicker(job.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := job.Run(ctx); err != nil {
				if r.Logger != nil {
					r.Logger.Error("scheduled job failed", "job", job.Name, "error", err)
				}
				continue
			}
			if r.Logger != nil {
				r.Logger.Debug("scheduled job finished", "job", job.Name, "duration", time.Since(start))
			}
		}
	}
}
