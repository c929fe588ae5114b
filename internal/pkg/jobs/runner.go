package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yigit/scribelink/internal/pkg/observability"
)

// Job is one tick of a periodic task.
type Job func(ctx context.Context) error

// Runner runs periodic jobs until its context is cancelled.
type Runner struct {
	ctx context.Context
	wg  sync.WaitGroup
}

func New(ctx context.Context) *Runner { return &Runner{ctx: ctx} }

// Every runs fn on each tick of interval. The first run happens one interval
// after the call. Panics inside fn are reported and do not stop the loop.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.runOnce(name, fn)
			}
		}
	}()
}

func (r *Runner) runOnce(name string, fn Job) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			jobErrors.WithLabelValues(name).Inc()
			observability.CaptureErr(fmt.Errorf("panic in job %s: %v", name, rec))
		}
		jobRuns.WithLabelValues(name).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()
	if err := fn(r.ctx); err != nil {
		jobErrors.WithLabelValues(name).Inc()
	}
}

// Wait blocks until every loop started by Every has returned.
func (r *Runner) Wait() { r.wg.Wait() }
