package cronrunner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner wraps robfig/cron with a shared base context and panic isolation.
// A refresh job that panics must not take down the scheduler goroutine, and
// jobs stop being useful once shutdown begins, so every job receives the
// process context.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

// New creates a runner with second-granularity specs, evaluated in UTC.
func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		defer func() {
			if rec := recover(); rec != nil && r.logger != nil {
				r.logger.Error("cron job panicked",
					zap.String("spec", spec),
					zap.Any("panic", rec))
			}
		}()
		if r.baseCtx.Err() != nil {
			return
		}
		started := time.Now()
		job(r.baseCtx)
		if r.logger != nil {
			r.logger.Debug("cron job finished",
				zap.String("spec", spec),
				zap.Duration("took", time.Since(started)))
		}
	})
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started")
	}
	r.cron.Start()
}

// Stop blocks until running jobs drain.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
