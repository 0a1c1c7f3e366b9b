package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Scheduler drives the periodic pipeline kinds in daemon mode. Each
// entry is fire-and-forget: overlap protection lives in the
// execution guard, not here, so a slow run simply makes the next
// tick observe Busy.
type Scheduler struct {
	cron    *cron.Cron
	logger  Logger
	baseCtx context.Context
}

func New(logger Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: context.Background(),
	}
}

func (s *Scheduler) AddJob(name, spec string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(s.baseCtx); err != nil {
			s.logger.Warnf("Scheduled %s run finished with error: %v", name, err)
		}
	})
	return err
}

// Start begins scheduling. In-flight jobs run under ctx, so
// cancelling it interrupts a tick instead of waiting out its stage
// timeouts.
func (s *Scheduler) Start(ctx context.Context) {
	s.baseCtx = ctx
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
