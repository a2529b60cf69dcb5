package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs named tasks on cron expressions.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler builds a scheduler. Expressions use the standard five field format.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a task. An empty expression disables the task and is not an error.
func (s *Scheduler) Register(name, expr string, task func(context.Context) error) error {
	if expr == "" {
		s.logger.Info("scheduled task disabled", zap.String("task", name))
		return nil
	}
	_, err := s.cron.AddFunc(expr, func() {
		if err := task(s.ctx); err != nil {
			s.logger.Error("scheduled task failed", zap.String("task", name), zap.Error(err))
			return
		}
		s.logger.Info("scheduled task finished", zap.String("task", name))
	})
	if err != nil {
		return fmt.Errorf("register %s with %q: %w", name, expr, err)
	}
	s.logger.Info("scheduled task registered", zap.String("task", name), zap.String("expr", expr))
	return nil
}

// Entries reports how many tasks are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}
