// Package scheduler triggers sweeps in-process on a cron schedule, for
// deployments without an external scheduler calling the HTTP endpoint.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"sweeper/internal/cleanup/service"
	"sweeper/pkg/logger"
)

const RequestIDPrefix = "scheduled-"

type Scheduler struct {
	cron     *cron.Cron
	job      *sweepJob
	schedule string
	log      *logger.Logger
}

// New parses a standard five-field cron expression evaluated in UTC. Each run
// is bounded by timeout. Overlapping runs within this process are skipped;
// across processes the sweep lock decides.
func New(schedule string, svc service.SweepService, timeout time.Duration, log *logger.Logger) (*Scheduler, error) {
	cronLog := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	job := &sweepJob{svc: svc, timeout: timeout, log: log}
	if _, err := c.AddJob(schedule, job); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	return &Scheduler{cron: c, job: job, schedule: schedule, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Sweep scheduler started", "schedule", s.schedule, "next_run", s.Next())
}

// Next returns the next planned run, or the zero time when not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop prevents new runs and waits for a running sweep until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("Sweep scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("Sweep scheduler stop timed out, a sweep may still be running")
	}
}

type sweepJob struct {
	svc     service.SweepService
	timeout time.Duration
	log     *logger.Logger
}

func (j *sweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	requestID := RequestIDPrefix + uuid.NewString()
	result, err := j.svc.Run(ctx, requestID)
	if err != nil {
		j.log.Error("Scheduled sweep failed", "request_id", requestID, "error", err)
		return
	}
	j.log.Info("Scheduled sweep finished", "request_id", requestID, "status", result.Status)
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
