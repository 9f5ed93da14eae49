// Package heartbeat periodically sends a fixed notification so receivers
// can tell the daemon and the notification channel are alive.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"alertover/pkg/sender"
)

var (
	ErrAlreadyRunning = errors.New("heartbeat service already running")
	ErrNotRunning     = errors.New("heartbeat service not running")
	ErrStopped        = errors.New("heartbeat service stopped")
)

type Service struct {
	schedule cron.Schedule
	sender   sender.Sender
	msg      sender.Message
	logger   *slog.Logger

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
}

// New parses spec (standard 5-field cron or a descriptor such as
// "@every 1h") and prepares a service that sends msg on that schedule.
func New(spec string, s sender.Sender, msg sender.Message, logger *slog.Logger) (*Service, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid heartbeat schedule %q: %w", spec, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		schedule: schedule,
		sender:   s,
		msg:      msg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		// Runs never overlap: a heartbeat still retrying skips the next tick.
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	svc.cron.Schedule(schedule, cron.FuncJob(svc.run))
	return svc, nil
}

// Start begins the schedule and returns immediately.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	if s.ctx.Err() != nil {
		return ErrStopped
	}
	s.running = true
	s.cron.Start()

	s.logger.Info("heartbeat service started", "next", s.Next().Format(time.RFC3339))
	return nil
}

// Next returns the next scheduled run after now.
func (s *Service) Next() time.Time {
	return s.schedule.Next(time.Now())
}

// Shutdown stops scheduling, cancels in-flight sends and waits up to timeout
// for the running heartbeat to return.
func (s *Service) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		s.logger.Info("heartbeat service stopped")
		return nil
	case <-time.After(timeout):
		return errors.New("shutdown timeout: heartbeat did not finish")
	}
}

func (s *Service) run() {
	defer s.handlePanic()

	taskLogger := s.logger.With("task_id", uuid.NewString())
	start := time.Now()

	if err := s.sender.Send(s.ctx, s.msg); err != nil {
		if s.ctx.Err() != nil {
			taskLogger.Warn("heartbeat cancelled due to shutdown", "reason", s.ctx.Err())
			return
		}
		taskLogger.Error("failed to send heartbeat", "error", err, "send_dur", time.Since(start))
		return
	}

	taskLogger.Debug("heartbeat sent", "send_dur", time.Since(start))
}

func (s *Service) handlePanic() {
	if r := recover(); r != nil {
		s.logger.Error("panic recovered in heartbeat", "panic", r)
	}
}
