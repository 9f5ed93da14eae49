// Package app wires application components together and manages lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"alertover/internal/config"
	"alertover/internal/heartbeat"
	"alertover/pkg/alertlog"
	"alertover/pkg/logger"
	"alertover/pkg/sender"
)

// App holds initialized dependencies and running services.
type App struct {
	log       *slog.Logger
	alerts    *alertlog.Handler
	heartbeat *heartbeat.Service
}

// New builds the sender, the alert log handler, the process logger and the
// heartbeat service from cfg.
func New(cfg *config.Config) (*App, error) {
	// The sender logs through a logger without the alert handler so that a
	// broken channel does not forward its own failures.
	plain := logger.SetupLogger(cfg.Env)

	sdr, err := sender.NewAlertOverSender(cfg.SenderConfig(plain.With("comp", "sender")))
	if err != nil {
		return nil, fmt.Errorf("create alertover sender: %w", err)
	}

	a := &App{log: plain}

	if cfg.AlertLog.Enabled {
		level, err := config.ParseLevel(cfg.AlertLog.MinLevel)
		if err != nil {
			return nil, err
		}
		a.alerts = alertlog.NewHandler(sdr, &alertlog.HandlerOptions{
			Level:      level,
			RatePerSec: cfg.AlertLog.RatePerSec,
			Defaults: []alertlog.Field{
				alertlog.Title(cfg.AlertLog.Title),
				alertlog.Urgent(cfg.AlertLog.Urgent),
				alertlog.WithSound(sender.Sound(cfg.AlertLog.Sound)),
				alertlog.URL(cfg.AlertLog.URL),
			},
		})
		a.log = slog.New(logger.Fanout(plain.Handler(), a.alerts))
	}

	if cfg.Heartbeat.Enabled {
		msg := sender.Message{
			Title:   cfg.Heartbeat.Title,
			Content: cfg.Heartbeat.Content,
			Sound:   sender.Sound(cfg.Heartbeat.Sound),
		}
		hb, err := heartbeat.New(cfg.Heartbeat.Schedule, sdr, msg, a.log.With("comp", "heartbeat"))
		if err != nil {
			return nil, err
		}
		a.heartbeat = hb
	}

	return a, nil
}

// Logger returns the process logger; records at or above the alert level
// are forwarded as notifications.
func (a *App) Logger() *slog.Logger { return a.log }

// Run starts background services. It returns immediately.
func (a *App) Run() error {
	if a.heartbeat == nil {
		a.log.Warn("heartbeat disabled; only forwarded log records will be sent")
		return nil
	}
	return a.heartbeat.Start()
}

// Shutdown stops the heartbeat and waits for in-flight notifications.
func (a *App) Shutdown(timeout time.Duration) {
	if a.heartbeat != nil {
		if err := a.heartbeat.Shutdown(timeout); err != nil {
			a.log.Error("shutdown error", "error", err)
		}
	}
	if a.alerts != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.alerts.Wait(ctx); err != nil {
			a.log.Warn("pending notifications abandoned", "error", err)
		}
	}
}
