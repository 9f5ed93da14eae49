package heartbeat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"alertover/pkg/sender"
)

type mockSender struct {
	mu   sync.Mutex
	sent []sender.Message
	err  error
}

func (m *mockSender) Send(ctx context.Context, msg sender.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type levelCounter struct {
	mu     sync.Mutex
	levels map[slog.Level]int
}

func (c *levelCounter) Enabled(context.Context, slog.Level) bool { return true }
func (c *levelCounter) Handle(_ context.Context, r slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.levels == nil {
		c.levels = map[slog.Level]int{}
	}
	c.levels[r.Level]++
	return nil
}
func (c *levelCounter) WithAttrs([]slog.Attr) slog.Handler { return c }
func (c *levelCounter) WithGroup(string) slog.Handler      { return c }

func TestNew(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sdr := &mockSender{}

	t.Run("descriptor", func(t *testing.T) {
		s, err := New("@every 1h", sdr, sender.Message{}, log)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next := time.Until(s.Next()); next <= 59*time.Minute || next > time.Hour {
			t.Errorf("unexpected next run in %v", next)
		}
	})

	t.Run("standard spec", func(t *testing.T) {
		if _, err := New("*/5 * * * *", sdr, sender.Message{}, log); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("invalid spec", func(t *testing.T) {
		if _, err := New("invalid", sdr, sender.Message{}, log); err == nil {
			t.Error("expected error for invalid spec")
		}
	})
}

func TestService_Run(t *testing.T) {
	msg := sender.Message{Title: "heartbeat", Content: "alive", Sound: sender.SoundSilent}

	t.Run("sends configured message", func(t *testing.T) {
		sdr := &mockSender{}
		s, err := New("@every 1h", sdr, msg, slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s.run()

		if sdr.count() != 1 {
			t.Fatalf("expected 1 send, got %d", sdr.count())
		}
		if sdr.sent[0] != msg {
			t.Errorf("unexpected message: %+v", sdr.sent[0])
		}
	})

	t.Run("failure is logged as error", func(t *testing.T) {
		counter := &levelCounter{}
		sdr := &mockSender{err: errors.New("network error")}
		s, err := New("@every 1h", sdr, msg, slog.New(counter))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s.run()

		if counter.levels[slog.LevelError] != 1 {
			t.Errorf("expected 1 error log, got %d", counter.levels[slog.LevelError])
		}
	})
}

func TestService_StartShutdown(t *testing.T) {
	sdr := &mockSender{}
	s, err := New("@every 1s", sdr, sender.Message{Title: "hb"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for sdr.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if sdr.count() == 0 {
		t.Error("expected at least one heartbeat")
	}

	if err := s.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
	if err := s.Shutdown(time.Second); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}
