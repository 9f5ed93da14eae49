package app

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"alertover/internal/config"
)

func TestApp_ForwardsErrorLogs(t *testing.T) {
	var (
		mu     sync.Mutex
		titles []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		titles = append(titles, r.PostForm.Get("title"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg, err := config.Load(map[string]string{
		"ENV":                "test",
		"ALERTOVER_SOURCE":   "s1",
		"ALERTOVER_RECEIVER": "r1",
		"ALERTOVER_ENDPOINT": server.URL,
		"ALERTLOG_TITLE":     "daemon",
		"HEARTBEAT_ENABLED":  "false",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.Logger().Info("not forwarded")
	a.Logger().Error("forwarded")
	a.Shutdown(5 * time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(titles) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(titles))
	}
	if titles[0] != "daemon" {
		t.Errorf("expected title daemon, got %q", titles[0])
	}
}

func TestNew_InvalidSchedule(t *testing.T) {
	cfg, err := config.Load(map[string]string{
		"ALERTOVER_SOURCE":   "s1",
		"ALERTOVER_RECEIVER": "r1",
		"HEARTBEAT_SCHEDULE": "whenever",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := New(cfg); err == nil {
		t.Error("expected error for invalid heartbeat schedule")
	}
}
