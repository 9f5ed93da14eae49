package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"alertover/internal/app"
	"alertover/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to create app", "error", err)
		os.Exit(1)
	}
	log := a.Logger()

	log.Info("start alertover daemon", slog.String("version", "0.1.0"))

	if err := a.Run(); err != nil {
		log.Error("failed to start heartbeat", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("received signal", "signal", sig)

	a.Shutdown(cfg.ShutdownTimeout)

	log.Info("alertover daemon stop")
}
