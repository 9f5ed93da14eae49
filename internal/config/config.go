// Package config loads daemon settings from the environment.
package config

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"alertover/pkg/sender"
)

type Config struct {
	Env string `env:"ENV" envDefault:"local"`

	AlertOver AlertOver `envPrefix:"ALERTOVER_"`
	AlertLog  AlertLog  `envPrefix:"ALERTLOG_"`
	Heartbeat Heartbeat `envPrefix:"HEARTBEAT_"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type AlertOver struct {
	Source         string        `env:"SOURCE,required"`
	Receiver       string        `env:"RECEIVER,required"`
	Endpoint       string        `env:"ENDPOINT" envDefault:"https://api.alertover.com/v1/alert"`
	AutoRetry      bool          `env:"AUTO_RETRY" envDefault:"true"`
	MaxRetry       int           `env:"MAX_RETRY" envDefault:"3"`
	RetryBase      time.Duration `env:"RETRY_BASE" envDefault:"5s"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	SuppressErrors bool          `env:"SUPPRESS_ERRORS"`
}

// AlertLog controls which log records are forwarded as notifications.
type AlertLog struct {
	Enabled    bool   `env:"ENABLED" envDefault:"true"`
	MinLevel   string `env:"MIN_LEVEL" envDefault:"ERROR"`
	Title      string `env:"TITLE" envDefault:"AlertOver"`
	Urgent     bool   `env:"URGENT"`
	Sound      string `env:"SOUND" envDefault:"default"`
	URL        string `env:"URL"`
	RatePerSec int    `env:"RATE_PER_SEC"`
}

type Heartbeat struct {
	Enabled  bool   `env:"ENABLED" envDefault:"true"`
	Schedule string `env:"SCHEDULE" envDefault:"@every 1h"`
	Title    string `env:"TITLE" envDefault:"heartbeat"`
	Content  string `env:"CONTENT" envDefault:"alive"`
	Sound    string `env:"SOUND" envDefault:"silent"`
}

func MustLoad() *Config {
	cfg, err := Load(nil)
	if err != nil {
		log.Fatalf("read env config: %v", err)
	}
	return cfg
}

// Load parses the configuration. A nil environment means os.Environ.
func Load(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := ParseLevel(cfg.AlertLog.MinLevel); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SenderConfig maps the AlertOver section onto a sender configuration.
func (c *Config) SenderConfig(logger *slog.Logger) sender.Config {
	return sender.Config{
		Source:         c.AlertOver.Source,
		Receiver:       c.AlertOver.Receiver,
		AutoRetry:      c.AlertOver.AutoRetry,
		MaxRetry:       c.AlertOver.MaxRetry,
		RetryBase:      c.AlertOver.RetryBase,
		Endpoint:       c.AlertOver.Endpoint,
		Transport:      sender.TransportOptions{Timeout: c.AlertOver.HTTPTimeout},
		Logger:         logger,
		SuppressErrors: c.AlertOver.SuppressErrors,
	}
}

// ParseLevel accepts DEBUG, INFO, WARN/WARNING and ERROR in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
