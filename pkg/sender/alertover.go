package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultEndpoint  = "https://api.alertover.com/v1/alert"
	DefaultRetryBase = 5 * time.Second

	// defaultMaxRetry applies when auto retry is on and MaxRetry <= 0.
	defaultMaxRetry = 3
	// maxDrainBytes bounds how much of a response body is read before close.
	maxDrainBytes = 64 << 10
)

// TransportOptions tune the HTTP session created for every Send call.
type TransportOptions struct {
	// Timeout bounds one attempt. Zero means no client-side timeout.
	Timeout time.Duration
	// Header is added to every request.
	Header http.Header
	// RoundTripper replaces the cloned default transport when set.
	RoundTripper http.RoundTripper
}

// Config holds connection settings of an AlertOverSender.
type Config struct {
	Source   string
	Receiver string

	AutoRetry bool
	MaxRetry  int
	// RetryBase is the wait before the second attempt; each later wait doubles.
	RetryBase time.Duration

	Endpoint  string
	Transport TransportOptions

	// Logger, when set, receives one error record per failed Send.
	Logger *slog.Logger
	// SuppressErrors makes Send return nil after logging a delivery failure.
	SuppressErrors bool
}

// AlertOverSender posts notifications to the AlertOver API.
// It is safe for concurrent use: sends share only the read-only config.
type AlertOverSender struct {
	cfg Config
}

func NewAlertOverSender(cfg Config) (*AlertOverSender, error) {
	if strings.TrimSpace(cfg.Source) == "" || strings.TrimSpace(cfg.Receiver) == "" {
		return nil, ErrMissingIdentity
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = DefaultRetryBase
	}
	if cfg.Transport.Header != nil {
		cfg.Transport.Header = cfg.Transport.Header.Clone()
	}
	return &AlertOverSender{cfg: cfg}, nil
}

// Attempts returns how many HTTP attempts a single Send may make.
func (s *AlertOverSender) Attempts() int {
	if !s.cfg.AutoRetry {
		return 1
	}
	if s.cfg.MaxRetry <= 0 {
		return defaultMaxRetry
	}
	return s.cfg.MaxRetry
}

// Send delivers msg, retrying with exponential backoff when auto retry is on.
// On failure it returns a *DeliveryError wrapping the last attempt's error,
// unless SuppressErrors is set.
func (s *AlertOverSender) Send(ctx context.Context, msg Message) error {
	err := s.deliver(ctx, NewRequest(s.cfg.Source, s.cfg.Receiver, msg))
	if err == nil {
		return nil
	}
	if s.cfg.Logger != nil {
		s.cfg.Logger.Error("failed to send notification", "error", err, "title", msg.Title)
	}
	if s.cfg.SuppressErrors {
		return nil
	}
	return err
}

func (s *AlertOverSender) deliver(ctx context.Context, req Request) error {
	session, release := s.newSession()
	defer release()

	attempts := s.Attempts()
	attempt := 0
	var lastErr error

	err := retry.Do(ctx, newBackoff(s.cfg.RetryBase, attempts), func(ctx context.Context) error {
		attempt++
		if err := s.post(ctx, session, req, attempt); err != nil {
			lastErr = err
			if s.cfg.Logger != nil {
				s.cfg.Logger.Debug("notification attempt failed", "error", err, "attempt", attempt, "max", attempts)
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &DeliveryError{Attempts: attempt, Err: errors.Join(ctxErr, lastErr)}
	}
	if lastErr == nil {
		lastErr = err
	}
	return &DeliveryError{Attempts: attempt, Err: lastErr}
}

// newSession returns a client for one Send. When no RoundTripper is
// configured the client gets its own connection pool, which release closes.
// A caller-supplied RoundTripper is left untouched.
func (s *AlertOverSender) newSession() (*http.Client, func()) {
	client := &http.Client{
		Timeout:   s.cfg.Transport.Timeout,
		Transport: s.cfg.Transport.RoundTripper,
	}
	if client.Transport != nil {
		return client, func() {}
	}
	t, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return client, func() {}
	}
	pool := t.Clone()
	client.Transport = pool
	return client, pool.CloseIdleConnections
}

func (s *AlertOverSender) post(ctx context.Context, client *http.Client, req Request, attempt int) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, strings.NewReader(req.Form().Encode()))
	if err != nil {
		return &TransportError{Attempt: attempt, Err: fmt.Errorf("create request: %w", err)}
	}
	for k, vs := range s.cfg.Transport.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(httpReq)
	if err != nil {
		return &TransportError{Attempt: attempt, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{
			Attempt:    attempt,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %q", resp.Status),
		}
	}
	return nil
}

// newBackoff waits base, 2*base, 4*base ... between attempts and stops
// after attempts-1 waits.
func newBackoff(base time.Duration, attempts int) retry.Backoff {
	retries := 0
	if attempts > 1 {
		retries = attempts - 1
	}
	return retry.WithMaxRetries(uint64(retries), retry.NewExponential(base))
}

// Option adjusts the Config used by the package-level Send.
type Option func(*Config)

func WithAutoRetry(maxRetry int) Option {
	return func(c *Config) {
		c.AutoRetry = true
		c.MaxRetry = maxRetry
	}
}

func WithRetryBase(base time.Duration) Option {
	return func(c *Config) { c.RetryBase = base }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

func WithSuppressErrors() Option {
	return func(c *Config) { c.SuppressErrors = true }
}

func WithEndpoint(endpoint string) Option {
	return func(c *Config) { c.Endpoint = endpoint }
}

func WithTransport(opts TransportOptions) Option {
	return func(c *Config) { c.Transport = opts }
}

// Send is a one-shot helper that builds a sender for source/receiver and
// delivers msg with it.
func Send(ctx context.Context, source, receiver string, msg Message, opts ...Option) error {
	cfg := Config{Source: source, Receiver: receiver}
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := NewAlertOverSender(cfg)
	if err != nil {
		return err
	}
	return s.Send(ctx, msg)
}
