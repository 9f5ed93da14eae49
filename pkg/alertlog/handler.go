// Package alertlog forwards slog records to AlertOver as notifications.
//
// The Handler formats each record at or above its level and hands it to a
// sender.Sender on a separate goroutine, so logging never waits for the
// network. Delivery failures go to HandlerOptions.ErrorHandler and are never
// returned to the code that emitted the record.
//
// Records may be delivered out of emission order.
package alertlog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"alertover/pkg/sender"
)

// HandlerOptions configure a Handler. A nil *HandlerOptions uses defaults.
type HandlerOptions struct {
	// Level is the minimum level forwarded. Defaults to slog.LevelError.
	Level slog.Leveler
	// Defaults are applied on top of DefaultFields.
	Defaults []Field
	// RatePerSec caps forwarded records per second; excess records are
	// dropped. Zero disables the cap.
	RatePerSec int
	// Format renders the notification content. The default is the slog
	// text format without the time attribute.
	Format func(r slog.Record) string
	// ErrorHandler receives every *DispatchError. Defaults to writing to stderr.
	ErrorHandler func(err error)
}

// DispatchError reports a forwarded record whose notification failed.
type DispatchError struct {
	Level   slog.Level
	Message string
	Time    time.Time
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("forward %s record %q: %v", e.Level, e.Message, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// state is shared by a Handler and every handler derived from it.
type state struct {
	sender  sender.Sender
	level   slog.Leveler
	format  func(slog.Record) string
	onError func(error)
	limiter *rate.Limiter

	mu       sync.RWMutex
	defaults Fields

	inflight *inflight
}

// inflight counts running dispatches. Unlike a WaitGroup it may be waited
// on while new dispatches are still being added.
type inflight struct {
	mu sync.Mutex
	n  int
	// idle is closed whenever n == 0.
	idle chan struct{}
}

func newInflight() *inflight {
	idle := make(chan struct{})
	close(idle)
	return &inflight{idle: idle}
}

func (f *inflight) add() {
	f.mu.Lock()
	if f.n == 0 {
		f.idle = make(chan struct{})
	}
	f.n++
	f.mu.Unlock()
}

func (f *inflight) done() {
	f.mu.Lock()
	f.n--
	if f.n == 0 {
		close(f.idle)
	}
	f.mu.Unlock()
}

func (f *inflight) idleCh() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle
}

// Handler is a slog.Handler that turns records into notifications.
type Handler struct {
	st *state
	// ops replay WithAttrs/WithGroup on the content formatter.
	ops    []func(slog.Handler) slog.Handler
	fields []Field
}

func NewHandler(s sender.Sender, opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	st := &state{
		sender:   s,
		level:    opts.Level,
		format:   opts.Format,
		onError:  opts.ErrorHandler,
		defaults: DefaultFields().apply(opts.Defaults...),
		inflight: newInflight(),
	}
	if st.level == nil {
		st.level = slog.LevelError
	}
	if st.onError == nil {
		st.onError = stderrErrorHandler(os.Stderr)
	}
	if opts.RatePerSec > 0 {
		st.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.RatePerSec)
	}
	return &Handler{st: st}
}

// NewHandlerFromConfig builds an AlertOver sender from cfg and wraps it.
// Forwarded records use the same retry policy as direct sends.
func NewHandlerFromConfig(cfg sender.Config, opts *HandlerOptions) (*Handler, error) {
	s, err := sender.NewAlertOverSender(cfg)
	if err != nil {
		return nil, fmt.Errorf("create alertover sender: %w", err)
	}
	return NewHandler(s, opts), nil
}

// SetDefaults merges fields into the default attributes.
func (h *Handler) SetDefaults(fields ...Field) {
	h.st.mu.Lock()
	h.st.defaults = h.st.defaults.apply(fields...)
	h.st.mu.Unlock()
}

// Defaults returns the current default attributes.
func (h *Handler) Defaults() Fields {
	h.st.mu.RLock()
	defer h.st.mu.RUnlock()
	return h.st.defaults
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.st.level.Level()
}

// Handle dispatches the notification and returns without waiting for it.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !h.Enabled(ctx, r.Level) {
		return nil
	}
	if h.st.limiter != nil && !h.st.limiter.Allow() {
		return nil
	}
	h.dispatch(ctx, r, h.message(ctx, r))
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	plain := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if o, ok := overridesOf(a); ok {
			h2.fields = append(h2.fields, o...)
			continue
		}
		// Overrides nested in a group apply too; contentAttr hides them.
		h2.fields = append(h2.fields, overridesIn(a)...)
		plain = append(plain, a)
	}
	if len(plain) > 0 {
		h2.ops = append(h2.ops, func(fh slog.Handler) slog.Handler { return fh.WithAttrs(plain) })
	}
	return h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.ops = append(h2.ops, func(fh slog.Handler) slog.Handler { return fh.WithGroup(name) })
	return h2
}

// Wait blocks until no notification is in flight or ctx is done.
// It is safe to call while records are still being logged; a record
// dispatched before the in-flight count drops to zero extends the wait.
func (h *Handler) Wait(ctx context.Context) error {
	select {
	case <-h.st.inflight.idleCh():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) clone() *Handler {
	return &Handler{
		st:     h.st,
		ops:    append([]func(slog.Handler) slog.Handler(nil), h.ops...),
		fields: append([]Field(nil), h.fields...),
	}
}

// message resolves fields: record override, then handler override, then defaults.
func (h *Handler) message(ctx context.Context, r slog.Record) sender.Message {
	f := h.Defaults().apply(h.fields...)
	r.Attrs(func(a slog.Attr) bool {
		f = f.apply(overridesIn(a)...)
		return true
	})
	return sender.Message{
		Title:   f.Title,
		Urgent:  f.Urgent,
		Sound:   f.Sound,
		URL:     f.URL,
		Content: h.format(ctx, r),
	}
}

func (h *Handler) format(ctx context.Context, r slog.Record) string {
	if h.st.format != nil {
		return h.st.format(r)
	}
	var buf bytes.Buffer
	var fh slog.Handler = slog.NewTextHandler(&buf, &slog.HandlerOptions{ReplaceAttr: contentAttr})
	for _, op := range h.ops {
		fh = op(fh)
	}
	_ = fh.Handle(ctx, r)
	return strings.TrimSuffix(buf.String(), "\n")
}

// contentAttr drops the timestamp and override attributes from content.
func contentAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	if _, ok := overridesOf(a); ok {
		return slog.Attr{}
	}
	return a
}

func (h *Handler) dispatch(ctx context.Context, r slog.Record, msg sender.Message) {
	st := h.st
	// The notification outlives the logging call.
	sendCtx := context.WithoutCancel(ctx)
	level, text, at := r.Level, r.Message, r.Time

	st.inflight.add()
	go func() {
		defer st.inflight.done()
		defer func() {
			if p := recover(); p != nil {
				st.onError(&DispatchError{Level: level, Message: text, Time: at, Err: fmt.Errorf("panic: %v", p)})
			}
		}()
		if err := st.sender.Send(sendCtx, msg); err != nil {
			st.onError(&DispatchError{Level: level, Message: text, Time: at, Err: err})
		}
	}()
}

func stderrErrorHandler(w io.Writer) func(error) {
	var mu sync.Mutex
	return func(err error) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(w, "--- alertlog error ---\n%v\n", err)
	}
}
