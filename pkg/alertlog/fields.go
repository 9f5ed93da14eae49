package alertlog

import (
	"log/slog"

	"alertover/pkg/sender"
)

// OverrideKey is the attribute key used by Override.
const OverrideKey = "alertover"

// Fields are the notification attributes resolved for every forwarded record.
type Fields struct {
	Title  string
	Urgent bool
	Sound  sender.Sound
	URL    string
}

// DefaultFields returns the built-in defaults.
func DefaultFields() Fields {
	return Fields{
		Title: "AlertOver",
		Sound: sender.SoundDefault,
	}
}

// Field changes one notification attribute. Fields not named by any
// Field keep their previous value.
type Field func(*Fields)

func Title(title string) Field { return func(f *Fields) { f.Title = title } }

func Urgent(urgent bool) Field { return func(f *Fields) { f.Urgent = urgent } }

func WithSound(sound sender.Sound) Field { return func(f *Fields) { f.Sound = sound } }

func URL(url string) Field { return func(f *Fields) { f.URL = url } }

func (f Fields) apply(fields ...Field) Fields {
	for _, fn := range fields {
		if fn != nil {
			fn(&f)
		}
	}
	return f
}

type overrides []Field

// Override returns an attribute that overrides notification fields for a
// single record, or for every record of a logger built with With:
//
//	log.Error("disk full", alertlog.Override(alertlog.Urgent(true), alertlog.Title("db-1")))
//
// The attribute is not part of the formatted content.
func Override(fields ...Field) slog.Attr {
	return slog.Any(OverrideKey, overrides(fields))
}

func overridesOf(a slog.Attr) (overrides, bool) {
	if a.Value.Kind() != slog.KindAny {
		return nil, false
	}
	o, ok := a.Value.Any().(overrides)
	return o, ok
}

// overridesIn returns the override fields carried by a, searching groups
// depth first.
func overridesIn(a slog.Attr) []Field {
	a.Value = a.Value.Resolve()
	if o, ok := overridesOf(a); ok {
		return o
	}
	if a.Value.Kind() != slog.KindGroup {
		return nil
	}
	var out []Field
	for _, ga := range a.Value.Group() {
		out = append(out, overridesIn(ga)...)
	}
	return out
}
