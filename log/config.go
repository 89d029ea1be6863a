package log

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"time"
)

// Level is the severity of a log message. It extends the [slog.Level] scale
// with [LevelTrace] below debug.
type Level slog.Level

const (
	LevelTrace = Level(slog.LevelDebug - 4)
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// DefaultLevel is the level of a new [Logger].
const DefaultLevel = LevelInfo

var levelNames = []struct {
	level Level
	name  string
}{
	{LevelTrace, "trace"},
	{LevelDebug, "debug"},
	{LevelInfo, "info"},
	{LevelWarn, "warn"},
	{LevelError, "error"},
}

// String returns the lower-case level name. Levels between the named ones
// are rendered relative to the nearest named level below, as in "info+2".
func (l Level) String() string {
	name, base := levelNames[0].name, levelNames[0].level

	for _, n := range levelNames {
		if l >= n.level {
			name, base = n.name, n.level
		}
	}

	if l == base {
		return name
	}

	return fmt.Sprintf("%s%+d", name, int(l-base))
}

// MarshalText implements [encoding.TextMarshaler].
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText implements [encoding.TextUnmarshaler].
func (l *Level) UnmarshalText(text []byte) error {
	lv, ok := lookupLevel(string(text))
	if !ok {
		return fmt.Errorf("unknown log level %q", text)
	}

	*l = lv

	return nil
}

// Levels returns the names of the defined levels, from least to most
// severe.
func Levels() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, n := range levelNames {
			if !yield(n.name) {
				return
			}
		}
	}
}

// ParseLevel returns the level named by s in any letter case, optionally
// followed by a signed offset as accepted by [slog.Level.UnmarshalText].
// Unknown names yield [DefaultLevel].
func ParseLevel(s string) Level {
	if l, ok := lookupLevel(s); ok {
		return l
	}

	return DefaultLevel
}

func lookupLevel(s string) (Level, bool) {
	s = strings.TrimSpace(s)

	// slog has no trace level.
	if strings.EqualFold(s, "trace") {
		return LevelTrace, true
	}

	var sl slog.Level
	if err := sl.UnmarshalText([]byte(s)); err != nil {
		return 0, false
	}

	return Level(sl), true
}

// Format selects the encoding of log records.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// DefaultFormat is the format of a new [Logger].
const DefaultFormat = FormatText

var formatNames = map[Format]string{
	FormatText: "text",
	FormatJSON: "json",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}

	return fmt.Sprintf("Format(%d)", int(f))
}

// MarshalText implements [encoding.TextMarshaler].
func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements [encoding.TextUnmarshaler].
func (f *Format) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))

	for k, v := range formatNames {
		if v == s {
			*f = k

			return nil
		}
	}

	return fmt.Errorf("unknown log format %q", text)
}

// Formats returns the names of the defined formats.
func Formats() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, f := range []Format{FormatText, FormatJSON} {
			if !yield(f.String()) {
				return
			}
		}
	}
}

// ParseFormat returns the format named by s, or [DefaultFormat].
func ParseFormat(s string) Format {
	var f Format
	if err := f.UnmarshalText([]byte(s)); err != nil {
		return DefaultFormat
	}

	return f
}

// FormatTime renders a record timestamp. An empty result omits it.
type FormatTime func(time.Time) string

// DefaultTimeLayout is the timestamp layout of a new [Logger].
const DefaultTimeLayout = time.RFC3339

// DefaultCaller reports whether a new [Logger] records the call site.
const DefaultCaller = false

// DefaultPretty reports whether a new [Logger] styles text output.
const DefaultPretty = true

type config struct {
	output     io.Writer
	formatTime FormatTime
	level      Level
	format     Format
	caller     bool
	pretty     bool
}

func makeConfig(w io.Writer, opts ...Option) config {
	return apply(apply(config{}, WithDefaults(w)), opts...)
}

// replaceAttr renders timestamps with the configured layout and levels
// with their upper-case names.
func (c config) replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}

	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			s := c.formatTime(t)
			if s == "" {
				return slog.Attr{}
			}

			a.Value = slog.StringValue(s)
		}

	case slog.LevelKey:
		if l, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(strings.ToUpper(Level(l).String()))
		}
	}

	return a
}

func (c config) handler() slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource:   c.caller,
		Level:       slog.Level(c.level),
		ReplaceAttr: c.replaceAttr,
	}

	switch c.format {
	case FormatJSON:
		return slog.NewJSONHandler(c.output, opts)

	case FormatText:
		if c.pretty {
			return newPrettyHandler(c.output, opts)
		}

		return slog.NewTextHandler(c.output, opts)

	default:
		return slog.DiscardHandler
	}
}

// WithDefaults resets every setting to its default and directs output to w,
// or discards it if w is nil.
func WithDefaults(w io.Writer) Option {
	return func(config) config {
		if w == nil {
			w = io.Discard
		}

		return config{
			output:     w,
			formatTime: makeFormatTimeFunc(DefaultTimeLayout),
			level:      DefaultLevel,
			format:     DefaultFormat,
			caller:     DefaultCaller,
			pretty:     DefaultPretty,
		}
	}
}

// WithOutput directs output to w, or discards it if w is nil.
func WithOutput(w io.Writer) Option {
	return func(c config) config {
		if w == nil {
			w = io.Discard
		}

		c.output = w

		return c
	}
}

// WithLevel discards messages below level.
func WithLevel(level Level) Option {
	return func(c config) config {
		c.level = level

		return c
	}
}

func WithFormat(format Format) Option {
	return func(c config) config {
		c.format = format

		return c
	}
}

// WithTimeLayout sets the timestamp layout: a named layout of package time
// such as "RFC3339" or "Kitchen", a short name such as "ms", or a layout
// string used verbatim. A blank layout or "none" omits timestamps.
func WithTimeLayout(layout string) Option {
	return func(c config) config {
		c.formatTime = makeFormatTimeFunc(layout)

		return c
	}
}

// WithCaller records the source file and line of each message.
func WithCaller(enable bool) Option {
	return func(c config) config {
		c.caller = enable

		return c
	}
}

// WithPretty styles text output with colors where the output supports them.
// JSON output is never styled.
func WithPretty(enable bool) Option {
	return func(c config) config {
		c.pretty = enable

		return c
	}
}

var timeLayout = map[string]string{
	"rfc3339":     time.RFC3339,
	"rfc3339nano": time.RFC3339Nano,
	"ansic":       time.ANSIC,
	"unixdate":    time.UnixDate,
	"rubydate":    time.RubyDate,
	"rfc822":      time.RFC822,
	"rfc822z":     time.RFC822Z,
	"rfc850":      time.RFC850,
	"rfc1123":     time.RFC1123,
	"rfc1123z":    time.RFC1123Z,
	"kitchen":     time.Kitchen,
	"datetime":    time.DateTime,
	"dateonly":    time.DateOnly,
	"timeonly":    time.TimeOnly,
	"stamp":       time.Stamp,
	"stampmilli":  time.StampMilli,
	"stampmicro":  time.StampMicro,
	"stampnano":   time.StampNano,
	"ms":          time.StampMilli,
	"us":          time.StampMicro,
	"ns":          time.StampNano,
	"none":        "",
}

func makeFormatTimeFunc(layout string) FormatTime {
	// Named layouts are matched ignoring case and punctuation.
	key := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}

		return -1
	}, strings.ToLower(layout))

	if std, ok := timeLayout[key]; ok {
		layout = std
	}

	if strings.TrimSpace(layout) == "" {
		return func(time.Time) string { return "" }
	}

	return func(t time.Time) string { return t.Format(layout) }
}
