package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles of the pretty handler. Rendering through a
// renderer bound to the output drops colors the output cannot display.
type palette struct {
	key, str, num, dur, when, nul lipgloss.Style
	yes, no                       lipgloss.Style
	levels                        map[Level]lipgloss.Style
}

func newPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	fg := func(c string) lipgloss.Style { return r.NewStyle().Foreground(lipgloss.Color(c)) }

	return palette{
		key:  fg("8"),
		str:  fg("6"),
		num:  fg("3"),
		dur:  fg("5"),
		when: fg("4"),
		nul:  fg("8").Italic(true),
		yes:  fg("2"),
		no:   fg("1"),
		levels: map[Level]lipgloss.Style{
			LevelTrace: fg("8").Bold(true),
			LevelDebug: fg("4").Bold(true),
			LevelInfo:  fg("2").Bold(true),
			LevelWarn:  fg("3").Bold(true),
			LevelError: fg("1").Bold(true),
		},
	}
}

func (p palette) level(l Level) lipgloss.Style {
	s, base := p.levels[LevelTrace], LevelTrace

	for lv, st := range p.levels {
		if l >= lv && lv >= base {
			s, base = st, lv
		}
	}

	return s
}

// prettyHandler writes one line per record as key=value pairs with
// unquoted, styled values.
type prettyHandler struct {
	opts    slog.HandlerOptions
	mu      *sync.Mutex
	w       io.Writer
	palette palette
	groups  []string
	attrs   []byte
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *prettyHandler {
	return &prettyHandler{
		opts:    *opts,
		mu:      &sync.Mutex{},
		w:       w,
		palette: newPalette(w),
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	floor := slog.LevelInfo
	if h.opts.Level != nil {
		floor = h.opts.Level.Level()
	}

	return level >= floor
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !r.Time.IsZero() {
		h.writeAttr(&buf, nil, h.replace(nil, slog.Time(slog.TimeKey, r.Time)))
	}

	lvl := h.replace(nil, slog.Any(slog.LevelKey, r.Level))
	if lvl.Key != "" {
		sep(&buf)
		buf.WriteString(h.palette.key.Render(lvl.Key))
		buf.WriteByte('=')
		buf.WriteString(h.palette.level(Level(r.Level)).Render(lvl.Value.String()))
	}

	if h.opts.AddSource {
		if src := r.Source(); src != nil && src.File != "" {
			loc := filepath.Base(src.File) + ":" + strconv.Itoa(src.Line)
			h.writeAttr(&buf, nil, slog.String(slog.SourceKey, loc))
		}
	}

	h.writeAttr(&buf, nil, slog.String(slog.MessageKey, r.Message))

	if len(h.attrs) > 0 {
		sep(&buf)
		buf.Write(h.attrs)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, h.groups, h.replace(h.groups, a))

		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	c := *h

	var buf bytes.Buffer
	buf.Write(h.attrs)

	for _, a := range attrs {
		c.writeAttr(&buf, h.groups, h.replace(h.groups, a))
	}

	c.attrs = buf.Bytes()

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.groups = append(slices.Clip(h.groups), name)

	return &c
}

func (h *prettyHandler) replace(groups []string, a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if h.opts.ReplaceAttr == nil || a.Value.Kind() == slog.KindGroup {
		return a
	}

	return h.opts.ReplaceAttr(groups, a)
}

func sep(buf *bytes.Buffer) {
	if b := buf.Bytes(); len(b) > 0 && b[len(b)-1] != ' ' {
		buf.WriteByte(' ')
	}
}

func (h *prettyHandler) writeAttr(buf *bytes.Buffer, groups []string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		inner := a.Value.Group()
		if a.Key != "" {
			groups = append(slices.Clip(groups), a.Key)
		}

		for _, ga := range inner {
			h.writeAttr(buf, groups, h.replace(groups, ga))
		}

		return
	}

	key := a.Key
	for i := len(groups) - 1; i >= 0; i-- {
		key = groups[i] + "." + key
	}

	sep(buf)
	buf.WriteString(h.palette.key.Render(key))
	buf.WriteByte('=')
	buf.WriteString(h.value(a.Value))
}

func (h *prettyHandler) value(v slog.Value) string {
	p := h.palette

	switch v.Kind() {
	case slog.KindString:
		return p.str.Render(v.String())
	case slog.KindInt64:
		return p.num.Render(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		return p.num.Render(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		return p.num.Render(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	case slog.KindBool:
		if v.Bool() {
			return p.yes.Render("true")
		}

		return p.no.Render("false")
	case slog.KindDuration:
		return p.dur.Render(v.Duration().String())
	case slog.KindTime:
		return p.when.Render(v.Time().Format(time.RFC3339))
	}

	switch a := v.Any().(type) {
	case nil:
		return p.nul.Render("nil")
	case error:
		return p.no.Render(a.Error())
	case fmt.Stringer:
		return p.str.Render(a.String())
	default:
		return p.str.Render(fmt.Sprint(a))
	}
}
