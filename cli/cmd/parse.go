package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/ardnew/brace/cache"
	"github.com/ardnew/brace/log"
)

// Parse evaluates templates and writes their output.
type Parse struct {
	Input `embed:""`
	Data  `embed:""`
	Eval  `embed:""`

	Record string `help:"Current record as entity/id" short:"r"`
	Watch  bool   `help:"Evaluate again whenever a template or fixture file changes" short:"w"`
}

// Run executes the parse command.
func (p *Parse) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	store := cache.New()
	out := stdout(ctx)

	if !p.Watch {
		return p.once(ctx, out, store)
	}

	if slices.Contains(p.Template, stdinSource) {
		return ErrWatchStdin
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	janitor, err := store.Janitor(p.CacheDuration)
	if err != nil {
		return err
	}

	defer func() { _ = janitor.Stop() }()

	return p.watch(ctx, out, store)
}

// once evaluates every template a single time.
func (p *Parse) once(ctx context.Context, out io.Writer, store cache.Store) error {
	l := logger(ctx)

	templates, err := p.read(os.Stdin)
	if err != nil {
		return err
	}

	src, closeSource, err := p.open(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = closeSource() }()

	opts, err := p.options(p.Record)
	if err != nil {
		return err
	}

	e := p.engine(src, store, l)

	for _, t := range templates {
		res, err := e.Parse(ctx, t.text, opts...)
		if err != nil {
			return ErrEvaluate.With(slog.String("template", t.name)).Wrap(err)
		}

		if !strings.HasSuffix(res, "\n") {
			res += "\n"
		}

		if _, err := io.WriteString(out, res); err != nil {
			return err
		}
	}

	return nil
}

// watch evaluates the templates, then again after each change to a watched
// file, until ctx is done. Evaluation errors are logged, not returned.
func (p *Parse) watch(ctx context.Context, out io.Writer, store cache.Store) error {
	l := logger(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	defer w.Close()

	files := p.files()

	for _, f := range p.Fixture {
		if abs, err := filepath.Abs(f); err == nil {
			files = append(files, abs)
		}
	}

	// Editors often replace a file rather than write it, so the directories
	// are watched and events are filtered by name.
	dirs := make(map[string]struct{})
	for _, f := range files {
		dirs[filepath.Dir(f)] = struct{}{}
	}

	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return err
		}
	}

	p.report(ctx, l, out, store)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			if !slices.Contains(files, filepath.Clean(ev.Name)) {
				continue
			}

			l.DebugContext(ctx, "file changed", slog.String("file", ev.Name), slog.String("op", ev.Op.String()))
			p.report(ctx, l, out, store)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			l.WarnContext(ctx, "watch failed", slog.Any("error", err))
		}
	}
}

func (p *Parse) report(ctx context.Context, l log.Logger, out io.Writer, store cache.Store) {
	if err := p.once(ctx, out, store); err != nil {
		l.ErrorContext(ctx, "parse failed", slog.Any("error", err))
	}
}
