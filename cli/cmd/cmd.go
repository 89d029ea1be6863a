package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ardnew/brace/log"
	"github.com/ardnew/brace/record"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// Vars returns the kong variables interpolated into command flag tags.
func Vars() kong.Vars {
	return kong.Vars{
		"drivers":       strings.Join(record.Drivers, ","),
		"defaultDriver": record.DriverSQLite,
		"defaultLocale": "1033",
	}
}

// stdout returns the output writer of the running kong application.
func stdout(ctx context.Context) io.Writer {
	if ktx := kongContextFrom(ctx); ktx != nil && ktx.Stdout != nil {
		return ktx.Stdout
	}

	return os.Stdout
}

// logger returns the package logger with the running command attached.
func logger(ctx context.Context) log.Logger {
	l := log.Default()

	if ktx := kongContextFrom(ctx); ktx != nil {
		if c := ktx.Selected(); c != nil {
			l = l.With(slog.String("command", c.Name))
		}
	}

	return l
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// template is the source text of one template and where it came from.
type template struct {
	name string
	text string
}

// Input selects the templates of a command: files given as arguments, or
// one template given inline.
type Input struct {
	Template []string `arg:"" help:"Template file(s), or '-' for stdin" optional:"" type:"path"`
	Inline   string   `help:"Evaluate this template text instead of files" short:"e"`
}

// read returns the selected templates. Files are read once even when named
// through different paths or links; stdin is read last.
func (in Input) read(stdin io.Reader) ([]template, error) {
	if in.Inline != "" {
		return []template{{name: "inline", text: in.Inline}}, nil
	}

	if len(in.Template) == 0 {
		return nil, ErrNoTemplate
	}

	var (
		out      []template
		hasStdin bool
	)

	seen := make(map[fileKey]struct{})

	for _, path := range in.Template {
		if path == stdinSource {
			hasStdin = true

			continue
		}

		text, ok, err := readUniqueFile(path, seen)
		if err != nil {
			return nil, ErrReadInput.With(slog.String("file", path)).Wrap(err)
		}

		if ok {
			out = append(out, template{name: path, text: text})
		}
	}

	if hasStdin {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, ErrReadInput.With(slog.String("file", stdinSource)).Wrap(err)
		}

		out = append(out, template{name: stdinSource, text: string(b)})
	}

	return out, nil
}

// files returns the absolute paths of the template files.
func (in Input) files() []string {
	var out []string

	for _, path := range in.Template {
		if path == stdinSource {
			continue
		}

		if abs, err := filepath.Abs(path); err == nil {
			out = append(out, abs)
		}
	}

	return out
}

// fileKey uniquely identifies a file by its device and inode numbers.
type fileKey struct {
	dev uint64
	ino uint64
}

// readUniqueFile reads the file at path unless a file with the same device
// and inode was already read. The bool result reports whether it was read.
func readUniqueFile(path string, seen map[fileKey]struct{}) (string, bool, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", false, err
	}

	if key, ok := makeFileKey(info); ok {
		if _, dup := seen[key]; dup {
			return "", false, nil
		}

		seen[key] = struct{}{}
	}

	b, err := os.ReadFile(resolved)
	if err != nil {
		return "", false, err
	}

	return string(b), true, nil
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true //nolint:unconvert
}
