package cmd

import (
	"context"
	"encoding"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/brace/profile"
)

// Init writes a configuration file holding the current values of the
// global flags.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config path undefined")
	}

	if _, err := os.Stat(confPath); err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath), slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	b, err := yaml.MarshalWithOptions(i.values(ktx), yaml.IndentSequence(true))
	if err != nil {
		return ErrWriteConfig.With(slog.String("file", confPath)).Wrap(err)
	}

	if err := os.WriteFile(confPath, b, 0o600); err != nil {
		return ErrWriteConfig.With(slog.String("file", confPath)).Wrap(err)
	}

	logger(ctx).DebugContext(ctx, "initialized configuration file",
		slog.String("path", confPath),
	)

	return nil
}

// values maps the name of each visible global flag to its current value.
// Unset values are left out.
func (i *Init) values(ktx *kong.Context) map[string]any {
	ignore := []string{"help", profile.Tag}
	out := make(map[string]any)

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || slices.ContainsFunc(ignore, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		if v := configValue(ktx.FlagValue(flag)); v != nil {
			out[flag.Name] = v
		}
	}

	return out
}

// configValue converts a flag value into a form the configuration resolver
// reads back, or nil if the value is unset.
func configValue(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case time.Duration:
		return v.String()
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		if err != nil || len(b) == 0 {
			return nil
		}

		return string(b)
	case string:
		if v == "" {
			return nil
		}

		return v
	case bool:
		return v
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice:
		if rv.Len() == 0 {
			return nil
		}

		out := make([]any, 0, rv.Len())
		for j := range rv.Len() {
			if e := configValue(rv.Index(j).Interface()); e != nil {
				out = append(out, e)
			}
		}

		return out
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v
	case reflect.String:
		return configValue(rv.String())
	default:
		return nil
	}
}
