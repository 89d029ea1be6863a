package cli

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/brace/log"
)

// logLevel applies the package logger level as soon as Kong parses it, so
// that errors reported while parsing are filtered at the requested level.
type logLevel string

func (l *logLevel) UnmarshalText(text []byte) error {
	var lv log.Level
	if err := lv.UnmarshalText(text); err != nil {
		return err
	}

	*l = logLevel(lv.String())
	log.Config(log.WithLevel(lv))

	return nil
}

// logFormat applies the package logger format as soon as Kong parses it.
type logFormat string

func (f *logFormat) UnmarshalText(text []byte) error {
	var fm log.Format
	if err := fm.UnmarshalText(text); err != nil {
		return err
	}

	*f = logFormat(fm.String())
	log.Config(log.WithFormat(fm))

	return nil
}

type logConfig struct {
	Level      logLevel  `default:"${logLevelDefault}"  enum:"${logLevelEnum}"  help:"Set log level."`
	Format     logFormat `default:"${logFormatDefault}" enum:"${logFormatEnum}" help:"Set log format."`
	TimeLayout string    `default:"RFC3339"                                     help:"Set timestamp format (a Go layout, a time package constant name, or none)."`
	Caller     bool      `default:"false"                                       help:"Include caller information."       negatable:""`
	Pretty     bool      `default:"true"                                        help:"Enable colorized pretty printing." negatable:""`
}

func (*logConfig) vars() kong.Vars {
	return kong.Vars{
		"logLevelEnum":     strings.Join(slices.Collect(log.Levels()), ","),
		"logLevelDefault":  log.DefaultLevel.String(),
		"logFormatEnum":    strings.Join(slices.Collect(log.Formats()), ","),
		"logFormatDefault": log.DefaultFormat.String(),
	}
}

func (*logConfig) group() kong.Group {
	return kong.Group{Key: "log", Title: "Logging options"}
}

// start applies every parsed logging flag to the package logger.
func (f *logConfig) start(ctx context.Context) func() {
	log.Config(
		log.WithLevel(log.ParseLevel(string(f.Level))),
		log.WithFormat(log.ParseFormat(string(f.Format))),
		log.WithTimeLayout(f.TimeLayout),
		log.WithCaller(f.Caller),
		log.WithPretty(f.Pretty),
	)

	log.DebugContext(ctx, "logger initialized",
		slog.String("level", string(f.Level)),
		slog.String("format", string(f.Format)),
		slog.String("time", f.TimeLayout),
		slog.Bool("caller", f.Caller),
		slog.Bool("pretty", f.Pretty),
	)

	return func() {}
}

// scan applies the logging flags found in args before Kong parses them.
// Boolean flags never reach an UnmarshalText method, and a flag placed
// after a failing argument would otherwise never be applied.
func (f *logConfig) scan(args []string) {
	for i := 0; i < len(args); i++ {
		name, value, assigned := strings.Cut(args[i], "=")

		negated := strings.HasPrefix(name, "--no-log-")

		switch {
		case negated:
			name = strings.TrimPrefix(name, "--no-log-")
		case strings.HasPrefix(name, "--log-"):
			name = strings.TrimPrefix(name, "--log-")
		default:
			continue
		}

		switch name {
		case "level", "format":
			if negated {
				continue
			}

			if !assigned && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
				value = args[i]
			}

			if name == "level" {
				_ = f.Level.UnmarshalText([]byte(value))
			} else {
				_ = f.Format.UnmarshalText([]byte(value))
			}

		case "pretty", "caller":
			on := true

			if assigned {
				v, err := strconv.ParseBool(value)
				if err != nil {
					continue
				}

				on = v
			}

			if negated {
				on = !on
			}

			if name == "pretty" {
				f.Pretty = on
				log.Config(log.WithPretty(on))
			} else {
				f.Caller = on
				log.Config(log.WithCaller(on))
			}
		}
	}
}
