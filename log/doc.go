// Package log wraps [log/slog] with functional configuration and a trace
// level below debug.
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithTimeLayout("kitchen"),
//	)
//	logger.Debug("parsed", slog.Int("size", 42))
//
// A [Logger] is immutable: [Logger.Wrap] and [Logger.With] return modified
// copies. Attributes are always [slog.Attr] values, never alternating keys
// and values.
//
// Text output is styled with colors when [WithPretty] is set and the output
// is a terminal. JSON output is never styled.
//
// The package-level functions log through a default logger writing text to
// standard error, reconfigured with [Config].
package log
