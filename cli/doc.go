// Package cli is the command-line interface of brace.
//
// Flags may also be set in ~/.config/brace/config.yaml (see the init
// command), where nested keys are joined with hyphens:
//
//	log:
//	  level: debug
//	  pretty: false
//	driver: sqlite
//	dsn: file:records.db
//
// # Logging Options
//
//   - --log-level: minimum level (trace, debug, info, warn, error)
//   - --log-format: output format (text, json)
//   - --log-time-layout: timestamp layout, a time constant name or none
//   - --log-caller: include the caller's file and line
//   - --log-pretty: colorize text output
//
// # Profiling Options
//
// Profiles are recorded only in builds with the pprof tag:
//
//	go build -tags pprof -o brace .
//
//   - --pprof-mode: profile to record (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: output directory (default ~/.cache/brace/pprof)
//
// # Examples
//
//	brace -e 'Hello, {c|name|}!' -x fixture.yaml -r account/a1
//	brace highlight template.txt
//	brace serve -x fixture.yaml --addr :8080
package cli
