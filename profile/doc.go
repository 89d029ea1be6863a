// Package profile starts and stops runtime profiling for brace.
//
// Profiling is compiled in only with the "pprof" build tag:
//
//	go build -tags pprof -o brace .
//
// Without the tag [Modes] is empty and [Profiler.Start] always returns a
// no-op [Stopper], so callers never need to check the build configuration.
//
// A profiler writes one file per session into its directory, named after
// the mode (cpu.pprof, mem.pprof, trace.out):
//
//	p := profile.New(profile.WithMode("cpu"), profile.WithDir("/tmp/prof"))
//	defer p.Start().Stop()
//
// Analyze the output with go tool pprof:
//
//	go tool pprof -http=: ./brace /tmp/prof/cpu.pprof
//
// The tagged build also imports [net/http/pprof], so the serve command
// exposes /debug/pprof/ handlers on the default mux when one is served.
package profile

// Tag is the build tag that enables profiling.
const Tag = `pprof`
