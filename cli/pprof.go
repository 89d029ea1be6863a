package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/brace/log"
	"github.com/ardnew/brace/pkg"
	"github.com/ardnew/brace/profile"
)

// pprofConfig selects a profile to record. Without the pprof build tag no
// mode is available and the flags do nothing.
type pprofConfig struct {
	Mode string `default:""            enum:",${pprofModeEnum}" help:"Enable profiling (build with -tags pprof)" placeholder:"${enum}" short:"p"`
	Dir  string `default:"${pprofDir}"                          help:"Profile output directory"                                    type:"path"`
}

func (pprofConfig) vars() kong.Vars {
	return kong.Vars{
		"pprofModeEnum": strings.Join(profile.Modes(), ","),
		"pprofDir":      filepath.Join(pkg.CacheDir(), profile.Tag),
	}
}

func (pprofConfig) group() kong.Group {
	return kong.Group{Key: "pprof", Title: "Profiling (pprof)"}
}

// start starts profiling if a mode was selected and returns the function
// that stops it.
func (f pprofConfig) start(ctx context.Context) (stop func()) {
	p := profile.New(
		profile.WithMode(f.Mode),
		profile.WithDir(f.Dir),
		profile.WithQuiet(true),
	)

	if !p.Enabled() {
		return func() {}
	}

	log.DebugContext(ctx, "pprof start",
		slog.String("mode", f.Mode),
		slog.String("dir", f.Dir),
	)

	s := p.Start()

	return func() {
		s.Stop()
		log.DebugContext(ctx, "pprof stop", slog.String("mode", f.Mode))
	}
}
