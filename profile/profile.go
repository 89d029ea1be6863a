package profile

// Stopper ends a profiling session and flushes its output.
type Stopper interface{ Stop() }

// Profiler describes a profiling session. The zero value profiles nothing.
type Profiler struct {
	Mode  string
	Dir   string
	Quiet bool
}

// Option modifies a Profiler.
type Option func(Profiler) Profiler

// New returns a Profiler configured by opts.
func New(opts ...Option) Profiler {
	var p Profiler

	for _, opt := range opts {
		if opt != nil {
			p = opt(p)
		}
	}

	return p
}

// WithMode selects one of [Modes].
func WithMode(mode string) Option {
	return func(p Profiler) Profiler {
		p.Mode = mode

		return p
	}
}

// WithDir sets the output directory. An empty dir uses a temporary one.
func WithDir(dir string) Option {
	return func(p Profiler) Profiler {
		p.Dir = dir

		return p
	}
}

// WithQuiet suppresses the profiler's own start and stop messages.
func WithQuiet(quiet bool) Option {
	return func(p Profiler) Profiler {
		p.Quiet = quiet

		return p
	}
}

// Enabled reports whether starting p records anything.
func (p Profiler) Enabled() bool {
	if p.Mode == "" {
		return false
	}

	for _, m := range Modes() {
		if m == p.Mode {
			return true
		}
	}

	return false
}

// Start begins profiling. Start and the returned Stopper are always safe to
// call; an unknown mode or a build without profiling yields a no-op.
func (p Profiler) Start() Stopper {
	if !p.Enabled() {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
