package profile

import (
	"slices"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	p := New(WithMode("cpu"), WithDir("/tmp/x"), WithQuiet(true), nil)

	want := Profiler{Mode: "cpu", Dir: "/tmp/x", Quiet: true}
	if p != want {
		t.Errorf("New() = %+v, want %+v", p, want)
	}
}

func TestProfiler_Start(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Profiler
	}{
		{"zero", Profiler{}},
		{"unknown_mode", New(WithMode("nonsense"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.p.Enabled() {
				t.Fatal("Enabled() = true")
			}

			s := tt.p.Start()
			if _, ok := s.(ignore); !ok {
				t.Errorf("Start() = %T, want no-op", s)
			}

			s.Stop()
		})
	}
}

func TestModes(t *testing.T) {
	t.Parallel()

	m := Modes()
	if !slices.IsSorted(m) {
		t.Errorf("Modes() = %q, not sorted", m)
	}

	for _, mode := range m {
		if !New(WithMode(mode)).Enabled() {
			t.Errorf("mode %q not enabled", mode)
		}
	}
}
