package lang_test

import (
	"testing"
	"time"

	"github.com/ardnew/brace/lang"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		ok    bool
	}{
		{"2022", false},
		{"20220101", false},
		{" 1999 ", false},
		{"", false},
		{"2022-01-01", true},
		{"2022-01-01 10:30:00", true},
		{"text", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if _, ok := lang.ParseDate(tt.input); ok != tt.ok {
				t.Errorf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  any
	}{
		{"", nil},
		{"null", nil},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"2022", int64(2022)},
		{"2.5", 2.5},
		{"2020-05-01", time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"True", true},
		{"false", false},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		got := lang.ParseValue(tt.input)

		if tm, ok := tt.want.(time.Time); ok {
			if g, ok := got.(time.Time); !ok || !g.Equal(tm) {
				t.Errorf("ParseValue(%q) = %v, want %v", tt.input, got, tt.want)
			}

			continue
		}

		if got != tt.want {
			t.Errorf("ParseValue(%q) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "1", -1},
		{"1", "", 1},
		{"2", "10", -1},
		{"2.0", "2", 0},
		{"b", "a", 1},
		{"false", "true", -1},
		{"2020-01-02", "2020-01-01", 1},
		{"10", "abc", -1},
	}

	for _, tt := range tests {
		got := lang.Compare(lang.ParseValue(tt.a), lang.ParseValue(tt.b))
		if got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want bool
	}{
		{"", "", true},
		{"", "0", false},
		{"3", "3.0", true},
		{"true", "TRUE", true},
		{"true", "1", false},
		{"x", "x", true},
		{"x", "y", false},
	}

	for _, tt := range tests {
		got := lang.Equal(lang.ParseValue(tt.a), lang.ParseValue(tt.b))
		if got != tt.want {
			t.Errorf("Equal(%q, %q) = %t, want %t", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestParseSpan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  time.Duration
		ok    bool
	}{
		{"3", 72 * time.Hour, true},
		{"01:30", 90 * time.Minute, true},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second, true},
		{"2.01:00:00", 49 * time.Hour, true},
		{"1:00:00:00", 24 * time.Hour, true},
		{"-00:30", -30 * time.Minute, true},
		{"00:00:01.5", 1500 * time.Millisecond, true},
		{"25:00", 0, false},
		{"00:60", 0, false},
		{"1d", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := lang.ParseSpan(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseSpan(%q) = %v, %t; want %v, %t", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestApplyDateOp(t *testing.T) {
	t.Parallel()

	base := time.Date(2021, 1, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		op, operand string
		want        time.Time
	}{
		{"+", "1M", time.Date(2021, 2, 28, 12, 0, 0, 0, time.UTC)},
		{"-", "1y1M", time.Date(2019, 12, 31, 12, 0, 0, 0, time.UTC)},
		{"+", "1d12h", time.Date(2021, 2, 2, 0, 0, 0, 0, time.UTC)},
		{"+", "90m", time.Date(2021, 1, 31, 13, 30, 0, 0, time.UTC)},
		{"-", "500f", time.Date(2021, 1, 31, 11, 59, 59, 500_000_000, time.UTC)},
		{"+", "02:00", time.Date(2021, 1, 31, 14, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := lang.ApplyDateOp(base, tt.op, tt.operand)
		if err != nil {
			t.Errorf("ApplyDateOp(%s %s) error: %v", tt.op, tt.operand, err)

			continue
		}

		if !got.Equal(tt.want) {
			t.Errorf("ApplyDateOp(%s %s) = %v, want %v", tt.op, tt.operand, got, tt.want)
		}
	}

	for _, bad := range []string{"1w", "d", "1.5d"} {
		if _, err := lang.ApplyDateOp(base, "+", bad); err == nil {
			t.Errorf("ApplyDateOp(+ %s) succeeded, want error", bad)
		}
	}
}
