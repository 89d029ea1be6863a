package engine

import (
	"testing"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestDateLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{"yyyy-MM-dd", "2006-01-02"},
		{"dd/MM/yy", "02/01/06"},
		{"dddd, MMMM d", "Monday, January 2"},
		{"ddd MMM", "Mon Jan"},
		{"h:mm tt", "3:04 PM"},
		{"HH:mm:ss.fff", "15:04:05.000"},
		{"HH:mm:ssfff", "15:04:05.000"},
		{"ss.FF", "05.99"},
		{"s", "2006-01-02T15:04:05"},
		{"o", "2006-01-02T15:04:05.0000000Z07:00"},
		{"'at' HH", "at 15"},
		{`\d`, "d"},
		{"zzz", "-07:00"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			if got := dateLayout(tt.format); got != tt.want {
				t.Errorf("dateLayout(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestStandardNumberFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format   string
		wantSpec rune
		wantPrec precision
		wantOK   bool
	}{
		{"N2", 'N', 2, true},
		{"n", 'N', -1, true},
		{"d5", 'D', 5, true},
		{"X2", 0, -1, false},
		{"N-1", 0, -1, false},
		{"#,##0", 0, -1, false},
		{"", 0, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			spec, prec, ok := standardNumberFormat(tt.format)
			if spec != tt.wantSpec || prec != tt.wantPrec || ok != tt.wantOK {
				t.Errorf("standardNumberFormat(%q) = %q, %d, %v, want %q, %d, %v",
					tt.format, spec, prec, ok, tt.wantSpec, tt.wantPrec, tt.wantOK)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	en := lookupLocale(1033)
	de := lookupLocale(1031)

	tests := []struct {
		name   string
		loc    locale
		format string
		v      float64
		want   string
	}{
		{"decimal", en, "N2", 1234.5, "1,234.50"},
		{"decimal_default", en, "N", 1234.5, "1,234.50"},
		{"decimal_none", en, "N0", 1234.4, "1,234"},
		{"fixed", en, "F1", 1234.56, "1234.6"},
		{"digits", en, "D3", 7, "007"},
		{"exponent", en, "E2", 1234.5, "1.23E+03"},
		{"custom", en, "#,##0.00", 1234.567, "1,234.57"},
		{"custom_prefix", en, "$#,##0", 1234567, "$1,234,567"},
		{"custom_percent", en, "0.0%", 0.256, "25.6%"},
		{"custom_integer", en, "000", 7, "007"},
		{"custom_literal", en, "none", 1, "none"},
		{"german", de, "#,##0.00", 1234.5, "1.234,50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := message.NewPrinter(tt.loc.tag)
			if got := formatNumber(p, tt.loc, tt.format, tt.v); got != tt.want {
				t.Errorf("formatNumber(%q, %v) = %q, want %q", tt.format, tt.v, got, tt.want)
			}
		})
	}
}

func TestLookupLocale(t *testing.T) {
	t.Parallel()

	if got := lookupLocale(1036).tag; got != language.French {
		t.Errorf("lookupLocale(1036) = %v, want %v", got, language.French)
	}

	if got := lookupLocale(99999).tag; got != language.AmericanEnglish {
		t.Errorf("lookupLocale(99999) = %v, want %v", got, language.AmericanEnglish)
	}
}
