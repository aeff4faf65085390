package ingest

import (
	"testing"
	"time"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		sep  string
		want string
	}{
		{"110,50", ",", "110.5"},
		{"-1.050,00", ",", "-1050"},
		{"1.050.000", ",", "1050000"},
		{"1.000", ",", "1000"},
		{"12.5", ",", "12.5"},
		{"1,234.56", ",", "1234.56"},
		{"1,234.56", ".", "1234.56"},
		{"1,000", ".", "1000"},
		{"0,1234", ".", "0.1234"},
		{"\"-2,50\"", ",", "-2.5"},
		{" 1 000,25 ", ",", "1000.25"},
		{"42", ",", "42"},
		{"1,000,000", ",", "1000000"},
	}
	for _, tt := range tests {
		got, err := ParseDecimal(tt.in, tt.sep)
		if err != nil {
			t.Errorf("ParseDecimal(%q, %q) error: %v", tt.in, tt.sep, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseDecimal(%q, %q) = %s, want %s", tt.in, tt.sep, got.String(), tt.want)
		}
	}
}

func TestParseDecimal_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "-", "abc", "1.23.4", "1,2,3"} {
		if _, err := ParseDecimal(in, ","); err == nil {
			t.Errorf("ParseDecimal(%q) expected error", in)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		date, clock string
		want        time.Time
	}{
		{"15-03-2024", "", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15-03-2024", "09:05", time.Date(2024, 3, 15, 9, 5, 0, 0, time.UTC)},
		{"15/03/2024", "", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15.03.2024", "", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-03-15", "", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"5-3-2024", "", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.date, tt.clock)
		if err != nil {
			t.Errorf("ParseDate(%q, %q) error: %v", tt.date, tt.clock, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q, %q) = %v, want %v", tt.date, tt.clock, got, tt.want)
		}
	}

	if _, err := ParseDate("03/15/2024", ""); err == nil {
		t.Error("month-first date should not parse")
	}
}
