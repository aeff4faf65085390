package valuation

import (
	"testing"
	"time"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestReportingDates(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		freq       Frequency
		want       []string
	}{
		{"monthly", "2024-01-15", "2024-04-10", Monthly, []string{"2024-01-15", "2024-01-31", "2024-02-29", "2024-03-31", "2024-04-10"}},
		{"monthly from month end", "2024-01-31", "2024-03-15", Monthly, []string{"2024-01-31", "2024-02-29", "2024-03-15"}},
		{"monthly ending on month end", "2024-01-15", "2024-02-29", Monthly, []string{"2024-01-15", "2024-01-31", "2024-02-29"}},
		{"weekly", "2024-01-01", "2024-01-20", Weekly, []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-20"}},
		{"daily skips weekend", "2024-01-05", "2024-01-09", Daily, []string{"2024-01-05", "2024-01-08", "2024-01-09"}},
		{"single day", "2024-01-05", "2024-01-05", Monthly, []string{"2024-01-05"}},
		{"reversed", "2024-02-01", "2024-01-01", Monthly, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReportingDates(d(tt.start), d(tt.end), tt.freq)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d dates %v, want %v", len(got), got, tt.want)
			}
			for i := range tt.want {
				if !got[i].Equal(d(tt.want[i])) {
					t.Errorf("date %d = %s, want %s", i, got[i].Format("2006-01-02"), tt.want[i])
				}
			}
		})
	}
}

func TestReportingDates_TruncatesTime(t *testing.T) {
	got := ReportingDates(d("2024-01-05").Add(14*time.Hour), d("2024-01-06").Add(9*time.Hour), Weekly)
	if len(got) != 2 || !got[0].Equal(d("2024-01-05")) || !got[1].Equal(d("2024-01-06")) {
		t.Errorf("got %v", got)
	}
}

func TestParseFrequency(t *testing.T) {
	for in, want := range map[string]Frequency{"Daily": Daily, "weekly": Weekly, " MONTHLY ": Monthly, "": Monthly} {
		got, err := ParseFrequency(in)
		if err != nil || got != want {
			t.Errorf("ParseFrequency(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFrequency("hourly"); err == nil {
		t.Error("expected error for hourly")
	}
}
