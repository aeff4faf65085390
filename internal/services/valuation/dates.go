package valuation

import (
	"fmt"
	"strings"
	"time"
)

// Frequency of reporting dates
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// ParseFrequency accepts daily, weekly or monthly in any case.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case Daily, Weekly, Monthly:
		return f, nil
	case "":
		return Monthly, nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// ReportingDates returns the valuation dates from start to end inclusive.
// Daily dates skip weekends, weekly dates step seven days from start and
// monthly dates fall on month ends. start and end are always included.
func ReportingDates(start, end time.Time, freq Frequency) []time.Time {
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return nil
	}

	dates := []time.Time{start}
	switch freq {
	case Daily:
		for d := start.AddDate(0, 0, 1); d.Before(end); d = d.AddDate(0, 0, 1) {
			if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			dates = append(dates, d)
		}
	case Weekly:
		for d := start.AddDate(0, 0, 7); d.Before(end); d = d.AddDate(0, 0, 7) {
			dates = append(dates, d)
		}
	default:
		for d := monthEnd(start); d.Before(end); d = monthEnd(d.AddDate(0, 0, 1)) {
			if d.After(start) {
				dates = append(dates, d)
			}
		}
	}
	if end.After(start) {
		dates = append(dates, end)
	}
	return dates
}

func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
