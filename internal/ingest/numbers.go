package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var errEmpty = errors.New("empty value")

// ParseDecimal parses a broker number. sep is the expected decimal
// separator ("," for European exports). When both '.' and ',' appear the
// right-most one is the decimal separator. A lone opposite separator is
// read as a decimal point unless exactly three digits follow it, in which
// case it is a thousands separator ("1.000" = 1000, "12.5" = 12.5 with sep ",").
func ParseDecimal(s, sep string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.Trim(cleaned, "\"")
	cleaned = strings.NewReplacer("\u00a0", "", " ", "", "'", "").Replace(cleaned)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, errEmpty
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	var decimalSep, thousandsSep string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			decimalSep, thousandsSep = ",", "."
		} else {
			decimalSep, thousandsSep = ".", ","
		}
	case lastComma >= 0:
		decimalSep, thousandsSep = loneSeparator(cleaned, ",", sep)
	case lastDot >= 0:
		decimalSep, thousandsSep = loneSeparator(cleaned, ".", sep)
	}

	if thousandsSep != "" {
		cleaned = strings.ReplaceAll(cleaned, thousandsSep, "")
	}
	if decimalSep == "," {
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}

// loneSeparator decides the role of the only separator character present.
// A repeated separator is a thousands separator only with 3-digit groups;
// anything else ("1,2,3") is left in place and fails to parse.
func loneSeparator(s, found, configured string) (decimalSep, thousandsSep string) {
	parts := strings.Split(s, found)
	grouped := true
	for _, p := range parts[1:] {
		if len(p) != 3 {
			grouped = false
			break
		}
	}

	if found == configured {
		switch {
		case len(parts) == 2:
			return found, ""
		case grouped:
			return "", found
		}
		return "", ""
	}
	// Opposite of the configured separator: thousands only with 3-digit groups
	switch {
	case grouped:
		return "", found
	case len(parts) == 2:
		return found, ""
	}
	return "", ""
}

var dateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"2006-01-02",
	"2-1-2006",
	"2/1/2006",
}

// ParseDate parses a day-first broker date with an optional HH:MM time.
func ParseDate(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, errEmpty
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, date)
		if err != nil {
			continue
		}
		if clock = strings.TrimSpace(clock); clock != "" {
			if c, err := time.Parse("15:04", clock); err == nil {
				t = t.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute)
			}
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", date)
}
