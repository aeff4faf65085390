package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatMoney(1234.5, "USD"))
	assert.Equal(t, "$0.00", FormatMoney(0, "USD"))
	assert.Contains(t, FormatMoney(-10, "USD"), "10.00")
	assert.Equal(t, "12.30 XXZ", FormatMoney(12.3, "XXZ"))
}

func TestFormatSignedMoney(t *testing.T) {
	assert.Equal(t, "+$5.00", FormatSignedMoney(5, "USD"))
	assert.Equal(t, "$0.00", FormatSignedMoney(0, "USD"))
}

func TestFormatPct(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		pct  string
		sign string
	}{
		{"positive", 0.0525, "5.25%", "+5.25%"},
		{"negative", -0.1, "-10.00%", "-10.00%"},
		{"zero", 0, "0.00%", "+0.00%"},
		{"nan", math.NaN(), "n/a", "n/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.pct, FormatPct(tt.in))
			assert.Equal(t, tt.sign, FormatSignedPct(tt.in))
		})
	}
}
