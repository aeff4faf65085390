package risk

import (
	"testing"

	"github.com/bobmcallan/folio/internal/models"
)

func TestMaxDrawdown(t *testing.T) {
	// levels: 1.10, 0.88, 0.924, 1.155
	series := models.ReturnSeries{
		{Start: month(0), Date: month(1), Return: 0.10},
		{Start: month(1), Date: month(2), Return: -0.20},
		{Start: month(2), Date: month(3), Return: 0.05},
		{Start: month(3), Date: month(4), Return: 0.25},
	}
	dd := MaxDrawdown(month(0), series)

	if d := dd.Depth - 0.20; d > 1e-12 || d < -1e-12 {
		t.Errorf("Depth = %.6f, want 0.20", dd.Depth)
	}
	if !dd.Peak.Equal(month(1)) {
		t.Errorf("Peak = %v, want %v", dd.Peak, month(1))
	}
	if !dd.Trough.Equal(month(2)) {
		t.Errorf("Trough = %v, want %v", dd.Trough, month(2))
	}
	if !dd.Recovery.Equal(month(4)) {
		t.Errorf("Recovery = %v, want %v", dd.Recovery, month(4))
	}
}

func TestMaxDrawdown_FromStart(t *testing.T) {
	series := models.ReturnSeries{
		{Start: month(0), Date: month(1), Return: -0.10},
		{Start: month(1), Date: month(2), Return: -0.10},
	}
	dd := MaxDrawdown(month(0), series)

	// 1 -> 0.9 -> 0.81
	if d := dd.Depth - 0.19; d > 1e-12 || d < -1e-12 {
		t.Errorf("Depth = %.6f, want 0.19", dd.Depth)
	}
	if !dd.Peak.Equal(month(0)) {
		t.Errorf("Peak = %v, want start date", dd.Peak)
	}
	if !dd.Recovery.IsZero() {
		t.Errorf("Recovery = %v, want zero (still under water)", dd.Recovery)
	}
}

func TestMaxDrawdown_OnlyGains(t *testing.T) {
	series := models.ReturnSeries{
		{Start: month(0), Date: month(1), Return: 0.01},
		{Start: month(1), Date: month(2), Return: 0.02},
	}
	if dd := MaxDrawdown(month(0), series); dd.Depth != 0 {
		t.Errorf("Depth = %v, want 0", dd.Depth)
	}
}

func TestMaxDrawdown_KeepsDeepest(t *testing.T) {
	// A -30% drawdown, full recovery, then a shallower -10% one
	series := models.ReturnSeries{
		{Start: month(0), Date: month(1), Return: -0.30},
		{Start: month(1), Date: month(2), Return: 0.50},
		{Start: month(2), Date: month(3), Return: -0.10},
	}
	dd := MaxDrawdown(month(0), series)
	if d := dd.Depth - 0.30; d > 1e-12 || d < -1e-12 {
		t.Errorf("Depth = %.6f, want 0.30", dd.Depth)
	}
	if !dd.Recovery.Equal(month(2)) {
		t.Errorf("Recovery = %v, want %v", dd.Recovery, month(2))
	}
}

func TestDrawdownSeries(t *testing.T) {
	curve := []models.PricePoint{
		{Date: month(0), Price: 1.0},
		{Date: month(1), Price: 1.2},
		{Date: month(2), Price: 0.9},
		{Date: month(3), Price: 1.3},
	}
	got := DrawdownSeries(curve)
	want := []float64{0, 0, -0.25, 0}
	for i := range want {
		if d := got[i].Price - want[i]; d > 1e-12 || d < -1e-12 {
			t.Errorf("point %d = %.6f, want %.6f", i, got[i].Price, want[i])
		}
	}
}
