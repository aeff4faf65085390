package returns

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

func approxEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pointsFromValues(values ...float64) []models.ValuationPoint {
	points := make([]models.ValuationPoint, len(values))
	for i, v := range values {
		points[i] = models.ValuationPoint{Date: day(2024, time.Month(i+1), 1), Value: v}
	}
	return points
}

func TestCalculateTWR_ThreePointsNoFlows(t *testing.T) {
	// 1000 -> 1100 -> 1050: +10%, -4.545%, total +5%
	res, err := CalculateTWR(pointsFromValues(1000, 1100, 1050))
	if err != nil {
		t.Fatalf("CalculateTWR: %v", err)
	}
	if len(res.Series) != 2 {
		t.Fatalf("series length = %d, want 2", len(res.Series))
	}
	if !approxEqual(res.Series[0].Return, 0.10, 1e-9) {
		t.Errorf("r1 = %.6f, want 0.10", res.Series[0].Return)
	}
	if !approxEqual(res.Series[1].Return, -0.0454545, 1e-6) {
		t.Errorf("r2 = %.6f, want -0.045455", res.Series[1].Return)
	}
	if !approxEqual(res.TWR, 0.05, 1e-9) {
		t.Errorf("TWR = %.6f, want 0.05", res.TWR)
	}
}

func TestCalculateTWR_NoFlowsEqualsSimpleReturn(t *testing.T) {
	cases := [][]float64{
		{100, 120},
		{1000, 900, 950, 1200},
		{50, 51, 49, 52, 48, 60},
	}
	for _, values := range cases {
		res, err := CalculateTWR(pointsFromValues(values...))
		if err != nil {
			t.Fatalf("CalculateTWR(%v): %v", values, err)
		}
		simple, err := SimpleReturn(values[0], values[len(values)-1])
		if err != nil {
			t.Fatal(err)
		}
		if !approxEqual(res.TWR, simple, 1e-12) {
			t.Errorf("TWR(%v) = %.10f, simple return = %.10f", values, res.TWR, simple)
		}
	}
}

func TestCalculateTWR_CashFlowRemoved(t *testing.T) {
	// A 500 deposit lands in the second period; it must not count as growth.
	points := []models.ValuationPoint{
		{Date: day(2024, 1, 1), Value: 1000},
		{Date: day(2024, 2, 1), Value: 1600, NetCashFlow: 500},
		{Date: day(2024, 3, 1), Value: 1700},
	}
	res, err := CalculateTWR(points)
	if err != nil {
		t.Fatalf("CalculateTWR: %v", err)
	}
	if !approxEqual(res.Series[0].Return, 0.10, 1e-9) {
		t.Errorf("r1 = %.6f, want 0.10", res.Series[0].Return)
	}
	if !approxEqual(res.Series[1].Return, 0.0625, 1e-9) {
		t.Errorf("r2 = %.6f, want 0.0625", res.Series[1].Return)
	}
	if !approxEqual(res.TWR, 0.16875, 1e-9) {
		t.Errorf("TWR = %.6f, want 0.16875", res.TWR)
	}
}

func TestCalculateTWR_WithdrawalRemoved(t *testing.T) {
	points := []models.ValuationPoint{
		{Date: day(2024, 1, 1), Value: 2000},
		{Date: day(2024, 2, 1), Value: 1200, NetCashFlow: -1000},
	}
	res, err := CalculateTWR(points)
	if err != nil {
		t.Fatalf("CalculateTWR: %v", err)
	}
	// (1200 + 1000) / 2000 - 1 = 10%
	if !approxEqual(res.TWR, 0.10, 1e-9) {
		t.Errorf("TWR = %.6f, want 0.10", res.TWR)
	}
}

func TestCalculateTWR_CompoundReconstructsTWR(t *testing.T) {
	points := []models.ValuationPoint{
		{Date: day(2024, 1, 1), Value: 1000},
		{Date: day(2024, 2, 1), Value: 1300, NetCashFlow: 250},
		{Date: day(2024, 3, 1), Value: 1250},
		{Date: day(2024, 4, 1), Value: 900, NetCashFlow: -400},
		{Date: day(2024, 5, 1), Value: 1010},
	}
	res, err := CalculateTWR(points)
	if err != nil {
		t.Fatalf("CalculateTWR: %v", err)
	}
	if got := Compound(res.Series); !approxEqual(got, res.TWR, 1e-12) {
		t.Errorf("Compound(series) = %.12f, TWR = %.12f", got, res.TWR)
	}
}

func TestCalculateTWR_EmptyInput(t *testing.T) {
	res, err := CalculateTWR(nil)
	if err != nil {
		t.Fatalf("empty input should not fail: %v", err)
	}
	if res.TWR != 0 || len(res.Series) != 0 {
		t.Errorf("empty input = %+v, want zero result", res)
	}
}

func TestCalculateTWR_SinglePoint(t *testing.T) {
	res, err := CalculateTWR(pointsFromValues(1000))
	if err != nil {
		t.Fatalf("single point should not fail: %v", err)
	}
	if res.TWR != 0 {
		t.Errorf("TWR = %v, want 0", res.TWR)
	}
}

func TestCalculateTWR_InvalidStartValue(t *testing.T) {
	for _, start := range []float64{0, -10} {
		_, err := CalculateTWR(pointsFromValues(1000, start, 1200))
		if !errors.Is(err, ErrInvalidStartValue) {
			t.Errorf("start %v: err = %v, want ErrInvalidStartValue", start, err)
		}
	}
}

func TestCalculateTWR_Unordered(t *testing.T) {
	points := []models.ValuationPoint{
		{Date: day(2024, 3, 1), Value: 1000},
		{Date: day(2024, 2, 1), Value: 1100},
	}
	if _, err := CalculateTWR(points); !errors.Is(err, ErrUnorderedPoints) {
		t.Errorf("err = %v, want ErrUnorderedPoints", err)
	}
}

func TestAnnualise(t *testing.T) {
	// Short periods are left cumulative
	if got := Annualise(0.10, 180); got != 0.10 {
		t.Errorf("Annualise(0.10, 180) = %v, want 0.10", got)
	}
	// Two years of 21% is 10% a year
	if got := Annualise(0.21, 730); !approxEqual(got, 0.10, 1e-9) {
		t.Errorf("Annualise(0.21, 730) = %v, want 0.10", got)
	}
	// Total loss stays cumulative
	if got := Annualise(-1.0, 800); got != -1.0 {
		t.Errorf("Annualise(-1, 800) = %v, want -1", got)
	}
}

func TestDays(t *testing.T) {
	res, err := CalculateTWR(pointsFromValues(100, 110, 120))
	if err != nil {
		t.Fatal(err)
	}
	// 2024-01-01 .. 2024-03-01
	if got := Days(res.Series); got != 60 {
		t.Errorf("Days = %v, want 60", got)
	}
	if Days(nil) != 0 {
		t.Error("Days(nil) should be 0")
	}
}
