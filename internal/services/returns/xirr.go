package returns

import (
	"math"
	"sort"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// CashFlow is a dated amount seen from the investor: negative values are
// money put into the portfolio, positive values are money taken out.
type CashFlow struct {
	Date   time.Time
	Amount float64
}

// FlowsFromValuations turns valuation points into investor cash flows:
// the opening value is the first contribution, each point's external flow
// follows, and the closing value is the terminal withdrawal.
func FlowsFromValuations(points []models.ValuationPoint) []CashFlow {
	if len(points) < 2 {
		return nil
	}
	flows := []CashFlow{{Date: points[0].Date, Amount: -points[0].Value}}
	for _, p := range points[1:] {
		if p.NetCashFlow != 0 {
			flows = append(flows, CashFlow{Date: p.Date, Amount: -p.NetCashFlow})
		}
	}
	last := points[len(points)-1]
	flows = append(flows, CashFlow{Date: last.Date, Amount: last.Value})
	return flows
}

// CalculateXIRR computes the annualised money-weighted return using
// Newton-Raphson, falling back to bisection. Returns the rate as a decimal
// and false when it cannot be computed.
func CalculateXIRR(flows []CashFlow) (float64, bool) {
	if len(flows) < 2 {
		return 0, false
	}

	sorted := make([]CashFlow, len(flows))
	copy(sorted, flows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	// Need at least one negative and one positive flow
	hasNeg, hasPos := false, false
	for _, f := range sorted {
		if f.Amount < 0 {
			hasNeg = true
		}
		if f.Amount > 0 {
			hasPos = true
		}
	}
	if !hasNeg || !hasPos {
		return 0, false
	}
	if sorted[len(sorted)-1].Date.Equal(sorted[0].Date) {
		return 0, false
	}

	rate := solveXIRR(sorted)
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, false
	}
	return rate, true
}

// solveXIRR finds r such that Σ amount_i / (1+r)^(years_i) = 0,
// years measured from the first flow in 365.25-day years.
func solveXIRR(flows []CashFlow) float64 {
	const (
		maxIter = 100
		tol     = 1e-7
		minRate = -0.999
	)

	baseDate := flows[0].Date
	years := make([]float64, len(flows))
	for i, f := range flows {
		years[i] = f.Date.Sub(baseDate).Hours() / 24 / 365.25
	}

	// Initial guess from the simple return, clamped
	invested, received := 0.0, 0.0
	for _, f := range flows {
		if f.Amount < 0 {
			invested -= f.Amount
		} else {
			received += f.Amount
		}
	}
	rate := 0.1
	if invested > 0 {
		if simple := received/invested - 1; simple > -0.9 && simple < 10 {
			rate = simple
		}
	}

	for iter := 0; iter < maxIter; iter++ {
		npv, dnpv := 0.0, 0.0
		base := 1 + rate
		if base <= 0 {
			rate = minRate
			base = 1 + rate
		}
		for i, f := range flows {
			discount := math.Pow(base, years[i])
			if discount == 0 {
				continue
			}
			npv += f.Amount / discount
			if years[i] != 0 {
				dnpv -= years[i] * f.Amount / (discount * base)
			}
		}

		if math.Abs(npv) < tol {
			return rate
		}
		if dnpv == 0 {
			break
		}

		next := rate - npv/dnpv
		if next < minRate {
			next = minRate
		}
		if next > 100 {
			next = 100
		}
		rate = next
	}

	return bisectXIRR(flows, years)
}

func bisectXIRR(flows []CashFlow, years []float64) float64 {
	const (
		maxIter = 200
		tol     = 1e-6
	)

	npvAt := func(rate float64) float64 {
		base := 1 + rate
		if base <= 0 {
			return math.NaN()
		}
		sum := 0.0
		for i, f := range flows {
			sum += f.Amount / math.Pow(base, years[i])
		}
		return sum
	}

	lo, hi := -0.99, 10.0
	npvLo, npvHi := npvAt(lo), npvAt(hi)
	if math.IsNaN(npvLo) || math.IsNaN(npvHi) || npvLo*npvHi > 0 {
		return math.NaN()
	}

	for iter := 0; iter < maxIter; iter++ {
		mid := (lo + hi) / 2
		npvMid := npvAt(mid)
		if math.IsNaN(npvMid) {
			return math.NaN()
		}
		if math.Abs(npvMid) < tol {
			return mid
		}
		if npvMid*npvLo < 0 {
			hi = mid
		} else {
			lo, npvLo = mid, npvMid
		}
	}
	return (lo + hi) / 2
}
