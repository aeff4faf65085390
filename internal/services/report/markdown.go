package report

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// maxIssueRows caps the data-quality table; the JSON report keeps them all.
const maxIssueRows = 50

// FormatMarkdown renders the report as a markdown document.
func FormatMarkdown(r *models.Report) string {
	var sb strings.Builder
	cur := r.BaseCurrency

	// Header
	sb.WriteString("# Portfolio Report\n\n")
	sb.WriteString(fmt.Sprintf("**Period:** %s to %s\n", r.From.Format("2006-01-02"), r.To.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("**Base Currency:** %s\n", cur))
	if r.Benchmark != "" {
		sb.WriteString(fmt.Sprintf("**Benchmark:** %s\n", r.Benchmark))
	}
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", r.GeneratedAt.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("**Run:** `%s`\n\n", r.RunID))

	writePerformance(&sb, r)
	writeRisk(&sb, r)
	writePeriodReturns(&sb, r)
	writeHoldings(&sb, r)
	writeIssues(&sb, r)

	if len(r.Charts) > 0 {
		sb.WriteString("## Charts\n\n")
		for _, c := range r.Charts {
			name := strings.TrimSuffix(c, ".png")
			sb.WriteString(fmt.Sprintf("![%s](%s)\n\n", name, c))
		}
	}

	return sb.String()
}

func writePerformance(sb *strings.Builder, r *models.Report) {
	cur := r.BaseCurrency

	sb.WriteString("## Performance\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Start Value | %s |\n", common.FormatMoney(r.StartValue, cur)))
	sb.WriteString(fmt.Sprintf("| End Value | %s |\n", common.FormatMoney(r.EndValue, cur)))
	sb.WriteString(fmt.Sprintf("| Net Cash Flow | %s |\n", common.FormatSignedMoney(r.NetCashFlow, cur)))
	sb.WriteString(fmt.Sprintf("| Time-Weighted Return | %s |\n", common.FormatSignedPct(r.TWR)))
	if r.AnnualTWR != nil {
		sb.WriteString(fmt.Sprintf("| Annualised TWR | %s |\n", common.FormatSignedPct(*r.AnnualTWR)))
	} else {
		sb.WriteString("| Annualised TWR | n/a (period under one year) |\n")
	}
	if r.BenchmarkTWR != nil {
		sb.WriteString(fmt.Sprintf("| Benchmark Return | %s |\n", common.FormatSignedPct(*r.BenchmarkTWR)))
		sb.WriteString(fmt.Sprintf("| Excess Return | %s |\n", common.FormatSignedPct(r.TWR-*r.BenchmarkTWR)))
	}
	if r.XIRR != nil {
		sb.WriteString(fmt.Sprintf("| Money-Weighted Return (XIRR) | %s |\n", common.FormatSignedPct(*r.XIRR)))
	}
	sb.WriteString(fmt.Sprintf("| Transactions | %d |\n\n", r.Transactions))
}

func writeRisk(sb *strings.Builder, r *models.Report) {
	sb.WriteString("## Risk\n\n")
	reason := r.RiskError
	if reason == "" {
		reason = "no benchmark data"
	}
	if r.Risk == nil {
		sb.WriteString(fmt.Sprintf("Risk metrics unavailable: %s\n\n", reason))
		return
	}

	m, rel := r.Risk, r.Risk.Relative
	sb.WriteString(fmt.Sprintf("Computed from %d return periods, scaled by %g periods per year.", m.Observations, m.PeriodsPerYear))
	if rel != nil {
		sb.WriteString(fmt.Sprintf(" Benchmark comparison over %d aligned periods.", rel.Observations))
	}
	sb.WriteString("\n\n")

	benchVol, benchDD := "n/a", "n/a"
	if rel != nil {
		benchVol, benchDD = common.FormatPct(rel.BenchmarkVolatility), formatDrawdown(rel.BenchmarkMaxDrawdown)
	}
	sb.WriteString("| Metric | Portfolio | Benchmark |\n")
	sb.WriteString("|--------|-----------|-----------|\n")
	sb.WriteString(fmt.Sprintf("| Volatility | %s | %s |\n", common.FormatPct(m.Volatility), benchVol))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %s | %s |\n", formatDrawdown(m.MaxDrawdown), benchDD))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.2f | |\n", m.SharpeRatio))
	if rel != nil {
		sb.WriteString(fmt.Sprintf("| Beta | %s | 1.00 |\n", formatRatio(rel.Beta, "benchmark flat")))
		sb.WriteString(fmt.Sprintf("| Correlation | %s | |\n", formatRatio(rel.Correlation, "no variation")))
		sb.WriteString(fmt.Sprintf("| Tracking Error | %s | |\n", common.FormatPct(rel.TrackingError)))
	}

	if n := len(r.RollingVol); n > 0 {
		last := r.RollingVol[n-1]
		sb.WriteString(fmt.Sprintf("| Rolling Volatility (%s) | %s | |\n", last.Date.Format("2006-01-02"), common.FormatPct(last.Price)))
	}
	sb.WriteString("\n")
	if rel == nil {
		sb.WriteString(fmt.Sprintf("Benchmark metrics unavailable: %s\n\n", reason))
	}
}

func formatRatio(v *float64, missing string) string {
	if v == nil {
		return "n/a (" + missing + ")"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatDrawdown(d models.Drawdown) string {
	if d.Depth == 0 {
		return "0.00%"
	}
	s := fmt.Sprintf("-%s (%s to %s", common.FormatPct(d.Depth), d.Peak.Format("2006-01-02"), d.Trough.Format("2006-01-02"))
	if d.Recovery.IsZero() {
		return s + ", not recovered)"
	}
	return s + ")"
}

func writePeriodReturns(sb *strings.Builder, r *models.Report) {
	if len(r.Returns) == 0 {
		return
	}

	sb.WriteString("## Period Returns\n\n")
	if len(r.Aligned) > 0 {
		sb.WriteString("| Period End | Portfolio | Benchmark | Excess |\n")
		sb.WriteString("|------------|-----------|-----------|--------|\n")
		for _, a := range r.Aligned {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				a.Date.Format("2006-01-02"),
				common.FormatSignedPct(a.Portfolio),
				common.FormatSignedPct(a.Benchmark),
				common.FormatSignedPct(a.Portfolio-a.Benchmark),
			))
		}
	} else {
		sb.WriteString("| Period End | Portfolio |\n")
		sb.WriteString("|------------|-----------|\n")
		for _, p := range r.Returns {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", p.Date.Format("2006-01-02"), common.FormatSignedPct(p.Return)))
		}
	}
	sb.WriteString("\n")
}

func writeHoldings(sb *strings.Builder, r *models.Report) {
	sb.WriteString("## Holdings\n\n")
	if len(r.Holdings) == 0 {
		sb.WriteString("No open positions.\n\n")
		return
	}

	sb.WriteString("| Product | ISIN | Currency | Quantity |\n")
	sb.WriteString("|---------|------|----------|----------|\n")
	for _, h := range r.Holdings {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", h.Product, h.InstrumentID, h.Currency, h.Quantity.String()))
	}
	sb.WriteString("\n")
}

func writeIssues(sb *strings.Builder, r *models.Report) {
	if len(r.Issues) == 0 {
		return
	}

	filled := 0
	for _, is := range r.Issues {
		if is.Filled {
			filled++
		}
	}

	sb.WriteString("## Data Issues\n\n")
	sb.WriteString(fmt.Sprintf("%d data issues: %d values filled, %d rows dropped.\n\n", len(r.Issues), filled, len(r.Issues)-filled))
	sb.WriteString("| Line | Field | Reason | Action |\n")
	sb.WriteString("|------|-------|--------|--------|\n")
	for i, is := range r.Issues {
		if i == maxIssueRows {
			sb.WriteString(fmt.Sprintf("\n_%d more not shown._\n", len(r.Issues)-maxIssueRows))
			break
		}
		action := "dropped"
		if is.Filled {
			action = "filled"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n", is.Line, is.Field, is.Reason, action))
	}
	sb.WriteString("\n")
}
