package report

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/risk"
	"github.com/bobmcallan/folio/internal/signals"
)

const (
	chartWidth  = 900
	chartHeight = 400
)

var (
	portfolioColor = drawing.ColorFromHex("2563eb") // blue-600
	benchmarkColor = drawing.ColorFromHex("9ca3af") // gray-400
	averageColor   = drawing.ColorFromHex("f59e0b") // amber-500
	drawdownColor  = drawing.ColorFromHex("dc2626") // red-600
)

// RenderEquityChart renders the growth of one unit invested in the portfolio
// and the benchmark. A moving average of the portfolio curve is overlaid when
// maWindow is greater than one and the curve is long enough.
func RenderEquityChart(portfolio, benchmark []models.PricePoint, maWindow int) ([]byte, error) {
	if len(portfolio) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(portfolio))
	}

	series := []chart.Series{
		timeSeries("Portfolio", portfolio, chart.Style{
			StrokeColor: portfolioColor,
			StrokeWidth: 2.5,
		}),
	}
	if len(benchmark) >= 2 {
		series = append(series, timeSeries("Benchmark", benchmark, chart.Style{
			StrokeColor:     benchmarkColor,
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		}))
	}
	if ma := signals.MovingAverage(portfolio, maWindow); len(ma) >= 2 {
		series = append(series, timeSeries(fmt.Sprintf("%d-period average", maWindow), ma, chart.Style{
			StrokeColor: averageColor,
			StrokeWidth: 1.5,
		}))
	}

	return render(lineChart("Growth of 1", series, nil, func(f float64) string {
		return fmt.Sprintf("%.2f", f)
	}))
}

// RenderDrawdownChart renders the distance below the running peak of a
// growth curve.
func RenderDrawdownChart(curve []models.PricePoint) ([]byte, error) {
	if len(curve) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(curve))
	}

	dd := risk.DrawdownSeries(curve)
	lowest := 0.0
	for _, p := range dd {
		lowest = math.Min(lowest, p.Price)
	}
	// a curve that never falls has a flat zero series
	yRange := &chart.ContinuousRange{Min: math.Min(lowest*1.1, -0.01), Max: 0}

	series := []chart.Series{
		timeSeries("Drawdown", dd, chart.Style{
			StrokeColor: drawdownColor,
			FillColor:   drawdownColor.WithAlpha(64),
			StrokeWidth: 1.5,
		}),
	}
	return render(lineChart("Drawdown", series, yRange, func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100)
	}))
}

// RenderVolatilityChart renders the rolling annualised volatility.
func RenderVolatilityChart(points []models.PricePoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	hi := 0.0
	for _, p := range points {
		hi = math.Max(hi, p.Price)
	}
	yRange := &chart.ContinuousRange{Min: 0, Max: math.Max(hi*1.1, 0.01)}

	series := []chart.Series{
		timeSeries("Rolling volatility", points, chart.Style{
			StrokeColor: portfolioColor,
			StrokeWidth: 2,
		}),
	}
	return render(lineChart("Rolling Volatility", series, yRange, func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100)
	}))
}

func timeSeries(name string, points []models.PricePoint, style chart.Style) chart.TimeSeries {
	xValues := make([]time.Time, len(points))
	yValues := make([]float64, len(points))
	for i, p := range points {
		xValues[i] = p.Date
		yValues[i] = p.Price
	}
	return chart.TimeSeries{Name: name, Style: style, XValues: xValues, YValues: yValues}
}

func lineChart(title string, series []chart.Series, yRange chart.Range, yFormat func(float64) string) *chart.Chart {
	graph := &chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Range: yRange,
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return yFormat(f)
				}
				return ""
			},
		},
		Series: series,
	}
	if len(series) > 1 {
		graph.Elements = []chart.Renderable{chart.LegendLeft(graph)}
	}
	return graph
}

func render(graph *chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Heatmap layout, in pixels
const (
	heatCellHeight = 22
	heatLabelWidth = 220
	heatTopMargin  = 40
	heatMargin     = 10
	heatMaxWidth   = 1200
)

// RenderExposureHeatmap draws one row per instrument and one column per
// valuation date. Cell intensity is the instrument's share of the portfolio
// value on that date.
func RenderExposureHeatmap(points []models.ValuationPoint) ([]byte, error) {
	instruments, weights := exposureWeights(points)
	if len(instruments) == 0 || len(points) == 0 {
		return nil, fmt.Errorf("no exposure data")
	}

	cellWidth := (heatMaxWidth - heatLabelWidth - 2*heatMargin) / len(points)
	if cellWidth < 1 {
		cellWidth = 1
	}
	if cellWidth > 40 {
		cellWidth = 40
	}
	width := heatLabelWidth + cellWidth*len(points) + 2*heatMargin
	height := heatTopMargin + heatCellHeight*len(instruments) + 2*heatMargin + heatCellHeight

	r, err := chart.PNG(width, height)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	r.SetFont(font)
	r.SetFontColor(drawing.ColorBlack)

	fillRect(r, 0, 0, width, height, drawing.ColorWhite)

	r.SetFontSize(12)
	r.Text("Exposure by instrument", heatMargin, heatTopMargin/2+6)

	r.SetFontSize(9)
	for row, name := range instruments {
		y := heatTopMargin + row*heatCellHeight
		r.Text(truncateLabel(name, 34), heatMargin, y+heatCellHeight/2+4)
		for col := range points {
			x := heatLabelWidth + col*cellWidth
			fillRect(r, x, y, cellWidth, heatCellHeight-1, heatColor(weights[row][col]))
		}
	}

	// first and last date under the grid
	footer := heatTopMargin + len(instruments)*heatCellHeight + heatCellHeight - 6
	r.Text(points[0].Date.Format("2006-01-02"), heatLabelWidth, footer)
	if len(points) > 1 {
		last := points[len(points)-1].Date.Format("2006-01-02")
		box := r.MeasureText(last)
		r.Text(last, heatLabelWidth+cellWidth*len(points)-box.Width(), footer)
	}

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// exposureWeights returns the instruments ever held, sorted by name, and the
// weight of each on every valuation date.
func exposureWeights(points []models.ValuationPoint) ([]string, [][]float64) {
	seen := make(map[string]bool)
	for _, p := range points {
		for name := range p.Exposure {
			seen[name] = true
		}
	}
	instruments := make([]string, 0, len(seen))
	for name := range seen {
		instruments = append(instruments, name)
	}
	sort.Strings(instruments)

	weights := make([][]float64, len(instruments))
	for i, name := range instruments {
		weights[i] = make([]float64, len(points))
		for j, p := range points {
			if p.Value > 0 {
				weights[i][j] = p.Exposure[name] / p.Value
			}
		}
	}
	return instruments, weights
}

func fillRect(r chart.Renderer, x, y, w, h int, c drawing.Color) {
	r.SetFillColor(c)
	r.SetStrokeColor(c)
	r.SetStrokeWidth(0)
	r.MoveTo(x, y)
	r.LineTo(x+w, y)
	r.LineTo(x+w, y+h)
	r.LineTo(x, y+h)
	r.Close()
	r.Fill()
}

// heatColor blends from near-white to blue-600 as the weight goes to 1.
func heatColor(weight float64) drawing.Color {
	w := math.Max(0, math.Min(1, weight))
	lerp := func(from, to uint8) uint8 {
		return uint8(float64(from) + (float64(to)-float64(from))*w)
	}
	return drawing.Color{
		R: lerp(0xf3, portfolioColor.R),
		G: lerp(0xf4, portfolioColor.G),
		B: lerp(0xf6, portfolioColor.B),
		A: 255,
	}
}

func truncateLabel(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
