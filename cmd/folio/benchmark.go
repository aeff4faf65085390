package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/returns"
)

type benchmarkCmd struct {
	ticker string
	from   string
	to     string
	last   int
}

func (*benchmarkCmd) Name() string     { return "benchmark" }
func (*benchmarkCmd) Synopsis() string { return "fetch and cache a benchmark price series" }
func (*benchmarkCmd) Usage() string {
	return `folio benchmark [-b <ticker>] [-from <date>] [-to <date>] [-n <rows>]

  Fetches daily closes for the benchmark from EODHD (or the local cache when
  it is fresh) and prints the price return over the range.

`
}

func (c *benchmarkCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "b", "", "Benchmark ticker (default from config)")
	f.StringVar(&c.from, "from", "", "Start date (YYYY-MM-DD, default one year ago)")
	f.StringVar(&c.to, "to", "", "End date (YYYY-MM-DD, default today)")
	f.IntVar(&c.last, "n", 10, "Number of most recent closes to print")
}

func (c *benchmarkCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	ticker := c.ticker
	if ticker == "" {
		ticker = a.Config.Benchmark.Ticker
	}
	to := time.Now()
	if c.to != "" {
		if to, err = time.Parse("2006-01-02", c.to); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -to: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	from := to.AddDate(-1, 0, 0)
	if c.from != "" {
		if from, err = time.Parse("2006-01-02", c.from); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -from: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	series, err := a.Benchmark.Fetch(ctx, ticker, from, to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(benchmarkMarkdown(series, c.last))
	return subcommands.ExitSuccess
}

func benchmarkMarkdown(series *models.BenchmarkSeries, last int) string {
	var sb strings.Builder
	points := series.Points
	first, final := points[0], points[len(points)-1]

	sb.WriteString(fmt.Sprintf("# Benchmark: %s\n\n", series.Ticker))
	sb.WriteString(fmt.Sprintf("**Range:** %s to %s (%d closes)\n", first.Date.Format("2006-01-02"), final.Date.Format("2006-01-02"), len(points)))
	if r, err := returns.SimpleReturn(first.Price, final.Price); err == nil {
		sb.WriteString(fmt.Sprintf("**Price Return:** %s\n", common.FormatSignedPct(r)))
	}
	sb.WriteString("\n| Date | Close |\n")
	sb.WriteString("|------|-------|\n")

	start := len(points) - last
	if last <= 0 || start < 0 {
		start = 0
	}
	for i := len(points) - 1; i >= start; i-- {
		sb.WriteString(fmt.Sprintf("| %s | %.2f |\n", points[i].Date.Format("2006-01-02"), points[i].Price))
	}
	return sb.String()
}
