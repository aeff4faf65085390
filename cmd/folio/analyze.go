package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/services/report"
)

type analyzeCmd struct {
	transactions string
	valuations   string
	benchmark    string
	from         string
	to           string
	frequency    string
	outputDir    string
	noCharts     bool
	html         bool
	quiet        bool
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "compute returns and risk, write charts and a report" }
func (*analyzeCmd) Usage() string {
	return `folio analyze [-t <transactions.csv>] [-v <valuations.csv>] [-b <ticker>] [-from <date>] [-to <date>]

  Normalises the transaction export, values the portfolio on each reporting
  date, computes the time-weighted return and risk metrics against the
  benchmark, then writes charts and the report (report.md, plus report.json
  and report.html when enabled) to the output directory. Flags override the
  matching config values.

Usage Examples:
$ folio analyze -t Transactions.csv -b GSPC.INDX
$ folio analyze -v valuations.csv -from 2023-01-01

`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.transactions, "t", "", "DEGIRO transaction export (CSV)")
	f.StringVar(&c.valuations, "v", "", "Valuation CSV (date,value,cash_flow); bypasses pricing")
	f.StringVar(&c.benchmark, "b", "", "Benchmark ticker, e.g. GSPC.INDX")
	f.StringVar(&c.from, "from", "", "Start of the analysis (YYYY-MM-DD)")
	f.StringVar(&c.to, "to", "", "End of the analysis (YYYY-MM-DD)")
	f.StringVar(&c.frequency, "freq", "", "Reporting frequency: daily, weekly or monthly")
	f.StringVar(&c.outputDir, "o", "", "Output directory")
	f.BoolVar(&c.noCharts, "no-charts", false, "Skip PNG charts")
	f.BoolVar(&c.html, "html", false, "Also write report.html")
	f.BoolVar(&c.quiet, "q", false, "Do not print the report")
}

func (c *analyzeCmd) apply(cfg *common.Config) error {
	if c.transactions != "" {
		cfg.Input.Transactions = c.transactions
	}
	if c.valuations != "" {
		cfg.Input.Valuations = c.valuations
	}
	if c.benchmark != "" {
		cfg.Benchmark.Ticker = c.benchmark
	}
	if c.from != "" {
		cfg.Analysis.From = c.from
	}
	if c.to != "" {
		cfg.Analysis.To = c.to
	}
	if c.frequency != "" {
		cfg.Analysis.Frequency = c.frequency
	}
	if c.outputDir != "" {
		cfg.Output.Dir = c.outputDir
	}
	if c.noCharts {
		cfg.Output.Charts = false
	}
	if c.html {
		cfg.Output.HTML = true
	}
	return cfg.Validate()
}

func (c *analyzeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := common.LoadConfig(app.ResolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := c.apply(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)
	a, err := app.NewAppWithConfig(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	runID := app.NewRunID()
	if !c.quiet {
		common.PrintBanner(os.Stderr, cfg, logger, runID)
	}

	r, err := a.Analyze(ctx, runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: analysis failed: %v\n", err)
		return subcommands.ExitFailure
	}

	written, err := a.Reports.Write(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		return subcommands.ExitFailure
	}

	if !c.quiet {
		printMarkdown(report.FormatMarkdown(r))
	}
	for _, p := range written {
		fmt.Fprintf(os.Stderr, "wrote %s\n", p)
	}
	return subcommands.ExitSuccess
}
