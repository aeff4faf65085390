package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/ingest"
	"github.com/bobmcallan/folio/internal/models"
)

type holdingsCmd struct {
	transactions string
	policy       string
	issues       bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "normalise the transaction export and list open positions" }
func (*holdingsCmd) Usage() string {
	return `folio holdings [-t <transactions.csv>] [-policy skip|fill|fail] [-issues]

  Reads the transaction export, applies the missing-value policy and prints
  the open positions. With -issues, every skipped or filled row is listed.

`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.transactions, "t", "", "DEGIRO transaction export (CSV)")
	f.StringVar(&c.policy, "policy", "", "Missing-value policy: skip, fill or fail")
	f.BoolVar(&c.issues, "issues", false, "List data issues")
}

func (c *holdingsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := common.LoadConfig(app.ResolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.transactions != "" {
		cfg.Input.Transactions = c.transactions
	}
	if c.policy != "" {
		cfg.Input.MissingValues = c.policy
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	normalizer := ingest.NewNormalizer(ingest.Options{
		BaseCurrency:     cfg.BaseCurrency,
		Policy:           ingest.Policy(cfg.Input.MissingValues),
		DecimalSeparator: cfg.Input.DecimalSeparator,
	}, common.NewLoggerFromConfig(cfg.Logging))

	res, err := normalizer.NormalizeFile(cfg.Input.Transactions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(holdingsMarkdown(res, c.issues))
	return subcommands.ExitSuccess
}

func holdingsMarkdown(res *ingest.Result, withIssues bool) string {
	var sb strings.Builder
	holdings := ingest.Snapshot(res.Transactions)

	sb.WriteString("# Holdings\n\n")
	sb.WriteString(fmt.Sprintf("%d rows read, %d transactions, %d issues.\n\n", res.Rows, len(res.Transactions), len(res.Issues)))
	if len(holdings) == 0 {
		sb.WriteString("No open positions.\n")
	} else {
		sb.WriteString("| Product | ISIN | Currency | Quantity |\n")
		sb.WriteString("|---------|------|----------|----------|\n")
		for _, h := range holdings {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", h.Product, h.InstrumentID, h.Currency, h.Quantity.String()))
		}
	}

	if withIssues && len(res.Issues) > 0 {
		sb.WriteString("\n## Issues\n\n")
		sb.WriteString("| Line | Field | Reason | Action |\n")
		sb.WriteString("|------|-------|--------|--------|\n")
		for _, is := range res.Issues {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n", is.Line, is.Field, is.Reason, issueAction(is)))
		}
	}
	return sb.String()
}

func issueAction(is models.Issue) string {
	if is.Filled {
		return "filled"
	}
	return "dropped"
}
