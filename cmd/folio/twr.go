package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/ingest"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/returns"
)

type twrCmd struct {
	decimalSep string
}

func (*twrCmd) Name() string     { return "twr" }
func (*twrCmd) Synopsis() string { return "time-weighted return of a valuation CSV" }
func (*twrCmd) Usage() string {
	return `folio twr [-sep ,|.] <valuations.csv>

  Computes the time-weighted return of pre-computed portfolio values. The
  CSV has a date,value header and an optional cash_flow column holding the
  external flow since the previous row.

Usage Examples:
$ folio twr valuations.csv

`
}

func (c *twrCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.decimalSep, "sep", ".", "Decimal separator used in the file")
}

func (c *twrCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected one valuation CSV")
		return subcommands.ExitUsageError
	}

	points, err := ingest.ReadValuationsFile(f.Arg(0), c.decimalSep)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	res, err := returns.CalculateTWR(points)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(twrMarkdown(points, res))
	return subcommands.ExitSuccess
}

func twrMarkdown(points []models.ValuationPoint, res *returns.Result) string {
	var sb strings.Builder

	sb.WriteString("# Time-Weighted Return\n\n")
	sb.WriteString(fmt.Sprintf("**TWR:** %s over %d periods\n", common.FormatSignedPct(res.TWR), len(res.Series)))
	if days := returns.Days(res.Series); days >= 365 {
		sb.WriteString(fmt.Sprintf("**Annualised:** %s\n", common.FormatSignedPct(returns.Annualise(res.TWR, days))))
	}
	if xirr, ok := returns.CalculateXIRR(returns.FlowsFromValuations(points)); ok {
		sb.WriteString(fmt.Sprintf("**XIRR:** %s\n", common.FormatSignedPct(xirr)))
	}

	if len(res.Series) > 0 {
		sb.WriteString("\n| Start | End | Return |\n")
		sb.WriteString("|-------|-----|--------|\n")
		for _, p := range res.Series {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", p.Start.Format("2006-01-02"), p.Date.Format("2006-01-02"), common.FormatSignedPct(p.Return)))
		}
	}
	return sb.String()
}
