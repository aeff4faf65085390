// Command folio analyses a broker transaction export: time-weighted return,
// risk against a benchmark, charts and a markdown report.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", "", "Path to folio.toml (default: $FOLIO_CONFIG, then folio.toml next to the binary)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&analyzeCmd{}, "analysis")
	commander.Register(&twrCmd{}, "analysis")
	commander.Register(&holdingsCmd{}, "data")
	commander.Register(&benchmarkCmd{}, "data")
	commander.Register(&versionCmd{}, "")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(int(commander.Execute(ctx)))
}
