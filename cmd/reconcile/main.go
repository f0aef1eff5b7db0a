// Package main provides the offline reconciliation CLI. It computes portfolios
// from snapshot files and imports snapshots into the record store.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&computeCmd{}, "")
	commander.Register(&summaryCmd{}, "")
	commander.Register(&importCmd{}, "store")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
