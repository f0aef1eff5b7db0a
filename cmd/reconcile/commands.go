package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/portfolio-reconciler/internal/config"
	"github.com/portfolio-reconciler/internal/logging"
	"github.com/portfolio-reconciler/internal/models"
	"github.com/portfolio-reconciler/internal/service"
	"github.com/portfolio-reconciler/internal/storage"
	"github.com/portfolio-reconciler/internal/types"
	"github.com/shopspring/decimal"
)

// engineFlags are shared by the commands that run the engine
type engineFlags struct {
	snapshot   string
	investor   string
	now        string
	multiplier string
}

func (e *engineFlags) register(f *flag.FlagSet) {
	f.StringVar(&e.snapshot, "f", "-", "Snapshot JSON file ({tokens, reports, profiles}); - reads stdin.")
	f.StringVar(&e.investor, "investor", "", "Investor identity to reconcile.")
	f.StringVar(&e.now, "now", "", "Evaluation time as RFC 3339 (defaults to the current time).")
	f.StringVar(&e.multiplier, "multiplier", config.DefaultGrowthMultiplier.String(), "Growth multiplier applied to invested capital.")
}

func (e *engineFlags) compute(stdin io.Reader) (*types.PortfolioAggregate, error) {
	if strings.TrimSpace(e.investor) == "" {
		return nil, fmt.Errorf("-investor is required")
	}

	now := time.Now().UTC()
	if e.now != "" {
		parsed, err := time.Parse(time.RFC3339, e.now)
		if err != nil {
			return nil, fmt.Errorf("invalid -now: %w", err)
		}
		now = parsed.UTC()
	}

	multiplier, err := decimal.NewFromString(e.multiplier)
	if err != nil {
		return nil, fmt.Errorf("invalid -multiplier: %w", err)
	}

	snapshot, err := readSnapshot(e.snapshot, stdin)
	if err != nil {
		return nil, err
	}

	return service.ComputePortfolio(service.Input{
		Investor: e.investor,
		Tokens:   snapshot.Tokens,
		Reports:  snapshot.Reports,
		Profiles: service.NewProfileDirectory(snapshot.Profiles),
		Now:      now,
		Options:  service.Options{GrowthMultiplier: multiplier},
	}), nil
}

// readSnapshot decodes a snapshot from a file, or from stdin when name is "-"
func readSnapshot(name string, stdin io.Reader) (*models.Snapshot, error) {
	r := stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot: %w", err)
		}
		defer f.Close()
		r = f
	}

	var snapshot models.Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

type computeCmd struct {
	engineFlags
	compact bool
}

func (*computeCmd) Name() string     { return "compute" }
func (*computeCmd) Synopsis() string { return "print the portfolio aggregate of an investor as JSON" }
func (*computeCmd) Usage() string {
	return `reconcile compute -investor <identity> [-f <snapshot.json>] [-now <time>] [-multiplier <m>] [-compact]

  Reconciles the token, revenue report and profile records of a snapshot
  file against one investor and prints the resulting aggregate.
`
}

func (c *computeCmd) SetFlags(f *flag.FlagSet) {
	c.engineFlags.register(f)
	f.BoolVar(&c.compact, "compact", false, "Print JSON on a single line.")
}

func (c *computeCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	agg, err := c.compute(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	enc := json.NewEncoder(os.Stdout)
	if !c.compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(agg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	engineFlags
	currency string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print a human readable portfolio report" }
func (*summaryCmd) Usage() string {
	return `reconcile summary -investor <identity> [-f <snapshot.json>] [-now <time>] [-currency <ISO 4217>]

  Prints totals, holdings, diversification and payout history with amounts
  formatted in the given currency.
`
}

func (s *summaryCmd) SetFlags(f *flag.FlagSet) {
	s.engineFlags.register(f)
	f.StringVar(&s.currency, "currency", "USD", "ISO 4217 currency of the minor unit amounts.")
}

func (s *summaryCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	agg, err := s.compute(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	if err := renderSummary(os.Stdout, agg, s.currency); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type importCmd struct {
	snapshot string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "load a snapshot file into the Postgres record store" }
func (*importCmd) Usage() string {
	return `reconcile import [-f <snapshot.json>]

  Upserts the tokens and profiles of a snapshot and replaces its revenue
  reports. Connection settings come from the environment (see .env.example).
`
}

func (i *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&i.snapshot, "f", "-", "Snapshot JSON file; - reads stdin.")
}

func (i *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()

	snapshot, err := readSnapshot(i.snapshot, os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	db, err := storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to Postgres")
		return subcommands.ExitFailure
	}
	defer db.Close()

	if err := storage.NewSnapshotRepository(db).ImportSnapshot(ctx, snapshot); err != nil {
		logger.WithError(err).Error("Snapshot import failed")
		return subcommands.ExitFailure
	}

	logger.WithFields(map[string]interface{}{
		"tokens":   len(snapshot.Tokens),
		"reports":  len(snapshot.Reports),
		"profiles": len(snapshot.Profiles),
	}).Info("Snapshot imported")
	return subcommands.ExitSuccess
}
