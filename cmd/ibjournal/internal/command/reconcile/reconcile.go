// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package reconcile implements the "reconcile" command.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/ibjournalcmd"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalpnl"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalreconcile"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalstore"
	"github.com/bufdev/ibjournal/internal/pkg/cliio"
	"github.com/spf13/pflag"
)

// toleranceFlagName is the flag name for the match tolerance.
const toleranceFlagName = "tolerance"

// NewCommand returns a new reconcile command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " <authoritative.csv>",
		Short: "Reconcile daily P&L per symbol against an authoritative record",
		Long: `Reconcile the daily realized P&L per symbol computed from stored trades
against an authoritative record.

The authoritative record is a CSV file without a header whose rows are
symbol,date,pnl with dates in YYYY-MM-DD format. Rows for the same symbol and
date are summed. The command fails if any key does not match.`,
		Args: appcmd.ExactArgs(1),
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// Dir is the ibjournal directory containing ibjournal.yaml.
	Dir string
	// Format is the output format (table, csv, json).
	Format string
	// Tolerance overrides the configured tolerance when non-negative.
	Tolerance float64
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibjournalcmd.BindDirFlag(flagSet, &f.Dir)
	ibjournalcmd.BindFormatFlag(flagSet, &f.Format)
	flagSet.Float64Var(&f.Tolerance, toleranceFlagName, -1, "The largest absolute P&L difference that is a match (default from config)")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	format, err := ibjournalcmd.ParseFormat(flags.Format)
	if err != nil {
		return err
	}
	if math.IsNaN(flags.Tolerance) || math.IsInf(flags.Tolerance, 0) {
		return appcmd.NewInvalidArgumentErrorf("--%s must be a number", toleranceFlagName)
	}
	authoritative, err := readAuthoritative(container.Arg(0))
	if err != nil {
		return err
	}
	journal, err := ibjournalcmd.OpenJournal(ctx, container, flags.Dir)
	if err != nil {
		return err
	}
	defer ibjournalcmd.CloseJournal(journal, &retErr)
	tolerance := journal.Config.ReconcileTolerance
	if flags.Tolerance >= 0 {
		tolerance = flags.Tolerance
	}
	trades, err := journal.Store.ListTrades(ctx, ibjournalstore.TradeFilter{})
	if err != nil {
		return err
	}
	local, err := ibjournalpnl.DailyBySymbol(trades)
	if err != nil {
		return err
	}
	report := ibjournalreconcile.Reconcile(local, authoritative, tolerance)
	reportRows := report.Rows()
	rows := make([][]string, 0, len(reportRows))
	for _, reportRow := range reportRows {
		rows = append(rows, ibjournalreconcile.ReportRowToRow(reportRow))
	}
	if err := cliio.Write(container.Stdout(), format, ibjournalreconcile.ReportRowHeaders(), rows, report); err != nil {
		return err
	}
	if !report.IsClean() {
		return fmt.Errorf(
			"reconciliation found %d mismatched, %d local-only, and %d authoritative-only entries",
			len(report.Mismatched),
			len(report.LocalOnly),
			len(report.AuthoritativeOnly),
		)
	}
	container.Logger().Info("reconciliation clean", "matched", len(report.Matched), "tolerance", tolerance)
	return nil
}

func readAuthoritative(filePath string) (_ []ibjournalpnl.DailyPnL, retErr error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		retErr = errors.Join(retErr, file.Close())
	}()
	authoritative, err := ibjournalreconcile.ParseAuthoritative(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return authoritative, nil
}
