// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package positionsoverview implements the "positions overview" command.
package positionsoverview

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/ibjournalcmd"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalpositions"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalstore"
	"github.com/bufdev/ibjournal/internal/pkg/cliio"
	"github.com/bufdev/ibjournal/internal/pkg/ibkrstatement"
	"github.com/bufdev/ibjournal/internal/pkg/moneyfmt"
	"github.com/spf13/pflag"
)

// NewCommand returns a new positions overview command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " <statement.csv>",
		Short: "Display a statement's positions grouped by underlying",
		Long: `Display a statement's open positions grouped by underlying, with options
grouped under their root symbol.

The reported quantities are verified against the net quantities of the stored
trades of the statement's account, and any discrepancies are logged as warnings.`,
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
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibjournalcmd.BindDirFlag(flagSet, &f.Dir)
	ibjournalcmd.BindFormatFlag(flagSet, &f.Format)
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	format, err := ibjournalcmd.ParseFormat(flags.Format)
	if err != nil {
		return err
	}
	statement, err := ibkrstatement.ParseFile(container.Logger(), container.Arg(0))
	if err != nil {
		return err
	}
	if err := verifyPositions(ctx, container, flags.Dir, statement); err != nil {
		return err
	}
	overview := ibjournalpositions.Aggregate(statement.Positions)
	headers := ibjournalpositions.GroupHeaders()
	rows := make([][]string, 0, len(overview.Groups))
	for _, group := range overview.Groups {
		rows = append(rows, ibjournalpositions.GroupToRow(group))
	}
	writer := container.Stdout()
	switch format {
	case cliio.FormatTable:
		currency := statement.AccountInfo.BaseCurrency
		if currency == ibkrstatement.Unknown {
			currency = ""
		}
		totalsRow := make([]string, len(headers))
		totalsRow[0] = "TOTAL"
		totalsRow[4] = moneyfmt.Format(overview.MarketValue, currency)
		totalsRow[5] = moneyfmt.Format(overview.UnrealizedPL, currency)
		return cliio.WriteTableWithTotals(writer, headers, rows, totalsRow)
	default:
		return cliio.Write(writer, format, headers, rows, overview)
	}
}

// verifyPositions logs discrepancies between the statement's positions and
// the stored trades of its account.
func verifyPositions(
	ctx context.Context,
	container appext.Container,
	dir string,
	statement *ibkrstatement.Statement,
) (retErr error) {
	logger := container.Logger()
	accountID := statement.AccountInfo.AccountID
	if accountID == ibkrstatement.Unknown {
		logger.Warn("statement has no account ID, skipping position verification")
		return nil
	}
	journal, err := ibjournalcmd.OpenJournal(ctx, container, dir)
	if err != nil {
		return err
	}
	defer ibjournalcmd.CloseJournal(journal, &retErr)
	trades, err := journal.Store.ListTrades(ctx, ibjournalstore.TradeFilter{AccountID: accountID})
	if err != nil {
		return err
	}
	discrepancies := ibjournalpositions.Verify(trades, statement.Positions)
	for _, discrepancy := range discrepancies {
		logDiscrepancy(container, discrepancy)
	}
	if len(discrepancies) == 0 {
		logger.Info("all positions verified successfully", "account", accountID)
	}
	return nil
}

// logDiscrepancy logs a structured position discrepancy as a warning.
func logDiscrepancy(container appext.Container, d ibjournalpositions.Discrepancy) {
	logger := container.Logger()
	switch d.Type {
	case ibjournalpositions.DiscrepancyTypeQuantity:
		logger.Warn("position quantity mismatch",
			"account", d.AccountID,
			"symbol", d.Symbol,
			"computed", d.ComputedQuantity,
			"reported", d.ReportedQuantity,
		)
	case ibjournalpositions.DiscrepancyTypeComputedOnly:
		logger.Warn("position computed from trades but not reported",
			"account", d.AccountID,
			"symbol", d.Symbol,
			"computed_quantity", d.ComputedQuantity,
		)
	case ibjournalpositions.DiscrepancyTypeReportedOnly:
		logger.Warn("position reported but not in stored trades",
			"account", d.AccountID,
			"symbol", d.Symbol,
			"reported_quantity", d.ReportedQuantity,
		)
	}
}
