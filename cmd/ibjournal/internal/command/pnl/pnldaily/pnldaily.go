// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package pnldaily implements the "pnl daily" command.
package pnldaily

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/ibjournalcmd"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalpnl"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalstore"
	"github.com/bufdev/ibjournal/internal/pkg/cliio"
	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
	"github.com/spf13/pflag"
)

// bySymbolFlagName is the flag name for splitting the report by symbol.
const bySymbolFlagName = "by-symbol"

// NewCommand returns a new pnl daily command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Report trade count and realized P&L per trading day",
		Args:  appcmd.NoArgs,
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
	// BySymbol reports realized P&L per symbol and day.
	BySymbol bool
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibjournalcmd.BindDirFlag(flagSet, &f.Dir)
	ibjournalcmd.BindFormatFlag(flagSet, &f.Format)
	flagSet.BoolVar(&f.BySymbol, bySymbolFlagName, false, "Report realized P&L per symbol and day")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	format, err := ibjournalcmd.ParseFormat(flags.Format)
	if err != nil {
		return err
	}
	journal, err := ibjournalcmd.OpenJournal(ctx, container, flags.Dir)
	if err != nil {
		return err
	}
	defer ibjournalcmd.CloseJournal(journal, &retErr)
	trades, err := journal.Store.ListTrades(ctx, ibjournalstore.TradeFilter{})
	if err != nil {
		return err
	}
	if flags.BySymbol {
		dailyPnLs, err := ibjournalpnl.DailyBySymbol(trades)
		if err != nil {
			return err
		}
		var total float64
		rows := make([][]string, 0, len(dailyPnLs))
		for _, dailyPnL := range dailyPnLs {
			rows = append(rows, ibjournalpnl.DailyPnLToRow(dailyPnL))
			total = mathdec.Sum(total, dailyPnL.PnL)
		}
		return write(container, format, ibjournalpnl.DailyPnLHeaders(), rows, []string{"TOTAL", "", mathdec.ToString(total)}, dailyPnLs)
	}
	summaries, err := ibjournalpnl.Daily(trades)
	if err != nil {
		return err
	}
	var total float64
	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		rows = append(rows, ibjournalpnl.DailySummaryToRow(summary))
		total = mathdec.Sum(total, summary.RealizedPnL)
	}
	return write(container, format, ibjournalpnl.DailySummaryHeaders(), rows, []string{"TOTAL", "", mathdec.ToString(total)}, summaries)
}

func write[T any](
	container appext.Container,
	format cliio.Format,
	headers []string,
	rows [][]string,
	totalsRow []string,
	objects []T,
) error {
	writer := container.Stdout()
	switch format {
	case cliio.FormatTable:
		return cliio.WriteTableWithTotals(writer, headers, rows, totalsRow)
	default:
		return cliio.Write(writer, format, headers, rows, objects...)
	}
}
