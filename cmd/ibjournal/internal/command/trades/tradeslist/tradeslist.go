// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package tradeslist implements the "trades list" command.
package tradeslist

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/ibjournalcmd"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalstore"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/pkg/cliio"
	"github.com/bufdev/ibjournal/internal/standard/xtime"
	"github.com/spf13/pflag"
)

const (
	symbolFlagName  = "symbol"
	accountFlagName = "account"
	fromFlagName    = "from"
	toFlagName      = "to"
)

// NewCommand returns a new trades list command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List stored trades ordered by trade date",
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
	// Symbol filters by symbol or option symbol.
	Symbol string
	// Account filters by account ID.
	Account string
	// From is the first trade date, YYYY-MM-DD.
	From string
	// To is the last trade date, YYYY-MM-DD.
	To string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibjournalcmd.BindDirFlag(flagSet, &f.Dir)
	ibjournalcmd.BindFormatFlag(flagSet, &f.Format)
	flagSet.StringVar(&f.Symbol, symbolFlagName, "", "Only list trades of this symbol or option symbol")
	flagSet.StringVar(&f.Account, accountFlagName, "", "Only list trades of this account")
	flagSet.StringVar(&f.From, fromFlagName, "", "Only list trades on or after this date (YYYY-MM-DD)")
	flagSet.StringVar(&f.To, toFlagName, "", "Only list trades on or before this date (YYYY-MM-DD)")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	format, err := ibjournalcmd.ParseFormat(flags.Format)
	if err != nil {
		return err
	}
	filter := ibjournalstore.TradeFilter{
		Symbol:    flags.Symbol,
		AccountID: flags.Account,
	}
	if filter.From, err = parseDateFlag(fromFlagName, flags.From); err != nil {
		return err
	}
	if filter.To, err = parseDateFlag(toFlagName, flags.To); err != nil {
		return err
	}
	journal, err := ibjournalcmd.OpenJournal(ctx, container, flags.Dir)
	if err != nil {
		return err
	}
	defer ibjournalcmd.CloseJournal(journal, &retErr)
	trades, err := journal.Store.ListTrades(ctx, filter)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(trades))
	for _, trade := range trades {
		rows = append(rows, ibjournaltrade.ToRow(trade))
	}
	return cliio.Write(container.Stdout(), format, ibjournaltrade.Headers(), rows, trades...)
}

func parseDateFlag(flagName string, value string) (xtime.Date, error) {
	if value == "" {
		return xtime.Date{}, nil
	}
	date, err := xtime.ParseDate(value)
	if err != nil {
		return xtime.Date{}, appcmd.NewInvalidArgumentErrorf("--%s: %v", flagName, err)
	}
	return date, nil
}
