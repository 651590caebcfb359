// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package statementinspect implements the "statement inspect" command.
package statementinspect

import (
	"context"
	"fmt"
	"io"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/ibjournalcmd"
	"github.com/bufdev/ibjournal/internal/pkg/cliio"
	"github.com/bufdev/ibjournal/internal/pkg/ibkrstatement"
	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
	"github.com/bufdev/ibjournal/internal/pkg/moneyfmt"
	"github.com/spf13/pflag"
)

// NewCommand returns a new statement inspect command that prints what would be
// extracted from a statement without importing it.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " <statement.csv>",
		Short: "Print the account, trades, positions, and P&L extracted from a statement",
		Long: `Print the account, trades, positions, and cumulative P&L extracted from an
IBKR Activity Statement CSV without importing it.

With --format=csv, only the trades are printed.`,
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
	// Format is the output format (table, csv, json).
	Format string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibjournalcmd.BindFormatFlag(flagSet, &f.Format)
}

func run(_ context.Context, container appext.Container, flags *flags) error {
	format, err := ibjournalcmd.ParseFormat(flags.Format)
	if err != nil {
		return err
	}
	statement, err := ibkrstatement.ParseFile(container.Logger(), container.Arg(0))
	if err != nil {
		return err
	}
	writer := container.Stdout()
	switch format {
	case cliio.FormatTable:
		return writeTables(writer, statement)
	case cliio.FormatCSV:
		rows := make([][]string, 0, len(statement.Trades))
		for i := range statement.Trades {
			rows = append(rows, tradeToRow(&statement.Trades[i]))
		}
		return cliio.WriteCSVRecords(writer, cliio.Records(tradeHeaders(), rows))
	case cliio.FormatJSON:
		return cliio.WriteJSON(writer, statement)
	default:
		return appcmd.NewInvalidArgumentErrorf("unsupported format: %s", format)
	}
}

func writeTables(writer io.Writer, statement *ibkrstatement.Statement) error {
	accountInfo := statement.AccountInfo
	if err := cliio.WriteTable(
		writer,
		[]string{"FIELD", "VALUE"},
		[][]string{
			{"ACCOUNT", accountInfo.AccountID},
			{"NAME", accountInfo.AccountName},
			{"TYPE", accountInfo.AccountType},
			{"BASE CURRENCY", accountInfo.BaseCurrency},
			{"BALANCE", moneyfmt.Format(accountInfo.Balance, baseCurrency(accountInfo))},
			{"CUMULATIVE P&L", moneyfmt.Format(statement.CumulativePnL, baseCurrency(accountInfo))},
		},
	); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(writer); err != nil {
		return err
	}
	tradeRows := make([][]string, 0, len(statement.Trades))
	for i := range statement.Trades {
		tradeRows = append(tradeRows, tradeToRow(&statement.Trades[i]))
	}
	if err := cliio.WriteTable(writer, tradeHeaders(), tradeRows); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(writer); err != nil {
		return err
	}
	positionRows := make([][]string, 0, len(statement.Positions))
	for i := range statement.Positions {
		positionRows = append(positionRows, positionToRow(&statement.Positions[i]))
	}
	return cliio.WriteTable(writer, positionHeaders(), positionRows)
}

func tradeHeaders() []string {
	return []string{"DATE/TIME", "ACCOUNT", "CATEGORY", "SYMBOL", "QUANTITY", "PRICE", "PROCEEDS", "COMM/FEE", "TRADE P&L", "CODE"}
}

func tradeToRow(trade *ibkrstatement.Trade) []string {
	return []string{
		trade.DateTime,
		trade.AccountID,
		trade.AssetCategory,
		trade.Symbol,
		mathdec.ToString(trade.Quantity),
		mathdec.ToString(trade.TradePrice),
		moneyfmt.Format(trade.Proceeds, trade.Currency),
		moneyfmt.Format(trade.CommissionFee, trade.Currency),
		moneyfmt.Format(trade.TradePL, trade.Currency),
		trade.Code,
	}
}

func positionHeaders() []string {
	return []string{"SYMBOL", "TYPE", "QUANTITY", "PRICE", "AVG COST", "MARKET VALUE", "UNREALIZED P&L"}
}

func positionToRow(position *ibkrstatement.Position) []string {
	return []string{
		position.Symbol,
		string(position.AssetType),
		mathdec.ToString(position.Quantity),
		mathdec.ToString(position.MarketPrice),
		mathdec.ToString(position.AverageCost),
		moneyfmt.Format(position.MarketValue, position.Currency),
		moneyfmt.Format(position.UnrealizedPL, position.Currency),
	}
}

func baseCurrency(accountInfo ibkrstatement.AccountInfo) string {
	if accountInfo.BaseCurrency == ibkrstatement.Unknown {
		return ""
	}
	return accountInfo.BaseCurrency
}
